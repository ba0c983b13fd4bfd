package client_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/client"
)

func authJSON() string {
	return `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"bearer","expires_in":900,"user":` + userJSON(testEmail) + `}`
}

func TestSessionStore_StartsLoading(t *testing.T) {
	c := newTestClient(t, http.NewServeMux(), client.NewMemoryTokenStore(), nil)
	sess := client.NewSessionStore(c)

	current := sess.Current()
	require.True(t, current.Loading)
	require.Nil(t, current.User)
}

func TestBootstrap_NoCredentialsNoNetwork(t *testing.T) {
	var requests int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		writeJSON(w, http.StatusOK, `{}`)
	})

	c := newTestClient(t, handler, client.NewMemoryTokenStore(), nil)
	sess := client.NewSessionStore(c)

	require.NoError(t, sess.Bootstrap(context.Background()))
	require.Equal(t, int32(0), atomic.LoadInt32(&requests))

	current := sess.Current()
	require.False(t, current.Loading)
	require.Nil(t, current.User)
}

func TestBootstrap_RestoresUserFromStoredPair(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, userJSON(testEmail))
	})

	store := seededStore(t, "access-1", "refresh-1")
	c := newTestClient(t, mux, store, nil)
	sess := client.NewSessionStore(c)

	require.NoError(t, sess.Bootstrap(context.Background()))

	current := sess.Current()
	require.False(t, current.Loading)
	require.NotNil(t, current.User)
	require.Equal(t, testEmail, current.User.Email)
}

// TestBootstrap_RejectedPairClearsAndStartsLoggedOut: a pair the server
// no longer accepts is dropped quietly; the app comes up logged out
// rather than failing to start.
func TestBootstrap_RejectedPairClearsAndStartsLoggedOut(t *testing.T) {
	var hookCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"token expired"}`)
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"invalid_refresh_token"}`)
	})

	store := seededStore(t, "stale-access", "stale-refresh")
	c := newTestClient(t, mux, store, func() { atomic.AddInt32(&hookCalls, 1) })
	sess := client.NewSessionStore(c)

	require.NoError(t, sess.Bootstrap(context.Background()))

	current := sess.Current()
	require.False(t, current.Loading)
	require.Nil(t, current.User)

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))
}

func TestBootstrap_RunsOnce(t *testing.T) {
	var meCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&meCalls, 1)
		writeJSON(w, http.StatusOK, userJSON(testEmail))
	})

	c := newTestClient(t, mux, seededStore(t, "access-1", "refresh-1"), nil)
	sess := client.NewSessionStore(c)

	require.NoError(t, sess.Bootstrap(context.Background()))
	require.NoError(t, sess.Bootstrap(context.Background()))
	require.Equal(t, int32(1), atomic.LoadInt32(&meCalls))
}

func TestLogin_PersistsPairAndLoadsProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authJSON())
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, userJSON(testEmail))
	})

	store := client.NewMemoryTokenStore()
	c := newTestClient(t, mux, store, nil)
	sess := client.NewSessionStore(c)

	var snapshots []client.Session
	cancel := sess.Subscribe(func(s client.Session) { snapshots = append(snapshots, s) })
	defer cancel()

	require.NoError(t, sess.Login(context.Background(), testEmail, testPassword))

	pair, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "access-1", pair.AccessToken)
	require.Equal(t, "refresh-1", pair.RefreshToken)

	current := sess.Current()
	require.NotNil(t, current.User)
	require.Equal(t, testEmail, current.User.Email)

	require.NotEmpty(t, snapshots)
	require.NotNil(t, snapshots[len(snapshots)-1].User)
}

func TestLogin_RejectionPersistsNothing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"invalid_credentials"}`)
	})

	store := client.NewMemoryTokenStore()
	c := newTestClient(t, mux, store, nil)
	sess := client.NewSessionStore(c)
	before := sess.Current()

	err := sess.Login(context.Background(), testEmail, "wrong")
	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)

	_, ok, loadErr := store.Load()
	require.NoError(t, loadErr)
	require.False(t, ok)
	require.Equal(t, before, sess.Current())
}

func TestLogin_ProfileLoadFailureKeepsPair(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authJSON())
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error":"profile backend down"}`)
	})

	store := client.NewMemoryTokenStore()
	c := newTestClient(t, mux, store, nil)
	sess := client.NewSessionStore(c)

	err := sess.Login(context.Background(), testEmail, testPassword)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)

	_, ok, loadErr := store.Load()
	require.NoError(t, loadErr)
	require.True(t, ok, "the exchanged pair stays usable for a retry")
	require.Nil(t, sess.Current().User)
}

func TestRegister_RunsFullLoginFlow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, userJSON(testEmail))
	})
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authJSON())
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, userJSON(testEmail))
	})

	store := client.NewMemoryTokenStore()
	c := newTestClient(t, mux, store, nil)
	sess := client.NewSessionStore(c)

	require.NoError(t, sess.Register(context.Background(), testEmail, testPassword, "Reader"))

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, sess.Current().User)
}

func TestRegister_DuplicateSurfacesValidationError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":"email_taken"}`)
	})

	store := client.NewMemoryTokenStore()
	c := newTestClient(t, mux, store, nil)
	sess := client.NewSessionStore(c)

	err := sess.Register(context.Background(), testEmail, testPassword, "")
	var vErr *client.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, ok, loadErr := store.Load()
	require.NoError(t, loadErr)
	require.False(t, ok)
	require.Nil(t, sess.Current().User)
}

// TestLogout_ClearsDespiteServerFailure: the server call is best-effort;
// local credentials and the session are always cleared.
func TestLogout_ClearsDespiteServerFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, userJSON(testEmail))
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"error":"session backend down"}`)
	})

	store := seededStore(t, "access-1", "refresh-1")
	c := newTestClient(t, mux, store, nil)
	sess := client.NewSessionStore(c)
	require.NoError(t, sess.Bootstrap(context.Background()))
	require.NotNil(t, sess.Current().User)

	require.NoError(t, sess.Logout(context.Background()))

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, sess.Current().User)
}

func TestLogout_WithoutCredentialsSkipsServer(t *testing.T) {
	var requests int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		writeJSON(w, http.StatusNoContent, "")
	})

	c := newTestClient(t, handler, client.NewMemoryTokenStore(), nil)
	sess := client.NewSessionStore(c)

	require.NoError(t, sess.Logout(context.Background()))
	require.Equal(t, int32(0), atomic.LoadInt32(&requests))
}

func TestSubscribe_CancelStopsNotifications(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authJSON())
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, userJSON(testEmail))
	})

	c := newTestClient(t, mux, client.NewMemoryTokenStore(), nil)
	sess := client.NewSessionStore(c)

	var notified int
	cancel := sess.Subscribe(func(client.Session) { notified++ })

	require.NoError(t, sess.Login(context.Background(), testEmail, testPassword))
	afterLogin := notified
	require.Positive(t, afterLogin)

	cancel()
	require.NoError(t, sess.Logout(context.Background()))
	require.Equal(t, afterLogin, notified)
}

func TestSessionRefresh_MissingCredential(t *testing.T) {
	c := newTestClient(t, http.NewServeMux(), client.NewMemoryTokenStore(), nil)
	sess := client.NewSessionStore(c)

	err := sess.Refresh(context.Background())
	require.ErrorIs(t, err, client.ErrMissingCredential)
}
