package client_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/takuyakubo/knowledge-system/client"
)

// refreshHandler serves the token endpoint, counting exchanges and
// rotating any submitted refresh token to a fresh pair.
func refreshHandler(calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		writeJSON(w, http.StatusOK, `{"access_token":"fresh-access","refresh_token":"fresh-refresh","token_type":"bearer","expires_in":900}`)
	}
}

func TestRoundTrip_RefreshAndRetryHidesIntermediate401(t *testing.T) {
	var refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", refreshHandler(&refreshCalls))
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			writeJSON(w, http.StatusUnauthorized, `{"error":"token expired"}`)
			return
		}
		writeJSON(w, http.StatusOK, userJSON(testEmail))
	})

	store := seededStore(t, "stale-access", "refresh-1")
	c := newTestClient(t, mux, store, nil)

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, testEmail, user.Email)
	require.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))

	pair, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "fresh-access", pair.AccessToken)
	require.Equal(t, "fresh-refresh", pair.RefreshToken)
}

func TestRoundTrip_ReplaysJSONBodyAfterRefresh(t *testing.T) {
	var refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", refreshHandler(&refreshCalls))
	mux.HandleFunc("/api/v1/articles", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			writeJSON(w, http.StatusUnauthorized, `{"error":"token expired"}`)
			return
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), `"title":"Generics in practice"`)
		writeJSON(w, http.StatusCreated, `{"id":11,"title":"Generics in practice","slug":"generics-in-practice","status":"draft"}`)
	})

	c := newTestClient(t, mux, seededStore(t, "stale-access", "refresh-1"), nil)

	article, err := c.CreateArticle(context.Background(), client.ArticleInput{
		Title:   "Generics in practice",
		Content: "type parameters",
	})
	require.NoError(t, err)
	require.Equal(t, int64(11), article.ID)
	require.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

// TestRoundTrip_Second401ReturnedAsIs covers a server that keeps
// rejecting after a successful refresh: exactly one refresh happens and
// the second 401 surfaces to the caller.
func TestRoundTrip_Second401ReturnedAsIs(t *testing.T) {
	var refreshCalls int32
	var hookCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", refreshHandler(&refreshCalls))
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"account disabled"}`)
	})

	store := seededStore(t, "stale-access", "refresh-1")
	c := newTestClient(t, mux, store, func() { atomic.AddInt32(&hookCalls, 1) })

	_, err := c.Me(context.Background())
	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Contains(t, authErr.Message, "account disabled")

	require.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
	require.Equal(t, int32(0), atomic.LoadInt32(&hookCalls), "successful refresh must not fire the expiry hook")

	pair, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok, "refreshed pair stays persisted")
	require.Equal(t, "fresh-access", pair.AccessToken)
}

func TestRoundTrip_RefreshRejectionClearsAndFiresHookOnce(t *testing.T) {
	var hookCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"invalid_refresh_token"}`)
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"token expired"}`)
	})

	store := seededStore(t, "stale-access", "stale-refresh")
	c := newTestClient(t, mux, store, func() { atomic.AddInt32(&hookCalls, 1) })

	_, err := c.Me(context.Background())
	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Contains(t, authErr.Message, "invalid_refresh_token")

	require.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))

	_, ok, loadErr := store.Load()
	require.NoError(t, loadErr)
	require.False(t, ok, "both tokens cleared after rejected refresh")
}

// TestRoundTrip_CredentialSubmissionNotRetried: a 401 from the login
// endpoint means bad credentials, so the pipeline must not attempt a
// refresh.
func TestRoundTrip_CredentialSubmissionNotRetried(t *testing.T) {
	var refreshCalls int32
	var hookCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", refreshHandler(&refreshCalls))
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"invalid_credentials"}`)
	})

	c := newTestClient(t, mux, seededStore(t, "access-1", "refresh-1"), func() { atomic.AddInt32(&hookCalls, 1) })

	_, err := c.Login(context.Background(), testEmail, "wrong")
	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)

	require.Equal(t, int32(0), atomic.LoadInt32(&refreshCalls))
	require.Equal(t, int32(0), atomic.LoadInt32(&hookCalls))
}

func TestRefresh_MissingCredentialSkipsNetwork(t *testing.T) {
	var requests int32
	var hookCalls int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		writeJSON(w, http.StatusInternalServerError, `{"error":"should never be reached"}`)
	})

	c := newTestClient(t, handler, client.NewMemoryTokenStore(), func() { atomic.AddInt32(&hookCalls, 1) })

	_, err := c.Refresh(context.Background())
	require.ErrorIs(t, err, client.ErrMissingCredential)
	require.Equal(t, int32(0), atomic.LoadInt32(&requests))
	require.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))
}

// TestRoundTrip_MissingRefreshTokenSurfaces: an unauthenticated call gets
// the server's 401, the pipeline finds no refresh token, and the caller
// sees ErrMissingCredential instead of a silent retry loop.
func TestRoundTrip_MissingRefreshTokenSurfaces(t *testing.T) {
	var refreshCalls int32
	var hookCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", refreshHandler(&refreshCalls))
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"missing token"}`)
	})

	c := newTestClient(t, mux, client.NewMemoryTokenStore(), func() { atomic.AddInt32(&hookCalls, 1) })

	_, err := c.Me(context.Background())
	require.ErrorIs(t, err, client.ErrMissingCredential)
	require.Equal(t, int32(0), atomic.LoadInt32(&refreshCalls))
	require.Equal(t, int32(1), atomic.LoadInt32(&hookCalls))
}

func TestRoundTrip_NonReplayableBodyReturns401(t *testing.T) {
	var refreshCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", refreshHandler(&refreshCalls))
	mux.HandleFunc("/ingest", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"token expired"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	transport := client.NewTransport(client.TransportConfig{
		Tokens:     seededStore(t, "stale-access", "refresh-1"),
		RefreshURL: srv.URL + "/api/v1/auth/refresh",
		Logger:     zerolog.Nop(),
	})
	httpc := &http.Client{Transport: transport}

	// A bare io.Reader body gives the request no GetBody, so the
	// pipeline cannot replay it.
	body := io.NopCloser(strings.NewReader("one-shot stream"))
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/ingest", struct{ io.Reader }{body})
	require.NoError(t, err)
	require.Nil(t, req.GetBody)

	resp, err := httpc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int32(0), atomic.LoadInt32(&refreshCalls))
}

// TestRefresh_ConcurrentCallersShareOneExchange drives N simultaneous
// refreshes through the singleflight group.
func TestRefresh_ConcurrentCallersShareOneExchange(t *testing.T) {
	var refreshCalls int32
	release := make(chan struct{})

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		<-release
		writeJSON(w, http.StatusOK, `{"access_token":"fresh-access","refresh_token":"fresh-refresh","token_type":"bearer","expires_in":900}`)
	})

	store := seededStore(t, "stale-access", "refresh-1")
	c := newTestClient(t, mux, store, nil)

	const callers = 8
	started := make(chan struct{}, callers)

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			started <- struct{}{}
			pair, err := c.Refresh(context.Background())
			if err != nil {
				return err
			}
			require.Equal(t, "fresh-access", pair.AccessToken)
			return nil
		})
	}

	for i := 0; i < callers; i++ {
		<-started
	}
	// Give every caller time to join the held-open flight before the
	// exchange is allowed to complete.
	time.Sleep(50 * time.Millisecond)
	close(release)

	require.NoError(t, g.Wait())
	require.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}

// TestRoundTrip_Concurrent401sShareOneRefresh holds N in-flight requests
// at the server until all have arrived, releases their 401s together,
// and verifies the retries ride a single token exchange.
func TestRoundTrip_Concurrent401sShareOneRefresh(t *testing.T) {
	const callers = 6

	var refreshCalls int32
	var arrivals sync.WaitGroup
	arrivals.Add(callers)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		// Keep the flight open long enough for every 401 to join it.
		time.Sleep(300 * time.Millisecond)
		writeJSON(w, http.StatusOK, `{"access_token":"fresh-access","refresh_token":"fresh-refresh","token_type":"bearer","expires_in":900}`)
	})
	mux.HandleFunc("/api/v1/articles", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			arrivals.Done()
			arrivals.Wait()
			writeJSON(w, http.StatusUnauthorized, `{"error":"token expired"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"articles":[],"count":0}`)
	})

	c := newTestClient(t, mux, seededStore(t, "stale-access", "refresh-1"), nil)

	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			_, err := c.ListArticles(context.Background(), client.ArticleListOptions{})
			return err
		})
	}

	require.NoError(t, g.Wait())
	require.Equal(t, int32(1), atomic.LoadInt32(&refreshCalls))
}
