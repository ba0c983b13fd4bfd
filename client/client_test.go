package client_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/takuyakubo/knowledge-system/client"
)

const (
	testEmail    = "reader@example.com"
	testPassword = "correct horse battery"
)

// newTestClient wires a client against an httptest server, with an
// in-memory token store unless the test supplies its own.
func newTestClient(t *testing.T, handler http.Handler, store client.TokenStore, onExpired func()) *client.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := client.New(client.Config{
		BaseURL:          srv.URL,
		Tokens:           store,
		OnSessionExpired: onExpired,
		Logger:           zerolog.Nop(),
	})
	require.NoError(t, err)
	return c
}

func seededStore(t *testing.T, access, refresh string) *client.MemoryTokenStore {
	t.Helper()

	store := client.NewMemoryTokenStore()
	require.NoError(t, store.Save(client.TokenPair{AccessToken: access, RefreshToken: refresh}))
	return store
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func userJSON(email string) string {
	return fmt.Sprintf(`{"id":1,"email":%q,"username":"reader","is_active":true,"is_verified":true}`, email)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := client.New(client.Config{})
	require.Error(t, err)
}

func TestMe_DecodesProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, userJSON(testEmail))
	})

	c := newTestClient(t, mux, seededStore(t, "access-1", "refresh-1"), nil)

	user, err := c.Me(context.Background())
	require.NoError(t, err)
	require.Equal(t, testEmail, user.Email)
	require.Equal(t, int64(1), user.ID)
}

func TestRegister_DuplicateBecomesValidationError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":"email_taken"}`)
	})

	c := newTestClient(t, mux, client.NewMemoryTokenStore(), nil)

	_, err := c.Register(context.Background(), client.RegisterInput{Email: testEmail, Password: testPassword})
	var vErr *client.ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Message, "email_taken")
}

func TestLogin_RejectionIsAuthenticationError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error":"invalid_credentials"}`)
	})

	c := newTestClient(t, mux, client.NewMemoryTokenStore(), nil)

	_, err := c.Login(context.Background(), testEmail, "wrong")
	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	require.Contains(t, authErr.Message, "invalid_credentials")
}

func TestGetArticle_NotFoundIsAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/articles/42", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":"article not found"}`)
	})

	c := newTestClient(t, mux, seededStore(t, "access-1", "refresh-1"), nil)

	_, err := c.GetArticle(context.Background(), 42)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	require.Contains(t, apiErr.Message, "not found")
}

func TestListArticles_SendsFilters(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/articles", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "5", q.Get("skip"))
		require.Equal(t, "10", q.Get("limit"))
		require.Equal(t, "true", q.Get("published_only"))
		require.Equal(t, "golang", q.Get("search"))
		writeJSON(w, http.StatusOK, `{"articles":[{"id":7,"title":"Go slices","slug":"go-slices","status":"published"}],"count":1}`)
	})

	c := newTestClient(t, mux, seededStore(t, "access-1", "refresh-1"), nil)

	articles, err := c.ListArticles(context.Background(), client.ArticleListOptions{
		Skip:          5,
		Limit:         10,
		PublishedOnly: true,
		Search:        "golang",
	})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	require.Equal(t, "Go slices", articles[0].Title)
}

func TestListPapers_DecodesList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/papers", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "reading", r.URL.Query().Get("reading_status"))
		writeJSON(w, http.StatusOK, `{"papers":[{"id":3,"title":"Attention Is All You Need","authors":"Vaswani et al.","reading_status":"reading"}],"count":1}`)
	})

	c := newTestClient(t, mux, seededStore(t, "access-1", "refresh-1"), nil)

	papers, err := c.ListPapers(context.Background(), client.PaperListOptions{ReadingStatus: "reading"})
	require.NoError(t, err)
	require.Len(t, papers, 1)
	require.Equal(t, "Attention Is All You Need", papers[0].Title)
}

func TestCategoryTree_DecodesChildren(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/categories/tree", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"categories":[{"id":1,"name":"ML","slug":"ml","children":[{"id":2,"name":"NLP","slug":"nlp"}]}]}`)
	})

	c := newTestClient(t, mux, seededStore(t, "access-1", "refresh-1"), nil)

	tree, err := c.CategoryTree(context.Background())
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	require.Equal(t, "NLP", tree[0].Children[0].Name)
}

// TestUploadFile_ReplaysMultipartAfterRefresh uploads with a stale access
// token; the buffered multipart body must survive the refresh-and-retry
// intact.
func TestUploadFile_ReplaysMultipartAfterRefresh(t *testing.T) {
	const content = "PDF bytes go here"

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"access_token":"fresh-access","refresh_token":"fresh-refresh","token_type":"bearer","expires_in":900}`)
	})
	mux.HandleFunc("/api/v1/files/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer fresh-access" {
			writeJSON(w, http.StatusUnauthorized, `{"error":"token expired"}`)
			return
		}
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, content, string(data))

		writeJSON(w, http.StatusCreated, fmt.Sprintf(`{"file":{"id":9,"filename":%q},"deduplicated":false}`, header.Filename))
	})

	c := newTestClient(t, mux, seededStore(t, "stale-access", "refresh-1"), nil)

	uploaded, err := c.UploadFile(context.Background(), "paper.pdf", strings.NewReader(content))
	require.NoError(t, err)
	require.Equal(t, int64(9), uploaded.ID)
	require.Equal(t, "paper.pdf", uploaded.Filename)
}

func TestDownloadFile_StreamsBody(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/files/9/download", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "stored bytes")
	})

	c := newTestClient(t, mux, seededStore(t, "access-1", "refresh-1"), nil)

	body, err := c.DownloadFile(context.Background(), 9)
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "stored bytes", string(data))
}

func TestDo_TransportErrorsPassThrough(t *testing.T) {
	c, err := client.New(client.Config{
		BaseURL: "http://127.0.0.1:1",
		Tokens:  client.NewMemoryTokenStore(),
		Logger:  zerolog.Nop(),
	})
	require.NoError(t, err)

	_, err = c.Me(context.Background())
	require.Error(t, err)

	var authErr *client.AuthenticationError
	require.False(t, errors.As(err, &authErr))
}
