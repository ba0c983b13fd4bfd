// Package client is the Go SDK for the knowledge API. It persists the
// session token pair, transparently refreshes expired access tokens, and
// exposes typed wrappers over the HTTP surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const apiPrefix = "/api/v1"

type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenStore
	transport *Transport
	log       zerolog.Logger
}

type Config struct {
	// BaseURL is the server origin, e.g. http://localhost:8080.
	BaseURL string
	// Tokens persists the session pair; NewMemoryTokenStore() when nil.
	Tokens TokenStore
	// OnSessionExpired runs exactly once per failed token refresh, after
	// the stored pair has been cleared.
	OnSessionExpired func()
	// Base is the underlying round tripper; http.DefaultTransport when nil.
	Base   http.RoundTripper
	Logger zerolog.Logger
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url required")
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")

	tokens := cfg.Tokens
	if tokens == nil {
		tokens = NewMemoryTokenStore()
	}

	transport := NewTransport(TransportConfig{
		Tokens:           tokens,
		RefreshURL:       baseURL + apiPrefix + "/auth/refresh",
		Base:             cfg.Base,
		OnSessionExpired: cfg.OnSessionExpired,
		Logger:           cfg.Logger,
	})

	return &Client{
		baseURL:   baseURL,
		http:      &http.Client{Transport: transport},
		tokens:    tokens,
		transport: transport,
		log:       cfg.Logger,
	}, nil
}

// Tokens exposes the store so callers can inspect or seed credentials.
func (c *Client) Tokens() TokenStore { return c.tokens }

// Refresh forces a token refresh outside the 401 pipeline. Concurrent
// callers, including in-flight 401 retries, share one exchange.
func (c *Client) Refresh(ctx context.Context) (TokenPair, error) {
	return c.transport.Refresh(ctx)
}

type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Register creates an account. The server does not log the account in;
// use Login afterwards.
func (c *Client) Register(ctx context.Context, input RegisterInput) (*User, error) {
	var user User
	err := c.do(ctx, http.MethodPost, "/auth/register", input, &user)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			return nil, &ValidationError{Message: apiErr.Message}
		}
		return nil, err
	}
	return &user, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	payload := map[string]string{"email": email, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListArticles(ctx context.Context, opts ArticleListOptions) ([]Article, error) {
	q := url.Values{}
	if opts.Skip > 0 {
		q.Set("skip", strconv.Itoa(opts.Skip))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.PublishedOnly {
		q.Set("published_only", "true")
	}
	if opts.CategoryID > 0 {
		q.Set("category_id", strconv.FormatInt(opts.CategoryID, 10))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}

	var out struct {
		Articles []Article `json:"articles"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/articles", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Articles, nil
}

func (c *Client) GetArticle(ctx context.Context, id int64) (*Article, error) {
	var article Article
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/articles/%d", id), nil, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (c *Client) CreateArticle(ctx context.Context, input ArticleInput) (*Article, error) {
	var article Article
	if err := c.do(ctx, http.MethodPost, "/articles", input, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (c *Client) UpdateArticle(ctx context.Context, id int64, input ArticleInput) (*Article, error) {
	var article Article
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/articles/%d", id), input, &article); err != nil {
		return nil, err
	}
	return &article, nil
}

func (c *Client) ListPapers(ctx context.Context, opts PaperListOptions) ([]Paper, error) {
	q := url.Values{}
	if opts.Skip > 0 {
		q.Set("skip", strconv.Itoa(opts.Skip))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.CategoryID > 0 {
		q.Set("category_id", strconv.FormatInt(opts.CategoryID, 10))
	}
	if opts.ReadingStatus != "" {
		q.Set("reading_status", opts.ReadingStatus)
	}
	if opts.FavoritesOnly {
		q.Set("favorites_only", "true")
	}
	if opts.Year > 0 {
		q.Set("year", strconv.Itoa(opts.Year))
	}

	var out struct {
		Papers []Paper `json:"papers"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/papers", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Papers, nil
}

func (c *Client) GetPaper(ctx context.Context, id int64) (*Paper, error) {
	var paper Paper
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/papers/%d", id), nil, &paper); err != nil {
		return nil, err
	}
	return &paper, nil
}

func (c *Client) CreatePaper(ctx context.Context, input PaperInput) (*Paper, error) {
	var paper Paper
	if err := c.do(ctx, http.MethodPost, "/papers", input, &paper); err != nil {
		return nil, err
	}
	return &paper, nil
}

func (c *Client) UpdatePaper(ctx context.Context, id int64, input PaperInput) (*Paper, error) {
	var paper Paper
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/papers/%d", id), input, &paper); err != nil {
		return nil, err
	}
	return &paper, nil
}

func (c *Client) ListTags(ctx context.Context, search string) ([]Tag, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	var out struct {
		Tags []Tag `json:"tags"`
	}
	if err := c.do(ctx, http.MethodGet, withQuery("/tags", q), nil, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

func (c *Client) GetTag(ctx context.Context, id int64) (*Tag, error) {
	var tag Tag
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tags/%d", id), nil, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (c *Client) CreateTag(ctx context.Context, input TagInput) (*Tag, error) {
	var tag Tag
	if err := c.do(ctx, http.MethodPost, "/tags", input, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (c *Client) UpdateTag(ctx context.Context, id int64, input TagInput) (*Tag, error) {
	var tag Tag
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tags/%d", id), input, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) CategoryTree(ctx context.Context) ([]Category, error) {
	var out struct {
		Categories []Category `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/categories/tree", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var category Category
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/categories/%d", id), nil, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) CreateCategory(ctx context.Context, input CategoryInput) (*Category, error) {
	var category Category
	if err := c.do(ctx, http.MethodPost, "/categories", input, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int64, input CategoryInput) (*Category, error) {
	var category Category
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/categories/%d", id), input, &category); err != nil {
		return nil, err
	}
	return &category, nil
}

// UploadFile sends the content as multipart form data. The body is
// buffered so the pipeline can replay it after a token refresh.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (*File, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPrefix+"/files/upload", bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unwrapPipeline(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, responseError(resp)
	}

	var out struct {
		File File `json:"file"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &out.File, nil
}

// DownloadFile streams the stored content. The caller must close the
// returned reader.
func (c *Client) DownloadFile(ctx context.Context, id int64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiPrefix+fmt.Sprintf("/files/%d/download", id), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, unwrapPipeline(err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, responseError(resp)
	}
	return resp.Body, nil
}

// do sends a JSON request under the API prefix and decodes a JSON reply
// into out when it is non-nil.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return unwrapPipeline(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// unwrapPipeline surfaces the transport's own error taxonomy from the
// url.Error wrapper http.Client puts around round-trip failures.
func unwrapPipeline(err error) error {
	var authErr *AuthenticationError
	if errors.As(err, &authErr) {
		return authErr
	}
	if errors.Is(err, ErrMissingCredential) {
		return ErrMissingCredential
	}
	return err
}

func responseError(resp *http.Response) error {
	msg := errorMessage(resp)
	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthenticationError{Message: msg}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}
