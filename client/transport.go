package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Transport decorates an http.RoundTripper with bearer-token attachment
// and a bounded refresh-and-retry on 401.
//
// The transport operates on the TokenStore only; it never touches the
// session object. Refresh calls go straight to the refresh endpoint with
// a plain client, so they are never intercepted themselves, and are
// de-duplicated so concurrent 401s share one in-flight refresh.
type Transport struct {
	base       http.RoundTripper
	tokens     TokenStore
	refreshURL string
	onExpired  func()
	log        zerolog.Logger

	group singleflight.Group
	plain *http.Client
}

type TransportConfig struct {
	// Tokens is the persisted pair the transport reads and the refresh
	// flow rewrites.
	Tokens TokenStore
	// RefreshURL is the absolute URL of the token refresh endpoint.
	RefreshURL string
	// Base handles the actual round trips; http.DefaultTransport when nil.
	Base http.RoundTripper
	// OnSessionExpired runs once per failed refresh, after both tokens
	// have been cleared.
	OnSessionExpired func()
	Logger           zerolog.Logger
}

func NewTransport(cfg TransportConfig) *Transport {
	base := cfg.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:       base,
		tokens:     cfg.Tokens,
		refreshURL: cfg.RefreshURL,
		onExpired:  cfg.OnSessionExpired,
		log:        cfg.Logger,
		plain:      &http.Client{Timeout: 15 * time.Second},
	}
}

// shouldRetry reports whether a response warrants a refresh-and-retry.
// The attempt count is explicit; only the first attempt may retry, so a
// request that comes back 401 after a refresh is returned as-is.
func shouldRetry(statusCode, attempt int) bool {
	return statusCode == http.StatusUnauthorized && attempt == 1
}

// credentialSubmission reports whether the request is itself a credential
// submission. A 401 there means the submitted credentials were bad, not
// that the session expired, so no refresh is attempted.
func credentialSubmission(path string) bool {
	switch {
	case strings.HasSuffix(path, "/auth/login"),
		strings.HasSuffix(path, "/auth/register"),
		strings.HasSuffix(path, "/auth/refresh"),
		strings.HasSuffix(path, "/auth/forgot-password"),
		strings.HasSuffix(path, "/auth/reset-password"):
		return true
	case strings.Contains(path, "/auth/verify-email/"):
		return true
	}
	return false
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		send := req.Clone(req.Context())
		if attempt > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("replay request body: %w", err)
			}
			send.Body = body
		}

		if pair, ok, err := t.tokens.Load(); err == nil && ok && pair.AccessToken != "" {
			send.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		}

		resp, err := t.base.RoundTrip(send)
		if err != nil {
			return nil, err
		}

		if !shouldRetry(resp.StatusCode, attempt) || credentialSubmission(req.URL.Path) {
			return resp, nil
		}
		if req.Body != nil && req.GetBody == nil {
			// The body cannot be replayed, so the 401 stands.
			return resp, nil
		}

		drain(resp)

		if _, err := t.Refresh(req.Context()); err != nil {
			return nil, err
		}
	}
}

// Refresh exchanges the stored refresh token for a new pair and persists
// it. Concurrent callers share a single in-flight exchange. On any
// failure both tokens are cleared and the expiry hook runs exactly once
// for that failure; with no refresh token stored it returns
// ErrMissingCredential without any network call.
func (t *Transport) Refresh(ctx context.Context) (TokenPair, error) {
	v, err, _ := t.group.Do("refresh", func() (any, error) {
		pair, ok, err := t.tokens.Load()
		if err != nil {
			return nil, err
		}
		if !ok || pair.RefreshToken == "" {
			t.sessionExpired()
			return nil, ErrMissingCredential
		}

		fresh, err := t.exchange(ctx, pair.RefreshToken)
		if err != nil {
			t.sessionExpired()
			return nil, err
		}

		if err := t.tokens.Save(fresh); err != nil {
			return nil, fmt.Errorf("persist refreshed tokens: %w", err)
		}
		return fresh, nil
	})
	if err != nil {
		return TokenPair{}, err
	}
	return v.(TokenPair), nil
}

func (t *Transport) sessionExpired() {
	if err := t.tokens.Clear(); err != nil {
		t.log.Warn().Err(err).Msg("clear credentials failed")
	}
	if t.onExpired != nil {
		t.onExpired()
	}
}

func (t *Transport) exchange(ctx context.Context, refreshToken string) (TokenPair, error) {
	payload, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return TokenPair{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.refreshURL, bytes.NewReader(payload))
	if err != nil {
		return TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.plain.Do(req)
	if err != nil {
		return TokenPair{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return TokenPair{}, &AuthenticationError{Message: errorMessage(resp)}
	}

	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return TokenPair{}, fmt.Errorf("decode refresh response: %w", err)
	}
	return TokenPair{AccessToken: body.AccessToken, RefreshToken: body.RefreshToken}, nil
}

// errorMessage extracts the server's {"error": ...} payload, falling back
// to the status text.
func errorMessage(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil {
		var body struct {
			Error string `json:"error"`
		}
		if jsonErr := json.Unmarshal(data, &body); jsonErr == nil && body.Error != "" {
			return body.Error
		}
	}
	return http.StatusText(resp.StatusCode)
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
