package kommo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNoToken is returned when neither a static token nor OAuth refresh
// credentials are configured.
var ErrNoToken = errors.New("kommo: no token source configured")

// TokenSource yields a bearer token for API calls against a subdomain.
type TokenSource interface {
	Token(ctx context.Context, subdomain string) (string, error)
}

// StaticTokenSource returns the same long-lived API token for every call.
func StaticTokenSource(token string) TokenSource {
	return staticSource(token)
}

type staticSource string

func (s staticSource) Token(context.Context, string) (string, error) {
	return string(s), nil
}

// OAuthConfig holds the refresh-token exchange credentials.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	RedirectURI  string
}

// refreshSource exchanges a refresh token for an access token and caches it
// until 60 seconds before expiry. Access is mutex-guarded so concurrent
// requests share one refresh.
type refreshSource struct {
	cfg    OAuthConfig
	http   *http.Client
	base   string // test override; "" means https://<subdomain>.<domain>
	domain string

	mu     sync.Mutex
	token  string
	expiry time.Time
	now    func() time.Time
}

// NewRefreshTokenSource creates an OAuth refresh-token TokenSource.
func NewRefreshTokenSource(cfg OAuthConfig, opts ...TokenOption) TokenSource {
	s := &refreshSource{
		cfg:    cfg,
		http:   &http.Client{Timeout: 30 * time.Second},
		domain: defaultDomain,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenOption configures a refresh TokenSource.
type TokenOption func(*refreshSource)

// WithTokenBaseURL points the OAuth exchange at a fixed base URL (tests).
func WithTokenBaseURL(base string) TokenOption {
	return func(s *refreshSource) { s.base = base }
}

// WithTokenHTTPClient overrides the HTTP client used for the exchange.
func WithTokenHTTPClient(c *http.Client) TokenOption {
	return func(s *refreshSource) { s.http = c }
}

func (s *refreshSource) Token(ctx context.Context, subdomain string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiry.Add(-time.Minute)) {
		return s.token, nil
	}
	return s.refresh(ctx, subdomain)
}

func (s *refreshSource) refresh(ctx context.Context, subdomain string) (string, error) {
	base := s.base
	if base == "" {
		base = fmt.Sprintf("https://%s.%s", subdomain, s.domain)
	}
	body, err := json.Marshal(map[string]string{
		"client_id":     s.cfg.ClientID,
		"client_secret": s.cfg.ClientSecret,
		"grant_type":    "refresh_token",
		"refresh_token": s.cfg.RefreshToken,
		"redirect_uri":  s.cfg.RedirectURI,
	})
	if err != nil {
		return "", eris.Wrap(err, "kommo: marshal token request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/oauth2/access_token", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "kommo: build token request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "kommo: token exchange")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return "", eris.New(fmt.Sprintf("kommo: token exchange failed with status %d", resp.StatusCode))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", eris.Wrap(err, "kommo: decode token response")
	}
	if out.ExpiresIn == 0 {
		out.ExpiresIn = 3600
	}
	s.token = out.AccessToken
	s.expiry = s.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return s.token, nil
}

// NewTokenSource picks the configured token strategy: a static API token when
// present, else the OAuth refresh exchange, else a source that fails with
// ErrNoToken at acquisition time.
func NewTokenSource(staticToken string, cfg OAuthConfig, opts ...TokenOption) TokenSource {
	if staticToken != "" {
		return StaticTokenSource(staticToken)
	}
	if cfg.RefreshToken != "" {
		return NewRefreshTokenSource(cfg, opts...)
	}
	return noTokenSource{}
}

type noTokenSource struct{}

func (noTokenSource) Token(context.Context, string) (string, error) {
	return "", ErrNoToken
}
