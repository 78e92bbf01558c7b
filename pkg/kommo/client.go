// Package kommo provides a thin authenticated client for the Kommo CRM
// REST API (v4): lead and user lookups with filter-search fallback, contact
// batches, paginated custom-field definitions, loss reasons and account info.
package kommo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultDomain = "kommo.com"

// ErrNotFound is returned when a record cannot be located even through the
// filter-search fallback.
var ErrNotFound = errors.New("kommo: not found")

// Client defines the Kommo API operations used by the translation pipeline.
type Client interface {
	GetLead(ctx context.Context, subdomain, id string) (Lead, error)
	GetUserName(ctx context.Context, subdomain, userID string) (string, error)
	GetContacts(ctx context.Context, subdomain string, ids []string) ([]Contact, error)
	ListCustomFields(ctx context.Context, subdomain string) ([]FieldDef, error)
	ListLossReasons(ctx context.Context, subdomain string) ([]LossReason, error)
	GetAccount(ctx context.Context, subdomain string) (*Account, error)
}

// ClientOption configures the Kommo client.
type ClientOption func(*httpClient)

// WithRateLimit sets a per-second rate limit for API calls. Kommo caps
// accounts at 7 req/s; that is the default.
func WithRateLimit(rps float64) ClientOption {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithBaseURL routes every call to a fixed base URL instead of
// https://<subdomain>.kommo.com (tests).
func WithBaseURL(base string) ClientOption {
	return func(c *httpClient) { c.base = strings.TrimRight(base, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *httpClient) { c.http = h }
}

// WithDomain overrides the API host suffix (default kommo.com).
func WithDomain(domain string) ClientOption {
	return func(c *httpClient) { c.domain = domain }
}

type httpClient struct {
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	base    string
	domain  string
}

// NewClient creates a Kommo API client using the given token source.
func NewClient(tokens TokenSource, opts ...ClientOption) Client {
	c := &httpClient{
		http:    &http.Client{Timeout: 30 * time.Second},
		tokens:  tokens,
		limiter: rate.NewLimiter(7, 7),
		domain:  defaultDomain,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) baseURL(subdomain string) string {
	if c.base != "" {
		return c.base
	}
	return fmt.Sprintf("https://%s.%s", subdomain, c.domain)
}

// wait blocks until the rate limiter allows one event, or ctx is cancelled.
func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// getJSON performs an authenticated GET and decodes the body into out.
// 404 maps to ErrNotFound; errors IsTransient recognizes (429, 5xx, network
// timeouts) are retried once with a short backoff.
func (c *httpClient) getJSON(ctx context.Context, subdomain, path string, out any) error {
	token, err := c.tokens.Token(ctx, subdomain)
	if err != nil {
		return eris.Wrap(err, "kommo: acquire token")
	}

	const attempts = 2
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := c.wait(ctx); err != nil {
			return eris.Wrap(err, "kommo: rate limit")
		}

		lastErr = c.getOnce(ctx, token, subdomain, path, out)
		if lastErr == nil || !IsTransient(lastErr) {
			return lastErr
		}
		zap.L().Warn("kommo: transient API error, retrying",
			zap.String("path", path),
			zap.Error(lastErr),
			zap.Int("attempt", attempt+1),
		)
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}
	return lastErr
}

// getOnce performs a single authenticated GET. 429 and 5xx responses come
// back as *TransientError; transport failures are wrapped so timeouts keep
// their net.Error identity. IsTransient classifies both for the retry loop.
func (c *httpClient) getOnce(ctx context.Context, token, subdomain, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL(subdomain)+path, nil)
	if err != nil {
		return eris.Wrap(err, "kommo: build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("kommo: GET %s", path))
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		drain(resp)
		return ErrNotFound
	case resp.StatusCode == http.StatusNoContent:
		drain(resp)
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		drain(resp)
		return &TransientError{
			Err:        fmt.Errorf("kommo: GET %s returned %d", path, resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	case resp.StatusCode != http.StatusOK:
		drain(resp)
		return eris.New(fmt.Sprintf("kommo: GET %s returned %d", path, resp.StatusCode))
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	resp.Body.Close() //nolint:errcheck
	if err != nil {
		return eris.Wrap(err, fmt.Sprintf("kommo: decode %s", path))
	}
	return nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()              //nolint:errcheck
}

// GetLead fetches the full lead by id, falling back to the filter-search
// endpoint when the primary path 404s.
func (c *httpClient) GetLead(ctx context.Context, subdomain, id string) (Lead, error) {
	id = strings.TrimSpace(id)
	var lead Lead
	err := c.getJSON(ctx, subdomain, "/api/v4/leads/"+url.PathEscape(id), &lead)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var page struct {
		Embedded struct {
			Leads []Lead `json:"leads"`
		} `json:"_embedded"`
	}
	if err := c.getJSON(ctx, subdomain, "/api/v4/leads?filter[id]="+url.QueryEscape(id), &page); err != nil {
		return nil, err
	}
	if len(page.Embedded.Leads) == 0 {
		return nil, eris.Wrap(ErrNotFound, fmt.Sprintf("kommo: lead %s", id))
	}
	return page.Embedded.Leads[0], nil
}

// GetUserName resolves a user's display name by id, with the same
// filter-search fallback as GetLead. An unresolvable user yields ErrNotFound.
func (c *httpClient) GetUserName(ctx context.Context, subdomain, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	var user struct {
		Name string `json:"name"`
	}
	err := c.getJSON(ctx, subdomain, "/api/v4/users/"+url.PathEscape(userID), &user)
	if err == nil {
		if user.Name == "" {
			return "", eris.Wrap(ErrNotFound, fmt.Sprintf("kommo: user %s", userID))
		}
		return user.Name, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	var page struct {
		Embedded struct {
			Users []struct {
				Name string `json:"name"`
			} `json:"users"`
		} `json:"_embedded"`
	}
	if err := c.getJSON(ctx, subdomain, "/api/v4/users?filter[id]="+url.QueryEscape(userID), &page); err != nil {
		return "", err
	}
	if len(page.Embedded.Users) == 0 || page.Embedded.Users[0].Name == "" {
		return "", eris.Wrap(ErrNotFound, fmt.Sprintf("kommo: user %s", userID))
	}
	return page.Embedded.Users[0].Name, nil
}

// GetContacts fetches a batch of contacts by id.
func (c *httpClient) GetContacts(ctx context.Context, subdomain string, ids []string) ([]Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var page struct {
		Embedded struct {
			Contacts []Contact `json:"contacts"`
		} `json:"_embedded"`
	}
	path := "/api/v4/contacts?filter[id]=" + url.QueryEscape(strings.Join(ids, ","))
	if err := c.getJSON(ctx, subdomain, path, &page); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return page.Embedded.Contacts, nil
}

// ListCustomFields pages through the lead custom-field definitions, following
// the _links.next continuation until absent.
func (c *httpClient) ListCustomFields(ctx context.Context, subdomain string) ([]FieldDef, error) {
	var defs []FieldDef
	for page := 1; ; page++ {
		var resp struct {
			Embedded struct {
				CustomFields []FieldDef `json:"custom_fields"`
			} `json:"_embedded"`
			Links struct {
				Next *struct {
					Href string `json:"href"`
				} `json:"next"`
			} `json:"_links"`
		}
		path := fmt.Sprintf("/api/v4/leads/custom_fields?page=%d", page)
		if err := c.getJSON(ctx, subdomain, path, &resp); err != nil {
			return nil, eris.Wrap(err, "kommo: list custom fields")
		}
		defs = append(defs, resp.Embedded.CustomFields...)
		if resp.Links.Next == nil || resp.Links.Next.Href == "" {
			return defs, nil
		}
	}
}

// ListLossReasons fetches the account's loss reasons.
func (c *httpClient) ListLossReasons(ctx context.Context, subdomain string) ([]LossReason, error) {
	var resp struct {
		Embedded struct {
			LossReasons []LossReason `json:"loss_reasons"`
		} `json:"_embedded"`
	}
	if err := c.getJSON(ctx, subdomain, "/api/v4/leads/loss_reasons", &resp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "kommo: list loss reasons")
	}
	return resp.Embedded.LossReasons, nil
}

// GetAccount fetches the account record; used by the connectivity diagnostic.
func (c *httpClient) GetAccount(ctx context.Context, subdomain string) (*Account, error) {
	var acc Account
	if err := c.getJSON(ctx, subdomain, "/api/v4/account", &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}
