package billingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/checkoutkit/pkg/checkout"
	"github.com/dmitrymomot/checkoutkit/pkg/logger"
)

const maxErrorBody = 64 << 10

// Client is the shared transport to the product API. It holds one pooled
// *http.Client for the whole process; per-user state lives in Session.
type Client struct {
	base        *url.URL
	http        *http.Client
	timeout     time.Duration
	refreshPath string
	log         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the pooled HTTP client. Nil is ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a product API client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, ErrMissingBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Join(ErrInvalidBaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, ErrInvalidBaseURL
	}

	c := &Client{
		base:        base,
		http:        cleanhttp.DefaultPooledClient(),
		timeout:     cfg.Timeout,
		refreshPath: cfg.RefreshPath,
		log:         slog.Default(),
	}
	if c.refreshPath == "" {
		c.refreshPath = "/auth/refresh"
	}

	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("billingapi"))

	return c, nil
}

// Session binds the client to one user's credentials, given as the cookies
// the browser sent to this backend.
func (c *Client) Session(cookies []*http.Cookie) *Session {
	s := &Session{
		client:  c,
		cookies: make(map[string]*http.Cookie),
		updated: make(map[string]*http.Cookie),
	}
	s.SetCookies(cookies)
	return s
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String()
}

// Session performs API calls on behalf of one user. An authorization
// failure triggers one transparent session refresh and one retry; if the
// retry fails too the call reports checkout.ErrUnauthenticated.
type Session struct {
	client *Client

	mu      sync.Mutex
	cookies map[string]*http.Cookie
	updated map[string]*http.Cookie

	refresh singleflight.Group
}

// SetCookies merges browser cookies into the session.
func (s *Session) SetCookies(cookies []*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ck := range cookies {
		if ck == nil || ck.Name == "" {
			continue
		}
		s.cookies[ck.Name] = &http.Cookie{Name: ck.Name, Value: ck.Value}
	}
}

// Cookies returns the credentials currently forwarded upstream.
func (s *Session) Cookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Cookie, 0, len(s.cookies))
	for _, ck := range s.cookies {
		out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}

// TakeUpdated returns the cookies the API set since the last call, so they
// can be relayed to the browser.
func (s *Session) TakeUpdated() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Cookie, 0, len(s.updated))
	for _, ck := range s.updated {
		out = append(out, ck)
	}
	clear(s.updated)
	return out
}

func (s *Session) storeCookies(cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ck := range cookies {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(s.cookies, ck.Name)
		} else {
			s.cookies[ck.Name] = &http.Cookie{Name: ck.Name, Value: ck.Value}
		}
		s.updated[ck.Name] = ck
	}
}

func (s *Session) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return err
		}
	}

	status, err := s.attempt(ctx, method, path, body, out)
	if status != http.StatusUnauthorized {
		return err
	}

	if err := s.refreshSession(ctx); err != nil {
		s.client.log.InfoContext(ctx, "session refresh failed", slog.String("path", path), logger.Error(err))
		return errors.Join(checkout.ErrUnauthenticated, err)
	}

	status, err = s.attempt(ctx, method, path, body, out)
	if status == http.StatusUnauthorized {
		return checkout.ErrUnauthenticated
	}
	return err
}

// refreshSession refreshes the session once for all concurrent callers.
func (s *Session) refreshSession(ctx context.Context) error {
	_, err, _ := s.refresh.Do("refresh", func() (any, error) {
		if _, err := s.attempt(ctx, http.MethodPost, s.client.refreshPath, nil, nil); err != nil {
			return nil, errors.Join(ErrRefreshFailed, err)
		}
		return nil, nil
	})
	return err
}

func (s *Session) attempt(ctx context.Context, method, path string, body []byte, out any) (int, error) {
	if s.client.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.client.timeout)
		defer cancel()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.client.endpoint(path), reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, ck := range s.Cookies() {
		req.AddCookie(ck)
	}

	resp, err := s.client.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	s.storeCookies(resp.Cookies())

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, checkout.ErrUnauthenticated
	case resp.StatusCode >= http.StatusMultipleChoices:
		apiErr := decodeAPIError(resp)
		if resp.StatusCode == http.StatusNotFound {
			apiErr.Err = errNotFound
		}
		return resp.StatusCode, apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return resp.StatusCode, errors.Join(ErrUnexpectedResponse, err)
	}
	return resp.StatusCode, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// decodeAPIError keeps the server's message verbatim.
func decodeAPIError(resp *http.Response) *checkout.APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var eb errorBody
	msg := ""
	if json.Unmarshal(raw, &eb) == nil {
		msg = eb.Message
		if msg == "" {
			msg = eb.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &checkout.APIError{Status: resp.StatusCode, Message: msg}
}
