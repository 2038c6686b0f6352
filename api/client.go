// Package api is the REST client for the chat backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrUserNotFound matches the login failure that switches the flow to registration.
var ErrUserNotFound = errors.New("user not found")

// StatusError is a non-2xx response. Message holds the payload's "error" field.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrUserNotFound && e.Message == ErrUserNotFound.Error()
}

// Client talks to the backend. Session state lives in the cookie jar.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client. Its Jar is kept as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a client for the backend at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base: u,
		http: &http.Client{Jar: newSessionJar(jar), Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Jar returns the cookie jar holding the server session.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// Cookies returns the live session cookies for the backend origin, with the
// expiry and attributes the server set when they are known.
func (c *Client) Cookies() []*http.Cookie {
	if c.http.Jar == nil {
		return nil
	}
	live := c.http.Jar.Cookies(c.base)
	if sj, ok := c.http.Jar.(*sessionJar); ok {
		return sj.describe(live)
	}
	return live
}

// sessionJar remembers the full cookies the jar was given. http.CookieJar
// only hands back name and value.
type sessionJar struct {
	http.CookieJar

	mu   sync.Mutex
	seen map[string]*http.Cookie
}

func newSessionJar(jar http.CookieJar) *sessionJar {
	return &sessionJar{CookieJar: jar, seen: map[string]*http.Cookie{}}
}

func (j *sessionJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.CookieJar.SetCookies(u, cookies)
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, ck := range cookies {
		cp := *ck
		if cp.MaxAge > 0 {
			cp.Expires = time.Now().Add(time.Duration(cp.MaxAge) * time.Second)
		}
		if cp.MaxAge < 0 {
			delete(j.seen, cp.Name)
			continue
		}
		j.seen[cp.Name] = &cp
	}
}

func (j *sessionJar) describe(live []*http.Cookie) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]*http.Cookie, 0, len(live))
	for _, ck := range live {
		if full, ok := j.seen[ck.Name]; ok && full.Value == ck.Value {
			cp := *full
			out = append(out, &cp)
			continue
		}
		out = append(out, ck)
	}
	return out
}

// RestoreCookies seeds the jar, typically with cookies saved by a previous run.
func (c *Client) RestoreCookies(cookies []*http.Cookie) {
	if c.http.Jar == nil || len(cookies) == 0 {
		return
	}
	c.http.Jar.SetCookies(c.base, cookies)
}

func (c *Client) resolve(path string, query url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends a JSON request and decodes a JSON response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path, query), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", reqID).
		Dur("took", time.Since(start)).
		Msg("[api] request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Method: method, Path: path, Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		if data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); len(data) > 0 {
			if json.Unmarshal(data, &payload) == nil {
				se.Message = payload.Error
			}
		}
		return se
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
