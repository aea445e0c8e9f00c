// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

// Package vrchat is a minimal client for the VRChat REST API: the
// current-user probe, second-factor verification, friends and worlds.
package vrchat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

// Defaults used when Options leaves a field empty.
const (
	DefaultBaseURL    = "https://api.vrchat.cloud/api/1"
	DefaultUserAgent  = "vfriends"
	defaultTimeout    = 30 * time.Second
	fallbackCookieURL = "https://api.vrchat.cloud"
	maxResponseBytes  = 4 << 20
)

var tracer = otel.Tracer("github.com/vfriends/vfriends/internal/vrchat")

// Options configures a Client.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int
	// CookieHeader seeds the jar with a previously persisted session.
	CookieHeader string
	Logger       *slog.Logger
}

// Client talks to the remote API on behalf of one session. Cookies set by
// the server accumulate in its jar.
type Client struct {
	baseURL   string
	cookieURL *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	logger    *slog.Logger

	mu        sync.RWMutex
	basicAuth string
}

// NewClient creates a client with a fresh cookie jar.
func NewClient(opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, oops.Code("VRCHAT_COOKIE_JAR").Wrap(err)
	}

	c := &Client{
		baseURL:   base,
		cookieURL: cookieURLFor(base, logger),
		http:      &http.Client{Timeout: timeout, Jar: jar},
		userAgent: userAgent,
		logger:    logger,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	if header := strings.TrimSpace(opts.CookieHeader); header != "" {
		cookies, err := http.ParseCookie(header)
		if err != nil {
			return nil, oops.Code("VRCHAT_COOKIE_PARSE").Wrap(err)
		}
		jar.SetCookies(c.cookieURL, cookies)
	}

	return c, nil
}

// cookieURLFor returns the origin cookies are stored against. An unusable
// base URL falls back to the public API host.
func cookieURLFor(base string, logger *slog.Logger) *url.URL {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		logger.Warn("invalid API base URL, using default cookie origin",
			"base_url", base, "fallback", fallbackCookieURL)
		u, _ = url.Parse(fallbackCookieURL)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}
}

// SetCredentials attaches basic auth to subsequent requests.
func (c *Client) SetCredentials(username, password string) {
	raw := escapeCredential(username) + ":" + escapeCredential(password)
	c.mu.Lock()
	c.basicAuth = base64.StdEncoding.EncodeToString([]byte(raw))
	c.mu.Unlock()
}

// ClearCredentials stops sending basic auth; cookies are kept.
func (c *Client) ClearCredentials() {
	c.mu.Lock()
	c.basicAuth = ""
	c.mu.Unlock()
}

// HasCredentials reports whether basic auth is currently attached.
func (c *Client) HasCredentials() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.basicAuth != ""
}

// CookieHeader renders the jar's cookies for the API origin as a Cookie
// header value, or "" when the jar is empty.
func (c *Client) CookieHeader() string {
	cookies := c.http.Jar.Cookies(c.cookieURL)
	parts := make([]string, 0, len(cookies))
	for _, ck := range cookies {
		parts = append(parts, ck.Name+"="+ck.Value)
	}
	return strings.Join(parts, "; ")
}

// UserAgent returns the User-Agent this client sends.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// escapeCredential percent-encodes like a URL component, including spaces
// and colons, so the user:pass split stays unambiguous.
func escapeCredential(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, span := tracer.Start(ctx, "vrchat."+strings.ToLower(method), trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)
	defer span.End()

	errb := oops.Code("VRCHAT_REQUEST").With("method", method).With("path", path)
	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fail(errb.Wrap(err))
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fail(errb.Wrap(err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fail(errb.Wrap(err))
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.basicAuth != "" {
		req.Header.Set("Authorization", "Basic "+c.basicAuth)
	}
	c.mu.RUnlock()

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(errb.Wrap(err))
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(errb.With("status", resp.StatusCode).Wrap(err))
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := newAPIError(resp.StatusCode, data)
		c.logger.DebugContext(ctx, "api request failed",
			"method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		return fail(apiErr)
	}
	span.SetStatus(codes.Ok, "")

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fail(oops.Code("VRCHAT_DECODE").With("path", path).Wrap(err))
	}
	return nil
}
