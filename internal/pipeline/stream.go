// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"unicode/utf8"

	"github.com/samber/oops"
	"golang.org/x/net/websocket"

	"github.com/vfriends/vfriends/internal/observability"
)

// Defaults for StreamClient.
const (
	DefaultURL    = "wss://pipeline.vrchat.cloud/"
	DefaultOrigin = "https://vrchat.com"
	maxFrameBytes = 1 << 20
)

// Listener runs one streaming connection. It calls onPayload for every
// inbound frame, in order, before reading the next one. A nil error means
// the remote closed the stream.
type Listener interface {
	Listen(ctx context.Context, token, userAgent string, onPayload func(string)) error
}

// StreamClient is a Listener over a websocket connection to the pipeline.
type StreamClient struct {
	URL     string
	Origin  string
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Listen dials the pipeline with token as the authToken query parameter and
// reads frames until the remote closes, the connection fails or ctx is
// cancelled. Binary frames that are not valid UTF-8 are skipped.
func (c *StreamClient) Listen(ctx context.Context, token, userAgent string, onPayload func(string)) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg, err := c.config(token, userAgent)
	if err != nil {
		return err
	}

	ws, err := cfg.DialContext(ctx)
	if err != nil {
		return oops.Code("PIPELINE_DIAL").With("url", redact(cfg.Location)).Wrap(err)
	}
	ws.MaxPayloadBytes = maxFrameBytes

	// Closing the connection is what unblocks a pending Receive.
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer func() {
		stop()
		_ = ws.Close()
		c.Metrics.SetConnected(false)
	}()

	c.Metrics.SetConnected(true)
	logger.Info("pipeline connected")

	for {
		var frame []byte
		err := websocket.Message.Receive(ws, &frame)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, io.EOF):
			logger.Info("pipeline closed by remote")
			return nil
		case errors.Is(err, websocket.ErrFrameTooLarge):
			logger.Warn("pipeline frame too large, skipped", "limit", maxFrameBytes)
			continue
		default:
			return oops.Code("PIPELINE_READ").Wrap(err)
		}

		c.Metrics.FrameReceived()
		if !utf8.Valid(frame) {
			logger.Debug("pipeline frame is not UTF-8, skipped", "bytes", len(frame))
			continue
		}
		onPayload(string(frame))
	}
}

func (c *StreamClient) config(token, userAgent string) (*websocket.Config, error) {
	raw := c.URL
	if raw == "" {
		raw = DefaultURL
	}
	origin := c.Origin
	if origin == "" {
		origin = DefaultOrigin
	}

	location, err := url.Parse(raw)
	if err != nil {
		return nil, oops.Code("PIPELINE_URL").With("url", raw).Wrap(err)
	}
	if location.Scheme != "ws" && location.Scheme != "wss" {
		return nil, oops.Code("PIPELINE_URL").With("url", raw).Errorf("unsupported scheme %q", location.Scheme)
	}
	query := location.Query()
	query.Set("authToken", token)
	location.RawQuery = query.Encode()

	originURL, err := url.Parse(origin)
	if err != nil {
		return nil, oops.Code("PIPELINE_URL").With("origin", origin).Wrap(err)
	}

	cfg := &websocket.Config{
		Location: location,
		Origin:   originURL,
		Version:  websocket.ProtocolVersionHybi13,
		Header:   make(map[string][]string),
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	cfg.Header.Set("User-Agent", userAgent)
	return cfg, nil
}

// redact drops the query so the token never reaches logs.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}
