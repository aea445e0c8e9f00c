// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 VFriends Contributors

package notify

import (
	"context"
	"encoding/hex"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/samber/oops"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/singleflight"

	"github.com/vfriends/vfriends/internal/xdg"
)

const (
	maxIconBytes      = 5 << 20
	fallbackExtension = "img"
	downloadTimeout   = 30 * time.Second
)

var contentTypeExtensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/jpg":     "jpg",
	"image/gif":     "gif",
	"image/webp":    "webp",
	"image/bmp":     "bmp",
	"image/x-icon":  "ico",
	"image/svg+xml": "svg",
}

// IconCache downloads friend icons into a directory and reuses them. Files
// are named after the BLAKE3 hash of the URL.
type IconCache struct {
	dir       string
	client    *http.Client
	userAgent string
	group     singleflight.Group
}

// NewIconCache creates a cache in dir. A nil client uses
// http.DefaultClient.
func NewIconCache(dir string, client *http.Client, userAgent string) (*IconCache, error) {
	if dir == "" {
		return nil, oops.Errorf("icon cache directory is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &IconCache{dir: dir, client: client, userAgent: userAgent}, nil
}

// Fetch returns the local path of the icon at rawURL, downloading it on the
// first request. Concurrent fetches of one URL share a download. The shared
// download is not bound to any caller's ctx; a caller whose ctx ends stops
// waiting while the others keep theirs.
func (c *IconCache) Fetch(ctx context.Context, rawURL string) (string, error) {
	stem := hashStem(rawURL)
	if p, ok := c.cached(stem); ok {
		return p, nil
	}

	ch := c.group.DoChan(stem, func() (any, error) {
		if p, ok := c.cached(stem); ok {
			return p, nil
		}
		dlCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), downloadTimeout)
		defer cancel()
		return c.download(dlCtx, rawURL, stem)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", oops.Code("ICON_CANCELLED").With("url", rawURL).Wrap(ctx.Err())
	}
}

func (c *IconCache) cached(stem string) (string, bool) {
	matches, err := filepath.Glob(filepath.Join(c.dir, stem+".*"))
	if err != nil || len(matches) == 0 {
		return "", false
	}
	return matches[0], true
}

func (c *IconCache) download(ctx context.Context, rawURL, stem string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", oops.Code("ICON_REQUEST").With("url", rawURL).Wrap(err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", oops.Code("ICON_REQUEST").With("url", rawURL).Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", oops.Code("ICON_STATUS").With("url", rawURL).With("status", resp.StatusCode).
			Errorf("icon download failed: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes+1))
	if err != nil {
		return "", oops.Code("ICON_READ").With("url", rawURL).Wrap(err)
	}
	if len(data) == 0 {
		return "", oops.Code("ICON_EMPTY").With("url", rawURL).Errorf("icon body is empty")
	}
	if len(data) > maxIconBytes {
		return "", oops.Code("ICON_TOO_LARGE").With("url", rawURL).Errorf("icon exceeds %d bytes", maxIconBytes)
	}

	if err := xdg.EnsureDir(c.dir); err != nil {
		return "", oops.Code("ICON_WRITE").With("dir", c.dir).Wrap(err)
	}
	target := filepath.Join(c.dir, stem+"."+extensionFor(resp.Header.Get("Content-Type"), rawURL))
	if err := renameio.WriteFile(target, data, 0o600); err != nil {
		return "", oops.Code("ICON_WRITE").With("path", target).Wrap(err)
	}
	return target, nil
}

func hashStem(rawURL string) string {
	sum := blake3.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:16])
}

// extensionFor picks a file extension from the Content-Type, then the URL
// path, then falls back to "img".
func extensionFor(contentType, rawURL string) string {
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext, ok := contentTypeExtensions[strings.ToLower(mediaType)]; ok {
			return ext
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		ext := strings.TrimPrefix(path.Ext(u.Path), ".")
		if isSimpleExtension(ext) {
			return strings.ToLower(ext)
		}
	}
	return fallbackExtension
}

func isSimpleExtension(ext string) bool {
	if ext == "" || len(ext) > 5 {
		return false
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
