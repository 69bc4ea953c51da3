// Package capture stores diagnostic full-page screenshots of listing pages.
package capture

import (
	"bytes"
	"context"
	"crypto/sha1" // #nosec G505 -- used for file naming only.
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

var invalidFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// Capturer writes screenshots to a blob store. Failures are logged and swallowed.
type Capturer struct {
	store  crawler.BlobStore
	clock  crawler.Clock
	prefix string
	logger *zap.Logger
}

var _ crawler.Capturer = (*Capturer)(nil)

// New creates a Capturer writing under prefix.
func New(store crawler.BlobStore, clock crawler.Clock, prefix string, logger *zap.Logger) *Capturer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capturer{
		store:  store,
		clock:  clock,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

// Capture screenshots the session's current page.
func (c *Capturer) Capture(ctx context.Context, session crawler.Session, source, pageURL string) {
	logger := c.logger.With(zap.String("source", source), zap.String("url", pageURL))
	png, err := session.Screenshot(ctx)
	if err != nil {
		logger.Warn("capture screenshot failed", zap.Error(err))
		return
	}
	key := c.Path(source, pageURL)
	uri, err := c.store.PutObject(ctx, key, "image/png", bytes.NewReader(png))
	if err != nil {
		logger.Warn("store capture failed", zap.String("path", key), zap.Error(err))
		return
	}
	logger.Debug("capture stored", zap.String("uri", uri), zap.Int("bytes", len(png)))
}

// Path returns the object path for a capture of pageURL taken now.
func (c *Capturer) Path(source, pageURL string) string {
	day := c.clock.Now().UTC().Format("20060102")
	return path.Join(c.prefix, source, day, safeBasename(pageURL)+".png")
}

// safeBasename turns a URL into a filename that stays unique across query strings.
func safeBasename(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return hashURL(raw)
	}
	host := invalidFilenameChars.ReplaceAllString(u.Hostname(), "_")
	p := strings.Trim(u.EscapedPath(), "/")
	if p == "" {
		p = "root"
	}
	p = invalidFilenameChars.ReplaceAllString(p, "_")
	return fmt.Sprintf("%s_%s_%s", host, p, hashURL(raw)[:12])
}

func hashURL(raw string) string {
	sum := sha1.Sum([]byte(raw)) // #nosec G401 -- not a security boundary.
	return hex.EncodeToString(sum[:])
}
