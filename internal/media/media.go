// Package media downloads and decodes media segments referenced by
// inbound events, writing them to a local directory. It does not touch
// the segment's local_path: the journal sets it before the write and
// clears it through a Repairer when a download or decode fails.
package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"

	"github.com/corvidbot/gateway/internal/httpkit"
)

// Config holds settings for the media pipeline.
type Config struct {
	// Root is the directory downloaded and decoded files are written to.
	// If empty, the pipeline is disabled and Download/DecodeInline are
	// no-ops that return an error.
	Root string

	// ProxyURL is an optional HTTP proxy used for outbound downloads.
	ProxyURL string

	// MaxAttempts bounds the number of download attempts before giving
	// up and clearing local_path (default 3).
	MaxAttempts uint64
}

// Client downloads remote media and decodes inline base64 payloads,
// writing both to Config.Root.
type Client struct {
	cfg    Config
	logger *slog.Logger
	http   *http.Client
}

// Repairer clears local_path on a segment after a failed download, using
// an optimistic-lock read-modify-write against whatever backing store
// holds the segment (the message journal).
type Repairer interface {
	ClearLocalPath(ctx context.Context, selfID int64, kind, conversationID, msgID string, segmentIndex int) error
}

// New creates a media client. A nil logger defaults to slog.Default().
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}

	opts := []httpkit.ClientOption{
		httpkit.WithTimeout(2 * time.Minute),
	}
	if cfg.ProxyURL != "" {
		if u, err := url.Parse(cfg.ProxyURL); err == nil {
			opts = append(opts, httpkit.WithProxy(u))
		} else {
			logger.Warn("media: ignoring invalid proxy_url", "proxy_url", cfg.ProxyURL, "error", err)
		}
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		http:   httpkit.NewClient(opts...),
	}
}

// Enabled reports whether a destination root is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Root != ""
}

// LocalPath computes the destination path a segment with the given
// message ID, segment index, and extension would be written to, rooted
// under Config.Root: "{messageID}_{index}{ext}". It does not touch the
// filesystem; callers use it to populate local_path optimistically
// before the download or decode begins.
func (c *Client) LocalPath(messageID string, index int, ext string) (string, error) {
	if c.cfg.Root == "" {
		return "", fmt.Errorf("media: no root directory configured")
	}
	if ext == "" {
		ext = ".bin"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	name := fmt.Sprintf("%s_%d%s", messageID, index, ext)
	return filepath.Join(c.cfg.Root, name), nil
}

// ExtensionFromURL derives a file extension from the last path segment of
// a URL, falling back to def when none is present.
func ExtensionFromURL(rawURL, def string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return def
	}
	ext := filepath.Ext(u.Path)
	if ext == "" {
		return def
	}
	return ext
}

// Download streams rawURL to localPath, retrying transient failures with
// exponential backoff. On exhaustion it removes any partial file and
// returns an error; the caller is responsible for clearing the segment's
// local_path (see Repairer).
func (c *Client) Download(ctx context.Context, rawURL, localPath string) error {
	if c.cfg.Root == "" {
		return fmt.Errorf("media: no root directory configured")
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("media: create destination dir: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 2 * time.Second
	policy.MaxInterval = 10 * time.Second
	bo := backoff.WithMaxRetries(policy, c.cfg.MaxAttempts-1)
	bo = backoff.WithContext(bo, ctx)

	err := backoff.Retry(func() error {
		return c.downloadOnce(ctx, rawURL, localPath)
	}, bo)

	if err != nil {
		os.Remove(localPath)
		// Give any in-flight journal write time to land before the
		// local_path repair runs, so the repair doesn't race a write
		// that would otherwise resurrect the dangling path.
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return fmt.Errorf("media: download %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) downloadOnce(ctx context.Context, rawURL, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("fetch: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return backoff.Permanent(fmt.Errorf("fetch: status %d", resp.StatusCode))
	}

	f, err := os.Create(localPath)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("create file: %w", err))
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// inlineChunkSize is the size of base64 chunks decoded off the event loop.
const inlineChunkSize = 1024 * 1024

// DecodeInline decodes a (possibly data-URI-prefixed) base64 payload in
// fixed-size chunks and writes it to localPath, sniffing the format from
// the first decoded bytes to report a content type.
func (c *Client) DecodeInline(ctx context.Context, payload, localPath string) (mime string, err error) {
	if c.cfg.Root == "" {
		return "", fmt.Errorf("media: no root directory configured")
	}

	// Strip a "data:image/png;base64," style prefix if present.
	if idx := strings.Index(payload, ","); idx >= 0 && idx < 200 {
		payload = payload[idx+1:]
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("media: create destination dir: %w", err)
	}

	f, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("media: create file: %w", err)
	}
	defer f.Close()

	var sniffed bool
	for len(payload) > 0 {
		if ctx.Err() != nil {
			os.Remove(localPath)
			return "", ctx.Err()
		}

		n := inlineChunkSize
		if n > len(payload) {
			n = len(payload)
		}
		// base64.StdEncoding needs a multiple-of-4 chunk unless it's the
		// final one.
		for n%4 != 0 && n < len(payload) {
			n++
		}
		chunk := payload[:n]
		payload = payload[n:]

		decoded, decErr := base64.StdEncoding.DecodeString(chunk)
		if decErr != nil {
			os.Remove(localPath)
			return "", fmt.Errorf("media: decode base64 chunk: %w", decErr)
		}

		if !sniffed {
			sniffLen := len(decoded)
			if sniffLen > 261 {
				sniffLen = 261
			}
			mime = mimetype.Detect(decoded[:sniffLen]).String()
			sniffed = true
		}

		if _, err := f.Write(decoded); err != nil {
			os.Remove(localPath)
			return "", fmt.Errorf("media: write decoded chunk: %w", err)
		}
	}

	return mime, nil
}
