// Package download fetches source archive files over HTTP with retry
// and optional checksum verification.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	stderrors "github.com/lichtbaer/StatData/internal/errors"
)

// Options configures a Downloader.
type Options struct {
	// Timeout bounds each HTTP attempt. Zero means 60s.
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// UserAgent is sent on every request.
	UserAgent string
}

// Downloader fetches files over HTTP.
type Downloader struct {
	client     *http.Client
	maxRetries int
	userAgent  string
	logger     *zap.Logger
}

// New creates a Downloader.
func New(opts Options, logger *zap.Logger) *Downloader {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{
		client:     &http.Client{Timeout: opts.Timeout},
		maxRetries: opts.MaxRetries,
		userAgent:  opts.UserAgent,
		logger:     logger,
	}
}

// Fetch downloads url to dest, creating parent directories as needed.
// Attempts are retried with exponential backoff on network errors and
// 5xx responses; a 4xx response fails immediately. When
// expectedChecksum is non-empty the downloaded file's SHA-256 hex
// digest must match it.
func (d *Downloader) Fetch(ctx context.Context, url, dest, expectedChecksum string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return stderrors.NewDownloadError(url, err)
	}

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			d.logger.Debug("retrying download",
				zap.String("url", url),
				zap.Int("attempt", attempt+1))
		}

		lastErr = d.fetchOnce(ctx, url, dest)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var se *statusError
		if errors.As(lastErr, &se) && se.clientError() {
			break
		}
	}
	if lastErr != nil {
		return stderrors.NewDownloadError(url, lastErr)
	}

	if expectedChecksum != "" {
		actual, err := hashFile(dest)
		if err != nil {
			return stderrors.NewDownloadError(url, err)
		}
		if !strings.EqualFold(actual, expectedChecksum) {
			os.Remove(dest)
			return stderrors.New(stderrors.ErrCategoryDownload, stderrors.CodeChecksumMismatch,
				fmt.Sprintf("checksum mismatch for %s: got %s, want %s", dest, actual, expectedChecksum))
		}
	}
	return nil
}

// statusError reports a non-200 response. Client errors are terminal;
// server errors go through the retry schedule.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.status)
}

func (e *statusError) clientError() bool {
	return e.code >= 400 && e.code < 500
}

func (d *Downloader) fetchOnce(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}

// HashFile returns the SHA-256 hex digest of a file. Used to record
// source hashes in ingestion manifests.
func HashFile(path string) (string, error) {
	return hashFile(path)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
