package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"
)

// ErrNotFound signals a 404 response. Retrying cannot change it.
var ErrNotFound = errors.New("file not found")

// ErrInvalidURL signals a URL that cannot be requested at all, such as a
// missing or unsupported scheme. It is a configuration error.
var ErrInvalidURL = errors.New("invalid URL")

// StatusError is returned for non-2xx responses other than 404.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Status)
}

// Config holds the client settings.
type Config struct {
	// Timeout bounds a whole request including the body. Zero disables it.
	Timeout time.Duration

	// UserAgent is sent with every request.
	UserAgent string

	// Logger receives transport diagnostics. The zero value discards them.
	Logger logr.Logger

	// Transport replaces the pooled default transport. Tests use it to
	// inject fake servers.
	Transport http.RoundTripper
}

// DefaultUserAgent identifies the installer to servers.
const DefaultUserAgent = "mod-installer"

// Client wraps HTTP operations used by the installer.
//
// Client provides:
//   - Configured User-Agent header
//   - Classified errors (ErrNotFound, ErrInvalidURL, *StatusError)
//   - Streaming file download with progress tracking
//
// The underlying retryablehttp client performs a single try per call.
// Retries are driven by the caller so that a failure while streaming the
// body counts against the same budget as a failed request.
//
// Example usage:
//
//	client := NewClient(Config{UserAgent: "mod-installer"})
//
//	err := client.DownloadFile(ctx, url, "/srv/mods/jei.jar", func(written, total int64) {
//	    fmt.Printf("%d / %d\n", written, total)
//	})
//	if errors.Is(err, ErrNotFound) {
//	    // wrong URL or filename in the manifest
//	}
type Client struct {
	httpClient *retryablehttp.Client
	userAgent  string
	log        logr.Logger
}

// NewClient creates a new HTTP client.
func NewClient(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.CheckRetry = singleTry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Timeout = cfg.Timeout
	if cfg.Transport != nil {
		rc.HTTPClient.Transport = cfg.Transport
	}

	log := cfg.Logger
	if log.GetSink() == nil {
		log = logr.Discard()
		rc.Logger = nil
	} else {
		rc.Logger = newLeveledLogger(log)
		rc.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
			log.V(1).Info("response", "url", resp.Request.URL.String(), "status", resp.StatusCode)
		}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Client{
		httpClient: rc,
		userAgent:  userAgent,
		log:        log,
	}
}

// singleTry never asks retryablehttp to retry, but surfaces context errors.
func singleTry(ctx context.Context, _ *http.Response, _ error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return false, nil
}

// ValidateURL checks that rawURL can be requested: it must parse, use the
// http or https scheme, and name a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http", "https":
	case "":
		return fmt.Errorf("%w: missing scheme in %q", ErrInvalidURL, rawURL)
	default:
		return fmt.Errorf("%w: unsupported scheme %q in %q", ErrInvalidURL, u.Scheme, rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidURL, rawURL)
	}
	return nil
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	// It is -1 when unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns ErrNotFound for 404 and *StatusError for any other non-2xx status.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.open(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// DownloadFile streams rawURL into destPath.
//
// The file is created, or truncated if it exists, only once the server has
// answered with a success status. A failure while copying the body leaves
// the partial file behind; the next attempt overwrites it.
//
// Pass nil onProgress to disable progress tracking.
func (c *Client) DownloadFile(ctx context.Context, rawURL, destPath string, onProgress func(written, total int64)) error {
	resp, err := c.open(ctx, rawURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   file,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		file.Close()
		return fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("write %s: %w", destPath, err)
	}
	return nil
}

// open sends a GET and returns a response with a 2xx status.
func (c *Client) open(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		c.log.V(1).Info("request failed", "url", rawURL, "error", err.Error())
		if isUnsupportedScheme(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		return nil, fmt.Errorf("GET %s: %w", rawURL, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		drain(resp)
		return nil, fmt.Errorf("GET %s: %w", rawURL, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp)
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	return resp, nil
}

// isUnsupportedScheme detects redirects to schemes net/http cannot follow.
func isUnsupportedScheme(err error) bool {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return strings.Contains(uerr.Err.Error(), "unsupported protocol scheme")
	}
	return strings.Contains(err.Error(), "unsupported protocol scheme")
}

// drain discards a bounded amount of the body so the connection can be
// reused, then closes it.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
