// Package fetch retrieves recipe pages and images over HTTP, with an
// optional headless-browser fallback for JavaScript-rendered sites.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests. Recipe sites
// commonly block empty or default Go agents.
const DefaultUserAgent = "Mozilla/5.0 (compatible; RecipeImporter/1.0)"

// maxBodyBytes caps a fetched page or image at 10 MB.
const maxBodyBytes = 10 << 20

// Error represents a failure fetching a URL.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Fetcher retrieves pages and images. The zero value is not usable; call
// NewFetcher.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	useBrowser bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithBrowserFallback enables headless-browser rendering when a plain HTTP
// fetch returns a page with too little content.
func WithBrowserFallback() Option {
	return func(f *Fetcher) { f.useBrowser = true }
}

// WithHTTPClient overrides the HTTP client (tests, proxies).
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// NewFetcher returns a Fetcher with sane defaults.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchPage retrieves the HTML document at urlStr. When the browser fallback
// is enabled and the plain response looks like an unrendered SPA shell, the
// page is re-fetched through chromedp.
func (f *Fetcher) FetchPage(ctx context.Context, urlStr string) (string, error) {
	if err := validateURL(urlStr); err != nil {
		return "", err
	}

	body, contentType, err := f.get(ctx, urlStr)
	if err != nil {
		if f.useBrowser {
			return renderWithBrowser(ctx, urlStr, DefaultTimeout)
		}
		return "", err
	}

	if !strings.Contains(contentType, "text/html") && !strings.Contains(contentType, "application/xhtml") {
		return "", &Error{URL: urlStr, Message: fmt.Sprintf("unexpected content type %q", contentType)}
	}

	html := string(body)
	if f.useBrowser && looksUnrendered(html) {
		rendered, berr := renderWithBrowser(ctx, urlStr, DefaultTimeout)
		if berr == nil {
			return rendered, nil
		}
		// Fall through to the plain fetch; the parser may still find JSON-LD.
	}
	return html, nil
}

// FetchImage retrieves image bytes and their content type.
func (f *Fetcher) FetchImage(ctx context.Context, urlStr string) ([]byte, string, error) {
	if err := validateURL(urlStr); err != nil {
		return nil, "", err
	}
	body, contentType, err := f.get(ctx, urlStr)
	if err != nil {
		return nil, "", err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", &Error{URL: urlStr, Message: fmt.Sprintf("not an image: content type %q", contentType)}
	}
	return body, contentType, nil
}

func (f *Fetcher) get(ctx context.Context, urlStr string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, "", &Error{URL: urlStr, Message: "failed to build request", Cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,image/*;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", &Error{URL: urlStr, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &Error{URL: urlStr, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", &Error{URL: urlStr, Message: "failed to read body", Cause: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return body, strings.TrimSpace(strings.ToLower(contentType)), nil
}

func validateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &Error{URL: urlStr, Message: fmt.Sprintf("unsupported scheme %q", parsed.Scheme)}
	}
	return nil
}

// minRenderedLength is the minimum body length to consider an HTTP fetch
// rendered. Shorter pages are likely SPA shells.
const minRenderedLength = 500

func looksUnrendered(html string) bool {
	return len(strings.TrimSpace(html)) < minRenderedLength
}
