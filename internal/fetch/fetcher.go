// Package fetch retrieves article text from URLs with proxy rotation and
// readability-based content extraction.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	// failurePrefix marks a fetch result that carries an error description
	// instead of page text. Callers detect it with IsFailure and fall back
	// to analyzing the raw URL string.
	failurePrefix = "Web fetch failed:"

	maxAttempts    = 5
	attemptTimeout = 15 * time.Second

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// Readability output shorter than this is treated as an extraction
	// miss and the whole page is converted instead.
	minArticleLength = 100
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Fetcher returns best-effort extracted body text for a URL, or a failure
// marker string when every attempt fails.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) string
}

// IsFailure reports whether a fetch result is a failure marker rather
// than page text.
func IsFailure(text string) bool {
	return strings.HasPrefix(text, failurePrefix)
}

// HTTPFetcher fetches pages over HTTP with per-attempt proxy rotation.
// Each attempt acquires a fresh proxy from the configured source and
// falls back to a direct connection when none is available.
type HTTPFetcher struct {
	proxies  ProxySource
	timeout  time.Duration
	attempts int
	conv     *md.Converter
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithAttempts overrides the attempt count.
func WithAttempts(n int) Option {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.attempts = n
		}
	}
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewHTTPFetcher creates a fetcher that rotates through proxies from the
// given source. Pass Direct{} to always connect directly.
func NewHTTPFetcher(proxies ProxySource, opts ...Option) *HTTPFetcher {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())

	f := &HTTPFetcher{
		proxies:  proxies,
		timeout:  attemptTimeout,
		attempts: maxAttempts,
		conv:     conv,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the page and extracts its readable text. All failures
// across every attempt collapse into a marker string so the caller can
// degrade instead of aborting.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) string {
	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		proxyAddr := f.proxies.Acquire(ctx)

		text, err := f.attempt(ctx, rawURL, proxyAddr)
		if err == nil {
			zap.L().Debug("fetch: page retrieved",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Int("chars", len(text)),
			)
			return text
		}

		lastErr = err
		via := proxyAddr
		if via == "" {
			via = "direct"
		}
		zap.L().Warn("fetch attempt failed",
			zap.String("url", rawURL),
			zap.String("via", via),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	return failurePrefix + " all attempts exhausted: " + lastErr.Error()
}

func (f *HTTPFetcher) attempt(ctx context.Context, rawURL, proxyAddr string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	client, err := f.clientFor(proxyAddr)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", eris.Errorf("status %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", eris.Wrap(err, "read body")
	}

	text := f.extractText(body, resp.Request.URL)
	if text == "" {
		return "", eris.Errorf("no extractable text at %s", rawURL)
	}
	return text, nil
}

func (f *HTTPFetcher) clientFor(proxyAddr string) (*http.Client, error) {
	transport := &http.Transport{}
	if proxyAddr != "" {
		proxyURL, err := url.Parse(proxyAddr)
		if err != nil {
			return nil, eris.Wrapf(err, "parse proxy address %q", proxyAddr)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{Transport: transport, Timeout: f.timeout}, nil
}

// extractText isolates the main article with readability and converts it
// to plain text. Pages readability cannot handle get a whole-page
// markdown conversion instead.
func (f *HTTPFetcher) extractText(page []byte, pageURL *url.URL) string {
	article, err := readability.FromReader(strings.NewReader(string(page)), pageURL)
	if err == nil && len(strings.TrimSpace(article.TextContent)) >= minArticleLength {
		return collapseWhitespace(article.TextContent)
	}

	markdown, err := f.conv.ConvertString(string(page))
	if err != nil {
		return ""
	}
	return collapseWhitespace(markdown)
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
