package fetch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/singleflight"

	"github.com/vaibhavmahiwal/medverify/internal/resilience"
)

// ProxySource supplies outbound proxy addresses for fetch attempts.
// Acquire returns "http://ip:port" or "" when no proxy is available, in
// which case the fetcher connects directly. Implementations must be safe
// for concurrent use.
type ProxySource interface {
	Acquire(ctx context.Context) string
}

// Direct is a ProxySource that never supplies a proxy.
type Direct struct{}

// Acquire always returns "" so every attempt uses a direct connection.
func (Direct) Acquire(context.Context) string { return "" }

// ListSource scrapes a free proxy-list page and rotates through the
// addresses it finds. The list is cached for a short TTL and refreshed via
// singleflight so concurrent requests trigger at most one refresh.
type ListSource struct {
	listURL string
	ttl     time.Duration
	http    *http.Client

	sf singleflight.Group

	mu        sync.Mutex
	proxies   []string
	fetchedAt time.Time
	next      int
}

// NewListSource creates a proxy source backed by the given list page.
func NewListSource(listURL string, ttl time.Duration) *ListSource {
	return &ListSource{
		listURL: listURL,
		ttl:     ttl,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Acquire returns the next proxy address in rotation, refreshing the list
// when stale. Refresh failures are non-fatal and yield "" (direct).
func (s *ListSource) Acquire(ctx context.Context) string {
	s.mu.Lock()
	fresh := time.Since(s.fetchedAt) < s.ttl
	s.mu.Unlock()

	if !fresh {
		// Dedupe concurrent refreshes; every waiter shares one fetch.
		_, _, _ = s.sf.Do("refresh", func() (any, error) {
			s.refresh(ctx)
			return nil, nil
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.proxies) == 0 {
		return ""
	}
	addr := s.proxies[s.next%len(s.proxies)]
	s.next++
	return addr
}

func (s *ListSource) refresh(ctx context.Context) {
	proxies, err := resilience.DoVal(ctx, resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: 250 * time.Millisecond,
		OnRetry:        resilience.RetryLogger("proxylist", "fetch"),
	}, s.fetchList)
	if err != nil {
		zap.L().Warn("fetch: proxy list unavailable, falling back to direct connections", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.proxies = proxies
	s.fetchedAt = time.Now()
	s.next = 0
	s.mu.Unlock()

	zap.L().Debug("fetch: proxy list refreshed", zap.Int("proxies", len(proxies)))
}

func (s *ListSource) fetchList(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.listURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "proxylist: create request")
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "proxylist: fetch")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(
				eris.Errorf("proxylist: status %d", resp.StatusCode), resp.StatusCode)
		}
		return nil, eris.Errorf("proxylist: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "proxylist: read body")
	}

	proxies := parseProxyTable(body)
	if len(proxies) == 0 {
		return nil, eris.New("proxylist: no proxies found in table")
	}
	return proxies, nil
}

// parseProxyTable extracts "http://ip:port" addresses from the first two
// columns of every table row in the page.
func parseProxyTable(page []byte) []string {
	doc, err := html.Parse(strings.NewReader(string(page)))
	if err != nil {
		return nil
	}

	var proxies []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			if addr := parseProxyRow(n); addr != "" {
				proxies = append(proxies, addr)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return proxies
}

func parseProxyRow(tr *html.Node) string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "td" {
			cells = append(cells, strings.TrimSpace(nodeText(c)))
		}
	}
	if len(cells) < 2 {
		return ""
	}

	ip, port := cells[0], cells[1]
	if ip == "" || port == "" || strings.ContainsAny(port, ".:") {
		return ""
	}
	return "http://" + ip + ":" + port
}

func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
