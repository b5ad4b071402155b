package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const proxyListPage = `<html><body>
<table class="table">
<thead><tr><th>IP Address</th><th>Port</th><th>Country</th></tr></thead>
<tbody>
<tr><td>203.0.113.10</td><td>8080</td><td>US</td></tr>
<tr><td>198.51.100.7</td><td>3128</td><td>DE</td></tr>
<tr><td>192.0.2.55</td><td>80</td><td>JP</td></tr>
</tbody>
</table>
</body></html>`

func TestParseProxyTable(t *testing.T) {
	got := parseProxyTable([]byte(proxyListPage))
	assert.Equal(t, []string{
		"http://203.0.113.10:8080",
		"http://198.51.100.7:3128",
		"http://192.0.2.55:80",
	}, got)
}

func TestParseProxyTable_SkipsMalformedRows(t *testing.T) {
	page := `<table>
<tr><td>only-one-cell</td></tr>
<tr><td>203.0.113.10</td><td>not.a.port</td></tr>
<tr><td></td><td>8080</td></tr>
<tr><td>198.51.100.7</td><td>3128</td></tr>
</table>`
	got := parseProxyTable([]byte(page))
	assert.Equal(t, []string{"http://198.51.100.7:3128"}, got)
}

func TestParseProxyTable_NoTable(t *testing.T) {
	assert.Empty(t, parseProxyTable([]byte(`<html><body><p>nothing here</p></body></html>`)))
}

func TestListSource_RotatesAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, proxyListPage)
	}))
	defer srv.Close()

	src := NewListSource(srv.URL, time.Minute)
	ctx := context.Background()

	first := src.Acquire(ctx)
	second := src.Acquire(ctx)
	third := src.Acquire(ctx)
	fourth := src.Acquire(ctx)

	require.Equal(t, "http://203.0.113.10:8080", first)
	assert.Equal(t, "http://198.51.100.7:3128", second)
	assert.Equal(t, "http://192.0.2.55:80", third)
	// Rotation wraps around.
	assert.Equal(t, first, fourth)
	// The list page is fetched once within the TTL.
	assert.Equal(t, int32(1), hits.Load())
}

func TestListSource_RefreshAfterTTL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, proxyListPage)
	}))
	defer srv.Close()

	src := NewListSource(srv.URL, time.Nanosecond)
	ctx := context.Background()

	src.Acquire(ctx)
	time.Sleep(time.Millisecond)
	src.Acquire(ctx)

	assert.Equal(t, int32(2), hits.Load())
}

func TestListSource_UnavailableListFallsBackToDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewListSource(srv.URL, time.Minute)
	assert.Equal(t, "", src.Acquire(context.Background()))
}

func TestListSource_EmptyTableFallsBackToDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><table></table></body></html>`)
	}))
	defer srv.Close()

	src := NewListSource(srv.URL, time.Minute)
	assert.Equal(t, "", src.Acquire(context.Background()))
}

func TestDirect(t *testing.T) {
	assert.Equal(t, "", Direct{}.Acquire(context.Background()))
}
