// Package loader fetches WSDL and XSD documents by URL or local path.
//
// Schema parsing follows import/include references across documents; the
// Loader interface is the single capability the parsers need for that.
// The default loader handles http(s) URLs and filesystem paths. Cache wraps
// any loader with an explicit, invalidatable per-location cache so repeated
// parses of the same document tree do not refetch.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// Loader fetches the raw bytes of a document at a location.
// Location is either an absolute URL or a filesystem path.
type Loader interface {
	Load(ctx context.Context, location string) ([]byte, error)
}

// HTTPError reports a document fetch that reached the server but came back
// with a non-success status.
type HTTPError struct {
	URL        string
	StatusCode int
	Cause      error
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *HTTPError) Unwrap() error {
	return e.Cause
}

// Default resolves http(s) locations over the network and anything else as a
// local file path.
type Default struct {
	// Client is the HTTP client used for URL locations.
	// Defaults to http.DefaultClient.
	Client *http.Client
}

// New returns a Default loader using the given HTTP client.
func New(client *http.Client) *Default {
	return &Default{Client: client}
}

// Load fetches the document at location.
func (l *Default) Load(ctx context.Context, location string) ([]byte, error) {
	if isURL(location) {
		return l.fetch(ctx, location)
	}
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return data, nil
}

func (l *Default) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode, Cause: err}
	}
	return data, nil
}

func isURL(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// Resolve turns a (possibly relative) schemaLocation reference into an
// absolute location, interpreted against the document that contained it.
// URL references resolve per RFC 3986; path references resolve against the
// base document's directory.
func Resolve(base, ref string) string {
	if ref == "" {
		return base
	}
	if isURL(ref) {
		return ref
	}
	if isURL(base) {
		u, err := url.Parse(base)
		if err != nil {
			return ref
		}
		r, err := url.Parse(ref)
		if err != nil {
			return ref
		}
		return u.ResolveReference(r).String()
	}
	if base == "" || filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(filepath.Dir(base), filepath.FromSlash(path.Clean(ref)))
}

// Cache wraps a Loader with a per-location byte cache.
// It is safe for concurrent use. Lifetime and invalidation are the caller's
// responsibility; nothing here expires on its own.
type Cache struct {
	next Loader

	mu      sync.RWMutex
	entries map[string][]byte
}

// NewCache returns a caching wrapper around next.
func NewCache(next Loader) *Cache {
	return &Cache{
		next:    next,
		entries: make(map[string][]byte),
	}
}

// Load returns the cached bytes for location, fetching through the wrapped
// loader on a miss. Failed fetches are not cached.
func (c *Cache) Load(ctx context.Context, location string) ([]byte, error) {
	c.mu.RLock()
	data, ok := c.entries[location]
	c.mu.RUnlock()
	if ok {
		return data, nil
	}

	data, err := c.next.Load(ctx, location)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[location] = data
	c.mu.Unlock()
	return data, nil
}

// Invalidate drops the cached entry for location, if any.
func (c *Cache) Invalidate(location string) {
	c.mu.Lock()
	delete(c.entries, location)
	c.mu.Unlock()
}

// Reset drops every cached entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.mu.Unlock()
}

// Len reports the number of cached documents.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
