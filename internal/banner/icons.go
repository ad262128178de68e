// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package banner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/tvinput/internal/cache"
	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/resilience"
)

// DefaultIconCacheSize is the number of input icons kept in memory.
const DefaultIconCacheSize = 10

const maxIconBytes = 1 << 20

var errNoIcon = errors.New("no icon source")

// Icon is a decoded-on-the-client image.
type Icon struct {
	Source      string
	ContentType string
	Data        []byte
}

// Fetcher loads an icon.
type Fetcher interface {
	Fetch(ctx context.Context, source string) (*Icon, error)
}

// HTTPFetcher downloads icons over HTTP(S). Transport failures and server
// errors count against Breaker; rejected responses do not.
type HTTPFetcher struct {
	Client  *http.Client
	Breaker *resilience.CircuitBreaker
}

// errIconRejected marks a response the server sent successfully but that is
// not a usable icon.
var errIconRejected = errors.New("icon rejected")

// NewHTTPFetcher returns a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: timeout},
		Breaker: resilience.NewCircuitBreaker("icon_fetch", 5, time.Minute),
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, source string) (*Icon, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return nil, fmt.Errorf("icon %q: unsupported scheme", source)
	}
	if f.Breaker == nil {
		return f.get(ctx, source)
	}
	var (
		icon   *Icon
		getErr error
	)
	err := f.Breaker.Execute(func() error {
		icon, getErr = f.get(ctx, source)
		if errors.Is(getErr, errIconRejected) {
			return nil
		}
		return getErr
	})
	if err != nil {
		return nil, err
	}
	return icon, getErr
}

func (f *HTTPFetcher) get(ctx context.Context, source string) (*Icon, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errIconRejected, err)
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("icon %q: status %d", source, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %q: status %d", errIconRejected, source, resp.StatusCode)
	}
	ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(ct, "image/") {
		return nil, fmt.Errorf("%w: %q: content type %q", errIconRejected, source, ct)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxIconBytes {
		return nil, fmt.Errorf("%w: %q: larger than %d bytes", errIconRejected, source, maxIconBytes)
	}
	return &Icon{Source: source, ContentType: ct, Data: data}, nil
}

// IconCache memoizes icons per key. A failed load is cached as absent so a
// broken icon is not refetched on every banner update.
type IconCache struct {
	lru    *cache.LRU[string, *Icon]
	fetch  Fetcher
	group  singleflight.Group
	logger zerolog.Logger
}

// NewIconCache returns a cache of the given capacity.
func NewIconCache(capacity int, fetch Fetcher) *IconCache {
	if capacity <= 0 {
		capacity = DefaultIconCacheSize
	}
	return &IconCache{
		lru:    cache.NewLRU[string, *Icon](capacity),
		fetch:  fetch,
		logger: log.WithComponent("banner"),
	}
}

// Get returns the icon for key, loading it from source on a miss. It returns
// nil when the icon is unavailable.
func (c *IconCache) Get(ctx context.Context, key, source string) *Icon {
	if icon, ok := c.lru.Get(key); ok {
		metrics.RecordIconCacheLookup(true)
		return icon
	}
	metrics.RecordIconCacheLookup(false)

	v, _, _ := c.group.Do(key, func() (any, error) {
		icon, err := c.load(ctx, source)
		if err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("icon unavailable")
		}
		c.lru.Set(key, icon)
		return icon, nil
	})
	return v.(*Icon)
}

func (c *IconCache) load(ctx context.Context, source string) (*Icon, error) {
	if source == "" || c.fetch == nil {
		return nil, errNoIcon
	}
	return c.fetch.Fetch(ctx, source)
}

// Capacity returns how many icons the cache holds.
func (c *IconCache) Capacity() int { return c.lru.Capacity() }

// Keys lists cached keys from most to least recently used.
func (c *IconCache) Keys() []string { return c.lru.Keys() }
