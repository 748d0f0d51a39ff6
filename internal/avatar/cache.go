// Package avatar downloads and caches the avatar images referenced by
// snapshots so the arena renderer can draw them.
package avatar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Support GIF format
	_ "image/jpeg" // Support JPEG format
	_ "image/png"  // Support PNG format
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // Support WebP format
)

const (
	DefaultMaxAvatars    = 64
	DefaultTTL           = 30 * time.Minute
	DefaultMaxBytes      = 1 << 20
	MaxConcurrentFetches = 3
	FetchTimeout         = 5 * time.Second
)

// ErrTooLarge is returned when an avatar exceeds Options.MaxBytes.
var ErrTooLarge = errors.New("avatar too large")

// Options configures a Cache. Zero values fall back to defaults.
type Options struct {
	MaxSize  int
	TTL      time.Duration
	MaxBytes int64
	Client   *http.Client
	Logger   *zap.Logger
}

// Cache stores decoded avatar images with LRU eviction
type Cache struct {
	mu      sync.Mutex
	images  map[string]*cachedAvatar
	order   []string // LRU order (oldest first)
	maxSize int
	ttl     time.Duration

	// Pending fetches
	pending  map[string]bool
	client   *http.Client
	maxBytes int64
	sem      chan struct{} // Semaphore for concurrent fetches
	logger   *zap.Logger
}

type cachedAvatar struct {
	image     image.Image
	fetchedAt time.Time
}

// NewCache creates a new avatar cache
func NewCache(opts Options) *Cache {
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxAvatars
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: FetchTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Cache{
		images:   make(map[string]*cachedAvatar),
		maxSize:  opts.MaxSize,
		ttl:      opts.TTL,
		pending:  make(map[string]bool),
		client:   opts.Client,
		maxBytes: opts.MaxBytes,
		sem:      make(chan struct{}, MaxConcurrentFetches),
		logger:   opts.Logger,
	}
}

// Get returns a cached avatar or nil
func (c *Cache) Get(url string) image.Image {
	if url == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.images[url]
	if !ok {
		return nil
	}
	if time.Since(cached.fetchedAt) > c.ttl {
		c.remove(url)
		return nil
	}
	c.touch(url)
	return cached.image
}

// GetOrFetch returns cached avatar or starts async fetch.
// Never blocks - returns nil immediately if not cached
func (c *Cache) GetOrFetch(url string) image.Image {
	if img := c.Get(url); img != nil || url == "" {
		return img
	}

	c.mu.Lock()
	if !c.pending[url] {
		c.pending[url] = true
		go c.fetchAsync(url)
	}
	c.mu.Unlock()
	return nil
}

func (c *Cache) fetchAsync(url string) {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()
	defer func() {
		c.mu.Lock()
		delete(c.pending, url)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), FetchTimeout)
	defer cancel()
	if _, err := c.Fetch(ctx, url); err != nil {
		c.logger.Warn("⚠️ Avatar fetch failed", zap.String("url", shorten(url)), zap.Error(err))
	}
}

// Fetch downloads, decodes and caches url, replacing any cached copy.
func (c *Cache) Fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("avatar fetch returned %d", resp.StatusCode)
	}
	if resp.ContentLength > c.maxBytes {
		return nil, ErrTooLarge
	}

	// Read one byte past the limit to detect oversized bodies without a length
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > c.maxBytes {
		return nil, ErrTooLarge
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode avatar (Content-Type %q): %w", resp.Header.Get("Content-Type"), err)
	}

	c.mu.Lock()
	c.remove(url)
	for len(c.images) >= c.maxSize && len(c.order) > 0 {
		c.evict()
	}
	c.images[url] = &cachedAvatar{image: img, fetchedAt: time.Now()}
	c.order = append(c.order, url)
	c.mu.Unlock()

	c.logger.Debug("🖼️ Avatar cached", zap.String("url", shorten(url)), zap.String("format", format))
	return img, nil
}

// evict removes the least recently used avatar. Called with c.mu held.
func (c *Cache) evict() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.images, oldest)
}

// remove drops url from the cache. Called with c.mu held.
func (c *Cache) remove(url string) {
	if _, ok := c.images[url]; !ok {
		return
	}
	delete(c.images, url)
	for i, u := range c.order {
		if u == url {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// touch marks url as most recently used. Called with c.mu held.
func (c *Cache) touch(url string) {
	for i, u := range c.order {
		if u == url {
			c.order = append(append(c.order[:i], c.order[i+1:]...), url)
			return
		}
	}
}

// Size returns the current cache size
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

func shorten(url string) string {
	if len(url) > 60 {
		return url[:60] + "..."
	}
	return url
}
