// Package fetch implements the cached GET primitive every vendor client is
// built on: one HTTP transport, one cache.Store, and an envelope-shaped result.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/adeilh/spacedash/cache"
	"github.com/adeilh/spacedash/httpx"
	"github.com/adeilh/spacedash/logger"
	"github.com/adeilh/spacedash/metrics"
)

// Request describes one cacheable GET.
type Request struct {
	Path    string
	Query   map[string]string
	Headers map[string]string
	// Key addresses the cached body. Empty disables caching for the call.
	Key string
	// TTL <= 0 disables caching for the call.
	TTL time.Duration
}

// Result is the raw upstream body plus caching metadata.
type Result struct {
	Body      []byte
	FetchedAt time.Time
	Cached    bool
}

// Getter is the capability vendor clients depend on.
type Getter interface {
	CachedGet(ctx context.Context, req Request) (Result, error)
}

type storedEntry struct {
	FetchedAt time.Time `json:"fetched_at"`
	Body      []byte    `json:"body"`
}

// Fetcher is the Getter backed by an httpx.Client and an optional cache.Store.
type Fetcher struct {
	source  string
	client  *httpx.Client
	store   cache.Store
	log     *logger.Logger
	metrics *metrics.FetchMetrics
	group   singleflight.Group
	timeout time.Duration
	now     func() time.Time
}

// DefaultFlightTimeout bounds a shared upstream call once it is detached from
// the caller that started it.
const DefaultFlightTimeout = 30 * time.Second

type Option func(*Fetcher)

// WithStore enables caching through the given store.
func WithStore(store cache.Store) Option {
	return func(f *Fetcher) { f.store = store }
}

func WithLogger(log *logger.Logger) Option {
	return func(f *Fetcher) {
		if log != nil {
			f.log = log
		}
	}
}

func WithMetrics(m *metrics.FetchMetrics) Option {
	return func(f *Fetcher) { f.metrics = m }
}

// WithFlightTimeout caps how long a shared upstream call may run.
func WithFlightTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// NewFetcher builds a Fetcher for one upstream. source labels logs, metrics and envelope metadata.
func NewFetcher(source string, client *httpx.Client, opts ...Option) *Fetcher {
	f := &Fetcher{
		source:  source,
		client:  client,
		log:     logger.Nop(),
		timeout: DefaultFlightTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// CachedGet serves req from cache when a live entry exists, otherwise calls
// the upstream and stores a successful body for req.TTL. Concurrent misses on
// the same key share one upstream call. Cache failures only degrade caching.
func (f *Fetcher) CachedGet(ctx context.Context, req Request) (Result, error) {
	cacheable := f.store != nil && req.Key != "" && req.TTL > 0
	if cacheable {
		if res, ok := f.lookup(ctx, req.Key); ok {
			f.metrics.IncCacheHit(f.source)
			return res, nil
		}
		f.metrics.IncCacheMiss(f.source)
	}

	// The shared call outlives any single caller; each caller waits on its own ctx.
	ch := f.group.DoChan(flightKey(req), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.timeout)
		defer cancel()
		res, err := f.fetch(flightCtx, req)
		if err != nil {
			return Result{}, err
		}
		if cacheable {
			f.save(flightCtx, req, res)
		}
		return res, nil
	})
	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%s %s: %w", f.source, req.Path, ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		return r.Val.(Result), nil
	}
}

func (f *Fetcher) lookup(ctx context.Context, key string) (Result, bool) {
	raw, err := f.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			f.log.Warn(f.log.WithFields(ctx, map[string]any{"source": f.source, "key": key, "error": err.Error()}), "cache.get_failed")
		}
		return Result{}, false
	}
	var entry storedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		f.log.Warn(f.log.WithFields(ctx, map[string]any{"source": f.source, "key": key, "error": err.Error()}), "cache.entry_corrupt")
		return Result{}, false
	}
	return Result{Body: entry.Body, FetchedAt: entry.FetchedAt, Cached: true}, true
}

func (f *Fetcher) save(ctx context.Context, req Request, res Result) {
	raw, err := json.Marshal(storedEntry{FetchedAt: res.FetchedAt, Body: res.Body})
	if err == nil {
		err = f.store.Set(ctx, req.Key, raw, req.TTL)
	}
	if err != nil {
		f.log.Warn(f.log.WithFields(ctx, map[string]any{"source": f.source, "key": req.Key, "error": err.Error()}), "cache.set_failed")
	}
}

func (f *Fetcher) fetch(ctx context.Context, req Request) (Result, error) {
	start := f.now()
	resp, err := f.client.Get(ctx, req.Path, nil, httpx.WithQuery(req.Query), httpx.WithRequestHeaders(req.Headers))
	f.metrics.ObserveUpstream(f.source, f.now().Sub(start), err)
	if err != nil {
		err = redact(err)
		f.log.Debug(f.log.WithFields(ctx, map[string]any{"source": f.source, "path": req.Path, "error": err.Error()}), "upstream.failed")
		return Result{}, fmt.Errorf("%s %s: %w", f.source, req.Path, err)
	}
	body := append([]byte(nil), resp.Body()...)
	return Result{Body: body, FetchedAt: f.now().UTC()}, nil
}

func flightKey(req Request) string {
	if req.Key != "" {
		return req.Key
	}
	q := url.Values{}
	for k, v := range req.Query {
		q.Set(k, v)
	}
	return req.Path + "?" + q.Encode()
}

// redact strips the request URL, and with it any credential carried in the
// query string, from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	return fmt.Errorf("%s: %w", strings.ToLower(urlErr.Op), urlErr.Err)
}
