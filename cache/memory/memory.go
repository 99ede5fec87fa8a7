package memory

import (
	"context"
	"sync"
	"time"

	"github.com/adeilh/spacedash/cache"
)

// Options controls the in-process cache store.
type Options struct {
	// JanitorInterval is how often expired entries are swept. Negative disables the sweeper.
	JanitorInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.JanitorInterval == 0 {
		o.JanitorInterval = time.Minute
	}
	return o
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store implements cache.Store with a mutex-guarded map.
type Store struct {
	mu    sync.RWMutex
	items map[string]entry
	now   func() time.Time

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewStore builds a memory store and starts its janitor goroutine.
func NewStore(opts Options) *Store {
	cfg := opts.withDefaults()
	s := &Store{
		items: make(map[string]entry),
		now:   time.Now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	if cfg.JanitorInterval > 0 {
		go s.janitor(cfg.JanitorInterval)
	} else {
		close(s.done)
	}
	return s
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()
	if !ok || e.expired(s.now()) {
		return nil, cache.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	e := entry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return cache.ErrNotFound
	}
	delete(s.items, key)
	return nil
}

// PurgeExpired drops every expired entry and reports how many were removed.
func (s *Store) PurgeExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.items {
		if e.expired(now) {
			delete(s.items, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries currently held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close stops the janitor. It is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

func (s *Store) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.PurgeExpired()
		case <-s.stop:
			return
		}
	}
}

func ctxErr(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
