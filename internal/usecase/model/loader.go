package model

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/flightq/internal/domain"
	"github.com/kailas-cloud/flightq/internal/metrics"
)

const (
	// DefaultMaxCached bounds the adapters kept loaded on the server.
	DefaultMaxCached = 8
	// DefaultLoadTimeout bounds a single adapter load.
	DefaultLoadTimeout = 2 * time.Minute

	unloadTimeout = 30 * time.Second
)

// Config describes the adapter registry.
type Config struct {
	// Adapters maps names to adapter directories. An empty path serves the base model.
	Adapters map[string]string
	// Root resolves relative adapter paths.
	Root        string
	MaxCached   int
	LoadTimeout time.Duration
}

// Loader hands out adapter handles, loading each adapter at most once per cache residency.
// Handles from Get must be returned with Release.
type Loader struct {
	backend     Backend
	registry    map[string]string
	slots       map[string]*slot
	cache       *lru.Cache[string, Handle]
	group       singleflight.Group
	unloads     sync.WaitGroup
	loadTimeout time.Duration
	logger      *zap.Logger
}

// slot serializes load and unload of one adapter and counts its in-flight users.
type slot struct {
	mu    sync.Mutex
	idle  *sync.Cond
	users int
}

func newSlot() *slot {
	s := &slot{}
	s.idle = sync.NewCond(&s.mu)
	return s
}

// NewLoader checks that the backend serves the base model and prepares the adapter cache.
func NewLoader(ctx context.Context, backend Backend, cfg Config, logger *zap.Logger) (*Loader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCached <= 0 {
		cfg.MaxCached = DefaultMaxCached
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}

	if err := backend.CheckBaseModel(ctx); err != nil {
		return nil, fmt.Errorf("check base model %q: %w", backend.BaseModel(), err)
	}

	registry := resolvePaths(cfg.Adapters, cfg.Root)
	slots := make(map[string]*slot, len(registry))
	for name, path := range registry {
		if path != "" {
			slots[name] = newSlot()
		}
	}

	l := &Loader{
		backend:     backend,
		registry:    registry,
		slots:       slots,
		loadTimeout: cfg.LoadTimeout,
		logger:      logger,
	}

	cache, err := lru.NewWithEvict(cfg.MaxCached, l.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create adapter cache: %w", err)
	}
	l.cache = cache

	logger.Info("Model loader ready",
		zap.String("base_model", backend.BaseModel()),
		zap.Strings("adapters", l.Adapters()),
		zap.Int("max_cached", cfg.MaxCached),
	)
	return l, nil
}

func resolvePaths(adapters map[string]string, root string) map[string]string {
	out := make(map[string]string, len(adapters))
	for name, path := range adapters {
		if path != "" && !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		out[name] = path
	}
	return out
}

// Adapters returns the registered adapter names, sorted.
func (l *Loader) Adapters() []string {
	names := make([]string, 0, len(l.registry))
	for name := range l.registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Loaded returns the number of adapters currently held in the cache.
func (l *Loader) Loaded() int {
	return l.cache.Len()
}

// Get returns a handle for the named adapter, loading it on first use.
// Concurrent first requests for one name share a single load. The adapter is not
// unloaded from the server until every handle returned for it is released.
func (l *Loader) Get(ctx context.Context, name string) (Handle, error) {
	path, ok := l.registry[name]
	if !ok {
		return Handle{}, fmt.Errorf("%q: %w", name, domain.ErrAdapterNotFound)
	}
	if path == "" {
		return Handle{Adapter: name, Model: l.backend.BaseModel()}, nil
	}

	// Retry when the adapter is evicted between its load and our claim on it.
	for {
		if h, ok := l.acquire(name); ok {
			return h, nil
		}

		// The load outlives an impatient caller so the next request finds it done.
		ch := l.group.DoChan(name, func() (any, error) {
			loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.loadTimeout)
			defer cancel()
			return l.load(loadCtx, name, path)
		})

		select {
		case <-ctx.Done():
			return Handle{}, fmt.Errorf("wait for adapter %q: %w", name, ctx.Err())
		case res := <-ch:
			if res.Err != nil {
				return Handle{}, res.Err
			}
		}
	}
}

// Release returns a handle obtained from Get.
func (l *Loader) Release(h Handle) {
	s, ok := l.slots[h.Adapter]
	if !ok {
		return
	}
	s.mu.Lock()
	if s.users > 0 {
		s.users--
	}
	if s.users == 0 {
		s.idle.Broadcast()
	}
	s.mu.Unlock()
}

// acquire claims a cached adapter for one request.
func (l *Loader) acquire(name string) (Handle, bool) {
	s := l.slots[name]
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := l.cache.Get(name)
	if !ok {
		return Handle{}, false
	}
	s.users++
	return h, true
}

func (l *Loader) load(ctx context.Context, name, path string) (Handle, error) {
	s := l.slots[name]
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := l.cache.Peek(name); ok {
		return h, nil
	}

	start := time.Now()
	if err := l.backend.LoadAdapter(ctx, name, path); err != nil {
		metrics.AdapterLoadsTotal.WithLabelValues(name, "error").Inc()
		l.logger.Error("Adapter load failed",
			zap.String("adapter", name),
			zap.String("path", path),
			zap.Error(err),
		)
		return Handle{}, fmt.Errorf("load adapter %q: %w", name, err)
	}
	metrics.AdapterLoadsTotal.WithLabelValues(name, "success").Inc()

	h := Handle{Adapter: name, Model: name}
	// Evicting another adapter here only schedules its unload, so no second slot is locked.
	l.cache.Add(name, h)

	l.logger.Info("Adapter loaded",
		zap.String("adapter", name),
		zap.String("path", path),
		zap.Duration("duration", time.Since(start)),
	)
	return h, nil
}

// onEvict runs after an adapter falls out of the cache and schedules its unload.
func (l *Loader) onEvict(name string, _ Handle) {
	metrics.AdapterEvictionsTotal.Inc()
	l.unloads.Add(1)
	go func() {
		defer l.unloads.Done()
		l.unload(name)
	}()
}

// unload drops the adapter from the server once nobody uses it,
// unless it was loaded again in the meantime.
func (l *Loader) unload(name string) {
	s := l.slots[name]
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.users > 0 {
		s.idle.Wait()
	}
	if l.cache.Contains(name) {
		l.logger.Debug("Adapter reloaded before unload", zap.String("adapter", name))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), unloadTimeout)
	defer cancel()
	if err := l.backend.UnloadAdapter(ctx, name); err != nil {
		l.logger.Warn("Adapter unload failed", zap.String("adapter", name), zap.Error(err))
		return
	}
	l.logger.Info("Adapter evicted", zap.String("adapter", name))
}

// Purge unloads every cached adapter and waits for pending unloads.
// Outstanding handles must be released first.
func (l *Loader) Purge() {
	l.cache.Purge()
	l.unloads.Wait()
}
