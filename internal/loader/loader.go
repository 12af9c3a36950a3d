package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Loader fetches and decodes batches of resources. Results keep request
// order; a single failed request fails the whole batch.
type Loader struct {
	fetcher     Fetcher
	cache       *Cache
	log         *zap.Logger
	concurrency int
	timeout     time.Duration

	mu     sync.RWMutex
	hashes map[string]string // url -> content hash
}

type Option func(*Loader)

func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithCache enables the content cache for URLs with a registered hash.
func WithCache(c *Cache) Option {
	return func(l *Loader) { l.cache = c }
}

func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithTimeout bounds each batch; zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

func New(fetcher Fetcher, opts ...Option) (*Loader, error) {
	if fetcher == nil {
		return nil, errors.New("loader: fetcher is required")
	}
	l := &Loader{
		fetcher:     fetcher,
		log:         zap.NewNop(),
		concurrency: defaultConcurrency,
		hashes:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// RegisterHash associates a content hash with a URL. Later fetches of the
// URL are verified against it and cached under it.
func (l *Loader) RegisterHash(hash, url string) {
	if hash == "" || url == "" {
		return
	}
	l.mu.Lock()
	l.hashes[url] = hash
	l.mu.Unlock()
}

// HashFor returns the hash registered for url.
func (l *Loader) HashFor(url string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	h, ok := l.hashes[url]
	return h, ok
}

// Request loads every request in reqs and returns the resources in the same order.
func (l *Loader) Request(ctx context.Context, reqs []Request, opts *Options) ([]Resource, error) {
	timeout := l.timeout
	noCache := false
	if opts != nil {
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
		noCache = opts.NoCache
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	results := make([]Resource, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := l.load(gctx, req, noCache)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	l.log.Debug("batch loaded", zap.Int("requests", len(reqs)))
	return results, nil
}

func (l *Loader) load(ctx context.Context, req Request, noCache bool) (Resource, error) {
	if req == nil {
		return nil, errors.New("loader: nil request")
	}
	data, err := l.fetch(ctx, req.Identifier(), noCache)
	if err != nil {
		return nil, err
	}
	switch r := req.(type) {
	case *ModelRequest:
		m, err := decodeModel(r, data)
		if err != nil {
			return nil, err
		}
		return m, nil
	case *TextureRequest:
		t, err := decodeTexture(r, data)
		if err != nil {
			return nil, err
		}
		return t, nil
	case *FileRequest:
		return decodeFile(r, data), nil
	default:
		return nil, fmt.Errorf("loader: unknown request type %T", req)
	}
}

func (l *Loader) fetch(ctx context.Context, url string, noCache bool) ([]byte, error) {
	hash, hashed := l.HashFor(url)
	useCache := hashed && l.cache != nil && !noCache
	if useCache {
		data, hit, err := l.cache.Get(hash)
		if err != nil {
			l.log.Warn("cache read failed", zap.String("url", url), zap.Error(err))
		} else if hit {
			return data, nil
		}
	}

	data, err := l.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if hashed {
		if err := verifyHash(hash, data); err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
	}
	if useCache {
		if err := l.cache.Put(hash, data); err != nil {
			l.log.Warn("cache write failed", zap.String("url", url), zap.Error(err))
		}
	}
	return data, nil
}
