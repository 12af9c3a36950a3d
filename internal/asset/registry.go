package asset

import (
	"context"
	"errors"
	"maps"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/l1jgo/assetd/internal/loader"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNoLoader is returned by NewRegistry when no loader is supplied.
	ErrNoLoader = errors.New("asset registry: loader is required")
	// ErrLoadEscalated is what a Future reports when its batch failed.
	ErrLoadEscalated = errors.New("asset load failed; error escalated to unhandled handler")
)

// Loader is the resource loader contract the registry depends on.
type Loader interface {
	RegisterHash(hash, url string)
	Request(ctx context.Context, reqs []loader.Request, opts *loader.Options) ([]loader.Resource, error)
}

// Registry indexes assets by resource id, name and file URL and loads them
// through a Loader. Assets are never removed.
type Registry struct {
	loader    Loader
	prefix    string
	log       *zap.Logger
	unhandled func(error)

	mu     sync.RWMutex
	byID   map[string]*Asset
	byName map[string][]string // normalised name -> ids in registration order
	byURL  map[string]string   // file url -> id, last registration wins
	order  []string
}

type RegistryOption func(*Registry)

func WithLogger(log *zap.Logger) RegistryOption {
	return func(r *Registry) { r.log = log }
}

// WithUnhandled installs the handler that receives failed load batches.
// It runs on its own goroutine.
func WithUnhandled(fn func(error)) RegistryOption {
	return func(r *Registry) { r.unhandled = fn }
}

// NewRegistry creates a registry. prefix qualifies relative file URLs.
func NewRegistry(ld Loader, prefix string, opts ...RegistryOption) (*Registry, error) {
	if ld == nil {
		return nil, ErrNoLoader
	}
	r := &Registry{
		loader: ld,
		prefix: prefix,
		log:    zap.NewNop(),
		byID:   make(map[string]*Asset),
		byName: make(map[string][]string),
		byURL:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.unhandled == nil {
		r.unhandled = func(err error) {
			r.log.Error("unhandled asset load failure", zap.Error(err))
		}
	}
	return r, nil
}

// Update seeds or refreshes the registry from a table of contents. New ids
// become assets whose file hash is registered with the loader; known ids
// have the entry's fields merged into the existing asset. Entries are
// applied in resource id order. A merge does not rewrite the name or URL
// indices, so an asset stays findable under its old name and URL.
func (r *Registry) Update(toc TOC) {
	for _, id := range slices.Sorted(maps.Keys(toc)) {
		entry := toc[id]
		if existing := r.GetAssetByResourceID(id); existing != nil {
			r.mu.Lock()
			existing.merge(entry)
			r.mu.Unlock()
			continue
		}
		a := New(entry.Name, entry.Type, entry.File, entry.Data)
		a.ResourceID = id
		a.Preload = entry.Preload
		r.AddAsset(a)
		if entry.File != nil {
			r.loader.RegisterHash(entry.File.Hash, r.qualify(entry.File.URL))
		}
	}
}

// AddAsset indexes a. Re-adding an id replaces the stored asset; the name
// and URL indices keep the replaced asset's entries.
func (r *Registry) AddAsset(a *Asset) {
	if a.ResourceID == "" {
		a.ResourceID = newResourceID()
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.byID[a.ResourceID]; !seen {
		r.order = append(r.order, a.ResourceID)
	}
	r.byID[a.ResourceID] = a

	key := nameKey(a.Name)
	ids := r.byName[key]
	if !slices.Contains(ids, a.ResourceID) {
		r.byName[key] = append(ids, a.ResourceID)
	}
	if a.File != nil {
		r.byURL[a.File.URL] = a.ResourceID
	}
	r.log.Debug("asset added",
		zap.String("id", a.ResourceID),
		zap.String("name", a.Name),
		zap.Stringer("type", a.Type),
	)
}

// FindAll returns every asset registered under name, in registration
// order. An empty typ matches all types.
func (r *Registry) FindAll(name string, typ Type) []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byName[nameKey(name)]
	out := make([]*Asset, 0, len(ids))
	for _, id := range ids {
		a := r.byID[id]
		if a == nil {
			continue
		}
		if typ == "" || a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

// Find returns the first FindAll match, or nil.
func (r *Registry) Find(name string, typ Type) *Asset {
	if all := r.FindAll(name, typ); len(all) > 0 {
		return all[0]
	}
	return nil
}

func (r *Registry) GetAssetByResourceID(id string) *Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byID[id]
}

func (r *Registry) GetAssetByURL(u string) *Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byURL[u]
	if !ok {
		return nil
	}
	return r.byID[id]
}

// Assets returns all assets in registration order.
func (r *Registry) Assets() []*Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Asset, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// FileURL returns the prefix-qualified URL of a's file, or "" if it has none.
func (r *Registry) FileURL(a *Asset) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fileURL(a)
}

// fileURL is FileURL for callers already holding r.mu.
func (r *Registry) fileURL(a *Asset) string {
	if a.File == nil {
		return ""
	}
	return r.qualify(a.File.URL)
}

func (r *Registry) qualify(u string) string {
	if r.prefix == "" || u == "" || strings.HasPrefix(u, "/") {
		return u
	}
	if parsed, err := url.Parse(u); err == nil && parsed.Scheme != "" {
		return u
	}
	return strings.TrimSuffix(r.prefix, "/") + "/" + u
}

type loadConfig struct {
	results []loader.Resource
	options *loader.Options
}

type LoadOption func(*loadConfig)

// WithResults supplies pre-existing resources, parallel to the assets
// being loaded. A *loader.Texture entry becomes the target of that
// asset's texture request.
func WithResults(results ...loader.Resource) LoadOption {
	return func(c *loadConfig) { c.results = results }
}

func WithRequestOptions(opts *loader.Options) LoadOption {
	return func(c *loadConfig) { c.options = opts }
}

// LoadAsset is Load for a single asset.
func (r *Registry) LoadAsset(ctx context.Context, a *Asset, opts ...LoadOption) *Future {
	return r.Load(ctx, []*Asset{a}, opts...)
}

// Load registers any unknown assets, then loads all of them as one batch.
// When the batch succeeds each asset that issued a request receives its
// resource and the rest are set to nil. Nil entries are skipped. A failed
// batch is handed to the unhandled-error handler and never surfaces as a
// Future value. Once issued a batch cannot be cancelled through ctx.
func (r *Registry) Load(ctx context.Context, assets []*Asset, opts ...LoadOption) *Future {
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	for _, a := range assets {
		if a != nil && r.GetAssetByResourceID(a.ResourceID) == nil {
			r.AddAsset(a)
		}
	}

	issued := make([]bool, len(assets))
	batch := make([]loader.Request, 0, len(assets))
	r.mu.RLock()
	for i, a := range assets {
		if a == nil {
			continue
		}
		if req := r.request(a, cfg.target(i)); req != nil {
			issued[i] = true
			batch = append(batch, req)
		}
	}
	r.mu.RUnlock()

	f := newFuture()
	ctx = context.WithoutCancel(ctx)
	go func() {
		resources, err := r.loader.Request(ctx, batch, cfg.options)
		if err != nil {
			go r.unhandled(err)
			f.fail(ErrLoadEscalated)
			return
		}
		r.mu.Lock()
		cursor := 0
		for i, a := range assets {
			if a == nil {
				continue
			}
			if !issued[i] {
				a.Resource = nil
				continue
			}
			var res loader.Resource
			if cursor < len(resources) {
				res = resources[cursor]
			}
			a.Resource = res
			cursor++
		}
		r.mu.Unlock()
		r.log.Debug("assets loaded", zap.Int("assets", len(assets)), zap.Int("requests", len(batch)))
		f.resolve(resources)
	}()
	return f
}

func (c *loadConfig) target(i int) *loader.Texture {
	if i >= len(c.results) {
		return nil
	}
	tex, _ := c.results[i].(*loader.Texture)
	return tex
}

// request builds a's load request. Callers hold r.mu.
func (r *Registry) request(a *Asset, target *loader.Texture) loader.Request {
	if a.File == nil {
		return nil
	}
	u := r.fileURL(a)
	switch a.Type {
	case TypeModel:
		return loader.NewModelRequest(u, a.mapping())
	case TypeTexture:
		return loader.NewTextureRequest(u, target)
	default:
		return loader.NewFileRequest(u)
	}
}

func nameKey(name string) string {
	return norm.NFC.String(name)
}
