package providers

import (
	"context"
	"sync"

	"github.com/prisma-mc/prisma/internal/model"
	"github.com/prisma-mc/prisma/internal/prismaerr"
)

// Registry dispatches a core Item to the Resolver registered for its
// platform. Extensions bypass the registry entirely: they always go to the
// Modrinth resolver, per the provider named on the Item itself.
type Registry struct {
	mu       sync.RWMutex
	cores    map[model.Platform]Resolver
	modrinth Resolver
}

// NewRegistry wires up every core platform resolver, falling back to
// notImplementedResolver for platforms with no upstream API integration.
func NewRegistry(cfg Config) *Registry {
	r := &Registry{cores: make(map[model.Platform]Resolver)}

	r.Register(model.PlatformVanilla, NewVanillaResolver(cfg))
	r.Register(model.PlatformPaper, NewPaperResolver(cfg, "paper"))
	r.Register(model.PlatformFolia, NewPaperResolver(cfg, "folia"))
	r.Register(model.PlatformWaterfall, NewPaperResolver(cfg, "waterfall"))
	r.Register(model.PlatformVelocity, NewPaperResolver(cfg, "velocity"))
	r.Register(model.PlatformPurpur, NewPurpurResolver(cfg))

	for _, p := range []model.Platform{
		model.PlatformSpigot, model.PlatformBukkit, model.PlatformFabric,
		model.PlatformQuilt, model.PlatformForge, model.PlatformNeoForge,
	} {
		r.Register(p, notImplementedResolver{platform: p})
	}

	r.modrinth = NewModrinthResolver(cfg)

	return r
}

// Register sets (or replaces) the resolver for a core platform.
func (r *Registry) Register(platform model.Platform, resolver Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cores[platform] = resolver
}

// Get returns the resolver registered for a core platform.
func (r *Registry) Get(platform model.Platform) (Resolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.cores[platform]
	return res, ok
}

// ListPlatforms returns every platform with a registered resolver.
func (r *Registry) ListPlatforms() []model.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Platform, 0, len(r.cores))
	for p := range r.cores {
		out = append(out, p)
	}
	return out
}

// Resolve dispatches item to the right resolver by its Provider, following
// the rules in the core/extension dispatch table: core items go to the
// platform's registered resolver, extension items always go to Modrinth.
func (r *Registry) Resolve(ctx context.Context, item model.Item) (model.DownloadMeta, error) {
	if item.Provider.Kind == model.ProviderKindExtension {
		return r.modrinth.Resolve(ctx, item)
	}

	resolver, ok := r.Get(item.Provider.CorePlatform)
	if !ok {
		return model.DownloadMeta{}, &prismaerr.NotImplementedError{Platform: string(item.Provider.CorePlatform)}
	}

	return resolver.Resolve(ctx, item)
}
