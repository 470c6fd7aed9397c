// Package providers resolves a declarative model.Item into a
// model.DownloadMeta by talking to the upstream API its provider names.
package providers

import (
	"context"
	"net/http"
	"time"

	"github.com/prisma-mc/prisma/internal/model"
	"github.com/prisma-mc/prisma/internal/prismaerr"
)

// Resolver resolves a single Item against one upstream API.
type Resolver interface {
	Resolve(ctx context.Context, item model.Item) (model.DownloadMeta, error)
}

// Config is shared configuration for every resolver's HTTP client.
type Config struct {
	UserAgent string
	Timeout   int
}

func DefaultConfig() Config {
	return Config{
		UserAgent: "Prisma/0.1.0",
		Timeout:   30,
	}
}

func (c Config) httpClient() *http.Client {
	return &http.Client{Timeout: time.Duration(c.Timeout) * time.Second}
}

// notImplementedResolver satisfies Resolver for platforms the data model
// recognizes but no upstream API is wired for yet.
type notImplementedResolver struct {
	platform model.Platform
}

func (r notImplementedResolver) Resolve(context.Context, model.Item) (model.DownloadMeta, error) {
	return model.DownloadMeta{}, &prismaerr.NotImplementedError{Platform: string(r.platform)}
}
