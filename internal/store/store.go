// Package store manages the on-disk, content-addressed collection of
// installed cores and extensions: resolving, downloading, verifying and
// linking artifacts, and persisting the manifest that records them.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/prisma-mc/prisma/internal/hashutil"
	"github.com/prisma-mc/prisma/internal/model"
	"github.com/prisma-mc/prisma/internal/prismaerr"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Resolver resolves a declarative Item into the concrete download
// location and hash to fetch it from. internal/providers.Registry
// satisfies this.
type Resolver interface {
	Resolve(ctx context.Context, item model.Item) (model.DownloadMeta, error)
}

// Store is the ordered collection of items that have been fetched into
// the local content-addressed directory layout.
type Store struct {
	Items []model.StoreItem `json:"items"`

	layout   Layout
	resolver Resolver
	client   *http.Client
	log      *logrus.Entry
}

// New creates an empty Store bound to the given layout and resolver.
func New(layout Layout, resolver Resolver) *Store {
	return &Store{
		layout:   layout,
		resolver: resolver,
		client:   &http.Client{Timeout: 5 * time.Minute},
		log:      logrus.WithField("component", "store"),
	}
}

// EnsureDirs creates every directory in the store's layout.
func (s *Store) EnsureDirs() error {
	for _, dir := range s.layout.Dirs() {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &prismaerr.IoError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	return nil
}

// Load reads a manifest from path and replaces the in-memory contents of
// the Store with it.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			s.Items = nil
			return nil
		}
		return &prismaerr.IoError{Op: "read", Path: path, Err: err}
	}

	var loaded Store
	if err := json.Unmarshal(data, &loaded); err != nil {
		return &prismaerr.IntegrityError{Path: path, Err: fmt.Errorf("parsing manifest: %w", err)}
	}

	s.Items = loaded.Items
	return nil
}

// Save persists the manifest to path, pretty-printed so it stays
// diffable.
func (s *Store) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &prismaerr.IoError{Op: "write", Path: path, Err: err}
	}

	return nil
}

// location returns the destination directory and temp-file name prefix
// for an item, mirroring the original provider/extension-type switch.
func (s *Store) location(item model.Item) (string, string) {
	if item.Provider.Kind == model.ProviderKindCore {
		return s.layout.CoresDir, fmt.Sprintf("%s-%s-", item.Provider, item.Provider.CorePlatform)
	}

	dir := s.layout.PluginsDir
	if item.Provider.Extension.Kind == model.ExtensionKindMod {
		dir = s.layout.ModsDir
	}
	return dir, fmt.Sprintf("%s-%s-", item.Provider, item.Provider.Extension.Kind)
}

// runtimeLinkPath is the symlink path exposed to the running server for
// an item: {runtimeDir}/cores|plugins|mods/{fileName}, mirroring how
// location selects the destination directory by provider kind.
func (s *Store) runtimeLinkPath(item model.Item, fileName string) string {
	if item.Provider.Kind == model.ProviderKindCore {
		return filepath.Join(s.layout.RuntimeCoresDir, fileName)
	}

	dir := s.layout.RuntimePluginsDir
	if item.Provider.Extension.Kind == model.ExtensionKindMod {
		dir = s.layout.RuntimeModsDir
	}
	return filepath.Join(dir, fileName)
}

// downloadAndVerify fetches url's body, verifies it against expectedHash,
// and returns the body alongside the file name taken from the URL's final
// path segment.
func (s *Store) downloadAndVerify(ctx context.Context, url string, expectedHash model.HashType) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status code %d fetching %s", resp.StatusCode, url)
	}

	segments := strings.Split(path.Clean(resp.Request.URL.Path), "/")
	fileName := segments[len(segments)-1]
	if fileName == "" {
		return nil, "", fmt.Errorf("invalid path in URL: %s", url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	if err := hashutil.Compare(expectedHash, body); err != nil {
		return nil, "", &prismaerr.IntegrityError{Path: url, Err: err}
	}

	return body, fileName, nil
}

// Push resolves item, downloads its artifact into a scratch directory,
// verifies its hash, moves it into the store's final location and
// symlinks it into the runtime directory, then appends a StoreItem
// recording the result.
func (s *Store) Push(ctx context.Context, item model.Item) error {
	meta, err := s.resolver.Resolve(ctx, item)
	if err != nil {
		return err
	}

	destDir, prefix := s.location(item)

	body, fileName, err := s.downloadAndVerify(ctx, meta.DownloadLink, meta.Hash)
	if err != nil {
		return err
	}

	scratchDir, err := os.MkdirTemp(s.layout.TempDir, prefix)
	if err != nil {
		return &prismaerr.IoError{Op: "mkdtemp", Path: s.layout.TempDir, Err: err}
	}

	scratchPath := filepath.Join(scratchDir, fileName)
	f, err := os.OpenFile(scratchPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return &prismaerr.IoError{Op: "create", Path: scratchPath, Err: err}
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return &prismaerr.IoError{Op: "write", Path: scratchPath, Err: err}
	}
	if err := f.Close(); err != nil {
		return &prismaerr.IoError{Op: "close", Path: scratchPath, Err: err}
	}

	// The ".jar" suffix is appended unconditionally even when fileName
	// already ends in ".jar", matching the original store's own
	// end_path formatting.
	endPath := filepath.Join(destDir, fileName+".jar")
	if err := os.Rename(scratchPath, endPath); err != nil {
		return &prismaerr.IoError{Op: "rename", Path: endPath, Err: err}
	}

	linkPath := s.runtimeLinkPath(item, fileName+".jar")
	_ = os.Remove(linkPath)
	if err := os.Symlink(endPath, linkPath); err != nil {
		return &prismaerr.IoError{Op: "symlink", Path: linkPath, Err: err}
	}

	resolvedVersion := model.Version{
		GameVersion:  &meta.GameVersion,
		VersionBuild: nonEmptyPtr(meta.VersionBuild),
		Channel:      item.Version.Channel,
	}

	s.Items = append(s.Items, model.StoreItem{
		Item:       item.WithVersion(resolvedVersion),
		Hash:       meta.Hash,
		Path:       endPath,
		SymbolLink: linkPath,
		URL:        meta.DownloadLink,
	})

	s.log.WithFields(logrus.Fields{"provider": item.Provider.String(), "path": endPath}).Info("pushed item to store")

	return nil
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FillNew installs every item not frozen (or force-updated despite being
// frozen) into the store. Installation happens against a private copy of
// the current store guarded by a mutex, so pushes run one at a time; on
// any failure the in-memory store and manifest on disk are left
// completely untouched, but items that were already pushed are not rolled
// back: their files stay in the store directories and their runtime
// symlinks stay in place. In-flight pushes are allowed to finish rather
// than being cancelled the moment one fails.
func (s *Store) FillNew(ctx context.Context, items []model.Item) error {
	backup := &Store{
		Items:    append([]model.StoreItem(nil), s.Items...),
		layout:   s.layout,
		resolver: s.resolver,
		client:   s.client,
		log:      s.log,
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once

	for _, item := range items {
		if item.Options.Freeze && !item.Options.ForceUpdate {
			continue
		}

		item := item
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			if err := backup.Push(ctx, item); err != nil {
				errOnce.Do(func() { firstErr = err })
			}
		}()
	}

	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	if err := backup.Save(s.layout.StorePath); err != nil {
		return err
	}

	s.Items = backup.Items
	return nil
}

// Validate checks every recorded item: that its file exists, that its
// hash still matches, and that its runtime symlink resolves to it. Items
// are checked concurrently since each is an independent filesystem read;
// unlike FillNew there is nothing to roll back, so early cancellation
// doesn't risk leaving a partial install behind.
func (s *Store) Validate() []error {
	var mu sync.Mutex
	var errs []error
	var eg errgroup.Group

	for _, si := range s.Items {
		si := si
		eg.Go(func() error {
			if err := s.validateOne(si); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = eg.Wait()
	return errs
}

func (s *Store) validateOne(si model.StoreItem) error {
	data, err := os.ReadFile(si.Path)
	if err != nil {
		return &prismaerr.IntegrityError{Path: si.Path, Err: err}
	}

	if err := hashutil.Compare(si.Hash, data); err != nil {
		return &prismaerr.IntegrityError{Path: si.Path, Err: err}
	}

	target, err := os.Readlink(si.SymbolLink)
	if err != nil || target != si.Path {
		return &prismaerr.IntegrityError{Path: si.SymbolLink, Err: fmt.Errorf("symlink missing or stale")}
	}

	return nil
}

// Repair re-downloads every item that fails Validate, using the URL and
// hash already recorded for it rather than re-resolving against the
// provider. It never fails for a single item: a repair that can't be
// completed is accumulated into the returned slice, and Repair moves on
// to the rest of the items. An empty result means every failing item was
// restored; a non-empty one lists the ones that still need attention.
func (s *Store) Repair(ctx context.Context) []error {
	var errs []error

	for i, si := range s.Items {
		if err := s.validateOne(si); err == nil {
			continue
		}

		if err := s.repairOne(ctx, i, si); err != nil {
			errs = append(errs, fmt.Errorf("repairing %s: %w", si.Path, err))
		}
	}

	return errs
}

func (s *Store) repairOne(ctx context.Context, i int, si model.StoreItem) error {
	body, fileName, err := s.downloadAndVerify(ctx, si.URL, si.Hash)
	if err != nil {
		return err
	}

	destDir, _ := s.location(si.Item)
	endPath := filepath.Join(destDir, fileName+".jar")
	if err := os.WriteFile(endPath, body, 0o644); err != nil {
		return &prismaerr.IoError{Op: "write", Path: endPath, Err: err}
	}

	_ = os.Remove(si.SymbolLink)
	if err := os.Symlink(endPath, si.SymbolLink); err != nil {
		return &prismaerr.IoError{Op: "symlink", Path: si.SymbolLink, Err: err}
	}

	s.Items[i].Path = endPath
	s.log.WithField("path", endPath).Info("repaired store item")
	return nil
}
