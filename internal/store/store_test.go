package store

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prisma-mc/prisma/internal/hashutil"
	"github.com/prisma-mc/prisma/internal/model"
	"github.com/stretchr/testify/require"
)

type stubResolver struct {
	meta model.DownloadMeta
	err  error
}

func (s stubResolver) Resolve(context.Context, model.Item) (model.DownloadMeta, error) {
	return s.meta, s.err
}

func newTestLayout(t *testing.T) Layout {
	t.Helper()
	root := t.TempDir()
	layout := Layout{
		Dir:               root,
		TempDir:           filepath.Join(root, ".temp"),
		CoresDir:          filepath.Join(root, "cors"),
		PluginsDir:        filepath.Join(root, "extensions", "plugins"),
		ModsDir:           filepath.Join(root, "extensions", "mods"),
		StorePath:         filepath.Join(root, "store.ron"),
		RuntimeDir:        filepath.Join(root, "run"),
		RuntimeCoresDir:   filepath.Join(root, "run", "cores"),
		RuntimePluginsDir: filepath.Join(root, "run", "plugins"),
		RuntimeModsDir:    filepath.Join(root, "run", "mods"),
	}
	for _, dir := range layout.Dirs() {
		require.NoError(t, os.MkdirAll(dir, 0o755))
	}
	return layout
}

func TestPushDownloadsVerifiesAndLinks(t *testing.T) {
	body := []byte("fake-jar-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	layout := newTestLayout(t)
	resolver := stubResolver{meta: model.DownloadMeta{
		DownloadLink: srv.URL + "/server.jar",
		Hash:         model.HashType{Kind: model.HashKindSHA256, Hex: hashutil.ComputeSHA256(body)},
		GameVersion:  "1.20.1",
	}}

	st := New(layout, resolver)
	item := model.Item{Provider: model.CoreProvider(model.PlatformVanilla)}

	require.NoError(t, st.Push(context.Background(), item))
	require.Len(t, st.Items, 1)

	si := st.Items[0]
	require.FileExists(t, si.Path)
	require.Equal(t, filepath.Base(si.Path), "server.jar.jar")
	require.Equal(t, layout.RuntimeCoresDir, filepath.Dir(si.SymbolLink), "core symlinks live under runtime/cores")

	target, err := os.Readlink(si.SymbolLink)
	require.NoError(t, err)
	require.Equal(t, si.Path, target)
}

func TestPushHashMismatchLeavesStoreUntouched(t *testing.T) {
	body := []byte("fake-jar-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	layout := newTestLayout(t)
	resolver := stubResolver{meta: model.DownloadMeta{
		DownloadLink: srv.URL + "/server.jar",
		Hash:         model.HashType{Kind: model.HashKindSHA256, Hex: "not-the-real-hash"},
	}}

	st := New(layout, resolver)
	item := model.Item{Provider: model.CoreProvider(model.PlatformVanilla)}

	err := st.Push(context.Background(), item)
	require.Error(t, err)
	require.Empty(t, st.Items)
}

func TestFillNewSkipsFrozenItems(t *testing.T) {
	body := []byte("fake-jar-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	layout := newTestLayout(t)
	resolver := stubResolver{meta: model.DownloadMeta{
		DownloadLink: srv.URL + "/server.jar",
		Hash:         model.HashType{Kind: model.HashKindSHA256, Hex: hashutil.ComputeSHA256(body)},
		GameVersion:  "1.20.1",
	}}

	st := New(layout, resolver)
	items := []model.Item{
		{Provider: model.CoreProvider(model.PlatformVanilla)},
		{Provider: model.CoreProvider(model.PlatformPurpur), Options: model.Options{Freeze: true}},
	}

	require.NoError(t, st.FillNew(context.Background(), items))
	require.Len(t, st.Items, 1)
	require.Equal(t, model.PlatformVanilla, st.Items[0].Item.Provider.CorePlatform)
}

func TestFillNewFailurePreservesExistingStore(t *testing.T) {
	layout := newTestLayout(t)
	resolver := stubResolver{err: fmt.Errorf("upstream unreachable")}

	st := New(layout, resolver)
	st.Items = []model.StoreItem{{Item: model.Item{Provider: model.CoreProvider(model.PlatformVanilla)}}}

	items := []model.Item{{Provider: model.CoreProvider(model.PlatformPurpur)}}
	err := st.FillNew(context.Background(), items)
	require.Error(t, err)
	require.Len(t, st.Items, 1, "existing manifest must be untouched on failure")

	_, statErr := os.Stat(layout.StorePath)
	require.True(t, os.IsNotExist(statErr), "manifest must not be saved on failure")
}

func TestValidateDetectsHashMismatchOnDisk(t *testing.T) {
	layout := newTestLayout(t)
	jarPath := filepath.Join(layout.CoresDir, "server.jar")
	require.NoError(t, os.WriteFile(jarPath, []byte("original"), 0o644))

	linkPath := filepath.Join(layout.RuntimeCoresDir, "server.jar")
	require.NoError(t, os.Symlink(jarPath, linkPath))

	st := New(layout, stubResolver{})
	st.Items = []model.StoreItem{{
		Item:       model.Item{Provider: model.CoreProvider(model.PlatformVanilla)},
		Hash:       model.HashType{Kind: model.HashKindSHA256, Hex: hashutil.ComputeSHA256([]byte("original"))},
		Path:       jarPath,
		SymbolLink: linkPath,
	}}

	require.Empty(t, st.Validate())

	require.NoError(t, os.WriteFile(jarPath, []byte("tampered"), 0o644))
	errs := st.Validate()
	require.Len(t, errs, 1)
}

func TestRepairRestoresDeletedArtifact(t *testing.T) {
	original := []byte("original-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(original)
	}))
	defer srv.Close()

	layout := newTestLayout(t)
	jarPath := filepath.Join(layout.CoresDir, "server.jar.jar")
	require.NoError(t, os.WriteFile(jarPath, original, 0o644))

	linkPath := filepath.Join(layout.RuntimeCoresDir, "server.jar.jar")
	require.NoError(t, os.Symlink(jarPath, linkPath))

	st := New(layout, stubResolver{})
	st.Items = []model.StoreItem{{
		Item:       model.Item{Provider: model.CoreProvider(model.PlatformVanilla)},
		Hash:       model.HashType{Kind: model.HashKindSHA256, Hex: hashutil.ComputeSHA256(original)},
		Path:       jarPath,
		SymbolLink: linkPath,
		URL:        srv.URL + "/server.jar",
	}}

	require.Empty(t, st.Validate())

	require.NoError(t, os.Remove(jarPath))
	errs := st.Validate()
	require.Len(t, errs, 1)

	repairErrs := st.Repair(context.Background())
	require.Empty(t, repairErrs)
	require.Empty(t, st.Validate())
	require.FileExists(t, st.Items[0].Path)
}

func TestRepairAccumulatesFailuresAndContinues(t *testing.T) {
	layout := newTestLayout(t)

	okBody := []byte("still-good")
	okPath := filepath.Join(layout.CoresDir, "purpur.jar.jar")
	require.NoError(t, os.WriteFile(okPath, okBody, 0o644))
	okLink := filepath.Join(layout.RuntimeCoresDir, "purpur.jar.jar")
	require.NoError(t, os.Symlink(okPath, okLink))

	brokenPath := filepath.Join(layout.CoresDir, "vanilla.jar.jar")
	require.NoError(t, os.WriteFile(brokenPath, []byte("stale"), 0o644))
	brokenLink := filepath.Join(layout.RuntimeCoresDir, "vanilla.jar.jar")
	require.NoError(t, os.Symlink(brokenPath, brokenLink))

	st := New(layout, stubResolver{})
	st.Items = []model.StoreItem{
		{
			Item:       model.Item{Provider: model.CoreProvider(model.PlatformVanilla)},
			Hash:       model.HashType{Kind: model.HashKindSHA256, Hex: hashutil.ComputeSHA256([]byte("expected"))},
			Path:       brokenPath,
			SymbolLink: brokenLink,
			URL:        "http://127.0.0.1:0/unreachable",
		},
		{
			Item:       model.Item{Provider: model.CoreProvider(model.PlatformPurpur)},
			Hash:       model.HashType{Kind: model.HashKindSHA256, Hex: hashutil.ComputeSHA256(okBody)},
			Path:       okPath,
			SymbolLink: okLink,
		},
	}

	errs := st.Repair(context.Background())
	require.Len(t, errs, 1, "the unreachable item fails but the other item is left untouched, not aborted on")
	require.FileExists(t, okPath)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	layout := newTestLayout(t)
	st := New(layout, stubResolver{})
	gv := "1.20.1"
	st.Items = []model.StoreItem{{
		Item: model.Item{
			Provider: model.CoreProvider(model.PlatformPaper),
			Version:  model.Version{GameVersion: &gv},
		},
		Hash: model.HashType{Kind: model.HashKindSHA256, Hex: "abc123"},
		Path: "/tmp/paper.jar",
		URL:  "https://example.invalid/paper.jar",
	}}

	require.NoError(t, st.Save(layout.StorePath))

	loaded := New(layout, stubResolver{})
	require.NoError(t, loaded.Load(layout.StorePath))
	require.Len(t, loaded.Items, 1)
	require.Equal(t, model.PlatformPaper, loaded.Items[0].Item.Provider.CorePlatform)
	require.Equal(t, "abc123", loaded.Items[0].Hash.Hex)
}
