package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prisma-mc/prisma/internal/model"
	"github.com/stretchr/testify/require"
)

func newPaperTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/paper", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"versions":["1.19.4","1.20.1"]}`))
	})
	mux.HandleFunc("/paper/versions/1.20.1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"builds":[15,16,17]}`))
	})
	mux.HandleFunc("/paper/versions/1.20.1/builds/17", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"downloads":{"application":{"name":"paper-1.20.1-17.jar","sha256":"feed1234"}}}`))
	})
	return httptest.NewServer(mux)
}

func TestPaperResolveExactBuild(t *testing.T) {
	srv := newPaperTestServer(t)
	defer srv.Close()

	resolver := &PaperResolver{client: srv.Client(), config: DefaultConfig(), project: "paper", baseURL: srv.URL}

	gv, build := "1.20.1", "17"
	meta, err := resolver.Resolve(context.Background(), model.Item{
		Provider: model.CoreProvider(model.PlatformPaper),
		Version:  model.Version{GameVersion: &gv, VersionBuild: &build},
	})
	require.NoError(t, err)
	require.Equal(t, "feed1234", meta.Hash.Hex)
	require.Contains(t, meta.DownloadLink, "/builds/17/downloads/paper-1.20.1-17.jar")
	require.Equal(t, "17", meta.VersionBuild)
}

func TestPaperResolveUnpinnedUsesLastVersionAndBuild(t *testing.T) {
	srv := newPaperTestServer(t)
	defer srv.Close()

	resolver := &PaperResolver{client: srv.Client(), config: DefaultConfig(), project: "paper", baseURL: srv.URL}

	meta, err := resolver.Resolve(context.Background(), model.Item{
		Provider: model.CoreProvider(model.PlatformPaper),
	})
	require.NoError(t, err)
	require.Equal(t, "17", meta.VersionBuild)
}

func TestPaperResolveUnknownBuild(t *testing.T) {
	srv := newPaperTestServer(t)
	defer srv.Close()

	resolver := &PaperResolver{client: srv.Client(), config: DefaultConfig(), project: "paper", baseURL: srv.URL}

	gv, build := "1.20.1", "999"
	_, err := resolver.Resolve(context.Background(), model.Item{
		Provider: model.CoreProvider(model.PlatformPaper),
		Version:  model.Version{GameVersion: &gv, VersionBuild: &build},
	})
	require.Error(t, err)
}

func TestPaperResolveUnknownGameVersionNoFallback(t *testing.T) {
	srv := newPaperTestServer(t)
	defer srv.Close()

	resolver := &PaperResolver{client: srv.Client(), config: DefaultConfig(), project: "paper", baseURL: srv.URL}

	gv := "1.21.0"
	_, err := resolver.Resolve(context.Background(), model.Item{
		Provider: model.CoreProvider(model.PlatformPaper),
		Version:  model.Version{GameVersion: &gv},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "1.21.0")
}
