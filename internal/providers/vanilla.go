package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/prisma-mc/prisma/internal/model"
	"github.com/prisma-mc/prisma/internal/prismaerr"
)

// mojangVersionManifestURL intentionally targets the legacy (non-v2)
// manifest: it lacks a compliance level and sha1-per-entry, but it is the
// endpoint the rest of this resolver's matching logic is built against.
const mojangVersionManifestURL = "https://launchermeta.mojang.com/mc/game/version_manifest.json"

type mojangVersionManifest struct {
	Latest   mojangLatest          `json:"latest"`
	Versions []mojangVersionEntry  `json:"versions"`
}

type mojangLatest struct {
	Release  string `json:"release"`
	Snapshot string `json:"snapshot"`
}

type mojangVersionEntry struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

type mojangVersionDetail struct {
	Downloads mojangDownloads `json:"downloads"`
}

type mojangDownloads struct {
	Server mojangDownloadEntry `json:"server"`
}

type mojangDownloadEntry struct {
	SHA1 string `json:"sha1"`
	URL  string `json:"url"`
}

// VanillaResolver resolves a core Item against Mojang's version manifest.
type VanillaResolver struct {
	client      *http.Client
	config      Config
	manifestURL string
}

func NewVanillaResolver(config Config) *VanillaResolver {
	return &VanillaResolver{client: config.httpClient(), config: config, manifestURL: mojangVersionManifestURL}
}

func (r *VanillaResolver) doRequest(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", r.config.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// Resolve implements the documented Vanilla matching behavior: the target
// version string — the pinned game version if one was given, else the
// manifest's latest release — is matched as a *substring* of the manifest
// entry's id, not an exact match, and the first entry found wins, the same
// way regardless of where the target string came from.
func (r *VanillaResolver) Resolve(ctx context.Context, item model.Item) (model.DownloadMeta, error) {
	var manifest mojangVersionManifest
	if err := r.doRequest(ctx, r.manifestURL, &manifest); err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "vanilla", Err: err}
	}

	target := manifest.Latest.Release
	if item.Version.GameVersion != nil {
		target = *item.Version.GameVersion
	}

	var entry *mojangVersionEntry
	for i := range manifest.Versions {
		v := manifest.Versions[i]
		if strings.Contains(v.ID, target) {
			entry = &v
			break
		}
	}

	if entry == nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{
			Provider: "vanilla",
			Err:      fmt.Errorf("version %s not found", target),
		}
	}

	var detail mojangVersionDetail
	if err := r.doRequest(ctx, entry.URL, &detail); err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "vanilla", Err: err}
	}

	if detail.Downloads.Server.URL == "" {
		return model.DownloadMeta{}, &prismaerr.ResolverError{
			Provider: "vanilla",
			Err:      fmt.Errorf("no server download available for version %s", entry.ID),
		}
	}

	return model.DownloadMeta{
		DownloadLink: detail.Downloads.Server.URL,
		Hash:         model.HashType{Kind: model.HashKindSHA1, Hex: detail.Downloads.Server.SHA1},
		GameVersion:  entry.ID,
	}, nil
}
