package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prisma-mc/prisma/internal/model"
	"github.com/prisma-mc/prisma/internal/prismaerr"
)

const purpurAPIBaseURL = "https://api.purpurmc.org/v2/purpur"

type purpurProjectResponse struct {
	Versions []string `json:"versions"`
}

type purpurVersionResponse struct {
	Builds purpurBuildsInfo `json:"builds"`
}

type purpurBuildsInfo struct {
	Latest string   `json:"latest"`
	All    []string `json:"all"`
}

type purpurBuildResponse struct {
	Md5 string `json:"md5"`
}

// PurpurResolver resolves core Items against the Purpur project API.
type PurpurResolver struct {
	client  *http.Client
	config  Config
	baseURL string
}

func NewPurpurResolver(config Config) *PurpurResolver {
	return &PurpurResolver{client: config.httpClient(), config: config, baseURL: purpurAPIBaseURL}
}

func (r *PurpurResolver) doRequest(ctx context.Context, url string, target interface{}) error {
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

func (r *PurpurResolver) Resolve(ctx context.Context, item model.Item) (model.DownloadMeta, error) {
	var project purpurProjectResponse
	if err := r.doRequest(ctx, r.baseURL, &project); err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "purpur", Err: err}
	}

	gameVersion, err := r.findVersion(project.Versions, item.Version.GameVersion)
	if err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "purpur", Err: err}
	}

	versionURL := fmt.Sprintf("%s/%s", r.baseURL, gameVersion)
	var versionResp purpurVersionResponse
	if err := r.doRequest(ctx, versionURL, &versionResp); err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "purpur", Err: err}
	}

	build, err := r.resolveBuild(versionResp.Builds, item.Version.VersionBuild)
	if err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{
			Provider: "purpur",
			Err:      fmt.Errorf("not found version %s with build %s: %w", gameVersion, versionBuildLabel(item.Version.VersionBuild), err),
		}
	}

	buildURL := fmt.Sprintf("%s/%s/%s", r.baseURL, gameVersion, build)
	var buildResp purpurBuildResponse
	if err := r.doRequest(ctx, buildURL, &buildResp); err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "purpur", Err: err}
	}

	return model.DownloadMeta{
		DownloadLink: fmt.Sprintf("%s/download", buildURL),
		Hash:         model.HashType{Kind: model.HashKindMD5, Hex: buildResp.Md5},
		GameVersion:  gameVersion,
		VersionBuild: build,
	}, nil
}

// findVersion: an unpinned request resolves to the last entry in the
// upstream's list; a pinned one is looked up by plain membership, with no
// fallback on a miss.
func (r *PurpurResolver) findVersion(versions []string, pinned *string) (string, error) {
	if pinned == nil {
		if len(versions) == 0 {
			return "", fmt.Errorf("not found latest version")
		}
		return versions[len(versions)-1], nil
	}

	for _, v := range versions {
		if v == *pinned {
			return v, nil
		}
	}

	return "", fmt.Errorf("version %s not found", *pinned)
}

func (r *PurpurResolver) resolveBuild(builds purpurBuildsInfo, pinned *string) (string, error) {
	if pinned == nil {
		if builds.Latest == "" {
			return "", fmt.Errorf("no builds available")
		}
		return builds.Latest, nil
	}

	for _, b := range builds.All {
		if b == *pinned {
			return b, nil
		}
	}

	return "", fmt.Errorf("build not found in %v", builds.All)
}
