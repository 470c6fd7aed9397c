package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prisma-mc/prisma/internal/model"
	"github.com/prisma-mc/prisma/internal/prismaerr"
)

const paperAPIBaseURL = "https://api.papermc.io/v2/projects"

type paperVersionList struct {
	Versions []string `json:"versions"`
}

type paperBuildList struct {
	Builds []int `json:"builds"`
}

type paperBuildInfo struct {
	Downloads struct {
		Application struct {
			Name   string `json:"name"`
			SHA256 string `json:"sha256"`
		} `json:"application"`
	} `json:"downloads"`
}

// PaperResolver resolves core Items for the PaperMC v2 project family
// (paper, folia, waterfall, velocity all share this API shape, keyed by
// project name).
type PaperResolver struct {
	client  *http.Client
	config  Config
	project string
	baseURL string
}

func NewPaperResolver(config Config, project string) *PaperResolver {
	return &PaperResolver{client: config.httpClient(), config: config, project: project, baseURL: paperAPIBaseURL}
}

func (r *PaperResolver) doRequest(ctx context.Context, url string, target interface{}) error {
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

// findVersion: an unpinned request resolves to the last (newest) entry in
// the list; a pinned one is looked up by exact match, with no fallback on
// a miss.
func findVersion(versions []string, pinned *string) (string, error) {
	if pinned == nil {
		if len(versions) == 0 {
			return "", fmt.Errorf("no versions available")
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

func (r *PaperResolver) Resolve(ctx context.Context, item model.Item) (model.DownloadMeta, error) {
	var versionList paperVersionList
	versionsURL := fmt.Sprintf("%s/%s", r.baseURL, r.project)
	if err := r.doRequest(ctx, versionsURL, &versionList); err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: r.project, Err: err}
	}

	gameVersion, err := findVersion(versionList.Versions, item.Version.GameVersion)
	if err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: r.project, Err: err}
	}

	var buildList paperBuildList
	buildsURL := fmt.Sprintf("%s/%s/versions/%s", r.baseURL, r.project, gameVersion)
	if err := r.doRequest(ctx, buildsURL, &buildList); err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: r.project, Err: err}
	}

	build, err := r.resolveBuild(buildList.Builds, item.Version.VersionBuild)
	if err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{
			Provider: r.project,
			Err:      fmt.Errorf("not found version %s with build %s: %w", gameVersion, versionBuildLabel(item.Version.VersionBuild), err),
		}
	}

	buildURL := fmt.Sprintf("%s/%s/versions/%s/builds/%d", r.baseURL, r.project, gameVersion, build)
	var buildInfo paperBuildInfo
	if err := r.doRequest(ctx, buildURL, &buildInfo); err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: r.project, Err: err}
	}

	downloadURL := fmt.Sprintf("%s/downloads/%s", buildURL, buildInfo.Downloads.Application.Name)

	return model.DownloadMeta{
		DownloadLink: downloadURL,
		Hash:         model.HashType{Kind: model.HashKindSHA256, Hex: buildInfo.Downloads.Application.SHA256},
		GameVersion:  gameVersion,
		VersionBuild: strconv.Itoa(build),
	}, nil
}

// resolveBuild returns the newest (last) build when none is pinned;
// otherwise it parses the pinned build string and requires it to be in
// builds, with no fallback on a miss.
func (r *PaperResolver) resolveBuild(builds []int, pinned *string) (int, error) {
	if len(builds) == 0 {
		return 0, fmt.Errorf("no builds available")
	}

	if pinned == nil {
		return builds[len(builds)-1], nil
	}

	want, err := strconv.Atoi(*pinned)
	if err != nil {
		return 0, fmt.Errorf("invalid build %q: %w", *pinned, err)
	}

	for _, b := range builds {
		if b == want {
			return b, nil
		}
	}

	return 0, fmt.Errorf("build not found in %v", builds)
}

func versionBuildLabel(b *string) string {
	if b == nil {
		return "latest"
	}
	return *b
}
