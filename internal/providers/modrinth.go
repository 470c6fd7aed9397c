package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/denisbrodbeck/machineid"
	"github.com/prisma-mc/prisma/internal/model"
	"github.com/prisma-mc/prisma/internal/prismaerr"
)

const modrinthAPIBaseURL = "https://api.modrinth.com/v2/project"

type modrinthVersion struct {
	ID           string              `json:"id"`
	GameVersions []string            `json:"game_versions"`
	Files        []modrinthVersionFile `json:"files"`
}

type modrinthVersionFile struct {
	URL    string            `json:"url"`
	Hashes map[string]string `json:"hashes"`
}

// ModrinthResolver resolves extension Items (plugins and mods alike)
// against the Modrinth project API.
type ModrinthResolver struct {
	client  *http.Client
	config  Config
	baseURL string

	uidOnce sync.Once
	uid     string
	uidErr  error
}

func NewModrinthResolver(config Config) *ModrinthResolver {
	return &ModrinthResolver{client: config.httpClient(), config: config, baseURL: modrinthAPIBaseURL}
}

// userAgent composes "<identity>/Prisma UID: <machine id>", resolving the
// machine id once per process. A machine id failure is fatal for any
// Modrinth request, matching the upstream client's own unwrap-on-failure
// behavior.
func (r *ModrinthResolver) userAgent() (string, error) {
	r.uidOnce.Do(func() {
		id, err := machineid.ProtectedID("prisma")
		if err != nil {
			r.uidErr = err
			return
		}
		r.uid = id
	})
	if r.uidErr != nil {
		return "", fmt.Errorf("resolving machine id: %w", r.uidErr)
	}
	return fmt.Sprintf("%s/Prisma UID: %s", r.config.UserAgent, r.uid), nil
}

func (r *ModrinthResolver) Resolve(ctx context.Context, item model.Item) (model.DownloadMeta, error) {
	name := item.Provider.ExtensionName

	reqURL, err := r.buildURL(name, item)
	if err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "modrinth", Err: err}
	}

	agent, err := r.userAgent()
	if err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "modrinth", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "modrinth", Err: err}
	}
	req.Header.Set("User-Agent", agent)

	resp, err := r.client.Do(req)
	if err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "modrinth", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return model.DownloadMeta{}, &prismaerr.ResolverError{
			Provider: "modrinth",
			Err:      fmt.Errorf("unexpected status code: %d", resp.StatusCode),
		}
	}

	var versions []modrinthVersion
	if err := json.NewDecoder(resp.Body).Decode(&versions); err != nil {
		return model.DownloadMeta{}, &prismaerr.ResolverError{Provider: "modrinth", Err: err}
	}

	if len(versions) == 0 {
		return model.DownloadMeta{}, &prismaerr.ResolverError{
			Provider: "modrinth",
			Err:      fmt.Errorf("Extension %s not found", name),
		}
	}
	version := versions[0]

	if len(version.GameVersions) == 0 {
		return model.DownloadMeta{}, &prismaerr.ResolverError{
			Provider: "modrinth",
			Err:      fmt.Errorf("Not found any version of %s", name),
		}
	}

	if len(version.Files) == 0 {
		return model.DownloadMeta{}, &prismaerr.ResolverError{
			Provider: "modrinth",
			Err:      fmt.Errorf("no files published for %s", name),
		}
	}
	file := version.Files[0]

	return model.DownloadMeta{
		DownloadLink: file.URL,
		Hash:         model.HashType{Kind: model.HashKindSHA1, Hex: file.Hashes["sha1"]},
		GameVersion:  version.GameVersions[0],
		VersionBuild: version.ID,
	}, nil
}

func (r *ModrinthResolver) buildURL(name string, item model.Item) (string, error) {
	q := url.Values{}
	q.Set("loaders", fmt.Sprintf("[%q]", string(item.Provider.ExtensionPlatform)))
	q.Set("featured", "true")

	channel := item.Version.Channel
	if channel == "" {
		channel = model.ChannelRelease
	}
	q.Set("version_type", string(channel))

	if item.Version.GameVersion != nil {
		q.Set("game_version", fmt.Sprintf("[%q]", *item.Version.GameVersion))
	}

	return fmt.Sprintf("%s/%s/version?%s", r.baseURL, name, q.Encode()), nil
}
