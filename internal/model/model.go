// Package model defines the data types shared by the resolver, store and
// config layers: the declarative description of a single installable item
// and the records the store keeps once that item has been fetched.
package model

import "fmt"

// Channel is the release maturity of a core or extension version.
type Channel string

const (
	ChannelRelease Channel = "release"
	ChannelBeta    Channel = "beta"
	ChannelStable  Channel = "stable"
)

// Platform identifies a server core implementation.
type Platform string

const (
	PlatformVanilla   Platform = "vanilla"
	PlatformSpigot    Platform = "spigot"
	PlatformBukkit    Platform = "bukkit"
	PlatformPaper     Platform = "paper"
	PlatformFolia     Platform = "folia"
	PlatformWaterfall Platform = "waterfall"
	PlatformVelocity  Platform = "velocity"
	PlatformPurpur    Platform = "purpur"
	PlatformFabric    Platform = "fabric"
	PlatformQuilt     Platform = "quilt"
	PlatformForge     Platform = "forge"
	PlatformNeoForge  Platform = "neoforge"
)

// ExtensionProvider is the upstream catalog an extension is resolved against.
type ExtensionProvider string

const (
	ExtensionProviderModrinth ExtensionProvider = "modrinth"
)

// ExtensionType distinguishes plugins from mods; both carry the upstream
// catalog they resolve through.
type ExtensionType struct {
	Kind     ExtensionKind     `toml:"kind"`
	Provider ExtensionProvider `toml:"provider"`
}

type ExtensionKind string

const (
	ExtensionKindMod    ExtensionKind = "mod"
	ExtensionKindPlugin ExtensionKind = "plugin"
)

// Version pins a game version and/or a build. Either field may be absent,
// in which case the provider resolves it to the latest matching value.
type Version struct {
	GameVersion  *string `toml:"game_version,omitempty"`
	VersionBuild *string `toml:"version_build,omitempty"`
	Channel      Channel `toml:"channel,omitempty"`
}

func (v Version) String() string {
	gv := "latest"
	if v.GameVersion != nil {
		gv = *v.GameVersion
	}
	vb := "latest"
	if v.VersionBuild != nil {
		vb = *v.VersionBuild
	}
	return fmt.Sprintf("%s/%s (%s)", gv, vb, v.Channel)
}

// Options controls how an item is treated during installation.
type Options struct {
	// Freeze skips the item during FillNew unless ForceUpdate is also set.
	Freeze bool `toml:"freeze"`
	// ForceUpdate re-fetches the item even if Freeze is set.
	ForceUpdate bool `toml:"force_update"`
}

// ProviderKind distinguishes a core provider from an extension provider.
type ProviderKind int

const (
	ProviderKindCore ProviderKind = iota
	ProviderKindExtension
)

// Provider is the sum type identifying what an Item resolves. Exactly one
// of the Core/Extension field groups is meaningful, selected by Kind.
type Provider struct {
	Kind ProviderKind

	// valid when Kind == ProviderKindCore
	CorePlatform Platform

	// valid when Kind == ProviderKindExtension
	ExtensionName     string
	ExtensionPlatform Platform
	Extension         ExtensionType
}

func CoreProvider(platform Platform) Provider {
	return Provider{Kind: ProviderKindCore, CorePlatform: platform}
}

func ExtensionProviderOf(name string, platform Platform, ext ExtensionType) Provider {
	return Provider{
		Kind:              ProviderKindExtension,
		ExtensionName:     name,
		ExtensionPlatform: platform,
		Extension:         ext,
	}
}

func (p Provider) String() string {
	if p.Kind == ProviderKindCore {
		return fmt.Sprintf("core(%s)", p.CorePlatform)
	}
	return fmt.Sprintf("extension(%s, %s, %s)", p.ExtensionName, p.ExtensionPlatform, p.Extension.Kind)
}

// Item is the declarative unit the config layer produces and the store
// consumes: "install this provider, pinned to this version, with these
// options".
type Item struct {
	Provider Provider
	Version  Version
	Options  Options
}

// WithVersion returns a copy of the item with its version replaced. Used by
// the store to record the concrete version a download actually resolved to.
func (i Item) WithVersion(v Version) Item {
	i.Version = v
	return i
}

// HashKind names the digest algorithm a DownloadMeta's hash was published
// under.
type HashKind string

const (
	HashKindMD5    HashKind = "md5"
	HashKindSHA1   HashKind = "sha1"
	HashKindSHA256 HashKind = "sha256"
	HashKindSHA512 HashKind = "sha512"
	HashKindNone   HashKind = "none"
)

// HashType is a published hash value tagged with its algorithm. A HashKind
// of HashKindNone always compares successfully, for upstreams that publish
// no hash at all.
type HashType struct {
	Kind HashKind
	Hex  string
}

func (h HashType) String() string {
	if h.Kind == HashKindNone {
		return "none"
	}
	return fmt.Sprintf("%s:%s", h.Kind, h.Hex)
}

// DownloadMeta is what a resolver produces for an Item: where to fetch the
// artifact, what hash to verify it against, and the concrete version it
// resolved to.
type DownloadMeta struct {
	DownloadLink string
	Hash         HashType
	GameVersion  string
	VersionBuild string
}

// StoreItem is a record of an item that has been successfully fetched into
// the local store.
type StoreItem struct {
	Item       Item
	Hash       HashType
	Path       string
	SymbolLink string
	URL        string
}
