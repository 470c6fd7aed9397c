package store

import "fmt"

// Default on-disk layout, preserved verbatim from the original
// implementation including the "cors" directory name. The runtime
// directory mirrors the store's own cores/plugins/mods split so a
// running server can find each item's symlink by provider kind.
const (
	DefaultDir               = "./.prisma"
	DefaultTempDir           = "./.prisma/.temp"
	DefaultCoresDir          = "./.prisma/cors"
	DefaultPluginsDir        = "./.prisma/extensions/plugins"
	DefaultModsDir           = "./.prisma/extensions/mods"
	DefaultStorePath         = "./.prisma/store.ron"
	DefaultRuntimeDir        = "./.prisma/run"
	DefaultRuntimeCoresDir   = "./.prisma/run/cores"
	DefaultRuntimePluginsDir = "./.prisma/run/plugins"
	DefaultRuntimeModsDir    = "./.prisma/run/mods"
)

// Layout bundles the directories a Store instance reads and writes.
type Layout struct {
	Dir               string
	TempDir           string
	CoresDir          string
	PluginsDir        string
	ModsDir           string
	StorePath         string
	RuntimeDir        string
	RuntimeCoresDir   string
	RuntimePluginsDir string
	RuntimeModsDir    string
}

func DefaultLayout() Layout {
	return Layout{
		Dir:               DefaultDir,
		TempDir:           DefaultTempDir,
		CoresDir:          DefaultCoresDir,
		PluginsDir:        DefaultPluginsDir,
		ModsDir:           DefaultModsDir,
		StorePath:         DefaultStorePath,
		RuntimeDir:        DefaultRuntimeDir,
		RuntimeCoresDir:   DefaultRuntimeCoresDir,
		RuntimePluginsDir: DefaultRuntimePluginsDir,
		RuntimeModsDir:    DefaultRuntimeModsDir,
	}
}

func (l Layout) Dirs() []string {
	return []string{
		l.Dir, l.TempDir, l.CoresDir, l.PluginsDir, l.ModsDir,
		l.RuntimeDir, l.RuntimeCoresDir, l.RuntimePluginsDir, l.RuntimeModsDir,
	}
}

func (l Layout) String() string {
	return fmt.Sprintf("store at %s", l.StorePath)
}
