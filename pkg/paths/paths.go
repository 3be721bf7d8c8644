package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ngc-omeka/omeka-dist/pkg/errors"
)

// EnvRoot is the environment variable naming the distribution root
const EnvRoot = "OMEKA_DIST_ROOT"

// Well-known names inside a distribution root
const (
	ManifestFile        = "distribution.json"
	ConfigDir           = "config"
	ConfigFile          = "config.json"
	ConfigFileTOML      = "config.toml"
	LocalConfigFile     = "local.config.php"
	DatabaseIniFile     = "database.ini"
	PublicDir           = "public"
	ModulesDir          = "modules"
	ThemesDir           = "themes"
	FilesDir            = "files"
	LogsDir             = "logs"
	VocabulariesDir     = "vocabularies"
	TaxonomiesDir       = "taxonomies"
	ResourceTemplateDir = "resource_templates"
)

// manifestAlternates are accepted in place of distribution.json, in order
var manifestAlternates = []string{"distribution.yaml", "distribution.yml"}

// Paths describes the on-disk layout of a distribution root
type Paths interface {
	Root() string
	UsedFallback() bool
	ManifestPath() string
	ConfigDir() string
	ConfigPath() string
	LocalConfigSource() string
	PublicDir() string
	PublicConfigDir() string
	LocalConfigTarget() string
	DatabaseIniPath() string
	ModulesDir() string
	ThemesDir() string
	WritableDirs() []string
	VocabularyPath(file string) string
	TaxonomyPath(file string) string
	ResourceTemplatePath(file string) string
}

type paths struct {
	root         string
	usedFallback bool
}

// New creates a Paths instance for the given root. An empty root is
// resolved from OMEKA_DIST_ROOT, falling back to the working directory.
func New(root string) (Paths, error) {
	p := &paths{}

	if root == "" {
		root = os.Getenv(EnvRoot)
	}
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrPermission, "failed to get current directory")
		}
		root = cwd
		p.usedFallback = true
	}

	abs, err := filepath.Abs(expandHome(root))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to get absolute path for root %s", root)
	}
	p.root = abs
	return p, nil
}

func (p *paths) Root() string       { return p.root }
func (p *paths) UsedFallback() bool { return p.usedFallback }

// ManifestPath returns distribution.json, or the first YAML alternate
// present when the JSON file is missing.
func (p *paths) ManifestPath() string {
	primary := filepath.Join(p.root, ManifestFile)
	if _, err := os.Stat(primary); err == nil {
		return primary
	}
	for _, name := range manifestAlternates {
		candidate := filepath.Join(p.root, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return primary
}

func (p *paths) ConfigDir() string { return filepath.Join(p.root, ConfigDir) }

// ConfigPath returns config/config.json, or config/config.toml when only
// the TOML file exists.
func (p *paths) ConfigPath() string {
	primary := filepath.Join(p.ConfigDir(), ConfigFile)
	if _, err := os.Stat(primary); err != nil {
		alt := filepath.Join(p.ConfigDir(), ConfigFileTOML)
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}
	return primary
}

func (p *paths) LocalConfigSource() string { return filepath.Join(p.ConfigDir(), LocalConfigFile) }
func (p *paths) PublicDir() string         { return filepath.Join(p.root, PublicDir) }
func (p *paths) PublicConfigDir() string   { return filepath.Join(p.PublicDir(), ConfigDir) }
func (p *paths) LocalConfigTarget() string { return filepath.Join(p.PublicConfigDir(), LocalConfigFile) }
func (p *paths) DatabaseIniPath() string   { return filepath.Join(p.PublicConfigDir(), DatabaseIniFile) }
func (p *paths) ModulesDir() string        { return filepath.Join(p.PublicDir(), ModulesDir) }
func (p *paths) ThemesDir() string         { return filepath.Join(p.PublicDir(), ThemesDir) }

// WritableDirs lists the directories the web server must be able to write
func (p *paths) WritableDirs() []string {
	return []string{
		filepath.Join(p.PublicDir(), FilesDir),
		filepath.Join(p.PublicDir(), LogsDir),
	}
}

func (p *paths) VocabularyPath(file string) string {
	return filepath.Join(p.root, VocabulariesDir, file)
}

func (p *paths) TaxonomyPath(file string) string {
	return filepath.Join(p.root, TaxonomiesDir, file)
}

func (p *paths) ResourceTemplatePath(file string) string {
	return filepath.Join(p.root, ResourceTemplateDir, file)
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) == 1 {
		return homeDir
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
