package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	toml2 "github.com/pelletier/go-toml/v2"

	dierrors "github.com/ngc-omeka/omeka-dist/pkg/errors"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "OMEKA_DIST_"

//go:embed embedded/defaults.toml
var defaultConfig []byte

type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New("not implemented")
}

// Load reads the configuration file at path layered over the embedded
// defaults and environment overrides. A missing file is a fatal error.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, dierrors.Newf(dierrors.ErrConfigNotFound, "%s not found", filepath.Base(path)).Fatal()
		}
		return nil, dierrors.Wrapf(err, dierrors.ErrConfigLoad, "failed to stat %s", path).Fatal()
	}

	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, dierrors.Wrap(err, dierrors.ErrConfigLoad, "failed to load defaults").Fatal()
	}

	// 2. Config file, parsed by extension
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, dierrors.Wrapf(err, dierrors.ErrConfigLoad, "failed to load config from %s", path).Fatal()
	}

	// 3. Environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, dierrors.Wrap(err, dierrors.ErrConfigLoad, "failed to load env vars").Fatal()
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, dierrors.Wrap(err, dierrors.ErrConfigInvalid, "failed to unmarshal configuration").Fatal()
	}

	return &cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, dierrors.Newf(dierrors.ErrConfigInvalid, "unsupported config format: %s", path).Fatal()
	}
}

// envKey maps OMEKA_DIST_DB__HOST to db.host
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// GenerateConfigContent renders Sample() as commented-header TOML
func GenerateConfigContent() (string, error) {
	data, err := toml2.Marshal(Sample())
	if err != nil {
		return "", fmt.Errorf("failed to marshal sample config: %w", err)
	}
	header := "# omeka-dist configuration\n" +
		"# Save as config/config.toml in the distribution root.\n" +
		"# Omit db, admin or site to skip the stages that need them.\n\n"
	return header + string(data), nil
}
