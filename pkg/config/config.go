// Package config loads job settings: tool names, render policy and the
// keyboard model-map location. Settings layer in the order embedded
// defaults -> /etc/nixstall/nixstall.toml -> explicit --config file.
package config

import (
	_ "embed"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/nixstall/nixstall/pkg/errors"
)

//go:embed embedded/defaults.toml
var defaultConfig []byte

// SystemConfigPath is the conventional host-wide config location.
const SystemConfigPath = "/etc/nixstall/nixstall.toml"

// envPrefix marks environment variables that override config keys.
const envPrefix = "NIXSTALL_"

// Tools names the external commands the pipeline invokes. Overridable so a
// distribution can point at wrapped or renamed binaries.
type Tools struct {
	Escalator           string `koanf:"escalator"`
	NixosInstall        string `koanf:"nixos_install"`
	NixosGenerateConfig string `koanf:"nixos_generate_config"`
	NixosVersion        string `koanf:"nixos_version"`
	NixInstantiate      string `koanf:"nix_instantiate"`
	Cryptsetup          string `koanf:"cryptsetup"`
	Loadkeys            string `koanf:"loadkeys"`
}

// Render controls how the configuration document is produced.
type Render struct {
	AllowUnfree          bool   `koanf:"allow_unfree"`
	AllowUnresolved      bool   `koanf:"allow_unresolved"`
	FallbackStateVersion string `koanf:"fallback_state_version"`
	FragmentCatalog      string `koanf:"fragment_catalog"`
}

// Packages extends the generated systemPackages list.
type Packages struct {
	Extra []string `koanf:"extra"`
}

// Keyboard locates the layout-to-console-keymap table.
type Keyboard struct {
	ModelMap string `koanf:"model_map"`
}

// Config is the fully merged job configuration.
type Config struct {
	Tools    Tools    `koanf:"tools"`
	Render   Render   `koanf:"render"`
	Packages Packages `koanf:"packages"`
	Keyboard Keyboard `koanf:"keyboard"`
}

// rawBytesProvider implements koanf provider for raw bytes
type rawBytesProvider struct{ bytes []byte }

func (r *rawBytesProvider) ReadBytes() ([]byte, error) { return r.bytes, nil }
func (r *rawBytesProvider) Read() (map[string]interface{}, error) {
	return nil, errors.New(errors.ErrInternal, "raw bytes provider", "Read is not implemented")
}

// Load merges the configuration layers. extraPath may be empty; a missing
// system config file is not an error, a missing explicit file is.
func Load(extraPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse,
			"Cannot load built-in defaults", "The embedded default configuration is invalid.")
	}

	if _, err := os.Stat(SystemConfigPath); err == nil {
		if err := k.Load(file.Provider(SystemConfigPath), toml.Parser()); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigParse,
				"Cannot parse system configuration", SystemConfigPath+" is not valid TOML.")
		}
	}

	if extraPath != "" {
		if err := k.Load(file.Provider(extraPath), toml.Parser()); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad,
				"Cannot load configuration", extraPath+" could not be read or parsed.")
		}
	}

	// NIXSTALL_RENDER_ALLOW_UNFREE=false style overrides. Only the first
	// underscore separates section from key; the keys themselves contain
	// underscores.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		parts := strings.SplitN(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", 2)
		return strings.Join(parts, ".")
	}), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad,
			"Cannot load configuration", "Environment overrides could not be read.")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse,
			"Cannot decode configuration", "The merged configuration does not match the expected schema.")
	}
	return &cfg, nil
}

// Default returns the embedded defaults without touching the filesystem.
func Default() *Config {
	k := koanf.New(".")
	// The embedded document is compiled in; a parse failure is a build defect.
	_ = k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser())
	var cfg Config
	_ = k.Unmarshal("", &cfg)
	return &cfg
}
