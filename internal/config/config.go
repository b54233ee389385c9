// Package config loads yapi settings from an optional YAML or TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/frederic-klein/yapi/internal/promoter"
)

// EnvPath names the environment variable holding an explicit config path.
const EnvPath = "YAPI_CONFIG"

// Config holds settings shared by every install. Command line flags take
// precedence over these values.
type Config struct {
	Output          string   `yaml:"output" toml:"output"`
	Definitions     string   `yaml:"definitions" toml:"definitions"`
	Python          string   `yaml:"python" toml:"python"`
	Overwrite       string   `yaml:"overwrite" toml:"overwrite"` // ask, yes or no
	NoDependencies  bool     `yaml:"no_dependencies" toml:"no_dependencies"`
	ContinueOnError bool     `yaml:"continue_on_error" toml:"continue_on_error"`
	FailFast        bool     `yaml:"fail_fast" toml:"fail_fast"`
	WorkDir         string   `yaml:"work_dir" toml:"work_dir"`
	Installer       []string `yaml:"installer" toml:"installer"` // arguments after the interpreter
	Manager         []string `yaml:"manager" toml:"manager"`     // resolves interpreter requests
	InstallRoot     string   `yaml:"install_root" toml:"install_root"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Python:    "python==2.7.*",
		Overwrite: string(promoter.Ask),
		WorkDir:   os.TempDir(),
		Installer: []string{"-m", "pip"},
		Manager:   []string{"wiz", "use"},
	}
}

// Locate returns the config file to read and whether it was requested
// explicitly. flagPath wins over $YAPI_CONFIG, which wins over the user
// config directory.
func Locate(flagPath string) (string, bool) {
	if flagPath != "" {
		return flagPath, true
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env, true
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		path := filepath.Join(dir, "yapi", name)
		if _, err := os.Stat(path); err == nil {
			return path, false
		}
	}
	return "", false
}

// Load reads path over the defaults. A missing file is only an error when
// explicit is set.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse %s: unknown key %q", path, undecoded[0].String())
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that cannot be checked by decoding.
func (c *Config) Validate() error {
	if _, err := c.Policy(); err != nil {
		return err
	}
	if len(c.Manager) == 0 {
		return fmt.Errorf("manager must name a command")
	}
	return nil
}

// Policy returns the overwrite policy.
func (c *Config) Policy() (promoter.Policy, error) {
	return promoter.ParsePolicy(c.Overwrite)
}
