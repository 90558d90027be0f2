// Package config loads the atff command configuration.
//
// Configuration is read from a single YAML file named by the --config
// flag or, failing that, the ATFF_CONFIG environment variable. There is
// no automatic discovery: with neither set, Default is used. Files ending
// in .json or .jsonc are read as JSON with comments.
//
// Link resolution is off unless the file enables it explicitly.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/Neumenon/atff/internal/logging"
	"github.com/Neumenon/atff/link"
	"github.com/Neumenon/atff/wire"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "ATFF_CONFIG"

// Config is the atff command configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Links  LinksConfig  `yaml:"links"`
	Output OutputConfig `yaml:"output"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Default: warn.
	Level string `yaml:"level"`

	// JSON switches to JSON log records.
	JSON bool `yaml:"json"`
}

// LinksConfig configures link resolution.
type LinksConfig struct {
	// Enabled turns on fetching and executing links. Default: false.
	Enabled bool `yaml:"enabled"`

	// AllowedSchemes lists fetchable URL schemes. Default: [https].
	AllowedSchemes []string `yaml:"allowed_schemes"`

	// AllowedHosts restricts fetchable hosts ("*.example.com" allowed).
	AllowedHosts []string `yaml:"allowed_hosts"`

	// Timeout bounds each resolution. Zero means no limit.
	Timeout time.Duration `yaml:"timeout"`

	// MaxBytes bounds a fetched body. Default: 1 MiB.
	MaxBytes int64 `yaml:"max_bytes"`

	// Retries is how many times a failed fetch is retried.
	Retries int `yaml:"retries"`

	// Command is the child process link code is piped to, e.g.
	// [python3, "-"]. Required when Enabled is set.
	Command []string `yaml:"command"`

	// Env is the complete environment of the child process.
	Env []string `yaml:"env"`

	// EnvFile is a dotenv file whose variables are appended to Env.
	// Relative paths are resolved against the config file.
	EnvFile string `yaml:"env_file"`
}

// OutputConfig configures compiled output.
type OutputConfig struct {
	// Compression is none, zstd or lz4. Default: none.
	Compression string `yaml:"compression"`

	// Extension replaces the input extension. Default: .atff.
	Extension string `yaml:"extension"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "warn"},
		Links: LinksConfig{
			AllowedSchemes: []string{"https"},
			MaxBytes:       link.DefaultMaxBytes,
		},
		Output: OutputConfig{
			Compression: "none",
			Extension:   ".atff",
		},
	}
}

// Path returns the config file to load: flagValue if set, otherwise the
// value of ATFF_CONFIG. Empty means no file.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvVar)
}

// Load reads the YAML file at path over Default. An empty path returns
// Default. Unknown keys are an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		data = jsonc.ToJSON(data)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := cfg.loadEnvFile(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// loadEnvFile appends the variables of Links.EnvFile to Links.Env in
// key order.
func (c *Config) loadEnvFile(dir string) error {
	if c.Links.EnvFile == "" {
		return nil
	}
	p := c.Links.EnvFile
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	vars, err := godotenv.Read(p)
	if err != nil {
		return fmt.Errorf("links.env_file: %w", err)
	}
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		c.Links.Env = append(c.Links.Env, k+"="+vars[k])
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, ok := wire.ParseCompression(c.Output.Compression); !ok {
		errs = append(errs, fmt.Errorf("output.compression: unknown %q", c.Output.Compression))
	}
	if c.Output.Extension != "" && !strings.HasPrefix(c.Output.Extension, ".") {
		errs = append(errs, fmt.Errorf("output.extension: %q must start with '.'", c.Output.Extension))
	}
	if c.Links.Enabled && len(c.Links.Command) == 0 {
		errs = append(errs, errors.New("links.command: required when links.enabled is set"))
	}
	if c.Links.Timeout < 0 {
		errs = append(errs, errors.New("links.timeout: must not be negative"))
	}
	if c.Links.MaxBytes < 0 {
		errs = append(errs, errors.New("links.max_bytes: must not be negative"))
	}
	if c.Links.Retries < 0 {
		errs = append(errs, errors.New("links.retries: must not be negative"))
	}

	return errors.Join(errs...)
}

// Policy returns the link policy described by the config.
func (c *Config) Policy() link.Policy {
	return link.Policy{
		AllowedSchemes: c.Links.AllowedSchemes,
		AllowedHosts:   c.Links.AllowedHosts,
		Timeout:        c.Links.Timeout,
		MaxBytes:       c.Links.MaxBytes,
		Retries:        c.Links.Retries,
	}
}

// Compression returns the configured output compression.
func (c *Config) Compression() wire.Compression {
	comp, _ := wire.ParseCompression(c.Output.Compression)
	return comp
}
