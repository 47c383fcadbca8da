// Package config loads the operator configuration: the desired state for
// the managed OpenDKIM daemon plus the operator's own settings.
package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/milterops/opendkimctl/internal/opendkim"
)

// DefaultPath is where the operator configuration lives unless overridden
// on the command line.
const DefaultPath = "/etc/opendkimctl/opendkimctl.toml"

// Config is the operator configuration file.
type Config struct {
	// Workload is the desired state for the managed daemon.
	Workload struct {
		SigningTable string `toml:"signingtable"` // YAML document
		KeyTable     string `toml:"keytable"`     // YAML document
		PrivateKeys  string `toml:"private_keys"` // secret reference

		// Optional overrides; empty means daemon default.
		Canonicalization string `toml:"canonicalization"`
		Mode             string `toml:"mode"`
		InternalHosts    string `toml:"internalhosts"`
		SignHeaders      string `toml:"signheaders"`
	} `toml:"workload"`

	Paths struct {
		KeysDir    string `toml:"keys_dir"`
		ConfigPath string `toml:"config_path"`
		PeersDir   string `toml:"peers_dir"`
	} `toml:"paths"`

	Service struct {
		Unit            string `toml:"unit"`
		Owner           string `toml:"owner"`
		ValidateTimeout int    `toml:"validate_timeout"` // seconds
	} `toml:"service"`

	Secrets struct {
		Backend  string `toml:"backend"` // "file" or "redis"
		Path     string `toml:"path"`    // file backend
		Addr     string `toml:"addr"`    // redis backend
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"secrets"`

	API struct {
		Enabled    bool   `toml:"enabled"`
		ListenAddr string `toml:"listen_addr"`
	} `toml:"api"`

	Watch struct {
		Interval int `toml:"interval"` // seconds between config polls
	} `toml:"watch"`

	Logging struct {
		Level  string `toml:"level"`
		Format string `toml:"format"` // "text" or "json"
	} `toml:"logging"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Paths.KeysDir = opendkim.DefaultKeysDir
	cfg.Paths.ConfigPath = opendkim.DefaultConfigPath
	cfg.Paths.PeersDir = "/var/lib/opendkimctl/milters"

	cfg.Service.Unit = "opendkim"
	cfg.Service.Owner = opendkim.DefaultOwner
	cfg.Service.ValidateTimeout = 100

	cfg.Secrets.Backend = "file"
	cfg.Secrets.Path = "/etc/opendkimctl/secrets.yaml"

	cfg.API.Enabled = true
	cfg.API.ListenAddr = "127.0.0.1:9893"

	cfg.Watch.Interval = 5

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"

	return cfg
}

// LoadConfig reads and validates the configuration at path, or the default
// path when empty.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the operator's own settings. Workload values are not
// checked here: their validation belongs to the reconciliation cycle,
// which reports them as a blocked status instead of a startup failure.
func (c *Config) Validate() error {
	switch c.Secrets.Backend {
	case "file":
		if c.Secrets.Path == "" {
			return fmt.Errorf("secrets backend %q requires a path", c.Secrets.Backend)
		}
	case "redis":
	default:
		return fmt.Errorf("unknown secrets backend %q", c.Secrets.Backend)
	}

	if c.Service.ValidateTimeout <= 0 {
		return fmt.Errorf("validate_timeout must be positive, got %d", c.Service.ValidateTimeout)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch interval must be positive, got %d", c.Watch.Interval)
	}
	if c.API.Enabled && c.API.ListenAddr == "" {
		return fmt.Errorf("api enabled without a listen address")
	}
	return nil
}

// Inputs maps the workload section to the reconciler's raw inputs.
func (c *Config) Inputs() opendkim.Inputs {
	return opendkim.Inputs{
		SigningTable:     c.Workload.SigningTable,
		KeyTable:         c.Workload.KeyTable,
		PrivateKeysRef:   c.Workload.PrivateKeys,
		Canonicalization: c.Workload.Canonicalization,
		Mode:             c.Workload.Mode,
		InternalHosts:    c.Workload.InternalHosts,
		SignHeaders:      c.Workload.SignHeaders,
		KeysDir:          c.Paths.KeysDir,
		ConfigPath:       c.Paths.ConfigPath,
		Owner:            c.Service.Owner,
	}
}
