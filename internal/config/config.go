package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Profiles select which store groups are bound at startup.
const (
	ProfileFull       = "full"       // current + legacy + document
	ProfileRelational = "relational" // current + legacy
	ProfileStandalone = "standalone" // current only
)

// Relational store groups.
const (
	GroupCurrent = "current"
	GroupLegacy  = "legacy"
)

var (
	ErrUnknownProfile   = errors.New("config: unknown profile")
	ErrUnknownPrimary   = errors.New("config: primary must be current or legacy")
	ErrPrimaryUnbound   = errors.New("config: primary store is not bound by the profile")
	ErrUnknownDriver    = errors.New("config: driver must be postgres or sqlite")
	ErrMissingDSN       = errors.New("config: dsn is required")
	ErrMissingMongoURI  = errors.New("config: document.uri is required when the document store is enabled")
	ErrMissingMongoName = errors.New("config: document.database is required when the document store is enabled")
)

type Config struct {
	Addr       string        `yaml:"addr"`
	APITimeout time.Duration `yaml:"timeout"`
	Profile    string        `yaml:"profile"`
	Primary    string        `yaml:"primary"`
	// MigrateOnStart applies embedded migrations and seeds to every bound
	// relational store before serving.
	MigrateOnStart bool   `yaml:"migrate_on_start"`
	Stores         Stores `yaml:"stores"`
}

type Stores struct {
	Current  DBConfig       `yaml:"current"`
	Legacy   DBConfig       `yaml:"legacy"`
	Document DocumentConfig `yaml:"document"`
}

type DBConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type DocumentConfig struct {
	Enabled  bool          `yaml:"enabled"`
	URI      string        `yaml:"uri"`
	Database string        `yaml:"database"`
	Timeout  time.Duration `yaml:"timeout"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second

	cfg := &Config{
		Addr:       getEnv("CDD_ADDR", ":8080"),
		APITimeout: apiTimeout,
		Profile:    getEnv("CDD_PROFILE", ProfileStandalone),
		Primary:    getEnv("CDD_PRIMARY", GroupCurrent),
		Stores: Stores{
			Current: DBConfig{
				Driver: getEnv("CDD_CURRENT_DRIVER", "sqlite"),
				DSN:    getEnv("CDD_CURRENT_DSN", "cdd.db"),
			},
			Legacy: DBConfig{
				Driver: getEnv("CDD_LEGACY_DRIVER", "sqlite"),
				DSN:    getEnv("CDD_LEGACY_DSN", "cdd_legacy.db"),
			},
			Document: DocumentConfig{
				Enabled:  getEnvBool("CDD_DOCUMENT_ENABLED", false),
				URI:      getEnv("CDD_MONGO_URI", "mongodb://localhost:27017"),
				Database: getEnv("CDD_MONGO_DATABASE", "cdd"),
				Timeout:  10 * time.Second,
			},
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the profile, primary and driver combination.
func (c *Config) Validate() error {
	if c.APITimeout <= 0 {
		c.APITimeout = 15 * time.Second
	}

	switch c.Profile {
	case ProfileFull, ProfileRelational, ProfileStandalone:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownProfile, c.Profile)
	}

	switch c.Primary {
	case GroupCurrent:
	case GroupLegacy:
		if c.Profile == ProfileStandalone {
			return ErrPrimaryUnbound
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPrimary, c.Primary)
	}

	if err := c.Stores.Current.validate(GroupCurrent); err != nil {
		return err
	}
	if c.Profile != ProfileStandalone {
		if err := c.Stores.Legacy.validate(GroupLegacy); err != nil {
			return err
		}
	}

	if c.DocumentEnabled() {
		if c.Stores.Document.URI == "" {
			return ErrMissingMongoURI
		}
		if c.Stores.Document.Database == "" {
			return ErrMissingMongoName
		}
		if c.Stores.Document.Timeout <= 0 {
			c.Stores.Document.Timeout = 10 * time.Second
		}
	}

	return nil
}

// LegacyBound reports whether the profile binds the legacy store.
func (c *Config) LegacyBound() bool {
	return c.Profile == ProfileFull || c.Profile == ProfileRelational
}

// DocumentEnabled reports whether the document store is bound: the profile
// must include it and the enabled flag must be set.
func (c *Config) DocumentEnabled() bool {
	return c.Profile == ProfileFull && c.Stores.Document.Enabled
}

func (d DBConfig) validate(group string) error {
	if d.Driver != "postgres" && d.Driver != "sqlite" {
		return fmt.Errorf("%w: %s.driver=%q", ErrUnknownDriver, group, d.Driver)
	}
	if d.DSN == "" {
		return fmt.Errorf("%w: %s", ErrMissingDSN, group)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
