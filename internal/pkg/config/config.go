// Package config holds the runtime configuration of the dashboard binaries.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Prefix is the environment variable namespace.
const Prefix = "DASHBOARD"

// Backends of the record store and the change feed.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
	FeedPostgres  = "postgres"
	FeedRedis     = "redis"
)

// ErrMissingDatabase is returned when the postgres store lacks credentials.
var ErrMissingDatabase = errors.New("missing required database configuration")

type Web struct {
	APIHost         string        `conf:"default:0.0.0.0:8080"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:0s"`
	ShutdownTimeout time.Duration `conf:"default:10s"`
	AllowedOrigins  []string      `conf:"default:*"`
}

type DB struct {
	File         string `conf:"default:config.yaml"`
	User         string
	Password     string `conf:"noprint"`
	Host         string
	Port         string `conf:"default:5432"`
	Name         string
	DisableTLS   bool `conf:"default:true"`
	MaxOpenConns int  `conf:"default:10"`
	Debug        bool
}

type Redis struct {
	Addr     string `conf:"default:localhost:6379"`
	Password string `conf:"noprint"`
	DB       int    `conf:"default:0"`
	Channel  string `conf:"default:attendance_changes"`
}

type Auth struct {
	Key           string        `conf:"noprint"`
	Issuer        string        `conf:"default:attendance-dashboard"`
	TTL           time.Duration `conf:"default:12h"`
	AdminUser     string        `conf:"default:admin"`
	AdminHash     string        `conf:"noprint"`
	DashboardUser string        `conf:"default:dashboard"`
	DashboardHash string        `conf:"noprint"`
}

type Policy struct {
	LateAfter string `conf:"default:09:00:00"`
	Location  string
	Rollover  time.Duration `conf:"default:1m"`
}

type Config struct {
	Store  string `conf:"default:postgres"`
	Feed   string `conf:"default:postgres"`
	Web    Web
	DB     DB
	Redis  Redis
	Auth   Auth
	Policy Policy
	Args   conf.Args
}

// file is the optional yaml file holding database credentials.
type file struct {
	DBUsername string `yaml:"db_username"`
	DBPassword string `yaml:"db_password"`
	DBHost     string `yaml:"db_host"`
	DBPort     string `yaml:"port"`
	DBName     string `yaml:"db_name"`
	DisableTLS *bool  `yaml:"disable_tls"`
	JWTKey     string `yaml:"jwt_key"`
}

// Load parses and validates the configuration of the API.
func Load(args []string) (Config, error) {
	cfg, err := Parse(args)
	if err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Parse reads flags and DASHBOARD_ environment variables and overlays the
// yaml file. conf.ErrHelpWanted is returned unwrapped.
func Parse(args []string) (Config, error) {
	var cfg Config
	if err := conf.Parse(args, Prefix, &cfg); err != nil {
		if err == conf.ErrHelpWanted {
			return cfg, err
		}
		return cfg, errors.Wrap(err, "parsing config")
	}

	return cfg, cfg.overlay(cfg.DB.File)
}

// Usage renders the --help text.
func Usage() (string, error) {
	var cfg Config
	return conf.Usage(Prefix, &cfg)
}

// String renders the configuration without secrets.
func (c *Config) String() (string, error) {
	return conf.String(c)
}

// overlay fills database and key fields that flags and env left empty. A
// missing file is not an error.
func (c *Config) overlay(path string) error {
	if path == "" {
		return nil
	}

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "reading %s", path)
	}

	var f file
	if err := yaml.Unmarshal(yamlFile, &f); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}

	fill(&c.DB.User, f.DBUsername)
	fill(&c.DB.Password, f.DBPassword)
	fill(&c.DB.Host, f.DBHost)
	fill(&c.DB.Name, f.DBName)
	fill(&c.Auth.Key, f.JWTKey)
	if f.DBPort != "" {
		c.DB.Port = f.DBPort
	}
	if f.DisableTLS != nil {
		c.DB.DisableTLS = *f.DisableTLS
	}

	return nil
}

// Validate checks the backend names and required fields.
func (c Config) Validate() error {
	switch c.Store {
	case StorePostgres:
		if err := c.ValidateDB(); err != nil {
			return err
		}
	case StoreMemory:
	default:
		return errors.Errorf("unknown store %q", c.Store)
	}

	switch c.Feed {
	case FeedPostgres:
	case FeedRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis feed requires an address")
		}
	default:
		return errors.Errorf("unknown feed %q", c.Feed)
	}

	if strings.TrimSpace(c.Auth.Key) == "" {
		return errors.New("missing jwt key")
	}

	return nil
}

// ValidateDB checks the database credentials.
func (c Config) ValidateDB() error {
	if c.DB.User == "" || c.DB.Password == "" || c.DB.Host == "" || c.DB.Name == "" {
		return ErrMissingDatabase
	}
	return nil
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
