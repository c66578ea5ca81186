package config

import (
	"fmt"
	"os"
	"time"
)

const (
	CacheSQLite = "sqlite"
	CacheDiskv  = "diskv"

	RemoteMemory   = "memory"
	RemoteS3       = "s3"
	RemotePostgres = "postgres"
)

// Config holds runtime settings for the glucokeeper CLI.
//
// Durations are time.Duration values; Location is an IANA zone name or
// "Local" and applies to CSV datetimes without an explicit offset.
type Config struct {
	CacheBackend string
	CachePath    string

	RemoteBackend  string
	DatabaseDSN    string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	S3AccessKey    string
	S3SecretKey    string

	SecretKey     string
	TokenValidity time.Duration

	RemoteTimeout       time.Duration
	StatusDisplayWindow time.Duration
	SnowflakeNode       int64
	DedupWithinBatch    bool

	LogLevel  string
	LogFormat string
	Location  string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.CacheBackend = CacheSQLite
	c.CachePath = "data"
	c.RemoteBackend = RemoteMemory
	c.S3Region = "us-east-1"
	c.TokenValidity = 24 * time.Hour
	c.RemoteTimeout = 10 * time.Second
	c.StatusDisplayWindow = 3 * time.Second
	c.SnowflakeNode = 1
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.Location = "Local"
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case CacheSQLite, CacheDiskv:
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	switch c.RemoteBackend {
	case RemoteMemory:
	case RemoteS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("s3 remote requires a bucket")
		}
	case RemotePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("postgres remote requires a database dsn")
		}
	default:
		return fmt.Errorf("unknown remote backend %q", c.RemoteBackend)
	}
	if c.SnowflakeNode < 0 || c.SnowflakeNode > 1023 {
		return fmt.Errorf("snowflake node %d out of range 0..1023", c.SnowflakeNode)
	}
	if _, err := c.TimeLocation(); err != nil {
		return err
	}
	return nil
}

// TimeLocation resolves Location.
func (c *Config) TimeLocation() (*time.Location, error) {
	if c.Location == "" || c.Location == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Location)
	if err != nil {
		return nil, fmt.Errorf("location %q: %w", c.Location, err)
	}
	return loc, nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() (*Config, error) {
	return load(os.Args[1:])
}

func load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
