package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/glucokeeper/internal/flagx"
	"github.com/dmitrijs2005/glucokeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	CacheBackend        string         `json:"cache_backend"`
	CachePath           string         `json:"cache_path"`
	RemoteBackend       string         `json:"remote_backend"`
	DatabaseDSN         string         `json:"database_dsn"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3AccessKey         string         `json:"s3_access_key"`
	S3SecretKey         string         `json:"s3_secret_key"`
	SecretKey           string         `json:"secret_key"`
	TokenValidity       timex.Duration `json:"token_validity"`
	RemoteTimeout       timex.Duration `json:"remote_timeout"`
	StatusDisplayWindow timex.Duration `json:"status_display_window"`
	SnowflakeNode       int64          `json:"snowflake_node"`
	DedupWithinBatch    bool           `json:"dedup_within_batch"`
	LogLevel            string         `json:"log_level"`
	LogFormat           string         `json:"log_format"`
	Location            string         `json:"location"`
}

func toJson(c *Config) JsonConfig {
	return JsonConfig{
		CacheBackend:        c.CacheBackend,
		CachePath:           c.CachePath,
		RemoteBackend:       c.RemoteBackend,
		DatabaseDSN:         c.DatabaseDSN,
		S3Bucket:            c.S3Bucket,
		S3Region:            c.S3Region,
		S3BaseEndpoint:      c.S3BaseEndpoint,
		S3AccessKey:         c.S3AccessKey,
		S3SecretKey:         c.S3SecretKey,
		SecretKey:           c.SecretKey,
		TokenValidity:       timex.Duration{Duration: c.TokenValidity},
		RemoteTimeout:       timex.Duration{Duration: c.RemoteTimeout},
		StatusDisplayWindow: timex.Duration{Duration: c.StatusDisplayWindow},
		SnowflakeNode:       c.SnowflakeNode,
		DedupWithinBatch:    c.DedupWithinBatch,
		LogLevel:            c.LogLevel,
		LogFormat:           c.LogFormat,
		Location:            c.Location,
	}
}

func (jc JsonConfig) apply(c *Config) {
	c.CacheBackend = jc.CacheBackend
	c.CachePath = jc.CachePath
	c.RemoteBackend = jc.RemoteBackend
	c.DatabaseDSN = jc.DatabaseDSN
	c.S3Bucket = jc.S3Bucket
	c.S3Region = jc.S3Region
	c.S3BaseEndpoint = jc.S3BaseEndpoint
	c.S3AccessKey = jc.S3AccessKey
	c.S3SecretKey = jc.S3SecretKey
	c.SecretKey = jc.SecretKey
	c.TokenValidity = jc.TokenValidity.Duration
	c.RemoteTimeout = jc.RemoteTimeout.Duration
	c.StatusDisplayWindow = jc.StatusDisplayWindow.Duration
	c.SnowflakeNode = jc.SnowflakeNode
	c.DedupWithinBatch = jc.DedupWithinBatch
	c.LogLevel = jc.LogLevel
	c.LogFormat = jc.LogFormat
	c.Location = jc.Location
}

// parseJson overlays cfg with values from the file named by -c or -config.
// Keys missing from the file keep their current value. Without either flag
// nothing is loaded.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	jc := toJson(cfg)
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	jc.apply(cfg)
	return nil
}
