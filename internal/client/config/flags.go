package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/glucokeeper/internal/flagx"
)

var knownFlags = []string{
	"-cache", "-cache-path",
	"-remote", "-d",
	"-s3-bucket", "-s3-region", "-s3-endpoint", "-s3-access-key", "-s3-secret-key",
	"-k", "-token-validity",
	"-t", "-status-window",
	"-node", "-dedup-within-batch",
	"-log-level", "-log-format", "-tz",
}

// parseFlags populates Config fields from command-line flags. Only the flags
// listed in knownFlags are considered; -c/-config and anything else is left
// to other parsers. Boolean flags must use the -flag=value form to be
// followed by other flags.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("glucokeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.CacheBackend, "cache", cfg.CacheBackend, "local cache backend: sqlite or diskv")
	fs.StringVar(&cfg.CachePath, "cache-path", cfg.CachePath, "directory for the local cache")
	fs.StringVar(&cfg.RemoteBackend, "remote", cfg.RemoteBackend, "remote store: memory, s3 or postgres")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "postgres dsn for the remote store")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "s3 bucket")
	fs.StringVar(&cfg.S3Region, "s3-region", cfg.S3Region, "s3 region")
	fs.StringVar(&cfg.S3BaseEndpoint, "s3-endpoint", cfg.S3BaseEndpoint, "s3 endpoint override (minio, localstack)")
	fs.StringVar(&cfg.S3AccessKey, "s3-access-key", cfg.S3AccessKey, "s3 access key id")
	fs.StringVar(&cfg.S3SecretKey, "s3-secret-key", cfg.S3SecretKey, "s3 secret access key")
	fs.StringVar(&cfg.SecretKey, "k", cfg.SecretKey, "token signing key")
	fs.DurationVar(&cfg.TokenValidity, "token-validity", cfg.TokenValidity, "session token lifetime")
	fs.DurationVar(&cfg.RemoteTimeout, "t", cfg.RemoteTimeout, "timeout of a single remote call")
	fs.DurationVar(&cfg.StatusDisplayWindow, "status-window", cfg.StatusDisplayWindow, "how long synced/error stays visible")
	fs.Int64Var(&cfg.SnowflakeNode, "node", cfg.SnowflakeNode, "snowflake node number (0-1023)")
	fs.BoolVar(&cfg.DedupWithinBatch, "dedup-within-batch", cfg.DedupWithinBatch, "also drop duplicates inside one import")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text, json or zap")
	fs.StringVar(&cfg.Location, "tz", cfg.Location, "time zone for csv datetimes without offset")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
