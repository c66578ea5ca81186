// Package config loads runtime configuration for the glucokeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds. Keys left out keep their default:
//
//	{
//	  "cache_backend": "diskv",
//	  "cache_path": "data",
//	  "remote_backend": "s3",
//	  "s3_bucket": "glucokeeper",
//	  "s3_base_endpoint": "http://localhost:9000",
//	  "remote_timeout": "5s",
//	  "log_format": "zap"
//	}
//
// Note: This package does not read environment variables directly; the S3
// backend still falls back to the AWS default credential chain when no
// keys are configured.
package config
