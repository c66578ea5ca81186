package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	defaults := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	tests := []struct {
		name     string
		args     []string
		expected func() *Config
		wantErr  bool
	}{
		{
			name:     "no flags keeps defaults",
			args:     nil,
			expected: defaults,
		},
		{
			name: "remote and timings",
			args: []string{"-remote", "postgres", "-d", "postgres://u@h/db", "-t", "2s", "-status-window", "500ms"},
			expected: func() *Config {
				c := defaults()
				c.RemoteBackend = RemotePostgres
				c.DatabaseDSN = "postgres://u@h/db"
				c.RemoteTimeout = 2 * time.Second
				c.StatusDisplayWindow = 500 * time.Millisecond
				return c
			},
		},
		{
			name: "s3 and bool with equals",
			args: []string{"-s3-bucket", "bk", "-s3-endpoint=http://localhost:9000", "-dedup-within-batch=true", "-node", "7"},
			expected: func() *Config {
				c := defaults()
				c.S3Bucket = "bk"
				c.S3BaseEndpoint = "http://localhost:9000"
				c.DedupWithinBatch = true
				c.SnowflakeNode = 7
				return c
			},
		},
		{
			name: "unknown flags are ignored",
			args: []string{"-c", "cfg.json", "-x", "1", "-log-level", "debug"},
			expected: func() *Config {
				c := defaults()
				c.LogLevel = "debug"
				return c
			},
		},
		{
			name:     "bad duration",
			args:     []string{"-t", "soon"},
			expected: defaults,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected(), cfg))
		})
	}
}
