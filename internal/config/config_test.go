package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"API_KEY", "API_SECRET", "ACCESS_TOKEN", "ACCESS_SECRET", "DATA_DIR", "LOOKUP_BATCH_SIZE"} {
		t.Setenv(EnvPrefix+"_"+key, "")
		os.Unsetenv(EnvPrefix + "_" + key)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, 100, cfg.LookupBatchSize)
	assert.Equal(t, 15*time.Minute, cfg.RateLimitFallback)
	assert.Equal(t, 60*time.Second, cfg.ServerErrorBackoff)
	assert.Equal(t, 0, cfg.MaxServerRetries)
	assert.Equal(t, "https://api.twitter.com/1.1", cfg.APIBaseURL)
	assert.NoError(t, cfg.Validate(false))
	assert.Error(t, cfg.Validate(true))
}

func TestLoadFromEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("TWEETSWEEP_API_KEY", "key")
	t.Setenv("TWEETSWEEP_API_SECRET", "secret")
	t.Setenv("TWEETSWEEP_ACCESS_TOKEN", "token")
	t.Setenv("TWEETSWEEP_ACCESS_SECRET", "token-secret")
	t.Setenv("TWEETSWEEP_LOOKUP_BATCH_SIZE", "50")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "token-secret", cfg.AccessSecret)
	assert.Equal(t, 50, cfg.LookupBatchSize)
	assert.NoError(t, cfg.Validate(true))

	opts := cfg.ClientOptions()
	assert.Equal(t, "token", opts.Credentials.AccessToken)
	assert.Equal(t, 50, opts.BatchSize)
}

func TestLoadFromFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
api_key: file-key
api_secret: file-secret
access_token: file-token
access_secret: file-token-secret
data_dir: /var/lib/tweetsweep
rate_limit_fallback: 5m
max_server_retries: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "/var/lib/tweetsweep", cfg.DataDir)
	assert.Equal(t, 5*time.Minute, cfg.RateLimitFallback)
	assert.Equal(t, 3, cfg.MaxServerRetries)
	assert.Equal(t, "/var/lib/tweetsweep/tweets.db", cfg.DBPath())
	assert.Equal(t, "/var/lib/tweetsweep/bleve", cfg.IndexPath())
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		APIKey: "k", APISecret: "s", AccessToken: "t", AccessSecret: "ts",
		DataDir: "./data", LookupBatchSize: 100,
	}
	require.NoError(t, valid.Validate(true))

	tests := map[string]func(c *Config){
		"empty data dir":   func(c *Config) { c.DataDir = "" },
		"batch too big":    func(c *Config) { c.LookupBatchSize = 101 },
		"batch zero":       func(c *Config) { c.LookupBatchSize = 0 },
		"negative retries": func(c *Config) { c.MaxServerRetries = -1 },
		"negative rate":    func(c *Config) { c.RequestsPerSecond = -1 },
		"missing secret":   func(c *Config) { c.AccessSecret = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate(true))
		})
	}
}

func TestValidateNamesMissingCredentials(t *testing.T) {
	c := Config{DataDir: "./data", LookupBatchSize: 100, APIKey: "k", APISecret: "s"}

	err := c.Validate(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TWEETSWEEP_ACCESS_SECRET, TWEETSWEEP_ACCESS_TOKEN")
}
