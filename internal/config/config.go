package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/renderinc/tweetsweep/internal/twitter"
)

// EnvPrefix prefixes every environment variable, e.g. TWEETSWEEP_API_KEY
const EnvPrefix = "TWEETSWEEP"

// Config holds credentials, paths and API tuning
type Config struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string

	DataDir            string
	APIBaseURL         string
	LookupBatchSize    int
	RateLimitFallback  time.Duration
	ServerErrorBackoff time.Duration
	MaxServerRetries   int
	RequestsPerSecond  float64
	HTTPTimeout        time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "./data")
	v.SetDefault("api_base_url", twitter.DefaultBaseURL)
	v.SetDefault("lookup_batch_size", twitter.MaxLookupBatch)
	v.SetDefault("rate_limit_fallback", 15*time.Minute)
	v.SetDefault("server_error_backoff", 60*time.Second)
	v.SetDefault("max_server_retries", 0)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("http_timeout", 30*time.Second)
}

// Load reads configuration from .env, the environment and a YAML file.
// path may be empty, in which case $HOME/.config/tweetsweep/config.yaml is
// used if it exists.
func Load(path string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "tweetsweep"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return &Config{
		APIKey:             v.GetString("api_key"),
		APISecret:          v.GetString("api_secret"),
		AccessToken:        v.GetString("access_token"),
		AccessSecret:       v.GetString("access_secret"),
		DataDir:            v.GetString("data_dir"),
		APIBaseURL:         v.GetString("api_base_url"),
		LookupBatchSize:    v.GetInt("lookup_batch_size"),
		RateLimitFallback:  v.GetDuration("rate_limit_fallback"),
		ServerErrorBackoff: v.GetDuration("server_error_backoff"),
		MaxServerRetries:   v.GetInt("max_server_retries"),
		RequestsPerSecond:  v.GetFloat64("requests_per_second"),
		HTTPTimeout:        v.GetDuration("http_timeout"),
	}, nil
}

// Validate checks the config. Credentials are only needed for API commands.
func (c *Config) Validate(requireCredentials bool) error {
	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}
	if c.LookupBatchSize < 1 || c.LookupBatchSize > twitter.MaxLookupBatch {
		return fmt.Errorf("lookup_batch_size must be between 1 and %d, got %d", twitter.MaxLookupBatch, c.LookupBatchSize)
	}
	if c.MaxServerRetries < 0 {
		return fmt.Errorf("max_server_retries must not be negative, got %d", c.MaxServerRetries)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative, got %v", c.RequestsPerSecond)
	}

	if !requireCredentials {
		return nil
	}

	var missing []string
	for key, value := range map[string]string{
		"api_key":       c.APIKey,
		"api_secret":    c.APISecret,
		"access_token":  c.AccessToken,
		"access_secret": c.AccessSecret,
	} {
		if value == "" {
			missing = append(missing, strings.ToUpper(EnvPrefix+"_"+key))
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing credentials: set %s (environment, .env or config file)", strings.Join(missing, ", "))
	}
	return nil
}

// DBPath is the SQLite database location
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "tweets.db")
}

// IndexPath is the Bleve index location
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataDir, "bleve")
}

// ClientOptions converts the config into Twitter client options
func (c *Config) ClientOptions() twitter.Options {
	return twitter.Options{
		BaseURL: c.APIBaseURL,
		Credentials: twitter.Credentials{
			APIKey:       c.APIKey,
			APISecret:    c.APISecret,
			AccessToken:  c.AccessToken,
			AccessSecret: c.AccessSecret,
		},
		BatchSize:          c.LookupBatchSize,
		RateLimitFallback:  c.RateLimitFallback,
		ServerErrorBackoff: c.ServerErrorBackoff,
		MaxServerRetries:   c.MaxServerRetries,
		RequestsPerSecond:  c.RequestsPerSecond,
		HTTPTimeout:        c.HTTPTimeout,
	}
}
