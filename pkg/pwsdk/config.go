package pwsdk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	BaseURL string `mapstructure:"baseUrl"`
	APIKey  string `mapstructure:"apiKey"`
	User    string `mapstructure:"user"`

	v *viper.Viper // instance-specific viper
}

const (
	EnvPrefix  = "PW"
	ConfigName = "pwrun"
	ConfigRoot = ".pwrun"

	BaseURLKey = "baseUrl"
	APIKeyKey  = "apiKey"

	// APIKeyEnv is the environment variable consumers of the platform
	// already have set; it is bound explicitly so the viper key name does
	// not dictate its spelling.
	APIKeyEnv = "PW_API_KEY"
)

// LoadConfig creates a new Config instance with its own viper.
// This is the only way to load config (no global state).
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(APIKeyKey, APIKeyEnv); err != nil {
		return nil, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	} else {
		// Project config (tracked) - pwrun.yaml in current directory
		for _, name := range []string{"pwrun.yaml", "pwrun.yml", ".pwrun.yaml"} {
			if _, err := os.Stat(name); err == nil {
				v.SetConfigFile(name)
				if err := v.ReadInConfig(); err == nil {
					break
				}
			}
		}

		// Merge local overrides (untracked) - .pwrun/config.yaml
		localConfigPath := filepath.Join(ConfigRoot, "config.yaml")
		if _, err := os.Stat(localConfigPath); err == nil {
			v.SetConfigFile(localConfigPath)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merging local config: %w", err)
			}
		}
	}

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Env-only values do not survive Unmarshal reliably, read them back
	// through the bound keys.
	cfg.BaseURL = v.GetString(BaseURLKey)
	if key := v.GetString(APIKeyKey); key != "" {
		cfg.APIKey = key
	}

	cfg.v = v
	return &cfg, nil
}

// GetString returns a string value from the underlying viper instance.
func (c *Config) GetString(key string) string {
	if c.v == nil {
		return ""
	}
	return c.v.GetString(key)
}

// Viper returns the underlying viper instance, useful for CLI flag binding.
func (c *Config) Viper() *viper.Viper {
	return c.v
}

// ConfigFileUsed returns the config file that was used (if any).
func (c *Config) ConfigFileUsed() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

func setDefaults(v *viper.Viper) {
	if !v.IsSet(BaseURLKey) {
		v.SetDefault(BaseURLKey, "https://cloud.parallel.works")
	} else {
		normalized := strings.TrimRight(v.GetString(BaseURLKey), "/")
		v.Set(BaseURLKey, normalized)
	}
}

// PollSettings tunes the status polling loop. Values come from PW_POLL_*
// environment variables with sensible defaults; they are resolved once in
// the CLI layer and passed explicitly into each execution.
type PollSettings struct {
	InitialInterval time.Duration `envconfig:"POLL_INITIAL_INTERVAL" default:"5s"`
	MaxInterval     time.Duration `envconfig:"POLL_MAX_INTERVAL" default:"60s"`
	BackoffFactor   float64       `envconfig:"POLL_BACKOFF_FACTOR" default:"1.5"`
	FailureBudget   int           `envconfig:"POLL_FAILURE_BUDGET" default:"3"`
}

// LoadPollSettings reads polling overrides from the environment.
func LoadPollSettings() (PollSettings, error) {
	var s PollSettings
	if err := envconfig.Process(strings.ToLower(EnvPrefix), &s); err != nil {
		return PollSettings{}, fmt.Errorf("reading poll settings: %w", err)
	}
	return s, nil
}
