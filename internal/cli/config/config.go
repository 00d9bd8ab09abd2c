package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the working directory,
// without extension.
const FileName = "backport"

// Config represents the backport configuration
type Config struct {
	Rules        []string  `mapstructure:"rules"`
	Libraries    []string  `mapstructure:"libraries"`
	Output       string    `mapstructure:"output"`
	Jobs         int       `mapstructure:"jobs"`
	Incremental  bool      `mapstructure:"incremental"`
	CheckMissing bool      `mapstructure:"check_missing"`
	DontWarn     []string  `mapstructure:"dont_warn"`
	Log          LogConfig `mapstructure:"log"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Verbose bool `mapstructure:"verbose"`
	JSON    bool `mapstructure:"json"`
}

// Load loads the configuration from backport.yml or backport.yaml in the
// working directory. Every key can be overridden from the environment with
// the BACKPORT_ prefix, for example BACKPORT_LOG_VERBOSE=true.
func Load() (*Config, error) {
	return LoadFrom(".")
}

// LoadFrom loads the configuration from dir
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("rules", []string{})
	v.SetDefault("libraries", []string{})
	v.SetDefault("output", "build/backport")
	v.SetDefault("jobs", 0)
	v.SetDefault("incremental", false)
	v.SetDefault("check_missing", true)
	v.SetDefault("dont_warn", []string{})
	v.SetDefault("log.verbose", false)
	v.SetDefault("log.json", false)

	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("BACKPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if file := v.ConfigFileUsed(); file != "" {
		config.resolvePaths(filepath.Dir(file))
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// resolvePaths makes relative paths in the file relative to its directory
func (c *Config) resolvePaths(base string) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	for i, r := range c.Rules {
		c.Rules[i] = resolve(r)
	}
	for i, l := range c.Libraries {
		c.Libraries[i] = resolve(l)
	}
	c.Output = resolve(c.Output)
}

// InProject checks if the current directory has a backport.yml
func InProject() bool {
	for _, name := range []string{FileName + ".yml", FileName + ".yaml"} {
		if _, err := os.Stat(name); err == nil {
			return true
		}
	}
	return false
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got: %d", cfg.Jobs)
	}
	for _, r := range cfg.Rules {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("rules must not contain empty paths")
		}
	}
	return nil
}
