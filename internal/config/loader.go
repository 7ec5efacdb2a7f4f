package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".blockphrase"

// APIKeyEnv is the environment variable holding the OpenAI API key.
const APIKeyEnv = "OPENAI_API_KEY"

// File is the structure of the .blockphrase configuration file.
// Zero values leave the corresponding Config field unchanged.
type File struct {
	Mode           string        `yaml:"mode,omitempty"`
	Provider       string        `yaml:"provider,omitempty"`
	Model          string        `yaml:"model,omitempty"`
	BaseURL        string        `yaml:"baseURL,omitempty"`
	MinCharacters  *int          `yaml:"minCharacters,omitempty"`
	MinSimilarity  *float64      `yaml:"minSimilarity,omitempty"`
	Store          string        `yaml:"store,omitempty"`
	DBDir          string        `yaml:"dbDir,omitempty"`
	RedisURL       string        `yaml:"redisURL,omitempty"`
	Concurrency    int           `yaml:"concurrency,omitempty"`
	BatchSize      int           `yaml:"batchSize,omitempty"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
	Timeout        time.Duration `yaml:"timeout,omitempty"`
	MaxBodySize    int64         `yaml:"maxBodySize,omitempty"`
	Selector       string        `yaml:"selector,omitempty"`
	Proxy          string        `yaml:"proxy,omitempty"`
	UserAgent      string        `yaml:"userAgent,omitempty"`
	OutputDir      string        `yaml:"outputDir,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// ApplyTo copies the values set in the file onto cfg.
func (cf *File) ApplyTo(cfg *Config) {
	setString(&cfg.Mode, cf.Mode)
	setString(&cfg.Provider, cf.Provider)
	setString(&cfg.Model, cf.Model)
	setString(&cfg.BaseURL, cf.BaseURL)
	setString(&cfg.Store, cf.Store)
	setString(&cfg.DBDir, cf.DBDir)
	setString(&cfg.RedisURL, cf.RedisURL)
	setString(&cfg.Selector, cf.Selector)
	setString(&cfg.ProxyAddress, cf.Proxy)
	setString(&cfg.UserAgent, cf.UserAgent)
	setString(&cfg.OutputDir, cf.OutputDir)

	if cf.MinCharacters != nil {
		cfg.MinCharacters = *cf.MinCharacters
	}
	if cf.MinSimilarity != nil {
		cfg.MinSimilarity = *cf.MinSimilarity
	}
	if cf.Concurrency != 0 {
		cfg.Concurrency = cf.Concurrency
	}
	if cf.BatchSize != 0 {
		cfg.BatchSize = cf.BatchSize
	}
	if cf.RequestTimeout != 0 {
		cfg.RequestTimeout = cf.RequestTimeout
	}
	if cf.Timeout != 0 {
		cfg.Timeout = cf.Timeout
	}
	if cf.MaxBodySize != 0 {
		cfg.MaxBodySize = cf.MaxBodySize
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .blockphrase in the current directory
// 3. Look for .blockphrase in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}
	return ""
}

// APIKeyFromEnv returns the OpenAI API key from the process environment or,
// failing that, from envFile (".env" when empty). The process environment
// is not modified.
func APIKeyFromEnv(envFile string) (string, error) {
	if key := os.Getenv(APIKeyEnv); key != "" {
		return key, nil
	}

	if envFile == "" {
		envFile = ".env"
	}
	values, err := godotenv.Read(envFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrAPIKeyNotFound
		}
		return "", fmt.Errorf("failed to read %s: %w", envFile, err)
	}

	if key := values[APIKeyEnv]; key != "" {
		return key, nil
	}
	return "", ErrAPIKeyNotFound
}
