package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported database drivers for the embedding cache.
const (
	DriverNone   = "none"
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverBadger = "badger"
)

// DefaultAdapter is the adapter used when a request names none.
const DefaultAdapter = "default"

// DefaultAirlineThreshold is the minimum similarity of an airline match when none is configured.
const DefaultAirlineThreshold = 0.2

// Config holds the flightq service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Model     ModelConfig     `yaml:"model"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Airlines  AirlinesConfig  `yaml:"airlines"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the embedding cache backend settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // none, redis, valkey, badger (default: none)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"` // badger data directory
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	CacheTTLHours    int      `yaml:"cache_ttl_hours"` // 0 = no expiry
}

// ProviderConfig holds an OpenAI-compatible endpoint.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ModelConfig holds the language model and LoRA adapter settings.
type ModelConfig struct {
	Provider             ProviderConfig    `yaml:"provider"`
	BaseModel            string            `yaml:"base_model"`
	AdapterRoot          string            `yaml:"adapter_root"` // default: executable directory
	Adapters             map[string]string `yaml:"adapters"`     // name -> path, "" = base model
	MaxCachedAdapters    int               `yaml:"max_cached_adapters"`
	MaxNewTokens         int               `yaml:"max_new_tokens"`
	GenerationTimeoutSec int               `yaml:"generation_timeout_sec"`
	LoadTimeoutSec       int               `yaml:"load_timeout_sec"`
	StartupTimeoutSec    int               `yaml:"startup_timeout_sec"`
}

// EmbeddingConfig holds the sentence encoder settings.
type EmbeddingConfig struct {
	Provider   ProviderConfig `yaml:"provider"`
	Model      string         `yaml:"model"`
	Dimensions int            `yaml:"dimensions"` // 0 = model default
	BatchSize  int            `yaml:"batch_size"`
	Workers    int            `yaml:"workers"`
}

// AirlinesConfig holds the airline dataset and lookup settings.
type AirlinesConfig struct {
	DatasetPath  string   `yaml:"dataset_path"`
	Sheet        string   `yaml:"sheet"` // default: first sheet
	NameENColumn string   `yaml:"name_en_column"`
	NameARColumn string   `yaml:"name_ar_column"`
	CodeColumn   string   `yaml:"code_column"`
	TopK         int      `yaml:"top_k"`
	Threshold    *float64 `yaml:"threshold"` // nil = default; 0 is a valid threshold
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references, and applies defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// LookupThreshold returns the configured airline threshold, or the default when unset.
func (a AirlinesConfig) LookupThreshold() float64 {
	if a.Threshold == nil {
		return DefaultAirlineThreshold
	}
	return *a.Threshold
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 180
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 30
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverNone
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Model.BaseModel == "" {
		c.Model.BaseModel = "Qwen/Qwen2.5-7B-Instruct"
	}
	if c.Model.MaxCachedAdapters <= 0 {
		c.Model.MaxCachedAdapters = 8
	}
	if c.Model.MaxNewTokens <= 0 {
		c.Model.MaxNewTokens = 256
	}
	if c.Model.GenerationTimeoutSec <= 0 {
		c.Model.GenerationTimeoutSec = 120
	}
	if c.Model.LoadTimeoutSec <= 0 {
		c.Model.LoadTimeoutSec = 120
	}
	if c.Model.StartupTimeoutSec <= 0 {
		c.Model.StartupTimeoutSec = 30
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "sentence-transformers/LaBSE"
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Embedding.Workers <= 0 {
		c.Embedding.Workers = 4
	}
	if c.Airlines.NameENColumn == "" {
		c.Airlines.NameENColumn = "name_en"
	}
	if c.Airlines.NameARColumn == "" {
		c.Airlines.NameARColumn = "name_ar"
	}
	if c.Airlines.CodeColumn == "" {
		c.Airlines.CodeColumn = "airline_code"
	}
	if c.Airlines.TopK <= 0 {
		c.Airlines.TopK = 1
	}
	if c.Airlines.Threshold == nil {
		threshold := DefaultAirlineThreshold
		c.Airlines.Threshold = &threshold
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverNone:
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverBadger:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if c.Model.Provider.BaseURL == "" {
		return fmt.Errorf("model.provider.base_url is required")
	}
	if c.Embedding.Provider.BaseURL == "" {
		return fmt.Errorf("embedding.provider.base_url is required")
	}
	if _, ok := c.Model.Adapters[DefaultAdapter]; !ok {
		return fmt.Errorf("model.adapters must register the %q adapter", DefaultAdapter)
	}
	if c.Airlines.DatasetPath == "" {
		return fmt.Errorf("airlines.dataset_path is required")
	}
	if t := c.Airlines.LookupThreshold(); t < -1 || t > 1 {
		return fmt.Errorf("airlines.threshold must be within [-1, 1], got %g", t)
	}
	return nil
}

// ResolveAdapterRoot returns the directory relative adapter paths are resolved against.
func (c *Config) ResolveAdapterRoot() string {
	if c.Model.AdapterRoot != "" {
		return c.Model.AdapterRoot
	}
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
