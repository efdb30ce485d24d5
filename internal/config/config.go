package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Server struct {
		Port            string        `yaml:"port"`
		Debug           bool          `yaml:"debug"`
		LogLevel        string        `yaml:"log_level"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	ML struct {
		Type            string        `yaml:"type"` // "gemini", "vertex" or "local"
		APIKey          string        `yaml:"api_key"`
		ProjectID       string        `yaml:"project_id"`
		Location        string        `yaml:"location"`
		CredentialsFile string        `yaml:"credentials_file"`
		OllamaHost      string        `yaml:"ollama_host"`
		Timeout         time.Duration `yaml:"timeout"`
		Models          Models        `yaml:"models"`
	} `yaml:"ml"`

	Locale struct {
		Language string `yaml:"language"`
		File     string `yaml:"file"`
		Watch    bool   `yaml:"watch"`
	} `yaml:"locale"`

	Walks struct {
		AddressCacheSize int `yaml:"address_cache_size"`
	} `yaml:"walks"`
}

// Models names the model used for each kind of request.
type Models struct {
	Fast    string `yaml:"fast"`    // augmented (search/maps) calls, routes, addresses
	Quality string `yaml:"quality"` // plain chat, roadmap
	Vision  string `yaml:"vision"`  // food photos
	Live    string `yaml:"live"`    // voice sessions
}

// LoadConfig loads configuration from a YAML file. A missing file is not an
// error: defaults and environment variables are used instead.
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var config Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("WELLNESS_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("WELLNESS_ML_TYPE"); v != "" {
		c.ML.Type = v
	}
	if c.ML.APIKey == "" {
		c.ML.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.ML.ProjectID == "" {
		c.ML.ProjectID = os.Getenv("GOOGLE_PROJECT_ID")
	}
	if c.ML.Location == "" {
		c.ML.Location = os.Getenv("GOOGLE_LOCATION")
	}
	if c.ML.CredentialsFile == "" {
		c.ML.CredentialsFile = os.Getenv("GOOGLE_CREDENTIALS_FILE")
	}
	if c.ML.OllamaHost == "" {
		c.ML.OllamaHost = os.Getenv("OLLAMA_HOST")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Path == "" {
		c.Database.Path = "wellness.db"
	}
	if c.ML.Type == "" {
		c.ML.Type = "gemini"
	}
	if c.ML.Location == "" {
		c.ML.Location = "us-central1"
	}
	if c.ML.OllamaHost == "" {
		c.ML.OllamaHost = "http://localhost:11434"
	}
	if c.ML.Timeout == 0 {
		c.ML.Timeout = 15 * time.Second
	}
	if c.ML.Models.Fast == "" {
		c.ML.Models.Fast = "gemini-2.5-flash"
	}
	if c.ML.Models.Quality == "" {
		c.ML.Models.Quality = "gemini-2.5-pro"
	}
	if c.ML.Models.Vision == "" {
		c.ML.Models.Vision = c.ML.Models.Quality
	}
	if c.ML.Models.Live == "" {
		c.ML.Models.Live = "gemini-2.5-flash-native-audio-preview-09-2025"
	}
	if c.Locale.Language == "" {
		c.Locale.Language = "ru"
	}
	if c.Walks.AddressCacheSize == 0 {
		c.Walks.AddressCacheSize = 256
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.ML.Type {
	case "gemini", "vertex", "local":
	default:
		return fmt.Errorf("unsupported ml type: %s", c.ML.Type)
	}
	if c.ML.Timeout < 0 {
		return fmt.Errorf("ml timeout must not be negative")
	}
	return nil
}

// GetConfigPath returns the path to the configuration file
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("WELLNESS_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.yaml")
	}

	// Finally, try current directory
	return "config.yaml"
}
