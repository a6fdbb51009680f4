package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Extensions accepted when the config does not provide its own allow-list.
// Documents and images only; nothing executable or scriptable, since stored
// files are served back over HTTP.
var defaultAllowedExtensions = []string{
	"jpg", "jpeg", "png", "gif", "webp", "bmp",
	"pdf", "txt", "md", "csv",
	"doc", "docx", "xls", "xlsx", "ppt", "pptx",
}

// DefaultMaxUploadSize is the upload size ceiling applied when the config
// does not set one (10 MiB).
const DefaultMaxUploadSize = 10 << 20

// LoadConfig loads the configuration from the specified YAML file
func LoadConfig(configPath string) (*Config, error) {
	// Ensure the config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	// Parse the YAML
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Validate and set defaults
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation error: %v", err)
	}

	return config, nil
}

func validateConfig(config *Config) error {
	// Set defaults if not specified
	if config.Server.Port == "" {
		config.Server.Port = "8000"
	}

	if config.Server.StorageDir == "" {
		config.Server.StorageDir = "uploads"
	}

	if config.Server.PublicBaseURL == "" {
		config.Server.PublicBaseURL = "http://127.0.0.1:" + config.Server.Port
	}

	if config.Upload.MaxSizeBytes == 0 {
		config.Upload.MaxSizeBytes = DefaultMaxUploadSize
	}
	if config.Upload.MaxSizeBytes < 0 {
		return fmt.Errorf("maxSizeBytes must be positive, got %d", config.Upload.MaxSizeBytes)
	}

	if len(config.Upload.AllowedExtensions) == 0 {
		config.Upload.AllowedExtensions = defaultAllowedExtensions
	}

	if config.Security.EnableCORS && len(config.Security.CORSOrigins) == 0 {
		config.Security.CORSOrigins = []string{"http://localhost:3000"}
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	// Ensure the storage root exists or can be created
	if err := os.MkdirAll(config.Server.StorageDir, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %v", config.Server.StorageDir, err)
	}

	return nil
}
