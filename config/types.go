package config

type Config struct {
	Server struct {
		Port          string `yaml:"port"`
		StorageDir    string `yaml:"storageDir"`
		PublicBaseURL string `yaml:"publicBaseURL"`
	} `yaml:"server"`

	Upload struct {
		MaxSizeBytes      int64    `yaml:"maxSizeBytes"`
		AllowedExtensions []string `yaml:"allowedExtensions"`
	} `yaml:"upload"`

	Security struct {
		EnableCORS  bool     `yaml:"enableCORS"`
		CORSOrigins []string `yaml:"corsOrigins"`
	} `yaml:"security"`

	Watcher struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"watcher"`

	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}
