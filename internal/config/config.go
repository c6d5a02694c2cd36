package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Model     ModelConfig     `mapstructure:"model"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Index     IndexConfig     `mapstructure:"index"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the connection string for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return c.URL
	}
	return c.Path
}

// QueueConfig configures the SQS notification queue consumer.
type QueueConfig struct {
	URL             string `mapstructure:"url"`
	Region          string `mapstructure:"region"`
	WaitTimeSeconds int32  `mapstructure:"wait_time_seconds"`
}

// StorageConfig configures the S3-compatible payload store.
type StorageConfig struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type ModelConfig struct {
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

type EmbeddingConfig struct {
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// MemoryConfig configures the downstream memory record store API.
type MemoryConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// IndexConfig configures the local semantic memory index.
type IndexConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/memflow.db")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("queue.region", "us-east-1")
	v.SetDefault("queue.wait_time_seconds", 20)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("model.model", "gpt-4o-mini")
	v.SetDefault("model.base_url", "https://api.openai.com/v1")
	v.SetDefault("model.max_tokens", 1000)
	v.SetDefault("embedding.model", "jina-embeddings-v3")
	v.SetDefault("embedding.dimensions", 1024)
	v.SetDefault("index.enabled", false)
	v.SetDefault("index.host", "localhost")
	v.SetDefault("index.port", 6334)
	v.SetDefault("index.collection", "memories")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("queue.url", "QUEUE_URL")
	v.BindEnv("queue.region", "AWS_REGION")
	v.BindEnv("storage.access_key", "AWS_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_key", "AWS_SECRET_ACCESS_KEY")
	v.BindEnv("storage.endpoint", "S3_ENDPOINT")
	v.BindEnv("model.api_key", "OPENAI_API_KEY")
	v.BindEnv("model.base_url", "OPENAI_BASE_URL")
	v.BindEnv("model.model", "EXTRACTION_MODEL")
	v.BindEnv("embedding.api_key", "JINA_API_KEY")
	v.BindEnv("memory.base_url", "MEMORY_API_URL")
	v.BindEnv("memory.api_key", "MEMORY_API_KEY")
	v.BindEnv("index.host", "QDRANT_HOST")
	v.BindEnv("index.port", "QDRANT_PORT")
	v.BindEnv("index.api_key", "QDRANT_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
