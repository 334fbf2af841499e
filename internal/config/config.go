// Package config loads and holds the application configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Conf is the global configuration loaded by Init.
var Conf Config

// Config mirrors the layout of configs/config.yaml.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
	Embedding    EmbeddingConfig    `mapstructure:"embedding"`
	TMDb         TMDbConfig         `mapstructure:"tmdb"`
	Session      SessionConfig      `mapstructure:"session"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Genres       []GenreConfig      `mapstructure:"genres"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig groups external stores.
type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds the redis connection used by the redis session backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// EmbeddingConfig configures the OpenAI-compatible embedding endpoint.
type EmbeddingConfig struct {
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// TMDbConfig configures the movie metadata provider.
type TMDbConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Language      string        `mapstructure:"language"`
	Locale        string        `mapstructure:"locale"`
	ImageBaseURL  string        `mapstructure:"image_base_url"`
	WatchBaseURL  string        `mapstructure:"watch_base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	GenreCacheTTL time.Duration `mapstructure:"genre_cache_ttl"`
}

// SessionConfig selects the session backend and its eviction policy.
// IdleTimeout of zero keeps sessions for the process lifetime.
type SessionConfig struct {
	Backend       string        `mapstructure:"backend"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// ConversationConfig tunes the conversation engine policies.
type ConversationConfig struct {
	MinConfidence       float64 `mapstructure:"min_confidence"`
	RecommendationCount int     `mapstructure:"recommendation_count"`
	ExcludeRepeats      bool    `mapstructure:"exclude_repeats"`
	UnclearPolicy       string  `mapstructure:"unclear_policy"`
}

// KafkaConfig configures the optional turn event stream.
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// GenreConfig is one catalog entry override.
type GenreConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
}

const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"

	UnclearPolicyClose    = "close"
	UnclearPolicyReprompt = "reprompt"
)

// Init reads the YAML file at configPath (plus .env and the environment) into Conf.
func Init(configPath string) {
	// .env is optional, real environment variables still win
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("tmdb.api_key", "TMDB_API_KEY", "API_KEY")
	_ = v.BindEnv("embedding.api_key", "EMBEDDING_API_KEY")
	_ = v.BindEnv("database.redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("failed to read config file: %w", err))
	}
	if err := v.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("failed to decode config: %w", err))
	}
	Conf.ApplyDefaults()
	if err := Conf.Validate(); err != nil {
		panic(err)
	}
}

// ApplyDefaults fills zero values with the defaults of the reference deployment.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "5000"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "release"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Embedding.Timeout <= 0 {
		c.Embedding.Timeout = 15 * time.Second
	}
	if c.TMDb.BaseURL == "" {
		c.TMDb.BaseURL = "https://api.themoviedb.org/3"
	}
	if c.TMDb.Language == "" {
		c.TMDb.Language = "pt-BR"
	}
	if c.TMDb.Locale == "" {
		c.TMDb.Locale = "BR"
	}
	if c.TMDb.ImageBaseURL == "" {
		c.TMDb.ImageBaseURL = "https://image.tmdb.org/t/p/w200"
	}
	if c.TMDb.WatchBaseURL == "" {
		c.TMDb.WatchBaseURL = "https://www.themoviedb.org/movie"
	}
	if c.TMDb.Timeout <= 0 {
		c.TMDb.Timeout = 10 * time.Second
	}
	if c.TMDb.RatePerSecond <= 0 {
		c.TMDb.RatePerSecond = 20
	}
	if c.TMDb.Burst <= 0 {
		c.TMDb.Burst = 10
	}
	if c.Session.Backend == "" {
		c.Session.Backend = SessionBackendMemory
	}
	if c.Session.SweepInterval <= 0 {
		c.Session.SweepInterval = time.Minute
	}
	if c.Conversation.RecommendationCount <= 0 {
		c.Conversation.RecommendationCount = 3
	}
	if c.Conversation.UnclearPolicy == "" {
		c.Conversation.UnclearPolicy = UnclearPolicyClose
	}
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis:
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	switch c.Conversation.UnclearPolicy {
	case UnclearPolicyClose, UnclearPolicyReprompt:
	default:
		return fmt.Errorf("unknown unclear_policy %q", c.Conversation.UnclearPolicy)
	}
	if c.Conversation.MinConfidence < 0 || c.Conversation.MinConfidence > 1 {
		return fmt.Errorf("min_confidence must be within [0,1], got %v", c.Conversation.MinConfidence)
	}
	if c.Kafka.Enabled && (c.Kafka.Brokers == "" || c.Kafka.Topic == "") {
		return fmt.Errorf("kafka enabled without brokers or topic")
	}
	if c.Session.IdleTimeout < 0 {
		return fmt.Errorf("session idle_timeout must not be negative")
	}
	return nil
}
