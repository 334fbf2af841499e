package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	if c.Server.Port != "5000" {
		t.Errorf("expected default port 5000, got %q", c.Server.Port)
	}
	if c.TMDb.Language != "pt-BR" || c.TMDb.Locale != "BR" {
		t.Errorf("unexpected tmdb locale defaults: %+v", c.TMDb)
	}
	if c.Conversation.RecommendationCount != 3 {
		t.Errorf("expected 3 recommendations, got %d", c.Conversation.RecommendationCount)
	}
	if c.Session.Backend != SessionBackendMemory || c.Session.IdleTimeout != 0 {
		t.Errorf("unexpected session defaults: %+v", c.Session)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.Session.Backend = "etcd" }},
		{"unclear policy", func(c *Config) { c.Conversation.UnclearPolicy = "maybe" }},
		{"confidence", func(c *Config) { c.Conversation.MinConfidence = 1.5 }},
		{"idle timeout", func(c *Config) { c.Session.IdleTimeout = -time.Second }},
		{"kafka topic", func(c *Config) { c.Kafka = KafkaConfig{Enabled: true, Brokers: "localhost:9092"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.ApplyDefaults()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestInitReadsYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
server:
  port: "8081"
tmdb:
  genre_cache_ttl: 1h
session:
  idle_timeout: 30m
conversation:
  min_confidence: 0.25
genres:
  - name: Terror
    description: medo, susto
`)
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("API_KEY", "from-env")
	t.Chdir(dir)

	Init(path)
	if Conf.Server.Port != "8081" {
		t.Errorf("expected port from yaml, got %q", Conf.Server.Port)
	}
	if Conf.TMDb.APIKey != "from-env" {
		t.Errorf("expected api key from env, got %q", Conf.TMDb.APIKey)
	}
	if Conf.TMDb.GenreCacheTTL != time.Hour || Conf.Session.IdleTimeout != 30*time.Minute {
		t.Errorf("durations not decoded: %v %v", Conf.TMDb.GenreCacheTTL, Conf.Session.IdleTimeout)
	}
	if len(Conf.Genres) != 1 || Conf.Genres[0].Name != "Terror" {
		t.Errorf("genres not decoded: %+v", Conf.Genres)
	}
}
