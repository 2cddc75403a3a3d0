package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the agent system
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Agent      AgentConfig      `mapstructure:"agent"`
	Feeds      FeedsConfig      `mapstructure:"feeds"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
	Capability CapabilityConfig `mapstructure:"capability"`
	Storage    StorageConfig    `mapstructure:"storage"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address     string `mapstructure:"address"`
	AuthEnabled bool   `mapstructure:"auth_enabled"`
	JWTSecret   string `mapstructure:"jwt_secret"`
}

func (s ServerConfig) Validate() error {
	if s.AuthEnabled && strings.TrimSpace(s.JWTSecret) == "" {
		return fmt.Errorf("server.jwt_secret required when auth is enabled")
	}
	return nil
}

// LLMConfig contains the text-generation provider configuration
type LLMConfig struct {
	Provider        string        `mapstructure:"provider"` // openai, anthropic, gemini
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	CostPer1KInput  float64       `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64       `mapstructure:"cost_per_1k_output"`
}

// Normalize applies defaults for unset LLM values.
func (l LLMConfig) Normalize() LLMConfig {
	if l.Provider == "" {
		l.Provider = "openai"
	}
	if l.Model == "" {
		l.Model = "gpt-4o-mini"
	}
	if l.Temperature == 0 {
		l.Temperature = 0.7
	}
	if l.MaxTokens == 0 {
		l.MaxTokens = 1000
	}
	if l.Timeout == 0 {
		l.Timeout = 30 * time.Second
	}
	if l.MaxRetries < 0 {
		l.MaxRetries = 0
	}
	if l.RetryBackoff == 0 {
		l.RetryBackoff = 300 * time.Millisecond
	}
	return l
}

// AgentConfig contains loop mechanics for the planner/executor
type AgentConfig struct {
	MaxIterations int           `mapstructure:"max_iterations"`
	TopK          int           `mapstructure:"top_k"`
	ArtifactsDir  string        `mapstructure:"artifacts_dir"`
	DisplayMode   string        `mapstructure:"display_mode"` // headless, browser, none
	DisplayWait   time.Duration `mapstructure:"display_wait"`
}

// Normalize applies defaults for unset agent values.
func (a AgentConfig) Normalize() AgentConfig {
	if a.MaxIterations <= 0 {
		a.MaxIterations = 5
	}
	if a.TopK <= 0 {
		a.TopK = 3
	}
	if a.ArtifactsDir == "" {
		a.ArtifactsDir = "artifacts"
	}
	if a.DisplayMode == "" {
		a.DisplayMode = "headless"
	}
	if a.DisplayWait == 0 {
		a.DisplayWait = 10 * time.Second
	}
	return a
}

func (a AgentConfig) Validate() error {
	switch a.DisplayMode {
	case "", "headless", "browser", "none":
	default:
		return fmt.Errorf("agent.display_mode must be headless, browser or none")
	}
	return nil
}

// FeedsConfig contains headline feed configurations
type FeedsConfig struct {
	BBC FeedConfig `mapstructure:"bbc"`
}

// FeedConfig contains one RSS feed's settings
type FeedConfig struct {
	URL          string        `mapstructure:"url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	DefaultCount int           `mapstructure:"default_count"`
}

// Normalize applies defaults for unset feed values.
func (f FeedConfig) Normalize() FeedConfig {
	if f.URL == "" {
		f.URL = "https://feeds.bbci.co.uk/news/rss.xml"
	}
	if f.Timeout == 0 {
		f.Timeout = 10 * time.Second
	}
	if f.DefaultCount <= 0 {
		f.DefaultCount = 10
	}
	return f
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
	PeriodicLogs bool `mapstructure:"periodic_logs"`
}

// CapabilityConfig controls the ToolCard registry behaviour.
type CapabilityConfig struct {
	SigningSecret string   `mapstructure:"signing_secret"`
	RequiredTools []string `mapstructure:"required_tools"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Session  SessionStorageConfig `mapstructure:"session"`
	Redis    RedisConfig          `mapstructure:"redis"`
	Postgres PostgresConfig       `mapstructure:"postgres"`
}

// SessionStorageConfig controls the live session store and persistence options
type SessionStorageConfig struct {
	Type             string        `mapstructure:"type"` // inmemory
	TTL              time.Duration `mapstructure:"ttl"`
	SnapshotsEnabled bool          `mapstructure:"snapshots_enabled"` // redis
	ArchiveEnabled   bool          `mapstructure:"archive_enabled"`   // postgres
}

// Normalize applies defaults for unset session storage values.
func (s SessionStorageConfig) Normalize() SessionStorageConfig {
	if s.Type == "" {
		s.Type = "inmemory"
	}
	if s.TTL == 0 {
		s.TTL = 24 * time.Hour
	}
	return s
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN assembles the connection string, preferring an explicit url.
func (p PostgresConfig) DSN() (string, error) {
	if p.URL != "" {
		return p.URL, nil
	}
	if err := p.Validate(); err != nil {
		return "", err
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// LoadConfig loads config from file
func LoadConfig(path string) *Config {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("json")   // REQUIRED if the config file does not have the extension in the name
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("server.address", ":10002")
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 1000)
	viper.SetDefault("llm.timeout", "30s")
	viper.SetDefault("llm.max_retries", 2)
	viper.SetDefault("llm.retry_backoff", "300ms")
	viper.SetDefault("agent.max_iterations", 5)
	viper.SetDefault("agent.top_k", 3)
	viper.SetDefault("agent.artifacts_dir", "artifacts")
	viper.SetDefault("agent.display_mode", "headless")
	viper.SetDefault("agent.display_wait", "10s")
	viper.SetDefault("feeds.bbc.url", "https://feeds.bbci.co.uk/news/rss.xml")
	viper.SetDefault("feeds.bbc.timeout", "10s")
	viper.SetDefault("feeds.bbc.default_count", 10)
	viper.SetDefault("telemetry.enabled", true)
	viper.SetDefault("telemetry.cost_tracking", true)
	viper.SetDefault("storage.session.type", "inmemory")
	viper.SetDefault("storage.session.ttl", "24h")

	if path == "" {
		viper.AddConfigPath("./config") // path to look for the config file in
		viper.AddConfigPath(".")        // optionally look for config in the working directory
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)                                // bin/
		viper.AddConfigPath(filepath.Join(exeDir, ".."))           // repo root
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config")) // repo root/config
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("NEWSAGENT")
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)

	viper.AutomaticEnv() // read in environment variables that match (NEWSAGENT_*)

	// Read config file (optional, defaults and env cover a missing file)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			panic(fmt.Errorf("fatal error config file: %w", err))
		}
	}

	// unmarshal config
	var config Config

	if err := viper.Unmarshal(&config); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	config.LLM = config.LLM.Normalize()
	config.Agent = config.Agent.Normalize()
	config.Feeds.BBC = config.Feeds.BBC.Normalize()
	config.Storage.Session = config.Storage.Session.Normalize()

	if err := config.Server.Validate(); err != nil {
		panic(err)
	}
	if err := config.Agent.Validate(); err != nil {
		panic(err)
	}
	if config.Storage.Session.SnapshotsEnabled {
		if err := config.Storage.Redis.Validate(); err != nil {
			panic(err)
		}
	}
	if config.Storage.Session.ArchiveEnabled {
		if err := config.Storage.Postgres.Validate(); err != nil {
			panic(err)
		}
	}
	return &config
}
