package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Redis        RedisConfig        `yaml:"redis"`
	MySQL        MySQLConfig        `yaml:"mysql"`
	Queue        QueueConfig        `yaml:"queue"`
	Warmup       WarmupConfig       `yaml:"warmup"`
	Reddit       RedditConfig       `yaml:"reddit"`
	Health       HealthConfig       `yaml:"health"`
	Notification NotificationConfig `yaml:"notification"`
	Logger       LoggerConfig       `yaml:"logger"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port   int    `yaml:"port"`
	Mode   string `yaml:"mode"`    // debug, release
	APIKey string `yaml:"api_key"` // API key for admin endpoints (optional, if empty, auth is disabled)
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// QueueConfig queue configuration
type QueueConfig struct {
	Concurrency int `yaml:"concurrency"`  // queue processing concurrency
	MaxRetry    int `yaml:"max_retry"`    // maximum retry count for a warmup step
	TaskTimeout int `yaml:"task_timeout"` // step timeout (seconds)
}

// WarmupConfig warmup schedule configuration
type WarmupConfig struct {
	FirstStepMaxDelay int `yaml:"first_step_max_delay"` // max delay before the first step (minutes)
	StepIntervalMin   int `yaml:"step_interval_min"`    // min interval between steps (hours)
	StepIntervalMax   int `yaml:"step_interval_max"`    // max interval between steps (hours)
}

// RedditConfig Reddit action gateway configuration
type RedditConfig struct {
	BaseURL string `yaml:"base_url"` // action gateway base URL
}

// HealthConfig health monitor configuration
type HealthConfig struct {
	CheckInterval  int `yaml:"check_interval"`  // background check interval (minutes)
	StreamInterval int `yaml:"stream_interval"` // websocket push interval (seconds)
}

// NotificationConfig notification configuration
type NotificationConfig struct {
	FeishuWebhookURL string `yaml:"feishu_webhook_url"` // Feishu bot webhook for critical alerts
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path string `yaml:"path"`
}

// DSN builds the MySQL connection string
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return err
	}

	applyDefaults(&cfg)
	GlobalConfig = &cfg
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = 10
	}
	if cfg.Queue.MaxRetry <= 0 {
		cfg.Queue.MaxRetry = 5
	}
	if cfg.Queue.TaskTimeout <= 0 {
		cfg.Queue.TaskTimeout = 300
	}
	if cfg.Warmup.FirstStepMaxDelay <= 0 {
		cfg.Warmup.FirstStepMaxDelay = 30
	}
	if cfg.Warmup.StepIntervalMin <= 0 {
		cfg.Warmup.StepIntervalMin = 4
	}
	if cfg.Warmup.StepIntervalMax <= cfg.Warmup.StepIntervalMin {
		cfg.Warmup.StepIntervalMax = cfg.Warmup.StepIntervalMin + 4
	}
	if cfg.Reddit.BaseURL == "" {
		cfg.Reddit.BaseURL = "http://localhost:8090"
	}
	if cfg.Health.CheckInterval <= 0 {
		cfg.Health.CheckInterval = 5
	}
	if cfg.Health.StreamInterval <= 0 {
		cfg.Health.StreamInterval = 10
	}
}
