package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jwalitptl/reminderd/pkg/messaging/redis"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	WebPush   WebPushConfig   `mapstructure:"webpush"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

func (c RedisConfig) ToBrokerConfig() redis.Config {
	return redis.Config{
		URL:          c.URL,
		MaxRetries:   c.MaxRetries,
		RetryBackoff: c.RetryBackoff,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type WebPushConfig struct {
	VAPIDPublicKey  string  `mapstructure:"vapid_public_key"`
	VAPIDPrivateKey string  `mapstructure:"vapid_private_key"`
	Subscriber      string  `mapstructure:"subscriber"`
	RatePerSecond   float64 `mapstructure:"rate_per_second"`
	RateBurst       int     `mapstructure:"rate_burst"`
}

type SchedulerConfig struct {
	DueInterval        time.Duration `mapstructure:"due_interval"`
	RecurrenceInterval time.Duration `mapstructure:"recurrence_interval"`
	CleanupInterval    time.Duration `mapstructure:"cleanup_interval"`

	DeliveryConcurrency int           `mapstructure:"delivery_concurrency"`
	ClaimTTL            time.Duration `mapstructure:"claim_ttl"`

	CompletedRetention time.Duration `mapstructure:"completed_retention"`
	CancelledRetention time.Duration `mapstructure:"cancelled_retention"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("scheduler.due_interval", time.Minute)
	viper.SetDefault("scheduler.recurrence_interval", time.Hour)
	viper.SetDefault("scheduler.cleanup_interval", 24*time.Hour)
	viper.SetDefault("scheduler.delivery_concurrency", 4)
	viper.SetDefault("scheduler.claim_ttl", 5*time.Minute)
	viper.SetDefault("scheduler.completed_retention", 90*24*time.Hour)
	viper.SetDefault("scheduler.cancelled_retention", 30*24*time.Hour)

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
