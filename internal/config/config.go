package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/cuongbtq/notify-pipeline/internal/domain"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Defaults applied to fields left empty by the file and the environment
const (
	DefaultExchange         = "iiitconnect_exchange"
	DefaultConnectionName   = "IIITConnect-Backend"
	DefaultMessageTTL       = 24 * time.Hour
	DefaultHeartbeat        = 60 * time.Second
	DefaultReconnectDelay   = 5 * time.Second
	DefaultPrefetchCount    = 1
	DefaultJobTimeout       = 60 * time.Second
	DefaultDLQCheckSchedule = "@every 1m"
	DefaultShutdownTimeout  = 30 * time.Second
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Email    EmailConfig    `yaml:"email"`
	Logging  LoggingConfig  `yaml:"logging"`
	Worker   WorkerConfig   `yaml:"worker"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment" env:"APP_ENV"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MetricsConfig holds the worker's Prometheus endpoint
type MetricsConfig struct {
	Port int `yaml:"port" env:"METRICS_PORT"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL             string        `yaml:"url" env:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	AutoMigrate     bool          `yaml:"auto_migrate" env:"DATABASE_AUTO_MIGRATE"`
}

// RedisConfig holds the Redis connection used for room broadcasts.
// An empty address disables broadcasting to Redis.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

// RabbitMQConfig holds RabbitMQ connection and topology configuration
type RabbitMQConfig struct {
	// Enabled selects broker mode for producers
	Enabled        bool          `yaml:"enabled" env:"USE_RABBITMQ"`
	URL            string        `yaml:"url" env:"RABBITMQ_URL"`
	ConnectionName string        `yaml:"connection_name"`
	Heartbeat      time.Duration `yaml:"heartbeat"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PrefetchCount  int           `yaml:"prefetch_count"`
	MaxRetries     *int          `yaml:"max_retries" env:"RABBITMQ_MAX_RETRIES"`
	Exchange       string        `yaml:"exchange"`
	MessageTTL     time.Duration `yaml:"message_ttl"`
	Queues         QueuesConfig  `yaml:"queues"`
}

// QueuesConfig names the three main queues
type QueuesConfig struct {
	Email   string `yaml:"email"`
	Chat    string `yaml:"chat"`
	General string `yaml:"general"`
}

// EmailConfig holds Mailgun settings
type EmailConfig struct {
	Enabled       bool   `yaml:"enabled" env:"EMAIL_ENABLED"`
	MailgunDomain string `yaml:"mailgun_domain" env:"MAILGUN_DOMAIN"`
	MailgunAPIKey string `yaml:"mailgun_api_key" env:"MAILGUN_API_KEY"`
	FromAddress   string `yaml:"from_address" env:"EMAIL_FROM_ADDRESS"`
	FromName      string `yaml:"from_name" env:"EMAIL_FROM_NAME"`
	AppBaseURL    string `yaml:"app_base_url" env:"APP_BASE_URL"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level" env:"LOG_LEVEL"`
	Format       string `yaml:"format" env:"LOG_FORMAT"`
	Output       string `yaml:"output" env:"LOG_OUTPUT"`
	EnableSource bool   `yaml:"enable_source"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	ConsumeGeneral bool `yaml:"consume_general"`
	// JobTimeout bounds each handler run; 0 disables it
	JobTimeout       *time.Duration `yaml:"job_timeout"`
	ResubscribeDelay time.Duration  `yaml:"resubscribe_delay"`
	DLQCheckSchedule string         `yaml:"dlq_check_schedule"`
	ShutdownTimeout  time.Duration  `yaml:"shutdown_timeout"`
}

// Timeout returns the per-job timeout
func (w *WorkerConfig) Timeout() time.Duration {
	if w.JobTimeout == nil {
		return DefaultJobTimeout
	}
	return *w.JobTimeout
}

// Load reads the configuration file, overlays environment variables that are
// set and fills in defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	r := &c.RabbitMQ
	if r.Exchange == "" {
		r.Exchange = DefaultExchange
	}
	if r.ConnectionName == "" {
		r.ConnectionName = DefaultConnectionName
	}
	if r.MessageTTL == 0 {
		r.MessageTTL = DefaultMessageTTL
	}
	if r.Heartbeat == 0 {
		r.Heartbeat = DefaultHeartbeat
	}
	if r.ReconnectDelay == 0 {
		r.ReconnectDelay = DefaultReconnectDelay
	}
	if r.PrefetchCount == 0 {
		r.PrefetchCount = DefaultPrefetchCount
	}
	if r.MaxRetries == nil {
		maxRetries := domain.DefaultMaxRetries
		r.MaxRetries = &maxRetries
	}
	if r.Queues.Email == "" {
		r.Queues.Email = domain.QueueEmail
	}
	if r.Queues.Chat == "" {
		r.Queues.Chat = domain.QueueChat
	}
	if r.Queues.General == "" {
		r.Queues.General = domain.QueueGeneral
	}

	if c.Worker.JobTimeout == nil {
		jobTimeout := DefaultJobTimeout
		c.Worker.JobTimeout = &jobTimeout
	}
	if c.Worker.ResubscribeDelay == 0 {
		c.Worker.ResubscribeDelay = r.ReconnectDelay
	}
	if c.Worker.DLQCheckSchedule == "" {
		c.Worker.DLQCheckSchedule = DefaultDLQCheckSchedule
	}
	if c.Worker.ShutdownTimeout == 0 {
		c.Worker.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Retries returns the configured retry ceiling
func (r *RabbitMQConfig) Retries() int {
	if r.MaxRetries == nil {
		return domain.DefaultMaxRetries
	}
	return *r.MaxRetries
}

// Validate checks the settings shared by both services
func (c *Config) Validate() error {
	if c.RabbitMQ.Retries() < 0 {
		return fmt.Errorf("rabbitmq max_retries must not be negative")
	}

	if c.RabbitMQ.MessageTTL < 0 {
		return fmt.Errorf("rabbitmq message_ttl must not be negative")
	}

	if c.Email.Enabled {
		if c.Email.MailgunDomain == "" || c.Email.MailgunAPIKey == "" {
			return fmt.Errorf("mailgun domain and api key are required when email is enabled")
		}
		if c.Email.FromAddress == "" {
			return fmt.Errorf("email from_address is required when email is enabled")
		}
	}

	return nil
}

// ValidateAPIConfig checks the producer service settings
func (c *Config) ValidateAPIConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Enabled && c.RabbitMQ.URL == "" {
		return errors.New("rabbitmq url is required when USE_RABBITMQ is true")
	}

	if !c.RabbitMQ.Enabled && c.Database.URL == "" {
		return errors.New("database url is required in direct mode")
	}

	return nil
}

// ValidateWorkerConfig checks the worker service settings
func (c *Config) ValidateWorkerConfig() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.RabbitMQ.URL == "" {
		return errors.New("rabbitmq url is required")
	}

	if c.Database.URL == "" {
		return errors.New("database url is required")
	}

	if c.Metrics.Port < MinPort || c.Metrics.Port > MaxPort {
		return fmt.Errorf("invalid metrics port: %d (must be between %d and %d)", c.Metrics.Port, MinPort, MaxPort)
	}

	if c.Worker.Timeout() < 0 {
		return errors.New("worker job_timeout must not be negative")
	}

	if _, err := cron.ParseStandard(c.Worker.DLQCheckSchedule); err != nil {
		return fmt.Errorf("invalid worker dlq_check_schedule: %w", err)
	}

	return nil
}

// WorkerQueues lists the queues the worker consumes
func (c *Config) WorkerQueues() []string {
	queues := []string{c.RabbitMQ.Queues.Email, c.RabbitMQ.Queues.Chat}
	if c.Worker.ConsumeGeneral {
		queues = append(queues, c.RabbitMQ.Queues.General)
	}
	return queues
}
