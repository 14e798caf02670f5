package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Log        LogConfig
	Scheduler  SchedulerConfig
	Monitor    MonitorConfig
	SMTP       SMTPConfig
	Resilience ResilienceConfig
	Shopee     ShopeeConfig
	TikTok     TikTokConfig
	Storefront StorefrontConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	// Driver selects the gorm driver: postgres or sqlite
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// SQLitePath is the database file when Driver is sqlite
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SchedulerConfig holds sync scheduler configuration
type SchedulerConfig struct {
	Enabled            bool
	MaxConcurrentSyncs int
	QueueSize          int
	TriggerInterval    time.Duration
	StuckJobInterval   time.Duration
	JobMaxRetries      int
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
}

// MonitorConfig holds sync monitor thresholds and notification limits
type MonitorConfig struct {
	MaxErrorRate           float64
	MaxSyncDelay           time.Duration
	MinOrdersExpected      int
	MaxConsecutiveFailures int
	SyncTimeout            time.Duration
	EscalationDelay        time.Duration
	NotifyTimeout          time.Duration
	MaxNotifyPerTypeHour   int
	CriticalCooldown       time.Duration
}

// SMTPConfig holds outbound mail settings for email alerts
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// ResilienceConfig holds circuit breaker, retry and rate limiter tuning
type ResilienceConfig struct {
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	HalfOpenSuccesses int
	RetryMaxAttempts  int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDelay    time.Duration
	MaxQueueDepth     int
	HTTPTimeout       time.Duration
}

// ShopeeConfig holds Shopee open platform credentials
type ShopeeConfig struct {
	Enabled    bool
	PartnerID  int64
	PartnerKey string
	BaseURL    string
	Sandbox    bool
}

// TikTokConfig holds TikTok Shop partner credentials
type TikTokConfig struct {
	Enabled   bool
	AppKey    string
	AppSecret string
	BaseURL   string
	Sandbox   bool
}

// StorefrontConfig holds the merchant storefront API settings
type StorefrontConfig struct {
	Enabled   bool
	BaseURL   string
	APISecret string
	TokenTTL  time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with OMNISYNC_ prefix (e.g., OMNISYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("OMNISYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			SQLitePath:      v.GetString("database.sqlite_path"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            v.GetBool("scheduler.enabled"),
			MaxConcurrentSyncs: v.GetInt("scheduler.max_concurrent_syncs"),
			QueueSize:          v.GetInt("scheduler.queue_size"),
			TriggerInterval:    v.GetDuration("scheduler.trigger_interval"),
			StuckJobInterval:   v.GetDuration("scheduler.stuck_job_interval"),
			JobMaxRetries:      v.GetInt("scheduler.job_max_retries"),
			RetryBaseDelay:     v.GetDuration("scheduler.retry_base_delay"),
			RetryMaxDelay:      v.GetDuration("scheduler.retry_max_delay"),
		},
		Monitor: MonitorConfig{
			MaxErrorRate:           v.GetFloat64("monitor.max_error_rate"),
			MaxSyncDelay:           v.GetDuration("monitor.max_sync_delay"),
			MinOrdersExpected:      v.GetInt("monitor.min_orders_expected"),
			MaxConsecutiveFailures: v.GetInt("monitor.max_consecutive_failures"),
			SyncTimeout:            v.GetDuration("monitor.sync_timeout"),
			EscalationDelay:        v.GetDuration("monitor.escalation_delay"),
			NotifyTimeout:          v.GetDuration("monitor.notify_timeout"),
			MaxNotifyPerTypeHour:   v.GetInt("monitor.max_notify_per_type_hour"),
			CriticalCooldown:       v.GetDuration("monitor.critical_cooldown"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
		},
		Resilience: ResilienceConfig{
			FailureThreshold:  v.GetInt("resilience.failure_threshold"),
			RecoveryTimeout:   v.GetDuration("resilience.recovery_timeout"),
			HalfOpenSuccesses: v.GetInt("resilience.half_open_successes"),
			RetryMaxAttempts:  v.GetInt("resilience.retry_max_attempts"),
			RetryBaseDelay:    v.GetDuration("resilience.retry_base_delay"),
			RetryMaxDelay:     v.GetDuration("resilience.retry_max_delay"),
			RateLimitRequests: v.GetInt("resilience.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("resilience.rate_limit_window"),
			RateLimitDelay:    v.GetDuration("resilience.rate_limit_delay"),
			MaxQueueDepth:     v.GetInt("resilience.max_queue_depth"),
			HTTPTimeout:       v.GetDuration("resilience.http_timeout"),
		},
		Shopee: ShopeeConfig{
			Enabled:    v.GetBool("shopee.enabled"),
			PartnerID:  v.GetInt64("shopee.partner_id"),
			PartnerKey: v.GetString("shopee.partner_key"),
			BaseURL:    v.GetString("shopee.base_url"),
			Sandbox:    v.GetBool("shopee.sandbox"),
		},
		TikTok: TikTokConfig{
			Enabled:   v.GetBool("tiktok.enabled"),
			AppKey:    v.GetString("tiktok.app_key"),
			AppSecret: v.GetString("tiktok.app_secret"),
			BaseURL:   v.GetString("tiktok.base_url"),
			Sandbox:   v.GetBool("tiktok.sandbox"),
		},
		Storefront: StorefrontConfig{
			Enabled:   v.GetBool("storefront.enabled"),
			BaseURL:   v.GetString("storefront.base_url"),
			APISecret: v.GetString("storefront.api_secret"),
			TokenTTL:  v.GetDuration("storefront.token_ttl"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "omnisync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "omnisync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "omnisync.db"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Scheduler.MaxConcurrentSyncs == 0 {
		cfg.Scheduler.MaxConcurrentSyncs = 3
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 100
	}
	if cfg.Scheduler.TriggerInterval == 0 {
		cfg.Scheduler.TriggerInterval = time.Minute
	}
	if cfg.Scheduler.StuckJobInterval == 0 {
		cfg.Scheduler.StuckJobInterval = 5 * time.Minute
	}
	if cfg.Scheduler.JobMaxRetries == 0 {
		cfg.Scheduler.JobMaxRetries = 3
	}
	if cfg.Scheduler.RetryBaseDelay == 0 {
		cfg.Scheduler.RetryBaseDelay = time.Minute
	}
	if cfg.Scheduler.RetryMaxDelay == 0 {
		cfg.Scheduler.RetryMaxDelay = 30 * time.Minute
	}
	if cfg.Monitor.MaxErrorRate == 0 {
		cfg.Monitor.MaxErrorRate = 10
	}
	if cfg.Monitor.MaxSyncDelay == 0 {
		cfg.Monitor.MaxSyncDelay = time.Hour
	}
	if cfg.Monitor.MaxConsecutiveFailures == 0 {
		cfg.Monitor.MaxConsecutiveFailures = 3
	}
	if cfg.Monitor.SyncTimeout == 0 {
		cfg.Monitor.SyncTimeout = 30 * time.Minute
	}
	if cfg.Monitor.EscalationDelay == 0 {
		cfg.Monitor.EscalationDelay = 30 * time.Minute
	}
	if cfg.Monitor.NotifyTimeout == 0 {
		cfg.Monitor.NotifyTimeout = 10 * time.Second
	}
	if cfg.Monitor.MaxNotifyPerTypeHour == 0 {
		cfg.Monitor.MaxNotifyPerTypeHour = 10
	}
	if cfg.Monitor.CriticalCooldown == 0 {
		cfg.Monitor.CriticalCooldown = 5 * time.Minute
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = "alerts@omnisync.local"
	}
	if cfg.Resilience.FailureThreshold == 0 {
		cfg.Resilience.FailureThreshold = 5
	}
	if cfg.Resilience.RecoveryTimeout == 0 {
		cfg.Resilience.RecoveryTimeout = 60 * time.Second
	}
	if cfg.Resilience.HalfOpenSuccesses == 0 {
		cfg.Resilience.HalfOpenSuccesses = 3
	}
	if cfg.Resilience.RetryMaxAttempts == 0 {
		cfg.Resilience.RetryMaxAttempts = 3
	}
	if cfg.Resilience.RetryBaseDelay == 0 {
		cfg.Resilience.RetryBaseDelay = time.Second
	}
	if cfg.Resilience.RetryMaxDelay == 0 {
		cfg.Resilience.RetryMaxDelay = 30 * time.Second
	}
	if cfg.Resilience.RateLimitRequests == 0 {
		cfg.Resilience.RateLimitRequests = 60
	}
	if cfg.Resilience.RateLimitWindow == 0 {
		cfg.Resilience.RateLimitWindow = time.Minute
	}
	if cfg.Resilience.RateLimitDelay == 0 {
		cfg.Resilience.RateLimitDelay = time.Second
	}
	if cfg.Resilience.MaxQueueDepth == 0 {
		cfg.Resilience.MaxQueueDepth = 256
	}
	if cfg.Resilience.HTTPTimeout == 0 {
		cfg.Resilience.HTTPTimeout = 30 * time.Second
	}
	if cfg.Storefront.TokenTTL == 0 {
		cfg.Storefront.TokenTTL = 15 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Monitor.MaxErrorRate < 0 || c.Monitor.MaxErrorRate > 100 {
		return fmt.Errorf("monitor.max_error_rate must be between 0 and 100, got %f", c.Monitor.MaxErrorRate)
	}
	if c.Scheduler.MaxConcurrentSyncs <= 0 {
		return fmt.Errorf("scheduler.max_concurrent_syncs must be positive")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" {
			if c.Database.Password == "" {
				return fmt.Errorf("database.password is required in production")
			}
			if c.Database.SSLMode == "disable" {
				return fmt.Errorf("database.sslmode cannot be 'disable' in production")
			}
		}
		if c.Storefront.Enabled && len(c.Storefront.APISecret) < 32 {
			return fmt.Errorf("storefront.api_secret must be at least 32 characters in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.SQLitePath
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for the Redis connection
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
