package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	DNS      DNSConfig      `yaml:"dns"`
	SES      SESConfig      `yaml:"ses"`
	Inbound  InboundConfig  `yaml:"inbound"`
	Checker  CheckerConfig  `yaml:"checker"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds Redis settings. Redis is optional; it only backs
// check-coalescing locks in the scheduled checker.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DNSConfig holds resolver settings
type DNSConfig struct {
	Nameservers    []string `yaml:"nameservers"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Retries        int      `yaml:"retries"`
}

// Timeout returns the per-query timeout as a duration.
func (c DNSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES credentials and receipt rule settings
type SESConfig struct {
	AccessKey          string `yaml:"access_key"`
	SecretKey          string `yaml:"secret_key"`
	Region             string `yaml:"region"`
	RuleSetName        string `yaml:"rule_set_name"`
	ProcessingTopicARN string `yaml:"processing_topic_arn"`
	InboundBucket      string `yaml:"inbound_bucket"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
}

// InboundConfig holds the fixed routing endpoint users publish records for,
// plus the secret that binds verification tokens to this deployment.
type InboundConfig struct {
	// MXHost is the exchange hostname for the required MX record,
	// e.g. "inbound-smtp.us-east-1.amazonaws.com".
	MXHost string `yaml:"mx_host"`

	// MXPriority is the fixed priority for the required MX record.
	MXPriority int `yaml:"mx_priority"`

	// TokenSecret signs verification tokens. Changing it invalidates
	// every TXT record users have already published.
	TokenSecret string `yaml:"token_secret"`
}

// CheckerConfig holds scheduled re-verification settings
type CheckerConfig struct {
	IntervalSeconds      int `yaml:"interval_seconds"`
	RecheckAfterMinutes  int `yaml:"recheck_after_minutes"`
	BatchSize            int `yaml:"batch_size"`
	LockTTLSeconds       int `yaml:"lock_ttl_seconds"`
	MaxConcurrentChecks  int `yaml:"max_concurrent_checks"`
}

// Interval returns the poll interval as a duration.
func (c CheckerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// RecheckAfter returns the verified-domain staleness window.
func (c CheckerConfig) RecheckAfter() time.Duration {
	return time.Duration(c.RecheckAfterMinutes) * time.Minute
}

// LockTTL returns the per-domain lock TTL.
func (c CheckerConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads the YAML config and overlays environment variables.
// A .env file is honored if present.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("SES_RULE_SET_NAME"); v != "" {
		cfg.SES.RuleSetName = v
	}
	if v := os.Getenv("SES_PROCESSING_TOPIC_ARN"); v != "" {
		cfg.SES.ProcessingTopicARN = v
	}
	if v := os.Getenv("SES_INBOUND_BUCKET"); v != "" {
		cfg.SES.InboundBucket = v
	}
	if v := os.Getenv("INBOUND_MX_HOST"); v != "" {
		cfg.Inbound.MXHost = v
	}
	if v := os.Getenv("INBOUND_TOKEN_SECRET"); v != "" {
		cfg.Inbound.TokenSecret = v
	}
	if v := os.Getenv("DNS_NAMESERVERS"); v != "" {
		cfg.DNS.Nameservers = strings.Split(v, ",")
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.DNS.TimeoutSeconds == 0 {
		c.DNS.TimeoutSeconds = 5
	}
	if c.DNS.Retries == 0 {
		c.DNS.Retries = 1
	}
	if c.SES.Region == "" {
		c.SES.Region = "us-east-1"
	}
	if c.SES.RuleSetName == "" {
		c.SES.RuleSetName = "ignite-inbound"
	}
	if c.SES.TimeoutSeconds == 0 {
		c.SES.TimeoutSeconds = 30
	}
	if c.Inbound.MXHost == "" {
		c.Inbound.MXHost = fmt.Sprintf("inbound-smtp.%s.amazonaws.com", c.SES.Region)
	}
	if c.Inbound.MXPriority == 0 {
		c.Inbound.MXPriority = 10
	}
	if c.Checker.IntervalSeconds == 0 {
		c.Checker.IntervalSeconds = 300
	}
	if c.Checker.RecheckAfterMinutes == 0 {
		c.Checker.RecheckAfterMinutes = 360
	}
	if c.Checker.BatchSize == 0 {
		c.Checker.BatchSize = 50
	}
	if c.Checker.LockTTLSeconds == 0 {
		c.Checker.LockTTLSeconds = 120
	}
	if c.Checker.MaxConcurrentChecks == 0 {
		c.Checker.MaxConcurrentChecks = 8
	}
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	if c.Inbound.TokenSecret == "" {
		return fmt.Errorf("inbound.token_secret is required")
	}
	return nil
}
