package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Storage   StorageConfig   `yaml:"storage"`
	Minio     MinioConfig     `yaml:"minio"`
	Redis     RedisConfig     `yaml:"redis"`
	Mail      MailConfig      `yaml:"mail"`
	Links     LinksConfig     `yaml:"links"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type ServerConfig struct {
	Port          int    `yaml:"port"`
	PublicURL     string `yaml:"public_url"`
	AllowedOrigin string `yaml:"allowed_origin"`
	MaxBodyMB     int64  `yaml:"max_body_mb"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoreConfig selects where contract records live.
type StoreConfig struct {
	Backend      string `yaml:"backend"` // memory, redis
	MaxContracts int    `yaml:"max_contracts"`
}

// StorageConfig selects where PDF bytes live.
type StorageConfig struct {
	Backend string `yaml:"backend"` // filesystem, minio
	Dir     string `yaml:"dir"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	Region     string `yaml:"region"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
	TTLHours  int    `yaml:"ttl_hours"`
}

type MailConfig struct {
	APIKey         string `yaml:"api_key"`
	Host           string `yaml:"host"`
	FromAddress    string `yaml:"from_address"`
	FromName       string `yaml:"from_name"`
	AttachPDF      *bool  `yaml:"attach_pdf"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the bound for a single outbound send.
func (m MailConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// ShouldAttachPDF reports whether label notifications carry the PDF.
func (m MailConfig) ShouldAttachPDF() bool {
	return m.AttachPDF == nil || *m.AttachPDF
}

// LinksConfig controls signed retrieval links. An empty secret disables signing.
type LinksConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"

	StorageFilesystem = "filesystem"
	StorageMinio      = "minio"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// .env is optional, but a broken one is an error
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	overrideString(&c.Server.PublicURL, "PUBLIC_URL")
	overrideString(&c.Mail.APIKey, "SENDGRID_API_KEY")
	overrideString(&c.Mail.FromAddress, "MAIL_FROM_ADDRESS")
	overrideString(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	overrideString(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	overrideString(&c.Redis.Addr, "REDIS_ADDR")
	overrideString(&c.Redis.Password, "REDIS_PASSWORD")
	overrideString(&c.Links.Secret, "LINK_SECRET")
}

func overrideString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Server.AllowedOrigin == "" {
		c.Server.AllowedOrigin = "*"
	}
	if c.Server.MaxBodyMB == 0 {
		c.Server.MaxBodyMB = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = StoreMemory
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageFilesystem
	}
	if c.Storage.Dir == "" {
		c.Storage.Dir = "./data/contracts"
	}
	if c.Minio.ExpireDays == 0 {
		c.Minio.ExpireDays = 7
	}
	if c.Minio.Region == "" {
		c.Minio.Region = "us-east-1"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "contract:"
	}
	if c.Mail.Host == "" {
		c.Mail.Host = "https://api.sendgrid.com"
	}
	if c.Mail.FromName == "" {
		c.Mail.FromName = "Correct The Contract"
	}
	if c.Mail.TimeoutSeconds == 0 {
		c.Mail.TimeoutSeconds = 10
	}
	if c.Links.ExpireHours == 0 {
		c.Links.ExpireHours = 7 * 24
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = 100
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 60
	}
}

// Validate checks backend selections and the settings they depend on.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for store backend %q", StoreRedis)
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Storage.Backend {
	case StorageFilesystem:
	case StorageMinio:
		if c.Minio.Endpoint == "" || c.Minio.Bucket == "" {
			return fmt.Errorf("minio.endpoint and minio.bucket are required for storage backend %q", StorageMinio)
		}
		// presigned URLs are capped at 7 days
		if c.Minio.ExpireDays > 7 {
			return fmt.Errorf("minio.expire_days must be at most 7, got %d", c.Minio.ExpireDays)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Server.MaxBodyMB < 0 {
		return fmt.Errorf("server.max_body_mb must not be negative")
	}
	return nil
}
