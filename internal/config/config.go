package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type WechatPayConfig struct {
	AppID          string `yaml:"app_id"`
	MchID          string `yaml:"mch_id"`
	SerialNo       string `yaml:"serial_no"`
	PrivateKeyPath string `yaml:"private_key_path"`
	// PlatformPublicKeyPath holds the gateway's published key used to
	// verify callback signatures.
	PlatformPublicKeyPath string `yaml:"platform_public_key_path"`
	// APIv3Key must be exactly 32 bytes (AES-256-GCM).
	APIv3Key  string `yaml:"api_v3_key"`
	NotifyURL string `yaml:"notify_url"`
	BaseURL   string `yaml:"base_url"`
}

type RewardsConfig struct {
	TierCacheTTL time.Duration `yaml:"tier_cache_ttl"`
	OrderExpiry  time.Duration `yaml:"order_expiry"`
	// OrderNoPrefix distinguishes order numbers per deployment.
	OrderNoPrefix string `yaml:"order_no_prefix"`
}

type SchedulerConfig struct {
	ExpirySweepCron  string        `yaml:"expiry_sweep_cron"`
	QuotaNotifyEvery time.Duration `yaml:"quota_notify_every"`
}

type AdminConfig struct {
	SessionSecret string        `yaml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	Password      string        `yaml:"password"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	WechatPay WechatPayConfig `yaml:"wechatpay"`
	Rewards   RewardsConfig   `yaml:"rewards"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Admin     AdminConfig     `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Rewards.TierCacheTTL <= 0 {
		cfg.Rewards.TierCacheTTL = 5 * time.Minute
	}
	if cfg.Rewards.OrderExpiry <= 0 {
		cfg.Rewards.OrderExpiry = 30 * time.Minute
	}
	if cfg.Rewards.OrderNoPrefix == "" {
		cfg.Rewards.OrderNoPrefix = "CA"
	}
	if cfg.Scheduler.ExpirySweepCron == "" {
		cfg.Scheduler.ExpirySweepCron = "*/5 * * * *"
	}
	if cfg.Scheduler.QuotaNotifyEvery <= 0 {
		cfg.Scheduler.QuotaNotifyEvery = 24 * time.Hour
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}

	// Hard validation; credentials are never silently defaulted.
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if err := cfg.WechatPay.Validate(); err != nil {
		return nil, err
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// Validate checks the merchant credential material for presence and length.
func (w *WechatPayConfig) Validate() error {
	if w.AppID == "" || w.MchID == "" || w.SerialNo == "" {
		return errors.New("wechatpay.app_id, mch_id and serial_no are required")
	}
	if w.PrivateKeyPath == "" {
		return errors.New("wechatpay.private_key_path is required")
	}
	if len(w.APIv3Key) != 32 {
		return fmt.Errorf("wechatpay.api_v3_key must be exactly 32 bytes; got %d", len(w.APIv3Key))
	}
	if w.NotifyURL == "" {
		return errors.New("wechatpay.notify_url is required")
	}
	return nil
}
