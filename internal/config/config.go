package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Log      LogConfig
	Shopify  ShopifyConfig
	Sync     SyncConfig
}

// AppConfig 服务配置
type AppConfig struct {
	Name string
	Env  string // development / production
	Port string
}

// DatabaseConfig 数据库连接
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
	LogLevel        string // silent / error / warn / info
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr 或文件路径
}

// ShopifyConfig Shopify Admin API 相关
type ShopifyConfig struct {
	APIVersion     string
	Scheme         string
	MinInterval    time.Duration // 同一品牌两次请求的最小间隔
	RequestTimeout time.Duration
	Max429Retries  int
	WebhookBaseURL string // 本服务对外地址，webhook 回调到 {base}/webhooks/...
	PageSize       int
	MaxPages       int
}

// SyncConfig 定时同步
type SyncConfig struct {
	Enabled     bool
	CronSpec    string // 带秒的 cron 表达式
	Concurrency int
	RunTimeout  time.Duration
	// ManualCooldown 两次手动触发全量同步的最小间隔，0 表示不限制
	ManualCooldown time.Duration
}

// EnvPrefix 环境变量前缀，如 SHOPSCOPE_DATABASE_PASSWORD
const EnvPrefix = "SHOPSCOPE"

// Load 读取配置
// 优先级：环境变量 > config.yaml > 默认值
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config", "/app"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 没有配置文件时只用环境变量和默认值
	}

	// 零值有意义的字段在这里给默认值
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("sync.manual_cooldown", time.Minute)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Shopify: ShopifyConfig{
			APIVersion:     v.GetString("shopify.api_version"),
			Scheme:         v.GetString("shopify.scheme"),
			MinInterval:    v.GetDuration("shopify.min_interval"),
			RequestTimeout: v.GetDuration("shopify.request_timeout"),
			Max429Retries:  v.GetInt("shopify.max_429_retries"),
			WebhookBaseURL: v.GetString("shopify.webhook_base_url"),
			PageSize:       v.GetInt("shopify.page_size"),
			MaxPages:       v.GetInt("shopify.max_pages"),
		},
		Sync: SyncConfig{
			Enabled:        v.GetBool("sync.enabled"),
			CronSpec:       v.GetString("sync.cron_spec"),
			Concurrency:    v.GetInt("sync.concurrency"),
			RunTimeout:     v.GetDuration("sync.run_timeout"),
			ManualCooldown: v.GetDuration("sync.manual_cooldown"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return cfg, nil
}

// applyDefaults 填充未配置的字段
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shopscope"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
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
		cfg.Database.DBName = "shopscope"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 100
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 10
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-01"
	}
	if cfg.Shopify.Scheme == "" {
		cfg.Shopify.Scheme = "https"
	}
	if cfg.Shopify.MinInterval == 0 {
		cfg.Shopify.MinInterval = 500 * time.Millisecond
	}
	if cfg.Shopify.RequestTimeout == 0 {
		cfg.Shopify.RequestTimeout = 30 * time.Second
	}
	if cfg.Shopify.PageSize == 0 {
		cfg.Shopify.PageSize = 50
	}
	if cfg.Shopify.MaxPages == 0 {
		cfg.Shopify.MaxPages = 10000
	}

	if cfg.Sync.CronSpec == "" {
		cfg.Sync.CronSpec = "0 0 */6 * * *"
	}
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = 5
	}
	if cfg.Sync.RunTimeout == 0 {
		cfg.Sync.RunTimeout = 30 * time.Minute
	}
}

// validate 配置校验
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns 必须为正数")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) 不能大于 database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Shopify.Scheme != "https" && c.Shopify.Scheme != "http" {
		return fmt.Errorf("shopify.scheme 只能是 http 或 https，当前为 %q", c.Shopify.Scheme)
	}
	if c.Shopify.MinInterval < 0 {
		return fmt.Errorf("shopify.min_interval 不能为负数")
	}
	if c.Shopify.Max429Retries < 0 {
		return fmt.Errorf("shopify.max_429_retries 不能为负数")
	}
	if c.Shopify.PageSize < 1 || c.Shopify.PageSize > 250 {
		return fmt.Errorf("shopify.page_size 必须在 1-250 之间，当前为 %d", c.Shopify.PageSize)
	}
	if c.Shopify.WebhookBaseURL != "" {
		u, err := url.Parse(c.Shopify.WebhookBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("shopify.webhook_base_url 不是合法的 URL: %q", c.Shopify.WebhookBaseURL)
		}
	}

	if c.Sync.ManualCooldown < 0 {
		return fmt.Errorf("sync.manual_cooldown 不能为负数")
	}
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("sync.concurrency 必须为正数")
	}

	if c.App.Env == "production" {
		if c.Shopify.Scheme != "https" {
			return fmt.Errorf("生产环境 shopify.scheme 必须为 https")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("生产环境必须配置 database.password")
		}
	}
	return nil
}

// DSN 生成 postgres 连接串，用户名密码做转义
func (d *DatabaseConfig) DSN() string {
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
