package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath 指定配置文件路径的环境变量
const EnvConfigPath = "SHORTURL_CONFIG"

// 存储后端
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
)

// 主配置结构
type Config struct {
	App       App      `yaml:"app"`
	Server    Server   `yaml:"server"`
	Store     Store    `yaml:"store"`
	Database  DB       `yaml:"database"`
	Cache     Cache    `yaml:"cache"`
	Registry  Registry `yaml:"registry"`
	Redirect  Redirect `yaml:"redirect"`
	Stats     Stats    `yaml:"stats"`
	RateLimit Limit    `yaml:"rate_limit"`
	Log       Log      `yaml:"log"`
}

// 应用配置
type App struct {
	Name    string `yaml:"name"`
	Mode    string `yaml:"mode"`
	Version string `yaml:"version"`
}

// 服务器配置
type Server struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func (s Server) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// 存储配置：所有记录序列化后放在 Key 对应的一个槽里
type Store struct {
	Backend string `yaml:"backend"`
	Key     string `yaml:"key"`
	// 解析缓存大小，单位 MB，0 表示关闭
	DecodeCacheMB int `yaml:"decode_cache_mb"`
}

// 数据库配置，SQLite 使用 Path，MySQL 使用其余字段
type DB struct {
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
}

// 缓存配置（Redis）
type Cache struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// 短链接注册表配置
type Registry struct {
	BaseURL                string  `yaml:"base_url"`
	DefaultValidityMinutes float64 `yaml:"default_validity_minutes"`
	MaxBatchSize           int     `yaml:"max_batch_size"`
	MaxGenerateAttempts    int     `yaml:"max_generate_attempts"`
}

func (r Registry) DefaultValidity() time.Duration {
	return time.Duration(r.DefaultValidityMinutes * float64(time.Minute))
}

// 跳转配置，倒计时为 0 时直接 302
type Redirect struct {
	CountdownSeconds int `yaml:"countdown_seconds"`
}

// 统计刷新配置
type Stats struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"`
}

// 限流配置
type Limit struct {
	Enabled   bool     `yaml:"enabled"`
	Requests  int64    `yaml:"requests_per_minute"`
	Burst     int64    `yaml:"burst"`
	SkipPaths []string `yaml:"skip_paths"`
}

// 日志配置
type Log struct {
	Level      string `yaml:"level"`
	Filename   string `yaml:"filename"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: App{Name: "shorturl-registry", Mode: "debug", Version: "1.0.0"},
		Server: Server{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Store:    Store{Backend: BackendSQLite, Key: "url_shortener_data", DecodeCacheMB: 16},
		Database: DB{Path: "./data/shorturl.db", Port: 3306, Charset: "utf8mb4"},
		Cache:    Cache{Port: 6379},
		Registry: Registry{
			BaseURL:                "http://localhost:8080",
			DefaultValidityMinutes: 30,
			MaxBatchSize:           5,
			MaxGenerateAttempts:    10,
		},
		Redirect:  Redirect{CountdownSeconds: 3},
		Stats:     Stats{RefreshInterval: 5 * time.Second},
		RateLimit: Limit{Enabled: false, Requests: 600, Burst: 50},
		Log: Log{
			Level:      "info",
			Filename:   "./logs/app.log",
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     30,
		},
	}
}

// 加载配置，文件中未出现的字段保留默认值
func Load(path string) (*Config, error) {
	if env := os.Getenv(EnvConfigPath); env != "" {
		path = env
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite, BackendMySQL, BackendRedis:
	default:
		return fmt.Errorf("不支持的存储后端: %q", c.Store.Backend)
	}
	if c.Store.Key == "" {
		return fmt.Errorf("存储键不能为空")
	}
	if c.Store.Backend == BackendRedis && c.Cache.Host == "" {
		return fmt.Errorf("redis 存储后端需要配置 cache.host")
	}
	if c.Registry.DefaultValidityMinutes <= 0 {
		return fmt.Errorf("默认有效期必须为正数")
	}
	if c.Redirect.CountdownSeconds < 0 {
		return fmt.Errorf("跳转倒计时不能为负数")
	}
	return nil
}
