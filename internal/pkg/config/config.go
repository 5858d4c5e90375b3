package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 HABITQUEST_STORAGE_DRIVER=postgres
const EnvPrefix = "HABITQUEST"

// Config 应用配置
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Gamification GamificationConfig `mapstructure:"gamification"`
	Catalog      CatalogConfig      `mapstructure:"catalog"`
	Ops          OpsConfig          `mapstructure:"ops"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
	// Timezone 日/周/月边界所用时区（IANA 名称），为空使用本地时区
	Timezone string `mapstructure:"timezone"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	DBPath string `mapstructure:"db_path"`
	DSN    string `mapstructure:"dsn"`
}

// GamificationConfig 结算配置
type GamificationConfig struct {
	IsolateFailures  bool `mapstructure:"isolate_failures"`
	RetryBatchSize   int  `mapstructure:"retry_batch_size"`
	RetryIntervalSec int  `mapstructure:"retry_interval_sec"`
}

// CatalogConfig 规则目录配置
type CatalogConfig struct {
	Path       string `mapstructure:"path"` // 为空使用内置目录
	Watch      bool   `mapstructure:"watch"`
	DebounceMs int    `mapstructure:"debounce_ms"`
}

// OpsConfig 运维端点（/health、/metrics）
type OpsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Default 返回默认配置（与 setDefaults 一致）
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:     "habitquest",
			Version:  "0.1.0",
			LogLevel: "info",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DBPath: "./data/habitquest.db",
		},
		Gamification: GamificationConfig{
			IsolateFailures:  false,
			RetryBatchSize:   50,
			RetryIntervalSec: 60,
		},
		Catalog: CatalogConfig{
			Watch:      false,
			DebounceMs: 500,
		},
		Ops: OpsConfig{
			Enabled:    true,
			ListenAddr: "127.0.0.1:9464",
		},
	}
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (configPath != "" && os.IsNotExist(err)) {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.Storage.DSN = expandEnv(cfg.Storage.DSN)
	cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	if cfg.Catalog.Path != "" {
		cfg.Catalog.Path = resolvePath(cfg.Catalog.Path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("app.name", d.App.Name)
	v.SetDefault("app.version", d.App.Version)
	v.SetDefault("app.log_level", d.App.LogLevel)
	v.SetDefault("app.log_path", d.App.LogPath)
	v.SetDefault("app.timezone", d.App.Timezone)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.db_path", d.Storage.DBPath)
	v.SetDefault("storage.dsn", d.Storage.DSN)

	v.SetDefault("gamification.isolate_failures", d.Gamification.IsolateFailures)
	v.SetDefault("gamification.retry_batch_size", d.Gamification.RetryBatchSize)
	v.SetDefault("gamification.retry_interval_sec", d.Gamification.RetryIntervalSec)

	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("catalog.watch", d.Catalog.Watch)
	v.SetDefault("catalog.debounce_ms", d.Catalog.DebounceMs)

	v.SetDefault("ops.enabled", d.Ops.Enabled)
	v.SetDefault("ops.listen_addr", d.Ops.ListenAddr)
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage.Driver) {
	case "", "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.driver=postgres 需要配置 storage.dsn")
		}
	default:
		return fmt.Errorf("不支持的存储驱动: %s", c.Storage.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Gamification.RetryBatchSize <= 0 {
		c.Gamification.RetryBatchSize = Default().Gamification.RetryBatchSize
	}
	return nil
}

// Location 解析 app.timezone
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("解析时区 %q 失败: %w", c.App.Timezone, err)
	}
	return loc, nil
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}
	return s
}

// resolvePath 相对路径按可执行文件目录解析
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	exe, err := os.Executable()
	if err != nil {
		return path
	}
	return filepath.Join(filepath.Dir(exe), path)
}
