package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// DefaultConfigPath 可执行文件旁的 config/config.yaml
func DefaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("获取可执行文件路径失败: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), "config", "config.yaml"), nil
}

// WriteFile 将配置写为 YAML，键名与 Load 读取的一致
func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	payload := map[string]any{
		"app": map[string]any{
			"name":      cfg.App.Name,
			"version":   cfg.App.Version,
			"log_level": cfg.App.LogLevel,
			"log_path":  cfg.App.LogPath,
			"timezone":  cfg.App.Timezone,
		},
		"storage": map[string]any{
			"driver":  cfg.Storage.Driver,
			"db_path": cfg.Storage.DBPath,
			"dsn":     cfg.Storage.DSN,
		},
		"gamification": map[string]any{
			"isolate_failures":   cfg.Gamification.IsolateFailures,
			"retry_batch_size":   cfg.Gamification.RetryBatchSize,
			"retry_interval_sec": cfg.Gamification.RetryIntervalSec,
		},
		"catalog": map[string]any{
			"path":        cfg.Catalog.Path,
			"watch":       cfg.Catalog.Watch,
			"debounce_ms": cfg.Catalog.DebounceMs,
		},
		"ops": map[string]any{
			"enabled":     cfg.Ops.Enabled,
			"listen_addr": cfg.Ops.ListenAddr,
		},
	}

	b, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
