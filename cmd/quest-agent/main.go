package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/yuqie6/HabitQuest/internal/bootstrap"
	"github.com/yuqie6/HabitQuest/internal/pkg/buildinfo"
	"github.com/yuqie6/HabitQuest/internal/pkg/config"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径（默认为可执行文件旁的 config/config.yaml）")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := *cfgPath
	if path == "" {
		if p, err := config.DefaultConfigPath(); err == nil {
			path = p
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				_ = config.WriteFile(path, config.Default())
			}
		}
	}

	rt, err := bootstrap.NewAgentRuntime(ctx, path)
	if err != nil {
		slog.Error("启动 Agent 失败", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	slog.Info("HabitQuest Agent 已启动", "name", rt.Cfg.App.Name, "version", buildinfo.String())
	if err := rt.Run(ctx); err != nil {
		slog.Error("Agent 异常退出", "error", err)
		os.Exit(1)
	}
	slog.Info("HabitQuest Agent 已退出")
}
