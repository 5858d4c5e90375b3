package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/yuqie6/HabitQuest/internal/catalog"
	"github.com/yuqie6/HabitQuest/internal/dto"
	"github.com/yuqie6/HabitQuest/internal/observability"
	"github.com/yuqie6/HabitQuest/internal/pkg/buildinfo"
	"github.com/yuqie6/HabitQuest/internal/server"
	"golang.org/x/sync/errgroup"
)

// AgentRuntime 常驻进程：规则目录同步与热加载、运维端点、补偿结算
type AgentRuntime struct {
	*Core
	Watcher   *catalog.Watcher
	Ops       *server.OpsServer
	StartedAt time.Time
}

// Status 当前运行状态
func (rt *AgentRuntime) Status(ctx context.Context) (*dto.StatusDTO, error) {
	return observability.BuildStatus(ctx, observability.StatusInput{
		Name:            rt.Cfg.App.Name,
		Version:         buildinfo.String(),
		StartedAt:       rt.StartedAt,
		Location:        rt.Loc,
		DB:              rt.DB,
		Store:           rt.Store,
		CatalogPath:     rt.Cfg.Catalog.Path,
		Watching:        rt.Watcher != nil,
		IsolateFailures: rt.Cfg.Gamification.IsolateFailures,
	}, time.Now())
}

// NewAgentRuntime 构建运行时：同步规则目录并启动热加载与运维端点
func NewAgentRuntime(ctx context.Context, cfgPath string) (*AgentRuntime, error) {
	core, err := NewCore(cfgPath)
	if err != nil {
		return nil, err
	}
	rt := &AgentRuntime{Core: core, StartedAt: time.Now()}

	if core.Cfg.Ops.Enabled {
		rt.Ops = server.New(core.DB, core.Hub, server.Options{
			ListenAddr: core.Cfg.Ops.ListenAddr,
			Name:       core.Cfg.App.Name,
			Version:    buildinfo.String(),
			Status:     rt.Status,
		})
		if err := rt.Ops.Start(ctx); err != nil {
			rt.Close()
			return nil, err
		}
	}

	if core.DB.SafeMode {
		// 安全模式：只保留 /health 诊断，不写库
		slog.Warn("安全模式启动，跳过目录同步与补偿结算", "error", core.DB.MigrationError)
		return rt, nil
	}

	cat, err := catalog.Load(core.Cfg.Catalog.Path)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if _, err := catalog.Sync(ctx, core.Store, cat, core.Loc); err != nil {
		rt.Close()
		return nil, err
	}

	if core.Cfg.Catalog.Watch && core.Cfg.Catalog.Path != "" {
		w, err := catalog.NewWatcher(catalog.WatcherConfig{
			Path:     core.Cfg.Catalog.Path,
			Debounce: time.Duration(core.Cfg.Catalog.DebounceMs) * time.Millisecond,
			Location: core.Loc,
		}, core.Store, core.Hub)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if err := w.Start(ctx); err != nil {
			rt.Close()
			return nil, err
		}
		rt.Watcher = w
	}
	return rt, nil
}

// Run 阻塞运行后台任务直到 ctx 结束
func (rt *AgentRuntime) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if !rt.DB.SafeMode {
		interval := time.Duration(rt.Cfg.Gamification.RetryIntervalSec) * time.Second
		if interval <= 0 {
			interval = time.Minute
		}
		g.Go(func() error {
			runPeriodic(ctx, interval, func() { retryPending(ctx, rt) })
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		return nil
	})
	return g.Wait()
}

// Close 关闭运行时资源
func (rt *AgentRuntime) Close() error {
	if rt == nil {
		return nil
	}
	if rt.Watcher != nil {
		_ = rt.Watcher.Stop()
	}
	if rt.Ops != nil {
		_ = rt.Ops.Shutdown(context.Background())
	}
	return rt.Core.Close()
}

// runPeriodic 立即执行一次，之后按间隔执行
func runPeriodic(ctx context.Context, interval time.Duration, fn func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	fn()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// retryPending 补偿结算未完成的完成记录
func retryPending(ctx context.Context, rt *AgentRuntime) {
	n, err := rt.Services.Activities.RetryPending(ctx, rt.Cfg.Gamification.RetryBatchSize)
	if err != nil && ctx.Err() == nil {
		slog.Warn("补偿结算失败", "error", err)
		return
	}
	if n > 0 {
		slog.Debug("补偿结算", "count", n)
	}
}
