package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/yuqie6/HabitQuest/internal/eventbus"
	"github.com/yuqie6/HabitQuest/internal/metrics"
	"github.com/yuqie6/HabitQuest/internal/repository"
)

// WatcherConfig 热加载配置
type WatcherConfig struct {
	Path     string
	Debounce time.Duration
	Location *time.Location
}

// Watcher 监听目录文件变更并重新同步；解析失败时保留数据库中的旧定义
type Watcher struct {
	path     string
	debounce time.Duration
	loc      *time.Location
	store    *repository.Store
	hub      *eventbus.Hub

	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	running  bool
	timer    *time.Timer
	wg       sync.WaitGroup
}

// NewWatcher 创建目录监听器；hub 可为 nil
func NewWatcher(cfg WatcherConfig, store *repository.Store, hub *eventbus.Hub) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("目录路径为空，无法监听")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("获取绝对路径失败: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监控器失败: %w", err)
	}
	// 监听所在目录：编辑器保存时常以 rename 替换文件
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("添加监控目录失败: %w", err)
	}
	return &Watcher{
		path:     abs,
		debounce: cfg.Debounce,
		loc:      cfg.Location,
		store:    store,
		hub:      hub,
		watcher:  w,
		stopChan: make(chan struct{}),
	}, nil
}

// Start 启动监听循环
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	slog.Info("规则目录热加载启动", "path", w.path)
	w.wg.Add(1)
	go w.watchLoop(ctx)
	return nil
}

// Stop 停止监听，并等待进行中的同步完成
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.running = false
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		close(w.stopChan)
		_ = w.watcher.Close()
		w.wg.Wait()
		slog.Info("规则目录热加载已停止")
	})
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFsEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("文件监控错误", "error", err)
		}
	}
}

// handleFsEvent 目标文件的写入/创建/改名事件在防抖结束后触发一次同步
func (w *Watcher) handleFsEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() { w.fire(ctx) })
}

// fire 防抖到期后执行同步；Stop 之后不再触发，已开始的同步由 Stop 等待结束
func (w *Watcher) fire(ctx context.Context) {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.wg.Add(1)
	w.mu.Unlock()
	defer w.wg.Done()
	w.Reload(ctx)
}

// Reload 重新读取并同步目录
func (w *Watcher) Reload(ctx context.Context) {
	cat, err := Load(w.path)
	if err != nil {
		metrics.CatalogSyncs.WithLabelValues("invalid").Inc()
		slog.Warn("规则目录无效，保留旧定义", "path", w.path, "error", err)
		return
	}
	res, err := Sync(ctx, w.store, cat, w.loc)
	if err != nil {
		metrics.CatalogSyncs.WithLabelValues("error").Inc()
		slog.Error("规则目录同步失败", "path", w.path, "error", err)
		return
	}
	metrics.CatalogSyncs.WithLabelValues("ok").Inc()
	w.hub.Publish(eventbus.Event{
		Type: eventbus.TypeCatalogSynced,
		Data: map[string]any{
			"path":         w.path,
			"challenges":   res.Challenges,
			"achievements": res.Achievements,
		},
	})
}
