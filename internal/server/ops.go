// Package server 运维 HTTP 端点：健康检查、Prometheus 指标与结算事件流。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuqie6/HabitQuest/internal/dto"
	"github.com/yuqie6/HabitQuest/internal/eventbus"
	"github.com/yuqie6/HabitQuest/internal/repository"
)

// Options 服务器启动配置
type Options struct {
	ListenAddr string // e.g. "127.0.0.1:9464"，端口为 0 时随机分配
	Name       string
	Version    string
	Status     func(ctx context.Context) (*dto.StatusDTO, error) // 为 nil 时不挂载 /status
}

// OpsServer 运维 HTTP 服务器
type OpsServer struct {
	db        *repository.Database
	hub       *eventbus.Hub
	opts      Options
	startTime time.Time

	ln      net.Listener
	srv     *http.Server
	baseURL string
}

// New 创建服务器（未监听）；db 与 hub 可为 nil
func New(db *repository.Database, hub *eventbus.Hub, opts Options) *OpsServer {
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = "127.0.0.1:0"
	}
	return &OpsServer{db: db, hub: hub, opts: opts, startTime: time.Now()}
}

// Handler 返回挂载全部路由的 chi router
func (s *OpsServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// 事件流是长连接，不能套用超时中间件
	r.Get("/events", s.handleSSE)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Get("/health", s.handleHealth)
		if s.opts.Status != nil {
			r.Get("/status", s.handleStatus)
		}
		r.Handle("/metrics", promhttp.Handler())
	})
	return r
}

// Start 开始监听；ctx 结束时自动关闭
func (s *OpsServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.ListenAddr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", s.opts.ListenAddr, err)
	}
	_, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		_ = ln.Close()
		return err
	}
	s.ln = ln
	s.baseURL = "http://127.0.0.1:" + port
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = s.Shutdown(context.Background())
	}()
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server 异常退出", "error", err)
		}
	}()

	slog.Info("运维端点已启动", "base_url", s.baseURL)
	return nil
}

// BaseURL 实际监听地址
func (s *OpsServer) BaseURL() string {
	return s.baseURL
}

// Shutdown 优雅关闭
func (s *OpsServer) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *OpsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"ok":         true,
		"name":       s.opts.Name,
		"version":    s.opts.Version,
		"started_at": s.startTime.Format(time.RFC3339),
	}
	if s.db != nil {
		body["driver"] = s.db.Driver
		body["schema_version"] = s.db.SchemaVersion
		if s.db.SafeMode {
			// 安全模式下不结算奖励，返回 503 便于探针发现
			status = http.StatusServiceUnavailable
			body["ok"] = false
			body["safe_mode"] = true
			body["migration_error"] = s.db.MigrationError
		} else if sqlDB, err := s.db.DB.DB(); err == nil {
			if err := sqlDB.PingContext(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["ok"] = false
				body["error"] = err.Error()
			}
		}
	}
	writeJSON(w, status, body)
}

func (s *OpsServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.opts.Status(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *OpsServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream not supported")
		return
	}
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "event hub disabled")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	var types []string
	if q := strings.TrimSpace(r.URL.Query().Get("types")); q != "" {
		types = strings.Split(q, ",")
	}
	sub := s.hub.Subscribe(ctx, 32, types...)

	_, _ = io.WriteString(w, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		case evt, ok := <-sub:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt)
			_, _ = io.WriteString(w, "event: "+sanitizeSSEName(evt.Type)+"\n")
			_, _ = io.WriteString(w, "data: ")
			_, _ = w.Write(b)
			_, _ = io.WriteString(w, "\n\n")
			flusher.Flush()
		}
	}
}

func sanitizeSSEName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return "message"
	}
	n = strings.ReplaceAll(n, "\n", "")
	return strings.ReplaceAll(n, "\r", "")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
