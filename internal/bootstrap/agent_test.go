package bootstrap

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/yuqie6/HabitQuest/internal/pkg/config"
	"github.com/yuqie6/HabitQuest/internal/schema"
	"github.com/yuqie6/HabitQuest/internal/service"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.DBPath = filepath.Join(dir, "quest.db")
	cfg.Ops.ListenAddr = "127.0.0.1:0"
	cfg.App.LogLevel = "error"
	path := filepath.Join(dir, "config.yaml")
	if err := config.WriteFile(path, cfg); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	return path
}

func TestAgentRuntimeSyncsCatalogAndServesHealth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := NewAgentRuntime(ctx, writeTestConfig(t))
	if err != nil {
		t.Fatalf("NewAgentRuntime error: %v", err)
	}
	defer rt.Close()

	var n int64
	if err := rt.DB.DB.Model(&schema.Challenge{}).Count(&n).Error; err != nil || n != 10 {
		t.Fatalf("challenges=%d err=%v, want 10", n, err)
	}

	resp, err := http.Get(rt.Ops.BaseURL() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status=%d", resp.StatusCode)
	}

	st, err := rt.Status(ctx)
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if st.Catalog.Challenges != 10 || st.Catalog.Achievements != 14 || st.App.SafeMode {
		t.Fatalf("status=%+v", st)
	}

	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestCoreWiresServices(t *testing.T) {
	cfg, err := config.Load(writeTestConfig(t))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	core, err := NewCoreFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewCoreFromConfig error: %v", err)
	}
	defer core.Close()

	if err := core.RequireWritable(); err != nil {
		t.Fatalf("RequireWritable error: %v", err)
	}
	ctx := context.Background()
	u, err := core.Services.Users.Create(ctx, "ana", "ana@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	a, _, err := core.Services.Activities.Create(ctx, service.CreateActivityInput{
		UserID: u.ID, Name: "Ler", Difficulty: schema.DifficultyEasy, EstimatedMinutes: 30,
	})
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	if _, err := core.Services.Activities.Realize(ctx, u.ID, a.ID, ""); err != nil {
		t.Fatalf("realize: %v", err)
	}
	got, _ := core.Services.Users.Get(ctx, u.ID)
	if got.XP != 100 {
		t.Fatalf("xp=%d, want 100", got.XP)
	}
}
