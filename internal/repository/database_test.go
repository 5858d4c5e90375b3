package repository

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuqie6/HabitQuest/internal/schema"
	"github.com/yuqie6/HabitQuest/internal/testutil"
)

func TestMigrateAppliesStepsOnce(t *testing.T) {
	db := testutil.OpenTestDB(t)
	out := &Database{DB: db}
	if err := migrate(db, out, "v-test"); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	if out.SchemaVersion != LatestSchemaVersion() {
		t.Fatalf("SchemaVersion=%d, want %d", out.SchemaVersion, LatestSchemaVersion())
	}
	var meta schema.SchemaMeta
	if err := db.First(&meta, 1).Error; err != nil {
		t.Fatalf("read meta: %v", err)
	}
	if meta.AppliedBy != "v-test" || meta.MigratedAt == 0 {
		t.Fatalf("meta=%+v", meta)
	}
	if !db.Migrator().HasIndex(&schema.Notification{}, "idx_notifications_user_unread") {
		t.Fatalf("unread index missing")
	}

	// 已是最新版本时不再改写 applied_by
	if err := migrate(db, out, "v-next"); err != nil {
		t.Fatalf("second migrate error: %v", err)
	}
	_ = db.First(&meta, 1)
	if meta.AppliedBy != "v-test" {
		t.Fatalf("AppliedBy=%q after no-op migrate", meta.AppliedBy)
	}
}

func TestMigrateRejectsNewerSchema(t *testing.T) {
	db := testutil.OpenTestDB(t)
	if err := db.AutoMigrate(&schema.SchemaMeta{}); err != nil {
		t.Fatalf("migrate meta: %v", err)
	}
	if err := db.Create(&schema.SchemaMeta{ID: 1, SchemaVersion: LatestSchemaVersion() + 1}).Error; err != nil {
		t.Fatalf("seed meta: %v", err)
	}
	err := migrate(db, &Database{DB: db}, "v-test")
	if err == nil || !strings.Contains(err.Error(), "高于") {
		t.Fatalf("err=%v, want newer schema error", err)
	}
}

func TestNewDatabase(t *testing.T) {
	d, err := NewDatabase(Options{DBPath: filepath.Join(t.TempDir(), "nested", "quest.db")})
	if err != nil {
		t.Fatalf("NewDatabase error: %v", err)
	}
	defer d.Close()
	if d.Driver != DriverSQLite || d.SafeMode || d.SchemaVersion != LatestSchemaVersion() {
		t.Fatalf("database=%+v", d)
	}

	if _, err := NewDatabase(Options{Driver: "mysql"}); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
	if _, err := NewDatabase(Options{Driver: DriverPostgres}); err == nil {
		t.Fatalf("expected missing dsn error")
	}
}
