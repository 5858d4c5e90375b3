package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/yuqie6/HabitQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB 打开内存 SQLite 并自动迁移所有表
// 单连接：:memory: 库按连接隔离，且与生产 SQLite 的单写者模型一致。
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&schema.User{},
		&schema.Activity{},
		&schema.ActivityCompletion{},
		&schema.Challenge{},
		&schema.ChallengeAward{},
		&schema.Achievement{},
		&schema.AchievementAward{},
		&schema.Notification{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}
