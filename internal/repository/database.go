package repository

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite" // 纯 Go SQLite 驱动
	"github.com/yuqie6/HabitQuest/internal/schema"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 支持的存储驱动
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options 数据库连接参数
type Options struct {
	Driver string // sqlite / postgres
	DBPath string // sqlite 文件路径
	DSN    string // postgres 连接串

	AppVersion string // 写入 schema_meta.applied_by
}

// Database 数据库管理器
type Database struct {
	DB             *gorm.DB
	Driver         string
	SafeMode       bool
	SchemaVersion  int
	MigrationError string
}

// NewDatabase 创建数据库连接
func NewDatabase(opts Options) (*Database, error) {
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverSQLite
	}

	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		// 确保目录存在
		if dir := filepath.Dir(opts.DBPath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("创建数据目录失败: %w", err)
			}
		}
		db, err = gorm.Open(sqlite.Open(opts.DBPath), gcfg)
		if err != nil {
			return nil, fmt.Errorf("连接数据库失败: %w", err)
		}
		if err := configureSQLite(db); err != nil {
			return nil, fmt.Errorf("配置数据库失败: %w", err)
		}
	case DriverPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres dsn 不能为空")
		}
		db, err = gorm.Open(postgres.Open(opts.DSN), gcfg)
		if err != nil {
			return nil, fmt.Errorf("连接数据库失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的存储驱动: %s", opts.Driver)
	}

	d := &Database{DB: db, Driver: driver}
	if err := migrate(db, d, opts.AppVersion); err != nil {
		// 迁移失败进入安全模式：只读诊断，不执行奖励计算
		d.SafeMode = true
		d.MigrationError = err.Error()
		slog.Error("数据库迁移失败，进入安全模式", "error", err)
	}

	slog.Info("数据库初始化成功", "driver", driver, "path", opts.DBPath)

	return d, nil
}

// configureSQLite 配置 SQLite 参数
// SQLite 单写者：限制为单连接，写事务天然串行。
func configureSQLite(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",   // 启用 WAL 模式，支持并发读写
		"PRAGMA synchronous=NORMAL", // 平衡性能与安全
		"PRAGMA busy_timeout=5000",  // 锁等待
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return fmt.Errorf("执行 %s 失败: %w", pragma, err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层连接失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}

// Models 返回需要迁移的全部表
func Models() []any {
	return []any{
		&schema.SchemaMeta{},
		&schema.User{},
		&schema.Activity{},
		&schema.ActivityCompletion{},
		&schema.Challenge{},
		&schema.ChallengeAward{},
		&schema.Achievement{},
		&schema.AchievementAward{},
		&schema.Notification{},
	}
}

// AutoMigrate 自动迁移表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// migration 将 schema 升级到 version
type migration struct {
	version int
	name    string
	apply   func(tx *gorm.DB) error
}

// migrations 按版本递增排列，已发布的步骤不可修改
var migrations = []migration{
	{version: 1, name: "初始表结构", apply: AutoMigrate},
	{version: 2, name: "通知未读索引", apply: func(tx *gorm.DB) error {
		return tx.Exec("CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications (user_id, is_read)").Error
	}},
}

// LatestSchemaVersion 当前程序支持的最高 schema 版本
func LatestSchemaVersion() int {
	return migrations[len(migrations)-1].version
}

// migrate 从当前版本逐步执行迁移；每一步与版本号写入在同一事务内
func migrate(db *gorm.DB, out *Database, appVersion string) error {
	if err := db.AutoMigrate(&schema.SchemaMeta{}); err != nil {
		return fmt.Errorf("创建 schema_meta 失败: %w", err)
	}

	var meta schema.SchemaMeta
	if err := db.First(&meta, 1).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("读取 schema_meta 失败: %w", err)
		}
		meta = schema.SchemaMeta{ID: 1}
		if err := db.Create(&meta).Error; err != nil {
			return fmt.Errorf("初始化 schema_meta 失败: %w", err)
		}
	}
	out.SchemaVersion = meta.SchemaVersion

	latest := LatestSchemaVersion()
	if meta.SchemaVersion > latest {
		return fmt.Errorf("数据库 schema_version=%d 高于当前程序支持的版本=%d", meta.SchemaVersion, latest)
	}

	for _, m := range migrations {
		if m.version <= meta.SchemaVersion {
			continue
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.apply(tx); err != nil {
				return err
			}
			meta.SchemaVersion = m.version
			meta.AppliedBy = appVersion
			meta.MigratedAt = time.Now().UnixMilli()
			return tx.Save(&meta).Error
		})
		if err != nil {
			return fmt.Errorf("迁移到版本 %d（%s）失败: %w", m.version, m.name, err)
		}
		out.SchemaVersion = m.version
		slog.Info("数据库迁移完成", "version", m.version, "name", m.name)
	}
	return nil
}

// Close 关闭数据库连接
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
