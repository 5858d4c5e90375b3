package bootstrap

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/yuqie6/HabitQuest/internal/eventbus"
	"github.com/yuqie6/HabitQuest/internal/pkg/buildinfo"
	"github.com/yuqie6/HabitQuest/internal/pkg/config"
	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/service"
)

// Core 持有跨二进制共享的核心依赖
type Core struct {
	Cfg       *config.Config
	DB        *repository.Database
	Store     *repository.Store
	Hub       *eventbus.Hub
	Loc       *time.Location
	LogCloser io.Closer

	Services struct {
		Notifications *service.NotificationService
		Ledger        *service.XPLedger
		Streaks       *service.StreakService
		Challenges    *service.ChallengeService
		Achievements  *service.AchievementService
		Gamification  *service.GamificationService
		Activities    *service.ActivityService
		Users         *service.UserService
	}
}

// NewCore 加载配置、打开数据库并装配服务（不启动后台任务）
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return NewCoreFromConfig(cfg)
}

// NewCoreFromConfig 使用已加载的配置装配核心依赖
func NewCoreFromConfig(cfg *config.Config) (*Core, error) {
	logCloser, err := config.SetupLogger(config.LoggerOptions{
		Level:     cfg.App.LogLevel,
		Path:      cfg.App.LogPath,
		Component: filepath.Base(os.Args[0]),
	})
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		closeQuietly(logCloser)
		return nil, err
	}

	db, err := repository.NewDatabase(repository.Options{
		Driver: cfg.Storage.Driver,
		DBPath: cfg.Storage.DBPath,
		DSN:    cfg.Storage.DSN,

		AppVersion: buildinfo.Version,
	})
	if err != nil {
		closeQuietly(logCloser)
		return nil, err
	}

	c := &Core{
		Cfg:       cfg,
		DB:        db,
		Store:     repository.NewStore(db.DB),
		Hub:       eventbus.NewHub(),
		Loc:       loc,
		LogCloser: logCloser,
	}

	c.Services.Notifications = service.NewNotificationService(c.Store)
	c.Services.Ledger = service.NewXPLedger(c.Services.Notifications)
	c.Services.Streaks = service.NewStreakService(loc)
	c.Services.Challenges = service.NewChallengeService(c.Store, c.Services.Ledger, c.Services.Notifications, c.Services.Streaks)
	c.Services.Achievements = service.NewAchievementService(c.Store, c.Services.Ledger, c.Services.Notifications, c.Services.Streaks)
	c.Services.Gamification = service.NewGamificationService(
		c.Store,
		c.Services.Ledger,
		c.Services.Notifications,
		c.Services.Challenges,
		c.Services.Achievements,
		c.Hub,
	)
	c.Services.Activities = service.NewActivityService(
		c.Store,
		c.Services.Gamification,
		service.DefaultXPPolicy{},
		func() time.Time { return time.Now().In(loc) },
		&service.ActivityServiceConfig{IsolateFailures: cfg.Gamification.IsolateFailures},
	)
	c.Services.Users = service.NewUserService(c.Store, c.Services.Streaks)

	return c, nil
}

// Now 配置时区下的当前时间
func (c *Core) Now() time.Time {
	return time.Now().In(c.Loc)
}

// RequireWritable 安全模式下拒绝写操作
func (c *Core) RequireWritable() error {
	if c.DB != nil && c.DB.SafeMode {
		return fmt.Errorf("数据库处于安全模式（%s）: %w", c.DB.MigrationError, service.ErrSafeMode)
	}
	return nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	var dbErr error
	if c.DB != nil {
		dbErr = c.DB.Close()
	}
	closeQuietly(c.LogCloser)
	return dbErr
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
