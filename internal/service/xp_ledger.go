package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

// ApplyXP 增加经验并处理升级：每满 XPPerLevel 升一级，可一次跨多级
func ApplyXP(level, xp, amount int) (int, int) {
	if level < 1 {
		level = 1
	}
	if xp < 0 {
		xp = 0
	}
	if amount > 0 {
		xp += amount
	}
	for xp >= schema.XPPerLevel {
		xp -= schema.XPPerLevel
		level++
	}
	return level, xp
}

// LevelChange 一次经验发放的结果
type LevelChange struct {
	UserID    int64
	Amount    int
	PrevLevel int
	Level     int
	XP        int
}

// LeveledUp 是否发生升级
func (c LevelChange) LeveledUp() bool {
	return c.Level > c.PrevLevel
}

// LevelProgress 当前等级进度百分比（保留一位小数）
func LevelProgress(user *schema.User) float64 {
	if user == nil {
		return 0
	}
	p := float64(user.XP) / schema.XPPerLevel * 100
	return float64(int(p*10+0.5)) / 10
}

// XPLedger 经验账本：唯一允许修改用户 level/xp 的入口
type XPLedger struct {
	notifications *NotificationService
}

// NewXPLedger 创建经验账本
func NewXPLedger(notifications *NotificationService) *XPLedger {
	return &XPLedger{notifications: notifications}
}

// AddXP 在 tx 内为用户增加经验；升级时写一条 level_up 通知
func (l *XPLedger) AddXP(ctx context.Context, tx *repository.Store, userID int64, amount int) (LevelChange, error) {
	user, err := tx.Users.LockByID(ctx, userID)
	if err != nil {
		return LevelChange{}, err
	}
	if user == nil {
		return LevelChange{}, fmt.Errorf("发放经验失败: %w", ErrUserNotFound)
	}

	change := LevelChange{UserID: userID, PrevLevel: user.Level, Level: user.Level, XP: user.XP}
	if amount <= 0 {
		return change, nil
	}

	level, xp := ApplyXP(user.Level, user.XP, amount)
	if err := tx.Users.UpdateProgress(ctx, userID, level, xp); err != nil {
		return LevelChange{}, err
	}
	change.Amount = amount
	change.Level = level
	change.XP = xp

	if change.LeveledUp() {
		if err := l.notifications.Notify(ctx, tx, userID, schema.NotifyLevelUp, levelUpMessage(level)); err != nil {
			return LevelChange{}, err
		}
		slog.Info("用户升级", "user_id", userID, "from", change.PrevLevel, "to", level)
	}
	return change, nil
}
