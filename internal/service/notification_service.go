package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

// NotificationService 通知落库与已读管理
type NotificationService struct {
	store *repository.Store
}

// NewNotificationService 创建通知服务
func NewNotificationService(store *repository.Store) *NotificationService {
	return &NotificationService{store: store}
}

// Notify 在 tx 内写入一条通知
func (s *NotificationService) Notify(ctx context.Context, tx *repository.Store, userID int64, kind, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("通知内容为空: %w", ErrInvalidInput)
	}
	return tx.Notifications.Create(ctx, &schema.Notification{
		UserID:  userID,
		Kind:    kind,
		Message: message,
	})
}

// List 列出用户通知
func (s *NotificationService) List(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]schema.Notification, error) {
	return s.store.Notifications.ListByUser(ctx, userID, unreadOnly, limit)
}

// UnreadCount 未读数量
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.Notifications.CountUnread(ctx, userID)
}

// MarkRead 标记单条已读
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) (bool, error) {
	return s.store.Notifications.MarkRead(ctx, userID, id)
}

// MarkAllRead 标记全部已读
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.Notifications.MarkAllRead(ctx, userID)
}

func activityCompletedMessage(name string, xp int) string {
	return fmt.Sprintf("Parabéns! Você completou a atividade \"%s\" e ganhou %d XP!", name, xp)
}

func levelUpMessage(level int) string {
	return fmt.Sprintf("🎉 Incrível! Você alcançou o nível %d!", level)
}

func challengeCompletedMessage(name string, xp int) string {
	return fmt.Sprintf("Desafio Cumprido: \"%s\"! Você ganhou %d XP!", name, xp)
}

func achievementUnlockedMessage(name string, xp int) string {
	return fmt.Sprintf("Conquista Desbloqueada: \"%s\"! Você ganhou %d XP!", name, xp)
}
