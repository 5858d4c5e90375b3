package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/HabitQuest/internal/schema"
	"gorm.io/gorm"
)

// NotificationRepository 通知仓储
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository 创建仓储
func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create 写入通知
func (r *NotificationRepository) Create(ctx context.Context, n *schema.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("写入通知失败: %w", err)
	}
	return nil
}

// ListByUser 列出用户通知（新到旧）
func (r *NotificationRepository) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]schema.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	var out []schema.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询通知失败: %w", err)
	}
	return out, nil
}

// CountUnread 统计未读通知
func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&schema.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计未读通知失败: %w", err)
	}
	return count, nil
}

// MarkRead 将单条通知置为已读；不属于该用户或已读时返回 false
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&schema.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return false, fmt.Errorf("标记通知已读失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkAllRead 将用户全部未读通知置为已读，返回更新条数
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&schema.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, fmt.Errorf("标记全部通知已读失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}
