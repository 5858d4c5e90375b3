package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/HabitQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ActivityRepository 活动仓储
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository 创建仓储
func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create 创建活动
func (r *ActivityRepository) Create(ctx context.Context, activity *schema.Activity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("创建活动失败: %w", err)
	}
	return nil
}

// GetByID 按 ID 查询，不存在返回 nil
func (r *ActivityRepository) GetByID(ctx context.Context, id int64) (*schema.Activity, error) {
	var activity schema.Activity
	err := r.db.WithContext(ctx).First(&activity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询活动失败: %w", err)
	}
	return &activity, nil
}

// LockByID 事务内加锁读取活动，用于状态迁移
func (r *ActivityRepository) LockByID(ctx context.Context, id int64) (*schema.Activity, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() != DriverSQLite {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var activity schema.Activity
	err := q.First(&activity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("锁定活动失败: %w", err)
	}
	return &activity, nil
}

// UpdateStatus 更新状态与完成时间
func (r *ActivityRepository) UpdateStatus(ctx context.Context, id int64, status string, realizedAt *int64) error {
	updates := map[string]any{"status": status}
	if realizedAt != nil {
		updates["realized_at"] = *realizedAt
	}
	if err := r.db.WithContext(ctx).Model(&schema.Activity{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("更新活动状态失败: %w", err)
	}
	return nil
}

// ListByUser 列出用户活动（按计划时间倒序）
func (r *ActivityRepository) ListByUser(ctx context.Context, userID int64, status string, limit int) ([]schema.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var activities []schema.Activity
	if err := q.Order("scheduled_at DESC").Limit(limit).Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("查询活动列表失败: %w", err)
	}
	return activities, nil
}

// CountCreatedInRange 统计创建时刻落在区间内的活动数
func (r *ActivityRepository) CountCreatedInRange(ctx context.Context, userID int64, tr TimeRange) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&schema.Activity{}).
		Where("user_id = ? AND created_ms >= ? AND created_ms <= ?", userID, tr.StartMs, tr.EndMs).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计创建活动失败: %w", err)
	}
	return count, nil
}

// CountScheduledByDifficulty 统计区间内计划的指定难度活动，以及其中至少完成过一次的数量
func (r *ActivityRepository) CountScheduledByDifficulty(ctx context.Context, userID int64, difficulty string, tr TimeRange) (total int64, completed int64, err error) {
	base := r.db.WithContext(ctx).Model(&schema.Activity{}).
		Where("user_id = ? AND difficulty = ? AND scheduled_at >= ? AND scheduled_at <= ?", userID, difficulty, tr.StartMs, tr.EndMs)
	if err := base.Count(&total).Error; err != nil {
		return 0, 0, fmt.Errorf("统计计划活动失败: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	err = r.db.WithContext(ctx).Model(&schema.Activity{}).
		Where("user_id = ? AND difficulty = ? AND scheduled_at >= ? AND scheduled_at <= ?", userID, difficulty, tr.StartMs, tr.EndMs).
		Where("EXISTS (SELECT 1 FROM activity_completions c WHERE c.activity_id = activities.id)").
		Count(&completed).Error
	if err != nil {
		return 0, 0, fmt.Errorf("统计已完成计划活动失败: %w", err)
	}
	return total, completed, nil
}

// ListCreatedMs 返回用户全部活动的创建时刻（Unix ms）
func (r *ActivityRepository) ListCreatedMs(ctx context.Context, userID int64) ([]int64, error) {
	var out []int64
	err := r.db.WithContext(ctx).Model(&schema.Activity{}).
		Where("user_id = ?", userID).
		Pluck("created_ms", &out).Error
	if err != nil {
		return nil, fmt.Errorf("查询活动创建时间失败: %w", err)
	}
	return out, nil
}
