package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/HabitQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompletionFilter 完成记录统计条件；零值字段表示不限
type CompletionFilter struct {
	UserID       int64
	Range        *TimeRange
	Difficulties []string
	Recurrence   string
	MinMinutes   int
	// DistinctActivity 为 true 时按活动去重计数
	DistinctActivity bool
}

// CompletionRepository 完成记录仓储
type CompletionRepository struct {
	db *gorm.DB
}

// NewCompletionRepository 创建仓储
func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

// Create 插入完成记录；RequestID 已存在时不插入并返回 false
func (r *CompletionRepository) Create(ctx context.Context, c *schema.ActivityCompletion) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "request_id"}}, DoNothing: true}).
		Create(c)
	if res.Error != nil {
		return false, fmt.Errorf("写入完成记录失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetByID 按 ID 查询，不存在返回 nil
func (r *CompletionRepository) GetByID(ctx context.Context, id int64) (*schema.ActivityCompletion, error) {
	var c schema.ActivityCompletion
	err := r.db.WithContext(ctx).First(&c, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询完成记录失败: %w", err)
	}
	return &c, nil
}

// GetByRequestID 按请求 ID 查询，不存在返回 nil
func (r *CompletionRepository) GetByRequestID(ctx context.Context, requestID string) (*schema.ActivityCompletion, error) {
	var c schema.ActivityCompletion
	err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询完成记录失败: %w", err)
	}
	return &c, nil
}

// MarkRewarded 将 rewarded 从 false 置为 true；已置位返回 false
func (r *CompletionRepository) MarkRewarded(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&schema.ActivityCompletion{}).
		Where("id = ? AND rewarded = ?", id, false).
		Update("rewarded", true)
	if res.Error != nil {
		return false, fmt.Errorf("标记完成记录失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListUnrewarded 查询尚未处理奖励的完成记录（按时间正序）
func (r *CompletionRepository) ListUnrewarded(ctx context.Context, limit int) ([]schema.ActivityCompletion, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []schema.ActivityCompletion
	err := r.db.WithContext(ctx).
		Where("rewarded = ?", false).
		Order("completed_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("查询待处理完成记录失败: %w", err)
	}
	return out, nil
}

// CountUnrewarded 统计尚未处理奖励的完成记录
func (r *CompletionRepository) CountUnrewarded(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&schema.ActivityCompletion{}).Where("rewarded = ?", false).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计待处理完成记录失败: %w", err)
	}
	return count, nil
}

// CountSince 统计 sinceMs 之后的全部完成记录
func (r *CompletionRepository) CountSince(ctx context.Context, sinceMs int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&schema.ActivityCompletion{}).Where("completed_at >= ?", sinceMs).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计完成记录失败: %w", err)
	}
	return count, nil
}

// Count 按条件统计完成次数
func (r *CompletionRepository) Count(ctx context.Context, f CompletionFilter) (int64, error) {
	q := r.db.WithContext(ctx).
		Table("activity_completions AS c").
		Joins("JOIN activities a ON a.id = c.activity_id").
		Where("c.user_id = ?", f.UserID)
	if f.Range != nil {
		q = q.Where("c.completed_at >= ? AND c.completed_at <= ?", f.Range.StartMs, f.Range.EndMs)
	}
	if len(f.Difficulties) > 0 {
		q = q.Where("a.difficulty IN ?", f.Difficulties)
	}
	if f.Recurrence != "" {
		q = q.Where("a.recurrence = ?", f.Recurrence)
	}
	if f.MinMinutes > 0 {
		q = q.Where("a.estimated_minutes >= ?", f.MinMinutes)
	}

	sel := "COUNT(1)"
	if f.DistinctActivity {
		sel = "COUNT(DISTINCT c.activity_id)"
	}
	var count int64
	if err := q.Select(sel).Scan(&count).Error; err != nil {
		return 0, fmt.Errorf("统计完成记录失败: %w", err)
	}
	return count, nil
}

// ListCompletedAt 返回用户全部完成时刻（Unix ms）
func (r *CompletionRepository) ListCompletedAt(ctx context.Context, userID int64) ([]int64, error) {
	var out []int64
	err := r.db.WithContext(ctx).Model(&schema.ActivityCompletion{}).
		Where("user_id = ?", userID).
		Pluck("completed_at", &out).Error
	if err != nil {
		return nil, fmt.Errorf("查询完成时间失败: %w", err)
	}
	return out, nil
}
