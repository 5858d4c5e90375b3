package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/HabitQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChallengeRepository 挑战定义仓储
type ChallengeRepository struct {
	db *gorm.DB
}

// NewChallengeRepository 创建仓储
func NewChallengeRepository(db *gorm.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// ListAll 列出全部挑战
func (r *ChallengeRepository) ListAll(ctx context.Context) ([]schema.Challenge, error) {
	var out []schema.Challenge
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询挑战失败: %w", err)
	}
	return out, nil
}

// GetByID 按 ID 查询，不存在返回 nil
func (r *ChallengeRepository) GetByID(ctx context.Context, id int64) (*schema.Challenge, error) {
	var ch schema.Challenge
	err := r.db.WithContext(ctx).First(&ch, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询挑战失败: %w", err)
	}
	return &ch, nil
}

// UpsertByName 按名称插入或更新定义，保留已有 ID
func (r *ChallengeRepository) UpsertByName(ctx context.Context, ch *schema.Challenge) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "cycle", "window_start", "window_end", "rule_kind", "target", "xp_reward", "updated_at",
		}),
	}).Create(ch).Error
	if err != nil {
		return fmt.Errorf("写入挑战失败: %w", err)
	}
	return nil
}

// ChallengeAwardRepository 挑战授予仓储
type ChallengeAwardRepository struct {
	db *gorm.DB
}

// NewChallengeAwardRepository 创建仓储
func NewChallengeAwardRepository(db *gorm.DB) *ChallengeAwardRepository {
	return &ChallengeAwardRepository{db: db}
}

// InsertIfAbsent 按 (user, challenge, cycle_key) 幂等插入，返回是否实际插入
func (r *ChallengeAwardRepository) InsertIfAbsent(ctx context.Context, award *schema.ChallengeAward) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "challenge_id"}, {Name: "cycle_key"}},
			DoNothing: true,
		}).
		Create(award)
	if res.Error != nil {
		return false, fmt.Errorf("写入挑战授予失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ExistsInRange 区间内是否已授予该挑战
func (r *ChallengeAwardRepository) ExistsInRange(ctx context.Context, userID, challengeID int64, tr TimeRange) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&schema.ChallengeAward{}).
		Where("user_id = ? AND challenge_id = ? AND awarded_at >= ? AND awarded_at <= ?", userID, challengeID, tr.StartMs, tr.EndMs).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("查询挑战授予失败: %w", err)
	}
	return count > 0, nil
}

// Exists 是否曾授予该挑战
func (r *ChallengeAwardRepository) Exists(ctx context.Context, userID, challengeID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&schema.ChallengeAward{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("查询挑战授予失败: %w", err)
	}
	return count > 0, nil
}

// CountByUser 统计用户的挑战授予数，tr 为空表示全部时间
func (r *ChallengeAwardRepository) CountByUser(ctx context.Context, userID int64, tr *TimeRange) (int64, error) {
	q := r.db.WithContext(ctx).Model(&schema.ChallengeAward{}).Where("user_id = ?", userID)
	if tr != nil {
		q = q.Where("awarded_at >= ? AND awarded_at <= ?", tr.StartMs, tr.EndMs)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计挑战授予失败: %w", err)
	}
	return count, nil
}

// CountByCycle 统计用户在某周期类型挑战上的授予数
func (r *ChallengeAwardRepository) CountByCycle(ctx context.Context, userID int64, cycle string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("challenge_awards AS ca").
		Joins("JOIN challenges ch ON ch.id = ca.challenge_id").
		Where("ca.user_id = ? AND ch.cycle = ?", userID, cycle).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("统计挑战授予失败: %w", err)
	}
	return count, nil
}

// ListByUser 列出用户的挑战授予（新到旧）
func (r *ChallengeAwardRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]schema.ChallengeAward, error) {
	if limit <= 0 {
		limit = 100
	}
	var out []schema.ChallengeAward
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("awarded_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("查询挑战授予失败: %w", err)
	}
	return out, nil
}
