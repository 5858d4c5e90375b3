package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/HabitQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AchievementRepository 成就定义仓储
type AchievementRepository struct {
	db *gorm.DB
}

// NewAchievementRepository 创建仓储
func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// ListAll 列出全部成就
func (r *AchievementRepository) ListAll(ctx context.Context) ([]schema.Achievement, error) {
	var out []schema.Achievement
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询成就失败: %w", err)
	}
	return out, nil
}

// ListLocked 列出用户尚未解锁的成就
func (r *AchievementRepository) ListLocked(ctx context.Context, userID int64) ([]schema.Achievement, error) {
	var out []schema.Achievement
	err := r.db.WithContext(ctx).
		Where("NOT EXISTS (SELECT 1 FROM achievement_awards aa WHERE aa.achievement_id = achievements.id AND aa.user_id = ?)", userID).
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("查询未解锁成就失败: %w", err)
	}
	return out, nil
}

// UpsertByName 按名称插入或更新定义，保留已有 ID
func (r *AchievementRepository) UpsertByName(ctx context.Context, a *schema.Achievement) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"description", "image", "rule_kind", "target", "target_difficulty",
			"target_challenge_cycle", "pomodoro_minutes", "xp_reward", "updated_at",
		}),
	}).Create(a).Error
	if err != nil {
		return fmt.Errorf("写入成就失败: %w", err)
	}
	return nil
}

// AchievementAwardRepository 成就解锁仓储
type AchievementAwardRepository struct {
	db *gorm.DB
}

// NewAchievementAwardRepository 创建仓储
func NewAchievementAwardRepository(db *gorm.DB) *AchievementAwardRepository {
	return &AchievementAwardRepository{db: db}
}

// InsertIfAbsent 按 (user, achievement) 幂等插入，返回是否实际插入
func (r *AchievementAwardRepository) InsertIfAbsent(ctx context.Context, award *schema.AchievementAward) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).
		Create(award)
	if res.Error != nil {
		return false, fmt.Errorf("写入成就解锁失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListByUser 列出用户已解锁成就
func (r *AchievementAwardRepository) ListByUser(ctx context.Context, userID int64) ([]schema.AchievementAward, error) {
	var out []schema.AchievementAward
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("awarded_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("查询成就解锁失败: %w", err)
	}
	return out, nil
}

// CountByUser 统计用户已解锁成就数
func (r *AchievementAwardRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&schema.AchievementAward{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("统计成就解锁失败: %w", err)
	}
	return count, nil
}
