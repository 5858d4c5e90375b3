package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合全部仓储；Transaction 内拿到的 Store 绑定同一事务
type Store struct {
	db *gorm.DB

	Users             *UserRepository
	Activities        *ActivityRepository
	Completions       *CompletionRepository
	Challenges        *ChallengeRepository
	ChallengeAwards   *ChallengeAwardRepository
	Achievements      *AchievementRepository
	AchievementAwards *AchievementAwardRepository
	Notifications     *NotificationRepository
}

// NewStore 基于 db（或事务句柄）构建仓储集合
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:                db,
		Users:             NewUserRepository(db),
		Activities:        NewActivityRepository(db),
		Completions:       NewCompletionRepository(db),
		Challenges:        NewChallengeRepository(db),
		ChallengeAwards:   NewChallengeAwardRepository(db),
		Achievements:      NewAchievementRepository(db),
		AchievementAwards: NewAchievementAwardRepository(db),
		Notifications:     NewNotificationRepository(db),
	}
}

// DB 返回底层句柄
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction 在事务中执行 fn；已处于事务时 gorm 使用 SAVEPOINT 嵌套。
// fn 返回错误时整体回滚。
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
