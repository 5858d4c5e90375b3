package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/HabitQuest/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository 用户仓储
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建仓储
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *schema.User) error {
	if user.Level < 1 {
		user.Level = 1
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("创建用户失败: %w", err)
	}
	return nil
}

// GetByID 按 ID 查询，不存在返回 nil
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*schema.User, error) {
	var user schema.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &user, nil
}

// GetByEmail 按邮箱查询，不存在返回 nil
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*schema.User, error) {
	var user schema.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	return &user, nil
}

// LockByID 在事务内加行锁读取用户（Postgres: SELECT ... FOR UPDATE；SQLite 单写者忽略）
func (r *UserRepository) LockByID(ctx context.Context, id int64) (*schema.User, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() != DriverSQLite {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var user schema.User
	err := q.First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("锁定用户失败: %w", err)
	}
	return &user, nil
}

// UpdateProgress 写回等级与经验
func (r *UserRepository) UpdateProgress(ctx context.Context, id int64, level, xp int) error {
	res := r.db.WithContext(ctx).Model(&schema.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"level": level, "xp": xp})
	if res.Error != nil {
		return fmt.Errorf("更新用户经验失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("更新用户经验失败: 用户 %d 不存在", id)
	}
	return nil
}

// List 列出用户
func (r *UserRepository) List(ctx context.Context, limit int) ([]schema.User, error) {
	if limit <= 0 {
		limit = 100
	}
	var users []schema.User
	if err := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("查询用户列表失败: %w", err)
	}
	return users, nil
}
