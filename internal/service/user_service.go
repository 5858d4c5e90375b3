package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

// UserService 用户与进度概览
type UserService struct {
	store   *repository.Store
	streaks *StreakService
}

// NewUserService 创建用户服务
func NewUserService(store *repository.Store, streaks *StreakService) *UserService {
	return &UserService{store: store, streaks: streaks}
}

// Create 创建用户，邮箱唯一
func (s *UserService) Create(ctx context.Context, name, email string) (*schema.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("用户名或邮箱为空: %w", ErrInvalidInput)
	}
	existing, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("邮箱 %s 已注册: %w", email, ErrInvalidInput)
	}
	user := &schema.User{Name: name, Email: email, Level: 1}
	if err := s.store.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get 查询用户
func (s *UserService) Get(ctx context.Context, id int64) (*schema.User, error) {
	user, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List 列出用户（按 ID 正序）
func (s *UserService) List(ctx context.Context, limit int) ([]schema.User, error) {
	return s.store.Users.List(ctx, limit)
}

// UserProgress 用户进度概览
type UserProgress struct {
	User              schema.User
	LevelPercent      float64
	XPToNext          int
	CompletionStreak  int
	CreationStreak    int
	Week              *WeekCalendar
	ChallengesWon     int64
	AchievementsCount int64
	UnreadCount       int64
}

// Progress 汇总用户等级、连续天数与奖励统计
func (s *UserService) Progress(ctx context.Context, id int64, now time.Time) (*UserProgress, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &UserProgress{
		User:         *user,
		LevelPercent: LevelProgress(user),
		XPToNext:     schema.XPPerLevel - user.XP,
	}
	if p.CompletionStreak, err = s.streaks.Streak(ctx, s.store, id, StreakCompletion, now); err != nil {
		return nil, err
	}
	if p.CreationStreak, err = s.streaks.Streak(ctx, s.store, id, StreakCreation, now); err != nil {
		return nil, err
	}
	if p.Week, err = s.streaks.WeekCalendar(ctx, s.store, id, now); err != nil {
		return nil, err
	}
	if p.ChallengesWon, err = s.store.ChallengeAwards.CountByUser(ctx, id, nil); err != nil {
		return nil, err
	}
	if p.AchievementsCount, err = s.store.AchievementAwards.CountByUser(ctx, id); err != nil {
		return nil, err
	}
	if p.UnreadCount, err = s.store.Notifications.CountUnread(ctx, id); err != nil {
		return nil, err
	}
	return p, nil
}
