package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuqie6/HabitQuest/internal/metrics"
	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

// ActivityServiceConfig 活动服务配置
type ActivityServiceConfig struct {
	// IsolateFailures 为 true 时结算在 SAVEPOINT 中执行：结算失败只回滚奖励，活动状态与完成记录照常提交，留待 RetryPending
	IsolateFailures bool
}

// ActivityService 活动创建/完成/取消，并在同一事务内触发结算
type ActivityService struct {
	store        *repository.Store
	gamification *GamificationService
	policy       XPPolicy
	clock        Clock
	cfg          ActivityServiceConfig
}

// NewActivityService 创建活动服务；policy/clock 为空时使用默认值
func NewActivityService(store *repository.Store, gamification *GamificationService, policy XPPolicy, clock Clock, cfg *ActivityServiceConfig) *ActivityService {
	if policy == nil {
		policy = DefaultXPPolicy{}
	}
	if clock == nil {
		clock = time.Now
	}
	s := &ActivityService{store: store, gamification: gamification, policy: policy, clock: clock}
	if cfg != nil {
		s.cfg = *cfg
	}
	return s
}

// CreateActivityInput 创建活动参数
type CreateActivityInput struct {
	UserID           int64
	Name             string
	Description      string
	Difficulty       string
	EstimatedMinutes int
	Recurrence       string
	ScheduledAt      time.Time // 零值表示当前时间
}

func (in *CreateActivityInput) validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return fmt.Errorf("活动名称为空: %w", ErrInvalidInput)
	}
	if !ValidDifficulty(in.Difficulty) {
		return fmt.Errorf("难度 %q 无效: %w", in.Difficulty, ErrInvalidInput)
	}
	if in.Recurrence == "" {
		in.Recurrence = schema.RecurrenceOnce
	}
	if in.Recurrence != schema.RecurrenceOnce && in.Recurrence != schema.RecurrenceRecurring {
		return fmt.Errorf("重复方式 %q 无效: %w", in.Recurrence, ErrInvalidInput)
	}
	if in.EstimatedMinutes < 0 {
		return fmt.Errorf("预计时长为负: %w", ErrInvalidInput)
	}
	return nil
}

// Create 创建活动（经验在创建时固定），并触发创建类挑战评估
func (s *ActivityService) Create(ctx context.Context, in CreateActivityInput) (*schema.Activity, *Outcome, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	now := s.clock()
	scheduled := in.ScheduledAt
	if scheduled.IsZero() {
		scheduled = now
	}
	activity := &schema.Activity{
		UserID:           in.UserID,
		Name:             in.Name,
		Description:      in.Description,
		Difficulty:       in.Difficulty,
		EstimatedMinutes: in.EstimatedMinutes,
		Recurrence:       in.Recurrence,
		Status:           schema.ActivityActive,
		ScheduledAt:      scheduled.UnixMilli(),
		CreatedMs:        now.UnixMilli(),
		XPReward:         s.policy.ActivityXP(in.Difficulty, in.EstimatedMinutes),
	}

	var outcome *Outcome
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if err := tx.Activities.Create(ctx, activity); err != nil {
			return err
		}
		outcome, err = s.settle(ctx, tx, TriggerActivityCreated, func(gtx *repository.Store) (*Outcome, error) {
			return s.gamification.OnActivityCreated(ctx, gtx, activity, now)
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.gamification.Publish(outcome)
	slog.Info("活动已创建", "user_id", activity.UserID, "activity_id", activity.ID, "xp", activity.XPReward)
	return activity, outcome, nil
}

// RealizeResult 完成活动的结果
type RealizeResult struct {
	Completion *schema.ActivityCompletion
	Outcome    *Outcome
	Duplicate  bool // 相同 requestID 已处理过
}

var errDuplicateRequest = errors.New("重复的完成请求")

// Realize 完成一次活动。requestID 为上游幂等键，为空时自动生成。
// 已取消或已完成的一次性活动返回 ErrActivityClosed。
func (s *ActivityService) Realize(ctx context.Context, userID, activityID int64, requestID string) (*RealizeResult, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	now := s.clock()
	res := &RealizeResult{}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		existing, err := tx.Completions.GetByRequestID(ctx, requestID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errDuplicateRequest
		}

		activity, err := tx.Activities.LockByID(ctx, activityID)
		if err != nil {
			return err
		}
		if activity == nil || activity.UserID != userID {
			return ErrActivityNotFound
		}
		if activity.Status == schema.ActivityCancelled ||
			(activity.Status == schema.ActivityRealized && activity.Recurrence == schema.RecurrenceOnce) {
			return ErrActivityClosed
		}

		nowMs := now.UnixMilli()
		status := activity.Status
		if activity.Recurrence == schema.RecurrenceOnce {
			status = schema.ActivityRealized
		}
		if err := tx.Activities.UpdateStatus(ctx, activity.ID, status, &nowMs); err != nil {
			return err
		}

		completion := &schema.ActivityCompletion{
			UserID:      userID,
			ActivityID:  activity.ID,
			CompletedAt: nowMs,
			RequestID:   requestID,
		}
		inserted, err := tx.Completions.Create(ctx, completion)
		if err != nil {
			return err
		}
		if !inserted {
			return errDuplicateRequest
		}
		res.Completion = completion

		res.Outcome, err = s.settle(ctx, tx, TriggerActivityCompleted, func(gtx *repository.Store) (*Outcome, error) {
			return s.gamification.OnActivityCompleted(ctx, gtx, completion, now)
		})
		return err
	})
	if errors.Is(err, errDuplicateRequest) {
		existing, getErr := s.store.Completions.GetByRequestID(ctx, requestID)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil || existing.UserID != userID {
			return nil, fmt.Errorf("请求 %s 冲突: %w", requestID, ErrInvalidInput)
		}
		return &RealizeResult{Completion: existing, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}
	s.gamification.Publish(res.Outcome)
	slog.Info("活动已完成", "user_id", userID, "activity_id", activityID, "xp", res.Outcome.TotalXP())
	return res, nil
}

// settle 执行结算；开启隔离时结算失败只回滚 SAVEPOINT，返回 nil Outcome
func (s *ActivityService) settle(ctx context.Context, tx *repository.Store, trigger string, fn func(gtx *repository.Store) (*Outcome, error)) (*Outcome, error) {
	if !s.cfg.IsolateFailures {
		return fn(tx)
	}
	var out *Outcome
	err := tx.Transaction(ctx, func(gtx *repository.Store) error {
		o, err := fn(gtx)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		metrics.GamificationFailures.WithLabelValues(trigger).Inc()
		slog.Error("结算失败，已回滚奖励，等待重试", "trigger", trigger, "error", err)
		return nil, nil
	}
	return out, nil
}

// Cancel 取消活动；已取消或已完成的一次性活动不可取消
func (s *ActivityService) Cancel(ctx context.Context, userID, activityID int64) error {
	return s.store.Transaction(ctx, func(tx *repository.Store) error {
		activity, err := tx.Activities.LockByID(ctx, activityID)
		if err != nil {
			return err
		}
		if activity == nil || activity.UserID != userID {
			return ErrActivityNotFound
		}
		if activity.Status == schema.ActivityCancelled ||
			(activity.Status == schema.ActivityRealized && activity.Recurrence == schema.RecurrenceOnce) {
			return ErrActivityClosed
		}
		return tx.Activities.UpdateStatus(ctx, activity.ID, schema.ActivityCancelled, nil)
	})
}

// List 列出用户活动
func (s *ActivityService) List(ctx context.Context, userID int64, status string, limit int) ([]schema.Activity, error) {
	return s.store.Activities.ListByUser(ctx, userID, status, limit)
}

// RetryPending 重新结算尚未结算的完成记录，返回成功条数
func (s *ActivityService) RetryPending(ctx context.Context, limit int) (int, error) {
	pending, err := s.store.Completions.ListUnrewarded(ctx, limit)
	if err != nil {
		return 0, err
	}
	metrics.PendingCompletions.Set(float64(len(pending)))

	done := 0
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		c := pending[i]
		_, err := s.gamification.Run(ctx, func(tx *repository.Store) (*Outcome, error) {
			return s.gamification.OnActivityCompleted(ctx, tx, &c, s.clock())
		})
		if err != nil {
			metrics.GamificationFailures.WithLabelValues(TriggerActivityCompleted).Inc()
			slog.Warn("重试结算失败", "completion_id", c.ID, "error", err)
			continue
		}
		done++
	}
	if done > 0 {
		slog.Info("补偿结算完成", "count", done, "pending", len(pending))
	}
	metrics.PendingCompletions.Sub(float64(done))
	return done, nil
}
