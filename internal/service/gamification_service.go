package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/HabitQuest/internal/eventbus"
	"github.com/yuqie6/HabitQuest/internal/metrics"
	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

// 触发点
const (
	TriggerActivityCompleted = "activity_completed"
	TriggerActivityCreated   = "activity_created"
)

// GamificationService 触发点调度：经验、挑战、成就在同一事务内结算
type GamificationService struct {
	store         *repository.Store
	ledger        *XPLedger
	notifications *NotificationService
	challenges    *ChallengeService
	achievements  *AchievementService
	publisher     EventPublisher
}

// NewGamificationService 创建调度服务；publisher 可为 nil
func NewGamificationService(
	store *repository.Store,
	ledger *XPLedger,
	notifications *NotificationService,
	challenges *ChallengeService,
	achievements *AchievementService,
	publisher EventPublisher,
) *GamificationService {
	return &GamificationService{
		store:         store,
		ledger:        ledger,
		notifications: notifications,
		challenges:    challenges,
		achievements:  achievements,
		publisher:     publisher,
	}
}

// OnActivityCompleted 完成事实的结算：活动经验 → 挑战 → 成就。
// 同一完成记录重复调用时返回 Skipped，不产生任何写入。
func (s *GamificationService) OnActivityCompleted(ctx context.Context, tx *repository.Store, completion *schema.ActivityCompletion, now time.Time) (*Outcome, error) {
	start := time.Now()
	o := &Outcome{UserID: completion.UserID, Trigger: TriggerActivityCompleted}

	claimed, err := tx.Completions.MarkRewarded(ctx, completion.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		o.Skipped = true
		slog.Debug("完成记录已结算，跳过", "completion_id", completion.ID)
		return o, nil
	}

	activity, err := tx.Activities.GetByID(ctx, completion.ActivityID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, fmt.Errorf("结算完成记录 %d 失败: %w", completion.ID, ErrActivityNotFound)
	}

	if err := s.notifications.Notify(ctx, tx, completion.UserID, schema.NotifyActivityCompleted, activityCompletedMessage(activity.Name, activity.XPReward)); err != nil {
		return nil, err
	}
	change, err := s.ledger.AddXP(ctx, tx, completion.UserID, activity.XPReward)
	if err != nil {
		return nil, err
	}
	o.ActivityXP = change.Amount
	o.trackLevel(change)

	if err := s.evaluate(ctx, tx, completion.UserID, now, o); err != nil {
		return nil, err
	}
	o.Duration = time.Since(start)
	return o, nil
}

// OnActivityCreated 创建事实的结算：挑战 → 成就
func (s *GamificationService) OnActivityCreated(ctx context.Context, tx *repository.Store, activity *schema.Activity, now time.Time) (*Outcome, error) {
	start := time.Now()
	o := &Outcome{UserID: activity.UserID, Trigger: TriggerActivityCreated}
	if err := s.evaluate(ctx, tx, activity.UserID, now, o); err != nil {
		return nil, err
	}
	o.Duration = time.Since(start)
	return o, nil
}

func (s *GamificationService) evaluate(ctx context.Context, tx *repository.Store, userID int64, now time.Time, o *Outcome) error {
	cr, err := s.challenges.Evaluate(ctx, tx, userID, now)
	if err != nil {
		return err
	}
	o.merge(AwardChallenge, cr)

	ar, err := s.achievements.Evaluate(ctx, tx, userID, now)
	if err != nil {
		return err
	}
	o.merge(AwardAchievement, ar)
	return nil
}

// Run 在新事务中执行 fn，提交成功后广播结果
func (s *GamificationService) Run(ctx context.Context, fn func(tx *repository.Store) (*Outcome, error)) (*Outcome, error) {
	var out *Outcome
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		o, err := fn(tx)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Publish(out)
	return out, nil
}

// Publish 记录指标并广播事件；只能在事务提交之后调用
func (s *GamificationService) Publish(o *Outcome) {
	if o == nil || o.Skipped {
		return
	}
	metrics.EvaluationDuration.WithLabelValues(o.Trigger).Observe(o.Duration.Seconds())
	if o.ActivityXP > 0 {
		metrics.XPGranted.WithLabelValues("activity").Add(float64(o.ActivityXP))
		s.emit(eventbus.Event{Type: eventbus.TypeXPGranted, UserID: o.UserID, Data: map[string]any{
			"source": "activity",
			"amount": o.ActivityXP,
		}})
	}
	for _, a := range o.Awards {
		metrics.AwardsGranted.WithLabelValues(a.Kind).Inc()
		if a.XP > 0 {
			metrics.XPGranted.WithLabelValues(a.Kind).Add(float64(a.XP))
		}
		evtType := eventbus.TypeChallengeCompleted
		if a.Kind == AwardAchievement {
			evtType = eventbus.TypeAchievementUnlocked
		}
		s.emit(eventbus.Event{Type: evtType, UserID: o.UserID, Data: map[string]any{
			"id":        a.ID,
			"name":      a.Name,
			"xp":        a.XP,
			"cycle_key": a.CycleKey,
		}})
	}
	if o.LeveledUp() {
		metrics.LevelUps.Add(float64(o.Level - o.PrevLevel))
		s.emit(eventbus.Event{Type: eventbus.TypeLevelUp, UserID: o.UserID, Data: map[string]any{
			"from": o.PrevLevel,
			"to":   o.Level,
		}})
	}
	for kind, n := range o.Conflicts {
		metrics.AwardConflicts.WithLabelValues(kind).Add(float64(n))
	}
	for kind, reasons := range o.RuleErrors {
		for reason, n := range reasons {
			metrics.RuleErrors.WithLabelValues(kind, reason).Add(float64(n))
		}
	}
}

func (s *GamificationService) emit(evt eventbus.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(evt)
}
