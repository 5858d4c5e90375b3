package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

// AchievementService 成就评估
type AchievementService struct {
	store         *repository.Store
	ledger        *XPLedger
	notifications *NotificationService
	streaks       *StreakService
}

// NewAchievementService 创建成就服务
func NewAchievementService(store *repository.Store, ledger *XPLedger, notifications *NotificationService, streaks *StreakService) *AchievementService {
	return &AchievementService{
		store:         store,
		ledger:        ledger,
		notifications: notifications,
		streaks:       streaks,
	}
}

// Evaluate 在 tx 内评估用户未解锁的成就；成就一旦解锁不再评估也不会撤销
func (s *AchievementService) Evaluate(ctx context.Context, tx *repository.Store, userID int64, now time.Time) (EvalReport, error) {
	var report EvalReport
	now = now.In(s.streaks.Location())

	locked, err := tx.Achievements.ListLocked(ctx, userID)
	if err != nil {
		return report, err
	}
	for i := range locked {
		a := &locked[i]
		count, err := s.count(ctx, tx, userID, a, now)
		if err != nil {
			reason, skip := ruleErrorReason(err)
			if !skip {
				return report, fmt.Errorf("评估成就 %q 失败: %w", a.Name, err)
			}
			report.ruleError(reason)
			slog.Warn("成就规则无法求值", "achievement", a.Name, "rule", a.RuleKind, "error", err)
			continue
		}
		if count < int64(a.Target) {
			continue
		}
		if err := s.grant(ctx, tx, userID, a, now, &report); err != nil {
			return report, fmt.Errorf("授予成就 %q 失败: %w", a.Name, err)
		}
	}
	return report, nil
}

func (s *AchievementService) count(ctx context.Context, tx *repository.Store, userID int64, a *schema.Achievement, now time.Time) (int64, error) {
	rule, ok := ParseAchievementRule(a.RuleKind)
	if !ok {
		return 0, fmt.Errorf("%q: %w", a.RuleKind, ErrUnknownRule)
	}
	if a.Target <= 0 {
		return 0, fmt.Errorf("target=%d: %w", a.Target, ErrRuleMisconfigured)
	}
	return achievementRules[rule](ctx, achievementInput{
		tx:          tx,
		streaks:     s.streaks,
		userID:      userID,
		now:         now,
		achievement: a,
	})
}

func (s *AchievementService) grant(ctx context.Context, tx *repository.Store, userID int64, a *schema.Achievement, now time.Time, report *EvalReport) error {
	inserted, err := tx.AchievementAwards.InsertIfAbsent(ctx, &schema.AchievementAward{
		UserID:        userID,
		AchievementID: a.ID,
		AwardedAt:     now.UnixMilli(),
	})
	if err != nil {
		return err
	}
	if !inserted {
		report.Conflicts++
		slog.Debug("成就已被并发解锁，跳过", "achievement", a.Name, "user_id", userID)
		return nil
	}

	if err := s.notifications.Notify(ctx, tx, userID, schema.NotifyAchievementUnlocked, achievementUnlockedMessage(a.Name, a.XPReward)); err != nil {
		return err
	}
	change, err := s.ledger.AddXP(ctx, tx, userID, a.XPReward)
	if err != nil {
		return err
	}
	report.Awards = append(report.Awards, AwardResult{
		Kind:  AwardAchievement,
		ID:    a.ID,
		Name:  a.Name,
		XP:    a.XPReward,
		Level: change,
	})
	slog.Info("成就解锁", "user_id", userID, "achievement", a.Name, "xp", a.XPReward)
	return nil
}

// AchievementStatus 成就展示状态
type AchievementStatus struct {
	Achievement schema.Achievement
	Unlocked    bool
	AwardedAt   int64
	Progress    int64
	Target      int64
}

// List 列出全部成就及用户解锁状态与进度
func (s *AchievementService) List(ctx context.Context, userID int64, now time.Time) ([]AchievementStatus, error) {
	now = now.In(s.streaks.Location())
	all, err := s.store.Achievements.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	awards, err := s.store.AchievementAwards.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	awardedAt := make(map[int64]int64, len(awards))
	for _, aw := range awards {
		awardedAt[aw.AchievementID] = aw.AwardedAt
	}

	out := make([]AchievementStatus, 0, len(all))
	for i := range all {
		a := &all[i]
		st := AchievementStatus{Achievement: *a, Target: int64(a.Target)}
		if at, ok := awardedAt[a.ID]; ok {
			st.Unlocked = true
			st.AwardedAt = at
			st.Progress = st.Target
		} else if n, err := s.count(ctx, s.store, userID, a, now); err == nil {
			st.Progress = min(n, st.Target)
		}
		out = append(out, st)
	}
	return out, nil
}
