package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

// ChallengeService 挑战评估与进度展示
type ChallengeService struct {
	store         *repository.Store
	ledger        *XPLedger
	notifications *NotificationService
	streaks       *StreakService
}

// NewChallengeService 创建挑战服务
func NewChallengeService(store *repository.Store, ledger *XPLedger, notifications *NotificationService, streaks *StreakService) *ChallengeService {
	return &ChallengeService{
		store:         store,
		ledger:        ledger,
		notifications: notifications,
		streaks:       streaks,
	}
}

// ChallengeActive 判断挑战在 now 是否有效：
// 两端都有 → 闭区间内；都没有 → 周期挑战常驻、一次性挑战无效；仅一端 → 按该端判断（一次性挑战要求两端）。
func ChallengeActive(ch *schema.Challenge, now time.Time) bool {
	cycle, _ := ParseCycle(ch.Cycle)
	if ch.WindowStart == nil && ch.WindowEnd == nil {
		return cycle != CycleOnce
	}
	if cycle == CycleOnce && (ch.WindowStart == nil || ch.WindowEnd == nil) {
		return false
	}
	ms := now.UnixMilli()
	if ch.WindowStart != nil && ms < *ch.WindowStart {
		return false
	}
	if ch.WindowEnd != nil && ms > *ch.WindowEnd {
		return false
	}
	return true
}

// Evaluate 在 tx 内评估全部有效挑战并授予满足条件者
// 规则未知或配置错误只记录并跳过；存储失败返回错误，由调用方回滚事务。
func (s *ChallengeService) Evaluate(ctx context.Context, tx *repository.Store, userID int64, now time.Time) (EvalReport, error) {
	var report EvalReport
	now = now.In(s.streaks.Location())

	challenges, err := tx.Challenges.ListAll(ctx)
	if err != nil {
		return report, err
	}
	for i := range challenges {
		ch := &challenges[i]
		if !ChallengeActive(ch, now) {
			continue
		}
		if err := s.evaluateOne(ctx, tx, userID, ch, now, &report); err != nil {
			return report, fmt.Errorf("评估挑战 %q 失败: %w", ch.Name, err)
		}
	}
	return report, nil
}

func (s *ChallengeService) evaluateOne(ctx context.Context, tx *repository.Store, userID int64, ch *schema.Challenge, now time.Time, report *EvalReport) error {
	window, hasWindow := s.window(ch, now)

	var (
		awarded bool
		err     error
	)
	if hasWindow {
		awarded, err = tx.ChallengeAwards.ExistsInRange(ctx, userID, ch.ID, window.Range())
	} else {
		awarded, err = tx.ChallengeAwards.Exists(ctx, userID, ch.ID)
	}
	if err != nil {
		return err
	}
	if awarded {
		return nil
	}

	res, err := s.check(ctx, tx, userID, ch, now, window, hasWindow)
	if err != nil {
		reason, skip := ruleErrorReason(err)
		if !skip {
			return err
		}
		report.ruleError(reason)
		slog.Warn("挑战规则无法求值", "challenge", ch.Name, "rule", ch.RuleKind, "error", err)
		return nil
	}
	if !res.Met {
		return nil
	}

	cycleKey := OnceCycleKey
	if hasWindow {
		cycleKey = window.CycleKey()
	}
	inserted, err := tx.ChallengeAwards.InsertIfAbsent(ctx, &schema.ChallengeAward{
		UserID:      userID,
		ChallengeID: ch.ID,
		CycleKey:    cycleKey,
		AwardedAt:   now.UnixMilli(),
	})
	if err != nil {
		return err
	}
	if !inserted {
		report.Conflicts++
		slog.Debug("挑战已被并发授予，跳过", "challenge", ch.Name, "user_id", userID, "cycle", cycleKey)
		return nil
	}

	if err := s.notifications.Notify(ctx, tx, userID, schema.NotifyChallengeCompleted, challengeCompletedMessage(ch.Name, ch.XPReward)); err != nil {
		return err
	}
	change, err := s.ledger.AddXP(ctx, tx, userID, ch.XPReward)
	if err != nil {
		return err
	}
	report.Awards = append(report.Awards, AwardResult{
		Kind:     AwardChallenge,
		ID:       ch.ID,
		Name:     ch.Name,
		XP:       ch.XPReward,
		CycleKey: cycleKey,
		Level:    change,
	})
	slog.Info("挑战完成", "user_id", userID, "challenge", ch.Name, "cycle", cycleKey, "xp", ch.XPReward)
	return nil
}

// window 解析挑战当前周期；once 或无法识别的周期没有时间窗
func (s *ChallengeService) window(ch *schema.Challenge, now time.Time) (Window, bool) {
	cycle, ok := ParseCycle(ch.Cycle)
	if !ok {
		return Window{}, false
	}
	return ResolveWindow(cycle, now)
}

// check 运行规则；未知规则、参数缺失、缺少时间窗都视为不可求值
func (s *ChallengeService) check(ctx context.Context, tx *repository.Store, userID int64, ch *schema.Challenge, now time.Time, window Window, hasWindow bool) (ruleResult, error) {
	rule, ok := ParseChallengeRule(ch.RuleKind)
	if !ok {
		return ruleResult{}, fmt.Errorf("%q: %w", ch.RuleKind, ErrUnknownRule)
	}
	if ch.Target <= 0 {
		return ruleResult{}, fmt.Errorf("target=%d: %w", ch.Target, ErrRuleMisconfigured)
	}
	entry := challengeRules[rule]
	if entry.needsWindow && !hasWindow {
		slog.Debug("挑战周期没有时间窗，规则不可求值", "challenge", ch.Name, "cycle", ch.Cycle, "rule", rule)
		return ruleResult{}, nil
	}
	return entry.eval(ctx, challengeInput{
		tx:      tx,
		streaks: s.streaks,
		userID:  userID,
		target:  int64(ch.Target),
		now:     now,
		window:  window,
	})
}

// ChallengeProgress 挑战进度（展示用）
type ChallengeProgress struct {
	Challenge schema.Challenge
	Progress  int64
	Target    int64
	Completed bool
}

// Progress 列出当前有效挑战及用户进度；进度不超过目标值
func (s *ChallengeService) Progress(ctx context.Context, userID int64, now time.Time) ([]ChallengeProgress, error) {
	now = now.In(s.streaks.Location())
	challenges, err := s.store.Challenges.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ChallengeProgress, 0, len(challenges))
	for i := range challenges {
		ch := &challenges[i]
		if !ChallengeActive(ch, now) {
			continue
		}
		item := ChallengeProgress{Challenge: *ch, Target: int64(ch.Target)}

		window, hasWindow := s.window(ch, now)
		res, err := s.check(ctx, s.store, userID, ch, now, window, hasWindow)
		if err != nil {
			if _, skip := ruleErrorReason(err); !skip {
				return nil, err
			}
			slog.Debug("挑战进度无法计算", "challenge", ch.Name, "error", err)
		} else {
			item.Progress = min(res.Progress, item.Target)
		}

		item.Completed, err = s.completedForDisplay(ctx, userID, ch, now)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// completedForDisplay 本展示周期内是否已完成（周从周日开始）
func (s *ChallengeService) completedForDisplay(ctx context.Context, userID int64, ch *schema.Challenge, now time.Time) (bool, error) {
	cycle, ok := ParseCycle(ch.Cycle)
	if !ok || cycle == CycleOnce {
		return s.store.ChallengeAwards.Exists(ctx, userID, ch.ID)
	}
	w, _ := DisplayWindow(cycle, now)
	return s.store.ChallengeAwards.ExistsInRange(ctx, userID, ch.ID, w.Range())
}

// ChallengeHistoryItem 一次挑战授予记录
type ChallengeHistoryItem struct {
	Name      string
	CycleKey  string
	XPReward  int
	AwardedAt int64
	Current   bool // 授予时刻落在该挑战当前周期内
}

// History 列出用户的挑战授予历史（新到旧）；已删除的挑战以 #ID 代替名称
func (s *ChallengeService) History(ctx context.Context, userID int64, now time.Time, limit int) ([]ChallengeHistoryItem, error) {
	awards, err := s.store.ChallengeAwards.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	challenges, err := s.store.Challenges.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]*schema.Challenge, len(challenges))
	for i := range challenges {
		byID[challenges[i].ID] = &challenges[i]
	}

	out := make([]ChallengeHistoryItem, 0, len(awards))
	for _, a := range awards {
		item := ChallengeHistoryItem{Name: fmt.Sprintf("#%d", a.ChallengeID), CycleKey: a.CycleKey, AwardedAt: a.AwardedAt}
		if ch, ok := byID[a.ChallengeID]; ok {
			item.Name = ch.Name
			item.XPReward = ch.XPReward
			if w, ok := s.window(ch, now); ok {
				item.Current = w.Contains(a.AwardedAt)
			}
		}
		out = append(out, item)
	}
	return out, nil
}
