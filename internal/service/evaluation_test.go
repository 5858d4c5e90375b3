package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

func TestRuleErrorReason(t *testing.T) {
	cases := []struct {
		err    error
		reason string
		skip   bool
	}{
		{ErrUnknownRule, "unknown_rule", true},
		{errors.Join(errors.New("x"), ErrRuleMisconfigured), "misconfigured", true},
		{errors.New("no such table: activity_completions"), "", false},
	}
	for _, tc := range cases {
		reason, skip := ruleErrorReason(tc.err)
		if reason != tc.reason || skip != tc.skip {
			t.Fatalf("ruleErrorReason(%v)=(%q,%v), want (%q,%v)", tc.err, reason, skip, tc.reason, tc.skip)
		}
	}
}

// 规则查询失败必须让整笔结算回滚，而不是当作“未满足”提交
func TestStoreFailureDuringEvaluationRollsBack(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc)
	ctx := context.Background()

	t.Run("challenge", func(t *testing.T) {
		e := newTestEnv(t, now, nil)
		u := e.createUser(t, "ana")
		e.addChallenge(t, schema.Challenge{Name: "Sequência", Cycle: "weekly", RuleKind: "streak_diario", Target: 1, XPReward: 10})
		if err := e.db.Migrator().DropTable(&schema.ActivityCompletion{}); err != nil {
			t.Fatalf("drop completions: %v", err)
		}

		var report EvalReport
		err := e.store.Transaction(ctx, func(tx *repository.Store) error {
			if _, err := e.ledger.AddXP(ctx, tx, u.ID, 100); err != nil {
				return err
			}
			var err error
			report, err = e.challenges.Evaluate(ctx, tx, u.ID, e.now)
			return err
		})
		if err == nil {
			t.Fatalf("Evaluate succeeded, want store error")
		}
		if errors.Is(err, ErrRuleMisconfigured) || errors.Is(err, ErrUnknownRule) {
			t.Fatalf("err=%v classified as rule error", err)
		}
		if len(report.RuleErrors) != 0 {
			t.Fatalf("rule errors=%v, want none", report.RuleErrors)
		}
		if got := e.user(t, u.ID); got.XP != 0 || got.Level != 1 {
			t.Fatalf("user=%+v, want xp granted in the same tx rolled back", got)
		}
	})

	t.Run("achievement", func(t *testing.T) {
		e := newTestEnv(t, now, nil)
		u := e.createUser(t, "bia")
		e.addAchievement(t, schema.Achievement{Name: "Primeira", RuleKind: "atividades_concluidas_total", Target: 1, XPReward: 30})
		if err := e.db.Migrator().DropTable(&schema.ActivityCompletion{}); err != nil {
			t.Fatalf("drop completions: %v", err)
		}

		err := e.store.Transaction(ctx, func(tx *repository.Store) error {
			if _, err := e.ledger.AddXP(ctx, tx, u.ID, 100); err != nil {
				return err
			}
			_, err := e.achievements.Evaluate(ctx, tx, u.ID, e.now)
			return err
		})
		if err == nil {
			t.Fatalf("Evaluate succeeded, want store error")
		}
		if got := e.user(t, u.ID); got.XP != 0 {
			t.Fatalf("xp=%d, want 0 after rollback", got.XP)
		}
	})
}

// 唯一索引插入失败（并发方已写入同一周期）时不发经验也不发通知
func TestChallengeLostInsertSkipsReward(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc)
	ctx := context.Background()
	e := newTestEnv(t, now, nil)
	u := e.createUser(t, "ana")
	e.createActivity(t, u.ID, schema.DifficultyEasy, schema.RecurrenceOnce, 10)
	ch := e.addChallenge(t, schema.Challenge{Name: "Criador", Cycle: "daily", RuleKind: "atividades_criadas", Target: 1, XPReward: 15})

	// 同一 cycle_key，但 awarded_at 落在窗口外，ExistsInRange 看不到它
	inserted, err := e.store.ChallengeAwards.InsertIfAbsent(ctx, &schema.ChallengeAward{
		UserID:      u.ID,
		ChallengeID: ch.ID,
		CycleKey:    "2024-03-13",
		AwardedAt:   now.AddDate(0, 0, -1).UnixMilli(),
	})
	if err != nil || !inserted {
		t.Fatalf("plant award inserted=%v err=%v", inserted, err)
	}

	report := evaluateChallenges(t, e, u.ID)
	if report.Conflicts != 1 || len(report.Awards) != 0 {
		t.Fatalf("report=%+v, want one conflict and no awards", report)
	}
	if got := e.user(t, u.ID); got.XP != 0 {
		t.Fatalf("xp=%d, want 0", got.XP)
	}
	if n := e.count(t, &schema.Notification{}, "user_id = ?", u.ID); n != 0 {
		t.Fatalf("notifications=%d, want 0", n)
	}
	if n := e.count(t, &schema.ChallengeAward{}, "user_id = ?", u.ID); n != 1 {
		t.Fatalf("awards=%d, want only the planted one", n)
	}
}

func TestAchievementLostInsertSkipsReward(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc)
	ctx := context.Background()
	e := newTestEnv(t, now, nil)
	u := e.createUser(t, "ana")
	a := e.addAchievement(t, schema.Achievement{Name: "Primeira", RuleKind: "atividades_concluidas_total", Target: 1, XPReward: 30})

	inserted, err := e.store.AchievementAwards.InsertIfAbsent(ctx, &schema.AchievementAward{
		UserID: u.ID, AchievementID: a.ID, AwardedAt: now.UnixMilli(),
	})
	if err != nil || !inserted {
		t.Fatalf("plant award inserted=%v err=%v", inserted, err)
	}

	var report EvalReport
	err = e.store.Transaction(ctx, func(tx *repository.Store) error {
		return e.achievements.grant(ctx, tx, u.ID, a, e.now, &report)
	})
	if err != nil {
		t.Fatalf("grant error: %v", err)
	}
	if report.Conflicts != 1 || len(report.Awards) != 0 {
		t.Fatalf("report=%+v, want one conflict and no awards", report)
	}
	if got := e.user(t, u.ID); got.XP != 0 {
		t.Fatalf("xp=%d, want 0", got.XP)
	}
	if n := e.count(t, &schema.Notification{}, "user_id = ?", u.ID); n != 0 {
		t.Fatalf("notifications=%d, want 0", n)
	}
}
