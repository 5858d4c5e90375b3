package service

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/HabitQuest/internal/eventbus"
	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

func drain(ch <-chan eventbus.Event) []eventbus.Event {
	var out []eventbus.Event
	for {
		select {
		case evt := <-ch:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestRealizeSettlesActivityChallengeAndAchievement(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc)
	e := newTestEnv(t, now, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := e.hub.Subscribe(ctx, 16)

	u := e.createUser(t, "ana")
	e.addChallenge(t, schema.Challenge{Name: "Primeiro passo", Cycle: "daily", RuleKind: "atividades_concluidas", Target: 1, XPReward: 20})
	e.addAchievement(t, schema.Achievement{Name: "Estreia", RuleKind: "atividades_concluidas_total", Target: 1, XPReward: 30})
	a := e.createActivity(t, u.ID, schema.DifficultyEasy, schema.RecurrenceRecurring, 30)
	if a.XPReward != 100 {
		t.Fatalf("activity xp=%d, want 100", a.XPReward)
	}

	res := e.realize(t, u.ID, a.ID)
	o := res.Outcome
	if o == nil || o.Skipped {
		t.Fatalf("outcome=%+v, want settled", o)
	}
	if o.ActivityXP != 100 || o.TotalXP() != 150 {
		t.Fatalf("activity xp=%d total=%d, want 100/150", o.ActivityXP, o.TotalXP())
	}
	if o.CountAwards(AwardChallenge) != 1 || o.CountAwards(AwardAchievement) != 1 {
		t.Fatalf("awards=%+v", o.Awards)
	}
	if got := e.user(t, u.ID); got.XP != 150 || got.Level != 1 {
		t.Fatalf("user level=%d xp=%d, want 1/150", got.Level, got.XP)
	}
	if n := e.count(t, &schema.Notification{}, "user_id = ?", u.ID); n != 3 {
		t.Fatalf("notifications=%d, want 3", n)
	}

	types := map[string]int{}
	for _, evt := range drain(events) {
		types[evt.Type]++
	}
	if types[eventbus.TypeXPGranted] != 1 || types[eventbus.TypeChallengeCompleted] != 1 || types[eventbus.TypeAchievementUnlocked] != 1 {
		t.Fatalf("events=%v", types)
	}
	if types[eventbus.TypeLevelUp] != 0 {
		t.Fatalf("unexpected level up event")
	}

	// 同一完成记录再次结算：无任何写入
	again, err := e.gamification.Run(context.Background(), func(tx *repository.Store) (*Outcome, error) {
		return e.gamification.OnActivityCompleted(context.Background(), tx, res.Completion, e.now)
	})
	if err != nil {
		t.Fatalf("reprocess error: %v", err)
	}
	if !again.Skipped || again.TotalXP() != 0 {
		t.Fatalf("reprocess outcome=%+v, want skipped", again)
	}
	cr := evaluateChallenges(t, e, u.ID)
	ar := evaluateAchievements(t, e, u.ID)
	if len(cr.Awards)+len(ar.Awards) != 0 {
		t.Fatalf("re-evaluation granted awards: %+v %+v", cr.Awards, ar.Awards)
	}
	if got := e.user(t, u.ID).XP; got != 150 {
		t.Fatalf("xp after reprocess=%d, want 150", got)
	}
	if n := e.count(t, &schema.Notification{}, "user_id = ?", u.ID); n != 3 {
		t.Fatalf("notifications after reprocess=%d, want 3", n)
	}
	if len(drain(events)) != 0 {
		t.Fatalf("skipped outcome must not publish events")
	}
}

func TestRealizeLevelUp(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc)
	e := newTestEnv(t, now, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := e.hub.Subscribe(ctx, 16, eventbus.TypeLevelUp)

	u := e.createUser(t, "ana")
	if err := e.store.Users.UpdateProgress(context.Background(), u.ID, 1, 950); err != nil {
		t.Fatalf("UpdateProgress error: %v", err)
	}
	a := e.createActivity(t, u.ID, schema.DifficultyEasy, schema.RecurrenceOnce, 30)
	res := e.realize(t, u.ID, a.ID)

	if !res.Outcome.LeveledUp() || res.Outcome.PrevLevel != 1 || res.Outcome.Level != 2 {
		t.Fatalf("outcome levels %d→%d, want 1→2", res.Outcome.PrevLevel, res.Outcome.Level)
	}
	if got := e.user(t, u.ID); got.Level != 2 || got.XP != 50 {
		t.Fatalf("user level=%d xp=%d, want 2/50", got.Level, got.XP)
	}
	if n := e.count(t, &schema.Notification{}, "user_id = ? AND kind = ?", u.ID, schema.NotifyLevelUp); n != 1 {
		t.Fatalf("level up notifications=%d, want 1", n)
	}
	got := drain(events)
	if len(got) != 1 || got[0].Data["to"] != 2 {
		t.Fatalf("level up events=%+v", got)
	}
}

func TestActivityCreatedTriggersCreationRules(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc)
	e := newTestEnv(t, now, nil)
	u := e.createUser(t, "ana")
	e.addAchievement(t, schema.Achievement{Name: "Planejador", RuleKind: "streak_criacao", Target: 2, XPReward: 25})

	e.now = now.AddDate(0, 0, -1)
	e.createActivity(t, u.ID, schema.DifficultyEasy, schema.RecurrenceOnce, 10)
	e.now = now
	_, o, err := e.activities.Create(context.Background(), CreateActivityInput{
		UserID: u.ID, Name: "Ler", Difficulty: schema.DifficultyMedium, EstimatedMinutes: 20,
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if o.Trigger != TriggerActivityCreated || o.CountAwards(AwardAchievement) != 1 || o.ActivityXP != 0 {
		t.Fatalf("outcome=%+v", o)
	}
	if got := e.user(t, u.ID).XP; got != 25 {
		t.Fatalf("xp=%d, want 25", got)
	}
}
