package repository

import (
	"context"
	"testing"

	"github.com/yuqie6/HabitQuest/internal/schema"
	"github.com/yuqie6/HabitQuest/internal/testutil"
)

func TestChallengeAwardInsertIfAbsent(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	ch := &schema.Challenge{Name: "Check-in", Cycle: "daily", RuleKind: "atividades_concluidas", Target: 1, XPReward: 20}
	if err := store.Challenges.UpsertByName(ctx, ch); err != nil {
		t.Fatalf("UpsertByName error: %v", err)
	}

	award := &schema.ChallengeAward{UserID: 1, ChallengeID: ch.ID, CycleKey: "2024-03-01", AwardedAt: 100}
	inserted, err := store.ChallengeAwards.InsertIfAbsent(ctx, award)
	if err != nil || !inserted {
		t.Fatalf("first insert inserted=%v err=%v", inserted, err)
	}
	again := &schema.ChallengeAward{UserID: 1, ChallengeID: ch.ID, CycleKey: "2024-03-01", AwardedAt: 200}
	inserted, err = store.ChallengeAwards.InsertIfAbsent(ctx, again)
	if err != nil || inserted {
		t.Fatalf("same cycle insert inserted=%v err=%v, want false", inserted, err)
	}
	next := &schema.ChallengeAward{UserID: 1, ChallengeID: ch.ID, CycleKey: "2024-03-02", AwardedAt: 300}
	inserted, err = store.ChallengeAwards.InsertIfAbsent(ctx, next)
	if err != nil || !inserted {
		t.Fatalf("next cycle insert inserted=%v err=%v", inserted, err)
	}

	n, err := store.ChallengeAwards.CountByUser(ctx, 1, nil)
	if err != nil || n != 2 {
		t.Fatalf("CountByUser=%d err=%v, want 2", n, err)
	}
	n, err = store.ChallengeAwards.CountByUser(ctx, 1, &TimeRange{StartMs: 0, EndMs: 250})
	if err != nil || n != 1 {
		t.Fatalf("CountByUser in range=%d err=%v, want 1", n, err)
	}
	n, err = store.ChallengeAwards.CountByCycle(ctx, 1, "daily")
	if err != nil || n != 2 {
		t.Fatalf("CountByCycle=%d err=%v, want 2", n, err)
	}

	ok, err := store.ChallengeAwards.ExistsInRange(ctx, 1, ch.ID, TimeRange{StartMs: 150, EndMs: 250})
	if err != nil || ok {
		t.Fatalf("ExistsInRange=%v err=%v, want false", ok, err)
	}
}

func TestChallengeUpsertByNameKeepsID(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	ch := &schema.Challenge{Name: "Ritmo", Cycle: "weekly", RuleKind: "atividades_concluidas", Target: 5, XPReward: 60}
	if err := store.Challenges.UpsertByName(ctx, ch); err != nil {
		t.Fatalf("UpsertByName error: %v", err)
	}
	updated := &schema.Challenge{Name: "Ritmo", Cycle: "weekly", RuleKind: "atividades_concluidas", Target: 7, XPReward: 80}
	if err := store.Challenges.UpsertByName(ctx, updated); err != nil {
		t.Fatalf("UpsertByName update error: %v", err)
	}

	all, err := store.Challenges.ListAll(ctx)
	if err != nil || len(all) != 1 {
		t.Fatalf("ListAll=%v err=%v", all, err)
	}
	if all[0].ID != ch.ID || all[0].Target != 7 || all[0].XPReward != 80 {
		t.Fatalf("got=%+v, want id %d target 7 xp 80", all[0], ch.ID)
	}
}

func TestAchievementListLocked(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	a1 := &schema.Achievement{Name: "A1", RuleKind: "atividades_concluidas_total", Target: 1}
	a2 := &schema.Achievement{Name: "A2", RuleKind: "atividades_concluidas_total", Target: 10}
	for _, a := range []*schema.Achievement{a1, a2} {
		if err := store.Achievements.UpsertByName(ctx, a); err != nil {
			t.Fatalf("UpsertByName error: %v", err)
		}
	}
	if _, err := store.AchievementAwards.InsertIfAbsent(ctx, &schema.AchievementAward{UserID: 1, AchievementID: a1.ID, AwardedAt: 1}); err != nil {
		t.Fatalf("InsertIfAbsent error: %v", err)
	}
	inserted, err := store.AchievementAwards.InsertIfAbsent(ctx, &schema.AchievementAward{UserID: 1, AchievementID: a1.ID, AwardedAt: 2})
	if err != nil || inserted {
		t.Fatalf("duplicate achievement award inserted=%v err=%v", inserted, err)
	}

	locked, err := store.Achievements.ListLocked(ctx, 1)
	if err != nil || len(locked) != 1 || locked[0].Name != "A2" {
		t.Fatalf("ListLocked=%v err=%v, want [A2]", locked, err)
	}
	locked, err = store.Achievements.ListLocked(ctx, 2)
	if err != nil || len(locked) != 2 {
		t.Fatalf("ListLocked other user=%v err=%v, want 2", locked, err)
	}
}
