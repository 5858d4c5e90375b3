package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yuqie6/HabitQuest/internal/eventbus"
	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
	"github.com/yuqie6/HabitQuest/internal/testutil"
	"gorm.io/gorm"
)

var testLoc = time.FixedZone("BRT", -3*3600)

// testEnv 基于内存 SQLite 组装全部服务
type testEnv struct {
	db    *gorm.DB
	store *repository.Store
	hub   *eventbus.Hub
	now   time.Time

	notifications *NotificationService
	ledger        *XPLedger
	streaks       *StreakService
	challenges    *ChallengeService
	achievements  *AchievementService
	gamification  *GamificationService
	activities    *ActivityService
	users         *UserService
}

func newTestEnv(t *testing.T, now time.Time, cfg *ActivityServiceConfig) *testEnv {
	t.Helper()
	db := testutil.OpenTestDB(t)
	e := &testEnv{db: db, store: repository.NewStore(db), hub: eventbus.NewHub(), now: now.In(testLoc)}

	e.notifications = NewNotificationService(e.store)
	e.ledger = NewXPLedger(e.notifications)
	e.streaks = NewStreakService(testLoc)
	e.challenges = NewChallengeService(e.store, e.ledger, e.notifications, e.streaks)
	e.achievements = NewAchievementService(e.store, e.ledger, e.notifications, e.streaks)
	e.gamification = NewGamificationService(e.store, e.ledger, e.notifications, e.challenges, e.achievements, e.hub)
	e.activities = NewActivityService(e.store, e.gamification, DefaultXPPolicy{}, func() time.Time { return e.now }, cfg)
	e.users = NewUserService(e.store, e.streaks)
	return e
}

func (e *testEnv) createUser(t *testing.T, name string) *schema.User {
	t.Helper()
	u, err := e.users.Create(context.Background(), name, fmt.Sprintf("%s@example.com", name))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) addChallenge(t *testing.T, ch schema.Challenge) *schema.Challenge {
	t.Helper()
	if err := e.store.Challenges.UpsertByName(context.Background(), &ch); err != nil {
		t.Fatalf("add challenge: %v", err)
	}
	return &ch
}

func (e *testEnv) addAchievement(t *testing.T, a schema.Achievement) *schema.Achievement {
	t.Helper()
	if a.PomodoroMinutes == 0 {
		a.PomodoroMinutes = schema.DefaultPomodoroMinutes
	}
	if err := e.store.Achievements.UpsertByName(context.Background(), &a); err != nil {
		t.Fatalf("add achievement: %v", err)
	}
	return &a
}

func (e *testEnv) createActivity(t *testing.T, userID int64, difficulty, recurrence string, minutes int) *schema.Activity {
	t.Helper()
	a, _, err := e.activities.Create(context.Background(), CreateActivityInput{
		UserID:           userID,
		Name:             fmt.Sprintf("%s-%d", difficulty, minutes),
		Difficulty:       difficulty,
		EstimatedMinutes: minutes,
		Recurrence:       recurrence,
	})
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return a
}

func (e *testEnv) realize(t *testing.T, userID, activityID int64) *RealizeResult {
	t.Helper()
	res, err := e.activities.Realize(context.Background(), userID, activityID, "")
	if err != nil {
		t.Fatalf("realize activity %d: %v", activityID, err)
	}
	return res
}

// insertCompletion 直接写入历史完成记录（不结算），用于构造过去的数据
func (e *testEnv) insertCompletion(t *testing.T, userID, activityID int64, at time.Time) {
	t.Helper()
	c := &schema.ActivityCompletion{
		UserID:      userID,
		ActivityID:  activityID,
		CompletedAt: at.UnixMilli(),
		RequestID:   fmt.Sprintf("hist-%d-%d", activityID, at.UnixNano()),
		Rewarded:    true,
	}
	if _, err := e.store.Completions.Create(context.Background(), c); err != nil {
		t.Fatalf("insert completion: %v", err)
	}
}

func (e *testEnv) user(t *testing.T, id int64) *schema.User {
	t.Helper()
	u, err := e.store.Users.GetByID(context.Background(), id)
	if err != nil || u == nil {
		t.Fatalf("get user %d: %v", id, err)
	}
	return u
}

func (e *testEnv) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func ptrMs(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}
