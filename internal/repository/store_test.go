package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yuqie6/HabitQuest/internal/schema"
	"github.com/yuqie6/HabitQuest/internal/testutil"
)

func TestStoreTransactionRollsBack(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	user := &schema.User{Name: "ana", Email: "ana@example.com"}
	if err := store.Users.Create(ctx, user); err != nil {
		t.Fatalf("Create user error: %v", err)
	}

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Users.UpdateProgress(ctx, user.ID, 3, 10); err != nil {
			return err
		}
		if err := tx.Notifications.Create(ctx, &schema.Notification{UserID: user.ID, Kind: schema.NotifyLevelUp, Message: "up"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction err=%v, want boom", err)
	}

	got, _ := store.Users.GetByID(ctx, user.ID)
	if got.Level != 1 || got.XP != 0 {
		t.Fatalf("user=%+v, want level 1 xp 0 after rollback", got)
	}
	n, _ := store.Notifications.CountUnread(ctx, user.ID)
	if n != 0 {
		t.Fatalf("notifications=%d, want 0 after rollback", n)
	}
}

func TestStoreNestedTransactionRollsBackSavepointOnly(t *testing.T) {
	db := testutil.OpenTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	user := &schema.User{Name: "bia", Email: "bia@example.com"}
	if err := store.Users.Create(ctx, user); err != nil {
		t.Fatalf("Create user error: %v", err)
	}

	err := store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Users.UpdateProgress(ctx, user.ID, 2, 0); err != nil {
			return err
		}
		inner := tx.Transaction(ctx, func(inner *Store) error {
			if err := inner.Users.UpdateProgress(ctx, user.ID, 9, 9); err != nil {
				return err
			}
			return errors.New("inner failed")
		})
		if inner == nil {
			t.Fatalf("inner transaction should fail")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("outer Transaction error: %v", err)
	}

	got, _ := store.Users.GetByID(ctx, user.ID)
	if got.Level != 2 || got.XP != 0 {
		t.Fatalf("user=%+v, want level 2 xp 0", got)
	}
}

func TestDayRange(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	tr, err := DayRange("2024-03-10", loc)
	if err != nil {
		t.Fatalf("DayRange error: %v", err)
	}
	start := time.Date(2024, 3, 10, 0, 0, 0, 0, loc)
	if tr.StartMs != start.UnixMilli() {
		t.Fatalf("start=%d, want %d", tr.StartMs, start.UnixMilli())
	}
	if tr.EndMs != start.Add(24*time.Hour).UnixMilli()-1 {
		t.Fatalf("end=%d, want %d", tr.EndMs, start.Add(24*time.Hour).UnixMilli()-1)
	}
	if _, err := DayRange("bad", loc); err == nil {
		t.Fatalf("expected parse error")
	}
}
