package repository

import (
	"context"
	"testing"

	"github.com/yuqie6/HabitQuest/internal/schema"
	"github.com/yuqie6/HabitQuest/internal/testutil"
)

func TestNotificationRepositoryReadFlags(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	for _, msg := range []string{"one", "two", "three"} {
		if err := repo.Create(ctx, &schema.Notification{UserID: 1, Kind: schema.NotifyInfo, Message: msg}); err != nil {
			t.Fatalf("Create error: %v", err)
		}
	}
	if err := repo.Create(ctx, &schema.Notification{UserID: 2, Kind: schema.NotifyInfo, Message: "other"}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	list, err := repo.ListByUser(ctx, 1, false, 10)
	if err != nil || len(list) != 3 {
		t.Fatalf("ListByUser=%v err=%v, want 3", list, err)
	}

	ok, err := repo.MarkRead(ctx, 2, list[0].ID)
	if err != nil || ok {
		t.Fatalf("MarkRead by other user ok=%v err=%v, want false", ok, err)
	}
	ok, err = repo.MarkRead(ctx, 1, list[0].ID)
	if err != nil || !ok {
		t.Fatalf("MarkRead ok=%v err=%v", ok, err)
	}

	unread, err := repo.CountUnread(ctx, 1)
	if err != nil || unread != 2 {
		t.Fatalf("CountUnread=%d err=%v, want 2", unread, err)
	}

	n, err := repo.MarkAllRead(ctx, 1)
	if err != nil || n != 2 {
		t.Fatalf("MarkAllRead=%d err=%v, want 2", n, err)
	}
	list, err = repo.ListByUser(ctx, 1, true, 10)
	if err != nil || len(list) != 0 {
		t.Fatalf("unread list=%v err=%v, want empty", list, err)
	}
	unread, _ = repo.CountUnread(ctx, 2)
	if unread != 1 {
		t.Fatalf("other user unread=%d, want 1", unread)
	}
}
