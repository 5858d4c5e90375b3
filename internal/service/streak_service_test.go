package service

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/HabitQuest/internal/schema"
)

func TestCountStreak(t *testing.T) {
	today := dayOf(time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc))
	cases := []struct {
		name string
		days []civilDay
		want int
	}{
		{"three consecutive", []civilDay{today, today - 1, today - 2}, 3},
		{"gap after today", []civilDay{today, today - 3}, 1},
		{"empty", nil, 0},
		{"two days ago only", []civilDay{today - 2}, 0},
		{"yesterday keeps alive", []civilDay{today - 1, today - 2}, 2},
		{"duplicates", []civilDay{today, today, today - 1, today - 1}, 2},
		{"future ignored", []civilDay{today + 1, today}, 1},
	}
	for _, tc := range cases {
		if got := CountStreak(tc.days, today); got != tc.want {
			t.Fatalf("%s: streak=%d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestStreakUsesLocalCalendarDays(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc)
	e := newTestEnv(t, now, nil)
	u := e.createUser(t, "ana")
	a := e.createActivity(t, u.ID, schema.DifficultyEasy, schema.RecurrenceRecurring, 20)

	// 01:30 UTC 是本地前一天 22:30
	e.insertCompletion(t, u.ID, a.ID, time.Date(2024, 3, 13, 1, 30, 0, 0, time.UTC))
	e.insertCompletion(t, u.ID, a.ID, time.Date(2024, 3, 11, 12, 0, 0, 0, testLoc))

	n, err := e.streaks.Streak(context.Background(), e.store, u.ID, StreakCompletion, now)
	if err != nil {
		t.Fatalf("Streak error: %v", err)
	}
	if n != 2 {
		t.Fatalf("streak=%d, want 2 (mar 11 and mar 12 local)", n)
	}

	n, err = e.streaks.Streak(context.Background(), e.store, u.ID, StreakCreation, now)
	if err != nil || n != 1 {
		t.Fatalf("creation streak=%d err=%v, want 1", n, err)
	}
}

func states(cal *WeekCalendar) []string {
	out := make([]string, len(cal.Days))
	for i, d := range cal.Days {
		out[i] = d.State
	}
	return out
}

func TestBuildWeekCalendar(t *testing.T) {
	// 2024-03-13 周三；本周日 03-10
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc)
	day := func(d int) civilDay { return dayOf(time.Date(2024, 3, d, 12, 0, 0, 0, testLoc)) }

	cases := []struct {
		name   string
		days   []civilDay
		want   []string
		active int
	}{
		{
			name:   "active today and monday, tuesday frozen",
			days:   []civilDay{day(11), day(13)},
			want:   []string{DayInactive, DayActive, DayFrozen, DayActive, DayInactive, DayInactive, DayInactive},
			active: 2,
		},
		{
			name:   "yesterday keeps today frozen",
			days:   []civilDay{day(12)},
			want:   []string{DayInactive, DayInactive, DayActive, DayFrozen, DayInactive, DayInactive, DayInactive},
			active: 1,
		},
		{
			name:   "broken streak forces inactive",
			days:   []civilDay{day(10), day(11)},
			want:   []string{DayInactive, DayInactive, DayInactive, DayInactive, DayInactive, DayInactive, DayInactive},
			active: 0,
		},
		{
			name:   "no history",
			days:   nil,
			want:   []string{DayInactive, DayInactive, DayInactive, DayInactive, DayInactive, DayInactive, DayInactive},
			active: 0,
		},
	}
	for _, tc := range cases {
		cal := BuildWeekCalendar(tc.days, now)
		got := states(cal)
		for i := range tc.want {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: states=%v, want %v", tc.name, got, tc.want)
			}
		}
		if cal.ActiveDays != tc.active {
			t.Fatalf("%s: active=%d, want %d", tc.name, cal.ActiveDays, tc.active)
		}
	}

	cal := BuildWeekCalendar(nil, now)
	if cal.Days[0].Date != "2024-03-10" || cal.Days[0].Label != "DOM" || cal.Days[6].Label != "SÁB" {
		t.Fatalf("calendar should start on sunday: %+v", cal.Days)
	}
}
