package service

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestResolveWindowMonthlyDecember(t *testing.T) {
	now := time.Date(2024, 12, 31, 22, 15, 0, 0, testLoc)
	w, ok := ResolveWindow(CycleMonthly, now)
	if !ok {
		t.Fatalf("monthly window should resolve")
	}
	wantStart := time.Date(2024, 12, 1, 0, 0, 0, 0, testLoc)
	wantEnd := time.Date(2024, 12, 31, 23, 59, 59, 999999000, testLoc)
	if !w.Start.Equal(wantStart) || !w.End.Equal(wantEnd) {
		t.Fatalf("window=[%v, %v], want [%v, %v]", w.Start, w.End, wantStart, wantEnd)
	}
	next := time.Date(2025, 1, 1, 0, 0, 0, 0, testLoc)
	if w.Contains(next.UnixMilli()) {
		t.Fatalf("window should not contain next month start")
	}
	if !w.Contains(next.UnixMilli() - 1) {
		t.Fatalf("window should contain last millisecond of december")
	}
}

func TestResolveWindowWeeklyStartsMonday(t *testing.T) {
	cases := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc), "2024-03-11"}, // 周三
		{time.Date(2024, 3, 11, 0, 0, 0, 0, testLoc), "2024-03-11"},  // 周一零点
		{time.Date(2024, 3, 17, 23, 0, 0, 0, testLoc), "2024-03-11"}, // 周日
		{time.Date(2024, 1, 2, 8, 0, 0, 0, testLoc), "2024-01-01"},
		{time.Date(2023, 12, 31, 8, 0, 0, 0, testLoc), "2023-12-25"},
	}
	for _, tc := range cases {
		w, ok := ResolveWindow(CycleWeekly, tc.now)
		if !ok {
			t.Fatalf("weekly window should resolve for %v", tc.now)
		}
		if got := w.CycleKey(); got != tc.want {
			t.Fatalf("now=%v start=%s, want %s", tc.now, got, tc.want)
		}
		if d := w.End.Sub(w.Start); d != 7*24*time.Hour-time.Microsecond {
			t.Fatalf("weekly length=%v", d)
		}
	}
}

func TestResolveWindowDailyAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, ny)
	w, ok := ResolveWindow(CycleDaily, now)
	if !ok {
		t.Fatalf("daily window should resolve")
	}
	if d := w.End.Sub(w.Start); d != 23*time.Hour-time.Microsecond {
		t.Fatalf("DST day length=%v, want 23h", d)
	}
	if w.Start.Hour() != 0 || w.End.Hour() != 23 {
		t.Fatalf("window=[%v, %v], want local midnight bounds", w.Start, w.End)
	}
}

func TestResolveWindowNoWindow(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc)
	for _, c := range []Cycle{CycleOnce, Cycle("yearly"), Cycle("")} {
		if _, ok := ResolveWindow(c, now); ok {
			t.Fatalf("cycle %q should have no window", c)
		}
	}
}

func TestParseCycleAliases(t *testing.T) {
	cases := map[string]Cycle{
		"daily": CycleDaily, "Diario": CycleDaily, "SEMANAL": CycleWeekly,
		"weekly": CycleWeekly, "mensal": CycleMonthly, "unico": CycleOnce, " once ": CycleOnce,
	}
	for in, want := range cases {
		got, ok := ParseCycle(in)
		if !ok || got != want {
			t.Fatalf("ParseCycle(%q)=%q,%v want %q", in, got, ok, want)
		}
	}
	if _, ok := ParseCycle("anual"); ok {
		t.Fatalf("unknown cycle should not parse")
	}
}

func TestDisplayWindowWeeklyStartsSunday(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, testLoc)
	w, _ := DisplayWindow(CycleWeekly, now)
	if got := w.CycleKey(); got != "2024-03-10" {
		t.Fatalf("display week start=%s, want 2024-03-10", got)
	}
	d, _ := DisplayWindow(CycleDaily, now)
	r, _ := ResolveWindow(CycleDaily, now)
	if !d.Start.Equal(r.Start) || !d.End.Equal(r.End) {
		t.Fatalf("daily display window should equal resolver window")
	}
}
