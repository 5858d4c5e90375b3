package service

import (
	"strings"
	"time"

	"github.com/yuqie6/HabitQuest/internal/repository"
)

// Cycle 挑战周期
type Cycle string

const (
	CycleDaily   Cycle = "daily"
	CycleWeekly  Cycle = "weekly"
	CycleMonthly Cycle = "monthly"
	CycleOnce    Cycle = "once"
)

// OnceCycleKey 一次性挑战的授予周期键
const OnceCycleKey = "once"

var cycleAliases = map[string]Cycle{
	"daily":   CycleDaily,
	"diario":  CycleDaily,
	"weekly":  CycleWeekly,
	"semanal": CycleWeekly,
	"monthly": CycleMonthly,
	"mensal":  CycleMonthly,
	"once":    CycleOnce,
	"unico":   CycleOnce,
}

// ParseCycle 解析周期（大小写不敏感，兼容葡语别名）
func ParseCycle(s string) (Cycle, bool) {
	c, ok := cycleAliases[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}

// Window 周期时间窗 [Start, End]，End 为下一周期起点前 1 微秒
type Window struct {
	Start time.Time
	End   time.Time
}

// ResolveWindow 计算 now 所在周期的时间窗；时区取自 now。
// 周从周一开始。once 或未知周期返回 false。
func ResolveWindow(c Cycle, now time.Time) (Window, bool) {
	loc := now.Location()
	y, m, d := now.Date()

	var start, next time.Time
	switch c {
	case CycleDaily:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		next = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	case CycleWeekly:
		offset := (int(now.Weekday()) + 6) % 7
		start = time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		next = time.Date(y, m, d-offset+7, 0, 0, 0, 0, loc)
	case CycleMonthly:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		next = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	default:
		return Window{}, false
	}
	return Window{Start: start, End: next.Add(-time.Microsecond)}, true
}

// Range 转为毫秒闭区间
func (w Window) Range() repository.TimeRange {
	return repository.TimeRange{StartMs: w.Start.UnixMilli(), EndMs: w.End.UnixMilli()}
}

// Contains 判断毫秒时间戳是否落在窗口内
func (w Window) Contains(ms int64) bool {
	r := w.Range()
	return ms >= r.StartMs && ms <= r.EndMs
}

// CycleKey 周期实例标识（起始日期）
func (w Window) CycleKey() string {
	return w.Start.Format("2006-01-02")
}

// DisplayWindow 展示用时间窗：周从周日开始，其余与 ResolveWindow 一致
func DisplayWindow(c Cycle, now time.Time) (Window, bool) {
	if c != CycleWeekly {
		return ResolveWindow(c, now)
	}
	loc := now.Location()
	y, m, d := now.Date()
	offset := int(now.Weekday())
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
	next := time.Date(y, m, d-offset+7, 0, 0, 0, 0, loc)
	return Window{Start: start, End: next.Add(-time.Microsecond)}, true
}
