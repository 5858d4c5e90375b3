package repository

import (
	"fmt"
	"time"
)

// TimeRange 毫秒时间戳闭区间 [StartMs, EndMs]
type TimeRange struct {
	StartMs int64
	EndMs   int64
}

// DayRange 将 YYYY-MM-DD 解析为 loc 时区内日区间的毫秒时间戳（闭区间）。
func DayRange(date string, loc *time.Location) (TimeRange, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return TimeRange{}, fmt.Errorf("解析日期失败: %w", err)
	}
	y, m, d := t.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return TimeRange{StartMs: t.UnixMilli(), EndMs: next.UnixMilli() - 1}, nil
}
