package service

import (
	"context"
	"sort"
	"time"

	"github.com/yuqie6/HabitQuest/internal/repository"
)

// StreakSource 连续天数的统计来源
type StreakSource int

const (
	StreakCompletion StreakSource = iota // 按完成时间
	StreakCreation                       // 按活动创建时间
)

// civilDay 本地日历日序号（自 1970-01-01 起的天数），与时区夏令时无关
type civilDay int64

func dayOf(t time.Time) civilDay {
	y, m, d := t.Date()
	return civilDay(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// CountStreak 从最近一天向前数连续天数；最近一天早于昨天时为 0
func CountStreak(days []civilDay, today civilDay) int {
	uniq := distinctDesc(days, today)
	if len(uniq) == 0 || uniq[0] < today-1 {
		return 0
	}
	streak := 0
	expected := uniq[0]
	for _, d := range uniq {
		if d != expected {
			break
		}
		streak++
		expected--
	}
	return streak
}

// distinctDesc 去重、倒序，丢弃晚于 today 的日期
func distinctDesc(days []civilDay, today civilDay) []civilDay {
	seen := make(map[civilDay]struct{}, len(days))
	out := make([]civilDay, 0, len(days))
	for _, d := range days {
		if d > today {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// 日历格状态
const (
	DayActive   = "active"
	DayFrozen   = "frozen"
	DayInactive = "inactive"
)

// CalendarDay 周历中的一天
type CalendarDay struct {
	Date  string `json:"date"`
	Label string `json:"label"`
	State string `json:"state"`
}

// WeekCalendar 周日到周六的连续打卡周历
type WeekCalendar struct {
	Days       []CalendarDay `json:"days"`
	ActiveDays int           `json:"active_days"`
	Streak     int           `json:"streak"`
}

var weekdayLabels = [7]string{"DOM", "SEG", "TER", "QUA", "QUI", "SEX", "SÁB"}

// StreakService 连续天数计算；日期边界使用 loc
type StreakService struct {
	loc *time.Location
}

// NewStreakService 创建服务
func NewStreakService(loc *time.Location) *StreakService {
	if loc == nil {
		loc = time.Local
	}
	return &StreakService{loc: loc}
}

// Location 返回日期边界使用的时区
func (s *StreakService) Location() *time.Location {
	return s.loc
}

// Streak 计算当前连续天数
func (s *StreakService) Streak(ctx context.Context, tx *repository.Store, userID int64, source StreakSource, now time.Time) (int, error) {
	days, err := s.loadDays(ctx, tx, userID, source)
	if err != nil {
		return 0, err
	}
	return CountStreak(days, dayOf(now.In(s.loc))), nil
}

// WeekCalendar 生成本周（周日开始）的打卡日历
func (s *StreakService) WeekCalendar(ctx context.Context, tx *repository.Store, userID int64, now time.Time) (*WeekCalendar, error) {
	days, err := s.loadDays(ctx, tx, userID, StreakCompletion)
	if err != nil {
		return nil, err
	}
	now = now.In(s.loc)
	return BuildWeekCalendar(days, now), nil
}

// BuildWeekCalendar 按完成日期生成周历：
// 未来为 inactive；最近完成距今 >= 2 天则整周 inactive；
// 无完成的日子仅当前一次完成恰为前一天时为 frozen。
func BuildWeekCalendar(days []civilDay, now time.Time) *WeekCalendar {
	today := dayOf(now)
	done := make(map[civilDay]struct{}, len(days))
	for _, d := range days {
		done[d] = struct{}{}
	}
	asc := distinctDesc(days, today)
	sort.Slice(asc, func(i, j int) bool { return asc[i] < asc[j] })
	broken := len(asc) == 0 || asc[len(asc)-1] <= today-2

	y, m, d := now.Date()
	sunday := time.Date(y, m, d-int(now.Weekday()), 0, 0, 0, 0, now.Location())

	cal := &WeekCalendar{Days: make([]CalendarDay, 0, 7), Streak: CountStreak(days, today)}
	for i := 0; i < 7; i++ {
		date := time.Date(sunday.Year(), sunday.Month(), sunday.Day()+i, 0, 0, 0, 0, now.Location())
		cd := dayOf(date)
		state := DayInactive
		switch {
		case cd > today || broken:
		case hasDay(done, cd):
			state = DayActive
			cal.ActiveDays++
		default:
			if prev, ok := lastBefore(asc, cd); ok && prev == cd-1 {
				state = DayFrozen
			}
		}
		cal.Days = append(cal.Days, CalendarDay{
			Date:  date.Format("2006-01-02"),
			Label: weekdayLabels[i],
			State: state,
		})
	}
	return cal
}

func hasDay(set map[civilDay]struct{}, d civilDay) bool {
	_, ok := set[d]
	return ok
}

// lastBefore 升序切片中严格早于 d 的最后一天
func lastBefore(asc []civilDay, d civilDay) (civilDay, bool) {
	i := sort.Search(len(asc), func(i int) bool { return asc[i] >= d })
	if i == 0 {
		return 0, false
	}
	return asc[i-1], true
}

func (s *StreakService) loadDays(ctx context.Context, tx *repository.Store, userID int64, source StreakSource) ([]civilDay, error) {
	var (
		stamps []int64
		err    error
	)
	switch source {
	case StreakCreation:
		stamps, err = tx.Activities.ListCreatedMs(ctx, userID)
	default:
		stamps, err = tx.Completions.ListCompletedAt(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	days := make([]civilDay, 0, len(stamps))
	for _, ms := range stamps {
		days = append(days, dayOf(time.UnixMilli(ms).In(s.loc)))
	}
	return days, nil
}
