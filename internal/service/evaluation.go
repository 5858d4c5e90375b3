package service

import (
	"errors"
	"time"
)

// 授予类型
const (
	AwardChallenge   = "challenge"
	AwardAchievement = "achievement"
)

// AwardResult 一次实际写入的授予
type AwardResult struct {
	Kind     string
	ID       int64
	Name     string
	XP       int
	CycleKey string
	Level    LevelChange
}

// EvalReport 评估器单次运行结果
type EvalReport struct {
	Awards     []AwardResult
	Conflicts  int
	RuleErrors map[string]int // reason -> count
}

func (r *EvalReport) ruleError(reason string) {
	if r.RuleErrors == nil {
		r.RuleErrors = make(map[string]int)
	}
	r.RuleErrors[reason]++
}

// Outcome 一次触发（创建/完成）的全部结算结果，提交后用于广播与指标
type Outcome struct {
	UserID     int64
	Trigger    string
	Skipped    bool // 该完成事实已结算过
	ActivityXP int
	PrevLevel  int
	Level      int
	Awards     []AwardResult
	Conflicts  map[string]int
	RuleErrors map[string]map[string]int
	Duration   time.Duration
}

// TotalXP 本次发放的经验总和
func (o *Outcome) TotalXP() int {
	if o == nil {
		return 0
	}
	total := o.ActivityXP
	for _, a := range o.Awards {
		total += a.XP
	}
	return total
}

// LeveledUp 本次是否升级
func (o *Outcome) LeveledUp() bool {
	return o != nil && o.Level > o.PrevLevel
}

// CountAwards 按类型统计授予数
func (o *Outcome) CountAwards(kind string) int {
	if o == nil {
		return 0
	}
	n := 0
	for _, a := range o.Awards {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func (o *Outcome) trackLevel(c LevelChange) {
	if c.UserID == 0 {
		return
	}
	if o.PrevLevel == 0 {
		o.PrevLevel = c.PrevLevel
	}
	o.Level = c.Level
}

func (o *Outcome) merge(kind string, r EvalReport) {
	for _, a := range r.Awards {
		o.Awards = append(o.Awards, a)
		o.trackLevel(a.Level)
	}
	if r.Conflicts > 0 {
		if o.Conflicts == nil {
			o.Conflicts = make(map[string]int)
		}
		o.Conflicts[kind] += r.Conflicts
	}
	if len(r.RuleErrors) > 0 {
		if o.RuleErrors == nil {
			o.RuleErrors = make(map[string]map[string]int)
		}
		if o.RuleErrors[kind] == nil {
			o.RuleErrors[kind] = make(map[string]int)
		}
		for reason, n := range r.RuleErrors {
			o.RuleErrors[kind][reason] += n
		}
	}
}

// ruleErrorReason 规则定义本身的问题返回原因并可跳过；存储或查询失败返回 false，须回滚事务
func ruleErrorReason(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrUnknownRule):
		return "unknown_rule", true
	case errors.Is(err, ErrRuleMisconfigured):
		return "misconfigured", true
	}
	return "", false
}
