package service

import (
	"math"

	"github.com/yuqie6/HabitQuest/internal/schema"
)

// XPPolicy 活动经验计算策略（可替换）
type XPPolicy interface {
	ActivityXP(difficulty string, estimatedMinutes int) int
}

// DefaultXPPolicy 默认策略：基础 50 × 难度系数 × 时长系数，clamp 到 [50, 500]
type DefaultXPPolicy struct{}

const (
	activityBaseXP = 50
	activityMinXP  = 50
	activityMaxXP  = 500
)

var difficultyMultiplier = map[string]float64{
	schema.DifficultyVeryEasy: 1,
	schema.DifficultyEasy:     2,
	schema.DifficultyMedium:   3,
	schema.DifficultyHard:     4,
	schema.DifficultyVeryHard: 5,
}

// ActivityXP 计算活动完成经验
func (p DefaultXPPolicy) ActivityXP(difficulty string, estimatedMinutes int) int {
	mult, ok := difficultyMultiplier[difficulty]
	if !ok {
		mult = 1
	}
	xp := activityBaseXP * mult * durationMultiplier(estimatedMinutes)
	return int(clamp(math.Round(xp), activityMinXP, activityMaxXP))
}

// ValidDifficulty 是否为合法难度
func ValidDifficulty(difficulty string) bool {
	_, ok := difficultyMultiplier[difficulty]
	return ok
}

// durationMultiplier 预计时长系数
func durationMultiplier(minutes int) float64 {
	switch {
	case minutes <= 30:
		return 1
	case minutes <= 60:
		return 1.5
	case minutes <= 120:
		return 2
	default:
		return 2.5
	}
}

// clamp 将数值限制在指定范围内
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
