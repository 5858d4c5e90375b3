package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

// achievementInput 单个成就求值所需上下文
type achievementInput struct {
	tx          *repository.Store
	streaks     *StreakService
	userID      int64
	now         time.Time
	achievement *schema.Achievement
}

type achievementRuleFunc func(ctx context.Context, in achievementInput) (int64, error)

// achievementRules 返回终身计数，与 Target 比较
var achievementRules = [achievementRuleCount]achievementRuleFunc{
	RuleTotalCompletions:    totalCompletions(repository.CompletionFilter{}),
	RuleTotalRecurring:      totalCompletions(repository.CompletionFilter{Recurrence: schema.RecurrenceRecurring}),
	RuleTotalByDifficulty:   countByDifficulty,
	RuleTotalChallenges:     countChallenges,
	RuleChallengesByCycle:   countChallengesByCycle,
	RuleCompletionStreak:    streakCount(StreakCompletion),
	RuleCreationStreak:      streakCount(StreakCreation),
	RulePomodoroCompletions: countPomodoro,
}

func init() {
	for i := achievementRuleUnknown + 1; i < achievementRuleCount; i++ {
		if achievementRules[i] == nil {
			panic(fmt.Sprintf("成就规则 %d 未注册", i))
		}
	}
}

func totalCompletions(base repository.CompletionFilter) achievementRuleFunc {
	return func(ctx context.Context, in achievementInput) (int64, error) {
		f := base
		f.UserID = in.userID
		return in.tx.Completions.Count(ctx, f)
	}
}

func countByDifficulty(ctx context.Context, in achievementInput) (int64, error) {
	d := in.achievement.TargetDifficulty
	if d == "" || !ValidDifficulty(d) {
		return 0, fmt.Errorf("成就 %q 缺少有效难度: %w", in.achievement.Name, ErrRuleMisconfigured)
	}
	return in.tx.Completions.Count(ctx, repository.CompletionFilter{UserID: in.userID, Difficulties: []string{d}})
}

func countChallenges(ctx context.Context, in achievementInput) (int64, error) {
	return in.tx.ChallengeAwards.CountByUser(ctx, in.userID, nil)
}

func countChallengesByCycle(ctx context.Context, in achievementInput) (int64, error) {
	c, ok := ParseCycle(in.achievement.TargetChallengeCycle)
	if !ok {
		return 0, fmt.Errorf("成就 %q 缺少挑战周期: %w", in.achievement.Name, ErrRuleMisconfigured)
	}
	return in.tx.ChallengeAwards.CountByCycle(ctx, in.userID, string(c))
}

func streakCount(source StreakSource) achievementRuleFunc {
	return func(ctx context.Context, in achievementInput) (int64, error) {
		n, err := in.streaks.Streak(ctx, in.tx, in.userID, source, in.now)
		return int64(n), err
	}
}

func countPomodoro(ctx context.Context, in achievementInput) (int64, error) {
	minutes := in.achievement.PomodoroMinutes
	if minutes <= 0 {
		minutes = schema.DefaultPomodoroMinutes
	}
	return in.tx.Completions.Count(ctx, repository.CompletionFilter{UserID: in.userID, MinMinutes: minutes})
}
