package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yuqie6/HabitQuest/internal/repository"
	"github.com/yuqie6/HabitQuest/internal/schema"
)

// challengeInput 单个挑战求值所需上下文
type challengeInput struct {
	tx      *repository.Store
	streaks *StreakService
	userID  int64
	target  int64
	now     time.Time
	window  Window
}

type challengeRuleFunc func(ctx context.Context, in challengeInput) (ruleResult, error)

type challengeRuleSpec struct {
	needsWindow bool
	eval        challengeRuleFunc
}

var (
	hardDifficulties  = []string{schema.DifficultyHard, schema.DifficultyVeryHard}
	lightDifficulties = []string{schema.DifficultyMedium, schema.DifficultyEasy, schema.DifficultyVeryEasy}
)

// challengeRules 每种规则一条；评估与进度展示共用
var challengeRules = [challengeRuleCount]challengeRuleSpec{
	RuleCompletions:          {needsWindow: true, eval: windowCompletions(repository.CompletionFilter{})},
	RuleRecurringCompletions: {needsWindow: true, eval: windowCompletions(repository.CompletionFilter{Recurrence: schema.RecurrenceRecurring})},
	RuleHardActivities:       {needsWindow: true, eval: windowCompletions(repository.CompletionFilter{Difficulties: hardDifficulties, DistinctActivity: true})},
	RuleChallengesCompleted:  {needsWindow: true, eval: evalChallengesCompleted},
	RuleActivitiesCreated:    {needsWindow: true, eval: evalActivitiesCreated},
	RuleLightCompletions:     {needsWindow: true, eval: windowCompletions(repository.CompletionFilter{Difficulties: lightDifficulties})},
	RuleAllVeryEasy:          {needsWindow: true, eval: evalAllVeryEasy},
	RuleDailyStreak:          {needsWindow: false, eval: evalDailyStreak},
	RuleCompletionPercent:    {needsWindow: true, eval: evalCompletionPercent},
}

func init() {
	for i := challengeRuleUnknown + 1; i < challengeRuleCount; i++ {
		if challengeRules[i].eval == nil {
			panic(fmt.Sprintf("挑战规则 %d 未注册", i))
		}
	}
}

// windowCompletions 窗口内满足条件的完成次数 >= target
func windowCompletions(base repository.CompletionFilter) challengeRuleFunc {
	return func(ctx context.Context, in challengeInput) (ruleResult, error) {
		f := base
		f.UserID = in.userID
		r := in.window.Range()
		f.Range = &r
		n, err := in.tx.Completions.Count(ctx, f)
		if err != nil {
			return ruleResult{}, err
		}
		return atLeast(n, in.target), nil
	}
}

// evalChallengesCompleted 当前授予尚未写入，计数 +1 参与比较
func evalChallengesCompleted(ctx context.Context, in challengeInput) (ruleResult, error) {
	r := in.window.Range()
	n, err := in.tx.ChallengeAwards.CountByUser(ctx, in.userID, &r)
	if err != nil {
		return ruleResult{}, err
	}
	return ruleResult{Progress: n, Met: n+1 >= in.target}, nil
}

func evalActivitiesCreated(ctx context.Context, in challengeInput) (ruleResult, error) {
	n, err := in.tx.Activities.CountCreatedInRange(ctx, in.userID, in.window.Range())
	if err != nil {
		return ruleResult{}, err
	}
	return atLeast(n, in.target), nil
}

// evalAllVeryEasy 窗口内计划的 muito_facil 活动至少一个，且全部已完成
func evalAllVeryEasy(ctx context.Context, in challengeInput) (ruleResult, error) {
	total, completed, err := in.tx.Activities.CountScheduledByDifficulty(ctx, in.userID, schema.DifficultyVeryEasy, in.window.Range())
	if err != nil {
		return ruleResult{}, err
	}
	if total > 0 && completed == total {
		return ruleResult{Progress: 1, Met: true}, nil
	}
	return ruleResult{}, nil
}

func evalDailyStreak(ctx context.Context, in challengeInput) (ruleResult, error) {
	n, err := in.streaks.Streak(ctx, in.tx, in.userID, StreakCompletion, in.now)
	if err != nil {
		return ruleResult{}, err
	}
	return atLeast(int64(n), in.target), nil
}

// evalCompletionPercent 完成数 / 创建数 的百分比（整数比较）
func evalCompletionPercent(ctx context.Context, in challengeInput) (ruleResult, error) {
	r := in.window.Range()
	created, err := in.tx.Activities.CountCreatedInRange(ctx, in.userID, r)
	if err != nil {
		return ruleResult{}, err
	}
	if created == 0 {
		return ruleResult{}, nil
	}
	done, err := in.tx.Completions.Count(ctx, repository.CompletionFilter{UserID: in.userID, Range: &r})
	if err != nil {
		return ruleResult{}, err
	}
	return ruleResult{
		Progress: done * 100 / created,
		Met:      done*100 >= in.target*created,
	}, nil
}
