package service

import "strings"

// ChallengeRule 挑战判定类型（封闭枚举）
type ChallengeRule uint8

const (
	challengeRuleUnknown     ChallengeRule = iota
	RuleCompletions                        // atividades_concluidas
	RuleRecurringCompletions               // recorrentes_concluidas
	RuleHardActivities                     // min_dificeis
	RuleChallengesCompleted                // desafios_concluidos
	RuleActivitiesCreated                  // atividades_criadas
	RuleLightCompletions                   // min_atividades_por_dificuldade
	RuleAllVeryEasy                        // todas_muito_faceis
	RuleDailyStreak                        // streak_diario
	RuleCompletionPercent                  // percentual_concluido
	challengeRuleCount
)

var challengeRuleNames = [challengeRuleCount]string{
	RuleCompletions:          "atividades_concluidas",
	RuleRecurringCompletions: "recorrentes_concluidas",
	RuleHardActivities:       "min_dificeis",
	RuleChallengesCompleted:  "desafios_concluidos",
	RuleActivitiesCreated:    "atividades_criadas",
	RuleLightCompletions:     "min_atividades_por_dificuldade",
	RuleAllVeryEasy:          "todas_muito_faceis",
	RuleDailyStreak:          "streak_diario",
	RuleCompletionPercent:    "percentual_concluido",
}

func (r ChallengeRule) String() string {
	if r >= challengeRuleCount || r == challengeRuleUnknown {
		return "unknown"
	}
	return challengeRuleNames[r]
}

// ParseChallengeRule 解析挑战规则名（大小写不敏感）
func ParseChallengeRule(s string) (ChallengeRule, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i := challengeRuleUnknown + 1; i < challengeRuleCount; i++ {
		if challengeRuleNames[i] == s {
			return i, true
		}
	}
	return challengeRuleUnknown, false
}

// AchievementRule 成就判定类型（封闭枚举）
type AchievementRule uint8

const (
	achievementRuleUnknown  AchievementRule = iota
	RuleTotalCompletions                    // atividades_concluidas_total
	RuleTotalRecurring                      // recorrentes_concluidas_total
	RuleTotalByDifficulty                   // dificuldade_concluidas_total
	RuleTotalChallenges                     // desafios_concluidos_total
	RuleChallengesByCycle                   // desafios_concluidos_por_tipo
	RuleCompletionStreak                    // streak_conclusao
	RuleCreationStreak                      // streak_criacao
	RulePomodoroCompletions                 // pomodoro_concluidas_total
	achievementRuleCount
)

var achievementRuleNames = [achievementRuleCount]string{
	RuleTotalCompletions:    "atividades_concluidas_total",
	RuleTotalRecurring:      "recorrentes_concluidas_total",
	RuleTotalByDifficulty:   "dificuldade_concluidas_total",
	RuleTotalChallenges:     "desafios_concluidos_total",
	RuleChallengesByCycle:   "desafios_concluidos_por_tipo",
	RuleCompletionStreak:    "streak_conclusao",
	RuleCreationStreak:      "streak_criacao",
	RulePomodoroCompletions: "pomodoro_concluidas_total",
}

func (r AchievementRule) String() string {
	if r >= achievementRuleCount || r == achievementRuleUnknown {
		return "unknown"
	}
	return achievementRuleNames[r]
}

// ParseAchievementRule 解析成就规则名（大小写不敏感）
func ParseAchievementRule(s string) (AchievementRule, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i := achievementRuleUnknown + 1; i < achievementRuleCount; i++ {
		if achievementRuleNames[i] == s {
			return i, true
		}
	}
	return achievementRuleUnknown, false
}

// ruleResult 规则求值结果：Progress 用于展示，Met 决定是否授予
type ruleResult struct {
	Progress int64
	Met      bool
}

func atLeast(progress, target int64) ruleResult {
	return ruleResult{Progress: progress, Met: progress >= target}
}
