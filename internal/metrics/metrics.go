// Package metrics 游戏化结算的 Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "habitquest"

// ─── 结算 ───────────────────────────────────────────────────────────────────

// XPGranted 按来源统计发放的经验（activity/challenge/achievement）
var XPGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "xp_granted_total",
	Help:      "Total XP granted, by source.",
}, []string{"source"})

// LevelUps 升级次数（一次结算跨多级按级数计）
var LevelUps = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "level_ups_total",
	Help:      "Total levels gained by users.",
})

// AwardsGranted 授予次数（challenge/achievement）
var AwardsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "awards_granted_total",
	Help:      "Total challenge and achievement awards granted.",
}, []string{"kind"})

// AwardConflicts 唯一约束冲突（并发竞争失败方）
var AwardConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "award_conflicts_total",
	Help:      "Award inserts skipped because the award already existed.",
}, []string{"kind"})

// RuleErrors 规则无法求值（未知类型/参数缺失/查询失败）
var RuleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "rule_errors_total",
	Help:      "Rule evaluations that could not be completed.",
}, []string{"kind", "reason"})

// EvaluationDuration 单次触发的结算耗时
var EvaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "evaluation_duration_seconds",
	Help:      "Duration of one gamification pass, by trigger.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"trigger"})

// GamificationFailures 结算事务失败（已回滚，待重试）
var GamificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "gamification_failures_total",
	Help:      "Gamification passes rolled back, by trigger.",
}, []string{"trigger"})

// PendingCompletions 尚未结算的完成记录数
var PendingCompletions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "pending_completions",
	Help:      "Completions whose gamification pass has not committed yet.",
})

// ─── 目录与事件 ─────────────────────────────────────────────────────────────

// CatalogSyncs 规则目录同步次数（ok/error）
var CatalogSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "catalog_syncs_total",
	Help:      "Rule catalog sync attempts, by result.",
}, []string{"result"})

// EventsDropped 慢订阅者丢弃的事件
var EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "events_dropped_total",
	Help:      "Events dropped because a subscriber buffer was full.",
})
