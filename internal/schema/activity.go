package schema

import "time"

// 难度
const (
	DifficultyVeryEasy = "muito_facil"
	DifficultyEasy     = "facil"
	DifficultyMedium   = "medio"
	DifficultyHard     = "dificil"
	DifficultyVeryHard = "muito_dificil"
)

// 重复方式
const (
	RecurrenceOnce      = "unica"
	RecurrenceRecurring = "recorrente"
)

// 活动状态
const (
	ActivityActive    = "ativa"
	ActivityRealized  = "realizada"
	ActivityCancelled = "cancelada"
)

// Activity 用户创建的习惯/任务
// 数据量级：每用户千级
type Activity struct {
	ID               int64     `gorm:"primaryKey;autoIncrement"`
	UserID           int64     `gorm:"index;not null"`
	Name             string    `gorm:"size:200;not null"`
	Description      string    `gorm:"type:text"`
	Difficulty       string    `gorm:"size:20;index;not null"` // muito_facil/facil/medio/dificil/muito_dificil
	EstimatedMinutes int       `gorm:"not null;default:0"`
	Recurrence       string    `gorm:"size:16;not null"` // unica/recorrente
	Status           string    `gorm:"size:16;index;not null"`
	ScheduledAt      int64     `gorm:"index;not null"`                   // Unix ms，计划执行时间
	CreatedMs        int64     `gorm:"column:created_ms;index;not null"` // Unix ms，创建时刻
	RealizedAt       *int64                                              // Unix ms
	XPReward         int       `gorm:"not null;default:0"`               // 创建时固定
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (Activity) TableName() string {
	return "activities"
}

// ActivityCompletion 一次“完成”事实，仅追加
// RequestID 用于上游重试去重；Rewarded 保证活动经验只发放一次。
type ActivityCompletion struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	UserID      int64     `gorm:"index;not null"`
	ActivityID  int64     `gorm:"index;not null"`
	CompletedAt int64     `gorm:"index;not null"` // Unix ms
	RequestID   string    `gorm:"size:64;uniqueIndex;not null"`
	Rewarded    bool      `gorm:"index;not null;default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (ActivityCompletion) TableName() string {
	return "activity_completions"
}
