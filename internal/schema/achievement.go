package schema

import "time"

// DefaultPomodoroMinutes 番茄类成就默认时长阈值
const DefaultPomodoroMinutes = 60

// Achievement 永久成就定义
type Achievement struct {
	ID                   int64     `gorm:"primaryKey;autoIncrement"`
	Name                 string    `gorm:"size:200;uniqueIndex;not null"`
	Description          string    `gorm:"type:text"`
	Image                string    `gorm:"size:255"`
	RuleKind             string    `gorm:"size:64;not null"`
	Target               int       `gorm:"not null"`
	TargetDifficulty     string    `gorm:"size:20"` // dificuldade_concluidas_total 使用
	TargetChallengeCycle string    `gorm:"size:16"` // desafios_concluidos_por_tipo 使用
	PomodoroMinutes      int       `gorm:"not null;default:60"`
	XPReward             int       `gorm:"not null;default:0"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// AchievementAward 成就解锁记录，(user_id, achievement_id) 唯一
type AchievementAward struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	UserID        int64     `gorm:"index;not null;uniqueIndex:uniq_achievement_award,priority:1"`
	AchievementID int64     `gorm:"index;not null;uniqueIndex:uniq_achievement_award,priority:2"`
	AwardedAt     int64     `gorm:"index;not null"` // Unix ms
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (AchievementAward) TableName() string {
	return "achievement_awards"
}
