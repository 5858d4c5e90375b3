package schema

import "time"

// Challenge 限时挑战定义（由目录同步写入）
type Challenge struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"size:200;uniqueIndex;not null"`
	Description string    `gorm:"type:text"`
	Cycle       string    `gorm:"size:16;not null"` // daily/weekly/monthly/once
	WindowStart *int64    // Unix ms，可空
	WindowEnd   *int64    // Unix ms，可空
	RuleKind    string    `gorm:"size:64;not null"`
	Target      int       `gorm:"not null"`
	XPReward    int       `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// ChallengeAward 挑战授予记录
// (user_id, challenge_id, cycle_key) 唯一：同一周期最多授予一次。
type ChallengeAward struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	UserID      int64     `gorm:"index;not null;uniqueIndex:uniq_challenge_award,priority:1"`
	ChallengeID int64     `gorm:"index;not null;uniqueIndex:uniq_challenge_award,priority:2"`
	CycleKey    string    `gorm:"size:32;not null;uniqueIndex:uniq_challenge_award,priority:3"` // 周期起始日期，一次性挑战为 once
	AwardedAt   int64     `gorm:"index;not null"`                                               // Unix ms
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (ChallengeAward) TableName() string {
	return "challenge_awards"
}
