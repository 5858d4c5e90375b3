package schema

// 通知类型
const (
	NotifyActivityCompleted   = "activity_completed"
	NotifyLevelUp             = "level_up"
	NotifyChallengeCompleted  = "challenge_completed"
	NotifyAchievementUnlocked = "achievement_unlocked"
	NotifyInfo                = "info"
)

// Notification 站内通知记录，投递由外部负责
type Notification struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    int64  `gorm:"index;not null"`
	Kind      string `gorm:"size:32;index;not null"`
	Message   string `gorm:"type:text;not null"`
	Read      bool   `gorm:"column:is_read;index;not null;default:false"`
	CreatedAt int64  `gorm:"autoCreateTime:milli;index"` // Unix ms
}

func (Notification) TableName() string {
	return "notifications"
}
