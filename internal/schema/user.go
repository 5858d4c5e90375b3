package schema

import "time"

// User 玩家账号（仅保留游戏化相关字段）
// 不变量：0 <= XP < XPPerLevel，Level >= 1
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"size:100;not null"`
	Email     string    `gorm:"size:255;uniqueIndex;not null"`
	Level     int       `gorm:"not null;default:1"`
	XP        int       `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// XPPerLevel 每升一级所需经验
const XPPerLevel = 1000

func (User) TableName() string {
	return "users"
}
