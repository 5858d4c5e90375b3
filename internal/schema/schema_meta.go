package schema

import "time"

// SchemaMeta 单行表（ID=1）：当前 schema 版本与最后一次执行迁移的程序版本
type SchemaMeta struct {
	ID            int       `gorm:"primaryKey"`
	SchemaVersion int       `gorm:"not null"`
	AppliedBy     string    `gorm:"size:64"`
	MigratedAt    int64     // Unix ms
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (SchemaMeta) TableName() string {
	return "schema_meta"
}
