package service

import (
	"time"

	"github.com/yuqie6/HabitQuest/internal/eventbus"
)

// 外部依赖的最小接口集合（ISP）

// EventPublisher 提交后事件广播
type EventPublisher interface {
	Publish(evt eventbus.Event)
}

// Clock 当前时间来源，测试中可替换
type Clock func() time.Time
