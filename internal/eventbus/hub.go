package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/yuqie6/HabitQuest/internal/metrics"
)

// 事件类型
const (
	TypeXPGranted           = "xp_granted"
	TypeLevelUp             = "level_up"
	TypeChallengeCompleted  = "challenge_completed"
	TypeAchievementUnlocked = "achievement_unlocked"
	TypeCatalogSynced       = "catalog_synced"
)

// Event 结算提交后对外广播的事件
type Event struct {
	Type      string         `json:"type"`
	UserID    int64          `json:"user_id,omitempty"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

type subscriber struct {
	ch    chan Event
	types map[string]struct{} // 为空表示全部
}

func (s *subscriber) wants(t string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Hub 进程内发布订阅；慢消费者丢弃事件，不阻塞发布方
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Publish 广播事件；nil Hub 为空操作
func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		if !s.wants(evt.Type) {
			continue
		}
		select {
		case s.ch <- evt:
		default:
			metrics.EventsDropped.Inc()
		}
	}
}

// Subscribe 订阅事件，ctx 结束后自动退订并关闭通道；types 为空订阅全部
func (h *Hub) Subscribe(ctx context.Context, buffer int, types ...string) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	s := &subscriber{ch: make(chan Event, buffer)}
	if len(types) > 0 {
		s.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, s)
		h.mu.Unlock()
		close(s.ch)
	}()

	return s.ch
}
