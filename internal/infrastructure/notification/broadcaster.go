// Package notification delivers live-update notifications to the clients of
// a business room, in process or across instances through Redis Pub/Sub.
package notification

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/domain/realtime"
)

// DefaultSubscriberBuffer is the per-subscriber channel size
const DefaultSubscriberBuffer = 16

type subscriber struct {
	ch chan realtime.Notification
}

// Broadcaster fans notifications out to in-process room subscribers.
// Slow subscribers lose notifications instead of blocking Emit.
type Broadcaster struct {
	mu      sync.RWMutex
	rooms   map[string]map[*subscriber]struct{}
	buffer  int
	dropped atomic.Int64
	logger  *zap.Logger
}

// NewBroadcaster creates a broadcaster
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		rooms:  make(map[string]map[*subscriber]struct{}),
		buffer: DefaultSubscriberBuffer,
		logger: logger,
	}
}

// Subscribe joins a room. The returned function leaves it and closes the channel.
func (b *Broadcaster) Subscribe(room string) (<-chan realtime.Notification, func()) {
	sub := &subscriber{ch: make(chan realtime.Notification, b.buffer)}

	b.mu.Lock()
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[*subscriber]struct{})
	}
	b.rooms[room][sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.rooms[room], sub)
			if len(b.rooms[room]) == 0 {
				delete(b.rooms, room)
			}
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Emit delivers n to every subscriber of its room
func (b *Broadcaster) Emit(_ context.Context, n realtime.Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.rooms[n.Room] {
		select {
		case sub.ch <- n:
		default:
			b.dropped.Add(1)
			b.logger.Warn("Dropping notification for slow subscriber",
				zap.String("room", n.Room),
				zap.String("event", n.Event),
			)
		}
	}
	return nil
}

// Subscribers returns the number of subscribers of a room
func (b *Broadcaster) Subscribers(room string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[room])
}

// Dropped returns how many deliveries were dropped
func (b *Broadcaster) Dropped() int64 {
	return b.dropped.Load()
}

// Ensure Broadcaster implements realtime.Notifier
var _ realtime.Notifier = (*Broadcaster)(nil)
