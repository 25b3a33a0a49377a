package events

import (
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"go.uber.org/zap"
)

const (
	TopicRecordSaved   = "record:saved"
	TopicRecordDeleted = "record:deleted"
)

// RecordEvent describes a change made through an admin editor
type RecordEvent struct {
	Actor    string
	Action   string // create, update, delete
	Entity   string
	RecordID string
	Detail   string
	At       time.Time
}

// Bus is a typed facade over EventBus
type Bus struct {
	bus EventBus.Bus
}

func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

// PublishRecord publishes ev on topic. A nil Bus is a no-op so services can
// be built without one in tests.
func (b *Bus) PublishRecord(topic string, ev RecordEvent) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.bus.Publish(topic, ev)
}

// OnRecord subscribes fn to topic. Handlers run synchronously on the
// publishing goroutine.
func (b *Bus) OnRecord(topic string, fn func(ev RecordEvent)) {
	if err := b.bus.Subscribe(topic, fn); err != nil {
		zap.L().Error("event subscribe failed", zap.String("topic", topic), zap.Error(err))
	}
}
