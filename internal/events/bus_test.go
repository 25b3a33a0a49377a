package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishRecord(t *testing.T) {
	b := NewBus()
	var got []RecordEvent
	b.OnRecord(TopicRecordSaved, func(ev RecordEvent) { got = append(got, ev) })

	b.PublishRecord(TopicRecordSaved, RecordEvent{Action: "create", Entity: "product", RecordID: "p1"})
	b.PublishRecord(TopicRecordDeleted, RecordEvent{Action: "delete", Entity: "product", RecordID: "p1"})

	if assert.Len(t, got, 1) {
		assert.Equal(t, "p1", got[0].RecordID)
		assert.False(t, got[0].At.IsZero())
	}
}

func TestNilBusIsNoop(t *testing.T) {
	var b *Bus
	assert.NotPanics(t, func() {
		b.PublishRecord(TopicRecordSaved, RecordEvent{})
	})
}
