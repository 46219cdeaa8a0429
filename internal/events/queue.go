package events

import (
	"context"
	"encoding/json"
	"time"
)

// Queue is the downstream event queue the Finalize Pipeline publishes
// completion events to.
type Queue interface {
	Publish(ctx context.Context, eventType string, payload map[string]any) error
}

type publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisQueue publishes envelopes on a single redis channel.
type RedisQueue struct {
	pub     publisher
	channel string
}

func NewRedisQueue(pub publisher, channel string) *RedisQueue {
	return &RedisQueue{pub: pub, channel: channel}
}

func (q *RedisQueue) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	envelope := Envelope{
		EventType:       eventType,
		Payload:         payload,
		CreateTimestamp: time.Now().Unix(),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return q.pub.Publish(ctx, q.channel, data)
}
