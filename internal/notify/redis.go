package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Envelope is the JSON document published for every toast.
type Envelope struct {
	Recipient uuid.UUID `json:"recipient"`
	Toast     Toast     `json:"toast"`
}

// RedisPublisher publishes toasts on a redis channel. Every instance runs a
// RedisRelay on the same channel, so the publishing instance must not also
// deliver locally.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher creates a RedisPublisher.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

// ShowToast implements Sink.
func (p *RedisPublisher) ShowToast(ctx context.Context, recipient uuid.UUID, t Toast) {
	payload, err := json.Marshal(Envelope{Recipient: recipient, Toast: t})
	if err != nil {
		slog.Error("failed to encode toast", "error", err)
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		slog.Warn("failed to publish toast", "channel", p.channel, "error", err)
	}
}

// ShowError implements Sink.
func (p *RedisPublisher) ShowError(ctx context.Context, recipient uuid.UUID, title string, err error) {
	p.ShowToast(ctx, recipient, ErrorToast(title, err))
}

// RedisRelay delivers toasts published on a redis channel to a local sink,
// normally the instance's Hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	local   Sink
}

// NewRedisRelay creates a RedisRelay feeding local.
func NewRedisRelay(client *redis.Client, channel string, local Sink) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, local: local}
}

// Run subscribes to the channel and forwards envelopes until ctx is done.
// It returns an error only when the subscription cannot be established.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", r.channel, err)
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("dropping malformed toast envelope", "channel", r.channel, "error", err)
				continue
			}
			r.local.ShowToast(ctx, env.Recipient, env.Toast)
		}
	}
}
