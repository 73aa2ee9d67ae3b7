package distributed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisTransport carries envelopes over a redis pub/sub channel shared by
// every device in the sync group.
type RedisTransport struct {
	client  *redis.Client
	channel string
}

func NewRedisTransport(client *redis.Client, channel string) *RedisTransport {
	if channel == "" {
		channel = "notibroker:sync"
	}
	return &RedisTransport{client: client, channel: channel}
}

func (t *RedisTransport) Send(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return t.client.Publish(ctx, t.channel, payload).Err()
}

func (t *RedisTransport) Listen(ctx context.Context, fn func(Envelope)) error {
	sub := t.client.Subscribe(ctx, t.channel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				continue
			}
			fn(env)
		}
	}
}

func (t *RedisTransport) Close() error {
	return t.client.Close()
}
