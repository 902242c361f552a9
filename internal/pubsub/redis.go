package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/eudiconnect/credential-platform/internal/log"
)

// RedisClient struct
type RedisClient struct {
	conn *redis.Client
}

// NewRedis returns a redis pubsub client
func NewRedis(rdb *redis.Client) Client {
	return &RedisClient{conn: rdb}
}

// Publish publishes a new topic payload
func (rdb *RedisClient) Publish(ctx context.Context, topic string, event Event) error {
	msg, err := event.Marshal()
	if err != nil {
		return err
	}
	p := payload{
		ID:   uuid.New(),
		Time: time.Now(),
		Msg:  []byte(msg),
	}
	return rdb.conn.Publish(ctx, topic, p).Err()
}

// Subscribe adds a topic to the subscriber and launches a goroutine that feeds
// the callback with every received message until the context is cancelled
func (rdb *RedisClient) Subscribe(ctx context.Context, topic string, callback EventHandler) {
	pubsub := rdb.conn.Subscribe(ctx, topic)
	go func() {
		for {
			select {
			case event := <-pubsub.Channel():
				if event.Channel != topic {
					log.Error(ctx, "msg channel != topic", "channel", event.Channel, "topic", topic)
					continue
				}

				var p payload
				if err := json.Unmarshal([]byte(event.Payload), &p); err != nil {
					log.Error(ctx, "unmarshal msg payload", "err", err)
					continue
				}

				if err := callback(ctx, p.Msg); err != nil {
					log.Error(ctx, "executing callback function", "err", err, "topic", topic)
				}

			case <-ctx.Done():
				if err := pubsub.Close(); err != nil {
					log.Error(ctx, "closing subscription", "err", err)
				}
				return
			}
		}
	}()
}

// Close closes the pubsub client
func (rdb *RedisClient) Close() error {
	return rdb.conn.Close()
}
