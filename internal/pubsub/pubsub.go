package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"

	"github.com/eudiconnect/credential-platform/internal/config"
	"github.com/eudiconnect/credential-platform/internal/log"
	iRedis "github.com/eudiconnect/credential-platform/internal/redis"
)

// Event defines the payload
type Event interface {
	Marshal() (msg Message, err error)
	Unmarshal(msg Message) error
}

// Message is the payload received in a pubsub subscriber. The input for callback functions
type Message []byte

// Publisher sends topics to the pubsub
type Publisher interface {
	Publish(ctx context.Context, topic string, payload Event) error
}

// EventHandler is the type that functions that handle a Message must comply.
type EventHandler func(context.Context, Message) error

// Subscriber subscribes to the pubsub topics
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, callback EventHandler)
}

// Client is formed by the publisher and subscriber
type Client interface {
	Publisher
	Subscriber
	Close() error
}

// payload is the envelope sent over the wire for every published event
type payload struct {
	ID   uuid.UUID `json:"id"`
	Time time.Time `json:"time"`
	Msg  []byte    `json:"msg"`
}

// MarshalBinary satisfies encoding.BinaryMarshaler so the envelope can be
// handed to the redis client directly
func (p payload) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

// NewPubSub creates a new pubsub client based on the configuration
func NewPubSub(ctx context.Context, cfg config.Configuration) (Client, error) {
	if cfg.Cache.Provider == config.CacheProviderValKey {
		client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{cfg.Cache.Url}})
		if err != nil {
			log.Error(ctx, "cannot connect to valkey", "err", err, "host", cfg.Cache.Url)
			return nil, err
		}
		return NewValKeyClient(client), nil
	}

	rdb, err := iRedis.Open(ctx, cfg.Cache.Url)
	if err != nil {
		log.Error(ctx, "cannot connect to redis", "err", err, "host", cfg.Cache.Url)
		return nil, err
	}
	return NewRedis(rdb), nil
}
