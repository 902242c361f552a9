package pubsub

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eudiconnect/credential-platform/internal/redis"
)

func TestRedisPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := miniredis.RunT(t)
	client, err := redis.Open(ctx, "redis://"+s.Addr())
	require.NoError(t, err)

	ps := NewRedis(client)
	defer func() { _ = ps.Close() }()

	wg := sync.WaitGroup{}
	ps.Subscribe(ctx, "revocations", func(ctx context.Context, msg Message) error {
		defer wg.Done()
		var ev testEvent
		assert.NoError(t, ev.Unmarshal(msg))
		assert.Equal(t, "cred-1", ev.CredentialID)
		assert.Equal(t, int64(7), ev.Index)
		return nil
	})

	wg.Add(1)
	require.NoError(t, ps.Publish(ctx, "revocations", &testEvent{
		CredentialID: "cred-1",
		Index:        7,
	}))
	wg.Wait()
}

func TestRedisSubscribeTopicIsolation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := miniredis.RunT(t)
	client, err := redis.Open(ctx, "redis://"+s.Addr())
	require.NoError(t, err)

	ps := NewRedis(client)
	defer func() { _ = ps.Close() }()

	wg := sync.WaitGroup{}
	ps.Subscribe(ctx, "topicA", func(ctx context.Context, msg Message) error {
		defer wg.Done()
		return nil
	})
	ps.Subscribe(ctx, "topicB", func(ctx context.Context, msg Message) error {
		assert.Fail(t, "topicB subscriber must not see topicA messages")
		return nil
	})

	wg.Add(1)
	require.NoError(t, ps.Publish(ctx, "topicA", &testEvent{CredentialID: "cred-2"}))
	wg.Wait()
}
