package commands

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/multisite/internal/logger"
)

// DefaultTopic is the pub/sub channel used when none is configured.
const DefaultTopic = "multisite:commands"

// RedisChannel carries frames over Redis pub/sub.
type RedisChannel struct {
	*dispatcher
	client *redis.Client
	topic  string

	mu  sync.Mutex
	sub *redis.PubSub
}

var _ Channel = (*RedisChannel)(nil)

// NewRedisChannel creates a channel on topic. The caller owns the client.
func NewRedisChannel(client *redis.Client, topic, nodeID string, log logger.Logger) *RedisChannel {
	if topic == "" {
		topic = DefaultTopic
	}
	rc := &RedisChannel{client: client, topic: topic}
	rc.dispatcher = newDispatcher(nodeID, log, rc.publish)
	return rc
}

func (rc *RedisChannel) publish(ctx context.Context, data []byte) error {
	return rc.client.Publish(ctx, rc.topic, data).Err()
}

// Start subscribes and returns once Redis has confirmed the subscription.
func (rc *RedisChannel) Start(ctx context.Context) error {
	sub := rc.client.Subscribe(ctx, rc.topic)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", rc.topic, err)
	}

	rc.mu.Lock()
	rc.sub = sub
	rc.mu.Unlock()

	msgs := sub.Channel()
	go func() {
		for msg := range msgs {
			rc.deliver(ctx, []byte(msg.Payload))
		}
	}()

	rc.logger.Info("command channel subscribed",
		logger.String("topic", rc.topic),
		logger.String("node", rc.node))
	return nil
}

// Close unsubscribes. The Redis client stays open.
func (rc *RedisChannel) Close() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.sub == nil {
		return nil
	}
	err := rc.sub.Close()
	rc.sub = nil
	return err
}
