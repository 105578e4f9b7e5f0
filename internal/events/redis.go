package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisDispatcher publishes events on a redis pub/sub channel and also feeds
// local subscribers so in-process workers keep working without a consumer.
type redisDispatcher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger

	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewRedisDispatcher creates a redis-backed dispatcher.
func NewRedisDispatcher(client *redis.Client, channel string, logger *zap.Logger) Dispatcher {
	if channel == "" {
		channel = "fieldserve.events"
	}
	return &redisDispatcher{
		client:    client,
		channel:   channel,
		logger:    logger,
		listeners: make(map[EventType][]EventHandler),
	}
}

func (d *redisDispatcher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := d.client.Publish(ctx, d.channel, payload).Err(); err != nil {
		// fire-and-forget: log and fall through to local handlers
		d.logger.Warn("redis publish failed", zap.Error(err), zap.String("event", string(event.Type)))
	}

	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()
	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *redisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
