package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// natsDispatcher publishes events on NATS subjects of the form
// <prefix>.<event_type> while also feeding local subscribers.
type natsDispatcher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger

	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewNATSDispatcher creates a NATS-backed dispatcher.
func NewNATSDispatcher(conn *nats.Conn, prefix string, logger *zap.Logger) Dispatcher {
	if prefix == "" {
		prefix = "fieldserve.events"
	}
	return &natsDispatcher{
		conn:      conn,
		prefix:    prefix,
		logger:    logger,
		listeners: make(map[EventType][]EventHandler),
	}
}

func (d *natsDispatcher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", d.prefix, event.Type)
	if err := d.conn.Publish(subject, payload); err != nil {
		d.logger.Warn("nats publish failed", zap.Error(err), zap.String("subject", subject))
	}

	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()
	for _, handler := range handlers {
		_ = handler(ctx, event)
	}
	return nil
}

func (d *natsDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
