package persistence

import (
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/fieldserve/fieldserve/internal/config"
)

// NATS wraps the nats.go connection.
type NATS struct {
	Conn *nats.Conn
}

// NewNATS connects to NATS when a URL is configured.
func NewNATS(cfg config.NATSConfig, logger *zap.Logger) (*NATS, error) {
	if cfg.URL == "" {
		logger.Warn("NATS_URL not provided; skipping nats connection")
		return &NATS{}, nil
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("fieldserve-api"))
	if err != nil {
		return nil, err
	}
	logger.Info("connected to nats", zap.String("url", cfg.URL))
	return &NATS{Conn: conn}, nil
}

// Close drains and closes the connection.
func (n *NATS) Close() {
	if n != nil && n.Conn != nil {
		n.Conn.Close()
	}
}
