package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/landledger/landledger/internal/core/domain"
)

const (
	// StreamLandEvents holds every confirmed registration and transfer.
	StreamLandEvents = "LAND_EVENTS"
	// SubjectAll matches all land events.
	SubjectAll = "land.>"
)

// Subject returns the subject for an event: land.<type>.<land id>.
func Subject(e *domain.LandEvent) string {
	return "land." + e.Type + "." + strconv.FormatUint(e.LandID, 10)
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:       StreamLandEvents,
		Subjects:   []string{"land.registered.>", "land.transferred.>"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Storage:    nats.FileStorage,
		Duplicates: 10 * time.Minute,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist — try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// PublishLandEvent publishes e on its subject. Events carrying a transaction
// hash are deduplicated by the stream.
func (p *Publisher) PublishLandEvent(ctx context.Context, e *domain.LandEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	opts := []nats.PubOpt{nats.Context(ctx)}
	if e.TxHash != "" {
		opts = append(opts, nats.MsgId(e.Type+":"+e.TxHash))
	}
	if _, err := p.js.Publish(Subject(e), data, opts...); err != nil {
		return fmt.Errorf("publish %s: %w", Subject(e), err)
	}
	return nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("landledger"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
