package replication

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Handler receives each authoritative snapshot in order.
type Handler func(snap Snapshot)

// JetStreamSubscriber delivers the room's snapshot sequence to a handler.
// An ordered consumer starting at the last stored message gives every new
// subscriber the current state immediately, then live updates; after a
// connectivity gap the consumer recreates itself and the next full snapshot
// replaces whatever the client had, so no local state survives a gap as
// authoritative.
type JetStreamSubscriber struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	config  JetStreamConfig
	handler Handler
	lastSeq uint64
}

// NewJetStreamSubscriber connects to NATS for consuming the room subject.
func NewJetStreamSubscriber(cfg JetStreamConfig, handler Handler) (*JetStreamSubscriber, error) {
	nc, err := nats.Connect(cfg.URL, natsOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return &JetStreamSubscriber{nc: nc, js: js, config: cfg, handler: handler}, nil
}

// Run consumes snapshots until the context is cancelled.
func (s *JetStreamSubscriber) Run(ctx context.Context) error {
	stream, err := s.js.Stream(ctx, s.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumer, err := stream.OrderedConsumer(ctx, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{s.config.subject()},
		DeliverPolicy:  jetstream.DeliverLastPolicy,
	})
	if err != nil {
		return fmt.Errorf("create ordered consumer: %w", err)
	}

	msgCh := make(chan jetstream.Msg, 64)
	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		select {
		case msgCh <- msg:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	log.Info().
		Str("subject", s.config.subject()).
		Str("stream", s.config.StreamName).
		Msg("snapshot subscriber started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("snapshot subscriber shutting down")
			return nil
		case msg := <-msgCh:
			s.processMessage(msg)
		}
	}
}

// processMessage decodes and forwards a snapshot. A malformed snapshot is
// logged and dropped: the next good one fully replaces client state anyway,
// so one bad document must not kill the subscription.
func (s *JetStreamSubscriber) processMessage(msg jetstream.Msg) {
	var snap Snapshot
	if err := json.Unmarshal(msg.Data(), &snap); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("malformed snapshot dropped")
		return
	}

	// Total-order guard: JetStream redelivery after a reconnect can replay
	// the last message. Snapshots carry their own sequence, so replays and
	// reordered deliveries are simply skipped.
	if snap.Seq != 0 && snap.Seq <= s.lastSeq {
		log.Debug().
			Uint64("seq", snap.Seq).
			Uint64("last_seq", s.lastSeq).
			Msg("stale snapshot skipped")
		return
	}
	s.lastSeq = snap.Seq

	s.handler(snap)
}

// Close tears down the NATS connection.
func (s *JetStreamSubscriber) Close() error {
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
