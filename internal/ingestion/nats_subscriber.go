package ingestion

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"TokenVault/internal/observability"
	"TokenVault/internal/vault"
)

// Subscriber consumes keeper operation requests from NATS JetStream and
// drives the vault engine. Each subject maps to one engine operation:
//
//	vault.ops.reconcile -> RecordTransferIn
//	vault.ops.sync      -> SyncBalance
//
// Requests execute as the configured operator address, which must hold
// the controller role for the engine to accept them.
type Subscriber struct {
	js        jetstream.JetStream
	engine    *vault.Engine
	operator  vault.Address
	metrics   *observability.Metrics
	consumers []jetstream.ConsumeContext
}

// SubjectConfig binds one ops subject to its durable consumer.
type SubjectConfig struct {
	Subject      string
	Op           string
	ConsumerName string
}

// DefaultSubjects returns the standard keeper subject configuration.
func DefaultSubjects() []SubjectConfig {
	return []SubjectConfig{
		{Subject: "vault.ops.reconcile", Op: OpReconcile, ConsumerName: "vault-keeper-reconcile"},
		{Subject: "vault.ops.sync", Op: OpSync, ConsumerName: "vault-keeper-sync"},
	}
}

func NewSubscriber(js jetstream.JetStream, engine *vault.Engine, operator vault.Address, metrics *observability.Metrics) *Subscriber {
	return &Subscriber{
		js:       js,
		engine:   engine,
		operator: operator,
		metrics:  metrics,
	}
}

// Subscribe creates JetStream consumers for all configured subjects.
// Consumers use explicit ACK, max_deliver=5, ack_wait=30s.
func (s *Subscriber) Subscribe(ctx context.Context, subjects []SubjectConfig) error {
	for _, cfg := range subjects {
		consumer, err := s.js.CreateOrUpdateConsumer(ctx, "VAULT_OPS", jetstream.ConsumerConfig{
			Durable:       cfg.ConsumerName,
			FilterSubject: cfg.Subject,
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       30 * time.Second,
			MaxDeliver:    5,
			DeliverPolicy: jetstream.DeliverAllPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer %s: %w", cfg.ConsumerName, err)
		}

		consumerContext, err := consumer.Consume(func(msg jetstream.Msg) {
			s.handle(ctx, msg)
		})
		if err != nil {
			return fmt.Errorf("consume %s: %w", cfg.ConsumerName, err)
		}

		s.consumers = append(s.consumers, consumerContext)
		log.Printf("INFO: subscribed to %s (consumer=%s)", cfg.Subject, cfg.ConsumerName)
	}

	return nil
}

// handle processes one ops message. Parse failures ACK so a malformed
// payload cannot loop through redelivery; engine rejections ACK too,
// because an underflow or authorization verdict is an outcome, not a
// transient fault. Callers that want a retry resubmit.
func (s *Subscriber) handle(ctx context.Context, msg jetstream.Msg) {
	req, err := ParseOpRequest(msg.Subject(), msg.Data())
	if err != nil {
		log.Printf("WARN: dropping ops message on %s: %v", msg.Subject(), err)
		s.count("unknown", "parse_error")
		msg.Ack()
		return
	}

	opCtx := vault.WithCaller(ctx, s.operator)
	switch req.Op {
	case OpReconcile:
		received, opErr := s.engine.RecordTransferIn(opCtx, req.Asset)
		if opErr != nil {
			log.Printf("WARN: reconcile %s failed: %v", req.Asset, opErr)
			s.count(req.Op, "error")
		} else {
			log.Printf("INFO: reconcile %s received=%s", req.Asset, received.Dec())
			s.count(req.Op, "ok")
		}
	case OpSync:
		snapshot, opErr := s.engine.SyncBalance(opCtx, req.Asset)
		if opErr != nil {
			log.Printf("WARN: sync %s failed: %v", req.Asset, opErr)
			s.count(req.Op, "error")
		} else {
			log.Printf("INFO: sync %s snapshot=%s", req.Asset, snapshot.Dec())
			s.count(req.Op, "ok")
		}
	}
	msg.Ack()
}

func (s *Subscriber) count(op, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.OpsRequests.WithLabelValues(op, result).Inc()
}

// EnsureOpsStream creates the keeper request stream.
func EnsureOpsStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "VAULT_OPS",
		Subjects:  []string{"vault.ops.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create ops stream: %w", err)
	}
	log.Println("INFO: ensured ops stream VAULT_OPS")
	return nil
}

// Stop gracefully stops all consumers.
func (s *Subscriber) Stop() {
	for _, cc := range s.consumers {
		cc.Stop()
	}
	log.Println("INFO: NATS subscribers stopped")
}

// ConnectNATS establishes a NATS connection and returns a JetStream context.
func ConnectNATS(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Printf("WARN: NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Println("INFO: NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	return nc, js, nil
}
