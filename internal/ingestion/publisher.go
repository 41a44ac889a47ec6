package ingestion

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"TokenVault/internal/event"
	"TokenVault/internal/observability"
)

// Publisher sends committed vault operation events to NATS JetStream for
// downstream consumers. Subjects follow the pattern
// vault.events.{kind}.{asset}; the envelope's event id doubles as the
// Nats-Msg-Id, so a retried publish deduplicates server-side. Each
// message also carries the envelope digest so consumers can verify it
// arrived unaltered.
type Publisher struct {
	js      jetstream.JetStream
	metrics *observability.Metrics
}

func NewPublisher(js jetstream.JetStream, metrics *observability.Metrics) *Publisher {
	return &Publisher{js: js, metrics: metrics}
}

// Publish sends one envelope. The engine treats failures as non-fatal:
// the state change already committed by the time an event goes out.
func (p *Publisher) Publish(ctx context.Context, env event.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		p.observe(env, err)
		return fmt.Errorf("marshal event: %w", err)
	}

	digest := env.Digest()
	msg := &nats.Msg{
		Subject: fmt.Sprintf("vault.events.%s.%s", env.Kind, SubjectToken(env.Asset)),
		Data:    data,
		Header: nats.Header{
			"Vault-Event-Digest": []string{hex.EncodeToString(digest[:])},
		},
	}

	_, err = p.js.PublishMsg(ctx, msg, jetstream.WithMsgID(env.EventID.String()))
	p.observe(env, err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return nil
}

func (p *Publisher) observe(env event.Envelope, err error) {
	if p.metrics == nil {
		return
	}
	if err != nil {
		p.metrics.EventPublishErrors.Inc()
		return
	}
	p.metrics.EventsPublished.WithLabelValues(env.Kind.String()).Inc()
}

// SubjectToken makes an asset id safe to embed as a single NATS subject
// token. Dots, wildcards, and whitespace would change subject semantics.
func SubjectToken(asset string) string {
	if asset == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, asset)
}

// EnsureEventStream creates the outbound events stream.
func EnsureEventStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      "VAULT_EVENTS",
		Subjects:  []string{"vault.events.>"},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    72 * time.Hour,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("create events stream: %w", err)
	}
	log.Println("INFO: ensured events stream VAULT_EVENTS")
	return nil
}
