// Package eventsink publishes domain events to external brokers.
package eventsink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

const headerEventName = "Event-Name"

// MsgPublisher is the part of *nats.Conn the publisher needs.
type MsgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSPublisher publishes each event as JSON on "<prefix>.<event name>".
type NATSPublisher struct {
	conn    MsgPublisher
	prefix  string
	log     observability.Logger
	counter observability.Counter
}

// DialNATS connects with unlimited reconnects, naming the connection after the service.
func DialNATS(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url, nats.Name(name), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("eventsink: nats connect: %w", err)
	}
	return nc, nil
}

func NewNATSPublisher(conn MsgPublisher, prefix string, tel observability.Observability) *NATSPublisher {
	if tel == nil {
		tel = observability.Nop()
	}
	return &NATSPublisher{
		conn:    conn,
		prefix:  prefix,
		log:     tel.Logger().With(observability.F("component", "nats_publisher")),
		counter: tel.Metrics().Counter(observability.MEventsPublished),
	}
}

// Subject returns the subject an event is published on.
func (p *NATSPublisher) Subject(e domoutbox.Event) string {
	if p.prefix == "" {
		return e.EventName()
	}
	return p.prefix + "." + e.EventName()
}

func (p *NATSPublisher) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		p.count(e, "error")
		return fmt.Errorf("eventsink: encode %s: %w", e.EventName(), err)
	}

	msg := nats.NewMsg(p.Subject(e))
	msg.Data = data
	msg.Header.Set(headerEventName, e.EventName())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))

	if err := p.conn.PublishMsg(msg); err != nil {
		p.count(e, "error")
		logctx.FromOr(ctx, p.log).Warn("event_publish_failed",
			observability.F("subject", msg.Subject),
			observability.F("error", err),
		)
		return fmt.Errorf("eventsink: nats publish %s: %w", msg.Subject, err)
	}
	p.count(e, "success")
	return nil
}

func (p *NATSPublisher) count(e domoutbox.Event, outcome string) {
	p.counter.Add(1,
		observability.L("sink", "nats"),
		observability.L("event", e.EventName()),
		observability.L("outcome", outcome),
	)
}
