package eventsink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes each event as one JSON message keyed by EventKey, so
// all events of an order land on the same partition.
type KafkaPublisher struct {
	writer  MessageWriter
	log     observability.Logger
	counter observability.Counter
}

// NewKafkaWriter returns a writer hashing message keys onto partitions of topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(writer MessageWriter, tel observability.Observability) *KafkaPublisher {
	if tel == nil {
		tel = observability.Nop()
	}
	return &KafkaPublisher{
		writer:  writer,
		log:     tel.Logger().With(observability.F("component", "kafka_publisher")),
		counter: tel.Metrics().Counter(observability.MEventsPublished),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		p.count(e, "error")
		return fmt.Errorf("eventsink: encode %s: %w", e.EventName(), err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := []kafka.Header{{Key: headerEventName, Value: []byte(e.EventName())}}
	for _, k := range carrier.Keys() {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(carrier.Get(k))})
	}

	msg := kafka.Message{
		Key:     []byte(e.EventKey()),
		Value:   data,
		Headers: headers,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.count(e, "error")
		logctx.FromOr(ctx, p.log).Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err),
		)
		return fmt.Errorf("eventsink: kafka write %s: %w", e.EventName(), err)
	}
	p.count(e, "success")
	return nil
}

func (p *KafkaPublisher) count(e domoutbox.Event, outcome string) {
	p.counter.Add(1,
		observability.L("sink", "kafka"),
		observability.L("event", e.EventName()),
		observability.L("outcome", outcome),
	)
}
