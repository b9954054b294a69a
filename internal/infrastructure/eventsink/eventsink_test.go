package eventsink

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
)

type fakeConn struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, m)
	return nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func capturedEvent(t *testing.T) domorder.OrderCapturedEvent {
	t.Helper()
	o, err := domorder.Created("5O190127TN364715T")
	require.NoError(t, err)
	require.NoError(t, o.Captured("COMPLETED"))
	return domorder.NewOrderCapturedEvent(o)
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATSPublisher(conn, "minishop", nil)
	evt := capturedEvent(t)

	require.NoError(t, p.Publish(context.Background(), evt))

	require.Len(t, conn.msgs, 1)
	msg := conn.msgs[0]
	assert.Equal(t, "minishop.order.captured", msg.Subject)
	assert.Equal(t, "order.captured", msg.Header.Get(headerEventName))

	var decoded domorder.OrderCapturedEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, evt.OrderID, decoded.OrderID)
	assert.Equal(t, "COMPLETED", decoded.CaptureStatus)
}

func TestNATSPublisher_PublishError(t *testing.T) {
	p := NewNATSPublisher(&fakeConn{err: nats.ErrConnectionClosed}, "", nil)

	err := p.Publish(context.Background(), capturedEvent(t))
	assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	assert.Equal(t, "order.captured", p.Subject(capturedEvent(t)))
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, nil)
	evt := capturedEvent(t)

	require.NoError(t, p.Publish(context.Background(), evt))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "5O190127TN364715T", string(msg.Key))
	require.NotEmpty(t, msg.Headers)
	assert.Equal(t, headerEventName, msg.Headers[0].Key)
	assert.Equal(t, "order.captured", string(msg.Headers[0].Value))
	assert.Contains(t, string(msg.Value), `"order_id":"5O190127TN364715T"`)
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	p := NewKafkaPublisher(&fakeWriter{err: errors.New("broker down")}, nil)

	err := p.Publish(context.Background(), capturedEvent(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "minishop.order.captured")
	assert.Equal(t, "minishop.order.captured", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
