package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"checkout-service/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	topic string
	body  []byte
	attrs map[string]string
	err   error
}

func (f *fakeSNS) Publish(ctx context.Context, topicArn string, message []byte, attrs map[string]string) error {
	f.topic, f.body, f.attrs = topicArn, message, attrs
	return f.err
}

func sampleEvent() models.PaymentEvent {
	return models.PaymentEvent{
		Type:          TypePaymentSucceeded,
		AttemptID:     "att-1",
		OrderID:       "ord-1",
		UserID:        "user-1",
		Provider:      "razorpay",
		TransactionID: "pay_123",
		Amount:        50000,
		Currency:      "INR",
		Timestamp:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSNSPublisher(t *testing.T) {
	fake := &fakeSNS{}
	p := NewSNSPublisher(fake, "arn:aws:sns:eu-west-2:000000000000:payment-events")

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, "arn:aws:sns:eu-west-2:000000000000:payment-events", fake.topic)
	assert.Equal(t, map[string]string{"event_type": TypePaymentSucceeded}, fake.attrs)

	var got models.PaymentEvent
	require.NoError(t, json.Unmarshal(fake.body, &got))
	assert.Equal(t, sampleEvent(), got)

	fake.err = errors.New("down")
	assert.EqualError(t, p.Publish(context.Background(), sampleEvent()), "down")
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, topic: "payment.events"}

	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "user-1", string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, TypePaymentSucceeded, string(w.msgs[0].Headers[0].Value))

	w.err = errors.New("broker unavailable")
	err := p.Publish(context.Background(), sampleEvent())
	assert.ErrorContains(t, err, "kafka publish to payment.events failed")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), sampleEvent()))
	assert.NoError(t, p.Close())
}
