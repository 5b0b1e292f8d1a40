package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

type fakeAcknowledger struct {
	acked   int
	nacked  int
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked++
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.nacked++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return nil
}

func delivery(ack *fakeAcknowledger, body string) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(body)}
}

func TestHandleDelivery_SuccessAcks(t *testing.T) {
	ack := &fakeAcknowledger{}
	var got string

	handleDelivery(context.Background(), delivery(ack, `{"a":1}`), func(ctx context.Context, body []byte) error {
		got = string(body)
		return nil
	}, time.Hour)

	assert.Equal(t, `{"a":1}`, got)
	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)
}

func TestHandleDelivery_TransientErrorRequeues(t *testing.T) {
	ack := &fakeAcknowledger{}

	handleDelivery(context.Background(), delivery(ack, "{}"), func(ctx context.Context, body []byte) error {
		return errors.New("warehouse timeout")
	}, 0)

	assert.Zero(t, ack.acked)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestHandleDelivery_PermanentErrorAcks(t *testing.T) {
	ack := &fakeAcknowledger{}

	handleDelivery(context.Background(), delivery(ack, "not json"), func(ctx context.Context, body []byte) error {
		return Permanent(errors.New("malformed body"))
	}, time.Hour)

	assert.Equal(t, 1, ack.acked)
	assert.Zero(t, ack.nacked)
}

func TestHandleDelivery_TransientErrorWaitsBeforeRequeue(t *testing.T) {
	ack := &fakeAcknowledger{}
	delay := 50 * time.Millisecond

	start := time.Now()
	handleDelivery(context.Background(), delivery(ack, "{}"), func(ctx context.Context, body []byte) error {
		return errors.New("payroll run already in progress")
	}, delay)

	assert.GreaterOrEqual(t, time.Since(start), delay)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestHandleDelivery_ShutdownCutsRetryWaitShort(t *testing.T) {
	ack := &fakeAcknowledger{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	handleDelivery(ctx, delivery(ack, "{}"), func(ctx context.Context, body []byte) error {
		return errors.New("redis unavailable")
	}, time.Hour)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestConsumer_PingClosed(t *testing.T) {
	c := &Consumer{}
	assert.True(t, c.IsClosed())
	assert.Error(t, c.Ping(context.Background()))
}

func TestPermanent(t *testing.T) {
	assert.NoError(t, Permanent(nil))

	cause := errors.New("bad period")
	err := Permanent(cause)
	assert.ErrorIs(t, err, ErrPermanent)
	assert.ErrorIs(t, err, cause)
}
