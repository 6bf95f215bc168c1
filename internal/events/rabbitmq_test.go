package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/furima/checkout/internal/clock"
	"github.com/furima/checkout/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPublish struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	published []recordedPublish
	err       error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, recordedPublish{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestRabbitPublisher_OrderPlaced(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	ch := &fakeChannel{}
	pub := NewRabbitPublisher(ch, clock.NewFixed(now))

	order := domain.Order{ID: "order-1", ItemID: "item-1", BuyerID: "buyer-1", ChargeID: "ch_1", CreatedAt: now}
	require.NoError(t, pub.PublishOrderPlaced(context.Background(), order, 1000))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, ExchangeName, got.exchange)
	assert.Equal(t, RoutingOrderPlaced, got.key)
	assert.Equal(t, "order-1", got.msg.MessageId)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)

	var ev OrderPlaced
	require.NoError(t, json.Unmarshal(got.msg.Body, &ev))
	assert.Equal(t, int64(1000), ev.Amount)
	assert.Equal(t, "jpy", ev.Currency)
	assert.Equal(t, "ch_1", ev.ChargeID)
}

func TestRabbitPublisher_ChargeEscalation(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	pub := NewRabbitPublisher(ch, clock.NewFixed(time.Now()))

	err := pub.PublishChargeEscalation(context.Background(), &domain.UncommittedChargeError{
		ItemID:   "item-1",
		BuyerID:  "buyer-2",
		ChargeID: "ch_lost",
		Err:      domain.ErrOrderConflict,
	})
	require.NoError(t, err)
	require.Len(t, ch.published, 1)
	assert.Equal(t, RoutingChargeEscalation, ch.published[0].key)

	var ev ChargeEscalation
	require.NoError(t, json.Unmarshal(ch.published[0].msg.Body, &ev))
	assert.Equal(t, domain.OutcomeOrderConflict, ev.Outcome)
	assert.Equal(t, "ch_lost", ev.ChargeID)
}

func TestRabbitPublisher_WrapsChannelError(t *testing.T) {
	t.Parallel()

	boom := errors.New("channel closed")
	pub := NewRabbitPublisher(&fakeChannel{err: boom}, clock.NewSystem())
	err := pub.PublishOrderPlaced(context.Background(), domain.Order{ID: "order-1"}, 1000)
	assert.ErrorIs(t, err, boom)
}
