package broker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBroker() *Broker {
	fixed := time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)
	return &Broker{exchange: "test-exchange", url: "amqp://localhost", now: func() time.Time { return fixed }}
}

func TestEnvelope(t *testing.T) {
	type winner struct {
		RaffleID string `json:"raffleId"`
		Number   int    `json:"number"`
	}
	b := newTestBroker()

	msg, err := b.envelope(winner{RaffleID: "r1", Number: 42})
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, b.now(), msg.Timestamp)
	_, err = uuid.Parse(msg.MessageId)
	assert.NoError(t, err)

	var decoded winner
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, winner{RaffleID: "r1", Number: 42}, decoded)
}

func TestEnvelopeUniqueIDs(t *testing.T) {
	b := newTestBroker()
	first, err := b.envelope("a")
	require.NoError(t, err)
	second, err := b.envelope("a")
	require.NoError(t, err)
	assert.NotEqual(t, first.MessageId, second.MessageId)
}

func TestEnvelopeRejectsUnencodable(t *testing.T) {
	_, err := newTestBroker().envelope(make(chan int))
	assert.Error(t, err)
}

func TestCloseWithoutConnection(t *testing.T) {
	assert.NoError(t, newTestBroker().Close())
}
