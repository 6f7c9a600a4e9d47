package mykafka

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil)
	assert.Error(t, err)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.PublishEvent(context.Background(), "topic", "key", map[string]any{"a": 1}))
}

func TestPublishEvent_RejectsUnencodable(t *testing.T) {
	p, err := NewProducer([]string{"127.0.0.1:1"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	err = p.PublishEvent(context.Background(), "topic", "key", make(chan int))
	assert.ErrorContains(t, err, "json.Marshal")
}

func TestPublishEvent_RoundTrip(t *testing.T) {
	brokers := os.Getenv("KAFKA_TEST_BROKERS")
	if brokers == "" {
		t.Skip("KAFKA_TEST_BROKERS is required for kafka tests")
	}
	addrs := strings.Split(brokers, ",")
	topic := "test_events_" + uuid.NewString()

	p, err := NewProducer(addrs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.Eventually(t, func() bool {
		return p.PublishEvent(ctx, topic, "7", map[string]any{"type": "cart_checked_out"}) == nil
	}, 20*time.Second, 500*time.Millisecond)

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: addrs, Topic: topic})
	t.Cleanup(func() { _ = r.Close() })

	msg, err := r.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7", string(msg.Key))

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "cart_checked_out", got["type"])
}
