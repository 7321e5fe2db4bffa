package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/cart-engine/internal/cart"
	"github.com/fjod/go_cart/cart-engine/internal/domain"
	"github.com/fjod/go_cart/cart-engine/internal/storage"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap"
	"gotest.tools/v3/assert"
)

func setupStore(t *testing.T, key string) *cart.Store {
	t.Helper()
	store := cart.NewStore(context.Background(), storage.NewMemoryStorage(), key)
	require.NoError(t, store.Add(context.Background(), domain.LineItemInput{
		ProductID: "1",
		Name:      "Mug",
		Price:     decimal.NewFromInt(100),
		Qty:       2,
	}))
	return store
}

func newTestPoller(store *cart.Store) *Poller {
	// reader is never used by handleMessage
	return &Poller{store: store, reader: nil, logger: zap.NewNop()}
}

func TestHandleMessage_ClearsMatchingCart(t *testing.T) {
	store := setupStore(t, "shopper-1")
	p := newTestPoller(store)

	err := p.handleMessage(context.Background(), []byte(`{"order_id":"o-1","cart_key":"shopper-1"}`))
	require.NoError(t, err)

	assert.Equal(t, len(store.Items()), 0)
}

func TestHandleMessage_IgnoresOtherCarts(t *testing.T) {
	store := setupStore(t, "shopper-1")
	p := newTestPoller(store)
	version := store.Version()

	err := p.handleMessage(context.Background(), []byte(`{"order_id":"o-1","cart_key":"shopper-2"}`))
	require.NoError(t, err)

	assert.Equal(t, len(store.Items()), 1)
	assert.Equal(t, store.Version(), version)
}

func TestHandleMessage_InvalidPayload(t *testing.T) {
	store := setupStore(t, "shopper-1")
	p := newTestPoller(store)

	for _, payload := range []string{`not json`, `{"order_id":"o-1"}`, `{"cart_key":"  "}`} {
		err := p.handleMessage(context.Background(), []byte(payload))
		assert.ErrorIs(t, err, ErrInvalidEvent, payload)
	}
	assert.Equal(t, len(store.Items()), 1)
}

func setupKafka(t *testing.T) string {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	testcontainers.CleanupContainer(t, kafkaContainer)
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	return brokers[0]
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_Run(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka integration test in short mode")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := setupKafka(t)

	const topic = "order-created"
	createTopic(t, broker, topic)

	store := setupStore(t, "shopper-1")
	p := NewPoller(store, topic, "cart-engine-test", nil, broker)
	defer p.Close()
	go p.Run(ctx)

	writer := &kafkaGo.Writer{
		Addr:     kafkaGo.TCP(broker),
		Topic:    topic,
		Balancer: &kafkaGo.LeastBytes{},
	}
	defer writer.Close()

	value, err := json.Marshal(OrderCreated{OrderID: "o-42", CartKey: "shopper-1"})
	require.NoError(t, err)
	require.NoError(t, writer.WriteMessages(ctx, kafkaGo.Message{Value: value}))

	require.Eventually(t, func() bool {
		return len(store.Items()) == 0
	}, 30*time.Second, 200*time.Millisecond)
}
