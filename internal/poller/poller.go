package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_cart/cart-engine/internal/cart"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var ErrInvalidEvent = errors.New("invalid order event")

// OrderCreated is published once an order has been placed from a cart.
type OrderCreated struct {
	OrderID string `json:"order_id"`
	CartKey string `json:"cart_key"`
}

// Poller consumes order-created events and empties the matching cart.
type Poller struct {
	store  *cart.Store
	reader *kafka.Reader
	logger *zap.Logger
}

func NewPoller(store *cart.Store, topic, groupID string, logger *zap.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{store: store, reader: reader, logger: logger.Named("poller")}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		p.readAndClearCart(ctx)
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) readAndClearCart(ctx context.Context) {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("error reading message", zap.Error(err))
		}
		return
	}

	if err := p.handleMessage(ctx, m.Value); err != nil {
		p.logger.Warn("skipping order event",
			zap.Int64("offset", m.Offset),
			zap.Error(err))
	}
}

// handleMessage clears the cart when the event names it. Events for other
// carts are ignored.
func (p *Poller) handleMessage(ctx context.Context, value []byte) error {
	var event OrderCreated
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	key := strings.TrimSpace(event.CartKey)
	if key == "" {
		return fmt.Errorf("%w: missing cart_key", ErrInvalidEvent)
	}
	if key != p.store.Key() {
		return nil
	}

	if err := p.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	p.logger.Info("cart cleared after order",
		zap.String("order_id", event.OrderID),
		zap.String("cart_key", key))
	return nil
}
