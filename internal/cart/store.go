package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/cart-engine/internal/codec"
	"github.com/fjod/go_cart/cart-engine/internal/domain"
	"github.com/fjod/go_cart/cart-engine/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrInvalidItem   = errors.New("invalid line item")
	ErrStaleSnapshot = errors.New("cart changed since snapshot")
)

// Cause tells subscribers why the cart changed.
type Cause string

const (
	CauseCommand   Cause = "command"
	CauseReconcile Cause = "reconcile"
)

// Event is delivered to subscribers once per accepted state transition.
type Event struct {
	Items   []domain.LineItem
	Version uint64
	Cause   Cause
	Command string
}

// Snapshot is a consistent copy of the cart at a given version.
type Snapshot struct {
	Items   []domain.LineItem
	Version uint64
}

type subscriber struct {
	id int
	fn func(Event)
}

// Store owns the cart. All commands go through one mutex so read-modify-write
// never interleaves. Every accepted transition bumps the version, is written
// to storage, then announced to subscribers in order.
type Store struct {
	mu      sync.Mutex
	items   []domain.LineItem
	version uint64

	// held while delivering events, taken before mu is released so that
	// deliveries keep the order of transitions
	notifyMu    sync.Mutex
	subscribers []subscriber
	nextSubID   int
	subMu       sync.Mutex

	storage      storage.Storage
	key          string
	writeTimeout time.Duration
	validate     *validator.Validate
	logger       *zap.Logger
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l.Named("cart.store")
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.writeTimeout = d
	}
}

// NewStore loads the cart stored under key. A missing, unreadable or corrupt
// blob yields an empty cart, never an error.
func NewStore(ctx context.Context, st storage.Storage, key string, opts ...Option) *Store {
	s := &Store{
		items:        []domain.LineItem{},
		storage:      st,
		key:          key,
		writeTimeout: 2 * time.Second,
		validate:     validator.New(),
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []domain.LineItem {
	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return []domain.LineItem{}
	}
	if err != nil {
		s.logger.Warn("cart storage read failed, starting empty", zap.String("key", s.key), zap.Error(err))
		return []domain.LineItem{}
	}

	items, dropped, err := codec.DecodeLenient(data)
	if err != nil {
		s.logger.Warn("stored cart is corrupt, starting empty", zap.String("key", s.key), zap.Error(err))
		return []domain.LineItem{}
	}
	if dropped > 0 {
		s.logger.Warn("dropped invalid entries from stored cart",
			zap.String("key", s.key),
			zap.Int("dropped", dropped),
			zap.Int("kept", len(items)))
	}
	return items
}

// Add validates the input and applies an ADD command.
func (s *Store) Add(ctx context.Context, item domain.LineItemInput) error {
	return s.Dispatch(ctx, AddItem{Item: item})
}

func (s *Store) UpdateQty(ctx context.Context, productID domain.ProductID, qty int) error {
	return s.Dispatch(ctx, UpdateQty{ProductID: productID, Qty: qty})
}

func (s *Store) Remove(ctx context.Context, productID domain.ProductID) error {
	return s.Dispatch(ctx, RemoveItem{ProductID: productID})
}

func (s *Store) Clear(ctx context.Context) error {
	return s.Dispatch(ctx, Clear{})
}

// Dispatch applies cmd. The only errors are boundary validation failures;
// persistence problems are logged and the in-memory state still changes.
func (s *Store) Dispatch(ctx context.Context, cmd Command) error {
	cmd, err := s.normalizeCommand(cmd)
	if err != nil {
		return err
	}

	s.mu.Lock()
	next, changed := Reduce(s.items, cmd)
	if !changed {
		s.mu.Unlock()
		return nil
	}
	s.publish(s.commit(ctx, next, CauseCommand, cmd.Name()))
	return nil
}

// ReplaceIfCurrent swaps the whole item list in one transition, provided the
// cart is still at version. A structurally equal list is a no-op.
func (s *Store) ReplaceIfCurrent(ctx context.Context, version uint64, items []domain.LineItem) (bool, error) {
	s.mu.Lock()
	if s.version != version {
		current := s.version
		s.mu.Unlock()
		return false, fmt.Errorf("%w: snapshot version %d, current %d", ErrStaleSnapshot, version, current)
	}
	if domain.ItemsEqual(s.items, items) {
		s.mu.Unlock()
		return false, nil
	}
	s.publish(s.commit(ctx, domain.CloneItems(items), CauseReconcile, ""))
	return true, nil
}

// commit must be called with mu held. It returns with mu released and
// notifyMu held; publish releases it.
func (s *Store) commit(ctx context.Context, next []domain.LineItem, cause Cause, command string) Event {
	s.items = next
	s.version++
	s.persist(ctx, next)

	ev := Event{
		Items:   domain.CloneItems(next),
		Version: s.version,
		Cause:   cause,
		Command: command,
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	return ev
}

// persist writes items under the store key. An empty cart removes the key,
// which loads back as an empty cart.
func (s *Store) persist(ctx context.Context, items []domain.LineItem) {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
	defer cancel()

	if len(items) == 0 {
		if err := s.storage.Delete(writeCtx, s.key); err != nil {
			s.logger.Warn("cart delete failed, keeping in-memory state", zap.String("key", s.key), zap.Error(err))
		}
		return
	}

	data, err := codec.Encode(items)
	if err != nil {
		s.logger.Error("cart encode failed", zap.Error(err))
		return
	}
	if err := s.storage.Set(writeCtx, s.key, data); err != nil {
		s.logger.Warn("cart write failed, keeping in-memory state", zap.String("key", s.key), zap.Error(err))
	}
}

func (s *Store) publish(ev Event) {
	defer s.notifyMu.Unlock()

	s.subMu.Lock()
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}

// Subscribe registers fn for change events and returns a function that removes it.
// fn runs synchronously and must not dispatch commands on this store.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subscribers = append(s.subscribers, subscriber{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subscribers {
			if sub.id == id {
				s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.items)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Items: domain.CloneItems(s.items), Version: s.version}
}

func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Subtotal(s.items)
}

func (s *Store) Key() string {
	return s.key
}

// normalizeCommand validates cmd and returns it with product ids trimmed.
func (s *Store) normalizeCommand(cmd Command) (Command, error) {
	switch c := cmd.(type) {
	case AddItem:
		c.Item.ProductID = c.Item.ProductID.Normalize()
		if err := s.validate.Struct(c.Item); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidItem, err)
		}
		if c.Item.Price.IsNegative() {
			return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
		}
		return c, nil
	case UpdateQty:
		c.ProductID = c.ProductID.Normalize()
		if c.ProductID.IsZero() {
			return nil, fmt.Errorf("%w: product_id is required", ErrInvalidItem)
		}
		return c, nil
	case RemoveItem:
		c.ProductID = c.ProductID.Normalize()
		if c.ProductID.IsZero() {
			return nil, fmt.Errorf("%w: product_id is required", ErrInvalidItem)
		}
		return c, nil
	case Clear:
		return c, nil
	case nil:
		return nil, fmt.Errorf("%w: nil command", ErrInvalidItem)
	}
	return cmd, nil
}
