package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/cart-engine/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLSource reads a local mirror of the catalog from SQLite.
type SQLSource struct {
	db *sql.DB
}

func NewSQLSource(dbPath string) (*SQLSource, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLSource{db: db}, nil
}

func (s *SQLSource) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (s *SQLSource) FetchProducts(ctx context.Context) ([]domain.CatalogEntry, error) {
	query := `
		SELECT id, price, effective_price, stock
		FROM products
		ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		var (
			id        string
			price     string
			effective sql.NullString
			stock     int64
		)
		if err := rows.Scan(&id, &price, &effective, &stock); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}

		entry := domain.CatalogEntry{
			ProductID: domain.ProductID(id),
			InStock:   stock > 0,
		}
		if entry.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("product %s: bad price %q: %w", id, price, err)
		}
		if effective.Valid {
			p, err := decimal.NewFromString(effective.String)
			if err != nil {
				return nil, fmt.Errorf("product %s: bad effective price %q: %w", id, effective.String, err)
			}
			entry.EffectivePrice = &p
		}
		if err := entry.CheckPrices(); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	return entries, nil
}

// UpsertProduct writes one catalog row. Used to seed and refresh the mirror.
func (s *SQLSource) UpsertProduct(ctx context.Context, e domain.CatalogEntry, stock int64) error {
	return upsertProduct(ctx, s.db, e, stock)
}

// Sync replaces the mirror with the upstream catalog in one transaction.
// An empty or failed upstream read leaves the mirror as it was.
func (s *SQLSource) Sync(ctx context.Context, upstream Fetcher) (int, error) {
	entries, err := upstream.FetchProducts(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch upstream catalog: %w", err)
	}
	if len(entries) == 0 {
		return 0, ErrEmptyCatalog
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM products`); err != nil {
		return 0, fmt.Errorf("failed to clear mirror: %w", err)
	}
	for _, e := range entries {
		// the upstream only tells in or out of stock
		var stock int64
		if e.InStock {
			stock = 1
		}
		if err := upsertProduct(ctx, tx, e, stock); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit mirror sync: %w", err)
	}
	return len(entries), nil
}

// RunSync calls Sync every interval until ctx is done.
func (s *SQLSource) RunSync(ctx context.Context, upstream Fetcher, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("catalog.sync")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Sync(ctx, upstream)
			if err != nil {
				logger.Warn("catalog mirror sync failed", zap.Error(err))
				continue
			}
			logger.Debug("catalog mirror synced", zap.Int("products", n))
		}
	}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertProduct(ctx context.Context, db execer, e domain.CatalogEntry, stock int64) error {
	if err := e.CheckPrices(); err != nil {
		return err
	}
	id := e.ProductID.Normalize()
	if id.IsZero() {
		return fmt.Errorf("failed to upsert product: empty id")
	}

	var effective sql.NullString
	if e.EffectivePrice != nil {
		effective = sql.NullString{String: e.EffectivePrice.String(), Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO products (id, price, effective_price, stock)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT(id) DO UPDATE SET
			price = excluded.price,
			effective_price = excluded.effective_price,
			stock = excluded.stock
	`, id.String(), e.Price.String(), effective, stock)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", id, err)
	}
	return nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}
