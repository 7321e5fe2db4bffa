package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/cart-engine/internal/domain"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBytes = 10 << 20 // 10MB

// HTTPFetcher reads the product list from the catalog service.
// Repeated failures open a circuit breaker so a dead catalog fails fast.
type HTTPFetcher struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]domain.CatalogEntry]
	logger  *zap.Logger
}

func NewHTTPFetcher(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("catalog.http")

	settings := gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &HTTPFetcher{
		url: strings.TrimRight(baseURL, "/") + "/products",
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: gobreaker.NewCircuitBreaker[[]domain.CatalogEntry](settings),
		logger:  logger,
	}
}

func (f *HTTPFetcher) FetchProducts(ctx context.Context) ([]domain.CatalogEntry, error) {
	entries, err := f.breaker.Execute(func() ([]domain.CatalogEntry, error) {
		return f.fetch(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("catalog unavailable: %w", err)
	}
	return entries, err
}

func (f *HTTPFetcher) fetch(ctx context.Context) ([]domain.CatalogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}

	entries, err := ParseSnapshot(body)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("catalog fetched", zap.Int("products", len(entries)))
	return entries, nil
}
