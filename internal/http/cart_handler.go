package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/cart-engine/internal/cart"
	"github.com/fjod/go_cart/cart-engine/internal/domain"
	"github.com/fjod/go_cart/cart-engine/internal/reconcile"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reconciler runs one reconciliation pass on demand.
type Reconciler interface {
	Run(ctx context.Context) (reconcile.Report, error)
}

type CartHandler struct {
	store      *cart.Store
	reconciler Reconciler
	timeout    time.Duration
	logger     *zap.Logger
}

func NewCartHandler(store *cart.Store, reconciler Reconciler, timeout time.Duration, logger *zap.Logger) *CartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{
		store:      store,
		reconciler: reconciler,
		timeout:    timeout,
		logger:     logger.Named("http"),
	}
}

type UpdateQuantityRequestDTO struct {
	Qty *int `json:"qty"`
}

type CartResponse struct {
	Items    []domain.LineItem `json:"items"`
	Subtotal decimal.Decimal   `json:"subtotal"`
	Version  uint64            `json:"version"`
}

type ReconcileResponse struct {
	Cart   CartResponse     `json:"cart"`
	Report reconcile.Report `json:"report"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req domain.LineItemInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.store.Add(ctx, req); err != nil {
		h.handleStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.cartResponse())
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Qty == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "qty is required")
		return
	}

	// qty <= 0 removes the line
	if err := h.store.UpdateQty(ctx, productID, *req.Qty); err != nil {
		h.handleStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	if err := h.store.Remove(ctx, productID); err != nil {
		h.handleStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.store.Clear(ctx); err != nil {
		h.handleStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.cartResponse())
}

func (h *CartHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.reconciler.Run(ctx)
	if err != nil {
		h.logger.Warn("reconciliation failed",
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			respondError(w, http.StatusGatewayTimeout, "timeout", "catalog did not answer in time")
			return
		}
		respondError(w, http.StatusBadGateway, "catalog_unavailable", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, ReconcileResponse{
		Cart:   h.cartResponse(),
		Report: report,
	})
}

func (h *CartHandler) cartResponse() CartResponse {
	snap := h.store.Snapshot()
	return CartResponse{
		Items:    snap.Items,
		Subtotal: domain.Subtotal(snap.Items),
		Version:  snap.Version,
	}
}

func (h *CartHandler) handleStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, cart.ErrInvalidItem) {
		respondError(w, http.StatusBadRequest, "invalid_item", err.Error())
		return
	}
	h.logger.Error("cart command failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

func productIDParam(w http.ResponseWriter, r *http.Request) (domain.ProductID, bool) {
	id := domain.ProductID(strings.TrimSpace(chi.URLParam(r, "product_id")))
	if id.IsZero() {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return "", false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
