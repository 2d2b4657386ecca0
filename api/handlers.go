/*
handlers.go - HTTP API handlers for the allocation system

PURPOSE:
  Exposes the allocation engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the allocation service.

ENDPOINTS:
  Receipts:
    POST   /api/receipts   Ingest an inventory receipt (creates a lot)
    GET    /api/receipts   List all lots with availability

  Orders:
    POST   /api/orders     Allocate an order (FIFO), returns the breakdown
    GET    /api/orders     Ledger read-back in submission order

  Admin:
    POST   /api/clear      Atomically reset all lots and orders

REQUEST FLOW:
  1. Parse HTTP request
  2. Delegate to allocation.Service (which validates before touching state)
  3. Serialize response
  4. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors (with per-field reasons), malformed JSON
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - allocation/service.go: The logic these handlers wrap
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/warp/inventory-engine/allocation"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *allocation.Service
}

// NewHandler creates a new handler over the given service.
func NewHandler(service *allocation.Service) *Handler {
	return &Handler{Service: service}
}

// =============================================================================
// RECEIPT HANDLERS
// =============================================================================

// CreateReceipt ingests an inventory receipt and returns the created lot.
func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req CreateReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	receivedAt, err := time.Parse(time.RFC3339, req.ReceivedAtUtc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid received_at_utc format (use RFC3339)", err)
		return
	}

	lot, err := h.Service.IngestReceipt(r.Context(), allocation.ReceiptRequest{
		Sku:              req.Sku,
		QuantityReceived: req.QuantityReceived,
		UnitCost:         req.UnitCost,
		ReceivedAt:       receivedAt,
		WarehouseID:      req.WarehouseID,
	})
	if err != nil {
		writeServiceError(w, "Failed to ingest receipt", err)
		return
	}

	writeJSON(w, http.StatusCreated, toLotDTO(lot))
}

// ListReceipts returns every lot with its current availability.
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	lots, err := h.Service.ListLots(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list lots", err)
		return
	}

	dtos := make([]LotDTO, len(lots))
	for i, lot := range lots {
		dtos[i] = toLotDTO(lot)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// AllocateOrder runs one allocation pass and returns the financial breakdown.
func (h *Handler) AllocateOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	lines := make([]allocation.DemandLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = allocation.DemandLine{
			Sku:                  l.Sku,
			Quantity:             l.Quantity,
			UnitPrice:            l.UnitPrice,
			PreferredWarehouseID: l.PreferredWarehouseID,
		}
	}

	result, err := h.Service.SubmitOrder(r.Context(), allocation.OrderRequest{
		OrderID: req.OrderID,
		Lines:   lines,
	})
	if err != nil {
		writeServiceError(w, "Failed to allocate order", err)
		return
	}

	writeJSON(w, http.StatusOK, toResultDTO(result))
}

// ListOrders returns the order ledger in submission order.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Service.ListOrders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders", err)
		return
	}

	dtos := make([]OrderDTO, len(orders))
	for i, order := range orders {
		dtos[i] = toOrderDTO(order)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// Clear atomically resets all lots and orders.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset state", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeServiceError maps service failures to HTTP: validation failures
// become 400 with the per-field reasons, everything else is a 500.
func writeServiceError(w http.ResponseWriter, message string, err error) {
	var verr *allocation.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  "Validation failed",
			Fields: verr.Fields,
		})
		return
	}
	writeError(w, http.StatusInternalServerError, message, err)
}
