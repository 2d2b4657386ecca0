/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific parsing (timestamps arrive as RFC3339 strings)
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Monetary fields use decimal.Decimal end to end; they serialize as quoted
  decimal strings, so clients never see binary floating point.

SEE ALSO:
  - handlers.go: Uses these types
  - allocation/types.go: The domain model these map to
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/inventory-engine/allocation"
)

// =============================================================================
// RECEIPTS
// =============================================================================

// CreateReceiptRequest is the request to ingest an inventory receipt.
type CreateReceiptRequest struct {
	Sku              string          `json:"sku"`
	QuantityReceived int             `json:"quantity_received"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	ReceivedAtUtc    string          `json:"received_at_utc"`
	WarehouseID      string          `json:"warehouse_id"`
}

// LotDTO represents an inventory lot in API responses.
type LotDTO struct {
	ID                string          `json:"id"`
	Sku               string          `json:"sku"`
	WarehouseID       string          `json:"warehouse_id"`
	QuantityReceived  int             `json:"quantity_received"`
	QuantityUsed      int             `json:"quantity_used"`
	QuantityAvailable int             `json:"quantity_available"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	ReceivedAtUtc     string          `json:"received_at_utc"`
}

func toLotDTO(lot *allocation.Lot) LotDTO {
	return LotDTO{
		ID:                lot.ID,
		Sku:               lot.Sku,
		WarehouseID:       lot.WarehouseID,
		QuantityReceived:  lot.QuantityReceived,
		QuantityUsed:      lot.QuantityUsed,
		QuantityAvailable: lot.Available(),
		UnitCost:          lot.UnitCost,
		ReceivedAtUtc:     lot.ReceivedAt.UTC().Format(time.RFC3339),
	}
}

// =============================================================================
// ORDERS
// =============================================================================

// SubmitOrderRequest is the request to allocate an order.
type SubmitOrderRequest struct {
	OrderID string            `json:"order_id"`
	Lines   []OrderLineInput `json:"lines"`
}

// OrderLineInput is one demand line of an order submission.
type OrderLineInput struct {
	Sku                  string          `json:"sku"`
	Quantity             int             `json:"quantity"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	PreferredWarehouseID *string         `json:"preferred_warehouse_id,omitempty"`
}

// AllocationDetailDTO is one row of an allocation breakdown.
type AllocationDetailDTO struct {
	Sku          string          `json:"sku"`
	AllocatedQty int             `json:"allocated_qty"`
	WarehouseID  string          `json:"warehouse_id"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	LotID        string          `json:"lot_id,omitempty"`
}

// AllocationResultDTO is the financial breakdown returned for an order.
type AllocationResultDTO struct {
	OrderID string                `json:"order_id"`
	COGS    decimal.Decimal       `json:"cogs"`
	Revenue decimal.Decimal       `json:"revenue"`
	Margin  decimal.Decimal       `json:"margin"`
	Details []AllocationDetailDTO `json:"details"`
}

func toResultDTO(result *allocation.Result) AllocationResultDTO {
	details := make([]AllocationDetailDTO, len(result.Details))
	for i, row := range result.Details {
		details[i] = AllocationDetailDTO{
			Sku:          row.Sku,
			AllocatedQty: row.AllocatedQty,
			WarehouseID:  row.WarehouseID,
			UnitCost:     row.UnitCost,
			LotID:        row.LotID,
		}
	}
	return AllocationResultDTO{
		OrderID: result.OrderID,
		COGS:    result.COGS,
		Revenue: result.Revenue,
		Margin:  result.Margin,
		Details: details,
	}
}

// OrderDTO is one ledger entry: the original demand plus its allocation.
type OrderDTO struct {
	OrderID    string              `json:"order_id"`
	Lines      []OrderLineInput    `json:"lines"`
	Allocation AllocationResultDTO `json:"allocation"`
	CreatedAt  string              `json:"created_at"`
}

func toOrderDTO(order *allocation.Order) OrderDTO {
	lines := make([]OrderLineInput, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = OrderLineInput{
			Sku:                  l.Sku,
			Quantity:             l.Quantity,
			UnitPrice:            l.UnitPrice,
			PreferredWarehouseID: l.PreferredWarehouseID,
		}
	}
	return OrderDTO{
		OrderID:    order.OrderID,
		Lines:      lines,
		Allocation: toResultDTO(order.Allocation),
		CreatedAt:  order.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the JSON shape of every API error.
type ErrorResponse struct {
	Error   string                  `json:"error"`
	Details string                  `json:"details,omitempty"`
	Fields  []allocation.FieldError `json:"fields,omitempty"`
}
