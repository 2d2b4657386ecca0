/*
Package allocation provides the core FIFO inventory allocation engine.

PURPOSE:
  This package contains the domain types and the algorithm for fulfilling
  customer orders against a time-ordered pool of inventory lots. Demand is
  matched against the oldest available stock first, producing a deterministic
  financial breakdown per order: cost of goods sold, revenue, and margin.

KEY CONCEPTS IN THIS FILE (types.go):
  - Lot: One batch of inventory received at a given time, warehouse, and cost
  - DemandLine: One line of an order (SKU, quantity, sale price)
  - DetailRow: One slice of an allocation (which lot, how much, at what cost)
  - Result: The financial breakdown for a whole order
  - Order: A submitted order plus its allocation, as retained by the ledger

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money to avoid floating-point drift
  2. In-place consumption: Lots are owned by the store; the engine mutates
     QuantityUsed through the *Lot reference, never via copy-then-writeback
  3. Immutability of results: DetailRow, Result, and Order never change after
     the allocation pass that produced them
  4. Auditability: Orders retain the original demand lines and every detail
     row carries the ID of the lot it consumed

USAGE:
  lots, _ := store.ListLots(ctx)
  result := allocation.Allocate(req, lots)
  // result.COGS, result.Revenue, result.Margin, result.Details

SEE ALSO:
  - engine.go: The allocation algorithm
  - service.go: Caller-facing wrapper (validation, persistence, ledger append)
  - store.go: Store interface definitions
*/
package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// BackorderWarehouse is the sentinel warehouse ID on a detail row recording
// demand that could not be fulfilled from current stock.
const BackorderWarehouse = "backorder"

// =============================================================================
// LOT - One batch of received inventory
// =============================================================================

// Lot is one batch of inventory received at a point in time. Lots are owned
// by the store; the engine consumes quantity through the *Lot reference.
//
// INVARIANT: 0 <= Available() <= QuantityReceived at all times.
// QuantityUsed only ever increases, and only during an allocation pass.
type Lot struct {
	ID               string          `json:"id"`
	Sku              string          `json:"sku"`
	WarehouseID      string          `json:"warehouse_id"`
	QuantityReceived int             `json:"quantity_received"`
	QuantityUsed     int             `json:"quantity_used"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	ReceivedAt       time.Time       `json:"received_at_utc"`
}

// Available returns the quantity still open for allocation.
func (l *Lot) Available() int {
	return l.QuantityReceived - l.QuantityUsed
}

// =============================================================================
// ORDER INPUT
// =============================================================================

// DemandLine is one line of an order request. Immutable input to a single
// allocation pass; it is persisted only as part of the order it belongs to.
type DemandLine struct {
	Sku                  string          `json:"sku"`
	Quantity             int             `json:"quantity"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	PreferredWarehouseID *string         `json:"preferred_warehouse_id,omitempty"`
}

// OrderRequest is a complete order submission: an identifier plus the demand
// lines in the order the caller wants them reported. The engine never
// reorders lines.
type OrderRequest struct {
	OrderID string       `json:"order_id"`
	Lines   []DemandLine `json:"lines"`
}

// =============================================================================
// ALLOCATION OUTPUT
// =============================================================================

// DetailRow records one slice of an allocation: quantity taken from one lot
// at that lot's unit cost. A line that cannot be fully satisfied gets one
// trailing synthetic row with WarehouseID == BackorderWarehouse, zero
// quantity, and zero cost.
type DetailRow struct {
	Sku          string          `json:"sku"`
	AllocatedQty int             `json:"allocated_qty"`
	WarehouseID  string          `json:"warehouse_id"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	LotID        string          `json:"lot_id,omitempty"`
}

// Backordered reports whether this row is the synthetic unmet-demand marker.
func (r DetailRow) Backordered() bool {
	return r.WarehouseID == BackorderWarehouse
}

// Result is the financial breakdown of one order.
//
// INVARIANT: Margin = Revenue - COGS, exactly, in decimal arithmetic.
// Revenue covers only fulfilled quantity; backordered quantity contributes
// nothing to COGS or Revenue.
type Result struct {
	OrderID string          `json:"order_id"`
	COGS    decimal.Decimal `json:"cogs"`
	Revenue decimal.Decimal `json:"revenue"`
	Margin  decimal.Decimal `json:"margin"`
	Details []DetailRow     `json:"details"`
}

// =============================================================================
// ORDER - Ledger entry
// =============================================================================

// Order is the append-only ledger record of one submission: the original
// demand lines (retained for audit) plus the allocation they produced.
// Never mutated after creation.
type Order struct {
	OrderID    string       `json:"order_id"`
	Lines      []DemandLine `json:"lines"`
	Allocation *Result      `json:"allocation"`
	CreatedAt  time.Time    `json:"created_at"`
}

// =============================================================================
// RECEIPT INPUT
// =============================================================================

// ReceiptRequest is an inbound inventory receipt before it becomes a Lot.
// The service assigns the lot ID at ingestion.
type ReceiptRequest struct {
	Sku              string          `json:"sku"`
	QuantityReceived int             `json:"quantity_received"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
	ReceivedAt       time.Time       `json:"received_at_utc"`
	WarehouseID      string          `json:"warehouse_id"`
}
