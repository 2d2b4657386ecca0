/*
store.go - Storage interfaces for lots and the order ledger

PURPOSE:
  Defines the persistence boundary the engine and service work against.
  One Store owns BOTH the lot pool and the order ledger so that Reset can
  clear them together; clearing one without the other would break the
  cross-entity invariant (total consumed quantity per SKU == total allocated
  quantity recorded across all orders).

MUTATION RULES:
  - Lots: created by AddLot, consumed in place during allocation (SaveLot
    persists the new QuantityUsed), never deleted individually
  - Orders: append-only; no update or delete of historical orders
  - Reset is the ONLY destructive operation and clears everything atomically

CONCURRENCY:
  WithTx is the single mutual-exclusion domain required for allocation. The
  full read-select-mutate-append sequence for one order runs inside one
  WithTx call, so two concurrent orders can never observe the same available
  quantity on a lot and jointly overdraw it.

SEE ALSO:
  - store/memory.go: In-memory implementation (tests/dev)
  - ../store/sqlite/sqlite.go: SQLite-backed implementation
*/
package allocation

import "context"

// LotStore is the read/consume surface the allocation pass needs.
type LotStore interface {
	// AddLot registers a newly received lot. Insertion order is preserved
	// and is the FIFO tie-break for lots sharing a received timestamp.
	AddLot(ctx context.Context, lot *Lot) error

	// ListLots returns every lot in insertion order. Callers inside WithTx
	// may consume quantity through the returned references.
	ListLots(ctx context.Context) ([]*Lot, error)

	// SaveLot persists a lot's consumption state after an allocation pass.
	// Returns ErrLotNotFound for an unknown lot ID.
	SaveLot(ctx context.Context, lot *Lot) error
}

// Store is the full storage boundary: the lot pool plus the order ledger.
type Store interface {
	LotStore

	// AppendOrder adds an order to the ledger. Append-only.
	AppendOrder(ctx context.Context, order *Order) error

	// ListOrders returns every order in submission order.
	ListOrders(ctx context.Context) ([]*Order, error)

	// Reset clears all lots and all orders together. Never one without the
	// other. Test/demo path, not a normal operational one.
	Reset(ctx context.Context) error

	// WithTx executes fn within the store's single mutation domain.
	// If fn returns an error, none of its mutations become visible.
	WithTx(ctx context.Context, fn func(Store) error) error
}
