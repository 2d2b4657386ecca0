/*
service.go - Caller-facing wrapper around the engine and the store

PURPOSE:
  The transport layer talks to this service, never to the engine directly.
  The service validates requests, assigns lot IDs at ingestion, runs the
  allocation pass inside the store's mutation domain, and appends the
  resulting order to the ledger.

REQUEST FLOW (SubmitOrder):
  1. Validate the order request (reject with ValidationError before any
     state is touched)
  2. Inside Store.WithTx: read lots -> engine pass -> persist consumed
     lots -> append the order to the ledger
  3. Return the allocation result

  The whole sequence for one order runs under one WithTx call, so
  concurrent submissions against the same SKU serialize and can never
  jointly overdraw a lot. Once lots are decremented the operation is
  committed - there is no dry-run, reservation hold, or rollback path.

SEE ALSO:
  - engine.go: The allocation pass itself
  - validate.go: The checks applied before the engine is invoked
*/
package allocation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service wires validation, the engine, and the store together.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// IngestReceipt validates an inventory receipt, assigns it a lot ID, and
// adds it to the pool. Returns the created lot.
func (s *Service) IngestReceipt(ctx context.Context, req ReceiptRequest) (*Lot, error) {
	if fields := ValidateReceipt(req, s.now().UTC()); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	lot := &Lot{
		ID:               uuid.NewString(),
		Sku:              req.Sku,
		WarehouseID:      req.WarehouseID,
		QuantityReceived: req.QuantityReceived,
		QuantityUsed:     0,
		UnitCost:         req.UnitCost,
		ReceivedAt:       req.ReceivedAt.UTC(),
	}

	if err := s.store.AddLot(ctx, lot); err != nil {
		return nil, fmt.Errorf("failed to add lot: %w", err)
	}
	return lot, nil
}

// SubmitOrder validates the request, allocates stock FIFO, and appends the
// order to the ledger. The read-select-mutate-append sequence runs inside
// one store transaction.
func (s *Service) SubmitOrder(ctx context.Context, req OrderRequest) (*Result, error) {
	if fields := ValidateOrder(req); len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	var result *Result
	err := s.store.WithTx(ctx, func(tx Store) error {
		lots, err := tx.ListLots(ctx)
		if err != nil {
			return fmt.Errorf("failed to list lots: %w", err)
		}

		result = Allocate(req, lots)

		if err := saveConsumedLots(ctx, tx, lots, result); err != nil {
			return err
		}

		order := &Order{
			OrderID:    req.OrderID,
			Lines:      req.Lines,
			Allocation: result,
			CreatedAt:  s.now().UTC(),
		}
		if err := tx.AppendOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to append order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// saveConsumedLots persists the new consumption state of every lot the pass
// drew from. Detail rows carry the lot IDs, so only touched lots are saved.
func saveConsumedLots(ctx context.Context, tx Store, lots []*Lot, result *Result) error {
	byID := make(map[string]*Lot, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}

	saved := make(map[string]bool)
	for _, row := range result.Details {
		if row.LotID == "" || saved[row.LotID] {
			continue
		}
		if err := tx.SaveLot(ctx, byID[row.LotID]); err != nil {
			return fmt.Errorf("failed to save lot %s: %w", row.LotID, err)
		}
		saved[row.LotID] = true
	}
	return nil
}

// ListLots returns every lot in insertion order.
func (s *Service) ListLots(ctx context.Context) ([]*Lot, error) {
	return s.store.ListLots(ctx)
}

// ListOrders returns the ledger in submission order.
func (s *Service) ListOrders(ctx context.Context) ([]*Order, error) {
	return s.store.ListOrders(ctx)
}

// Reset clears all lots and orders atomically. Test/demo path.
func (s *Service) Reset(ctx context.Context) error {
	return s.store.Reset(ctx)
}
