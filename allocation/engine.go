/*
engine.go - The FIFO allocation algorithm

PURPOSE:
  Matches order demand against the current pool of inventory lots, consuming
  the oldest stock first, and produces the order's financial breakdown.

ORDERING POLICY:
  1. FIFO: Candidate lots are sorted by received timestamp ascending. The sort
     is STABLE, so lots with identical timestamps keep the store's insertion
     order - allocation is fully deterministic.
  2. Preferred warehouse: When a line names a warehouse, the already-sorted
     candidates are stably partitioned so matching lots come first. FIFO order
     is preserved WITHIN each partition: preferred stock drains oldest-first,
     then demand spills into other warehouses, oldest-first.

ACCOUNTING:
  - COGS accumulates allocated quantity x the consumed lot's unit cost
  - Revenue is recognized only for fulfilled quantity, never for backorders
  - Margin = Revenue - COGS, all in exact decimal arithmetic

FAILURE SEMANTICS:
  The engine has no fallible paths given validated input. Insufficient stock
  is a first-class outcome (a backorder row), not an error, and the min() in
  the consumption loop makes overdrawing a lot impossible.

SEE ALSO:
  - types.go: Lot, DemandLine, DetailRow, Result
  - service.go: Runs this pass inside the store's mutation domain
*/
package allocation

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Allocate runs one allocation pass for req against lots, consuming lot
// quantity in place and returning the order's financial breakdown.
//
// Lines are processed in request order. For each line, candidate lots are
// walked oldest-first (preferred warehouse first when specified) and each
// lot yields min(available, remaining) units. A line that remains
// unsatisfied after every candidate is exhausted gets exactly one synthetic
// backorder row; a zero-quantity line produces no rows at all.
//
// Preconditions (enforced by the validation layer, not re-checked here):
// every line has positive quantity and non-negative unit price.
func Allocate(req OrderRequest, lots []*Lot) *Result {
	totalCOGS := decimal.Zero
	totalRevenue := decimal.Zero
	details := []DetailRow{}

	for _, line := range req.Lines {
		if line.Quantity == 0 {
			// Degenerate no-op line: no rows, no totals.
			continue
		}

		candidates := candidateLots(lots, line)

		remaining := line.Quantity
		for _, lot := range candidates {
			if remaining <= 0 {
				break
			}
			qty := min(lot.Available(), remaining)
			lot.QuantityUsed += qty
			remaining -= qty

			totalCOGS = totalCOGS.Add(lot.UnitCost.Mul(decimal.NewFromInt(int64(qty))))
			details = append(details, DetailRow{
				Sku:          line.Sku,
				AllocatedQty: qty,
				WarehouseID:  lot.WarehouseID,
				UnitCost:     lot.UnitCost,
				LotID:        lot.ID,
			})
		}

		fulfilled := line.Quantity - remaining
		totalRevenue = totalRevenue.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(fulfilled))))

		if remaining > 0 {
			details = append(details, DetailRow{
				Sku:          line.Sku,
				AllocatedQty: 0,
				WarehouseID:  BackorderWarehouse,
				UnitCost:     decimal.Zero,
			})
		}
	}

	return &Result{
		OrderID: req.OrderID,
		COGS:    totalCOGS,
		Revenue: totalRevenue,
		Margin:  totalRevenue.Sub(totalCOGS),
		Details: details,
	}
}

// candidateLots selects and orders the lots one demand line may draw from:
// matching SKU, quantity still available, oldest first, preferred warehouse
// ahead of the rest. Both sorts are stable, so ties keep insertion order and
// the warehouse partition never disturbs chronology within a partition.
func candidateLots(lots []*Lot, line DemandLine) []*Lot {
	var candidates []*Lot
	for _, lot := range lots {
		if lot.Sku == line.Sku && lot.Available() > 0 {
			candidates = append(candidates, lot)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].ReceivedAt.Before(candidates[j].ReceivedAt)
	})

	if line.PreferredWarehouseID != nil {
		preferred := *line.PreferredWarehouseID
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].WarehouseID == preferred && candidates[j].WarehouseID != preferred
		})
	}

	return candidates
}
