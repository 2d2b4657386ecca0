/*
validate.go - Boundary validation for receipts and orders

PURPOSE:
  Field-by-field checks yielding a structured list of (field, reason) pairs.
  Validation failures are values, not panics: the API layer turns a
  non-empty list into a 400 with per-field details, and only validated
  requests ever reach the engine.

RULES:
  Receipts:  SKU and warehouse required, <= 50 chars; quantity > 0;
             unit cost > 0; received timestamp not in the future
  Orders:    order ID required, <= 50 chars; at least one line;
             per line: SKU required, quantity > 0, unit price >= 0,
             preferred warehouse non-blank when present

SEE ALSO:
  - errors.go: FieldError / ValidationError
  - service.go: Invokes these before touching the store
*/
package allocation

import (
	"fmt"
	"strings"
	"time"
)

const maxIdentifierLen = 50

// ValidateReceipt checks an inbound receipt against now. An empty result
// means the receipt is safe to ingest.
func ValidateReceipt(req ReceiptRequest, now time.Time) []FieldError {
	var errs []FieldError

	errs = append(errs, validateIdentifier("sku", req.Sku)...)
	errs = append(errs, validateIdentifier("warehouse_id", req.WarehouseID)...)

	if req.QuantityReceived <= 0 {
		errs = append(errs, FieldError{Field: "quantity_received", Reason: "must be greater than zero"})
	}
	if !req.UnitCost.IsPositive() {
		errs = append(errs, FieldError{Field: "unit_cost", Reason: "must be greater than zero"})
	}
	if req.ReceivedAt.After(now) {
		errs = append(errs, FieldError{Field: "received_at_utc", Reason: "cannot be a future date"})
	}

	return errs
}

// ValidateOrder checks an order request. An empty result means every line
// satisfies the engine's preconditions.
func ValidateOrder(req OrderRequest) []FieldError {
	var errs []FieldError

	errs = append(errs, validateIdentifier("order_id", req.OrderID)...)

	if len(req.Lines) == 0 {
		errs = append(errs, FieldError{Field: "lines", Reason: "at least one order line is required"})
	}

	for i, line := range req.Lines {
		prefix := fmt.Sprintf("lines[%d].", i)

		errs = append(errs, validateIdentifier(prefix+"sku", line.Sku)...)

		if line.Quantity <= 0 {
			errs = append(errs, FieldError{Field: prefix + "quantity", Reason: "must be greater than zero"})
		}
		if line.UnitPrice.IsNegative() {
			errs = append(errs, FieldError{Field: prefix + "unit_price", Reason: "cannot be negative"})
		}
		if line.PreferredWarehouseID != nil && strings.TrimSpace(*line.PreferredWarehouseID) == "" {
			errs = append(errs, FieldError{Field: prefix + "preferred_warehouse_id", Reason: "cannot be empty if provided"})
		}
	}

	return errs
}

func validateIdentifier(field, value string) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(value) == "" {
		errs = append(errs, FieldError{Field: field, Reason: "is required"})
	}
	if len(value) > maxIdentifierLen {
		errs = append(errs, FieldError{Field: field, Reason: fmt.Sprintf("cannot exceed %d characters", maxIdentifierLen)})
	}
	return errs
}
