/*
Package sqlite provides a SQLite-backed implementation of allocation.Store.

PURPOSE:
  Durable storage for the lot pool and the order ledger. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  lots:    One row per inventory lot. quantity_used is the only column that
           ever changes, and only through SaveLot during an allocation pass.
  orders:  Append-only ledger. Demand lines and the allocation result are
           stored as JSON alongside the order ID.

ORDERING:
  Both tables rely on rowid for insertion order. For lots that is the FIFO
  tie-break (same received timestamp -> earlier receipt wins), so the
  allocation policy survives restarts.

CONCURRENCY:
  A sync.Mutex serializes writers on top of a sql.Tx per WithTx call, so one
  allocation's read-select-mutate-append sequence is a single mutation
  domain. SQLite is opened in WAL mode for better read concurrency.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

USAGE:
  store, err := sqlite.New("./data/allocation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - allocation/store.go: Interface definition
  - allocation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/inventory-engine/allocation"
)

// Store implements allocation.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single pooled connection also keeps
	// ":memory:" databases from fragmenting across connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Inventory lots (quantity_used mutates, nothing else does)
	CREATE TABLE IF NOT EXISTS lots (
		id TEXT PRIMARY KEY,
		sku TEXT NOT NULL,
		warehouse_id TEXT NOT NULL,
		quantity_received INTEGER NOT NULL,
		quantity_used INTEGER NOT NULL DEFAULT 0,
		unit_cost TEXT NOT NULL,
		received_at TEXT NOT NULL,
		CHECK (quantity_used >= 0),
		CHECK (quantity_used <= quantity_received)
	);

	CREATE INDEX IF NOT EXISTS idx_lots_sku_received ON lots(sku, received_at);

	-- Order ledger (append-only)
	CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT NOT NULL,
		lines_json TEXT NOT NULL,
		allocation_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer covers both *sql.DB and *sql.Tx so the same statement helpers
// serve plain calls and transactional views.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// =============================================================================
// LOTS
// =============================================================================

// AddLot inserts a new lot. Rowid order is insertion order.
func (s *Store) AddLot(ctx context.Context, lot *allocation.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addLot(ctx, s.db, lot)
}

func addLot(ctx context.Context, db execer, lot *allocation.Lot) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO lots (id, sku, warehouse_id, quantity_received, quantity_used, unit_cost, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		lot.ID, lot.Sku, lot.WarehouseID, lot.QuantityReceived, lot.QuantityUsed,
		lot.UnitCost.String(), lot.ReceivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lot: %w", err)
	}
	return nil
}

// ListLots returns every lot in insertion order.
func (s *Store) ListLots(ctx context.Context) ([]*allocation.Lot, error) {
	return listLots(ctx, s.db)
}

func listLots(ctx context.Context, db execer) ([]*allocation.Lot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, sku, warehouse_id, quantity_received, quantity_used, unit_cost, received_at
		FROM lots
		ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var lots []*allocation.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func scanLot(rows *sql.Rows) (*allocation.Lot, error) {
	var (
		lot        allocation.Lot
		unitCost   string
		receivedAt string
	)
	err := rows.Scan(&lot.ID, &lot.Sku, &lot.WarehouseID,
		&lot.QuantityReceived, &lot.QuantityUsed, &unitCost, &receivedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan lot: %w", err)
	}

	lot.UnitCost, err = decimal.NewFromString(unitCost)
	if err != nil {
		return nil, fmt.Errorf("failed to parse unit cost %q: %w", unitCost, err)
	}
	lot.ReceivedAt, err = time.Parse(time.RFC3339Nano, receivedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse received_at %q: %w", receivedAt, err)
	}
	return &lot, nil
}

// SaveLot persists a lot's consumption state.
func (s *Store) SaveLot(ctx context.Context, lot *allocation.Lot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveLot(ctx, s.db, lot)
}

func saveLot(ctx context.Context, db execer, lot *allocation.Lot) error {
	res, err := db.ExecContext(ctx,
		`UPDATE lots SET quantity_used = ? WHERE id = ?`,
		lot.QuantityUsed, lot.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update lot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return allocation.ErrLotNotFound
	}
	return nil
}

// =============================================================================
// ORDER LEDGER
// =============================================================================

// AppendOrder adds an order to the ledger. Append-only: there is no update
// or delete statement for the orders table anywhere in this package.
func (s *Store) AppendOrder(ctx context.Context, order *allocation.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendOrder(ctx, s.db, order)
}

func appendOrder(ctx context.Context, db execer, order *allocation.Order) error {
	linesJSON, err := json.Marshal(order.Lines)
	if err != nil {
		return fmt.Errorf("failed to marshal order lines: %w", err)
	}
	allocJSON, err := json.Marshal(order.Allocation)
	if err != nil {
		return fmt.Errorf("failed to marshal allocation: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO orders (order_id, lines_json, allocation_json, created_at)
		VALUES (?, ?, ?, ?)`,
		order.OrderID, string(linesJSON), string(allocJSON),
		order.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// ListOrders returns the ledger in submission order.
func (s *Store) ListOrders(ctx context.Context) ([]*allocation.Order, error) {
	return listOrders(ctx, s.db)
}

func listOrders(ctx context.Context, db execer) ([]*allocation.Order, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT order_id, lines_json, allocation_json, created_at
		FROM orders
		ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []*allocation.Order
	for rows.Next() {
		var (
			order     allocation.Order
			linesJSON string
			allocJSON string
			createdAt string
		)
		if err := rows.Scan(&order.OrderID, &linesJSON, &allocJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if err := json.Unmarshal([]byte(linesJSON), &order.Lines); err != nil {
			return nil, fmt.Errorf("failed to unmarshal order lines: %w", err)
		}
		if err := json.Unmarshal([]byte(allocJSON), &order.Allocation); err != nil {
			return nil, fmt.Errorf("failed to unmarshal allocation: %w", err)
		}
		var err error
		order.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
		}
		orders = append(orders, &order)
	}
	return orders, rows.Err()
}

// =============================================================================
// RESET / TRANSACTIONS
// =============================================================================

// Reset clears lots and orders in ONE database transaction. Never lots
// without orders or vice versa.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset: %w", err)
	}
	defer tx.Rollback()

	if err := clearAll(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func clearAll(ctx context.Context, db execer) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM lots`); err != nil {
		return fmt.Errorf("failed to clear lots: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("failed to clear orders: %w", err)
	}
	return nil
}

// WithTx executes fn within a database transaction while holding the write
// mutex: one allocation's full read-select-mutate-append sequence runs as a
// single mutation domain. If fn errors, the transaction rolls back and none
// of its mutations are visible.
func (s *Store) WithTx(ctx context.Context, fn func(allocation.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txView{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// txView runs Store operations against an open sql.Tx without re-locking.
type txView struct {
	tx *sql.Tx
}

func (tv *txView) AddLot(ctx context.Context, lot *allocation.Lot) error {
	return addLot(ctx, tv.tx, lot)
}

func (tv *txView) ListLots(ctx context.Context) ([]*allocation.Lot, error) {
	return listLots(ctx, tv.tx)
}

func (tv *txView) SaveLot(ctx context.Context, lot *allocation.Lot) error {
	return saveLot(ctx, tv.tx, lot)
}

func (tv *txView) AppendOrder(ctx context.Context, order *allocation.Order) error {
	return appendOrder(ctx, tv.tx, order)
}

func (tv *txView) ListOrders(ctx context.Context) ([]*allocation.Order, error) {
	return listOrders(ctx, tv.tx)
}

func (tv *txView) Reset(ctx context.Context) error {
	return clearAll(ctx, tv.tx)
}

// WithTx on a view joins the enclosing transaction.
func (tv *txView) WithTx(_ context.Context, fn func(allocation.Store) error) error {
	return fn(tv)
}

var _ allocation.Store = (*Store)(nil)
var _ allocation.Store = (*txView)(nil)
