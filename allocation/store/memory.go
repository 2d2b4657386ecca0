// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/inventory-engine/allocation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps lots and orders in insertion-ordered slices behind one
// RWMutex. Lots are additionally indexed by ID for SaveLot lookups; the
// index shares the slice's *Lot handles, so engine mutation through
// ListLots is visible everywhere.
type Memory struct {
	mu     sync.RWMutex
	lots   []*allocation.Lot
	byID   map[string]*allocation.Lot
	orders []*allocation.Order
}

func NewMemory() *Memory {
	return &Memory{
		byID: make(map[string]*allocation.Lot),
	}
}

// AddLot registers a lot. Insertion order is preserved; it is the FIFO
// tie-break for lots sharing a received timestamp.
func (m *Memory) AddLot(_ context.Context, lot *allocation.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addLotLocked(lot)
	return nil
}

func (m *Memory) addLotLocked(lot *allocation.Lot) {
	m.lots = append(m.lots, lot)
	m.byID[lot.ID] = lot
}

// ListLots returns the lot handles in insertion order. The slice is a copy;
// the handles are shared, so callers inside WithTx mutate store state.
func (m *Memory) ListLots(_ context.Context) ([]*allocation.Lot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLotsLocked(), nil
}

func (m *Memory) listLotsLocked() []*allocation.Lot {
	result := make([]*allocation.Lot, len(m.lots))
	copy(result, m.lots)
	return result
}

// SaveLot persists consumption state. For the memory store the handle is
// already shared, so this only checks the lot is known.
func (m *Memory) SaveLot(_ context.Context, lot *allocation.Lot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLotLocked(lot)
}

func (m *Memory) saveLotLocked(lot *allocation.Lot) error {
	stored, ok := m.byID[lot.ID]
	if !ok {
		return allocation.ErrLotNotFound
	}
	if stored != lot {
		*stored = *lot
	}
	return nil
}

// AppendOrder adds an order to the ledger. Append-only.
func (m *Memory) AppendOrder(_ context.Context, order *allocation.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, order)
	return nil
}

// ListOrders returns the ledger in submission order.
func (m *Memory) ListOrders(_ context.Context) ([]*allocation.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*allocation.Order, len(m.orders))
	copy(result, m.orders)
	return result, nil
}

// Reset clears lots and orders together under one lock acquisition.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

func (m *Memory) resetLocked() {
	m.lots = nil
	m.byID = make(map[string]*allocation.Lot)
	m.orders = nil
}

// =============================================================================
// TRANSACTION SUPPORT
// =============================================================================

// WithTx executes fn while holding the write lock, so the full
// read-select-mutate-append sequence of one allocation is a single
// mutation domain. On error the pre-fn snapshot is restored: no mutation
// from a failed pass is ever visible.
func (m *Memory) WithTx(ctx context.Context, fn func(allocation.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshotLocked()

	if err := fn(&txMemoryView{parent: m}); err != nil {
		m.restoreLocked(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	lots   []allocation.Lot
	orders []*allocation.Order
}

// snapshotLocked copies lot VALUES, not handles: fn mutates lots through
// the shared pointers, so restore must rewrite their contents.
func (m *Memory) snapshotLocked() memorySnapshot {
	lots := make([]allocation.Lot, len(m.lots))
	for i, lot := range m.lots {
		lots[i] = *lot
	}
	orders := make([]*allocation.Order, len(m.orders))
	copy(orders, m.orders)
	return memorySnapshot{lots: lots, orders: orders}
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.lots = m.lots[:len(s.lots)]
	m.byID = make(map[string]*allocation.Lot)
	for i := range s.lots {
		*m.lots[i] = s.lots[i]
		m.byID[m.lots[i].ID] = m.lots[i]
	}
	m.orders = s.orders
}

// txMemoryView gives fn access to the already-locked parent.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) AddLot(_ context.Context, lot *allocation.Lot) error {
	tv.parent.addLotLocked(lot)
	return nil
}

func (tv *txMemoryView) ListLots(_ context.Context) ([]*allocation.Lot, error) {
	return tv.parent.listLotsLocked(), nil
}

func (tv *txMemoryView) SaveLot(_ context.Context, lot *allocation.Lot) error {
	return tv.parent.saveLotLocked(lot)
}

func (tv *txMemoryView) AppendOrder(_ context.Context, order *allocation.Order) error {
	tv.parent.orders = append(tv.parent.orders, order)
	return nil
}

func (tv *txMemoryView) ListOrders(_ context.Context) ([]*allocation.Order, error) {
	result := make([]*allocation.Order, len(tv.parent.orders))
	copy(result, tv.parent.orders)
	return result, nil
}

func (tv *txMemoryView) Reset(_ context.Context) error {
	tv.parent.resetLocked()
	return nil
}

// WithTx on a view reuses the already-held lock. Nested transactions share
// the outer one's fate.
func (tv *txMemoryView) WithTx(_ context.Context, fn func(allocation.Store) error) error {
	return fn(tv)
}

var _ allocation.Store = (*Memory)(nil)
var _ allocation.Store = (*txMemoryView)(nil)
