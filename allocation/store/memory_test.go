package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/inventory-engine/allocation"
	"github.com/warp/inventory-engine/allocation/store"
)

func testLot(id, sku string, qty int) *allocation.Lot {
	return &allocation.Lot{
		ID:               id,
		Sku:              sku,
		WarehouseID:      "WH1",
		QuantityReceived: qty,
		UnitCost:         decimal.NewFromInt(5),
		ReceivedAt:       time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testOrder(id string) *allocation.Order {
	return &allocation.Order{
		OrderID:    id,
		Lines:      []allocation.DemandLine{{Sku: "WIDGET", Quantity: 1, UnitPrice: decimal.NewFromInt(9)}},
		Allocation: &allocation.Result{OrderID: id},
		CreatedAt:  time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemory_ListLots_InsertionOrder(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, m.AddLot(ctx, testLot(fmt.Sprintf("lot-%d", i), "WIDGET", 10)))
	}

	lots, err := m.ListLots(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 5)
	for i, lot := range lots {
		assert.Equal(t, fmt.Sprintf("lot-%d", i), lot.ID)
	}
}

func TestMemory_ListLots_SharesHandles(t *testing.T) {
	// Mutation through a listed handle is store state. That is the
	// ownership model the engine relies on.
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.AddLot(ctx, testLot("lot-1", "WIDGET", 10)))

	lots, err := m.ListLots(ctx)
	require.NoError(t, err)
	lots[0].QuantityUsed = 7

	again, err := m.ListLots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, again[0].QuantityUsed)
}

func TestMemory_SaveLot_UnknownID(t *testing.T) {
	m := store.NewMemory()
	err := m.SaveLot(context.Background(), testLot("ghost", "WIDGET", 1))
	assert.True(t, errors.Is(err, allocation.ErrLotNotFound))
}

func TestMemory_Orders_AppendOnlySubmissionOrder(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, m.AppendOrder(ctx, testOrder(fmt.Sprintf("ord-%d", i))))
	}

	orders, err := m.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	for i, o := range orders {
		assert.Equal(t, fmt.Sprintf("ord-%d", i), o.OrderID)
	}
}

func TestMemory_Reset_ClearsEverything(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.AddLot(ctx, testLot("lot-1", "WIDGET", 10)))
	require.NoError(t, m.AppendOrder(ctx, testOrder("ord-1")))

	require.NoError(t, m.Reset(ctx))

	lots, err := m.ListLots(ctx)
	require.NoError(t, err)
	assert.Empty(t, lots)
	orders, err := m.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	// The ID index is gone too: the old lot cannot be saved back.
	err = m.SaveLot(ctx, testLot("lot-1", "WIDGET", 10))
	assert.True(t, errors.Is(err, allocation.ErrLotNotFound))
}

func TestMemory_WithTx_CommitKeepsMutations(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.AddLot(ctx, testLot("lot-1", "WIDGET", 10)))

	err := m.WithTx(ctx, func(tx allocation.Store) error {
		lots, err := tx.ListLots(ctx)
		if err != nil {
			return err
		}
		lots[0].QuantityUsed = 4
		if err := tx.SaveLot(ctx, lots[0]); err != nil {
			return err
		}
		return tx.AppendOrder(ctx, testOrder("ord-1"))
	})
	require.NoError(t, err)

	lots, err := m.ListLots(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, lots[0].QuantityUsed)
	orders, err := m.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestMemory_WithTx_ErrorRestoresSnapshot(t *testing.T) {
	// A fault mid-pass must leave no visible mutation: neither consumed
	// quantity nor a ledger entry.
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.AddLot(ctx, testLot("lot-1", "WIDGET", 10)))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(tx allocation.Store) error {
		lots, err := tx.ListLots(ctx)
		if err != nil {
			return err
		}
		lots[0].QuantityUsed = 9
		if err := tx.AppendOrder(ctx, testOrder("ord-doomed")); err != nil {
			return err
		}
		if err := tx.AddLot(ctx, testLot("lot-new", "WIDGET", 3)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	lots, err := m.ListLots(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 1, "lot added inside the failed tx is gone")
	assert.Equal(t, 0, lots[0].QuantityUsed, "consumption rolled back")

	orders, err := m.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
