package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newLedger(t *testing.T) (*Ledger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	return &Ledger{Dir: t.TempDir(), LowStock: 3, Log: zap.New(core)}, logs
}

func TestLedgerHandleRecorded(t *testing.T) {
	l, logs := newLedger(t)
	remaining := 2
	body, err := json.Marshal(SaleEvent{
		Type:        EventSaleRecorded,
		ID:          "s-1",
		SaleID:      7,
		UserID:      "u-1",
		ProductID:   "p-1",
		ProductName: "Widget",
		Quantity:    3,
		TotalPrice:  decimal.RequireFromString("330"),
		Remaining:   &remaining,
		OccurredAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, l.Handle(body))

	data, err := os.ReadFile(filepath.Join(l.Dir, "sales.log"))
	require.NoError(t, err)
	assert.Equal(t,
		"[2026-01-02T03:04:05Z] sale.recorded | sale_id=7 | id=s-1 | user_id=u-1 | product=\"Widget\" | qty=3 | total=330.00 | remaining=2\n",
		string(data))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "low stock", logs.All()[0].Message)
}

func TestLedgerHandleDeletedAppends(t *testing.T) {
	l, logs := newLedger(t)
	for i := 0; i < 2; i++ {
		body, _ := json.Marshal(SaleEvent{Type: EventSaleDeleted, ID: "s-1", SaleID: 1, TotalPrice: decimal.Zero})
		require.NoError(t, l.Handle(body))
	}

	data, err := os.ReadFile(filepath.Join(l.Dir, "sales.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "remaining=-")
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
	assert.Zero(t, logs.Len())
}

func TestLedgerRejectsBadMessages(t *testing.T) {
	l, _ := newLedger(t)
	assert.Error(t, l.Handle([]byte("{not json")))
	assert.Error(t, l.Handle([]byte(`{"type":"order.created"}`)))

	_, err := os.Stat(filepath.Join(l.Dir, "sales.log"))
	assert.True(t, os.IsNotExist(err))
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), SaleEvent{}))
}
