// Package queue carries sale events over RabbitMQ: the publisher used by the
// sale recorder and the consumer that keeps the sales ledger file.
package queue

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types, also used as the AMQP message Type.
const (
	EventSaleRecorded = "sale.recorded"
	EventSaleDeleted  = "sale.deleted"
)

// SaleEvent is published after a sale transaction commits.  It holds enough
// for downstream consumers to log or alert without querying the database.
type SaleEvent struct {
	Type        string          `json:"type"`
	ID          string          `json:"id"`
	SaleID      int64           `json:"sale_id"`
	UserID      string          `json:"user_id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	VariantID   string          `json:"variant_id,omitempty"`
	Quantity    int             `json:"quantity"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	// Remaining is the variant's stock after the sale; nil for deletions.
	Remaining  *int      `json:"remaining,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
