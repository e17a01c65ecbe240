package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Ledger appends one line per sale event to <Dir>/sales.log and warns when
// a recorded sale leaves a variant at or below LowStock units.
type Ledger struct {
	Dir      string
	LowStock int
	Log      *zap.Logger

	mu sync.Mutex
}

// Handle processes one message body.  A malformed body is an error so the
// delivery can be rejected.
func (l *Ledger) Handle(body []byte) error {
	var ev SaleEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type != EventSaleRecorded && ev.Type != EventSaleDeleted {
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	if ev.Type == EventSaleRecorded && ev.Remaining != nil && *ev.Remaining <= l.LowStock {
		l.Log.Warn("low stock",
			zap.String("user_id", ev.UserID),
			zap.String("product_id", ev.ProductID),
			zap.String("product", ev.ProductName),
			zap.Int("remaining", *ev.Remaining))
	}
	return l.append(formatLine(ev))
}

func formatLine(ev SaleEvent) string {
	remaining := "-"
	if ev.Remaining != nil {
		remaining = fmt.Sprint(*ev.Remaining)
	}
	return fmt.Sprintf("[%s] %s | sale_id=%d | id=%s | user_id=%s | product=%q | qty=%d | total=%s | remaining=%s\n",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.SaleID, ev.ID, ev.UserID,
		ev.ProductName, ev.Quantity, ev.TotalPrice.StringFixed(2), remaining)
}

func (l *Ledger) append(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir ledger dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(l.Dir, "sales.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	return nil
}

// Consumer feeds deliveries from the sale queue into a Ledger.
type Consumer struct {
	URL    string
	Queue  string
	Ledger *Ledger
	Log    *zap.Logger
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// backoff whenever the broker goes away.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn("sale consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn("sale consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn("sale consumer: set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(c.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Ledger.Handle(d.Body); err != nil {
				c.Log.Error("sale consumer: handle message failed", zap.Error(err), zap.String("message_id", d.MessageId))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
