package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/railway-reservation/internal/config"
)

const auditFileName = "reservations.log"

// Consumer drains the lifecycle queue into an append-only audit log,
// one line per event.
type Consumer struct {
	url    string
	queue  string
	logDir string
	logger *zap.Logger
}

// NewConsumer returns a Consumer for the configured broker and queue.
func NewConsumer(cfg config.QueueConfig, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{url: cfg.URL, queue: cfg.Name, logDir: cfg.LogDir, logger: logger}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.  Malformed messages are rejected without requeue so they
// cannot loop.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("reservation consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("reservation consumer: consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger.Warn("reservation consumer: set QoS failed", zap.Error(err))
	}
	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}
	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				c.logger.Error("reservation consumer: handle message failed", zap.Error(err), zap.String("message_id", d.MessageId))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" || ev.ReservationID == 0 {
		return errors.New("event without type or reservation id")
	}
	if err := os.MkdirAll(c.logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.logDir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.logDir, auditFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func formatLine(ev ReservationEvent) string {
	seats := make([]string, 0, len(ev.SeatNumbers))
	for _, n := range ev.SeatNumbers {
		seats = append(seats, fmt.Sprint(n))
	}
	line := fmt.Sprintf("[%s] %s | id=%s | reservation_id=%d | passenger_id=%d | train_id=%d | status=%s | seats_num=%d | cost=%.2f | seats=[%s]",
		ev.OccurredAt, ev.Type, ev.ID, ev.ReservationID, ev.PassengerID, ev.TrainID, ev.Status, ev.SeatsNum, ev.Cost, strings.Join(seats, ","))
	if ev.PaymentDeadline != "" {
		line += " | deadline=" + ev.PaymentDeadline
	}
	return line + "\n"
}

// sleep waits for d or until ctx is done, reporting whether it slept fully.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
