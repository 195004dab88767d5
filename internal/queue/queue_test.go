package queue

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/railway-reservation/internal/config"
	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/service"
)

func sampleEvent() service.Event {
	deadline := time.Date(2026, time.May, 2, 9, 0, 0, 0, time.UTC)
	return service.Event{
		Type: service.EventConfirmed,
		Reservation: model.Reservation{
			ID:              42,
			PassengerID:     7,
			TrainID:         3,
			SeatsNum:        2,
			Status:          model.StatusConfirmed,
			Cost:            180,
			SeatNumbers:     []int{11, 12},
			PaymentDeadline: &deadline,
		},
		OccurredAt: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestNewReservationEvent(test *testing.T) {
	test.Parallel()
	ev := NewReservationEvent(sampleEvent())

	if _, err := uuid.Parse(ev.ID); err != nil {
		test.Fatalf("expected uuid message id, got %q", ev.ID)
	}
	if ev.Type != "reservation.confirmed" || ev.ReservationID != 42 || ev.Status != "confirmed" {
		test.Fatalf("unexpected event: %+v", ev)
	}
	if ev.PaymentDeadline != "2026-05-02T09:00:00Z" || ev.OccurredAt != "2026-05-01T09:00:00Z" {
		test.Fatalf("unexpected timestamps: %+v", ev)
	}

	waitlisted := sampleEvent()
	waitlisted.Reservation.SeatNumbers = nil
	waitlisted.Reservation.PaymentDeadline = nil
	ev = NewReservationEvent(waitlisted)
	if ev.SeatNumbers == nil || ev.PaymentDeadline != "" {
		test.Fatalf("expected empty seats and no deadline, got %+v", ev)
	}
}

func TestConsumerAppendsAuditLine(test *testing.T) {
	test.Parallel()
	dir := filepath.Join(test.TempDir(), "audit")
	consumer := NewConsumer(config.QueueConfig{Name: "reservation.events", LogDir: dir}, nil)
	body, err := json.Marshal(NewReservationEvent(sampleEvent()))
	if err != nil {
		test.Fatalf("marshal: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := consumer.handleMessage(body); err != nil {
			test.Fatalf("handle message: %v", err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, auditFileName))
	if err != nil {
		test.Fatalf("read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		test.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, part := range []string{"reservation.confirmed", "reservation_id=42", "seats=[11,12]", "cost=180.00", "deadline=2026-05-02T09:00:00Z"} {
		if !strings.Contains(lines[0], part) {
			test.Fatalf("expected %q in %q", part, lines[0])
		}
	}
}

func TestConsumerRejectsMalformedMessages(test *testing.T) {
	test.Parallel()
	consumer := NewConsumer(config.QueueConfig{LogDir: test.TempDir()}, nil)
	for _, body := range []string{"not json", `{"type":""}`, `{"type":"reservation.created"}`} {
		if err := consumer.handleMessage([]byte(body)); err == nil {
			test.Fatalf("expected error for %q", body)
		}
	}
}

func TestSleepStopsOnCancel(test *testing.T) {
	test.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleep(ctx, time.Hour) {
		test.Fatalf("expected sleep to stop on cancelled context")
	}
}
