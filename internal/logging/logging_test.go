package logging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/railway-reservation/internal/model"
	"github.com/iliyamo/railway-reservation/internal/service"
)

func TestOperationLoggerLevels(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewOperationLogger(zap.New(core))

	logger.LogOperation(context.Background(), service.OperationLog{Operation: "create", ReservationID: 5, TrainID: 2, PassengerID: 9, Status: model.StatusPending})
	logger.LogOperation(context.Background(), service.OperationLog{Operation: "confirm_payment", ReservationID: 5, Error: service.ErrDeadlinePassed})
	logger.LogOperation(context.Background(), service.OperationLog{Operation: "cancel", Error: fmt.Errorf("delete: %w", service.ErrStorageUnavailable)})

	entries := logs.All()
	if len(entries) != 3 {
		test.Fatalf("expected 3 entries, got %d", len(entries))
	}
	levels := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, level := range levels {
		if entries[i].Level != level {
			test.Fatalf("entry %d: expected %s, got %s", i, level, entries[i].Level)
		}
	}
	fields := entries[0].ContextMap()
	if fields["operation"] != "create" || fields["reservation_id"] != uint64(5) || fields["status"] != "pending" {
		test.Fatalf("unexpected fields: %v", fields)
	}
}

func TestRequestLoggerRecordsStatus(test *testing.T) {
	test.Parallel()
	core, logs := observer.New(zapcore.InfoLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/v1/trains/:id", func(c echo.Context) error {
		c.Set("user_id", uint64(4))
		return echo.NewHTTPError(http.StatusNotFound, "train not found")
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/trains/7", nil))
	if rec.Code != http.StatusNotFound {
		test.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	entries := logs.FilterMessage("request").All()
	if len(entries) != 2 {
		test.Fatalf("expected 2 request logs, got %d", len(entries))
	}
	first := entries[0].ContextMap()
	if first["status"] != int64(404) || first["path"] != "/v1/trains/:id" || first["user_id"] != uint64(4) {
		test.Fatalf("unexpected fields: %v", first)
	}
	if entries[1].Level != zapcore.ErrorLevel {
		test.Fatalf("expected error level for 500, got %s", entries[1].Level)
	}
}
