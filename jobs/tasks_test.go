package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAnalyticsWarmupHandlerRunsWarmFunc(t *testing.T) {
	calls := 0
	handler := NewAnalyticsWarmupHandler(func(ctx context.Context) error {
		calls++
		return nil
	}, discardLogger())

	task, err := NewAnalyticsWarmupTask(WarmupPayload{Reason: "scheduled"})
	if err != nil {
		t.Fatalf("build task: %v", err)
	}
	if err := handler(context.Background(), task); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one warm call, got %d", calls)
	}
}

func TestAnalyticsWarmupHandlerSkipsRetryOnBadPayload(t *testing.T) {
	handler := NewAnalyticsWarmupHandler(func(ctx context.Context) error {
		t.Fatal("warm must not run for a malformed payload")
		return nil
	}, discardLogger())

	task := asynq.NewTask(TaskAnalyticsWarmup, []byte("{not json"))
	if err := handler(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestSessionsSweepHandlerReportsCount(t *testing.T) {
	handler := NewSessionsSweepHandler(func(ctx context.Context) (int64, error) {
		return 3, nil
	}, discardLogger())

	if err := handler(context.Background(), NewSessionsSweepTask()); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestSessionsSweepHandlerPropagatesError(t *testing.T) {
	boom := errors.New("database unavailable")
	handler := NewSessionsSweepHandler(func(ctx context.Context) (int64, error) {
		return 0, boom
	}, discardLogger())

	if err := handler(context.Background(), NewSessionsSweepTask()); !errors.Is(err, boom) {
		t.Fatalf("expected sweep error to surface, got %v", err)
	}
}
