package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnalyticsWarmup pre-populates the dashboard caches.
	TaskAnalyticsWarmup = "analytics:warmup"
	// TaskSessionsSweep removes expired login sessions.
	TaskSessionsSweep = "sessions:sweep"
)

// WarmupPayload describes an analytics warmup request.
type WarmupPayload struct {
	Reason string `json:"reason"`
}

// NewAnalyticsWarmupTask constructs an Asynq task.
func NewAnalyticsWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, data), nil
}

// NewSessionsSweepTask constructs an Asynq task.
func NewSessionsSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsSweep, nil)
}

// NewAnalyticsWarmupHandler returns the handler for TaskAnalyticsWarmup.
// warm should load every dashboard section so the caches fill.
func NewAnalyticsWarmupHandler(warm func(context.Context) error, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload WarmupPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		if err := warm(ctx); err != nil {
			logger.Error("analytics warmup", slog.Any("error", err))
			return err
		}
		logger.Info("analytics warmup complete", slog.String("reason", payload.Reason))
		return nil
	}
}

// NewSessionsSweepHandler returns the handler for TaskSessionsSweep.
// sweep removes expired session rows together with their mirror slots
// and reports how many sessions went away.
func NewSessionsSweepHandler(sweep func(context.Context) (int64, error), logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		n, err := sweep(ctx)
		if err != nil {
			logger.Error("sessions sweep", slog.Any("error", err))
			return err
		}
		logger.Info("sessions sweep complete", slog.Int64("removed", n))
		return nil
	}
}
