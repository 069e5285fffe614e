package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pawsuite/pawsuite/internal/inventory"
)

// BatchSource lists stock batches nearing expiry.
type BatchSource interface {
	ListExpiringBatches(ctx context.Context, before time.Time) ([]inventory.StockBatch, error)
}

// BatchExpiryJob logs batches that expire within the configured horizon so
// staff can rotate or discount them before write-off.
type BatchExpiryJob struct {
	Batches BatchSource
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewBatchExpiryJob initialises the batch expiry handler.
func NewBatchExpiryJob(batches BatchSource, logger *slog.Logger) *BatchExpiryJob {
	return &BatchExpiryJob{
		Batches: batches,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the expiry scan.
func (j *BatchExpiryJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Batches == nil {
		return errors.New("batch expiry: handler not configured")
	}
	var payload BatchExpiryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.HorizonDays <= 0 {
		payload.HorizonDays = 30
	}

	now := j.now()
	cutoff := now.AddDate(0, 0, payload.HorizonDays)
	logger := j.logger().With(slog.Int("horizon_days", payload.HorizonDays))
	logger.Info("starting batch expiry scan")

	batches, err := j.Batches.ListExpiringBatches(ctx, cutoff)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}

	expired := 0
	for _, b := range batches {
		level := slog.LevelWarn
		if b.ExpiryDate.Before(now) {
			level = slog.LevelError
			expired++
		}
		logger.Log(ctx, level, "batch nearing expiry",
			slog.Int64("branch_id", b.BranchID),
			slog.Int64("product_id", b.ProductID),
			slog.String("batch_number", b.BatchNumber),
			slog.Time("expiry_date", b.ExpiryDate),
			slog.Float64("qty_remaining", b.QtyRemaining),
		)
	}

	logger.Info("completed batch expiry scan",
		slog.Int("batches", len(batches)),
		slog.Int("already_expired", expired),
	)
	return nil
}

func (j *BatchExpiryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBatchExpiryScan))
	}
	return slog.Default().With(slog.String("job", TaskBatchExpiryScan))
}

func (j *BatchExpiryJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
