// Package jobs holds the asynq background tasks. Jobs observe and report;
// they never mutate transactional data.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGLIntegrityScan recomputes journal entry balances and logs drift.
	TaskGLIntegrityScan = "accounting:gl_integrity"
	// TaskBatchExpiryScan logs stock batches approaching their expiry date.
	TaskBatchExpiryScan = "inventory:batch_expiry"
)

// GLIntegrityPayload bounds the scan window.
type GLIntegrityPayload struct {
	WindowDays int     `json:"window_days"`
	Tolerance  float64 `json:"tolerance"`
}

// NewGLIntegrityTask constructs the GL integrity scan task.
func NewGLIntegrityTask(windowDays int, tolerance float64) (*asynq.Task, error) {
	body, err := json.Marshal(GLIntegrityPayload{WindowDays: windowDays, Tolerance: tolerance})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGLIntegrityScan, body, asynq.Queue(QueueDefault)), nil
}

// BatchExpiryPayload bounds the look-ahead horizon.
type BatchExpiryPayload struct {
	HorizonDays int `json:"horizon_days"`
}

// NewBatchExpiryTask constructs the batch expiry scan task.
func NewBatchExpiryTask(horizonDays int) (*asynq.Task, error) {
	body, err := json.Marshal(BatchExpiryPayload{HorizonDays: horizonDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchExpiryScan, body, asynq.Queue(QueueDefault)), nil
}
