package shared

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLog captures a single recorded action.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// AuditRecorder persists audit logs.
type AuditRecorder struct {
	pool *pgxpool.Pool
}

// NewAuditRecorder constructs the recorder.
func NewAuditRecorder(pool *pgxpool.Pool) *AuditRecorder {
	return &AuditRecorder{pool: pool}
}

// Record inserts an audit row. Failures are returned but callers typically
// treat audit as best-effort.
func (r *AuditRecorder) Record(ctx context.Context, log AuditLog) error {
	if r == nil || r.pool == nil {
		return nil
	}
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	meta, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, at)
VALUES ($1,$2,$3,$4,$5,$6)`, nullInt(log.ActorID), log.Action, log.Entity, log.EntityID, meta, log.At)
	return err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
