package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GLIntegrityJob recomputes debit/credit sums per posted journal entry and
// logs any drift between stored totals, line sums, and the balance invariant.
type GLIntegrityJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewGLIntegrityJob initialises the GL integrity handler.
func NewGLIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger) *GLIntegrityJob {
	return &GLIntegrityJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type glDrift struct {
	EntryID     int64
	Number      string
	TotalDebit  float64
	TotalCredit float64
	LineDebit   float64
	LineCredit  float64
}

// Handle executes the integrity scan.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload GLIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 30
	}
	if payload.Tolerance <= 0 {
		payload.Tolerance = 0.01
	}

	start := j.now()
	logger := j.logger().With(
		slog.Int("window_days", payload.WindowDays),
		slog.Float64("tolerance", payload.Tolerance),
	)
	logger.Info("starting gl integrity scan")

	scanned, drifts, err := j.scan(ctx, payload, start)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}

	for _, d := range drifts {
		logger.Warn("journal entry out of balance",
			slog.Int64("entry_id", d.EntryID),
			slog.String("number", d.Number),
			slog.Float64("total_debit", d.TotalDebit),
			slog.Float64("total_credit", d.TotalCredit),
			slog.Float64("line_debit", d.LineDebit),
			slog.Float64("line_credit", d.LineCredit),
		)
	}

	logger.Info("completed gl integrity scan",
		slog.Int("entries", scanned),
		slog.Int("drifts", len(drifts)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *GLIntegrityJob) scan(ctx context.Context, payload GLIntegrityPayload, now time.Time) (int, []glDrift, error) {
	if j.Pool == nil {
		return 0, nil, errors.New("gl integrity: pool not configured")
	}
	from := now.AddDate(0, 0, -payload.WindowDays)
	rows, err := j.Pool.Query(ctx, `SELECT e.id, e.number, e.total_debit, e.total_credit,
COALESCE(SUM(l.debit), 0)::double precision, COALESCE(SUM(l.credit), 0)::double precision
FROM journal_entries e
LEFT JOIN journal_entry_lines l ON l.entry_id = e.id
WHERE e.status = 'POSTED' AND e.entry_date >= $1
GROUP BY e.id, e.number, e.total_debit, e.total_credit
ORDER BY e.id`, from)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	scanned := 0
	drifts := []glDrift{}
	for rows.Next() {
		var d glDrift
		if err := rows.Scan(&d.EntryID, &d.Number, &d.TotalDebit, &d.TotalCredit, &d.LineDebit, &d.LineCredit); err != nil {
			return 0, nil, err
		}
		scanned++
		if abs(d.LineDebit-d.LineCredit) > payload.Tolerance ||
			abs(d.TotalDebit-d.LineDebit) > payload.Tolerance ||
			abs(d.TotalCredit-d.LineCredit) > payload.Tolerance {
			drifts = append(drifts, d)
		}
	}
	return scanned, drifts, rows.Err()
}

func (j *GLIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskGLIntegrityScan))
	}
	return slog.Default().With(slog.String("job", TaskGLIntegrityScan))
}

func (j *GLIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
