package recording

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

const runColumns = `run_id,seed,started_at,prey,hunters,obstacles,log_path,COALESCE(ended_at,''),ticks,elapsed,conversions,all_converted_tick`

// Runs lists recorded runs, newest first
func (x *Index) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := x.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterate runs")
}

// Run returns one run; sql.ErrNoRows is wrapped when it does not exist
func (x *Index) Run(ctx context.Context, id string) (RunInfo, error) {
	row := x.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id=?`, id)
	return scanRun(row)
}

// Conversions lists one run's conversions in tick then commit order
func (x *Index) Conversions(ctx context.Context, runID string) ([]ConversionRow, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT run_id,tick,seq,prey_id,hunter_id,x,y,z FROM conversions WHERE run_id=? ORDER BY tick,seq`, runID)
	if err != nil {
		return nil, errors.Wrap(err, "query conversions")
	}
	defer rows.Close()

	var out []ConversionRow
	for rows.Next() {
		var c ConversionRow
		var tick, prey, hunter int64
		if err := rows.Scan(&c.RunID, &tick, &c.Seq, &prey, &hunter, &c.X, &c.Y, &c.Z); err != nil {
			return nil, errors.Wrap(err, "scan conversion")
		}
		c.Tick, c.Prey, c.Hunter = uint64(tick), uint64(prey), uint64(hunter)
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "iterate conversions")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (RunInfo, error) {
	var (
		r                    RunInfo
		seed, ticks, allConv int64
		startedAt, endedAt   string
	)
	err := s.Scan(&r.ID, &seed, &startedAt, &r.Prey, &r.Hunters, &r.Obstacles, &r.LogPath,
		&endedAt, &ticks, &r.Elapsed, &r.Conversions, &allConv)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, errors.Wrap(err, "run not found")
		}
		return r, errors.Wrap(err, "scan run")
	}
	r.Seed, r.Ticks, r.AllConvertedTick = uint64(seed), uint64(ticks), uint64(allConv)
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return r, errors.Wrapf(err, "run %s started_at", r.ID)
	}
	if endedAt != "" {
		if r.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
			return r, errors.Wrapf(err, "run %s ended_at", r.ID)
		}
	}
	return r, nil
}
