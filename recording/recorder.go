package recording

import (
	"io"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/engine"
	"github.com/lixenwraith/hvz/parameter"
	"github.com/lixenwraith/hvz/status"
)

// IndexFile is the sqlite index name inside a recording directory
const IndexFile = "index.db"

// LogPath returns the tick log path of runID inside dir
func LogPath(dir, runID string) string {
	return filepath.Join(dir, "runs", runID+".jsonl.zst")
}

// Recorder writes one run: every tick to the log, conversions and totals to the index
type Recorder struct {
	runID string
	log   *log.Logger
	ticks *TickWriter
	index *Index

	info          RunInfo
	keyframeEvery uint64

	droppedGauge *atomic.Int64
}

// RecorderOption configures a Recorder
type RecorderOption func(*Recorder)

func WithRecorderLogger(l *log.Logger) RecorderOption {
	return func(r *Recorder) { r.log = l }
}

// WithRecorderStatus publishes dropped index batches to reg
func WithRecorderStatus(reg *status.Registry) RecorderOption {
	return func(r *Recorder) {
		if reg != nil {
			r.droppedGauge = reg.Ints.Get(status.KeyRecorderDropped)
		}
	}
}

// WithKeyframeEvery overrides how often a full snapshot is embedded; 0 disables keyframes
func WithKeyframeEvery(n uint64) RecorderOption {
	return func(r *Recorder) { r.keyframeEvery = n }
}

// NewRecorder starts a run under dir with a fresh run ID
func NewRecorder(dir string, cfg engine.Config, opts ...RecorderOption) (*Recorder, error) {
	r := &Recorder{
		runID:         uuid.NewString(),
		log:           log.New(io.Discard),
		keyframeEvery: parameter.RecorderKeyframeEvery,
	}
	for _, opt := range opts {
		opt(r)
	}

	path := LogPath(dir, r.runID)
	tw, err := CreateTickWriter(path)
	if err != nil {
		return nil, err
	}
	idx, err := OpenIndex(filepath.Join(dir, IndexFile), parameter.RecorderQueueSize, r.log)
	if err != nil {
		_ = tw.Close()
		return nil, err
	}
	r.ticks, r.index = tw, idx

	r.info = RunInfo{
		ID:        r.runID,
		Seed:      cfg.Seed,
		StartedAt: time.Now(),
		Prey:      cfg.Prey.Count,
		Hunters:   cfg.Hunter.Count,
		Obstacles: cfg.Obstacles,
		LogPath:   path,
	}
	if err := idx.BeginRun(r.info); err != nil {
		_ = tw.Close()
		_ = idx.Close()
		return nil, err
	}
	r.log.Info("recording run", "run", r.runID, "log", path)
	return r, nil
}

func (r *Recorder) RunID() string { return r.runID }

// WantsKeyframe reports whether the entry for tick should carry a snapshot
func (r *Recorder) WantsKeyframe(tick uint64) bool {
	return r.keyframeEvery > 0 && (tick == 1 || tick%r.keyframeEvery == 0)
}

// Record stores one advancing step; snap is embedded as a keyframe when non-nil
// The index numbers steps per run, so arena resets do not collide with earlier rows
func (r *Recorder) Record(report engine.StepReport, snap *engine.Snapshot) error {
	if err := r.ticks.Write(TickEntry{RunID: r.runID, Report: report, Keyframe: snap}); err != nil {
		return err
	}

	r.info.Ticks++
	r.info.Elapsed = report.Elapsed
	r.info.Conversions += len(report.Conversions)
	if report.AllConverted && r.info.AllConvertedTick == 0 {
		r.info.AllConvertedTick = r.info.Ticks
	}
	if err := r.index.RecordConversions(r.runID, r.info.Ticks, report.Conversions); err != nil {
		return err
	}
	if r.droppedGauge != nil {
		r.droppedGauge.Store(r.index.Dropped())
	}
	return nil
}

// Close finalises the run row and closes both stores
func (r *Recorder) Close() error {
	r.info.EndedAt = time.Now()
	var first error
	if err := r.index.FinishRun(r.info); err != nil {
		first = err
	}
	if err := r.ticks.Close(); err != nil && first == nil {
		first = err
	}
	if err := r.index.Close(); err != nil && first == nil {
		first = err
	}
	r.log.Info("recording closed", "run", r.runID, "ticks", r.info.Ticks, "conversions", r.info.Conversions)
	return errors.Wrap(first, "close recorder")
}

// Summary returns the run totals recorded so far
func (r *Recorder) Summary() RunInfo { return r.info }
