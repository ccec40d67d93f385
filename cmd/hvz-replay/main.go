// Command hvz-replay summarises a run recorded with hvz -record
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/recording"
)

var (
	dirFlag     = flag.String("dir", "recordings", "recording directory")
	runFlag     = flag.String("run", "", "run ID (latest when empty)")
	listFlag    = flag.Bool("list", false, "list recorded runs and exit")
	timelineArg = flag.Bool("timeline", false, "print every conversion")
)

// Summary is what replaying one tick log yields
type Summary struct {
	RunID        string
	Entries      int
	Keyframes    int
	LastTick     uint64
	Elapsed      float64
	Conversions  int
	Resets       int
	FinalPrey    int
	FinalHunters int
	// ExtinctAt is the log position of the first all-converted step, 0 if never
	ExtinctAt int
}

func main() {
	flag.Parse()
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "hvz-replay"})

	if err := run(os.Stdout, *dirFlag, *runFlag, *listFlag, *timelineArg); err != nil {
		logger.Error("replay failed", "err", err)
		os.Exit(1)
	}
}

func run(out io.Writer, dir, runID string, list, timeline bool) error {
	idx, err := recording.OpenIndex(filepath.Join(dir, recording.IndexFile), 1, nil)
	if err != nil {
		return err
	}
	defer idx.Close()

	ctx := context.Background()
	runs, err := idx.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return errors.Errorf("no runs recorded in %s", dir)
	}

	if list {
		for _, r := range runs {
			fmt.Fprintf(out, "%s  seed=%d  ticks=%d  conversions=%d  started=%s\n",
				r.ID, r.Seed, r.Ticks, r.Conversions, r.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	}

	info := runs[0]
	if runID != "" {
		if info, err = idx.Run(ctx, runID); err != nil {
			return err
		}
	}

	sum, err := summarize(info.LogPath, func(step int, c recording.TickEntry) {
		if !timeline {
			return
		}
		for _, cv := range c.Report.Conversions {
			fmt.Fprintf(out, "step %6d  t=%7.2fs  prey %d -> hunter %d at (%.1f, %.1f)\n",
				step, c.Report.Elapsed, cv.Prey, cv.Hunter, cv.Position.X(), cv.Position.Z())
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run        %s (seed %d)\n", info.ID, info.Seed)
	fmt.Fprintf(out, "start      prey=%d hunters=%d obstacles=%d\n", info.Prey, info.Hunters, info.Obstacles)
	fmt.Fprintf(out, "steps      %d (%d keyframes, %d resets)\n", sum.Entries, sum.Keyframes, sum.Resets)
	fmt.Fprintf(out, "final      prey=%d hunters=%d at t=%.2fs\n", sum.FinalPrey, sum.FinalHunters, sum.Elapsed)
	fmt.Fprintf(out, "converted  %d\n", sum.Conversions)
	if sum.ExtinctAt > 0 {
		fmt.Fprintf(out, "extinction step %d\n", sum.ExtinctAt)
	}

	indexed, err := idx.Conversions(ctx, info.ID)
	if err != nil {
		return err
	}
	if len(indexed) != sum.Conversions {
		fmt.Fprintf(out, "index      %d of %d conversions indexed\n", len(indexed), sum.Conversions)
	}
	return nil
}

// summarize replays a tick log, calling visit for every entry in order
func summarize(path string, visit func(step int, e recording.TickEntry)) (Summary, error) {
	r, err := recording.OpenTickReader(path)
	if err != nil {
		return Summary{}, err
	}
	defer r.Close()

	var s Summary
	for {
		e, err := r.Next()
		if err == io.EOF {
			return s, nil
		}
		if err != nil {
			return s, errors.Wrapf(err, "entry %d", s.Entries+1)
		}

		s.Entries++
		if s.RunID == "" {
			s.RunID = e.RunID
		}
		if e.Keyframe != nil {
			s.Keyframes++
		}
		if e.Report.Tick < s.LastTick {
			s.Resets++
		}
		s.LastTick = e.Report.Tick
		s.Elapsed = e.Report.Elapsed
		s.Conversions += len(e.Report.Conversions)
		s.FinalPrey, s.FinalHunters = e.Report.Prey, e.Report.Hunters
		if e.Report.AllConverted && s.ExtinctAt == 0 {
			s.ExtinctAt = s.Entries
		}
		if visit != nil {
			visit(s.Entries, e)
		}
	}
}
