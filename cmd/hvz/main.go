package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/lixenwraith/hvz/audio"
	"github.com/lixenwraith/hvz/config"
	"github.com/lixenwraith/hvz/engine"
	"github.com/lixenwraith/hvz/input"
	"github.com/lixenwraith/hvz/observer"
	"github.com/lixenwraith/hvz/parameter"
	"github.com/lixenwraith/hvz/recording"
	"github.com/lixenwraith/hvz/render"
	"github.com/lixenwraith/hvz/status"
)

var (
	configFlag   = flag.String("config", "", "scenario YAML file (defaults when empty)")
	seedFlag     = flag.Uint64("seed", 0, "override the scenario seed")
	headlessFlag = flag.Bool("headless", false, "run without a terminal UI")
	ticksFlag    = flag.Int("ticks", parameter.HeadlessDefaultTicks, "headless tick limit")
	debugFlag    = flag.Bool("debug", false, "debug logging (logs/hvz.log, or stderr when headless)")
	observeFlag  = flag.String("observe", "", "serve /snapshot and /ws on this address, e.g. 127.0.0.1:8089")
	recordFlag   = flag.String("record", "", "record the run into this directory")
)

func main() {
	flag.Parse()

	file, err := loadScenario(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hvz: %v\n", err)
		os.Exit(2)
	}
	seedSet := false
	flag.Visit(func(f *flag.Flag) { seedSet = seedSet || f.Name == "seed" })
	if seedSet {
		file.Seed = *seedFlag
	}

	cfg, err := file.EngineConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hvz: %v\n", err)
		os.Exit(2)
	}

	var logger *log.Logger
	if *headlessFlag {
		logger = headlessLogger(os.Stderr, *debugFlag)
	} else {
		var logFile *os.File
		logger, logFile = setupLogging(*debugFlag)
		if logFile != nil {
			defer logFile.Close()
		}
	}

	if err := run(file, cfg, logger); err != nil {
		logger.Error("hvz failed", "err", err)
		fmt.Fprintf(os.Stderr, "hvz: %v\n", err)
		os.Exit(1)
	}
}

// recoverCrash must be deferred directly; it restores the terminal before printing
// the trace so the output stays readable, then reports the panic through errp
func recoverCrash(w io.Writer, fini func(), errp *error) {
	r := recover()
	fini()
	if r == nil {
		return
	}
	fmt.Fprintf(w, "\n\x1b[31mHVZ CRASHED: %v\x1b[0m\n", r)
	fmt.Fprintf(w, "Stack Trace:\n%s\n", debug.Stack())
	*errp = errors.Errorf("crashed: %v", r)
}

func loadScenario(path string) (config.File, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(file config.File, cfg engine.Config, logger *log.Logger) error {
	registry := status.NewRegistry()
	sim, err := engine.New(cfg,
		engine.WithLogger(logger),
		engine.WithStatus(registry),
		engine.WithPreyTargeting(file.TargetPolicy()),
	)
	if err != nil {
		return err
	}

	keys := input.DefaultKeyMap()
	if err := keys.Apply(file.Keys); err != nil {
		return errors.Wrap(err, "key bindings")
	}

	h := &host{
		log:          logger,
		sim:          sim,
		registry:     registry,
		clock:        engine.NewFrameClock(engine.MonotonicTimeProvider{}, parameter.MaxFrameDelta),
		keys:         keys,
		publishEvery: parameter.ObserverPublishEvery,
	}

	runID := uuid.NewString()
	if *recordFlag != "" {
		rec, err := recording.NewRecorder(*recordFlag, cfg,
			recording.WithRecorderLogger(logger),
			recording.WithRecorderStatus(registry),
		)
		if err != nil {
			return errors.Wrap(err, "start recorder")
		}
		h.recorder = rec
		runID = rec.RunID()
		defer func() {
			if h.recorder != nil {
				if err := h.recorder.Close(); err != nil {
					logger.Error("close recorder", "err", err)
				}
			}
		}()
	}
	registry.Strings.Get(status.KeyRunID).Store(runID)

	if *observeFlag != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		h.observer = observer.NewServer(logger, registry, runID)
		go func() {
			if err := h.observer.ListenAndServe(ctx, *observeFlag); err != nil {
				logger.Error("observer stopped", "err", err)
			}
		}()
		logger.Info("observer listening", "addr", *observeFlag)
	}

	if *headlessFlag {
		h.runHeadless(*ticksFlag)
		return nil
	}
	return runTerminal(h, registry)
}

// runTerminal owns the screen for the interactive session
// A panic comes back as an error so run's deferred recorder and observer shutdown still execute
func runTerminal(h *host, registry *status.Registry) (err error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return errors.Wrap(err, "create screen")
	}
	if err := screen.Init(); err != nil {
		return errors.Wrap(err, "init screen")
	}

	defer recoverCrash(os.Stderr, screen.Fini, &err)

	sound := audio.NewSoundManager()
	if err := sound.Initialize(); err != nil {
		h.log.Warn("audio unavailable, continuing without sound", "err", err)
	} else {
		defer sound.Cleanup()
	}
	h.sound = sound

	h.renderer = render.NewArenaRenderer(screen, registry)
	h.runInteractive(screen)
	return nil
}
