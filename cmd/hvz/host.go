package main

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/hvz/engine"
	"github.com/lixenwraith/hvz/input"
	"github.com/lixenwraith/hvz/observer"
	"github.com/lixenwraith/hvz/parameter"
	"github.com/lixenwraith/hvz/recording"
	"github.com/lixenwraith/hvz/render"
	"github.com/lixenwraith/hvz/status"
	"github.com/lixenwraith/hvz/steering"
)

// cuePlayer is the audio surface the host drives
type cuePlayer interface {
	PlayConversion()
	PlayExtinction()
	ToggleMute() bool
}

// host wires one coordinator to its optional outputs; every output may be nil
type host struct {
	log      *log.Logger
	sim      *engine.Coordinator
	registry *status.Registry
	clock    *engine.FrameClock
	keys     *input.KeyMap

	sound    cuePlayer
	renderer *render.ArenaRenderer
	observer *observer.Server
	recorder *recording.Recorder

	publishEvery uint64
}

// step advances the simulation and fans the result out to cues, recorder and observers
func (h *host) step(dt float64) engine.StepReport {
	report := h.sim.Step(dt)
	if !(dt > 0) {
		return report
	}

	if h.sound != nil {
		if len(report.Conversions) > 0 {
			h.sound.PlayConversion()
		}
		if report.AllConverted {
			h.sound.PlayExtinction()
		}
	}
	if report.AllConverted {
		h.log.Info("all prey converted", "tick", report.Tick, "elapsed", report.Elapsed, "hunters", report.Hunters)
	}

	if h.recorder != nil {
		var snap *engine.Snapshot
		if h.recorder.WantsKeyframe(report.Tick) {
			s := h.sim.Snapshot()
			snap = &s
		}
		if err := h.recorder.Record(report, snap); err != nil {
			h.log.Error("recording stopped", "err", err)
			_ = h.recorder.Close()
			h.recorder = nil
		}
	}

	if h.observer != nil && (len(report.Conversions) > 0 || report.Tick%h.publishEvery == 0) {
		if err := h.observer.Publish(h.sim.Snapshot(), report); err != nil {
			h.log.Warn("observer publish", "err", err)
		}
	}
	return report
}

// handle applies one action and reports whether the host should exit
func (h *host) handle(a input.Action) bool {
	switch a {
	case input.ActionQuit:
		return true
	case input.ActionPause:
		paused := h.clock.Toggle()
		h.registry.Bools.Get(status.KeyPaused).Store(paused)
		h.log.Debug("pause", "on", paused)
	case input.ActionReset:
		h.sim.Reset()
		h.log.Info("arena reset by user")
	case input.ActionToggleLines:
		if h.renderer != nil {
			h.renderer.ToggleLines()
		}
	case input.ActionBoostPrey:
		h.sim.ToggleSpeedBoost(steering.RolePrey)
	case input.ActionBoostHunters:
		h.sim.ToggleSpeedBoost(steering.RoleHunter)
	case input.ActionMute:
		if h.sound != nil {
			h.log.Debug("mute", "on", h.sound.ToggleMute())
		}
	}
	return false
}

// runHeadless steps with a fixed delta until ticks have run or every prey is converted
func (h *host) runHeadless(ticks int) engine.StepReport {
	dt := parameter.HeadlessStepDelta.Seconds()
	var last engine.StepReport
	for i := 0; i < ticks; i++ {
		last = h.step(dt)
		if last.AllConverted {
			break
		}
	}
	h.log.Info("headless run finished", "ticks", last.Tick, "elapsed", last.Elapsed,
		"prey", last.Prey, "hunters", last.Hunters)
	return last
}

// runInteractive renders at the frame interval and dispatches key events until quit
func (h *host) runInteractive(screen tcell.Screen) {
	events := make(chan tcell.Event, 256)
	quit := make(chan struct{})
	defer close(quit)
	go screen.ChannelEvents(events, quit)

	ticker := time.NewTicker(parameter.FrameUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if h.handle(h.keys.Resolve(ev)) {
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case <-ticker.C:
			h.step(h.clock.Next())
			snap := h.sim.Snapshot()
			h.renderer.Render(&snap)
		}
	}
}
