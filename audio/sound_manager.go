package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const (
	sampleRate = beep.SampleRate(48000)

	// maxVoices caps overlapping cues; a burst of conversions plays as one
	maxVoices = 4

	conversionDuration = 180 * time.Millisecond
	extinctionDuration = 1200 * time.Millisecond
)

// SoundManager plays simulation cues through a shared mixer
// Every method is a no-op until Initialize succeeds, so hosts without audio devices keep running
type SoundManager struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
	muted       bool
}

func NewSoundManager() *SoundManager {
	return &SoundManager{mixer: &beep.Mixer{}}
}

// Initialize opens the speaker and starts the mixer, repeated calls are no-ops
func (sm *SoundManager) Initialize() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(sm.mixer)
	sm.initialized = true
	return nil
}

// Cleanup drops queued cues; the speaker itself has no close
func (sm *SoundManager) Cleanup() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized {
		return
	}
	speaker.Lock()
	sm.mixer.Clear()
	speaker.Unlock()
	sm.initialized = false
}

// ToggleMute flips muting and returns true when now muted
func (sm *SoundManager) ToggleMute() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.muted = !sm.muted
	return sm.muted
}

// PlayConversion plays a short rising bite for a prey turning into a hunter
func (sm *SoundManager) PlayConversion() {
	sm.play(beep.Take(sampleRate.N(conversionDuration), NewChirpGenerator(sampleRate, 220, 660, conversionDuration)))
}

// PlayExtinction plays a long falling tone once the last prey is gone
func (sm *SoundManager) PlayExtinction() {
	sm.play(beep.Take(sampleRate.N(extinctionDuration), NewChirpGenerator(sampleRate, 440, 70, extinctionDuration)))
}

func (sm *SoundManager) play(s beep.Streamer) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.initialized || sm.muted {
		return
	}
	speaker.Lock()
	defer speaker.Unlock()
	if sm.mixer.Len() >= maxVoices {
		return
	}
	sm.mixer.Add(s)
}

// ChirpGenerator sweeps a sine from one frequency to another under a decaying envelope
type ChirpGenerator struct {
	sr       beep.SampleRate
	from, to float64
	total    int
	pos      int
	phase    float64
}

func NewChirpGenerator(sr beep.SampleRate, from, to float64, d time.Duration) *ChirpGenerator {
	return &ChirpGenerator{
		sr:    sr,
		from:  from,
		to:    to,
		total: max(sr.N(d), 1),
	}
}

// Frequency returns the instantaneous frequency at the current position
func (g *ChirpGenerator) Frequency() float64 {
	progress := math.Min(float64(g.pos)/float64(g.total), 1)
	return g.from + (g.to-g.from)*progress
}

func (g *ChirpGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		progress := math.Min(float64(g.pos)/float64(g.total), 1)

		// 5ms attack then exponential decay
		attack := math.Min(float64(g.pos)/float64(g.sr.N(5*time.Millisecond)), 1)
		envelope := attack * math.Exp(-3*progress)

		g.phase += 2 * math.Pi * g.Frequency() / float64(g.sr)
		if g.phase > 2*math.Pi {
			g.phase -= 2 * math.Pi
		}

		sample := 0.25 * envelope * (math.Sin(g.phase) + 0.3*math.Sin(2*g.phase))
		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *ChirpGenerator) Err() error {
	return nil
}
