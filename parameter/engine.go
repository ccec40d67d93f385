package parameter

import "time"

// Frame loop & host timing
const (
	// FrameUpdateInterval is the host frame interval (~60 FPS)
	FrameUpdateInterval = 16 * time.Millisecond

	// MaxFrameDelta caps a single step so a stalled host does not tunnel agents through each other
	MaxFrameDelta = 100 * time.Millisecond

	// HeadlessStepDelta is the fixed step used by headless runs
	HeadlessStepDelta = time.Second / 60

	// HeadlessDefaultTicks is the headless run length when -ticks is not given
	HeadlessDefaultTicks = 3600
)

// Observer & recording
const (
	// ObserverPublishEvery sends one observer frame every N ticks
	ObserverPublishEvery = 2

	// ObserverClientBuffer is the per-client frame backlog before frames are dropped
	ObserverClientBuffer = 16

	// RecorderQueueSize is the sqlite writer backlog
	RecorderQueueSize = 4096

	// RecorderKeyframeEvery embeds a full snapshot in the tick log every N ticks
	RecorderKeyframeEvery = 60
)
