package input

// Action is a host command produced by a key press
type Action uint8

const (
	ActionNone Action = iota
	ActionQuit
	ActionPause
	ActionReset
	ActionToggleLines
	ActionBoostPrey
	ActionBoostHunters
	ActionMute
)

// actionNames are the canonical names used in scenario key overrides
var actionNames = map[string]Action{
	"none":          ActionNone,
	"quit":          ActionQuit,
	"pause":         ActionPause,
	"reset":         ActionReset,
	"toggle_lines":  ActionToggleLines,
	"boost_prey":    ActionBoostPrey,
	"boost_hunters": ActionBoostHunters,
	"mute":          ActionMute,
}

func (a Action) String() string {
	for name, v := range actionNames {
		if v == a && name != "none" {
			return name
		}
	}
	return "none"
}

// ActionByName resolves a canonical action name
func ActionByName(name string) (Action, bool) {
	a, ok := actionNames[name]
	return a, ok
}
