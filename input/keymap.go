package input

import (
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/pkg/errors"
)

var (
	ErrUnknownKey    = errors.New("unknown key")
	ErrUnknownAction = errors.New("unknown action")
)

// Named keys accepted by Bind in addition to single runes
var specialKeyNames = map[string]tcell.Key{
	"esc":    tcell.KeyEscape,
	"enter":  tcell.KeyEnter,
	"tab":    tcell.KeyTab,
	"ctrl+c": tcell.KeyCtrlC,
	"ctrl+q": tcell.KeyCtrlQ,
	"ctrl+r": tcell.KeyCtrlR,
	"f1":     tcell.KeyF1,
	"f2":     tcell.KeyF2,
	"f3":     tcell.KeyF3,
	"f4":     tcell.KeyF4,
}

// Rune aliases for keys awkward to write bare in YAML
var runeAliases = map[string]rune{
	"space": ' ',
}

// KeyMap resolves key events to actions
type KeyMap struct {
	SpecialKeys map[tcell.Key]Action
	Runes       map[rune]Action
}

// DefaultKeyMap returns the stock bindings
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		SpecialKeys: map[tcell.Key]Action{
			tcell.KeyEscape: ActionQuit,
			tcell.KeyCtrlC:  ActionQuit,
			tcell.KeyCtrlQ:  ActionQuit,
			tcell.KeyCtrlR:  ActionReset,
		},
		Runes: map[rune]Action{
			'q': ActionQuit,
			' ': ActionPause,
			'p': ActionPause,
			'r': ActionReset,
			'd': ActionToggleLines,
			'h': ActionBoostPrey,
			'z': ActionBoostHunters,
			'm': ActionMute,
		},
	}
}

// Resolve returns the action bound to ev, ActionNone when unbound
func (km *KeyMap) Resolve(ev *tcell.EventKey) Action {
	if ev == nil {
		return ActionNone
	}
	if ev.Key() == tcell.KeyRune {
		return km.Runes[ev.Rune()]
	}
	return km.SpecialKeys[ev.Key()]
}

// Bind maps a key name to an action name, "none" unbinds
func (km *KeyMap) Bind(key, action string) error {
	a, ok := ActionByName(strings.ToLower(action))
	if !ok {
		return errors.Wrapf(ErrUnknownAction, "%q", action)
	}

	name := strings.ToLower(key)
	if k, ok := specialKeyNames[name]; ok {
		km.set(func() { delete(km.SpecialKeys, k) }, func() { km.SpecialKeys[k] = a }, a)
		return nil
	}

	r, ok := runeAliases[name]
	if !ok {
		runes := []rune(key)
		if len(runes) != 1 {
			return errors.Wrapf(ErrUnknownKey, "%q", key)
		}
		r = runes[0]
	}
	km.set(func() { delete(km.Runes, r) }, func() { km.Runes[r] = a }, a)
	return nil
}

func (km *KeyMap) set(unbind, bind func(), a Action) {
	if a == ActionNone {
		unbind()
		return
	}
	bind()
}

// Apply binds every entry, stopping at the first invalid one
func (km *KeyMap) Apply(bindings map[string]string) error {
	for key, action := range bindings {
		if err := km.Bind(key, action); err != nil {
			return err
		}
	}
	return nil
}
