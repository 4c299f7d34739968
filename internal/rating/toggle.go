package rating

import (
	"errors"
	"fmt"
)

// ErrReleased is returned when a toggle from a previous configuration is
// activated after the selector rebuilt its toggles.
var ErrReleased = errors.New("rating: toggle has been released")

// Size is the width×height of a single star toggle, in points.
type Size struct {
	Width  float64 `json:"width"  yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%gx%g", s.Width, s.Height)
}

// Accessibility strings attached to each toggle.
const (
	resetHint = "Tap to reset the rating to zero."
)

// Toggle is one star element owned by a Selector.
//
// A toggle only talks back to its selector through the activation listener
// installed at build time. release() drops that listener, so a stale
// toggle still held by a host (or a client) can never change the rating.
type Toggle struct {
	index    int
	size     Size
	filled   bool
	hint     string
	value    string
	onActive func(index int) error
	released bool
}

// Activate simulates a user tap on this toggle.
func (t *Toggle) Activate() error {
	if t.released || t.onActive == nil {
		return ErrReleased
	}
	return t.onActive(t.index)
}

func (t *Toggle) Index() int     { return t.index }
func (t *Toggle) Size() Size     { return t.size }
func (t *Toggle) Filled() bool   { return t.filled }
func (t *Toggle) Hint() string   { return t.hint }
func (t *Toggle) Value() string  { return t.value }
func (t *Toggle) Released() bool { return t.released }

// Label is the accessibility label, e.g. "Set 3 star rating".
func (t *Toggle) Label() string {
	return fmt.Sprintf("Set %d star rating", t.index+1)
}

func (t *Toggle) release() {
	t.released = true
	t.onActive = nil
}

// State is an immutable snapshot of a toggle, suitable for rendering or
// JSON encoding.
type State struct {
	Index  int     `json:"index"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Filled bool    `json:"filled"`
	Label  string  `json:"label"`
	Hint   string  `json:"hint,omitempty"`
	Value  string  `json:"value"`
}

func (t *Toggle) State() State {
	return State{
		Index:  t.index,
		Width:  t.size.Width,
		Height: t.size.Height,
		Filled: t.filled,
		Label:  t.Label(),
		Hint:   t.hint,
		Value:  t.value,
	}
}
