// Package rating implements the star-rating selector: a row of toggle
// elements that maps taps to an integer rating.
//
// HOW IT FITS:
// The selector is UI-toolkit agnostic. It owns plain Toggle values and
// arranges them in a Host; a real UI binding implements Host and forwards
// button taps to Toggle.Activate. Every state change goes through an
// explicit method (Configure, SetRating, Activate) which validates first
// and then runs the refresh procedure directly. Nothing happens implicitly.
//
// TRANSITION LAW:
// Tapping star i (zero-based) sets the rating to i+1, unless the rating is
// already i+1, in which case it goes back to 0 ("toggle-off").
package rating

import (
	"fmt"

	"github.com/sakif/foodtracker/internal/apperror"
)

const (
	DefaultStarCount = 5
)

// DefaultSize is the size of a star when none is configured.
var DefaultSize = Size{Width: 44, Height: 44}

// Selector is the rating control. It is not safe for concurrent use; like
// any UI control it lives on a single event thread.
type Selector struct {
	rating    int
	starCount int
	starSize  Size
	toggles   []*Toggle
	host      Host
	onChange  func(rating int)
}

// Option customises a Selector at construction time.
type Option func(*Selector)

// WithHost arranges the toggles in h instead of a no-op host.
func WithHost(h Host) Option {
	return func(s *Selector) { s.host = h }
}

func WithStarCount(n int) Option {
	return func(s *Selector) { s.starCount = n }
}

func WithStarSize(size Size) Option {
	return func(s *Selector) { s.starSize = size }
}

// WithOnChange registers fn to be called after every rating change. This
// replaces property binding: the embedding form reads the rating through
// this callback or through Rating().
func WithOnChange(fn func(rating int)) Option {
	return func(s *Selector) { s.onChange = fn }
}

// New builds a selector with rating 0. Invalid star count or size options
// fall back to the defaults so New never fails.
func New(opts ...Option) *Selector {
	s := &Selector{
		starCount: DefaultStarCount,
		starSize:  DefaultSize,
		host:      nopHost{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.host == nil {
		s.host = nopHost{}
	}
	if s.starCount < 1 {
		s.starCount = DefaultStarCount
	}
	if !validSize(s.starSize) {
		s.starSize = DefaultSize
	}

	s.setupToggles()
	return s
}

// Configure rebuilds the toggles: every existing toggle is detached from the
// host and released, then exactly starCount new toggles of the given size
// are attached. Calling it twice with the same arguments gives the same
// visible state.
//
// If the current rating is larger than the new star count it is lowered to
// starCount so that 0 ≤ rating ≤ starCount keeps holding.
func (s *Selector) Configure(starCount int, size Size) error {
	if starCount < 1 {
		return apperror.ValidationFailed("starCount",
			fmt.Sprintf("star count must be at least 1, got %d", starCount))
	}
	if !validSize(size) {
		return apperror.ValidationFailed("starSize",
			fmt.Sprintf("star size must be positive, got %s", size))
	}

	s.starCount = starCount
	s.starSize = size

	old := s.rating
	if s.rating > s.starCount {
		s.rating = s.starCount
	}

	s.setupToggles()

	if s.rating != old {
		s.notify()
	}
	return nil
}

// SetStarCount changes the number of stars, keeping the current size.
func (s *Selector) SetStarCount(n int) error {
	return s.Configure(n, s.starSize)
}

// SetStarSize changes the size of every star, keeping the current count.
func (s *Selector) SetStarSize(size Size) error {
	return s.Configure(s.starCount, size)
}

// SetRating sets the rating from outside the control (e.g. when a form is
// loaded in edit mode). Values outside [0, StarCount()] are rejected and
// leave the selector untouched.
func (s *Selector) SetRating(value int) error {
	if value < 0 || value > s.starCount {
		return apperror.ValidationFailed("rating",
			fmt.Sprintf("rating must be between 0 and %d, got %d", s.starCount, value))
	}
	s.apply(value)
	return nil
}

// Activate handles a tap on the toggle at index (zero-based).
func (s *Selector) Activate(index int) error {
	if index < 0 || index >= len(s.toggles) {
		return apperror.NotFound("star", index)
	}
	s.apply(Next(s.rating, index))
	return nil
}

// Next is the transition function of the control: the rating that results
// from tapping the toggle at index while the rating is current.
func Next(current, index int) int {
	selected := index + 1
	if selected == current {
		return 0
	}
	return selected
}

func (s *Selector) Rating() int    { return s.rating }
func (s *Selector) StarCount() int { return s.starCount }
func (s *Selector) StarSize() Size { return s.starSize }

// Toggles returns the live toggles in order. Callers must not keep them
// across a Configure call; released toggles refuse activation.
func (s *Selector) Toggles() []*Toggle {
	out := make([]*Toggle, len(s.toggles))
	copy(out, s.toggles)
	return out
}

// States returns a rendering snapshot of every toggle.
func (s *Selector) States() []State {
	out := make([]State, 0, len(s.toggles))
	for _, t := range s.toggles {
		out = append(out, t.State())
	}
	return out
}

// ValueText is the accessibility value summarising a rating.
func ValueText(rating int) string {
	switch rating {
	case 0:
		return "No rating set."
	case 1:
		return "1 star set."
	default:
		return fmt.Sprintf("%d stars set.", rating)
	}
}

func (s *Selector) apply(value int) {
	changed := value != s.rating
	s.rating = value
	s.refresh()
	if changed {
		s.notify()
	}
}

func (s *Selector) notify() {
	if s.onChange != nil {
		s.onChange(s.rating)
	}
}

// setupToggles clears the existing toggles and builds a fresh set.
func (s *Selector) setupToggles() {
	for _, t := range s.toggles {
		s.host.Detach(t)
		t.release()
	}
	s.toggles = s.toggles[:0:0]

	for i := 0; i < s.starCount; i++ {
		t := &Toggle{
			index:    i,
			size:     s.starSize,
			onActive: s.Activate,
		}
		s.host.Attach(t)
		s.toggles = append(s.toggles, t)
	}

	s.refresh()
}

// refresh updates filled state, hint and value of every toggle from the
// current rating.
func (s *Selector) refresh() {
	value := ValueText(s.rating)
	for i, t := range s.toggles {
		t.filled = i < s.rating
		if i == s.rating-1 {
			t.hint = resetHint
		} else {
			t.hint = ""
		}
		t.value = value
	}
}

func validSize(size Size) bool {
	return size.Width > 0 && size.Height > 0
}
