package rating

// Host is the container the selector arranges its toggles in. A UI binding
// implements it to add and remove the actual button views; the selector
// only promises to Detach every toggle it previously Attached before
// attaching a new set.
type Host interface {
	Attach(t *Toggle)
	Detach(t *Toggle)
}

type nopHost struct{}

func (nopHost) Attach(*Toggle) {}
func (nopHost) Detach(*Toggle) {}

// Stack is an in-memory Host that keeps attached toggles in order.
// Headless sessions render from it; tests use it to check that no toggle
// from an earlier configuration stays attached.
type Stack struct {
	arranged []*Toggle
}

func NewStack() *Stack {
	return &Stack{}
}

func (s *Stack) Attach(t *Toggle) {
	s.arranged = append(s.arranged, t)
}

func (s *Stack) Detach(t *Toggle) {
	for i, a := range s.arranged {
		if a == t {
			s.arranged = append(s.arranged[:i], s.arranged[i+1:]...)
			return
		}
	}
}

// Arranged returns the currently attached toggles in display order.
func (s *Stack) Arranged() []*Toggle {
	out := make([]*Toggle, len(s.arranged))
	copy(out, s.arranged)
	return out
}

func (s *Stack) Len() int { return len(s.arranged) }
