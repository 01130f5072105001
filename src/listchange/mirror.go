package listchange

import "fmt"

// Mirror keeps a consumer-side copy of a list by applying signals in order.
// It reads items through at, which must reflect the source list at the moment
// each signal is delivered. Protocol violations are collected in Violations.
type Mirror[T any] struct {
	at         func(index int) T
	items      []T
	live       bool
	primed     bool
	Violations []string
}

func NewMirror[T any](at func(index int) T) *Mirror[T] {
	return &Mirror[T]{at: at}
}

func (m *Mirror[T]) Items() []T {
	out := make([]T, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Mirror[T]) Live() bool { return m.live }

func (m *Mirror[T]) Len() int { return len(m.items) }

func (m *Mirror[T]) violate(format string, args ...any) {
	m.Violations = append(m.Violations, fmt.Sprintf(format, args...))
}

func (m *Mirror[T]) read(index, count int) []T {
	out := make([]T, count)
	for i := 0; i < count; i++ {
		out[i] = m.at(index + i)
	}
	return out
}

// Apply handles one signal. It is shaped to be passed directly as a handler.
func (m *Mirror[T]) Apply(e Event) {
	if e.Type.IsMutation() && !m.live {
		m.violate("%s before Usable", e)
		return
	}

	switch e.Type {
	case Unusable:
		m.live = false
		m.primed = false
	case PreUsableClear:
		if m.live {
			m.violate("PreUsableClear while live")
		}
		m.items = m.items[:0]
		m.primed = true
	case PreUsableAdd:
		if !m.primed {
			m.violate("PreUsableAdd without PreUsableClear")
		}
		m.items = append(m.items, m.read(e.Index, e.Count)...)
	case Usable:
		if !m.primed {
			m.violate("Usable without PreUsableClear")
		}
		m.live = true
	case Insert:
		if e.Index < 0 || e.Index > len(m.items) {
			m.violate("%s out of range (len %d)", e, len(m.items))
			return
		}
		added := m.read(e.Index, e.Count)
		tail := append(added, m.items[e.Index:]...)
		m.items = append(m.items[:e.Index], tail...)
	case Remove:
		if e.Index < 0 || e.Index+e.Count > len(m.items) {
			m.violate("%s out of range (len %d)", e, len(m.items))
			return
		}
		m.items = append(m.items[:e.Index], m.items[e.Index+e.Count:]...)
	case BeforeReplace, BeforeMove:
	case AfterReplace:
		if e.Index < 0 || e.Index+e.Count > len(m.items) {
			m.violate("%s out of range (len %d)", e, len(m.items))
			return
		}
		copy(m.items[e.Index:], m.read(e.Index, e.Count))
	case AfterMove:
		lo, hi := e.Index, e.Target
		if hi < lo {
			lo, hi = hi, lo
		}
		hi += e.Count
		if lo < 0 || hi > len(m.items) {
			m.violate("%s out of range (len %d)", e, len(m.items))
			return
		}
		copy(m.items[lo:], m.read(lo, hi-lo))
	case Clear:
		m.items = m.items[:0]
	default:
		m.violate("unknown signal %s", e)
	}
}
