// Package listchange defines the ordered signals list-shaped nodes emit.
//
// A list becomes observable through PreUsableClear, at most one PreUsableAdd
// covering the whole initial population, then Usable. Only after Usable are
// Insert, Remove, replace, move and Clear signals emitted. Insert fires after
// storage has been grown and populated; Remove, BeforeReplace, BeforeMove and
// Clear fire while the affected range can still be read.
package listchange

import "fmt"

type Type int

const (
	Unusable Type = iota
	PreUsableClear
	PreUsableAdd
	Usable
	Insert
	Remove
	BeforeReplace
	AfterReplace
	BeforeMove
	AfterMove
	Clear
)

var typeNames = [...]string{
	Unusable:       "Unusable",
	PreUsableClear: "PreUsableClear",
	PreUsableAdd:   "PreUsableAdd",
	Usable:         "Usable",
	Insert:         "Insert",
	Remove:         "Remove",
	BeforeReplace:  "BeforeReplace",
	AfterReplace:   "AfterReplace",
	BeforeMove:     "BeforeMove",
	AfterMove:      "AfterMove",
	Clear:          "Clear",
}

func (t Type) String() string {
	if t < Unusable || t > Clear {
		return fmt.Sprintf("listchange(%d)", int(t))
	}
	return typeNames[t]
}

// IsMutation reports whether t describes a change to a live list.
func (t Type) IsMutation() bool {
	return t >= Insert
}

// Event is one list-change signal. Target is only meaningful for moves.
type Event struct {
	Type   Type
	Index  int
	Count  int
	Target int
}

func (e Event) String() string {
	switch e.Type {
	case BeforeMove, AfterMove:
		return fmt.Sprintf("%s(%d,%d->%d)", e.Type, e.Index, e.Count, e.Target)
	case Unusable, PreUsableClear, Usable:
		return e.Type.String()
	default:
		return fmt.Sprintf("%s(%d,%d)", e.Type, e.Index, e.Count)
	}
}

func NewUnusable() Event       { return Event{Type: Unusable} }
func NewPreUsableClear() Event { return Event{Type: PreUsableClear} }
func NewUsable() Event         { return Event{Type: Usable} }

func NewPreUsableAdd(index, count int) Event {
	return Event{Type: PreUsableAdd, Index: index, Count: count}
}

func NewInsert(index, count int) Event { return Event{Type: Insert, Index: index, Count: count} }
func NewRemove(index, count int) Event { return Event{Type: Remove, Index: index, Count: count} }
func NewClear(count int) Event         { return Event{Type: Clear, Index: 0, Count: count} }

func NewBeforeReplace(index, count int) Event {
	return Event{Type: BeforeReplace, Index: index, Count: count}
}

func NewAfterReplace(index, count int) Event {
	return Event{Type: AfterReplace, Index: index, Count: count}
}

func NewBeforeMove(from, count, to int) Event {
	return Event{Type: BeforeMove, Index: from, Count: count, Target: to}
}

func NewAfterMove(from, count, to int) Event {
	return Event{Type: AfterMove, Index: from, Count: count, Target: to}
}
