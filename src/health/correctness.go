package health

import "fmt"

// Correctness grades how far a node's data can be trusted.
// Values are ordered from best to worst so merging is a max.
type Correctness int

const (
	Good Correctness = iota
	Usable
	Suspect
	Error
)

var correctnessNames = [...]string{
	Good:    "good",
	Usable:  "usable",
	Suspect: "suspect",
	Error:   "error",
}

func (c Correctness) String() string {
	if c < Good || c > Error {
		return fmt.Sprintf("correctness(%d)", int(c))
	}
	return correctnessNames[c]
}

func (c Correctness) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// IsUsable reports whether consumers may rely on data of this grade.
func (c Correctness) IsUsable() bool {
	return c == Good || c == Usable
}

// Merge returns the least usable of a and b.
func Merge(a, b Correctness) Correctness {
	if a > b {
		return a
	}
	return b
}

// MergeAll folds Merge over levels; no levels yields Good.
func MergeAll(levels ...Correctness) Correctness {
	result := Good
	for _, level := range levels {
		result = Merge(result, level)
	}
	return result
}

// Optional is a correctness that may not be known yet.
type Optional struct {
	Value Correctness
	Valid bool
}

func Some(c Correctness) Optional { return Optional{Value: c, Valid: true} }

var None = Optional{}

// MergeOptional merges two optional levels, treating an absent side as identity.
func MergeOptional(a, b Optional) Optional {
	switch {
	case !a.Valid:
		return b
	case !b.Valid:
		return a
	default:
		return Some(Merge(a.Value, b.Value))
	}
}

// MergeWithOptional merges a known level with an optional one.
func MergeWithOptional(a Correctness, b Optional) Correctness {
	if !b.Valid {
		return a
	}
	return Merge(a, b.Value)
}
