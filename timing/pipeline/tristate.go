package pipeline

import "fmt"

// Tristate is a boolean that must be assigned before it is read. Reading an
// unset Tristate panics, which catches branch-control bits that decode forgot
// to fill in.
type Tristate uint8

// Tristate values.
const (
	Unset Tristate = iota
	False
	True
)

// TriOf converts a bool.
func TriOf(b bool) Tristate {
	if b {
		return True
	}
	return False
}

// IsSet reports whether the value has been assigned.
func (t Tristate) IsSet() bool {
	return t != Unset
}

// Bool returns the assigned value.
func (t Tristate) Bool() bool {
	switch t {
	case True:
		return true
	case False:
		return false
	}
	panic("pipeline: read of unset tristate")
}

// Not returns the negation of an assigned value.
func (t Tristate) Not() Tristate {
	return TriOf(!t.Bool())
}

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	}
	return "unset"
}

// GoString makes unset values stand out in %#v dumps.
func (t Tristate) GoString() string {
	return fmt.Sprintf("Tristate(%s)", t)
}
