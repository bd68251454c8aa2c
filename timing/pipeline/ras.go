package pipeline

import "fmt"

// RASCmd is an operation on the return address stack. Decode requests it
// and it takes effect in the following cycle.
type RASCmd uint8

// RAS commands.
const (
	RASNone RASCmd = iota
	RASPop
	RASPush
)

func (c RASCmd) String() string {
	switch c {
	case RASPop:
		return "pop"
	case RASPush:
		return "push"
	}
	return "none"
}

// RAS is a circular return address stack. Head caches Buffer[HeadPtr];
// 0 means empty.
type RAS struct {
	Buffer  []uint32
	HeadPtr int
	Head    uint32

	Cmd RASCmd
	Arg uint32
}

// apply performs the command pending in curr, writing the stack into r.
// The command and argument already in r belong to the following cycle and
// are left alone.
func (r *RAS) apply(curr *RAS) {
	copy(r.Buffer, curr.Buffer)
	mask := len(r.Buffer) - 1

	switch curr.Cmd {
	case RASNone:
		r.HeadPtr = curr.HeadPtr
	case RASPop:
		r.Buffer[curr.HeadPtr] = 0
		r.HeadPtr = (curr.HeadPtr - 1) & mask
	case RASPush:
		if curr.Arg == 0 {
			panic("pipeline: RAS push of address 0")
		}
		r.HeadPtr = (curr.HeadPtr + 1) & mask
		r.Buffer[r.HeadPtr] = curr.Arg
	default:
		panic(fmt.Sprintf("pipeline: bad RAS command %d", curr.Cmd))
	}

	r.Head = r.Buffer[r.HeadPtr]
}

func (r *RAS) reset() {
	clear(r.Buffer)
	r.HeadPtr = 0
	r.Head = 0
	r.Cmd = RASNone
	r.Arg = 0
}
