package emu

import (
	"bufio"
	"errors"
	"io"
)

// InputEOF is the value delivered to a program reading input after the
// input stream is exhausted.
const InputEOF uint32 = 0xFFFFFFFF

// DebugPort is the host side of the debug protocol: the channel through
// which a simulated program prints text and reads characters.
type DebugPort interface {
	// Print writes a string produced by the program.
	Print(s string) error

	// Input blocks until one character is available and returns it, or
	// InputEOF when no more input exists.
	Input() (uint32, error)
}

// StreamDebugPort implements DebugPort on top of byte streams.
type StreamDebugPort struct {
	out io.Writer
	in  *bufio.Reader
}

// NewStreamDebugPort creates a debug port printing to out and reading from
// in. in may be nil, in which case every input request sees InputEOF.
func NewStreamDebugPort(out io.Writer, in io.Reader) *StreamDebugPort {
	p := &StreamDebugPort{out: out}
	if in != nil {
		p.in = bufio.NewReader(in)
	}
	return p
}

// Print writes s followed by a newline.
func (p *StreamDebugPort) Print(s string) error {
	if p.out == nil {
		return nil
	}

	_, err := io.WriteString(p.out, s+"\n")
	return err
}

// Input reads one line and returns its first character. The rest of the
// line is discarded.
func (p *StreamDebugPort) Input() (uint32, error) {
	if p.in == nil {
		return InputEOF, nil
	}

	line, err := p.in.ReadString('\n')
	if len(line) == 0 {
		if errors.Is(err, io.EOF) {
			return InputEOF, nil
		}
		return InputEOF, err
	}

	return uint32(line[0]), nil
}
