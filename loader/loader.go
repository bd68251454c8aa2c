// Package loader loads RV32I programs into simulator memory.
//
// Two formats are understood: 32-bit little-endian RISC-V ELF executables,
// and raw flat binaries accompanied by an entry file. A flat binary is copied
// to BinOffset; its entry file (same path with the extension replaced by
// ".enp") holds the entry point as a hexadecimal offset into the binary.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sarchlab/rvsim/emu"
)

// BinOffset is the load address of flat binaries.
const BinOffset = 4096

// EntryFileExt is the extension of the entry file accompanying a flat binary.
const EntryFileExt = ".enp"

var (
	// ErrNoEntryFile is returned when a flat binary has no entry file.
	ErrNoEntryFile = errors.New("missing entry file")
	// ErrInvalidEntry is returned when the entry file cannot be parsed.
	ErrInvalidEntry = errors.New("invalid entry point")
	// ErrImageTooLarge is returned when a program does not fit in memory.
	ErrImageTooLarge = errors.New("program image too large")
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Segment represents a contiguous piece of the program image.
type Segment struct {
	// Addr is the address where this segment is loaded.
	Addr uint32
	// Data contains the segment contents.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// Entry is the address where execution begins.
	Entry uint32
	// Segments contains all loadable segments.
	Segments []Segment
}

// End returns the first address past the highest loaded segment. Stores
// below it write into the program image.
func (p *Program) End() uint32 {
	var end uint32
	for _, seg := range p.Segments {
		if e := seg.Addr + seg.MemSize; e > end {
			end = e
		}
	}
	return end
}

// Size returns the total number of bytes the program occupies in memory.
func (p *Program) Size() uint32 {
	var n uint32
	for _, seg := range p.Segments {
		n += seg.MemSize
	}
	return n
}

// LoadInto copies every segment into mem. Bytes between the file size and
// the memory size of a segment are zeroed.
func (p *Program) LoadInto(mem *emu.Memory) error {
	for _, seg := range p.Segments {
		if !mem.InBounds(seg.Addr, seg.MemSize) {
			return fmt.Errorf("%w: segment at 0x%x (%d bytes) exceeds %d bytes of memory",
				ErrImageTooLarge, seg.Addr, seg.MemSize, mem.Size())
		}

		image := make([]byte, seg.MemSize)
		copy(image, seg.Data)
		if err := mem.LoadImage(seg.Addr, image); err != nil {
			return err
		}
	}

	return nil
}

// Load reads a program from path, detecting the format from its contents.
func Load(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	if bytes.HasPrefix(data, []byte("\x7fELF")) {
		return LoadELF(path)
	}

	return loadFlat(path, data)
}

// LoadFlat loads a flat binary and its entry file.
func LoadFlat(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	return loadFlat(path, data)
}

// EntryFilePath returns the entry file path belonging to a flat binary.
func EntryFilePath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + EntryFileExt
}

func loadFlat(path string, data []byte) (*Program, error) {
	if uint64(len(data))+BinOffset > 1<<32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, len(data))
	}

	enp, err := os.ReadFile(EntryFilePath(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoEntryFile, err)
	}

	text := strings.TrimPrefix(strings.TrimSpace(string(enp)), "0x")
	if fields := strings.Fields(text); len(fields) > 0 {
		text = fields[0]
	}
	entry, err := strconv.ParseUint(text, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntry, strings.TrimSpace(string(enp)))
	}

	return &Program{
		Entry: uint32(entry) + BinOffset,
		Segments: []Segment{{
			Addr:    BinOffset,
			Data:    data,
			MemSize: uint32(len(data)),
			Flags:   SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}, nil
}

// FromImage wraps an in-memory image as a flat program loaded at base.
func FromImage(base uint32, image []byte, entry uint32) *Program {
	return &Program{
		Entry: entry,
		Segments: []Segment{{
			Addr:    base,
			Data:    image,
			MemSize: uint32(len(image)),
			Flags:   SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
	}
}
