package emu

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// DefaultMemorySize is the size of the simulated address space when none is
// configured.
const DefaultMemorySize = 64 << 20

// ErrOutOfBounds is returned for accesses that fall outside memory.
var ErrOutOfBounds = errors.New("memory access out of bounds")

// Memory is a flat little-endian byte-addressed memory.
type Memory struct {
	data []byte
}

// NewMemory creates a zero-filled memory of size bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

// InBounds reports whether [addr, addr+width) lies inside memory.
func (m *Memory) InBounds(addr, width uint32) bool {
	end := uint64(addr) + uint64(width)
	return end <= uint64(len(m.data))
}

// Read reads width (1, 2 or 4) bytes at addr, zero-extended.
func (m *Memory) Read(addr, width uint32) (uint32, error) {
	if !m.InBounds(addr, width) {
		return 0, fmt.Errorf("%w: read %d bytes at 0x%08x", ErrOutOfBounds, width, addr)
	}

	switch width {
	case 1:
		return uint32(m.data[addr]), nil
	case 2:
		return uint32(binary.LittleEndian.Uint16(m.data[addr:])), nil
	case 4:
		return binary.LittleEndian.Uint32(m.data[addr:]), nil
	}

	return 0, fmt.Errorf("invalid access width %d", width)
}

// Write writes the low width (1, 2 or 4) bytes of value at addr.
func (m *Memory) Write(addr, width, value uint32) error {
	if !m.InBounds(addr, width) {
		return fmt.Errorf("%w: write %d bytes at 0x%08x", ErrOutOfBounds, width, addr)
	}

	switch width {
	case 1:
		m.data[addr] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(m.data[addr:], uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(m.data[addr:], value)
	default:
		return fmt.Errorf("invalid access width %d", width)
	}

	return nil
}

// Read32 reads a word, returning 0 when out of bounds.
func (m *Memory) Read32(addr uint32) uint32 {
	v, _ := m.Read(addr, 4)
	return v
}

// Write32 writes a word, ignoring out-of-bounds addresses.
func (m *Memory) Write32(addr, value uint32) {
	_ = m.Write(addr, 4, value)
}

// LoadImage copies image into memory starting at offset.
func (m *Memory) LoadImage(offset uint32, image []byte) error {
	if !m.InBounds(offset, uint32(len(image))) || uint64(len(image)) > uint64(len(m.data)) {
		return fmt.Errorf("%w: image of %d bytes at 0x%08x", ErrOutOfBounds, len(image), offset)
	}

	copy(m.data[offset:], image)
	return nil
}

// Bytes returns a copy of n bytes starting at addr.
func (m *Memory) Bytes(addr, n uint32) ([]byte, error) {
	if !m.InBounds(addr, n) {
		return nil, fmt.Errorf("%w: %d bytes at 0x%08x", ErrOutOfBounds, n, addr)
	}

	out := make([]byte, n)
	copy(out, m.data[addr:])
	return out, nil
}

// CString reads a NUL-terminated string at addr. Reading stops at the end of
// memory.
func (m *Memory) CString(addr uint32) (string, error) {
	if addr >= m.Size() {
		return "", fmt.Errorf("%w: string at 0x%08x", ErrOutOfBounds, addr)
	}

	end := addr
	for end < m.Size() && m.data[end] != 0 {
		end++
	}

	return string(m.data[addr:end]), nil
}

// Equal reports whether two memories have identical contents.
func (m *Memory) Equal(other *Memory) bool {
	return bytes.Equal(m.data, other.data)
}
