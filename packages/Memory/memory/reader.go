package memory

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrModuleNotFound = errors.New("module not found")
	ErrShortRead      = errors.New("short read")
	ErrZeroLength     = errors.New("zero length")
)

// Reader is a read-only view of a foreign address space. Nothing read through
// it is synchronized with the owner, so values may be torn.
type Reader interface {
	ReadMemory(address uintptr, size uintptr) ([]byte, error)
	PointerSize() uintptr
}

// Process is a Reader that also knows which modules are mapped into it.
type Process interface {
	Reader
	Module(name string) (ModuleInfo, error)
}

type ModuleInfo struct {
	Name        string
	BaseAddress uintptr
	Size        uint32
}

func (m ModuleInfo) Contains(address uintptr) bool {
	return address >= m.BaseAddress && address < m.BaseAddress+uintptr(m.Size)
}

func ReadUint32(r Reader, address uintptr) (uint32, error) {
	b, err := r.ReadMemory(address, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func ReadInt32(r Reader, address uintptr) (int32, error) {
	v, err := ReadUint32(r, address)
	return int32(v), err
}

func ReadUint16(r Reader, address uintptr) (uint16, error) {
	b, err := r.ReadMemory(address, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func ReadByte(r Reader, address uintptr) (byte, error) {
	b, err := r.ReadMemory(address, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadPointer reads a pointer sized for the target, not for this process.
func ReadPointer(r Reader, address uintptr) (uintptr, error) {
	if r.PointerSize() == 8 {
		b, err := r.ReadMemory(address, 8)
		if err != nil {
			return 0, err
		}
		return uintptr(binary.LittleEndian.Uint64(b)), nil
	}
	v, err := ReadUint32(r, address)
	return uintptr(v), err
}

// ReadString reads a NUL terminated string of at most maxLength bytes. A
// string without a terminator inside that bound is cut at maxLength.
// Strings are read in small chunks so a short string near the end of a
// mapping does not fail the whole read.
func ReadString(r Reader, address uintptr, maxLength uintptr) (string, error) {
	if maxLength == 0 {
		return "", fmt.Errorf("read string at %#x: %w", address, ErrZeroLength)
	}
	const chunk = 32
	var out []byte
	for uintptr(len(out)) < maxLength {
		n := min(chunk, maxLength-uintptr(len(out)))
		b, err := r.ReadMemory(address+uintptr(len(out)), n)
		if err != nil {
			// the chunk may run past the end of the mapping; retry byte by byte
			b, err = readUntilNul(r, address+uintptr(len(out)), n)
			if err != nil {
				return "", fmt.Errorf("read string at %#x: %w", address, err)
			}
		}
		if idx := bytes.IndexByte(b, 0); idx != -1 {
			return string(append(out, b[:idx]...)), nil
		}
		out = append(out, b...)
	}
	return string(out), nil
}

func readUntilNul(r Reader, address uintptr, n uintptr) ([]byte, error) {
	out := make([]byte, 0, n)
	for i := uintptr(0); i < n; i++ {
		c, err := ReadByte(r, address+i)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		if c == 0 {
			break
		}
	}
	return out, nil
}
