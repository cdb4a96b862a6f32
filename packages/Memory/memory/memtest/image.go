// Package memtest builds simulated process images for tests that would
// otherwise need a live target.
package memtest

import (
	"encoding/binary"
	"fmt"
	"strings"

	"netvardump/packages/Memory/memory"
)

// Image is a flat little-endian address space starting at Base. Memory is
// handed out by a bump allocator, so every address it returns is readable.
type Image struct {
	Base    uintptr
	Ptr     uintptr
	data    []byte
	modules []memory.ModuleInfo
}

var _ memory.Process = (*Image)(nil)

// New returns an empty image whose pointers are ptrSize bytes wide.
func New(base uintptr, ptrSize uintptr) *Image {
	return &Image{Base: base, Ptr: ptrSize}
}

func (im *Image) PointerSize() uintptr {
	return im.Ptr
}

func (im *Image) ReadMemory(address uintptr, size uintptr) ([]byte, error) {
	if address < im.Base || address+size > im.Base+uintptr(len(im.data)) || address+size < address {
		return nil, fmt.Errorf("read %d bytes at %#x: %w", size, address, memory.ErrShortRead)
	}
	off := address - im.Base
	out := make([]byte, size)
	copy(out, im.data[off:off+size])
	return out, nil
}

func (im *Image) Module(name string) (memory.ModuleInfo, error) {
	for _, m := range im.modules {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return memory.ModuleInfo{}, fmt.Errorf("%s: %w", name, memory.ErrModuleNotFound)
}

// Alloc reserves size zeroed bytes, aligned to 16.
func (im *Image) Alloc(size int) uintptr {
	pad := (16 - len(im.data)%16) % 16
	im.data = append(im.data, make([]byte, pad+size)...)
	return im.Base + uintptr(len(im.data)-size)
}

// AddModule reserves size bytes and registers them as a module.
func (im *Image) AddModule(name string, size int) memory.ModuleInfo {
	m := memory.ModuleInfo{Name: name, BaseAddress: im.Alloc(size), Size: uint32(size)}
	im.modules = append(im.modules, m)
	return m
}

func (im *Image) slice(address uintptr, n int) []byte {
	if address < im.Base || address+uintptr(n) > im.Base+uintptr(len(im.data)) {
		panic(fmt.Sprintf("memtest: write of %d bytes at %#x is outside the image", n, address))
	}
	off := address - im.Base
	return im.data[off : off+uintptr(n)]
}

func (im *Image) PutBytes(address uintptr, b []byte) {
	copy(im.slice(address, len(b)), b)
}

func (im *Image) PutUint16(address uintptr, v uint16) {
	binary.LittleEndian.PutUint16(im.slice(address, 2), v)
}

func (im *Image) PutUint32(address uintptr, v uint32) {
	binary.LittleEndian.PutUint32(im.slice(address, 4), v)
}

func (im *Image) PutPointer(address uintptr, v uintptr) {
	if im.Ptr == 8 {
		binary.LittleEndian.PutUint64(im.slice(address, 8), uint64(v))
		return
	}
	im.PutUint32(address, uint32(v))
}

// String allocates a NUL terminated copy of s and returns its address.
func (im *Image) String(s string) uintptr {
	addr := im.Alloc(len(s) + 1)
	im.PutBytes(addr, []byte(s))
	return addr
}
