package memory

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// ErrUnexpectedCode is returned when the instructions at an address are not
// the ones the decoder expects, usually because the target build changed.
var ErrUnexpectedCode = errors.New("unexpected instruction bytes")

const (
	opJmpRel32 = 0xE9 // jmp rel32

	// how far into a function the wanted instruction may start, enough to
	// step over a push ebp / mov ebp, esp prologue
	prologueWindow = 8
	// longest encoding of the instructions matched below (mov eax, [disp32])
	maxMovLen = 6
)

// findMovEax walks the instructions of the prologue window from the start
// and returns the first "mov eax, x" whose source operand match accepts.
func findMovEax(code []byte, match func(x86asm.Arg) (uint32, bool)) (uint32, bool) {
	for off := 0; off <= prologueWindow && off < len(code); {
		inst, err := x86asm.Decode(code[off:], 32)
		if err != nil {
			return 0, false
		}
		if inst.Op == x86asm.MOV && inst.Args[0] == x86asm.EAX {
			if v, ok := match(inst.Args[1]); ok {
				return v, true
			}
		}
		off += inst.Len
	}
	return 0, false
}

func immediate(a x86asm.Arg) (uint32, bool) {
	imm, ok := a.(x86asm.Imm)
	return uint32(imm), ok
}

func absolute(a x86asm.Arg) (uint32, bool) {
	mem, ok := a.(x86asm.Mem)
	if !ok || mem.Base != 0 || mem.Index != 0 {
		return 0, false
	}
	return uint32(mem.Disp), true
}

// ImmediateMovEax returns the immediate of the first "mov eax, imm32" in the
// prologue window of the function at address. Interface factories built
// with EXPOSE_SINGLE_INTERFACE_GLOBALVAR reduce to this instruction.
func ImmediateMovEax(r Reader, address uintptr) (uintptr, error) {
	code, err := r.ReadMemory(address, prologueWindow+maxMovLen)
	if err != nil {
		return 0, err
	}
	v, ok := findMovEax(code, immediate)
	if !ok {
		return 0, fmt.Errorf("mov eax, imm32 at %#x: %w (% x)", address, ErrUnexpectedCode, code)
	}
	return uintptr(v), nil
}

// MemoryMovEax returns the address loaded by the first "mov eax, [disp32]"
// in the prologue window of the function at address.
func MemoryMovEax(r Reader, address uintptr) (uintptr, error) {
	code, err := r.ReadMemory(address, prologueWindow+maxMovLen)
	if err != nil {
		return 0, err
	}
	v, ok := findMovEax(code, absolute)
	if !ok {
		return 0, fmt.Errorf("mov eax, [disp32] at %#x: %w (% x)", address, ErrUnexpectedCode, code)
	}
	return uintptr(v), nil
}

// JmpTarget decodes a "jmp rel32" located exactly at address.
func JmpTarget(r Reader, address uintptr) (uintptr, error) {
	code, err := r.ReadMemory(address, 5)
	if err != nil {
		return 0, err
	}
	if code[0] != opJmpRel32 {
		return 0, fmt.Errorf("jmp rel32 at %#x: %w (% x)", address, ErrUnexpectedCode, code)
	}
	rel := int32(binary.LittleEndian.Uint32(code[1:]))
	return uintptr(int64(address) + 5 + int64(rel)), nil
}
