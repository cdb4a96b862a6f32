package memory

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Pattern is a byte signature where masked-out positions match anything.
type Pattern struct {
	Bytes []byte
	Mask  []bool
}

func isSpaceSeparatedHex(s string) bool {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return false
	}
	for _, part := range parts {
		if part == "?" || part == "??" {
			continue
		}
		_, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return false
		}
	}
	return true
}

// ParsePattern accepts either an IDA style signature ("55 8B EC ?? A1")
// or a plain string, which is matched byte for byte.
func ParsePattern(aob string) (Pattern, error) {
	if !isSpaceSeparatedHex(aob) {
		return Pattern{Bytes: []byte(aob), Mask: fullMask(len(aob))}, nil
	}

	var p Pattern
	for _, part := range strings.Fields(aob) {
		if strings.Contains(part, "?") {
			p.Bytes = append(p.Bytes, 0x00)
			p.Mask = append(p.Mask, false)
			continue
		}
		if len(part) == 1 {
			part = "0" + part
		}
		b, err := hex.DecodeString(part)
		if err != nil {
			return Pattern{}, fmt.Errorf("invalid pattern byte %q: %w", part, err)
		}
		p.Bytes = append(p.Bytes, b...)
		p.Mask = append(p.Mask, true)
	}
	return p, nil
}

func fullMask(n int) []bool {
	mask := make([]bool, n)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

func (p Pattern) matchAt(data []byte, i int) bool {
	for j := range p.Bytes {
		if p.Mask[j] && p.Bytes[j] != data[i+j] {
			return false
		}
	}
	return true
}

// FindAllPatterns returns the address of every match of p in data, where
// data was read starting at baseAddress.
func FindAllPatterns(data []byte, p Pattern, baseAddress uintptr) []uintptr {
	var results []uintptr
	if len(p.Bytes) == 0 {
		return nil
	}
	for i := 0; i <= len(data)-len(p.Bytes); i++ {
		if p.matchAt(data, i) {
			results = append(results, baseAddress+uintptr(i))
		}
	}
	return results
}

// FindPattern returns the first match of p in data, or 0.
func FindPattern(data []byte, p Pattern, baseAddress uintptr) uintptr {
	if len(p.Bytes) == 0 {
		return 0
	}
	for i := 0; i <= len(data)-len(p.Bytes); i++ {
		if p.matchAt(data, i) {
			return baseAddress + uintptr(i)
		}
	}
	return 0
}

// ScanModule reads the whole image of module and searches it for aob.
func ScanModule(p Process, module string, aob string, all bool) ([]uintptr, error) {
	mod, err := p.Module(module)
	if err != nil {
		return nil, err
	}
	pattern, err := ParsePattern(aob)
	if err != nil {
		return nil, err
	}
	data, err := p.ReadMemory(mod.BaseAddress, uintptr(mod.Size))
	if err != nil {
		return nil, fmt.Errorf("read module %s: %w", module, err)
	}
	if all {
		return FindAllPatterns(data, pattern, mod.BaseAddress), nil
	}
	if addr := FindPattern(data, pattern, mod.BaseAddress); addr != 0 {
		return []uintptr{addr}, nil
	}
	return nil, nil
}
