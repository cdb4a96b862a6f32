package interfaces

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"netvardump/packages/Memory/memory"
)

const (
	dosMagic = 0x5A4D     // "MZ"
	peMagic  = 0x00004550 // "PE\0\0"

	optionalMagicPE32     = 0x10b
	optionalMagicPE32Plus = 0x20b

	// offset of DataDirectory[IMAGE_DIRECTORY_ENTRY_EXPORT] in the optional header
	exportDirPE32     = 96
	exportDirPE32Plus = 112

	maxExports = 1 << 16
)

type exportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

// ExportAddress finds a named export of a module that is already mapped in
// the target, reading the export directory from memory rather than disk.
func ExportAddress(mem memory.Process, module, name string) (uintptr, error) {
	mod, err := mem.Module(module)
	if err != nil {
		return 0, err
	}
	base := mod.BaseAddress

	dir, err := readExportDirectory(mem, mod)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", module, err)
	}
	if dir.NumberOfNames > maxExports || dir.NumberOfFunctions > maxExports {
		return 0, fmt.Errorf("%s: export directory claims %d names", module, dir.NumberOfNames)
	}

	for i := uint32(0); i < dir.NumberOfNames; i++ {
		nameRVA, err := memory.ReadUint32(mem, base+uintptr(dir.AddressOfNames)+uintptr(i)*4)
		if err != nil {
			return 0, err
		}
		export, err := memory.ReadString(mem, base+uintptr(nameRVA), 256)
		if err != nil {
			return 0, err
		}
		if export != name {
			continue
		}

		ordinal, err := memory.ReadUint16(mem, base+uintptr(dir.AddressOfNameOrdinals)+uintptr(i)*2)
		if err != nil {
			return 0, err
		}
		if uint32(ordinal) >= dir.NumberOfFunctions {
			return 0, fmt.Errorf("%s!%s: ordinal %d out of range", module, name, ordinal)
		}
		fnRVA, err := memory.ReadUint32(mem, base+uintptr(dir.AddressOfFunctions)+uintptr(ordinal)*4)
		if err != nil {
			return 0, err
		}
		return base + uintptr(fnRVA), nil
	}

	return 0, fmt.Errorf("%s!%s: %w", module, name, ErrExportNotFound)
}

func readExportDirectory(mem memory.Reader, mod memory.ModuleInfo) (exportDirectory, error) {
	var dir exportDirectory
	base := mod.BaseAddress

	magic, err := memory.ReadUint16(mem, base)
	if err != nil {
		return dir, err
	}
	if magic != dosMagic {
		return dir, fmt.Errorf("bad DOS signature %#x", magic)
	}
	lfanew, err := memory.ReadUint32(mem, base+0x3C)
	if err != nil {
		return dir, err
	}
	nt := base + uintptr(lfanew)
	sig, err := memory.ReadUint32(mem, nt)
	if err != nil {
		return dir, err
	}
	if sig != peMagic {
		return dir, fmt.Errorf("bad PE signature %#x", sig)
	}

	optional := nt + 4 + 20
	kind, err := memory.ReadUint16(mem, optional)
	if err != nil {
		return dir, err
	}
	var dirOff uintptr
	switch kind {
	case optionalMagicPE32:
		dirOff = exportDirPE32
	case optionalMagicPE32Plus:
		dirOff = exportDirPE32Plus
	default:
		return dir, fmt.Errorf("unknown optional header magic %#x", kind)
	}

	rva, err := memory.ReadUint32(mem, optional+dirOff)
	if err != nil {
		return dir, err
	}
	if rva == 0 {
		return dir, ErrExportNotFound
	}
	if !mod.Contains(base + uintptr(rva)) {
		return dir, fmt.Errorf("export directory rva %#x outside module", rva)
	}

	raw, err := mem.ReadMemory(base+uintptr(rva), uintptr(binary.Size(dir)))
	if err != nil {
		return dir, err
	}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &dir); err != nil {
		return dir, err
	}
	return dir, nil
}
