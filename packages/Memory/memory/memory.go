//go:build windows

package memory

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32               = syscall.NewLazyDLL("kernel32.dll")
	procReadProcessMemory  = kernel32.NewProc("ReadProcessMemory")
	procGetExitCodeProcess = kernel32.NewProc("GetExitCodeProcess")
)

const (
	PROCESS_VM_READ           = 0x0010
	PROCESS_QUERY_INFORMATION = 0x0400

	STILL_ACTIVE = 259
)

// Luna is a read-only handle on another process.
type Luna struct {
	ProcessHandle syscall.Handle
	Is64Bit       bool
	Pid           uint32
	modules       []ModuleInfo
}

var _ Process = (*Luna)(nil)

func IsHandleValid(h syscall.Handle) bool {
	var exitCode uint32
	ret, _, _ := procGetExitCodeProcess.Call(uintptr(h), uintptr(unsafe.Pointer(&exitCode)))
	return ret != 0 && exitCode == STILL_ACTIVE
}

func NewLuna(pid uint32) (*Luna, error) {
	handle, err := windows.OpenProcess(PROCESS_VM_READ|PROCESS_QUERY_INFORMATION, false, pid)
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", pid, err)
	}

	var wow64 bool
	if err := windows.IsWow64Process(handle, &wow64); err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("query wow64 state of %d: %w", pid, err)
	}

	return &Luna{
		ProcessHandle: syscall.Handle(handle),
		Is64Bit:       !wow64 && unsafe.Sizeof(uintptr(0)) == 8,
		Pid:           pid,
	}, nil
}

func (m *Luna) Close() error {
	if m == nil || m.ProcessHandle == 0 {
		return nil
	}
	err := syscall.CloseHandle(m.ProcessHandle)
	m.ProcessHandle = 0
	return err
}

func (m *Luna) PointerSize() uintptr {
	if m == nil || m.Is64Bit {
		return 8
	}
	return 4
}

func (m *Luna) MemRead(address uintptr, buffer unsafe.Pointer, size uintptr) error {
	if m == nil || !IsHandleValid(m.ProcessHandle) {
		return errors.New("invalid process handle")
	}

	var read uintptr
	status, _, err := procReadProcessMemory.Call(
		uintptr(m.ProcessHandle),
		address,
		uintptr(buffer),
		size,
		uintptr(unsafe.Pointer(&read)),
	)
	if status == 0 {
		return fmt.Errorf("ReadProcessMemory failed at address %#x: %v", address, err)
	}
	if read < size {
		return fmt.Errorf("read %d of %d bytes at %#x: %w", read, size, address, ErrShortRead)
	}
	return nil
}

func (m *Luna) ReadMemory(address uintptr, size uintptr) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	buffer := make([]byte, size)
	if err := m.MemRead(address, unsafe.Pointer(&buffer[0]), size); err != nil {
		return nil, err
	}
	return buffer, nil
}

// Module looks a module up by file name, case-insensitively. The module list
// is cached after the first successful enumeration; call EnumModules to
// refresh it.
func (m *Luna) Module(name string) (ModuleInfo, error) {
	if m.modules == nil {
		if err := m.EnumModules(); err != nil {
			return ModuleInfo{}, err
		}
	}
	for _, module := range m.modules {
		if strings.EqualFold(module.Name, name) {
			return module, nil
		}
	}
	return ModuleInfo{}, fmt.Errorf("%s: %w", name, ErrModuleNotFound)
}

// EnumModules snapshots the module list. SNAPMODULE32 is required to see the
// modules of a 32-bit target from a 64-bit process.
func (m *Luna) EnumModules() error {
	snapshot, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPMODULE|windows.TH32CS_SNAPMODULE32, m.Pid)
	if err != nil {
		return fmt.Errorf("module snapshot of %d: %w", m.Pid, err)
	}
	defer windows.CloseHandle(snapshot)

	var entry windows.ModuleEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Module32First(snapshot, &entry); err != nil {
		return fmt.Errorf("Module32First: %w", err)
	}

	modules := make([]ModuleInfo, 0, 64)
	for {
		modules = append(modules, ModuleInfo{
			Name:        windows.UTF16ToString(entry.Module[:]),
			BaseAddress: entry.ModBaseAddr,
			Size:        entry.ModBaseSize,
		})
		if err := windows.Module32Next(snapshot, &entry); err != nil {
			if errors.Is(err, windows.ERROR_NO_MORE_FILES) {
				break
			}
			return err
		}
	}
	m.modules = modules
	return nil
}
