//go:build windows

package process_monitor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"syscall"
	"unsafe"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/lxn/win"
	"github.com/shirou/gopsutil/v3/process"
)

var (
	user32                   = syscall.NewLazyDLL("user32.dll")
	procEnumWindows          = user32.NewProc("EnumWindows")
	procGetWindowTextLengthW = user32.NewProc("GetWindowTextLengthW")
)

var ErrProcessNotFound = errors.New("process not found")

type Processes struct {
	Name string
	Pid  uint32
}

// FindProcess returns the first running process whose executable is name.
func FindProcess(name string) (Processes, error) {
	procs, err := process.Processes()
	if err != nil {
		return Processes{}, err
	}
	for _, p := range procs {
		n, err := p.Name()
		if err != nil {
			continue
		}
		if strings.EqualFold(n, name) {
			return Processes{Name: n, Pid: uint32(p.Pid)}, nil
		}
	}
	return Processes{}, fmt.Errorf("%s: %w", name, ErrProcessNotFound)
}

// WaitForProcess blocks until a process called name is created, using a WMI
// creation event subscription. It returns early when ctx is done.
func WaitForProcess(ctx context.Context, name string) (Processes, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitialize(0); err != nil {
		return Processes{}, fmt.Errorf("CoInitialize: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return Processes{}, fmt.Errorf("create SWbemLocator: %w", err)
	}
	defer unknown.Release()

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return Processes{}, err
	}
	defer locator.Release()

	serviceRaw, err := oleutil.CallMethod(locator, "ConnectServer", nil, "root\\cimv2")
	if err != nil {
		return Processes{}, fmt.Errorf("connect root\\cimv2: %w", err)
	}
	service := serviceRaw.ToIDispatch()
	defer service.Release()

	query := fmt.Sprintf("SELECT * FROM __InstanceCreationEvent WITHIN 1 WHERE TargetInstance ISA 'Win32_Process' AND TargetInstance.Name = '%s'", name)
	eventSourceRaw, err := oleutil.CallMethod(service, "ExecNotificationQuery", query)
	if err != nil {
		return Processes{}, fmt.Errorf("subscribe to process creation: %w", err)
	}
	eventSource := eventSourceRaw.ToIDispatch()
	defer eventSource.Release()

	for {
		if err := ctx.Err(); err != nil {
			return Processes{}, err
		}

		// NextEvent times out after 1s so ctx is polled regularly
		eventRaw, err := oleutil.CallMethod(eventSource, "NextEvent", 1000)
		if err != nil {
			if err := pause(ctx, eventRetryDelay); err != nil {
				return Processes{}, err
			}
			continue
		}
		found, ok := readCreationEvent(eventRaw.ToIDispatch())
		if ok {
			return found, nil
		}
	}
}

func readCreationEvent(event *ole.IDispatch) (Processes, bool) {
	defer event.Release()

	targetInstanceRaw, err := oleutil.GetProperty(event, "TargetInstance")
	if err != nil {
		return Processes{}, false
	}
	targetInstance := targetInstanceRaw.ToIDispatch()
	defer targetInstance.Release()

	nameVar, err := oleutil.GetProperty(targetInstance, "Name")
	if err != nil {
		return Processes{}, false
	}
	defer nameVar.Clear()

	pidVar, err := oleutil.GetProperty(targetInstance, "ProcessId")
	if err != nil {
		return Processes{}, false
	}
	defer pidVar.Clear()

	return Processes{Name: nameVar.ToString(), Pid: uint32(pidVar.Val)}, true
}

func EnumWindows(enumFunc uintptr, lParam uintptr) bool {
	ret, _, _ := procEnumWindows.Call(enumFunc, lParam)
	return ret != 0
}

type enumData struct {
	targetPID uint32
	found     bool
}

var enumProcCallback = syscall.NewCallback(enumProc)

func enumProc(hwnd uintptr, lParam uintptr) uintptr {
	data := (*enumData)(unsafe.Pointer(lParam))
	h := win.HWND(hwnd)
	if !win.IsWindowVisible(h) {
		return 1
	}
	var pid uint32
	win.GetWindowThreadProcessId(h, &pid)
	if pid != data.targetPID {
		return 1
	}
	length, _, _ := procGetWindowTextLengthW.Call(hwnd)
	if length == 0 {
		return 1
	}
	data.found = true
	return 0
}

// IsProcessWindowInTaskbar reports whether targetPID owns a visible, titled
// top-level window. The game only shows one after its client module has
// finished registering classes.
func IsProcessWindowInTaskbar(targetPID uint32) bool {
	data := enumData{targetPID: targetPID}
	EnumWindows(enumProcCallback, uintptr(unsafe.Pointer(&data)))
	return data.found
}
