//go:build windows
// +build windows

package scm

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"

	"meddler/internal/logger"
)

// NewRuntime returns the SCM runtime when the process was started by the
// service control manager and the console runtime otherwise.
func NewRuntime() Runtime {
	isService, err := svc.IsWindowsService()
	if err != nil || !isService {
		return NewConsoleRuntime()
	}
	return &SCMRuntime{}
}

// SCMRuntime talks to the Windows service control manager directly so that
// the control handler's result code reaches the SCM unchanged.
type SCMRuntime struct{}

// Register implements Runtime with RegisterServiceCtrlHandlerExW.
func (r *SCMRuntime) Register(name string, handler ControlHandler) (Handle, error) {
	if handler == nil {
		return nil, fmt.Errorf("nil control handler for service %q", name)
	}
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("invalid service name %q: %w", name, err)
	}

	// The SCM calls this on its own thread, concurrently with ServiceMain.
	cb := windows.NewCallback(func(ctl, evtype, evdata, userData uintptr) uintptr {
		return uintptr(win32Result(handler(Control(ctl))))
	})

	h, err := windows.RegisterServiceCtrlHandlerEx(namePtr, cb, 0)
	if err != nil {
		return nil, fmt.Errorf("RegisterServiceCtrlHandlerEx(%s): %w", name, err)
	}
	return &scmHandle{h: h}, nil
}

// Dispatch implements Runtime with StartServiceCtrlDispatcherW. ctx is not
// consulted; the SCM alone decides when the service stops.
func (r *SCMRuntime) Dispatch(ctx context.Context, name string, main MainFunc) error {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return fmt.Errorf("invalid service name %q: %w", name, err)
	}

	entry := windows.NewCallback(func(argc uint32, argv **uint16) uintptr {
		main(utf16Args(argc, argv))
		return 0
	})

	table := []windows.SERVICE_TABLE_ENTRY{
		{ServiceName: namePtr, ServiceProc: entry},
		{ServiceName: nil, ServiceProc: 0},
	}

	log := logger.WithComponent("scm-runtime")
	log.Info().Str("service", name).Msg("Starting service control dispatcher")

	if err := windows.StartServiceCtrlDispatcher(&table[0]); err != nil {
		if errors.Is(err, windows.ERROR_FAILED_SERVICE_CONTROLLER_CONNECT) {
			return ErrNotService
		}
		return fmt.Errorf("StartServiceCtrlDispatcher(%s): %w", name, err)
	}
	return nil
}

func utf16Args(argc uint32, argv **uint16) []string {
	if argc == 0 || argv == nil {
		return nil
	}
	ptrs := unsafe.Slice(argv, argc)
	args := make([]string, 0, argc)
	for _, p := range ptrs {
		args = append(args, windows.UTF16PtrToString(p))
	}
	return args
}

func win32Result(r ControlResult) uint32 {
	switch {
	case r.IsNoError():
		return 0
	case r.IsNotImplemented():
		return uint32(windows.ERROR_CALL_NOT_IMPLEMENTED)
	default:
		code, _ := r.Code()
		return code
	}
}

type scmHandle struct {
	h windows.Handle
}

func (h *scmHandle) SetStatus(status Status) error {
	s := windows.SERVICE_STATUS{
		ServiceType:      uint32(status.Type),
		CurrentState:     uint32(status.State),
		ControlsAccepted: uint32(status.Accepts),
		Win32ExitCode:    status.ExitCode,
		CheckPoint:       status.CheckPoint,
		WaitHint:         uint32(status.WaitHint / time.Millisecond),
	}
	return windows.SetServiceStatus(h.h, &s)
}
