// Package scm abstracts the operating system's service-control machinery:
// registering a control handler, starting the service dispatcher and
// submitting status records.
package scm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotService is returned by Dispatch when the process was not started by
// the service control manager.
var ErrNotService = errors.New("process is not running under the service control manager")

// Control is a control code delivered to the service's control handler.
// Values match the Win32 SERVICE_CONTROL_* codes.
type Control uint32

const (
	Stop        Control = 0x1
	Pause       Control = 0x2
	Continue    Control = 0x3
	Interrogate Control = 0x4
	Shutdown    Control = 0x5
)

func (c Control) String() string {
	switch c {
	case Stop:
		return "stop"
	case Pause:
		return "pause"
	case Continue:
		return "continue"
	case Interrogate:
		return "interrogate"
	case Shutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("control(0x%x)", uint32(c))
	}
}

type resultKind uint8

const (
	kindNoError resultKind = iota
	kindNotImplemented
	kindOther
)

// ControlResult is the outcome of a control request, returned to the runtime.
type ControlResult struct {
	kind resultKind
	code uint32
}

var (
	// NoError means the request was handled.
	NoError = ControlResult{kind: kindNoError}
	// NotImplemented means the control code is not supported.
	NotImplemented = ControlResult{kind: kindNotImplemented}
)

// Other returns a service-specific failure result.
func Other(code uint32) ControlResult {
	return ControlResult{kind: kindOther, code: code}
}

// IsNoError reports whether r is NoError.
func (r ControlResult) IsNoError() bool { return r.kind == kindNoError }

// IsNotImplemented reports whether r is NotImplemented.
func (r ControlResult) IsNotImplemented() bool { return r.kind == kindNotImplemented }

// Code returns the failure code of an Other result.
func (r ControlResult) Code() (uint32, bool) {
	if r.kind != kindOther {
		return 0, false
	}
	return r.code, true
}

func (r ControlResult) String() string {
	switch r.kind {
	case kindNoError:
		return "no_error"
	case kindNotImplemented:
		return "not_implemented"
	default:
		return fmt.Sprintf("other(0x%x)", r.code)
	}
}

// State is the execution state reported to the OS.
type State uint32

const (
	Stopped State = 0x1
	Running State = 0x4
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(0x%x)", uint32(s))
	}
}

// ServiceType is the kind of service being reported.
type ServiceType uint32

// OwnProcess is a service that runs in its own process.
const OwnProcess ServiceType = 0x10

// Accepted is the set of controls the service accepts.
type Accepted uint32

// AcceptStop accepts the Stop control. Interrogate is always accepted.
const AcceptStop Accepted = 0x1

// Status is a status record submitted to the OS.
type Status struct {
	Type       ServiceType
	State      State
	Accepts    Accepted
	ExitCode   uint32
	CheckPoint uint32
	WaitHint   time.Duration
	// ProcessID is never submitted; zero means unset.
	ProcessID uint32
}

// ServiceInfo is the OS view of an installed service.
type ServiceInfo struct {
	Name      string
	State     string
	Started   bool
	ProcessID uint32
}

// Handle submits status records for a registered service.
type Handle interface {
	SetStatus(status Status) error
}

// ControlHandler receives control requests. It may be invoked from any
// goroutine, concurrently with the service main function and with itself.
type ControlHandler func(c Control) ControlResult

// MainFunc is the service entry point. It is called once per service start.
type MainFunc func(args []string)

// Runtime is the OS service-control machinery.
type Runtime interface {
	// Register binds handler to the named service and returns the
	// reporting handle for it.
	Register(name string, handler ControlHandler) (Handle, error)

	// Dispatch runs the service dispatcher for name. It invokes main once
	// and blocks until the service reports Stopped.
	Dispatch(ctx context.Context, name string, main MainFunc) error
}
