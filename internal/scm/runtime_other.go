//go:build !windows
// +build !windows

package scm

// NewRuntime returns the runtime for this platform. Outside Windows the
// service always runs in the foreground.
func NewRuntime() Runtime {
	return NewConsoleRuntime()
}
