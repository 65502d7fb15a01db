// Package hook provides the system-wide input hook installed by the service.
package hook

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by providers on platforms without a system-wide input hook.
var ErrUnsupported = errors.New("input hook is only supported on Windows")

// Hook is a live, installed input hook.
type Hook interface {
	// Release uninstalls the hook. Calling it more than once is a no-op.
	Release() error
}

// Provider installs hooks. A nil Hook with a nil error is treated as a failed install.
type Provider interface {
	Install() (Hook, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func() (Hook, error)

// Install calls f.
func (f ProviderFunc) Install() (Hook, error) {
	return f()
}

// DefaultInstallTimeout is used when Options.InstallTimeout is zero.
const DefaultInstallTimeout = 2 * time.Second

// Options configures the platform provider.
type Options struct {
	// InstallTimeout bounds how long Install waits for the hook thread.
	// Zero means DefaultInstallTimeout.
	InstallTimeout time.Duration
}

// NewProvider returns the platform input-hook provider.
func NewProvider(opts Options) Provider {
	return newPlatformProvider(opts)
}
