package scm

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"meddler/internal/logger"
)

// ConsoleRuntime runs the service in the foreground. Interrupt and terminate
// signals are delivered as Stop controls.
type ConsoleRuntime struct {
	mu      sync.Mutex
	name    string
	handler ControlHandler

	stopped  chan struct{}
	stopOnce sync.Once
}

// NewConsoleRuntime creates a runtime for interactive use.
func NewConsoleRuntime() *ConsoleRuntime {
	return &ConsoleRuntime{
		stopped: make(chan struct{}),
	}
}

// Register implements Runtime.
func (r *ConsoleRuntime) Register(name string, handler ControlHandler) (Handle, error) {
	if handler == nil {
		return nil, fmt.Errorf("nil control handler for service %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.name != "" && r.name != name {
		return nil, fmt.Errorf("service %q is not dispatched by this runtime (dispatching %q)", name, r.name)
	}
	r.name = name
	r.handler = handler
	return &consoleHandle{rt: r}, nil
}

// Dispatch implements Runtime. It also returns when ctx is done, after
// delivering Stop to the registered handler.
func (r *ConsoleRuntime) Dispatch(ctx context.Context, name string, main MainFunc) error {
	log := logger.WithComponent("console-runtime")

	r.mu.Lock()
	if r.name != "" && r.name != name {
		r.mu.Unlock()
		return fmt.Errorf("service %q already registered, cannot dispatch %q", r.name, name)
	}
	r.name = name
	r.mu.Unlock()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	mainDone := make(chan struct{})
	go func() {
		defer close(mainDone)
		main([]string{name})
	}()
	defer func() { <-mainDone }()

	log.Info().Str("service", name).Msg("Dispatching service in console mode")

	select {
	case <-r.stopped:
		return nil

	case <-ctx.Done():
		r.Deliver(Stop)
		return nil

	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		if _, ok := r.Deliver(Stop); !ok {
			return nil
		}

		select {
		case <-r.stopped:
		case <-ctx.Done():
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received second signal, forcing exit")
		}
		return nil
	}
}

// Deliver sends c to the registered handler. It returns false if no handler
// has been registered yet.
func (r *ConsoleRuntime) Deliver(c Control) (ControlResult, bool) {
	r.mu.Lock()
	handler := r.handler
	r.mu.Unlock()

	log := logger.WithComponent("console-runtime")
	if handler == nil {
		log.Warn().Stringer("control", c).Msg("No control handler registered, dropping control")
		return ControlResult{}, false
	}

	result := handler(c)
	log.Debug().Stringer("control", c).Stringer("result", result).Msg("Control handled")
	return result, true
}

// Stopped is closed once the service reports the Stopped state.
func (r *ConsoleRuntime) Stopped() <-chan struct{} {
	return r.stopped
}

type consoleHandle struct {
	rt *ConsoleRuntime
}

func (h *consoleHandle) SetStatus(status Status) error {
	log := logger.WithComponent("console-runtime")
	log.Info().
		Stringer("state", status.State).
		Uint32("accepts", uint32(status.Accepts)).
		Uint32("exit_code", status.ExitCode).
		Msg("Service status")

	if status.State == Stopped {
		h.rt.stopOnce.Do(func() { close(h.rt.stopped) })
	}
	return nil
}
