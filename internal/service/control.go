package service

import (
	"errors"

	"meddler/internal/lifecycle"
	"meddler/internal/logger"
	"meddler/internal/scm"
)

// Service-specific result codes returned for failed control requests.
// The values match what earlier releases of the service returned; monitoring
// tools depend on them.
const (
	// CodeHookAccessError: the lifecycle state could not be locked.
	CodeHookAccessError uint32 = 0x1
	// CodeHookInvalid: no hook is installed.
	CodeHookInvalid uint32 = 0x2
	// CodeHandleInvalid: the reporting handle was never stored.
	CodeHandleInvalid uint32 = 0x3
)

// Dispatcher answers control requests from the service runtime. It keeps no
// state of its own; everything lives in the store. Handle is safe to call
// concurrently.
type Dispatcher struct {
	store        *lifecycle.Store
	stopReporter *Reporter
}

// NewDispatcher creates a dispatcher over store. Stopped is reported after a
// Stop request with a single attempt, whatever retry budget reporter carries.
// A nil reporter disables the Stopped report.
func NewDispatcher(store *lifecycle.Store, reporter *Reporter) *Dispatcher {
	d := &Dispatcher{store: store}
	if reporter != nil {
		d.stopReporter = reporter.singleAttempt()
	}
	return d
}

// Handle implements scm.ControlHandler.
func (d *Dispatcher) Handle(c scm.Control) scm.ControlResult {
	var result scm.ControlResult
	switch c {
	case scm.Interrogate:
		result = d.interrogate()
	case scm.Stop:
		result = d.stop()
	default:
		result = scm.NotImplemented
	}

	log := logger.WithComponent("control")
	log.Debug().Stringer("control", c).Stringer("result", result).Msg("Control handled")
	return result
}

// interrogate checks the hook before the handle, so a missing handle is only
// reported once the hook is known to be present.
func (d *Dispatcher) interrogate() scm.ControlResult {
	snap, err := d.store.Snapshot()
	if err != nil {
		log := logger.WithComponent("control")
		log.Error().Err(err).Msg("Interrogate could not read lifecycle state")
		return scm.Other(CodeHookAccessError)
	}
	if !snap.HookActive {
		return scm.Other(CodeHookInvalid)
	}
	if !snap.HandlePresent {
		return scm.Other(CodeHandleInvalid)
	}
	return scm.NoError
}

// stop clears the hook unconditionally. It succeeds when there was nothing to
// clear; it fails only when the state cannot be locked.
func (d *Dispatcher) stop() scm.ControlResult {
	log := logger.WithComponent("control")

	had, err := d.store.ClearHook()
	if errors.Is(err, lifecycle.ErrStoreUnavailable) {
		log.Error().Err(err).Msg("Stop could not clear hook")
		return scm.Other(CodeHookAccessError)
	}
	if err != nil {
		log.Warn().Err(err).Msg("Hook cleared but release reported an error")
	}
	log.Info().Bool("hook_was_active", had).Msg("Hook stopped")

	d.reportStopped()
	return scm.NoError
}

// reportStopped tells the runtime the service has stopped. It makes a single
// attempt so the control callback never sleeps between retries. Failures are
// logged only; a control request never escalates an error.
func (d *Dispatcher) reportStopped() {
	if d.stopReporter == nil {
		return
	}
	log := logger.WithComponent("control")

	h, err := d.store.ReportingHandle()
	if err != nil {
		log.Error().Err(err).Msg("Cannot read reporting handle after stop")
		return
	}
	if h == nil {
		log.Warn().Msg("No reporting handle yet, Stopped not reported")
		return
	}
	if err := d.stopReporter.Report(h, scm.Stopped); err != nil {
		log.Error().Err(err).Msg("Failed to report Stopped after stop")
	}
}
