// Package service implements the hook service: the entry point run by the
// service runtime, the control handler, and status reporting.
package service

import (
	"context"
	"fmt"

	"meddler/internal/hook"
	"meddler/internal/lifecycle"
	"meddler/internal/logger"
	"meddler/internal/scm"
)

// Options configures a Service.
type Options struct {
	// Name is used both to register the control handler and to start the
	// dispatcher.
	Name     string
	Runtime  scm.Runtime
	Provider hook.Provider
	Reporter *Reporter

	// Fatal is called when the startup status cannot be reported. It must
	// not return normally in production; the default logs and exits.
	Fatal func(err error)
}

// Service wires the lifecycle store, dispatcher and reporter to a runtime.
type Service struct {
	name       string
	runtime    scm.Runtime
	store      *lifecycle.Store
	reporter   *Reporter
	dispatcher *Dispatcher
	fatal      func(err error)
}

// New creates a service. The store is created empty.
func New(opts Options) *Service {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = NewReporter(ReporterOptions{MaxAttempts: 1})
	}
	store := lifecycle.NewStore(opts.Provider)

	s := &Service{
		name:       opts.Name,
		runtime:    opts.Runtime,
		store:      store,
		reporter:   reporter,
		dispatcher: NewDispatcher(store, reporter),
		fatal:      opts.Fatal,
	}
	if s.fatal == nil {
		s.fatal = s.exitOnReportFailure
	}
	return s
}

// Run starts the runtime's dispatcher and blocks until the service stops.
func (s *Service) Run(ctx context.Context) error {
	if err := s.runtime.Dispatch(ctx, s.name, s.Main); err != nil {
		return fmt.Errorf("service %s: %w", s.name, err)
	}
	return nil
}

// Main is the service entry point. The runtime calls it once per start;
// control requests may arrive on other goroutines at any point after
// registration.
func (s *Service) Main(args []string) {
	log := logger.WithComponent("service")
	log.Info().Str("service", s.name).Strs("args", args).Msg("Service starting")

	handle, err := s.runtime.Register(s.name, s.dispatcher.Handle)
	if err != nil {
		// Without a handle no status can be reported at all.
		log.Error().Err(err).Str("service", s.name).Msg("Failed to register control handler")
		return
	}

	if err := s.store.SetReportingHandle(handle); err != nil {
		log.Error().Err(err).Msg("Failed to store reporting handle")
	}

	state := scm.Running
	if err := s.store.InstallHook(); err != nil {
		log.Error().Err(err).Msg("Failed to install input hook")
		state = scm.Stopped
	} else {
		log.Info().Msg("Input hook installed")
	}

	if err := s.reporter.Report(handle, state); err != nil {
		s.fatal(err)
		return
	}
	log.Info().Stringer("state", state).Msg("Service start complete")
}

// Dispatcher returns the control handler bound to this service.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

func (s *Service) exitOnReportFailure(err error) {
	scm.ReportStartupError(s.name, err)
	log := logger.WithComponent("service")
	log.Fatal().Err(err).Str("service", s.name).Msg("Cannot report service status")
}
