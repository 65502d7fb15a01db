package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"meddler/internal/logger"
	"meddler/internal/scm"
)

var (
	// ErrInvalidHandle is returned when reporting through a nil handle.
	ErrInvalidHandle = errors.New("invalid reporting handle")

	// ErrReportFailed is returned once every submission attempt has failed.
	ErrReportFailed = errors.New("status submission failed")
)

// StatusFor builds the status record for state. Transitions are reported as
// already complete, so checkpoint and wait hint are always zero, and install
// failures surface only through the Stopped state, never the exit code.
func StatusFor(state scm.State) scm.Status {
	return scm.Status{
		Type:       scm.OwnProcess,
		State:      state,
		Accepts:    scm.AcceptStop,
		ExitCode:   0,
		CheckPoint: 0,
		WaitHint:   0,
	}
}

// ReporterOptions configures a Reporter.
type ReporterOptions struct {
	MaxAttempts  int
	RetryBackoff time.Duration
	Clock        clock.Clock
}

// Reporter submits status records to the OS, retrying a bounded number of times.
type Reporter struct {
	clock       clock.Clock
	maxAttempts int
	backoff     time.Duration
}

// NewReporter creates a reporter. MaxAttempts below 1 is treated as 1.
func NewReporter(opts ReporterOptions) *Reporter {
	r := &Reporter{
		clock:       opts.Clock,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.RetryBackoff,
	}
	if r.clock == nil {
		r.clock = clock.New()
	}
	if r.maxAttempts < 1 {
		r.maxAttempts = 1
	}
	return r
}

// singleAttempt returns a copy of r that never retries.
func (r *Reporter) singleAttempt() *Reporter {
	return &Reporter{clock: r.clock, maxAttempts: 1, backoff: 0}
}

// Report submits the status record for state through h.
func (r *Reporter) Report(h scm.Handle, state scm.State) error {
	if h == nil {
		return ErrInvalidHandle
	}

	log := logger.WithComponent("status")
	status := StatusFor(state)

	var err error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err = h.SetStatus(status); err == nil {
			log.Info().Stringer("state", state).Int("attempt", attempt).Msg("Service status reported")
			return nil
		}

		log.Warn().
			Err(err).
			Stringer("state", state).
			Int("attempt", attempt).
			Int("max_attempts", r.maxAttempts).
			Msg("Failed to report service status")

		if attempt < r.maxAttempts && r.backoff > 0 {
			r.clock.Sleep(r.backoff)
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %v", ErrReportFailed, state, r.maxAttempts, err)
}
