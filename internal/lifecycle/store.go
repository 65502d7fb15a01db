// Package lifecycle holds the service's shared lifecycle state: the installed
// input hook and the reporting handle obtained from the service runtime.
package lifecycle

import (
	"errors"
	"fmt"
	"sync"

	"meddler/internal/hook"
	"meddler/internal/scm"
)

var (
	// ErrStoreUnavailable means the state could not be locked because an
	// earlier mutation panicked. It is never returned for empty state.
	ErrStoreUnavailable = errors.New("lifecycle state unavailable")

	// ErrHookInstall wraps a failed installation attempt.
	ErrHookInstall = errors.New("hook installation failed")

	// ErrAlreadyInstalled is returned by InstallHook when a hook is already held.
	ErrAlreadyInstalled = errors.New("hook already installed")
)

type state struct {
	hook   hook.Hook
	handle scm.Handle
}

// Store serializes every read and write of the lifecycle state. The lock is
// held only for local field access, never across a call into the hook
// provider, a hook, or a reporting handle.
type Store struct {
	provider hook.Provider

	mu       sync.Mutex
	st       state
	poisoned error
}

// NewStore creates an empty store that installs hooks through provider.
func NewStore(provider hook.Provider) *Store {
	return &Store{provider: provider}
}

// with runs fn with exclusive access to the state. A panic inside fn poisons
// the store and is reported as ErrStoreUnavailable.
func (s *Store) with(fn func(st *state)) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, s.poisoned)
	}

	defer func() {
		if r := recover(); r != nil {
			s.poisoned = fmt.Errorf("panic during state update: %v", r)
			err = fmt.Errorf("%w: %v", ErrStoreUnavailable, s.poisoned)
		}
	}()

	fn(&s.st)
	return nil
}

// Poison marks the store unusable. Every later operation fails with
// ErrStoreUnavailable.
func (s *Store) Poison(reason error) {
	if reason == nil {
		reason = errors.New("poisoned")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned == nil {
		s.poisoned = reason
	}
}

// InstallHook asks the provider for a hook and stores it on success.
// If a hook is already held, the new one is released and ErrAlreadyInstalled
// is returned.
func (s *Store) InstallHook() error {
	if s.provider == nil {
		return fmt.Errorf("%w: no hook provider", ErrHookInstall)
	}

	h, err := s.provider.Install()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHookInstall, err)
	}
	if h == nil {
		return fmt.Errorf("%w: provider returned no hook", ErrHookInstall)
	}

	var stored bool
	if err := s.with(func(st *state) {
		if st.hook == nil {
			st.hook = h
			stored = true
		}
	}); err != nil {
		h.Release()
		return err
	}
	if !stored {
		h.Release()
		return ErrAlreadyInstalled
	}
	return nil
}

// HasActiveHook reports whether a hook is installed.
func (s *Store) HasActiveHook() (bool, error) {
	var present bool
	err := s.with(func(st *state) { present = st.hook != nil })
	return present, err
}

// HasReportingHandle reports whether the reporting handle has been stored.
func (s *Store) HasReportingHandle() (bool, error) {
	var present bool
	err := s.with(func(st *state) { present = st.handle != nil })
	return present, err
}

// Snapshot is a consistent view of the store taken under a single lock.
type Snapshot struct {
	HookActive    bool
	HandlePresent bool
}

// Snapshot reads both fields in one critical section, so a concurrent
// ClearHook or SetReportingHandle is observed either entirely or not at all.
func (s *Store) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := s.with(func(st *state) {
		snap.HookActive = st.hook != nil
		snap.HandlePresent = st.handle != nil
	})
	return snap, err
}

// SetReportingHandle stores the handle obtained at service start.
func (s *Store) SetReportingHandle(h scm.Handle) error {
	return s.with(func(st *state) { st.handle = h })
}

// ReportingHandle returns the stored handle, or nil if none is stored yet.
func (s *Store) ReportingHandle() (scm.Handle, error) {
	var h scm.Handle
	err := s.with(func(st *state) { h = st.handle })
	return h, err
}

// ClearHook removes the installed hook and releases it after unlocking.
// It reports whether a hook was present. Clearing an empty store is not an error.
func (s *Store) ClearHook() (bool, error) {
	var h hook.Hook
	if err := s.with(func(st *state) {
		h = st.hook
		st.hook = nil
	}); err != nil {
		return false, err
	}
	if h == nil {
		return false, nil
	}
	if err := h.Release(); err != nil {
		return true, fmt.Errorf("release hook: %w", err)
	}
	return true, nil
}
