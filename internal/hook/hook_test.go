package hook

import (
	"errors"
	"testing"
)

type nopHook struct{}

func (nopHook) Release() error { return nil }

func TestProviderFunc_Install(t *testing.T) {
	calls := 0
	p := ProviderFunc(func() (Hook, error) {
		calls++
		return nopHook{}, nil
	})

	h, err := p.Install()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h == nil {
		t.Fatal("expected hook, got nil")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestProviderFunc_PropagatesError(t *testing.T) {
	want := errors.New("no desktop")
	p := ProviderFunc(func() (Hook, error) { return nil, want })

	h, err := p.Install()
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
	if h != nil {
		t.Errorf("expected nil hook, got %v", h)
	}
}
