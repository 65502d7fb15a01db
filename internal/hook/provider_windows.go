//go:build windows
// +build windows

package hook

import (
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"meddler/internal/logger"
)

const (
	whKeyboardLL = 13
	whMouseLL    = 14
	wmQuit       = 0x0012
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")

	passThroughProc = windows.NewCallback(passThrough)
)

type msg struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	PtX     int32
	PtY     int32
}

// passThrough forwards every event to the next hook in the chain.
func passThrough(nCode int, wParam uintptr, lParam uintptr) uintptr {
	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}

type lowLevelProvider struct {
	timeout time.Duration
}

func newPlatformProvider(opts Options) Provider {
	timeout := opts.InstallTimeout
	if timeout <= 0 {
		timeout = DefaultInstallTimeout
	}
	return &lowLevelProvider{timeout: timeout}
}

// lowLevelHook owns the OS thread that installed the keyboard and mouse hooks.
// Low-level hooks are delivered through that thread's message loop, so the
// thread runs until Release posts WM_QUIT to it.
type lowLevelHook struct {
	threadID uint32
	keyboard uintptr
	mouse    uintptr
	done     chan struct{}
	post     func(threadID uint32) error

	mu       sync.Mutex
	released bool
}

type installResult struct {
	hook *lowLevelHook
	err  error
}

// Install starts a dedicated OS thread, installs WH_KEYBOARD_LL and
// WH_MOUSE_LL on it and pumps its message queue.
func (p *lowLevelProvider) Install() (Hook, error) {
	resultCh := make(chan installResult, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		h := &lowLevelHook{
			threadID: windows.GetCurrentThreadId(),
			done:     make(chan struct{}),
		}

		kb, _, err := procSetWindowsHookExW.Call(whKeyboardLL, passThroughProc, 0, 0)
		if kb == 0 {
			resultCh <- installResult{err: fmt.Errorf("SetWindowsHookExW(WH_KEYBOARD_LL) failed: %v", err)}
			return
		}
		ms, _, err := procSetWindowsHookExW.Call(whMouseLL, passThroughProc, 0, 0)
		if ms == 0 {
			procUnhookWindowsHookEx.Call(kb)
			resultCh <- installResult{err: fmt.Errorf("SetWindowsHookExW(WH_MOUSE_LL) failed: %v", err)}
			return
		}
		h.keyboard = kb
		h.mouse = ms
		resultCh <- installResult{hook: h}

		defer close(h.done)
		var m msg
		for {
			ret, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			// 0 is WM_QUIT, -1 is an error
			if int32(ret) <= 0 {
				break
			}
		}
		procUnhookWindowsHookEx.Call(h.mouse)
		procUnhookWindowsHookEx.Call(h.keyboard)
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			return nil, r.err
		}
		return r.hook, nil
	case <-time.After(p.timeout):
		// The thread may still succeed; make sure a late hook does not outlive us.
		go func() {
			if r := <-resultCh; r.hook != nil {
				r.hook.Release()
			}
		}()
		return nil, fmt.Errorf("timeout installing low-level input hook after %s", p.timeout)
	}
}

// Release stops the hook thread's message loop and waits for it to unhook.
// The hook counts as released only once WM_QUIT is posted, so a failed post
// can be retried.
func (h *lowLevelHook) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	post := h.post
	if post == nil {
		post = postQuit
	}
	if err := post(h.threadID); err != nil {
		return err
	}
	h.released = true

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		log := logger.WithComponent("hook")
		log.Warn().Uint32("thread_id", h.threadID).Msg("Timeout waiting for hook thread to exit")
	}
	return nil
}

func postQuit(threadID uint32) error {
	ret, _, callErr := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0)
	if ret == 0 {
		return fmt.Errorf("PostThreadMessageW(WM_QUIT) failed: %v", callErr)
	}
	return nil
}
