package hotkey

import (
	"errors"
	"sync"

	hook "github.com/robotn/gohook"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

// ErrBindingConflict means the OS-level hook could not be installed. It is
// reported to the user; the process keeps running without a global trigger.
var ErrBindingConflict = errors.New("global hook could not be installed")

// Listener owns the process-wide input hook. At most one binding is active;
// Register replaces the previous binding atomically and Unregister is
// idempotent. The raw hook channel never leaves this package.
type Listener struct {
	mu      sync.Mutex
	active  bool
	binding Binding
	done    chan struct{}
}

func NewListener() *Listener {
	return &Listener{}
}

// Register installs binding and invokes callback on every trigger. The
// callback runs on the hook goroutine; it must only post into a channel.
func (l *Listener) Register(binding Binding, callback func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active {
		l.stopLocked()
	}

	events := hook.Start()
	if events == nil {
		return ErrBindingConflict
	}

	done := make(chan struct{})
	l.active = true
	l.binding = binding
	l.done = done

	logutil.Infof("hotkey: registered %s", binding)
	go l.watch(binding, events, done, callback)
	return nil
}

// Unregister removes the active binding. Safe to call repeatedly.
func (l *Listener) Unregister() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.active {
		l.stopLocked()
		logutil.Infof("hotkey: unregistered")
	}
}

// Binding returns the currently registered binding and whether one is active.
func (l *Listener) Binding() (Binding, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.binding, l.active
}

func (l *Listener) stopLocked() {
	close(l.done)
	hook.End()
	l.active = false
	l.done = nil
}

// watch consumes hook events until the binding is replaced or removed.
// Keyboard combos fire when every required rawcode group is held (both L/R
// modifier variants count); mouse triggers fire on button-down with all
// modifiers held.
func (l *Listener) watch(binding Binding, events <-chan hook.Event, done <-chan struct{}, callback func()) {
	defer func() {
		if r := recover(); r != nil {
			logutil.Errorf("hotkey: panic in hook goroutine: %v", r)
		}
	}()

	groups := binding.modifierRawcodes()
	if !binding.IsMouse() {
		groups = append(groups, keyRawcodes(binding.Trigger))
	}
	pressed := make([]bool, len(groups))
	mouseButton := binding.MouseButton()

	match := func(raw uint16) int {
		for i, group := range groups {
			for _, code := range group {
				if code == raw {
					return i
				}
			}
		}
		return -1
	}

	allPressed := func() bool {
		for _, p := range pressed {
			if !p {
				return false
			}
		}
		return true
	}

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case hook.KeyDown, hook.KeyHold:
				if i := match(ev.Rawcode); i >= 0 {
					pressed[i] = true
					if mouseButton == 0 && allPressed() {
						for j := range pressed {
							pressed[j] = false
						}
						callback()
					}
				}
			case hook.KeyUp:
				if i := match(ev.Rawcode); i >= 0 {
					pressed[i] = false
				}
			case hook.MouseDown:
				if mouseButton != 0 && ev.Button == mouseButton && allPressed() {
					callback()
				}
			}
		}
	}
}
