// Package macro records and replays input sequences. A macro automates the
// clicks that advance game dialogue between captures: record once, then
// replay after each recognition.
//
// Recording claims the global input hook, so the hotkey listener must be
// unregistered while a recording is in progress; the same applies in
// reverse.
package macro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	hook "github.com/robotn/gohook"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

// State of the macro subsystem. Recording and playing are mutually
// exclusive.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StatePlaying:
		return "playing"
	default:
		return "idle"
	}
}

// Event is one recorded input step. DelayMS is the pause before the event
// relative to the previous one, so playback reproduces the recorded rhythm.
type Event struct {
	Kind    string `json:"kind"` // key_down, key_up, mouse_down, mouse_up, mouse_move
	Key     string `json:"key,omitempty"`
	Button  string `json:"button,omitempty"`
	X       int    `json:"x,omitempty"`
	Y       int    `json:"y,omitempty"`
	DelayMS int64  `json:"delay_ms"`
}

// ErrBusy is returned when a record or play request arrives while the other
// is active.
var ErrBusy = errors.New("macro subsystem busy")

// ParseEvents decodes the macro_events settings value. A missing or null
// value yields an empty macro.
func ParseEvents(raw json.RawMessage) ([]Event, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var events []Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("macro: parse events: %w", err)
	}
	return events, nil
}

// MarshalEvents encodes events for the settings file.
func MarshalEvents(events []Event) (json.RawMessage, error) {
	return json.Marshal(events)
}

// Macro owns the record/play state machine.
type Macro struct {
	mu      sync.Mutex
	state   State
	stop    chan struct{} // closed to end the active recording or playback
	records []Event
}

func New() *Macro {
	return &Macro{}
}

func (m *Macro) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// StartRecording begins collecting input events until StopRecording.
func (m *Macro) StartRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return fmt.Errorf("%w: %s", ErrBusy, m.state)
	}
	m.state = StateRecording
	m.stop = make(chan struct{})
	m.records = nil

	events := hook.Start()
	go m.record(events, m.stop)
	logutil.Systemf("macro: recording started")
	return nil
}

func (m *Macro) record(events chan hook.Event, stop chan struct{}) {
	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			rec, keep := translate(ev)
			if !keep {
				continue
			}
			now := time.Now()
			rec.DelayMS = now.Sub(last).Milliseconds()
			last = now

			m.mu.Lock()
			m.records = append(m.records, rec)
			m.mu.Unlock()
		}
	}
}

// translate maps a hook event to a recordable step. Unhandled event kinds
// and plain cursor jitter are dropped.
func translate(ev hook.Event) (Event, bool) {
	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		return Event{Kind: "key_down", Key: hook.RawcodetoKeychar(ev.Rawcode)}, true
	case hook.KeyUp:
		return Event{Kind: "key_up", Key: hook.RawcodetoKeychar(ev.Rawcode)}, true
	case hook.MouseDown:
		return Event{Kind: "mouse_down", Button: buttonName(ev.Button), X: int(ev.X), Y: int(ev.Y)}, true
	case hook.MouseUp:
		return Event{Kind: "mouse_up", Button: buttonName(ev.Button), X: int(ev.X), Y: int(ev.Y)}, true
	case hook.MouseDrag:
		return Event{Kind: "mouse_move", X: int(ev.X), Y: int(ev.Y)}, true
	default:
		return Event{}, false
	}
}

func buttonName(b uint16) string {
	switch b {
	case 2:
		return "right"
	case 3:
		return "middle"
	default:
		return "left"
	}
}

// StopRecording ends the recording and returns the captured events.
func (m *Macro) StopRecording() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRecording {
		return nil
	}
	close(m.stop)
	hook.End()
	m.state = StateIdle
	events := m.records
	m.records = nil
	logutil.Systemf("macro: recording stopped, %d events", len(events))
	return events
}

// Play replays events with their original timing. Returns early when ctx is
// cancelled or Abort is called; the kill key cancels via the caller.
func (m *Macro) Play(ctx context.Context, events []Event) error {
	m.mu.Lock()
	if m.state != StateIdle {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrBusy, m.state)
	}
	m.state = StatePlaying
	stop := make(chan struct{})
	m.stop = stop
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.state = StateIdle
		m.mu.Unlock()
	}()

	logutil.Infof("macro: playing %d events", len(events))
	for i, ev := range events {
		if ev.DelayMS > 0 {
			select {
			case <-time.After(time.Duration(ev.DelayMS) * time.Millisecond):
			case <-ctx.Done():
				logutil.Infof("macro: playback aborted at event %d", i)
				return ctx.Err()
			case <-stop:
				logutil.Infof("macro: playback aborted at event %d", i)
				return nil
			}
		}
		if err := dispatch(ev); err != nil {
			return fmt.Errorf("macro: event %d (%s): %w", i, ev.Kind, err)
		}
	}
	return nil
}

// Abort stops an in-progress playback. Safe to call from any goroutine,
// including the kill-key handler.
func (m *Macro) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StatePlaying && m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

func dispatch(ev Event) error {
	switch ev.Kind {
	case "key_down":
		return robotgo.KeyDown(ev.Key)
	case "key_up":
		return robotgo.KeyUp(ev.Key)
	case "mouse_down":
		robotgo.Move(ev.X, ev.Y)
		return robotgo.MouseDown(ev.Button)
	case "mouse_up":
		return robotgo.MouseUp(ev.Button)
	case "mouse_move":
		robotgo.Move(ev.X, ev.Y)
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}
