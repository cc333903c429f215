package overlay

import (
	"fmt"
	"sync"
	"time"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
	"github.com/shanlichin2021/Japanese-OCR/screenshot"
)

// State is the overlay interaction state.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateResizing
	StateCapturing
)

func (s State) String() string {
	switch s {
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	case StateCapturing:
		return "capturing"
	}
	return "idle"
}

// CaptureError reports a failed screen rasterization: a degenerate region or
// an unavailable capture API. The overlay remains usable afterwards.
type CaptureError struct {
	Reason string
	Err    error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("capture failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("capture failed: %s", e.Reason)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// CaptureResult is the product of one trigger: PNG pixels of the screen under
// the overlay bounds, stamped with time and source region.
type CaptureResult struct {
	Image     []byte
	Timestamp time.Time
	Region    screenshot.Region
}

// GrabFunc rasterizes a screen region to PNG bytes.
type GrabFunc func(screenshot.Region) ([]byte, error)

// Hider hides the overlay chrome before rasterization and restores it after,
// so the overlay's own pixels never appear in the capture. Provided by the
// platform window; nil outside a GUI session.
type Hider interface {
	HideForCapture()
	ShowAfterCapture()
}

// Overlay owns the capture region and its drag/resize state machine. Pointer
// events arrive only from the UI thread; Capture snapshots the bounds and
// never mutates them.
type Overlay struct {
	mu    sync.Mutex
	rect  Rect
	state State

	dragOffsetX int
	dragOffsetY int
	resizeEdge  Edge

	visible       bool
	hotkeyEnabled bool

	grab  GrabFunc
	hider Hider

	// settleDelay lets the window manager repaint after hiding the chrome.
	settleDelay time.Duration

	onGeometryChange func(Rect)
}

// New creates an overlay with the default screen grabber.
func New(initial Rect) *Overlay {
	return &Overlay{
		rect:          initial.Clamp(),
		hotkeyEnabled: true,
		grab:          screenshot.CaptureRegion,
		settleDelay:   50 * time.Millisecond,
	}
}

// SetGrabFunc replaces the screen grabber. Tests use this to avoid a display.
func (o *Overlay) SetGrabFunc(grab GrabFunc) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.grab = grab
	o.settleDelay = 0
}

// SetHider attaches the platform window's hide/show hooks.
func (o *Overlay) SetHider(h Hider) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hider = h
}

// OnGeometryChange registers a callback fired when a drag or resize gesture
// completes. Used to persist the region to settings.
func (o *Overlay) OnGeometryChange(fn func(Rect)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onGeometryChange = fn
}

// Rect returns the current bounds.
func (o *Overlay) Rect() Rect {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.rect
}

// SetRect replaces the bounds, clamped to the minimum size.
func (o *Overlay) SetRect(r Rect) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rect = r.Clamp()
}

// State returns the current interaction state.
func (o *Overlay) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Visible reports whether the overlay window is shown.
func (o *Overlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// SetVisible records show/hide, driven by the tray menu.
func (o *Overlay) SetVisible(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = v
}

// HotkeyEnabled reports the chrome toggle-button state. When paused, capture
// triggers are ignored.
func (o *Overlay) HotkeyEnabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hotkeyEnabled
}

// ToggleHotkey flips the pause state and returns the new value.
func (o *Overlay) ToggleHotkey() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hotkeyEnabled = !o.hotkeyEnabled
	return o.hotkeyEnabled
}

// PointerDown begins a gesture: on a resize edge it enters Resizing, anywhere
// else in the body it enters Dragging. Coordinates are virtual-screen global.
func (o *Overlay) PointerDown(globalX, globalY int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return
	}

	edge := o.rect.EdgeAt(globalX-o.rect.X, globalY-o.rect.Y)
	if edge != EdgeNone {
		o.state = StateResizing
		o.resizeEdge = edge
		return
	}
	o.state = StateDragging
	o.dragOffsetX = globalX - o.rect.X
	o.dragOffsetY = globalY - o.rect.Y
}

// PointerMove advances the active gesture. Resize math is incremental against
// the current geometry, never an initial snapshot.
func (o *Overlay) PointerMove(globalX, globalY int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateDragging:
		o.rect.X = globalX - o.dragOffsetX
		o.rect.Y = globalY - o.dragOffsetY
	case StateResizing:
		o.rect = resize(o.rect, o.resizeEdge, globalX-o.rect.X, globalY-o.rect.Y)
	}
}

// PointerUp completes the gesture and returns to Idle.
func (o *Overlay) PointerUp() {
	o.mu.Lock()
	gestured := o.state == StateDragging || o.state == StateResizing
	if gestured {
		o.state = StateIdle
		o.resizeEdge = EdgeNone
	}
	rect := o.rect
	fn := o.onGeometryChange
	o.mu.Unlock()

	if gestured && fn != nil {
		fn(rect)
	}
}

// Capture rasterizes the screen content under the current bounds, with the
// overlay's own chrome hidden so it never contaminates the pixels. It reads
// screen state only; clipboard writes belong to the pipeline.
func (o *Overlay) Capture() (CaptureResult, error) {
	o.mu.Lock()
	rect := o.rect
	grab := o.grab
	hider := o.hider
	delay := o.settleDelay
	o.state = StateCapturing
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()
	}()

	region := screenshot.Region{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height}
	if region.Area() <= 0 {
		return CaptureResult{}, &CaptureError{Reason: fmt.Sprintf("degenerate region %dx%d", region.Width, region.Height)}
	}

	if hider != nil {
		hider.HideForCapture()
		defer hider.ShowAfterCapture()
		if delay > 0 {
			time.Sleep(delay)
		}
	}

	data, err := grab(region)
	if err != nil {
		return CaptureResult{}, &CaptureError{Reason: "screen capture unavailable", Err: err}
	}

	logutil.Debugf("overlay: captured %dx%d at (%d,%d)", region.Width, region.Height, region.X, region.Y)
	return CaptureResult{Image: data, Timestamp: time.Now(), Region: region}, nil
}

// GeometryString serializes the bounds for settings persistence.
func (o *Overlay) GeometryString() string {
	return o.Rect().GeometryString()
}

// RestoreGeometry applies a persisted geometry string if it parses and is at
// least partly on-screen. Off-screen or malformed strings are ignored.
func (o *Overlay) RestoreGeometry(s string) bool {
	r, err := ParseGeometry(s)
	if err != nil {
		return false
	}
	if displays, err := screenshot.DisplayBounds(); err == nil && !r.Intersects(displays) {
		logutil.Infof("overlay: saved geometry %s is off-screen, keeping default", s)
		return false
	}
	o.SetRect(r)
	return true
}
