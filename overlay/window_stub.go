//go:build !windows

package overlay

import "errors"

// Window is the platform chrome host. Only the Windows build has a real
// implementation; elsewhere the overlay core still works headless (tests,
// pipeline) but there is nothing to show.
type Window struct {
	overlay *Overlay
	done    chan struct{}
}

func NewWindow(o *Overlay) (*Window, error) {
	return &Window{overlay: o, done: make(chan struct{})}, nil
}

func (w *Window) Run() error {
	<-w.done
	return errors.New("overlay window is only supported on windows")
}

func (w *Window) Show()  { w.overlay.SetVisible(true) }
func (w *Window) Hide()  { w.overlay.SetVisible(false) }
func (w *Window) Close() { close(w.done) }

func (w *Window) HideForCapture()   {}
func (w *Window) ShowAfterCapture() {}
