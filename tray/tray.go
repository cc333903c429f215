// Package tray puts the app in the notification area: overlay visibility,
// engine selection, macro controls, and quit all live in its menu.
package tray

import (
	"github.com/getlantern/systray"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
	"github.com/shanlichin2021/Japanese-OCR/ocr"
)

const defaultTooltip = "Daisho Japanese OCR"

// Callbacks connect menu items to the rest of the app. All callbacks fire
// from the tray's own goroutine.
type Callbacks struct {
	OnCaptureNow    func()
	OnToggleOverlay func() bool // returns new visibility
	OnSelectEngine  func(ocr.EngineID)
	OnToggleMacro   func() bool // returns new enabled state
	OnRecordMacro   func()
	OnQuit          func()
}

// Options seed the initial menu state.
type Options struct {
	OverlayVisible bool
	Engine         ocr.EngineID
	MacroEnabled   bool
}

// Run blocks on the systray loop. Must run on the main goroutine on
// platforms where systray demands it.
func Run(cb Callbacks, opts Options) {
	systray.Run(func() { onReady(cb, opts) }, func() {
		if cb.OnQuit != nil {
			cb.OnQuit()
		}
	})
}

// Quit tears the tray down and unblocks Run.
func Quit() {
	systray.Quit()
}

// SetBusy flips the tooltip while a recognition is in flight. Safe from any
// goroutine.
func SetBusy(busy bool) {
	if busy {
		systray.SetTooltip(defaultTooltip + ": recognizing...")
	} else {
		systray.SetTooltip(defaultTooltip)
	}
}

func onReady(cb Callbacks, opts Options) {
	systray.SetIcon(iconBytes())
	systray.SetTitle("Daisho")
	systray.SetTooltip(defaultTooltip)

	mOverlay := systray.AddMenuItemCheckbox("Show Overlay", "Show or hide the capture region", opts.OverlayVisible)
	mCapture := systray.AddMenuItem("Capture Now", "Capture and recognize the current region")
	systray.AddSeparator()

	mManga := systray.AddMenuItemCheckbox("manga-ocr", "Use the manga-ocr engine", opts.Engine == ocr.EngineMangaOCR)
	mPaddle := systray.AddMenuItemCheckbox("PaddleOCR", "Use the PaddleOCR engine", opts.Engine == ocr.EnginePaddleOCR)
	systray.AddSeparator()

	mMacro := systray.AddMenuItemCheckbox("Macro Playback", "Replay the recorded macro after each capture", opts.MacroEnabled)
	mRecord := systray.AddMenuItem("Record Macro...", "Record a new input macro")
	systray.AddSeparator()

	mQuit := systray.AddMenuItem("Quit", "Exit Daisho")

	go func() {
		for {
			select {
			case <-mOverlay.ClickedCh:
				if cb.OnToggleOverlay != nil {
					if cb.OnToggleOverlay() {
						mOverlay.Check()
					} else {
						mOverlay.Uncheck()
					}
				}
			case <-mCapture.ClickedCh:
				if cb.OnCaptureNow != nil {
					cb.OnCaptureNow()
				}
			case <-mManga.ClickedCh:
				selectEngine(cb, ocr.EngineMangaOCR, mManga, mPaddle)
			case <-mPaddle.ClickedCh:
				selectEngine(cb, ocr.EnginePaddleOCR, mPaddle, mManga)
			case <-mMacro.ClickedCh:
				if cb.OnToggleMacro != nil {
					if cb.OnToggleMacro() {
						mMacro.Check()
					} else {
						mMacro.Uncheck()
					}
				}
			case <-mRecord.ClickedCh:
				if cb.OnRecordMacro != nil {
					cb.OnRecordMacro()
				}
			case <-mQuit.ClickedCh:
				logutil.Systemf("tray: quit requested")
				systray.Quit()
				return
			}
		}
	}()
}

// selectEngine keeps the two engine items behaving like radio buttons.
func selectEngine(cb Callbacks, id ocr.EngineID, chosen, other *systray.MenuItem) {
	chosen.Check()
	other.Uncheck()
	if cb.OnSelectEngine != nil {
		cb.OnSelectEngine(id)
	}
}
