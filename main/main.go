// Daisho is a tray-resident Japanese OCR utility: a movable overlay marks a
// screen region, a hotkey rasterizes it, and the recognized text lands on the
// clipboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/shanlichin2021/Japanese-OCR/clipboard"
	"github.com/shanlichin2021/Japanese-OCR/config"
	"github.com/shanlichin2021/Japanese-OCR/hotkey"
	"github.com/shanlichin2021/Japanese-OCR/logutil"
	"github.com/shanlichin2021/Japanese-OCR/macro"
	"github.com/shanlichin2021/Japanese-OCR/notification"
	"github.com/shanlichin2021/Japanese-OCR/ocr"
	"github.com/shanlichin2021/Japanese-OCR/overlay"
	"github.com/shanlichin2021/Japanese-OCR/pipeline"
	"github.com/shanlichin2021/Japanese-OCR/preprocess"
	"github.com/shanlichin2021/Japanese-OCR/tray"
)

func init() {
	// systray requires the main OS thread.
	runtime.LockOSThread()
}

type app struct {
	mu  sync.Mutex
	cfg *config.Config

	manager  *ocr.Manager
	ov       *overlay.Overlay
	win      *overlay.Window
	loop     *pipeline.Loop
	listener *hotkey.Listener
	mac      *macro.Macro

	capture hotkey.Binding
	kill    hotkey.Binding
	cancel  context.CancelFunc
}

type clipboardSink struct{}

func (clipboardSink) WriteText(text string) { clipboard.WriteText(text) }

type toastNotifier struct{}

func (toastNotifier) ShowResult(text string) { notification.ShowResult(text) }
func (toastNotifier) ShowError(message string) { notification.ShowError(message) }

func main() {
	enableDPIAwareness()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logutil.Setup(cfg.EnableFileLogging)
	logutil.Systemf("daisho starting: engine=%s hotkey=%s preprocessing=%s",
		cfg.OCREngine, cfg.CaptureHotkey, cfg.PreprocessingMode)
	logMonitorConfiguration()

	if err := clipboard.Init(); err != nil {
		logutil.Errorf("Clipboard initialization failed: %v", err)
		notification.ShowBlockingError("Daisho", "Clipboard is unavailable: "+err.Error())
		os.Exit(1)
	}

	a := &app{
		cfg:      cfg,
		listener: hotkey.NewListener(),
		mac:      macro.New(),
	}

	a.capture, err = hotkey.Parse(cfg.CaptureHotkey)
	if err != nil {
		logutil.Errorf("Invalid capture hotkey %q, falling back to default: %v", cfg.CaptureHotkey, err)
		a.capture, _ = hotkey.Parse(config.DefaultSettings().CaptureHotkey)
	}
	a.kill, err = hotkey.Parse(cfg.KillKey)
	if err != nil {
		logutil.Errorf("Invalid kill key %q, falling back to default: %v", cfg.KillKey, err)
		a.kill, _ = hotkey.Parse(config.DefaultSettings().KillKey)
	}

	a.manager = ocr.NewManager(map[ocr.EngineID]ocr.Factory{
		ocr.EngineMangaOCR:  func() ocr.Engine { return ocr.NewMangaOCR(cfg.MangaOCRCommand) },
		ocr.EnginePaddleOCR: func() ocr.Engine { return ocr.NewPaddleOCR(cfg.PaddleOCRCommand) },
	})

	initialEngine, err := ocr.ParseEngineID(cfg.OCREngine)
	if err != nil {
		logutil.Errorf("Unknown engine %q in settings, using manga-ocr: %v", cfg.OCREngine, err)
		initialEngine = ocr.EngineMangaOCR
	}

	defaultRect, _ := overlay.ParseGeometry(config.DefaultSettings().OverlayGeometry)
	a.ov = overlay.New(defaultRect)
	if !a.ov.RestoreGeometry(cfg.OverlayGeometry) {
		logutil.Errorf("Saved overlay geometry %q not usable, using default", cfg.OverlayGeometry)
	}
	a.ov.OnGeometryChange(a.persistGeometry)

	a.win, err = overlay.NewWindow(a.ov)
	if err != nil {
		logutil.Errorf("Overlay window setup failed: %v", err)
		notification.ShowBlockingError("Daisho", "Could not create the overlay window: "+err.Error())
		os.Exit(1)
	}

	a.loop = pipeline.New(a.ov, a.manager, clipboardSink{}, toastNotifier{}, pipeline.Options{
		Deadline:         time.Duration(cfg.OCRDeadlineSec) * time.Second,
		Mode:             preprocess.ParseMode(cfg.PreprocessingMode),
		AutoCopy:         cfg.AutoCopy,
		ShowNotification: cfg.ShowNotification,
		Workers:          1,
	})
	a.loop.OnBusyChange = tray.SetBusy
	a.loop.AfterResult = a.maybePlayMacro

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	// Engine warm-up is slow (model load), keep it off the startup path.
	go func() {
		if err := a.manager.Switch(ctx, initialEngine); err != nil {
			logutil.Errorf("Initial engine load failed: %v", err)
			notification.ShowError("OCR engine failed to load: " + err.Error())
		}
	}()

	go func() {
		runtime.LockOSThread()
		if err := a.win.Run(); err != nil {
			logutil.Errorf("Overlay window loop exited: %v", err)
		}
	}()

	go func() {
		if err := a.loop.Run(ctx); err != nil && err != context.Canceled {
			logutil.Errorf("Pipeline loop exited: %v", err)
		}
	}()

	if err := a.registerCaptureHotkey(); err != nil {
		logutil.Errorf("Capture hotkey registration failed: %v", err)
	}

	if !cfg.StartMinimized {
		// The window is created on its own thread; give it a beat before the
		// first Show so the posted message has a target.
		time.Sleep(200 * time.Millisecond)
		a.win.Show()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logutil.Systemf("Received signal %v, shutting down", sig)
		tray.Quit()
	}()

	tray.Run(tray.Callbacks{
		OnCaptureNow:    a.loop.Trigger,
		OnToggleOverlay: a.toggleOverlay,
		OnSelectEngine:  a.selectEngine,
		OnToggleMacro:   a.toggleMacro,
		OnRecordMacro:   a.toggleRecording,
		OnQuit:          a.shutdown,
	}, tray.Options{
		OverlayVisible: !cfg.StartMinimized,
		Engine:         initialEngine,
		MacroEnabled:   cfg.MacroEnabled,
	})

	logutil.Systemf("daisho stopped")
}

func (a *app) registerCaptureHotkey() error {
	return a.listener.Register(a.capture, func() {
		if a.ov.HotkeyEnabled() && a.ov.Visible() {
			a.loop.Trigger()
		}
	})
}

func (a *app) toggleOverlay() bool {
	visible := !a.ov.Visible()
	if visible {
		a.win.Show()
	} else {
		a.win.Hide()
	}
	return visible
}

func (a *app) selectEngine(id ocr.EngineID) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		if err := a.manager.Switch(ctx, id); err != nil {
			logutil.Errorf("Engine switch to %s failed: %v", id, err)
			notification.ShowError("Could not switch OCR engine: " + err.Error())
			return
		}
		a.mu.Lock()
		a.cfg.Settings.OCREngine = string(id)
		a.saveSettingsLocked()
		a.mu.Unlock()
		logutil.Systemf("Active OCR engine is now %s", id)
	}()
}

func (a *app) toggleMacro() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Settings.MacroEnabled = !a.cfg.Settings.MacroEnabled
	a.saveSettingsLocked()
	logutil.Infof("Macro playback enabled=%v", a.cfg.Settings.MacroEnabled)
	return a.cfg.Settings.MacroEnabled
}

// toggleRecording starts a macro recording session, or ends the one in
// progress and persists the captured events. The capture hotkey shares the
// global input hook with the recorder, so it is suspended for the duration.
func (a *app) toggleRecording() {
	switch a.mac.State() {
	case macro.StateRecording:
		events := a.mac.StopRecording()
		raw, err := macro.MarshalEvents(events)
		if err != nil {
			logutil.Errorf("Macro serialization failed: %v", err)
		} else {
			a.mu.Lock()
			a.cfg.Settings.MacroEvents = raw
			a.saveSettingsLocked()
			a.mu.Unlock()
			logutil.Systemf("Macro recorded: %d events", len(events))
			notification.ShowResult(fmt.Sprintf("Macro saved (%d events)", len(events)))
		}
		if err := a.registerCaptureHotkey(); err != nil {
			logutil.Errorf("Capture hotkey re-registration failed: %v", err)
		}
	case macro.StateIdle:
		a.listener.Unregister()
		if err := a.mac.StartRecording(); err != nil {
			logutil.Errorf("Macro recording failed to start: %v", err)
			if err := a.registerCaptureHotkey(); err != nil {
				logutil.Errorf("Capture hotkey re-registration failed: %v", err)
			}
			return
		}
		notification.ShowResult("Recording macro... select Record Macro again to stop")
	default:
		logutil.Debugf("Ignoring record request while macro is %s", a.mac.State())
	}
}

// maybePlayMacro runs the saved macro after each successful recognition.
// While it plays, the capture binding is swapped for the kill key so the user
// can abort runaway input.
func (a *app) maybePlayMacro() {
	a.mu.Lock()
	enabled := a.cfg.Settings.MacroEnabled
	raw := a.cfg.Settings.MacroEvents
	a.mu.Unlock()
	if !enabled {
		return
	}
	events, err := macro.ParseEvents(raw)
	if err != nil {
		logutil.Errorf("Saved macro is corrupt: %v", err)
		return
	}
	if len(events) == 0 {
		return
	}
	go func() {
		if err := a.listener.Register(a.kill, a.mac.Abort); err != nil {
			logutil.Errorf("Kill key registration failed: %v", err)
		}
		defer func() {
			if err := a.registerCaptureHotkey(); err != nil {
				logutil.Errorf("Capture hotkey re-registration failed: %v", err)
			}
		}()
		if err := a.mac.Play(context.Background(), events); err != nil {
			logutil.Errorf("Macro playback stopped: %v", err)
		}
	}()
}

func (a *app) persistGeometry(r overlay.Rect) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.Settings.OverlayGeometry = r.GeometryString()
	a.saveSettingsLocked()
}

func (a *app) saveSettingsLocked() {
	if err := config.Save(a.cfg.SettingsPath, a.cfg.Settings); err != nil {
		logutil.Errorf("Failed to save settings: %v", err)
	}
}

func (a *app) shutdown() {
	logutil.Systemf("daisho shutting down")
	a.mac.Abort()
	a.listener.Unregister()
	a.cancel()
	if err := a.manager.Close(); err != nil {
		logutil.Errorf("Engine shutdown: %v", err)
	}
	a.win.Close()
	a.mu.Lock()
	a.saveSettingsLocked()
	a.mu.Unlock()
}
