// Package pipeline coordinates one capture-recognize-deliver cycle. A
// single goroutine owns all state; hotkey triggers, worker results, and
// shutdown all arrive as channel events.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
	"github.com/shanlichin2021/Japanese-OCR/overlay"
	"github.com/shanlichin2021/Japanese-OCR/preprocess"
	"github.com/shanlichin2021/Japanese-OCR/worker"
)

// Capturer produces region pixels, normally the overlay.
type Capturer interface {
	Capture() (overlay.CaptureResult, error)
}

// Recognizer turns PNG pixels into text, normally the engine manager.
type Recognizer interface {
	Recognize(ctx context.Context, png []byte) (string, error)
}

// Clipboard receives recognized text.
type Clipboard interface {
	WriteText(text string)
}

// Notifier shows transient result and error toasts.
type Notifier interface {
	ShowResult(text string)
	ShowError(message string)
}

// Options tune one pipeline instance. Zero values get sensible defaults.
type Options struct {
	// Deadline bounds a single recognition. Default 20s.
	Deadline time.Duration
	// Mode is the preprocessing chain applied before recognition.
	Mode preprocess.Mode
	// AutoCopy places recognized text on the clipboard.
	AutoCopy bool
	// ShowNotification displays a result toast.
	ShowNotification bool
	// Workers sizes the recognition pool. Default 1.
	Workers int
}

// Loop is the pipeline coordinator.
type Loop struct {
	capturer   Capturer
	recognizer Recognizer
	clipboard  Clipboard
	notifier   Notifier
	opts       Options

	pool     *worker.Pool
	triggers chan struct{}
	results  chan jobResult
	busy     bool

	// OnBusyChange fires from the loop goroutine when processing starts or
	// stops; the tray uses it to flip its tooltip.
	OnBusyChange func(busy bool)
	// AfterResult fires after a successful delivery, used to kick off macro
	// playback between captures.
	AfterResult func()
}

type jobResult struct {
	text   string
	err    error
	cancel context.CancelFunc
}

// New wires a pipeline. All collaborators must be non-nil except notifier,
// which may be nil when toasts are disabled entirely.
func New(capturer Capturer, recognizer Recognizer, clipboard Clipboard, notifier Notifier, opts Options) *Loop {
	if opts.Deadline <= 0 {
		opts.Deadline = 20 * time.Second
	}
	l := &Loop{
		capturer:   capturer,
		recognizer: recognizer,
		clipboard:  clipboard,
		notifier:   notifier,
		opts:       opts,
		triggers:   make(chan struct{}, 4),
		results:    make(chan jobResult, 1),
	}
	l.pool = worker.New(opts.Workers, l.recognizeJob)
	return l
}

// Trigger requests a capture cycle. Never blocks; extra triggers while the
// buffer is full are dropped, the busy guard drops the rest.
func (l *Loop) Trigger() {
	select {
	case l.triggers <- struct{}{}:
	default:
	}
}

// Run processes triggers until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.pool.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.triggers:
			l.handleTrigger(ctx)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) setBusy(b bool) {
	l.busy = b
	if l.OnBusyChange != nil {
		l.OnBusyChange(b)
	}
}

func (l *Loop) handleTrigger(ctx context.Context) {
	if l.busy {
		logutil.Debugf("pipeline: busy, dropping trigger")
		return
	}

	capture, err := l.capturer.Capture()
	if err != nil {
		var capErr *overlay.CaptureError
		if errors.As(err, &capErr) {
			logutil.Errorf("pipeline: capture failed: %s", capErr.Reason)
		} else {
			logutil.Errorf("pipeline: capture failed: %v", err)
		}
		if l.notifier != nil {
			l.notifier.ShowError("Capture failed")
		}
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, l.opts.Deadline)
	l.setBusy(true)
	submitted := l.pool.Submit(jobCtx, capture.Image, func(text string, err error) {
		l.results <- jobResult{text: text, err: err, cancel: cancel}
	})
	if !submitted {
		cancel()
		l.setBusy(false)
		logutil.Debugf("pipeline: worker slot full, dropping capture")
	}
}

// recognizeJob runs on a worker goroutine: preprocessing happens here so the
// loop stays responsive during heavy image work.
func (l *Loop) recognizeJob(ctx context.Context, png []byte) (string, error) {
	processed, err := preprocess.Apply(png, l.opts.Mode)
	if err != nil {
		return "", err
	}
	return l.recognizer.Recognize(ctx, processed)
}

func (l *Loop) handleResult(res jobResult) {
	defer func() {
		l.setBusy(false)
		if res.cancel != nil {
			res.cancel()
		}
	}()

	if res.err != nil {
		logutil.Errorf("pipeline: recognition failed: %v", res.err)
		if l.notifier != nil {
			l.notifier.ShowError("Recognition failed")
		}
		return
	}

	logutil.Infof("pipeline: recognized %s", logutil.SanitizeText(res.text))
	if l.opts.AutoCopy {
		l.clipboard.WriteText(res.text)
	}
	if l.opts.ShowNotification && l.notifier != nil {
		l.notifier.ShowResult(res.text)
	}
	if l.AfterResult != nil {
		l.AfterResult()
	}
}
