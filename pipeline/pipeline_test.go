package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
	"github.com/shanlichin2021/Japanese-OCR/ocr"
	"github.com/shanlichin2021/Japanese-OCR/overlay"
	"github.com/shanlichin2021/Japanese-OCR/preprocess"
	"github.com/shanlichin2021/Japanese-OCR/screenshot"
)

// logBuffer captures log output for assertions. logutil serializes writes,
// but the test goroutine reads while the loop may still log, so it carries
// its own lock.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimSpace(b.buf.String()), "\n")
}

func captureLog(t *testing.T) *logBuffer {
	t.Helper()
	buf := &logBuffer{}
	prev := logutil.SetOutput(buf)
	t.Cleanup(func() { logutil.SetOutput(prev) })
	return buf
}

type fakeCapturer struct {
	result overlay.CaptureResult
	err    error
	calls  atomic.Int32
}

func (f *fakeCapturer) Capture() (overlay.CaptureResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return overlay.CaptureResult{}, f.err
	}
	return f.result, nil
}

type fakeRecognizer struct {
	text    string
	err     error
	block   chan struct{} // when non-nil, Recognize waits on it
	calls   atomic.Int32
	started chan struct{}
}

func (f *fakeRecognizer) Recognize(ctx context.Context, png []byte) (string, error) {
	f.calls.Add(1)
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	return f.text, f.err
}

type fakeClipboard struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeClipboard) WriteText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
}

func (f *fakeClipboard) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type fakeNotifier struct {
	mu      sync.Mutex
	results []string
	errors  []string
}

func (f *fakeNotifier) ShowResult(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, text)
}

func (f *fakeNotifier) ShowError(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, message)
}

func (f *fakeNotifier) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.results), len(f.errors)
}

func captureFixture() overlay.CaptureResult {
	return overlay.CaptureResult{
		Image:     []byte("png-bytes"),
		Timestamp: time.Now(),
		Region:    screenshot.Region{X: 100, Y: 100, Width: 200, Height: 150},
	}
}

func startLoop(t *testing.T, l *Loop) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("loop did not stop")
		}
	})
	return cancel
}

func defaultOpts() Options {
	return Options{
		Deadline:         5 * time.Second,
		Mode:             preprocess.ModeNone,
		AutoCopy:         true,
		ShowNotification: true,
	}
}

func TestPipelineDeliversTextToClipboard(t *testing.T) {
	cap := &fakeCapturer{result: captureFixture()}
	rec := &fakeRecognizer{text: "ありがとう"}
	clip := &fakeClipboard{}
	notif := &fakeNotifier{}
	l := New(cap, rec, clip, notif, defaultOpts())
	startLoop(t, l)

	l.Trigger()

	waitFor(t, func() bool { return len(clip.all()) == 1 })
	if got := clip.all()[0]; got != "ありがとう" {
		t.Errorf("clipboard = %q", got)
	}
	waitFor(t, func() bool { r, _ := notif.counts(); return r == 1 })
}

func TestPipelineRapidDoubleTriggerRecognizesOnce(t *testing.T) {
	cap := &fakeCapturer{result: captureFixture()}
	rec := &fakeRecognizer{text: "x", block: make(chan struct{}), started: make(chan struct{}, 1)}
	clip := &fakeClipboard{}
	l := New(cap, rec, clip, nil, defaultOpts())
	startLoop(t, l)

	l.Trigger()
	<-rec.started // first recognition underway, loop is busy
	l.Trigger()
	l.Trigger()

	// Let the extra triggers drain through the loop before releasing.
	time.Sleep(50 * time.Millisecond)
	close(rec.block)

	waitFor(t, func() bool { return len(clip.all()) == 1 })
	time.Sleep(50 * time.Millisecond)
	if got := rec.calls.Load(); got != 1 {
		t.Errorf("recognize calls = %d, want 1 (busy guard must drop extra triggers)", got)
	}
	if got := cap.calls.Load(); got != 1 {
		t.Errorf("capture calls = %d, want 1", got)
	}
}

func TestPipelineRecognitionErrorLeavesClipboardUntouched(t *testing.T) {
	logs := captureLog(t)
	cap := &fakeCapturer{result: captureFixture()}
	rec := &fakeRecognizer{err: ocr.ErrRecognition}
	clip := &fakeClipboard{}
	notif := &fakeNotifier{}
	l := New(cap, rec, clip, notif, defaultOpts())
	startLoop(t, l)

	l.Trigger()

	waitFor(t, func() bool { _, e := notif.counts(); return e == 1 })
	if texts := clip.all(); len(texts) != 0 {
		t.Errorf("clipboard received %v on a failed recognition", texts)
	}

	var errorLine string
	for _, line := range logs.lines() {
		if level, ok := logutil.ParseLevel(line); ok && level == logutil.LevelError {
			errorLine = line
		}
	}
	if errorLine == "" {
		t.Fatal("a failed recognition must append an ERROR log line")
	}
	if !strings.Contains(errorLine, "recognition failed") {
		t.Errorf("error line = %q, want the recognition failure message", errorLine)
	}
}

func TestPipelineCaptureErrorSkipsRecognition(t *testing.T) {
	cap := &fakeCapturer{err: &overlay.CaptureError{Reason: "degenerate region"}}
	rec := &fakeRecognizer{text: "never"}
	clip := &fakeClipboard{}
	notif := &fakeNotifier{}
	l := New(cap, rec, clip, notif, defaultOpts())
	startLoop(t, l)

	l.Trigger()

	waitFor(t, func() bool { _, e := notif.counts(); return e == 1 })
	if rec.calls.Load() != 0 {
		t.Error("recognizer should not run when capture fails")
	}
	if len(clip.all()) != 0 {
		t.Error("clipboard should stay untouched when capture fails")
	}
}

func TestPipelineBusyFlagClearsAfterFailure(t *testing.T) {
	cap := &fakeCapturer{result: captureFixture()}
	rec := &fakeRecognizer{err: errors.New("boom")}
	clip := &fakeClipboard{}
	notif := &fakeNotifier{}
	l := New(cap, rec, clip, notif, defaultOpts())

	var busyStates []bool
	var mu sync.Mutex
	l.OnBusyChange = func(b bool) {
		mu.Lock()
		busyStates = append(busyStates, b)
		mu.Unlock()
	}
	startLoop(t, l)

	l.Trigger()
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(busyStates) == 2
	})

	mu.Lock()
	if !busyStates[0] || busyStates[1] {
		t.Errorf("busy transitions = %v, want [true false]", busyStates)
	}
	mu.Unlock()

	// A new trigger must work again.
	rec.err = nil
	rec.text = "回復"
	l.Trigger()
	waitFor(t, func() bool { return len(clip.all()) == 1 })
}

func TestPipelineAfterResultHook(t *testing.T) {
	cap := &fakeCapturer{result: captureFixture()}
	rec := &fakeRecognizer{text: "next"}
	clip := &fakeClipboard{}
	l := New(cap, rec, clip, nil, defaultOpts())

	fired := make(chan struct{}, 1)
	l.AfterResult = func() { fired <- struct{}{} }
	startLoop(t, l)

	l.Trigger()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("AfterResult never fired")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition never met")
		default:
			time.Sleep(2 * time.Millisecond)
		}
	}
}
