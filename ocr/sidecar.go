package ocr

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

// request is one line sent to the engine process.
type request struct {
	ID    int64  `json:"id"`
	Image string `json:"image"` // base64 PNG
}

// response is one line read back. Status "ready" is emitted once after the
// model finishes loading; recognition responses echo the request id.
type response struct {
	ID     int64  `json:"id"`
	Status string `json:"status,omitempty"`
	Text   string `json:"text,omitempty"`
	Error  string `json:"error,omitempty"`
}

const (
	// Model load can pull weights from disk on first run.
	defaultLoadTimeout = 120 * time.Second
	maxResponseLine    = 4 * 1024 * 1024
	// lineBacklog buffers responses abandoned on a deadline so the reader
	// goroutine never parks on a send.
	lineBacklog = 16
)

// sidecarEngine drives a helper process over stdin/stdout. One request is in
// flight at a time.
type sidecarEngine struct {
	id      EngineID
	command []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  <-chan readResult
	nextID int64
	loaded bool
}

type readResult struct {
	resp response
	err  error
}

// newSidecarEngine builds an engine around a helper command line. The
// command is split on whitespace; the process is not started until Load.
func newSidecarEngine(id EngineID, command string) *sidecarEngine {
	return &sidecarEngine{id: id, command: strings.Fields(command)}
}

func (e *sidecarEngine) ID() EngineID { return e.id }

func (e *sidecarEngine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return nil
	}
	if len(e.command) == 0 {
		return fmt.Errorf("%w: no command configured for %s", ErrEngineUnavailable, e.id)
	}

	cmd := exec.Command(e.command[0], e.command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("%w: stdin pipe: %v", ErrEngineUnavailable, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: stdout pipe: %v", ErrEngineUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %q: %v", ErrEngineUnavailable, e.command[0], err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxResponseLine)
	lines := make(chan readResult, lineBacklog)
	go readLines(scanner, lines)

	logutil.Infof("ocr: loading %s (pid %d)", e.id, cmd.Process.Pid)
	start := time.Now()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultLoadTimeout)
		defer cancel()
	}

	resp, err := awaitLine(ctx, lines)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return fmt.Errorf("%w: %s did not become ready: %v", ErrEngineUnavailable, e.id, err)
	}
	if resp.Status != "ready" {
		cmd.Process.Kill()
		cmd.Wait()
		return fmt.Errorf("%w: %s reported %q instead of ready", ErrEngineUnavailable, e.id, resp.Status)
	}

	e.cmd = cmd
	e.stdin = stdin
	e.lines = lines
	e.loaded = true
	logutil.Systemf("ocr: %s ready in %.1fs", e.id, time.Since(start).Seconds())
	return nil
}

func (e *sidecarEngine) Recognize(ctx context.Context, png []byte) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return "", fmt.Errorf("%w: %s is not loaded", ErrEngineUnavailable, e.id)
	}

	e.nextID++
	req := request{ID: e.nextID, Image: base64.StdEncoding.EncodeToString(png)}
	text, err := transact(ctx, e.stdin, e.lines, req)
	if err != nil {
		return "", err
	}
	return text, nil
}

// readLines is the only goroutine that ever touches the helper's stdout.
// It runs for the life of the process; a caller that gives up on a deadline
// leaves its response in the channel, where the next request discards it as
// stale.
func readLines(scanner *bufio.Scanner, out chan<- readResult) {
	defer close(out)
	for scanner.Scan() {
		var resp response
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			out <- readResult{err: fmt.Errorf("engine sent malformed response: %w", err)}
			return
		}
		out <- readResult{resp: resp}
	}
	if err := scanner.Err(); err != nil {
		out <- readResult{err: fmt.Errorf("engine read: %w", err)}
	}
}

// awaitLine receives the next parsed response, honoring ctx cancellation.
func awaitLine(ctx context.Context, lines <-chan readResult) (response, error) {
	select {
	case r, ok := <-lines:
		if !ok {
			return response{}, fmt.Errorf("engine closed its output")
		}
		return r.resp, r.err
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

// transact writes one request line and waits for the matching response.
// Split out from the process plumbing so the protocol is testable with
// in-memory pipes.
func transact(ctx context.Context, w io.Writer, lines <-chan readResult, req request) (string, error) {
	line, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrRecognition, err)
	}
	if _, err := w.Write(append(line, '\n')); err != nil {
		return "", fmt.Errorf("%w: engine write: %v", ErrRecognition, err)
	}

	for {
		resp, err := awaitLine(ctx, lines)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrRecognition, err)
		}
		if resp.ID != req.ID {
			// Stale response from an abandoned request, skip it.
			continue
		}
		if resp.Error != "" {
			return "", fmt.Errorf("%w: %s", ErrRecognition, resp.Error)
		}
		return resp.Text, nil
	}
}

func (e *sidecarEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.loaded {
		return nil
	}
	e.loaded = false

	// Closing stdin asks the helper to exit; kill if it lingers. The reader
	// goroutine exits on its own once the stdout pipe drains.
	e.stdin.Close()
	done := make(chan error, 1)
	go func() { done <- e.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		logutil.Errorf("ocr: %s did not exit, killing", e.id)
		e.cmd.Process.Kill()
		<-done
	}

	e.cmd = nil
	e.stdin = nil
	e.lines = nil
	logutil.Infof("ocr: %s unloaded", e.id)
	return nil
}
