package ocr

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

func linesOver(input ...string) <-chan readResult {
	scanner := bufio.NewScanner(strings.NewReader(strings.Join(input, "\n") + "\n"))
	out := make(chan readResult, lineBacklog)
	go readLines(scanner, out)
	return out
}

func TestTransactRoundTrip(t *testing.T) {
	var sent bytes.Buffer
	lines := linesOver(`{"id":1,"text":"吾輩は猫である"}`)

	text, err := transact(context.Background(), &sent, lines, request{ID: 1, Image: "cGluZw=="})
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	if text != "吾輩は猫である" {
		t.Errorf("text = %q", text)
	}

	var req request
	if err := json.Unmarshal(bytes.TrimSpace(sent.Bytes()), &req); err != nil {
		t.Fatalf("request line is not valid JSON: %v", err)
	}
	if req.ID != 1 || req.Image != "cGluZw==" {
		t.Errorf("request = %+v", req)
	}
}

func TestTransactSkipsStaleResponses(t *testing.T) {
	var sent bytes.Buffer
	lines := linesOver(
		`{"id":7,"text":"stale"}`,
		`{"id":9,"text":"fresh"}`,
	)

	text, err := transact(context.Background(), &sent, lines, request{ID: 9})
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	if text != "fresh" {
		t.Errorf("text = %q, want the response matching the request id", text)
	}
}

func TestTransactEngineError(t *testing.T) {
	var sent bytes.Buffer
	lines := linesOver(`{"id":1,"error":"inference failed"}`)

	_, err := transact(context.Background(), &sent, lines, request{ID: 1})
	if !errors.Is(err, ErrRecognition) {
		t.Fatalf("error = %v, want ErrRecognition", err)
	}
	if !strings.Contains(err.Error(), "inference failed") {
		t.Errorf("error should carry the engine message, got %v", err)
	}
}

func TestTransactClosedOutput(t *testing.T) {
	var sent bytes.Buffer
	lines := make(chan readResult, lineBacklog)
	go readLines(bufio.NewScanner(strings.NewReader("")), lines)

	_, err := transact(context.Background(), &sent, lines, request{ID: 1})
	if !errors.Is(err, ErrRecognition) {
		t.Errorf("error = %v, want ErrRecognition", err)
	}
}

func TestTransactHonorsDeadline(t *testing.T) {
	// A channel nothing ever feeds: the engine stays silent.
	lines := make(chan readResult)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var sent bytes.Buffer
	_, err := transact(ctx, &sent, lines, request{ID: 1})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

// A request abandoned on a deadline must not poison the engine: its late
// response stays in the reader channel and the next request skips it. The
// single reader goroutine owns the scanner throughout, so the retry never
// races the abandoned read.
func TestTransactRecoversAfterDeadline(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	lines := make(chan readResult, lineBacklog)
	go readLines(bufio.NewScanner(pr), lines)

	var sent bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	_, err := transact(ctx, &sent, lines, request{ID: 1, Image: "YQ=="})
	cancel()
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("first transact: %v, want context.DeadlineExceeded", err)
	}

	// The helper answers the abandoned request late, then the retry.
	go func() {
		fmt.Fprintln(pw, `{"id":1,"text":"late"}`)
		fmt.Fprintln(pw, `{"id":2,"text":"retry"}`)
	}()

	text, err := transact(context.Background(), &sent, lines, request{ID: 2, Image: "Yg=="})
	if err != nil {
		t.Fatalf("second transact: %v", err)
	}
	if text != "retry" {
		t.Errorf("text = %q, want the retry's response", text)
	}
}

func TestRecognizeWithoutLoad(t *testing.T) {
	e := newSidecarEngine(EngineMangaOCR, "true")
	_, err := e.Recognize(context.Background(), []byte("png"))
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("error = %v, want ErrEngineUnavailable", err)
	}
}

func TestLoadEmptyCommand(t *testing.T) {
	e := newSidecarEngine(EngineMangaOCR, "   ")
	err := e.Load(context.Background())
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("error = %v, want ErrEngineUnavailable", err)
	}
}
