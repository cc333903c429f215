// Package ocr runs Japanese text recognition through external engine
// processes. Each engine is a helper process spoken to over line-delimited
// JSON on stdin/stdout; the Manager guarantees at most one engine holds its
// model in memory at a time.
package ocr

import (
	"context"
	"errors"
	"fmt"
)

// EngineID names a recognition backend.
type EngineID string

const (
	EngineMangaOCR  EngineID = "manga_ocr"
	EnginePaddleOCR EngineID = "paddle_ocr"
)

// ErrEngineUnavailable means the engine process could not be started or its
// model failed to load.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// ErrRecognition means the engine ran but could not produce text for the
// given image.
var ErrRecognition = errors.New("recognition failed")

// ParseEngineID validates a settings value.
func ParseEngineID(s string) (EngineID, error) {
	switch EngineID(s) {
	case EngineMangaOCR, EnginePaddleOCR:
		return EngineID(s), nil
	default:
		return "", fmt.Errorf("unknown ocr engine %q", s)
	}
}

// Engine is a loaded recognition backend. Implementations are safe for use
// from a single goroutine; the pipeline serializes recognition anyway.
type Engine interface {
	ID() EngineID

	// Load starts the engine process and blocks until its model is resident.
	// Load on an already loaded engine is a no-op.
	Load(ctx context.Context) error

	// Recognize extracts text from PNG-encoded pixels. The returned string
	// may be empty when the region genuinely contains no text.
	Recognize(ctx context.Context, png []byte) (string, error)

	// Close terminates the engine process and releases its model.
	Close() error
}
