// Package clipboard wraps the system clipboard. Recognized text lands here
// so it can be pasted straight into a dictionary or translator.
package clipboard

import (
	"sync"

	"golang.design/x/clipboard"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

var mu sync.Mutex

// Init must be called once before any write. Fails when no clipboard
// backend is available (headless session).
func Init() error {
	return clipboard.Init()
}

// WriteText replaces the clipboard with recognized text.
func WriteText(text string) {
	mu.Lock()
	defer mu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(text))
	logutil.Debugf("clipboard: wrote %s", logutil.SanitizeText(text))
}
