// Package notification shows transient recognition toasts. A toast sits in
// the lower-left corner, never steals focus, closes on click or after a few
// seconds.
package notification

import "github.com/shanlichin2021/Japanese-OCR/logutil"

// ShowResult displays recognized text near the corner of the screen.
func ShowResult(text string) {
	logutil.Debugf("notification: result %s", logutil.SanitizeText(text))
	showToast(text)
}

// ShowError displays a recognition failure toast.
func ShowError(message string) {
	logutil.Debugf("notification: error %s", logutil.SanitizeText(message))
	showToast(message)
}

// ShowBlockingError pops a modal dialog for startup failures that make the
// app unusable (clipboard init, hotkey registration).
func ShowBlockingError(title, message string) {
	showBlockingError(title, message)
}
