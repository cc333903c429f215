//go:build !windows

package notification

import "github.com/shanlichin2021/Japanese-OCR/logutil"

func showToast(text string) {
	logutil.Infof("notification: %s", logutil.SanitizeText(text))
}

func showBlockingError(title, message string) {
	logutil.Errorf("%s: %s", title, message)
}
