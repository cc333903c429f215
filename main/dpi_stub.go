//go:build !windows

package main

import "github.com/shanlichin2021/Japanese-OCR/logutil"

func enableDPIAwareness() {}

func logMonitorConfiguration() {
	logutil.Debugf("MONITOR: layout logging is Windows-only")
}
