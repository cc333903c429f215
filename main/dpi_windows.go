//go:build windows

package main

import (
	"syscall"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

// enableDPIAwareness opts in to per-monitor DPI awareness so overlay
// coordinates match physical pixels on scaled displays.
func enableDPIAwareness() {
	shcore := syscall.NewLazyDLL("Shcore.dll")
	setProcessDpiAwareness := shcore.NewProc("SetProcessDpiAwareness")
	const processPerMonitorDPIAware = 2
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret == 0 {
			logutil.Debugf("DPI: per-monitor awareness set")
		} else {
			logutil.Errorf("DPI: SetProcessDpiAwareness failed, code %d", ret)
		}
		return
	}

	user32 := syscall.NewLazyDLL("user32.dll")
	setProcessDPIAware := user32.NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err == nil {
		ret, _, _ := setProcessDPIAware.Call()
		if ret != 0 {
			logutil.Debugf("DPI: system awareness set (fallback)")
		} else {
			logutil.Errorf("DPI: SetProcessDPIAware fallback failed")
		}
	} else {
		logutil.Errorf("DPI: no awareness API available")
	}
}

// logMonitorConfiguration records the monitor layout at startup; it is the
// first thing to check when a capture lands on the wrong pixels.
func logMonitorConfiguration() {
	user32 := syscall.NewLazyDLL("user32.dll")
	getSystemMetrics := user32.NewProc("GetSystemMetrics")

	const (
		smCXScreen        = 0
		smCYScreen        = 1
		smXVirtualScreen  = 76
		smYVirtualScreen  = 77
		smCXVirtualScreen = 78
		smCYVirtualScreen = 79
		smCMonitors       = 80
	)

	count, _, _ := getSystemMetrics.Call(uintptr(smCMonitors))
	logutil.Infof("MONITOR: detected %d monitors", count)

	vx, _, _ := getSystemMetrics.Call(uintptr(smXVirtualScreen))
	vy, _, _ := getSystemMetrics.Call(uintptr(smYVirtualScreen))
	vw, _, _ := getSystemMetrics.Call(uintptr(smCXVirtualScreen))
	vh, _, _ := getSystemMetrics.Call(uintptr(smCYVirtualScreen))
	logutil.Infof("MONITOR: virtual screen x:%d y:%d w:%d h:%d", vx, vy, vw, vh)

	pw, _, _ := getSystemMetrics.Call(uintptr(smCXScreen))
	ph, _, _ := getSystemMetrics.Call(uintptr(smCYScreen))
	logutil.Infof("MONITOR: primary screen w:%d h:%d", pw, ph)
}
