//go:build windows

package notification

import (
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

var (
	user32               = syscall.NewLazyDLL("user32.dll")
	procMessageBox       = user32.NewProc("MessageBoxW")
	procCreateWindowEx   = user32.NewProc("CreateWindowExW")
	procDefWindowProc    = user32.NewProc("DefWindowProcW")
	procDestroyWindow    = user32.NewProc("DestroyWindow")
	procShowWindow       = user32.NewProc("ShowWindow")
	procSetWindowPos     = user32.NewProc("SetWindowPos")
	procGetSystemMetrics = user32.NewProc("GetSystemMetrics")
	procSetTimer         = user32.NewProc("SetTimer")
	procKillTimer        = user32.NewProc("KillTimer")
	procRegisterClassEx  = user32.NewProc("RegisterClassExW")
	procUpdateWindow     = user32.NewProc("UpdateWindow")
	procGetMessage       = user32.NewProc("GetMessageW")
	procDispatchMessage  = user32.NewProc("DispatchMessageW")
	procTranslateMessage = user32.NewProc("TranslateMessage")
	procBeginPaint       = user32.NewProc("BeginPaint")
	procEndPaint         = user32.NewProc("EndPaint")
	procDrawText         = user32.NewProc("DrawTextW")
	procLoadCursor       = user32.NewProc("LoadCursorW")
	procPostThreadMsg    = user32.NewProc("PostThreadMessageW")

	kernel32          = syscall.NewLazyDLL("kernel32.dll")
	procCurrentThread = kernel32.NewProc("GetCurrentThreadId")
)

const (
	wsPopup         = 0x80000000
	wsVisible       = 0x10000000
	wsExNoActivate  = 0x08000000
	wsExToolWindow  = 0x00000080
	wsExClientEdge  = 0x00000200
	wmDestroy       = 0x0002
	wmClose         = 0x0010
	wmPaint         = 0x000F
	wmTimer         = 0x0113
	wmLButtonDown   = 0x0201
	wmRButtonDown   = 0x0204
	wmExitToastLoop = 0x0400 + 2 // WM_USER + 2
	swShow          = 5
	swpNoActivate   = 0x0010
	swpNoMove       = 0x0002
	swpNoSize       = 0x0001
	hwndTopmost     = ^uintptr(0)
	smCYScreen      = 1
	dtWordBreak     = 0x00000010
	colorWindow     = 5
	idcArrow        = 32512
	closeTimerID    = 1
	closeTimerMS    = 3000

	toastWidth  = 400
	toastHeight = 100
	toastMargin = 20
)

type wndClassEx struct {
	CbSize        uint32
	Style         uint32
	LpfnWndProc   uintptr
	CbClsExtra    int32
	CbWndExtra    int32
	HInstance     syscall.Handle
	HIcon         syscall.Handle
	HCursor       syscall.Handle
	HbrBackground syscall.Handle
	LpszMenuName  *uint16
	LpszClassName *uint16
	HIconSm       syscall.Handle
}

type point struct{ X, Y int32 }

type msgStruct struct {
	Hwnd    syscall.Handle
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      point
}

type rect struct{ Left, Top, Right, Bottom int32 }

type paintStruct struct {
	Hdc         syscall.Handle
	FErase      int32
	RcPaint     rect
	FRestore    int32
	FIncUpdate  int32
	RgbReserved [32]byte
}

var (
	toastOnce  sync.Once
	toastQueue chan string

	toastMu   sync.Mutex
	toastText string
)

func showBlockingError(title, message string) {
	titlePtr, _ := syscall.UTF16PtrFromString(title)
	msgPtr, _ := syscall.UTF16PtrFromString(message)
	const mbOK = 0x00000000
	const mbIconError = 0x00000010
	const mbSystemModal = 0x00001000
	procMessageBox.Call(0, uintptr(unsafe.Pointer(msgPtr)), uintptr(unsafe.Pointer(titlePtr)), mbOK|mbIconError|mbSystemModal)
}

// showToast queues a toast onto the single popup thread. Toasts display
// sequentially; a full queue drops the request rather than blocking the
// pipeline.
func showToast(text string) {
	startToastThread()
	select {
	case toastQueue <- text:
	default:
		logutil.Debugf("notification: toast queue full, dropping")
	}
}

func startToastThread() {
	toastOnce.Do(func() {
		toastQueue = make(chan string, 8)
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()

			if err := registerToastClass(); err != nil {
				logutil.Errorf("notification: register class: %v", err)
				return
			}
			for text := range toastQueue {
				runToast(text)
			}
		}()
	})
}

func registerToastClass() error {
	className, _ := syscall.UTF16PtrFromString("DaishoToastClass")
	cursor, _, _ := procLoadCursor.Call(0, idcArrow)
	wc := wndClassEx{
		CbSize:        uint32(unsafe.Sizeof(wndClassEx{})),
		LpfnWndProc:   syscall.NewCallback(toastWndProc),
		HCursor:       syscall.Handle(cursor),
		HbrBackground: syscall.Handle(colorWindow + 1),
		LpszClassName: className,
	}
	if atom, _, _ := procRegisterClassEx.Call(uintptr(unsafe.Pointer(&wc))); atom == 0 {
		return syscall.GetLastError()
	}
	return nil
}

func toastWndProc(hwnd syscall.Handle, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case wmPaint:
		var ps paintStruct
		hdc, _, _ := procBeginPaint.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&ps)))
		toastMu.Lock()
		text := toastText
		toastMu.Unlock()
		r := rect{Left: 10, Top: 10, Right: toastWidth - 10, Bottom: toastHeight - 10}
		textPtr, _ := syscall.UTF16PtrFromString(text)
		procDrawText.Call(hdc, uintptr(unsafe.Pointer(textPtr)), uintptr(^uint32(0)), uintptr(unsafe.Pointer(&r)), dtWordBreak)
		procEndPaint.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&ps)))
		return 0

	case wmTimer, wmLButtonDown, wmRButtonDown, wmClose:
		procKillTimer.Call(uintptr(hwnd), closeTimerID)
		procDestroyWindow.Call(uintptr(hwnd))
		return 0

	case wmDestroy:
		threadID, _, _ := procCurrentThread.Call()
		procPostThreadMsg.Call(threadID, wmExitToastLoop, 0, 0)
		return 0
	}
	ret, _, _ := procDefWindowProc.Call(uintptr(hwnd), uintptr(msg), wParam, lParam)
	return ret
}

// runToast creates one toast window and pumps messages until it closes.
func runToast(text string) {
	toastMu.Lock()
	toastText = text
	toastMu.Unlock()

	className, _ := syscall.UTF16PtrFromString("DaishoToastClass")
	title, _ := syscall.UTF16PtrFromString("Recognition Result")

	screenHeight, _, _ := procGetSystemMetrics.Call(smCYScreen)
	x := int32(toastMargin)
	y := int32(screenHeight) - toastHeight - toastMargin

	hwnd, _, _ := procCreateWindowEx.Call(
		wsExNoActivate|wsExToolWindow|wsExClientEdge,
		uintptr(unsafe.Pointer(className)),
		uintptr(unsafe.Pointer(title)),
		wsPopup|wsVisible,
		uintptr(x), uintptr(y), toastWidth, toastHeight,
		0, 0, 0, 0,
	)
	if hwnd == 0 {
		logutil.Errorf("notification: failed to create toast window")
		return
	}

	procSetWindowPos.Call(hwnd, hwndTopmost, 0, 0, 0, 0, swpNoActivate|swpNoMove|swpNoSize)
	procShowWindow.Call(hwnd, swShow)
	procUpdateWindow.Call(hwnd)
	procSetTimer.Call(hwnd, closeTimerID, closeTimerMS, 0)

	var m msgStruct
	for {
		ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		if ret == 0 || m.Message == wmExitToastLoop {
			break
		}
		procTranslateMessage.Call(uintptr(unsafe.Pointer(&m)))
		procDispatchMessage.Call(uintptr(unsafe.Pointer(&m)))
	}
}
