//go:build windows

package overlay

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"github.com/lxn/win"

	"github.com/shanlichin2021/Japanese-OCR/logutil"
)

const (
	overlayAlpha = 64 // ~25% opacity

	toggleButtonSize   = 24
	toggleButtonMargin = 5

	wmOverlayShow  = win.WM_USER + 1
	wmOverlayHide  = win.WM_USER + 2
	wmOverlayClose = win.WM_USER + 3
)

var (
	gdi32DLL      = syscall.NewLazyDLL("gdi32.dll")
	procCreatePen = gdi32DLL.NewProc("CreatePen")
	procRectangle = gdi32DLL.NewProc("Rectangle")
)

// Window hosts the overlay as a frameless, always-on-top, semi-transparent
// win32 window. One instance per process; Run owns the message loop thread.
type Window struct {
	overlay *Overlay

	hwnd      win.HWND
	className *uint16
}

// windowSingleton lets the wndproc callback reach the Window; win32 window
// procedures cannot carry a closure.
var windowSingleton *Window

// NewWindow registers the overlay window class.
func NewWindow(o *Overlay) (*Window, error) {
	w := &Window{overlay: o}
	windowSingleton = w

	className, err := syscall.UTF16PtrFromString(fmt.Sprintf("DaishoOverlay_%d", time.Now().UnixNano()))
	if err != nil {
		return nil, err
	}
	w.className = className

	wndClass := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		Style:         win.CS_HREDRAW | win.CS_VREDRAW,
		LpfnWndProc:   syscall.NewCallback(overlayWndProc),
		HInstance:     win.GetModuleHandle(nil),
		HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_ARROW)),
		HbrBackground: 0,
		LpszClassName: className,
	}
	if atom := win.RegisterClassEx(&wndClass); atom == 0 {
		return nil, fmt.Errorf("failed to register overlay window class")
	}

	return w, nil
}

// Run creates the window and pumps messages until Close. Must be called from
// a goroutine locked to its OS thread.
func (w *Window) Run() error {
	r := w.overlay.Rect()
	title, _ := syscall.UTF16PtrFromString("Daisho Capture Region")

	w.hwnd = win.CreateWindowEx(
		win.WS_EX_TOPMOST|win.WS_EX_TOOLWINDOW|win.WS_EX_LAYERED,
		w.className,
		title,
		win.WS_POPUP,
		int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height),
		0, 0, win.GetModuleHandle(nil), nil,
	)
	if w.hwnd == 0 {
		return fmt.Errorf("failed to create overlay window")
	}
	defer win.UnregisterClass(w.className)

	win.SetLayeredWindowAttributes(w.hwnd, 0, overlayAlpha, win.LWA_ALPHA)
	w.overlay.SetHider(w)

	var msg win.MSG
	for {
		ret := win.GetMessage(&msg, 0, 0, 0)
		if ret == 0 || ret == -1 {
			break
		}
		win.TranslateMessage(&msg)
		win.DispatchMessage(&msg)
	}

	win.DestroyWindow(w.hwnd)
	w.hwnd = 0
	return nil
}

// Show makes the overlay visible; callable from any goroutine.
func (w *Window) Show() {
	if w.hwnd != 0 {
		win.PostMessage(w.hwnd, wmOverlayShow, 0, 0)
	}
}

// Hide conceals the overlay; callable from any goroutine.
func (w *Window) Hide() {
	if w.hwnd != 0 {
		win.PostMessage(w.hwnd, wmOverlayHide, 0, 0)
	}
}

// Close ends the message loop.
func (w *Window) Close() {
	if w.hwnd != 0 {
		win.PostMessage(w.hwnd, wmOverlayClose, 0, 0)
	}
}

// HideForCapture / ShowAfterCapture implement the capture chrome exclusion:
// the window disappears for the grab so its border and button never land in
// the rasterized pixels.
func (w *Window) HideForCapture() {
	if w.hwnd != 0 {
		win.ShowWindow(w.hwnd, win.SW_HIDE)
	}
}

func (w *Window) ShowAfterCapture() {
	if w.hwnd != 0 && w.overlay.Visible() {
		win.ShowWindow(w.hwnd, win.SW_SHOWNOACTIVATE)
	}
}

func (w *Window) applyRect() {
	r := w.overlay.Rect()
	win.SetWindowPos(w.hwnd, win.HWND_TOPMOST,
		int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height),
		win.SWP_NOACTIVATE)
	win.InvalidateRect(w.hwnd, nil, true)
}

func (w *Window) toggleButtonHit(x, y int) bool {
	r := w.overlay.Rect()
	bx := r.Width - toggleButtonSize - toggleButtonMargin
	return x >= bx && x < bx+toggleButtonSize &&
		y >= toggleButtonMargin && y < toggleButtonMargin+toggleButtonSize
}

func overlayWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	w := windowSingleton
	if w == nil {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}

	switch msg {
	case win.WM_LBUTTONDOWN:
		x := int(int16(win.LOWORD(uint32(lParam))))
		y := int(int16(win.HIWORD(uint32(lParam))))
		if w.toggleButtonHit(x, y) {
			enabled := w.overlay.ToggleHotkey()
			logutil.Infof("overlay: hotkey capture %s", map[bool]string{true: "active", false: "paused"}[enabled])
			win.InvalidateRect(hwnd, nil, true)
			return 0
		}
		r := w.overlay.Rect()
		win.SetCapture(hwnd)
		w.overlay.PointerDown(r.X+x, r.Y+y)
		return 0

	case win.WM_MOUSEMOVE:
		x := int(int16(win.LOWORD(uint32(lParam))))
		y := int(int16(win.HIWORD(uint32(lParam))))
		r := w.overlay.Rect()
		switch w.overlay.State() {
		case StateDragging, StateResizing:
			w.overlay.PointerMove(r.X+x, r.Y+y)
			w.applyRect()
		default:
			setEdgeCursor(r.EdgeAt(x, y))
		}
		return 0

	case win.WM_LBUTTONUP:
		if s := w.overlay.State(); s == StateDragging || s == StateResizing {
			win.ReleaseCapture()
			w.overlay.PointerUp()
			w.applyRect()
		}
		return 0

	case win.WM_KEYDOWN:
		if wParam == win.VK_ESCAPE {
			w.overlay.SetVisible(false)
			win.ShowWindow(hwnd, win.SW_HIDE)
		}
		return 0

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		w.paint(hdc)
		win.EndPaint(hwnd, &ps)
		return 0

	case wmOverlayShow:
		w.overlay.SetVisible(true)
		win.ShowWindow(hwnd, win.SW_SHOWNOACTIVATE)
		w.applyRect()
		return 0

	case wmOverlayHide:
		w.overlay.SetVisible(false)
		win.ShowWindow(hwnd, win.SW_HIDE)
		return 0

	case wmOverlayClose:
		win.PostQuitMessage(0)
		return 0

	case win.WM_DESTROY:
		return 0
	}

	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}

// paint draws the chrome: black interior, red 2px border, toggle button
// (red = hotkey active, yellow = paused).
func (w *Window) paint(hdc win.HDC) {
	r := w.overlay.Rect()

	interior := win.RECT{Left: 0, Top: 0, Right: int32(r.Width), Bottom: int32(r.Height)}
	black := win.CreateSolidBrush(0x000000)
	win.FillRect(hdc, &interior, black)
	win.DeleteObject(win.HGDIOBJ(black))

	drawRect(hdc, 0, 0, int32(r.Width), int32(r.Height), 0x0000FF, BorderWidth) // red, BGR

	buttonColor := win.COLORREF(0x0000FF) // red
	if !w.overlay.HotkeyEnabled() {
		buttonColor = win.COLORREF(0x00FFFF) // yellow
	}
	bx := int32(r.Width - toggleButtonSize - toggleButtonMargin)
	button := win.RECT{Left: bx, Top: toggleButtonMargin, Right: bx + toggleButtonSize, Bottom: toggleButtonMargin + toggleButtonSize}
	brush := win.CreateSolidBrush(buttonColor)
	win.FillRect(hdc, &button, brush)
	win.DeleteObject(win.HGDIOBJ(brush))
}

func drawRect(hdc win.HDC, left, top, right, bottom int32, color uint32, width int32) {
	pen, _, _ := procCreatePen.Call(0, uintptr(width), uintptr(color))
	oldPen := win.SelectObject(hdc, win.HGDIOBJ(pen))
	oldBrush := win.SelectObject(hdc, win.GetStockObject(win.NULL_BRUSH))

	procRectangle.Call(uintptr(hdc), uintptr(left), uintptr(top), uintptr(right), uintptr(bottom))

	win.SelectObject(hdc, oldPen)
	win.SelectObject(hdc, oldBrush)
	win.DeleteObject(win.HGDIOBJ(pen))
}

func setEdgeCursor(edge Edge) {
	var id uintptr
	switch edge {
	case EdgeTop, EdgeBottom:
		id = win.IDC_SIZENS
	case EdgeLeft, EdgeRight:
		id = win.IDC_SIZEWE
	case EdgeTopLeft, EdgeBottomRight:
		id = win.IDC_SIZENWSE
	case EdgeTopRight, EdgeBottomLeft:
		id = win.IDC_SIZENESW
	default:
		id = win.IDC_ARROW
	}
	win.SetCursor(win.LoadCursor(0, win.MAKEINTRESOURCE(id)))
}
