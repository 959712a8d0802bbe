//go:build windows

// Package notify plays the platform alert sound when a notification fires.
package notify

import "golang.org/x/sys/windows"

const mbIconExclamation = 0x00000030

var (
	modUser32       = windows.NewLazySystemDLL("user32.dll")
	procMessageBeep = modUser32.NewProc("MessageBeep")
)

// Beep plays the exclamation system sound. Best effort; failures are ignored
// so a missing sound scheme never disturbs the monitoring loop.
func Beep() {
	_, _, _ = procMessageBeep.Call(uintptr(mbIconExclamation))
}
