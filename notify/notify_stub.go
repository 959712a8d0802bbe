//go:build !windows

package notify

// Beep is a no-op on platforms without a system alert sound API.
func Beep() {}
