//go:build !windows
// +build !windows

package scm

// ReportStartupError is a no-op outside Windows.
func ReportStartupError(serviceName string, err error) {}
