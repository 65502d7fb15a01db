//go:build windows
// +build windows

package scm

import (
	"fmt"

	"golang.org/x/sys/windows/svc/eventlog"
)

// ReportStartupError writes a startup error to the Windows Event Log under the
// service's own source, so "sc start" failures are visible in Event Viewer
// before the logger is up.
func ReportStartupError(serviceName string, err error) {
	// Registering the source is idempotent.
	_ = eventlog.InstallAsEventCreate(serviceName, eventlog.Error|eventlog.Warning|eventlog.Info)

	elog, openErr := eventlog.Open(serviceName)
	if openErr != nil {
		return
	}
	defer elog.Close()

	elog.Error(1, fmt.Sprintf("%s failed to start: %v", serviceName, err))
}
