//go:build windows
// +build windows

package scm

import (
	"fmt"
	"strings"

	"github.com/yusufpapurcu/wmi"
)

type win32Service struct {
	Name      string
	State     string
	Started   bool
	ProcessId uint32
}

// QueryService asks WMI for the named service's current status.
func QueryService(name string) (*ServiceInfo, error) {
	var dst []win32Service
	q := fmt.Sprintf("SELECT Name, State, Started, ProcessId FROM Win32_Service WHERE Name = '%s'",
		strings.ReplaceAll(name, "'", "\\'"))
	if err := wmi.Query(q, &dst); err != nil {
		return nil, fmt.Errorf("WMI query for service %q failed: %w", name, err)
	}
	if len(dst) == 0 {
		return nil, fmt.Errorf("service %q is not installed", name)
	}
	return &ServiceInfo{
		Name:      dst[0].Name,
		State:     dst[0].State,
		Started:   dst[0].Started,
		ProcessID: dst[0].ProcessId,
	}, nil
}
