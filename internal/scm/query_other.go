//go:build !windows
// +build !windows

package scm

import "fmt"

// QueryService is only available on Windows.
func QueryService(name string) (*ServiceInfo, error) {
	return nil, fmt.Errorf("querying service %q requires Windows", name)
}
