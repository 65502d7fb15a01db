package service

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StartupErrorFileName is the file WriteStartupErrorFile writes into logDir.
const StartupErrorFileName = "startup-error.log"

// WriteStartupErrorFile records a startup failure in logDir, for failures that
// happen before the logger exists. Only the latest error is kept.
func WriteStartupErrorFile(logDir, serviceName string, err error) error {
	if mkErr := os.MkdirAll(logDir, 0755); mkErr != nil {
		return mkErr
	}

	ts := time.Now().Format("2006-01-02 15:04:05")
	content := fmt.Sprintf("[%s] %s STARTUP ERROR\n%v\n", ts, serviceName, err)
	return os.WriteFile(filepath.Join(logDir, StartupErrorFileName), []byte(content), 0644)
}
