// Package main is the entry point for the Meddler service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"meddler/internal/config"
	"meddler/internal/hook"
	"meddler/internal/logger"
	"meddler/internal/scm"
	"meddler/internal/service"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const startupErrorLogDir = "log/Meddler"

func main() {
	var (
		configPath  = flag.String("config", "conf/Meddler/Meddler.json", "Path to service configuration file")
		loggingPath = flag.String("logging", "conf/Meddler/Logging.json", "Path to logging configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		showStatus  = flag.Bool("status", false, "Query the installed service's status and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("Meddler %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	// The SCM starts services in C:\Windows\System32. An absolute config path
	// (<base>\conf\Meddler\Meddler.json) means service mode: run from <base>
	// so relative log paths land next to the installation.
	if filepath.IsAbs(*configPath) {
		basePath := filepath.Dir(filepath.Dir(filepath.Dir(*configPath)))
		if err := os.Chdir(basePath); err != nil {
			fail(config.DefaultServiceName, fmt.Errorf("failed to chdir to %s: %w", basePath, err))
		}
	}

	rt := scm.NewRuntime()
	if _, ok := rt.(*scm.ConsoleRuntime); !ok {
		logger.SetServiceMode(true)
	}

	cfg, lc, err := config.LoadSplit(*configPath, *loggingPath)
	if err != nil {
		fail(config.DefaultServiceName, err)
	}

	if *showStatus {
		info, err := scm.QueryService(cfg.ServiceName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s: %s (started=%v, pid=%d)\n", info.Name, info.State, info.Started, info.ProcessID)
		os.Exit(0)
	}

	if err := logger.Init(*lc); err != nil {
		fail(cfg.ServiceName, fmt.Errorf("failed to initialize logger: %w", err))
	}
	defer logger.Close()

	log := logger.WithComponent("main")
	log.Info().
		Str("version", version).
		Str("service", cfg.ServiceName).
		Str("config", *configPath).
		Str("logging", *loggingPath).
		Msg("Starting Meddler")

	stopWatcher := watchLogging(*loggingPath)
	defer stopWatcher()

	svc := service.New(service.Options{
		Name:     cfg.ServiceName,
		Runtime:  rt,
		Provider: hook.NewProvider(hook.Options{InstallTimeout: cfg.Hook.InstallTimeout}),
		Reporter: service.NewReporter(service.ReporterOptions{
			MaxAttempts:  cfg.StatusReport.MaxAttempts,
			RetryBackoff: cfg.StatusReport.RetryBackoff,
		}),
	})

	err = svc.Run(context.Background())
	log = logger.WithComponent("main")
	if err != nil {
		if errors.Is(err, scm.ErrNotService) {
			log.Error().Err(err).Msg("Start the service through the service manager or run from a console")
		}
		scm.ReportStartupError(cfg.ServiceName, err)
		log.Error().Err(err).Msg("Service exited with error")
		logger.Close()
		os.Exit(1)
	}

	log.Info().Msg("Meddler stopped")
}

// fail reports an error that happened before the logger was available and exits.
func fail(serviceName string, err error) {
	scm.ReportStartupError(serviceName, err)
	service.WriteStartupErrorFile(startupErrorLogDir, serviceName, err)
	fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(1)
}

// watchLogging hot-reloads Logging.json. It returns a function that stops the watcher.
func watchLogging(path string) func() {
	log := logger.WithComponent("main")

	w, err := config.NewLoggingWatcher(path, func(lc *logger.Config) {
		err := logger.Init(*lc)
		// Init replaced the writers; take a fresh logger.
		l := logger.WithComponent("main")
		if err != nil {
			l.Error().Err(err).Msg("Failed to apply logging configuration")
			return
		}
		l.Info().Str("level", lc.Level).Msg("Logging configuration updated")
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create logging watcher, hot reload disabled")
		return func() {}
	}
	if err := w.Start(); err != nil {
		log.Warn().Err(err).Msg("Failed to start logging watcher, hot reload disabled")
		w.Stop()
		return func() {}
	}

	return func() {
		if err := w.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping logging watcher")
		}
	}
}
