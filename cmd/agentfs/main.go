package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/buildbeam/agentfs/internal/logger"
	"github.com/buildbeam/agentfs/internal/transport"
	"github.com/buildbeam/agentfs/pkg/config"
	"github.com/buildbeam/agentfs/pkg/session"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Override log level (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	setupLogging(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("agentfs starting, coordinator %s", cfg.Coordinator.Address)

	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	store, closeStore, err := config.NewContentStore(ctx, &cfg.Content)
	if err != nil {
		log.Fatalf("Failed to create artifact store: %v", err)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("Artifact store close error: %v", err)
		}
	}()
	_ = store // handed to the interception layer once it attaches

	dialCtx, dialCancel := context.WithTimeout(ctx, cfg.Coordinator.DialTimeout)
	channel, err := transport.Dial(dialCtx, cfg.Coordinator.Address)
	dialCancel()
	if err != nil {
		log.Fatalf("Failed to connect to coordinator at %s: %v", cfg.Coordinator.Address, err)
	}

	sess := session.New(channel, session.Options{
		WorkingDir:      cfg.Paths.WorkingDir,
		SystemTemp:      cfg.Paths.SystemTemp,
		CaseInsensitive: cfg.Paths.CaseInsensitive,
		FileRecordHint:  cfg.Coordinator.FileRecordHint,
		Metrics:         metricsResult.SessionMetrics,
	})
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("Session close error: %v", err)
		}
	}()

	for _, entry := range cfg.VFS {
		sess.VFS().Add(entry.Virtual, entry.Local)
	}

	if err := sess.Init(); err != nil {
		log.Fatalf("Failed to initialize session: %v", err)
	}
	logger.Info("Session established, %d mapped files known", sess.Files().Len())

	<-ctx.Done()
	fmt.Println()
	logger.Info("Shutdown signal received")
}

// setupLogging applies the logging section of the configuration.
func setupLogging(cfg *config.Config) {
	logger.SetLevel(cfg.Logging.Level)

	switch cfg.Logging.Output {
	case "", "stderr":
		// default
	case "stdout":
		logger.SetOutput(os.Stdout)
	default:
		f, err := os.OpenFile(cfg.Logging.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file %s: %v", cfg.Logging.Output, err)
		}
		logger.SetOutput(f)
	}
}
