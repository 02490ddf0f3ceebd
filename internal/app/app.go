package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ARTIFACTIQ/gt-audit/internal/config"
	"github.com/ARTIFACTIQ/gt-audit/internal/history"
	"github.com/ARTIFACTIQ/gt-audit/internal/logging"
)

// NewApp builds the runtime for one command from a validated configuration:
// logger first, then the optional history store. The caller owns cfg; it is
// never mutated here.
func NewApp(cfg *config.Config) (*App, error) {
	logFile := cfg.LogFile
	if logFile == "" {
		logDir := filepath.Join(config.DefaultAuditDir(), "logs")
		logFile = filepath.Join(logDir, fmt.Sprintf("gt-audit-%s.log", time.Now().Format("2006-01-02")))
	} else if !filepath.IsAbs(logFile) {
		logFile = filepath.Join(config.DefaultAuditDir(), logFile)
	}
	logDir := filepath.Dir(logFile)

	// Ensure log directory exists before initializing logger
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, logFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	var store *history.Store
	if cfg.HistoryEnabled {
		store, err = history.Open(cfg.HistoryPath)
		if err != nil {
			logger.Error("Failed to open history store", zap.Error(err))
			return nil, fmt.Errorf("failed to open history store: %w", err)
		}
	}

	// Create context for managing goroutines
	ctx, cancel := context.WithCancel(context.Background())

	return &App{
		Core: CoreModule{
			Config:  cfg,
			Logger:  logger,
			History: store,
		},
		Ctx:    ctx,
		Cancel: cancel,
	}, nil
}

// Close gracefully shuts down the application resources.
func (a *App) Close() {
	// Cancel the context to stop any running goroutines
	if a.Cancel != nil {
		a.Cancel()
	}

	if a.Core.History != nil {
		if err := a.Core.History.Close(); err != nil {
			a.Core.Logger.Error("Failed to close history store", zap.Error(err))
		}
	}
	if a.Core.Logger != nil {
		if err := a.Core.Logger.Sync(); err != nil {
			// Zap's Sync can return an error if the underlying writer fails.
			// For os.Stderr or regular files, it's usually safe to ignore certain errors.
			if !strings.Contains(err.Error(), "sync /dev/stderr: invalid argument") &&
				!strings.Contains(err.Error(), "sync <file descriptor>: bad file descriptor") &&
				!strings.Contains(err.Error(), "sync /dev/stderr: inappropriate ioctl for device") {
				fmt.Fprintf(os.Stderr, "Error syncing logger: %v\n", err)
			}
		}
	}
}

// ContextWithLogger returns a new context with the application's logger.
func (a *App) ContextWithLogger(ctx context.Context) context.Context {
	return logging.ContextWithLogger(ctx, a.Core.Logger)
}

// LoggerFromContext retrieves the logger from the given context, or returns the default app logger.
func (a *App) LoggerFromContext(ctx context.Context) *zap.Logger {
	if logger, ok := logging.LoggerFromContext(ctx); ok {
		return logger
	}
	return a.Core.Logger
}
