package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/ARTIFACTIQ/gt-audit/internal/config"
	"github.com/ARTIFACTIQ/gt-audit/internal/history"
)

// CoreModule holds the components every command needs.
type CoreModule struct {
	Config  *config.Config
	Logger  *zap.Logger
	History *history.Store // nil when run history is disabled
}

// App wires the core components together for the lifetime of one command.
type App struct {
	Core   CoreModule
	Ctx    context.Context
	Cancel context.CancelFunc
}
