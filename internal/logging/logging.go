package logging

import (
	"go.uber.org/zap"
)

// L is the shared application logger. It defaults to a no-op logger so
// packages can log before Init runs (mainly in tests).
var L *zap.Logger = zap.NewNop()

// Init builds the logger for the given environment and installs it as L.
// The bootstrap owns the lifecycle; call Sync on shutdown.
func Init(environment string) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	L = logger
	return logger, nil
}
