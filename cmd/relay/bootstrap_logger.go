package main

import (
	"go.uber.org/zap"

	config "github.com/NordCoder/Beacon/internal/config/relay"
	"github.com/NordCoder/Beacon/internal/obs"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.AsLoggerConfig())
}
