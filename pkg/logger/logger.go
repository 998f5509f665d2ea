package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is replaced by InitLogger; the no-op default keeps packages usable before startup.
var Log = zap.NewNop()

func InitLogger(mode string) {
	var config zap.Config

	if mode == "release" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}
	l, err := config.Build()
	if err != nil {
		os.Exit(1)
	}
	Log = l.Named("orchestrator")
	zap.ReplaceGlobals(Log)
}

// With returns a child of Log scoped to one game and local player.
func With(contract, player string) *zap.Logger {
	return Log.With(zap.String("contract", contract), zap.String("player", player))
}
