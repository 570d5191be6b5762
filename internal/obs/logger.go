package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level  string
	Pretty bool
	App    string
	Env    string
	Ver    string
}

// NewLogger builds the process-wide zap logger. Unknown level strings
// fall back to info rather than failing startup.
func NewLogger(c LogConfig) (*zap.Logger, error) {
	base := zap.NewProductionConfig()
	if c.Pretty {
		base = zap.NewDevelopmentConfig()
	}

	lvl, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	base.Level = zap.NewAtomicLevelAt(lvl)
	base.EncoderConfig.TimeKey = "ts"
	base.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return base.Build(zap.Fields(
		zap.String("service", c.App),
		zap.String("env", c.Env),
		zap.String("version", c.Ver),
	))
}
