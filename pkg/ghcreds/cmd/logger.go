package cmd

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// newLogger mirrors the controller logger setup: production JSON at warn level
// by default, development console output at debug level when verbose. Logs are
// written to w so they never mix with the prompts on stdout.
func newLogger(verbose bool, w zapcore.WriteSyncer) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}
	cfg.EncoderConfig.TimeKey = "ts"

	encoder := zapcore.NewJSONEncoder(cfg.EncoderConfig)
	if cfg.Encoding == "console" {
		encoder = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
	}
	return zap.New(zapcore.NewCore(encoder, w, cfg.Level), zap.ErrorOutput(w))
}

func (rt *runtimeState) setupLogger() {
	if rt.log != nil {
		return
	}
	base := rt.opts.Logger
	if base == nil {
		base = newLogger(rt.verbose, zapcore.Lock(zapcore.AddSync(rt.ErrWriter())))
	}
	logger := base.With(zap.String("run", uuid.NewString()))
	rt.log = logger.Sugar()
	rt.syncLog = logger.Sync
}

func (rt *runtimeState) closeLogger() {
	if rt.syncLog == nil {
		return
	}
	_ = rt.syncLog()
	rt.syncLog = nil
}
