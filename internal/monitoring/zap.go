package monitoring

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger builds the console logger used by the CLI. Output goes to
// stderr so it never interleaves with the report on stdout.
func NewZapLogger(verbose bool) (*zap.Logger, error) {
	cfg := devConfig(verbose)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// NewZapFileLogger appends uncoloured log lines to path. The interactive
// shell uses it because the terminal belongs to the TUI.
func NewZapFileLogger(path string, verbose bool) (*zap.Logger, error) {
	cfg := devConfig(verbose)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	return cfg.Build()
}

func devConfig(verbose bool) zap.Config {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.DisableCaller = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg
}

// UseZap routes Logf and Debugf through l. A nil logger mutes both.
func UseZap(l *zap.Logger) {
	if l == nil {
		SetLogger(nil)
		SetDebugLogger(nil)
		return
	}
	sugar := l.Sugar()
	SetLogger(sugar.Infof)
	SetDebugLogger(sugar.Debugf)
}
