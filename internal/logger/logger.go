package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is a no-op until Init runs, so packages and tests can log freely.
var Log = zap.NewNop().Sugar()

// Init builds the global logger. Console output goes to stderr, leaving
// stdout for links and rendered configs. With logPath set, entries are
// written to that file instead, truncating it first.
func Init(verbose bool, logPath string) {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encoderConfig.EncodeCaller = nil

	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	writer := zapcore.AddSync(os.Stderr)
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			os.Stderr.WriteString("Failed to create log file: " + err.Error() + "\n")
		} else {
			// No color escapes in files.
			encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
			writer = zapcore.AddSync(f)
		}
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), writer, level)
	Log = zap.New(core).Sugar()
}

// Sync flushes buffered entries.
func Sync() {
	_ = Log.Sync()
}
