package logger

import (
	"io"
	"log"
	"log/slog"
	"os"

	"moviedb/proj/internal/lib/logger/handlers/slogpretty"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger builds the application logger. When logFile is set, records are
// also written to a rotated file in JSON.
func SetupLogger(debug bool, logFile string) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var out io.Writer = os.Stdout
	if logFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 3,
			Compress:   true,
			LocalTime:  true,
		})
	}
	var handler slog.Handler
	if debug && logFile == "" {
		handler = slogpretty.NewPrettyHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler)
}

type out struct {
	stdLog *slog.Logger
}

func (l out) Write(p []byte) (n int, err error) {
	l.stdLog.Info(string(p))
	return len(p), nil
}

// LogAdapter exposes logger as a *log.Logger for http.Server.ErrorLog.
func LogAdapter(logger *slog.Logger) *log.Logger {
	return log.New(&out{logger}, "", 0)
}
