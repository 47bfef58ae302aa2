package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const reset = "\033[0m"

// Level markers as emitted by slog.TextHandler, mapped to ANSI colors for
// local development output.
var levelColors = map[string]string{
	"level=DEBUG": "\033[36m",
	"level=INFO":  "\033[32m",
	"level=WARN":  "\033[33m",
	"level=ERROR": "\033[31m",
}

// New builds the service logger. Development environments get colored text
// on stdout; everything else gets JSON for log aggregation.
func New(appName, level, environment string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(environment)) {
	case "local", "dev", "development":
		handler = slog.NewTextHandler(&colorWriter{out: os.Stdout, enabled: isTerminal(os.Stdout)}, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("app", appName)
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// colorWriter colorizes the level marker in each line written through it.
type colorWriter struct {
	out     io.Writer
	enabled bool
}

func (w *colorWriter) Write(p []byte) (int, error) {
	if !w.enabled {
		return w.out.Write(p)
	}
	line := string(p)
	for marker, color := range levelColors {
		if strings.Contains(line, marker) {
			line = strings.Replace(line, marker, color+marker+reset, 1)
			break
		}
	}
	_, err := w.out.Write([]byte(line))
	return len(p), err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
