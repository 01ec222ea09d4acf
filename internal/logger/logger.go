package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// L is the process-wide structured logger. Tagged helpers below write through it
// unless the output is an interactive terminal, in which case they print a
// coloured one-line form instead.
var L *slog.Logger

var (
	mu    sync.Mutex
	out   io.Writer = os.Stdout
	level           = new(slog.LevelVar)
	color bool
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	gold   = "\033[38;5;178m"
	dim    = "\033[2m"
)

func init() {
	SetOutput(os.Stdout)
}

// Init sets the minimum level from a config string (debug|info|warn|error).
func Init(levelStr string) {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	case "info", "":
		level.Set(slog.LevelInfo)
	default:
		level.Set(slog.LevelInfo)
		L.Warn("invalid log level, defaulting to info", "configured", levelStr)
	}
}

// SetOutput redirects all logging. The TUI points this at a file so log lines
// never interleave with the rendered screen.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
	color = false
	if f, ok := w.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	L = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format(time.RFC3339))
				}
			}
			return a
		},
	}))
}

func emit(lvl slog.Level, tag, msg, col, mark string) {
	if !L.Enabled(context.Background(), lvl) {
		return
	}
	mu.Lock()
	w, c := out, color
	mu.Unlock()
	if c {
		fmt.Fprintf(w, "%s%s%s %s%s [%s]%s %s\n", dim, time.Now().Format("15:04:05"), reset, col, mark, tag, reset, msg)
		return
	}
	L.Log(context.Background(), lvl, msg, "tag", tag)
}

func Debug(tag, msg string)   { emit(slog.LevelDebug, tag, msg, dim, "·") }
func Info(tag, msg string)    { emit(slog.LevelInfo, tag, msg, cyan, "›") }
func Success(tag, msg string) { emit(slog.LevelInfo, tag, msg, green, "✓") }
func Warn(tag, msg string)    { emit(slog.LevelWarn, tag, msg, yellow, "!") }
func Error(tag, msg string)   { emit(slog.LevelError, tag, msg, red, "✗") }

// Banner prints the startup banner.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	mu.Lock()
	defer mu.Unlock()
	if color {
		fmt.Fprintf(out, "\n  %sgold-rate%s %s%s%s\n  live gold prices by city\n\n", gold, reset, dim, version, reset)
		return
	}
	fmt.Fprintf(out, "gold-rate %s\n", version)
}

// Section prints a heading used by the one-shot commands.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if color {
		fmt.Fprintf(out, "\n%s── %s ──%s\n", gold, name, reset)
		return
	}
	fmt.Fprintf(out, "\n== %s ==\n", name)
}

// Stats prints an aligned key/value line.
func Stats(key string, value interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out, "  %-14s %v\n", key+":", value)
}
