// Package logger configures the process wide slog logger and exposes the
// key/value Interface injected into every component.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"github.com/cityinfra/trafficcontrol/internal/shared/config"
)

var (
	mu    sync.RWMutex
	root  *slog.Logger
	level = new(slog.LevelVar)
)

// Init builds the root logger. In debug mode every level carries its source
// location, otherwise only warnings and errors do.
func Init(cfg *config.LoggerConfig, mode string) error {
	level.Set(parseLevel(cfg.Level))

	w, err := openOutput(cfg.OutputPath)
	if err != nil {
		return err
	}

	sourceFrom := slog.LevelWarn
	if mode == "debug" {
		sourceFrom = slog.LevelDebug
	}

	var base slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		base = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		base = newTintHandler(w, level)
	}

	l := slog.New(newSourceHandler(base, sourceFrom))
	mu.Lock()
	root = l
	mu.Unlock()
	slog.SetDefault(l)
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutput(path string) (io.Writer, error) {
	switch strings.ToLower(path) {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func newTintHandler(w io.Writer, lv slog.Leveler) slog.Handler {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      lv,
		TimeFormat: time.DateTime,
		NoColor:    noColor,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if err, ok := a.Value.Any().(error); ok && a.Key == "error" {
				return tint.Err(err)
			}
			return a
		},
	})
}

// SetLevel changes the level of the root logger at runtime.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Get returns the root logger, falling back to a console logger when Init
// has not run (tests, early startup failures).
func Get() *slog.Logger {
	mu.RLock()
	l := root
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		root = slog.New(newSourceHandler(newTintHandler(os.Stderr, slog.LevelInfo), slog.LevelWarn))
	}
	return root
}

func Sync() error {
	return nil
}
