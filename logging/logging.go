package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/lmittmann/tint"
)

const maxLogSize = 2 * 1024 * 1024 // 2MB

type RotatingWriter struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	size    int64
	maxSize int64
}

// Options controls where the process logger writes.
type Options struct {
	Level    slog.Level
	FilePath string       // empty disables the file sink
	Stdout   io.Writer    // defaults to os.Stdout
	Extra    slog.Handler // e.g. a Fluent Bit handler
}

// Setup builds the process logger: colored output on stdout, plain text in
// a size-capped file, and any extra sink. It also becomes the slog default,
// and the stdlib log package is routed through it.
func Setup(opts Options) (*slog.Logger, *RotatingWriter, error) {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	handlers := []slog.Handler{
		tint.NewHandler(stdout, &tint.Options{
			Level:      opts.Level,
			TimeFormat: "2006-01-02 15:04:05",
		}),
	}

	var rw *RotatingWriter
	if opts.FilePath != "" {
		var err error
		rw, err = OpenRotating(opts.FilePath)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewTextHandler(rw, &slog.HandlerOptions{Level: opts.Level}))
	}
	if opts.Extra != nil {
		handlers = append(handlers, opts.Extra)
	}

	logger := slog.New(NewFanout(handlers...))
	slog.SetDefault(logger)
	log.SetFlags(0)

	return logger, rw, nil
}

// New returns the default logger scoped to a component.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

// ParseLevel maps LOG_LEVEL values onto slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func OpenRotating(logPath string) (*RotatingWriter, error) {
	// Truncate if too large on startup
	if info, err := os.Stat(logPath); err == nil && info.Size() > maxLogSize {
		os.Truncate(logPath, 0)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	info, _ := f.Stat()
	size := int64(0)
	if info != nil {
		size = info.Size()
	}

	return &RotatingWriter{
		file:    f,
		path:    logPath,
		size:    size,
		maxSize: maxLogSize,
	}, nil
}

func (w *RotatingWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err = w.file.Write(p)
	w.size += int64(n)

	if w.size > w.maxSize {
		w.rotate()
	}

	return n, err
}

func (w *RotatingWriter) rotate() {
	w.file.Close()

	// Keep one backup
	os.Rename(w.path, w.path+".1")

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}

	w.file = f
	w.size = 0
}

func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
