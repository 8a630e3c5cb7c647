package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the verbosity and an optional log file that receives a copy
// of everything written to stderr.
type Config struct {
	Level    string
	FilePath string
}

// switchWriter lets tests redirect console output after the logger is built.
type switchWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.w == nil {
		return len(p), nil
	}
	return s.w.Write(p)
}

func (s *switchWriter) Sync() error { return nil }

type state struct {
	sugar   *zap.SugaredLogger
	base    *zap.Logger
	level   zap.AtomicLevel
	file    *os.File
	applied Config
}

var (
	mu      sync.RWMutex
	once    sync.Once
	current *state
	console = &switchWriter{w: os.Stderr}
)

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

// build replaces the process logger. Callers hold mu.
func build(cfg Config) error {
	level := parseLevel(cfg.Level)
	path := strings.TrimSpace(cfg.FilePath)

	atom := zap.NewAtomicLevelAt(level)
	if current != nil {
		atom = current.level
		atom.SetLevel(level)
	}

	encCfg := encoderConfig()
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(console), atom),
	}

	var file *os.File
	if path != "" {
		f, err := openLogFile(path)
		if err != nil {
			return err
		}
		fileCfg := encCfg
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileCfg), zapcore.AddSync(f), atom))
		file = f
	}

	base := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	if current != nil && current.file != nil && current.file != file {
		_ = current.file.Close()
	}
	current = &state{
		sugar:   base.Sugar(),
		base:    base,
		level:   atom,
		file:    file,
		applied: Config{Level: level.String(), FilePath: path},
	}
	zap.ReplaceGlobals(base)
	return nil
}

func openLogFile(path string) (*os.File, error) {
	clean := filepath.Clean(path)
	if dir := filepath.Dir(clean); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory %q: %w", dir, err)
		}
	}
	f, err := os.OpenFile(clean, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, fmt.Errorf("opening log file %q: %w", clean, err)
	}
	return f, nil
}

// InitWithConfig configures the process logger and returns it with a cleanup
// function that flushes and closes the log file. Calling it again with a
// different configuration rebuilds the logger in place.
func InitWithConfig(cfg Config) (*zap.SugaredLogger, func(), error) {
	want := Config{Level: parseLevel(cfg.Level).String(), FilePath: strings.TrimSpace(cfg.FilePath)}

	var err error
	once.Do(func() {
		mu.Lock()
		err = build(cfg)
		mu.Unlock()
	})
	if err != nil {
		return nil, nil, fmt.Errorf("logger initialization failed: %w", err)
	}

	mu.Lock()
	if current == nil || current.applied != want {
		if err := build(cfg); err != nil {
			mu.Unlock()
			return nil, nil, fmt.Errorf("logger reconfiguration failed: %w", err)
		}
	}
	st := current
	mu.Unlock()

	return st.sugar, cleanupFor(st), nil
}

// InitWithLevel configures the process logger at level, panicking on failure.
func InitWithLevel(level string) (*zap.SugaredLogger, func()) {
	sugar, cleanup, err := InitWithConfig(Config{Level: level})
	if err != nil {
		panic(err)
	}
	return sugar, cleanup
}

func cleanupFor(st *state) func() {
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if err := st.base.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "error syncing logger: %v\n", err)
		}
		if st.file != nil {
			if err := st.file.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "error closing log file: %v\n", err)
			}
			if current != nil && current.file == st.file {
				current.file = nil
			}
		}
	}
}

// Logger returns the process logger, creating an info level one if needed.
func Logger() *zap.SugaredLogger {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if err := build(Config{Level: "info"}); err != nil {
			panic(fmt.Sprintf("logger initialization failed: %v", err))
		}
	})
	mu.RLock()
	defer mu.RUnlock()
	return current.sugar
}

// Named returns the process logger tagged with a component name.
func Named(component string) *zap.SugaredLogger {
	return Logger().Named(component)
}

// SetLogLevel changes the level of an already built logger.
func SetLogLevel(level string) {
	mu.Lock()
	defer mu.Unlock()
	if current == nil {
		return
	}
	l := parseLevel(level)
	current.level.SetLevel(l)
	current.applied.Level = l.String()
}

// Level reports the active level name.
func Level() string {
	mu.RLock()
	defer mu.RUnlock()
	if current == nil {
		return zapcore.InfoLevel.String()
	}
	return current.level.Level().String()
}

// ReplaceStderrWriter redirects console output and returns the previous writer.
func ReplaceStderrWriter(w io.Writer) io.Writer {
	if w == nil {
		w = os.Stderr
	}
	console.mu.Lock()
	defer console.mu.Unlock()
	old := console.w
	if old == nil {
		old = os.Stderr
	}
	console.w = w
	return old
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
