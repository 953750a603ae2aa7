package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger is the global logger instance
	Logger zerolog.Logger

	mu       sync.Mutex
	fileSink *rotatingFile
)

// Level represents log level
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// ParseLevel converts a configured level name, case-insensitive.
// "warning" and "critical" are accepted as aliases.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error", "critical":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Rolling intervals for the file sink
const (
	RollNone = "none"
	RollHour = "hour"
	RollDay  = "day"
	RollWeek = "week"
)

// RollingPeriod returns the rotation period of a rolling interval name.
// Zero means size-based rotation only.
func RollingPeriod(interval string) (time.Duration, error) {
	switch strings.ToLower(interval) {
	case RollNone, "":
		return 0, nil
	case RollHour:
		return time.Hour, nil
	case RollDay:
		return 24 * time.Hour, nil
	case RollWeek:
		return 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown rolling interval %q", interval)
	}
}

// FileConfig configures the rotating log file. An empty Path disables it.
type FileConfig struct {
	Path            string
	Level           Level
	MaxSizeMB       int
	MaxBackups      int
	MaxAgeDays      int
	Compress        bool
	RollingInterval string
}

// Config holds logging configuration
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
	File       FileConfig
}

// Init initializes the global logger. Any file sink from a previous call is
// closed first.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if fileSink != nil {
		fileSink.Close()
		fileSink = nil
	}

	// Configure output
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Use JSON or console output
	var console io.Writer = output
	if !cfg.JSONOutput {
		console = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	consoleLevel := cfg.Level.zerolog()
	globalLevel := consoleLevel
	writers := []io.Writer{levelFilter{w: console, min: consoleLevel}}

	if cfg.File.Path != "" {
		sink, err := openRotatingFile(cfg.File)
		if err != nil {
			return err
		}
		fileLevel := cfg.File.Level.zerolog()
		if fileLevel < globalLevel {
			globalLevel = fileLevel
		}
		writers = append(writers, levelFilter{w: sink, min: fileLevel})
		fileSink = sink
	}

	zerolog.SetGlobalLevel(globalLevel)
	Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return nil
}

// Close flushes and closes the file sink, if any
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if fileSink == nil {
		return nil
	}
	err := fileSink.Close()
	fileSink = nil
	return err
}

// WithComponent creates a child logger with component field
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// levelFilter drops events below min for one sink
type levelFilter struct {
	w   io.Writer
	min zerolog.Level
}

func (f levelFilter) Write(p []byte) (int, error) {
	return f.w.Write(p)
}

func (f levelFilter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < f.min {
		return len(p), nil
	}
	return f.w.Write(p)
}

// rotatingFile is a lumberjack file rotated by size and, optionally, on a
// fixed period
type rotatingFile struct {
	*lumberjack.Logger
	stop chan struct{}
	done chan struct{}
}

func openRotatingFile(cfg FileConfig) (*rotatingFile, error) {
	period, err := RollingPeriod(cfg.RollingInterval)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}

	f := &rotatingFile{
		Logger: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
			LocalTime:  true,
		},
	}

	if period > 0 {
		f.stop = make(chan struct{})
		f.done = make(chan struct{})
		go f.rotateEvery(period)
	}
	return f, nil
}

func (f *rotatingFile) rotateEvery(period time.Duration) {
	defer close(f.done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := f.Rotate(); err != nil {
				fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
			}
		case <-f.stop:
			return
		}
	}
}

// Close stops periodic rotation and closes the file
func (f *rotatingFile) Close() error {
	if f.stop != nil {
		close(f.stop)
		<-f.done
		f.stop = nil
	}
	return f.Logger.Close()
}
