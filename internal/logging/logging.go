// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// EnvLogLevel overrides the verbosity-derived level when set
// (trace, debug, info, warn, error, disabled).
const EnvLogLevel = "SUBSYNC_LOG_LEVEL"

// logFileRel is the log file location relative to the XDG state home.
const logFileRel = "subsync/subsync.log"

var (
	fileMu  sync.Mutex
	logFile *os.File
)

// Setup configures the global logger based on verbosity level.
// Console output goes to stderr; a copy is appended to the state log file
// when it can be opened.
func Setup(verbosity int) {
	zerolog.SetGlobalLevel(levelFor(verbosity))
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		zerolog.SetGlobalLevel(lvl)
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}

	writers := []io.Writer{consoleWriter}

	file, fileErr := openLogFile()
	if fileErr == nil {
		writers = append(writers, file)
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	if verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}
	_ = swapLogFile(file)

	if fileErr != nil {
		log.Warn().Err(fileErr).Msg("Failed to open log file, logging to console only")
	}
	log.Debug().Int("verbosity", verbosity).Str("level", zerolog.GlobalLevel().String()).Msg("Logger initialized")
}

// Close closes the log file opened by Setup, if any.
func Close() error {
	return swapLogFile(nil)
}

// swapLogFile installs file as the current log file and closes the previous one.
func swapLogFile(file *os.File) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	prev := logFile
	logFile = file
	if prev == nil {
		return nil
	}
	return prev.Close()
}

// GetLogger returns a logger tagged with the given component name.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// LogFilePath returns where Setup writes the log file.
func LogFilePath() (string, error) {
	return xdg.StateFile(logFileRel)
}

func levelFor(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.NoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.NoLevel, false
	}
}

func openLogFile() (*os.File, error) {
	path, err := LogFilePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve log file path: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}
