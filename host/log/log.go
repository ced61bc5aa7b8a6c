// Package log is the host tool's leveled logger
package log

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

type Level int

const (
	Prefix        = "[quadpwm] "
	ErrorPrefix   = "[error] "
	WarningPrefix = "[warn] "
	InfoPrefix    = "[info] "
	DebugPrefix   = "[debug] "
	HelpLevels    = "Must be one of: error, warning, info, debug."
)

const (
	ErrorLevel Level = iota
	WarningLevel
	InfoLevel
	DebugLevel
)

var ErrUnknownLevel = errors.New("unknown log level. " + HelpLevels)

var levels = map[string]Level{
	"error":   ErrorLevel,
	"warning": WarningLevel,
	"info":    InfoLevel,
	"debug":   DebugLevel,
}

type Logger struct {
	level Level
	*log.Logger
}

var logger = &Logger{
	level:  InfoLevel,
	Logger: log.New(os.Stderr, Prefix, log.LstdFlags),
}

// ParseLevel maps a level name to its Level
func ParseLevel(name string) (Level, error) {
	level, ok := levels[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
	return level, nil
}

func SetLevel(name string) error {
	level, err := ParseLevel(name)
	if err != nil {
		return err
	}
	logger.level = level
	return nil
}

// Init points the logger at out and sets its level
func Init(out io.Writer, name string) error {
	logger.SetOutput(out)
	return SetLevel(name)
}

func Enabled(level Level) bool {
	return logger.level >= level
}

func logf(level Level, prefix, format string, v ...interface{}) {
	if Enabled(level) {
		logger.Println(fmt.Sprintf(prefix+format, v...))
	}
}

func Error(format string, v ...interface{}) {
	logf(ErrorLevel, ErrorPrefix, format, v...)
}

func Warning(format string, v ...interface{}) {
	logf(WarningLevel, WarningPrefix, format, v...)
}

func Info(format string, v ...interface{}) {
	logf(InfoLevel, InfoPrefix, format, v...)
}

func Debug(format string, v ...interface{}) {
	logf(DebugLevel, DebugPrefix, format, v...)
}
