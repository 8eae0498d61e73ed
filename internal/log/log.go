// Package log provides the process-wide structured logger, backed by logrus.
package log

import (
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger interface {
	Print(args ...interface{})
	Printf(format string, args ...interface{})

	Trace(args ...interface{})
	Tracef(format string, args ...interface{})

	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	Info(args ...interface{})
	Infof(format string, args ...interface{})

	Warn(args ...interface{})
	Warnf(format string, args ...interface{})

	Error(args ...interface{})
	Errorf(format string, args ...interface{})

	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})

	WithField(field string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	IsTraceEnabled() bool
	IsDebugEnabled() bool
	IsInfoEnabled() bool
}

var (
	mu     sync.RWMutex
	logger Logger

	// file is the rotating appender behind the global logger, nil when file
	// output is off. fileConfig is the config it was built from.
	file       *lumberjack.Logger
	fileConfig FileConfig
)

// GetLogger returns the logger installed by Init, or a stdout logger at info
// level when Init has not run.
func GetLogger() Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}

	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger, _ = New(DefaultConfig(), os.Stdout)
	}
	return logger
}

// Init installs the process-wide logger built from cfg. Output goes to stdout
// and, when enabled, to a rotating file. Calling Init again reuses the file
// appender when its config is unchanged and closes the replaced one otherwise.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	out := NewMultiWriter().Add(os.Stdout)
	var next *lumberjack.Logger
	if cfg.File.Enabled {
		if file != nil && fileConfig == cfg.File {
			next = file
		} else {
			var err error
			if next, err = newFileAppender(cfg.File); err != nil {
				return err
			}
		}
		out.Add(next)
	}

	l, err := New(cfg, out)
	if err != nil {
		if next != nil && next != file {
			next.Close()
		}
		return err
	}

	logger = l
	if file != nil && file != next {
		file.Close()
	}
	file, fileConfig = next, cfg.File
	return nil
}

// New builds a logger writing to out without touching the global one.
func New(cfg Config, out io.Writer) (Logger, error) {
	return newLogrusAdapter(cfg, out)
}
