package log

import (
	"fmt"

	"gopkg.in/natefinch/lumberjack.v2"
)

func newFileAppender(options FileConfig) (*lumberjack.Logger, error) {
	if options.Filename == "" {
		return nil, fmt.Errorf("file appender requires a filename")
	}
	return &lumberjack.Logger{
		Filename:   options.Filename,
		MaxSize:    options.MaxSize,
		MaxBackups: options.MaxBackups,
		MaxAge:     options.MaxAge,
		Compress:   options.Compress,
	}, nil
}

// AddFileAppender adds a rotating file. The caller owns the file; Init
// manages the one behind the global logger.
func (m *MultiWriter) AddFileAppender(options FileConfig) (*MultiWriter, error) {
	writer, err := newFileAppender(options)
	if err != nil {
		return m, err
	}
	m.writers = append(m.writers, writer)
	return m, nil
}
