package logging

import (
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileAppender writes human readable logs to a file that is rotated once it grows past
// MaxSize megabytes.
type FileAppender struct {
	ConsoleAppender
	rotator *lumberjack.Logger
}

// NewFileAppender creates an appender writing to filename. Rotated files are compressed and
// the three most recent are kept.
func NewFileAppender(filename string) *FileAppender {
	rotator := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    100,
		MaxBackups: 3,
		Compress:   true,
	}
	return &FileAppender{ConsoleAppender{rotator}, rotator}
}

// Close closes the current log file.
func (fa *FileAppender) Close() error {
	return fa.rotator.Close()
}
