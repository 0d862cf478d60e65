// Package logging builds the logrus logger shared by the CLI and the editor.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is a logrus level name; an invalid level falls back to info.
	Level string
	// File, when set, receives the logs instead of Output, rotated by size.
	File string
	// Output defaults to os.Stderr.
	Output io.Writer
	// MaxSizeMB is the rotation threshold of File. Zero means 10.
	MaxSizeMB int
}

// New returns a configured logger. The second result is a closer for the log
// file, a no-op when logging to Output.
func New(opts Options) (*logrus.Logger, func() error) {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	closer := func() error { return nil }
	if opts.File != "" {
		size := opts.MaxSizeMB
		if size == 0 {
			size = 10
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    size,
			MaxBackups: 3,
			Compress:   true,
		}
		out = rotator
		closer = rotator.Close
	}
	log.SetOutput(out)

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if err != nil && opts.Level != "" {
		log.WithField("level", opts.Level).WithError(err).Warn("Invalid log level, defaulting to INFO")
	}
	return log, closer
}
