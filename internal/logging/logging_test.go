package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
		warns bool
	}{
		{level: "", want: logrus.InfoLevel},
		{level: "debug", want: logrus.DebugLevel},
		{level: "WARN", want: logrus.WarnLevel},
		{level: " error ", want: logrus.ErrorLevel},
		{level: "chatty", want: logrus.InfoLevel, warns: true},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log, closer := New(Options{Level: tt.level, Output: &buf})
			defer func() { _ = closer() }()

			assert.Equal(t, tt.want, log.GetLevel())
			assert.Equal(t, tt.warns, bytes.Contains(buf.Bytes(), []byte("Invalid log level")))
		})
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dicomedit.log")
	log, closer := New(Options{Level: "info", File: path})
	log.WithField("file", "a.dcm").Info("Saved file")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Saved file")
	assert.Contains(t, string(data), "file=a.dcm")
}
