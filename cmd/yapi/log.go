package main

import (
	"io"

	"github.com/charmbracelet/log"
)

// newLogger creates a logger writing timestamped records at level to w.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}
