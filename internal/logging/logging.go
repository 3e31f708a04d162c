// Package logging routes the standard log package to a rotated file so a
// full-screen TUI never writes diagnostics onto the terminal it owns.
package logging

import (
	"log"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup redirects the default logger to dir/workdeck.log with rotation and
// returns a closer for shutdown.
func Setup(dir string) func() error {
	w := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "workdeck.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     14, // days
		Compress:   true,
	}
	log.SetOutput(w)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return w.Close
}
