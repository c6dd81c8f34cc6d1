// Package monitoring holds the diagnostic logger and the Prometheus
// collectors shared by the detection loop and its workers.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used by the engine, the workers
// and the collaborators. It defaults to log.Printf (which serializes writers)
// and may be replaced by SetLogger; tests use SetLogger(nil) to mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
