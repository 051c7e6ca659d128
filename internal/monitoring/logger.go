// Package monitoring carries the process-wide diagnostic logger.
//
// Kiosk units run headless; everything the service logs goes through Logf so a
// deployment can redirect it (syslog, journald, a capture buffer in tests)
// without threading a logger through every constructor.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Scoped returns a logger that prefixes every line with the given subsystem
// name, e.g. "locker: ...". The returned function follows the current Logf
// even when it is swapped later.
func Scoped(name string) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		Logf(name+": "+format, v...)
	}
}
