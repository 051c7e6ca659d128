package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op that must not panic and must not call anything.
	called = false
	SetLogger(nil)
	Logf("test message")
	if called {
		t.Error("no-op logger should not have triggered callback")
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}

func TestScoped(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})

	logf := Scoped("locker")
	logf("unlock %d failed", 5)
	if got != "locker: unlock %d failed" {
		t.Errorf("scoped format = %q", got)
	}

	// Scoped loggers follow a later swap.
	var swapped string
	SetLogger(func(format string, v ...interface{}) {
		swapped = format
	})
	logf("retry")
	if swapped != "locker: retry" {
		t.Errorf("scoped logger did not follow swapped Logf, got %q", swapped)
	}
}
