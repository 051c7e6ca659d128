package locker

import (
	"fmt"
	"time"
)

// diagLogCapacity caps the diagnostic ring. A hundred entries has proven
// enough to reconstruct a field incident without exhausting a long-lived
// kiosk process.
const diagLogCapacity = 100

type diagEntry struct {
	at  time.Time
	msg string
}

// diagLog is a fixed-capacity ring of timestamped diagnostic messages. It is
// not safe for concurrent use on its own; the controller guards it with the
// same mutex that serializes the bus, so diagnostics never need a second lock.
type diagLog struct {
	entries []diagEntry
	next    int
	full    bool
}

func newDiagLog() *diagLog {
	return &diagLog{entries: make([]diagEntry, diagLogCapacity)}
}

const logTimeFormat = "2006-01-02T15:04:05.000"

// add appends an entry and returns its formatted line, for mirroring to live
// subscribers.
func (l *diagLog) add(at time.Time, format string, v ...interface{}) string {
	e := diagEntry{at: at, msg: fmt.Sprintf(format, v...)}
	l.entries[l.next] = e
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
	return fmt.Sprintf("%s %s", e.at.Format(logTimeFormat), e.msg)
}

// messages returns the retained entries oldest-first, formatted with their
// timestamps.
func (l *diagLog) messages() []string {
	var ordered []diagEntry
	if l.full {
		ordered = append(ordered, l.entries[l.next:]...)
		ordered = append(ordered, l.entries[:l.next]...)
	} else {
		ordered = l.entries[:l.next]
	}

	out := make([]string, len(ordered))
	for i, e := range ordered {
		out[i] = fmt.Sprintf("%s %s", e.at.Format(logTimeFormat), e.msg)
	}
	return out
}

func (l *diagLog) clear() {
	l.next = 0
	l.full = false
}

func (l *diagLog) len() int {
	if l.full {
		return len(l.entries)
	}
	return l.next
}
