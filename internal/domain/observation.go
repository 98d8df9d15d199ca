package domain

import (
	"strings"
	"time"
)

// Classification is the outcome of inspecting one inbound request.
type Classification int

const (
	// ClassAbsent means the request carried no idempotency key.
	ClassAbsent Classification = iota
	// ClassUnique means the key had not been seen within the retention horizon.
	ClassUnique
	// ClassDupe means the key had already been seen (a retry).
	ClassDupe
)

func (c Classification) String() string {
	switch c {
	case ClassUnique:
		return "present-unique"
	case ClassDupe:
		return "present-dupe"
	default:
		return "absent"
	}
}

// Present reports whether the request supplied a key.
func (c Classification) Present() bool {
	return c == ClassUnique || c == ClassDupe
}

// Window is a trailing interval over which counts are reported.
type Window struct {
	Name string
	Size time.Duration
}

var (
	Window5m  = Window{Name: "5m", Size: 5 * time.Minute}
	Window60m = Window{Name: "60m", Size: 60 * time.Minute}
)

// TrackedWindows lists every reported window, shortest first.
var TrackedWindows = []Window{Window5m, Window60m}

// LongestWindow returns the widest tracked window.
func LongestWindow() Window {
	return TrackedWindows[len(TrackedWindows)-1]
}

// WindowHeaderValue is the comma-joined list of tracked window names ("5m,60m").
func WindowHeaderValue() string {
	names := make([]string, 0, len(TrackedWindows))
	for _, w := range TrackedWindows {
		names = append(names, w.Name)
	}
	return strings.Join(names, ",")
}

// Observation is what the guard decided for one request.
type Observation struct {
	Key            IdempotencyKey
	Classification Classification
}

// ObservedHeaderValue is "present" or "absent".
func (o Observation) ObservedHeaderValue() string {
	if o.Classification.Present() {
		return "present"
	}
	return "absent"
}
