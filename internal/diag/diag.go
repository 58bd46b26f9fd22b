// Package diag implements the core's non-panicking diagnostic policy
// (spec.md §7): recoverable parse errors are recorded and optionally
// logged, never allowed to abort a whole-file decode.
package diag

import (
	"fmt"
	"log/slog"
)

// Severity classifies a recorded diagnostic.
type Severity int

const (
	// Recovered marks a local recovery: a default record was
	// substituted and parsing continued.
	Recovered Severity = iota
	// Fatal marks a diagnostic attached to an error that did abort
	// the current decode (score expansion out-of-bounds, spec.md §7).
	Fatal
)

// Entry is one recorded diagnostic.
type Entry struct {
	Severity Severity
	Section  string // e.g. "score.frame[12].channel[3]", "richtext.style[4]"
	Message  string
}

// Sink collects diagnostics produced during a single decode call. The
// zero value is ready to use. A Sink is not safe for concurrent use by
// multiple goroutines, matching the core's single-threaded cooperative
// model (spec.md §5).
type Sink struct {
	Entries []Entry
	// Logger receives a slog record for every Record call, in addition
	// to the in-memory Entries slice. Nil disables forwarding.
	Logger *slog.Logger
}

// Record appends a recovered-diagnostic entry and forwards it to the
// logger, if set.
func (s *Sink) Record(section, format string, args ...any) {
	s.record(Recovered, section, fmt.Sprintf(format, args...))
}

// RecordFatal appends a fatal-diagnostic entry (recorded for the
// caller's inspection even though the decode as a whole also returns
// an error).
func (s *Sink) RecordFatal(section, format string, args ...any) {
	s.record(Fatal, section, fmt.Sprintf(format, args...))
}

func (s *Sink) record(sev Severity, section, msg string) {
	s.Entries = append(s.Entries, Entry{Severity: sev, Section: section, Message: msg})
	if s.Logger == nil {
		return
	}
	level := slog.LevelWarn
	if sev == Fatal {
		level = slog.LevelError
	}
	s.Logger.Log(nil, level, msg, "section", section)
}

// HasFatal reports whether any fatal diagnostic was recorded.
func (s *Sink) HasFatal() bool {
	for _, e := range s.Entries {
		if e.Severity == Fatal {
			return true
		}
	}
	return false
}
