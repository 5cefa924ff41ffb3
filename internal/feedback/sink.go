// Package feedback carries build, cache and trace progress out of the core.
// The core packages only ever see the three-operation Sink; process-level
// logging, buffering for tests and live streaming are implementations here.
package feedback

import (
	"fmt"
	"sync"
)

// Sink receives diagnostics. Error with fatal=true marks the reported
// operation as failed; it never terminates the process. That decision stays
// with the caller at the edge.
type Sink interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string, fatal bool)
}

// Discard drops everything. The zero value is usable.
type Discard struct{}

func (Discard) Info(string) {}
func (Discard) Warn(string) {}
func (Discard) Error(string, bool) {}

// Entry is one captured diagnostic.
type Entry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal,omitempty"`
}

// Buffer retains every diagnostic in order. Safe for concurrent use; meant
// for tests and short-lived CLI runs that print at the end.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
}

func (b *Buffer) Info(msg string) { b.append(Entry{Level: "info", Message: msg}) }
func (b *Buffer) Warn(msg string) { b.append(Entry{Level: "warn", Message: msg}) }
func (b *Buffer) Error(msg string, fatal bool) {
	b.append(Entry{Level: "error", Message: msg, Fatal: fatal})
}

func (b *Buffer) append(e Entry) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.entries = append(b.entries, e)
	b.mu.Unlock()
}

// Entries returns a copy of everything captured so far.
func (b *Buffer) Entries() []Entry {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Entry(nil), b.entries...)
}

// Warnings returns the warn-level messages, for assertions on cache fallback
// behavior.
func (b *Buffer) Warnings() []string {
	var out []string
	for _, e := range b.Entries() {
		if e.Level == "warn" {
			out = append(out, e.Message)
		}
	}
	return out
}

// Fanout forwards each diagnostic to every sink in order.
type Fanout []Sink

func (f Fanout) Info(msg string) {
	for _, s := range f {
		if s != nil {
			s.Info(msg)
		}
	}
}

func (f Fanout) Warn(msg string) {
	for _, s := range f {
		if s != nil {
			s.Warn(msg)
		}
	}
}

func (f Fanout) Error(msg string, fatal bool) {
	for _, s := range f {
		if s != nil {
			s.Error(msg, fatal)
		}
	}
}

// Infof and friends keep call sites terse.
func Infof(s Sink, format string, args ...any) {
	if s != nil {
		s.Info(fmt.Sprintf(format, args...))
	}
}

func Warnf(s Sink, format string, args ...any) {
	if s != nil {
		s.Warn(fmt.Sprintf(format, args...))
	}
}

func Errorf(s Sink, fatal bool, format string, args ...any) {
	if s != nil {
		s.Error(fmt.Sprintf(format, args...), fatal)
	}
}
