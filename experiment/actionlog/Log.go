// Package actionlog implements a bounded, newest-first log of the actions
// an agent emits while training
package actionlog

import (
	"time"
)

// DefaultCapacity is the number of entries a Log keeps by default
const DefaultCapacity = 50

// Kind classifies an Entry for display
type Kind int

const (
	Default Kind = iota
	Warning
	Success
)

func (k Kind) String() string {
	switch k {
	case Warning:
		return "warning"
	case Success:
		return "success"
	}
	return "default"
}

// Entry is a single immutable log record
type Entry struct {
	Timestamp time.Time
	Action    string
	State     string
	Reward    float64
	Kind
}

// Log stores the most recent entries, newest first. When the Log is
// full, adding an entry evicts the oldest one.
type Log struct {
	entries  []Entry
	capacity int
}

// New returns a new Log holding at most capacity entries
func New(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Log{capacity: capacity}
}

// Add records e as the newest entry
func (l *Log) Add(e Entry) {
	// Entries are stored oldest first so that appending is cheap
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.capacity; over > 0 {
		l.entries = append(l.entries[:0], l.entries[over:]...)
	}
}

// Entries returns a copy of the log, newest first
func (l *Log) Entries() []Entry {
	entries := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		entries[len(l.entries)-1-i] = e
	}
	return entries
}

// Len returns the number of entries in the log
func (l *Log) Len() int {
	return len(l.entries)
}

// Capacity returns the maximum number of entries the log holds
func (l *Log) Capacity() int {
	return l.capacity
}

// Clear removes every entry
func (l *Log) Clear() {
	l.entries = nil
}
