// Package cmdlog keeps an in-memory log of command invocations. The log
// is deliberately unpersisted; it exists so admins can see who has been
// running what since the bot last started.
package cmdlog

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultMaxBytes is the default cache cap, roughly 100 KB.
const DefaultMaxBytes = 100_000

const timeFormat = "2006-01-02 15:04:05"

// Entry is one logged command invocation.
type Entry struct {
	Command     string
	UserID      string
	UserName    string
	ChannelID   string
	ChannelName string
	GuildID     string
	GuildName   string
	Time        time.Time
	// CheckFailed marks an invocation that was rejected by a
	// permission check rather than run.
	CheckFailed bool
}

// approxSize estimates the entry's memory footprint. It only needs to
// be good enough to keep the cache near its cap.
func (e Entry) approxSize() int {
	return len(e.Command) + len(e.UserID) + len(e.UserName) +
		len(e.ChannelID) + len(e.ChannelName) +
		len(e.GuildID) + len(e.GuildName) + 64
}

func (e Entry) String() string {
	verb := "ran by"
	if e.CheckFailed {
		verb = "raised a check failure by"
	}

	if e.GuildID == "" {
		return fmt.Sprintf(
			"[%v] '%v' %v %v (%v) in our DMs.",
			e.Time.UTC().Format(timeFormat),
			e.Command,
			verb,
			e.UserID,
			e.UserName,
		)
	}

	return fmt.Sprintf(
		"[%v] '%v' %v %v (%v) in channel %v (%v) in guild %v (%v)",
		e.Time.UTC().Format(timeFormat),
		e.Command,
		verb,
		e.UserID,
		e.UserName,
		e.ChannelID,
		e.ChannelName,
		e.GuildID,
		e.GuildName,
	)
}

// Log is a bounded, oldest-first-evicting cache of command invocations.
// Safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	entries  []Entry
	size     int
	maxBytes int
}

// New creates a log capped at maxBytes of approximate entry size. A
// non-positive cap means DefaultMaxBytes.
func New(maxBytes int) *Log {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Log{maxBytes: maxBytes}
}

// Add appends an entry, evicting the oldest entries if the cache has
// grown past its cap.
func (l *Log) Add(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	l.size += entry.approxSize()
	l.evict()
}

func (l *Log) evict() {
	trimmed := 0
	for l.size > l.maxBytes && trimmed < len(l.entries) {
		l.size -= l.entries[trimmed].approxSize()
		trimmed++
	}
	if trimmed > 0 {
		l.entries = append([]Entry(nil), l.entries[trimmed:]...)
	}
}

// SetMaxBytes changes the cache cap, evicting immediately if needed.
func (l *Log) SetMaxBytes(maxBytes int) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxBytes = maxBytes
	l.evict()
}

// Len returns the number of cached entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// SizeBytes returns the approximate size of the cached entries.
func (l *Log) SizeBytes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Recent returns up to n entries, oldest first. A non-positive n
// returns everything.
func (l *Log) Recent(n int) []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	return append([]Entry(nil), l.entries[len(l.entries)-n:]...)
}

// Dump renders the whole cache as text, oldest first.
func (l *Log) Dump() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var builder strings.Builder
	for _, entry := range l.entries {
		builder.WriteString(entry.String())
		builder.WriteByte('\n')
	}
	return builder.String()
}
