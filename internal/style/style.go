// Package style resolves a handler's result status against a client style
// table and the system default table into one effective style entry.
package style

import (
	"strconv"

	"github.com/riverglen/reddit-broker/internal/packet"
)

// DefaultTable is the system-wide fallback decision table.
var DefaultTable = packet.StyleTable{
	"2xx": {Operation: packet.OpCopy, LogLevel: "TRACE"},
	"4xx": {Operation: packet.OpFailure, LogLevel: "WARN"},
	"5xx": {Operation: packet.OpRetry, LogLevel: "WARN"},
}

// FallbackEntry is returned when neither the client nor the default table
// match anything for the given status.
var FallbackEntry = packet.StyleEntry{Operation: packet.OpRetry, LogLevel: "WARN"}

// StatusSuccess and StatusFailure bypass table lookup entirely; handlers
// return these status sentinels when a verb has no numeric HTTP result.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// MatchKind reports which table (if any) supplied the resolved entry, for metrics.
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchClass    MatchKind = "class"
	MatchDefault  MatchKind = "default"
	MatchFallback MatchKind = "fallback"
	MatchSentinel MatchKind = "sentinel"
)

// Resolve implements §4.5: sentinel shortcuts, then exact-key/class-wildcard
// lookup against the client table, filling any missing fields from the
// default table resolved against the same status, falling back to the hard
// fallback if nothing matches at all.
func Resolve(clientTable packet.StyleTable, status int) (packet.StyleEntry, MatchKind) {
	clientEntry, clientKind, clientFound := lookup(clientTable, status)
	defaultEntry, _, defaultFound := lookup(DefaultTable, status)

	switch {
	case clientFound && defaultFound:
		return mergeMissing(clientEntry, defaultEntry), clientKind
	case clientFound:
		return clientEntry, clientKind
	case defaultFound:
		return defaultEntry, MatchDefault
	default:
		return FallbackEntry, MatchFallback
	}
}

// ResolveStatus resolves a handler's result status, dispatching to the
// sentinel path or the table path as appropriate.
func ResolveStatus(clientTable packet.StyleTable, status packet.Status) (packet.StyleEntry, MatchKind) {
	if status.IsSentinel() {
		return ResolveSentinel(status.Sentinel), MatchSentinel
	}
	return Resolve(clientTable, status.Code)
}

// ResolveSentinel resolves the fixed success/failure sentinel statuses,
// which bypass both tables.
func ResolveSentinel(sentinel string) packet.StyleEntry {
	switch sentinel {
	case StatusSuccess:
		return packet.StyleEntry{Operation: packet.OpSuccess, LogLevel: "TRACE"}
	default:
		return packet.StyleEntry{Operation: packet.OpFailure, LogLevel: "TRACE"}
	}
}

func lookup(table packet.StyleTable, status int) (packet.StyleEntry, MatchKind, bool) {
	if table == nil {
		return packet.StyleEntry{}, "", false
	}
	exact := strconv.Itoa(status)
	if entry, ok := table[exact]; ok {
		return entry, MatchExact, true
	}
	class := string(exact[0]) + "xx"
	if entry, ok := table[class]; ok {
		return entry, MatchClass, true
	}
	return packet.StyleEntry{}, "", false
}

func mergeMissing(primary, fallback packet.StyleEntry) packet.StyleEntry {
	merged := primary
	if merged.LogLevel == "" {
		merged.LogLevel = fallback.LogLevel
	}
	if merged.IgnoreVersion == nil {
		merged.IgnoreVersion = fallback.IgnoreVersion
	}
	return merged
}
