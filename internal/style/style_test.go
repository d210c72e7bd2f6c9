package style

import (
	"testing"

	"github.com/riverglen/reddit-broker/internal/packet"
)

func TestResolveExactKeyBeatsClassWildcard(t *testing.T) {
	client := packet.StyleTable{
		"200": {Operation: packet.OpSuccess},
		"2xx": {Operation: packet.OpFailure},
	}
	entry, kind := Resolve(client, 200)
	if entry.Operation != packet.OpSuccess || kind != MatchExact {
		t.Fatalf("expected exact match to win, got %+v kind=%s", entry, kind)
	}
}

func TestResolveClassWildcard(t *testing.T) {
	client := packet.StyleTable{
		"4xx": {Operation: packet.OpFailure, LogLevel: "ERROR"},
	}
	entry, kind := Resolve(client, 404)
	if entry.Operation != packet.OpFailure || entry.LogLevel != "ERROR" || kind != MatchClass {
		t.Fatalf("unexpected resolution: %+v kind=%s", entry, kind)
	}
}

func TestResolveFillsMissingFromDefault(t *testing.T) {
	client := packet.StyleTable{
		"5xx": {Operation: packet.OpRetry}, // no log_level
	}
	entry, _ := Resolve(client, 503)
	if entry.LogLevel != "WARN" {
		t.Fatalf("expected missing log_level filled from default, got %+v", entry)
	}
}

func TestResolveNoClientTableUsesDefault(t *testing.T) {
	entry, kind := Resolve(nil, 200)
	if entry.Operation != packet.OpCopy || entry.LogLevel != "TRACE" || kind != MatchDefault {
		t.Fatalf("unexpected default resolution: %+v kind=%s", entry, kind)
	}
}

func TestResolveHardFallback(t *testing.T) {
	// Status 100 matches neither an explicit client entry nor the default
	// table (which only covers 2xx/4xx/5xx).
	entry, kind := Resolve(nil, 100)
	if entry != FallbackEntry || kind != MatchFallback {
		t.Fatalf("expected hard fallback, got %+v kind=%s", entry, kind)
	}
}

func TestResolveStatusSentinels(t *testing.T) {
	entry, kind := ResolveStatus(nil, packet.SuccessStatus())
	if entry.Operation != packet.OpSuccess || kind != MatchSentinel {
		t.Fatalf("expected success sentinel, got %+v kind=%s", entry, kind)
	}

	entry, kind = ResolveStatus(nil, packet.FailureStatus())
	if entry.Operation != packet.OpFailure || kind != MatchSentinel {
		t.Fatalf("expected failure sentinel, got %+v kind=%s", entry, kind)
	}
}

func TestResolveStatusNumeric(t *testing.T) {
	entry, _ := ResolveStatus(nil, packet.HTTPStatus(404))
	if entry.Operation != packet.OpFailure {
		t.Fatalf("expected default 4xx resolution, got %+v", entry)
	}
}
