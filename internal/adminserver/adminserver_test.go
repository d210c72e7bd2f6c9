package adminserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riverglen/reddit-broker/internal/ledger"
)

type fakeReadyer struct{ ready bool }

func (f fakeReadyer) Ready() bool { return f.ready }

func TestHealthzAlwaysOK(t *testing.T) {
	s := New(":0", fakeReadyer{ready: false}, ledger.New(func() time.Time { return time.Unix(0, 0) }))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.httpServer.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /healthz, got %d", rr.Code)
	}
}

func TestReadyzReflectsReadyer(t *testing.T) {
	cases := []struct {
		ready    bool
		wantCode int
	}{
		{true, http.StatusOK},
		{false, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		s := New(":0", fakeReadyer{ready: tc.ready}, ledger.New(func() time.Time { return time.Unix(0, 0) }))
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		s.httpServer.Handler.ServeHTTP(rr, req)
		if rr.Code != tc.wantCode {
			t.Errorf("ready=%v: expected %d, got %d", tc.ready, tc.wantCode, rr.Code)
		}
	}
}

func TestMetricsServed(t *testing.T) {
	s := New(":0", fakeReadyer{ready: true}, ledger.New(func() time.Time { return time.Unix(0, 0) }))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.httpServer.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
	if rr.Body.Len() == 0 {
		t.Error("expected non-empty metrics body")
	}
}

func TestDebugLedgerReportsCount(t *testing.T) {
	now := time.Unix(0, 0)
	ledg := ledger.New(func() time.Time { return now })
	ledg.Check("queue-a", 1, false)
	ledg.Check("queue-b", 1, false)

	s := New(":0", fakeReadyer{ready: true}, ledg)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/debug/ledger", nil)
	s.httpServer.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Body.String(); got != `{"tracked_response_queues":2}` {
		t.Errorf("unexpected body: %s", got)
	}
}

func TestRequestIDHeaderSet(t *testing.T) {
	s := New(":0", fakeReadyer{ready: true}, ledger.New(func() time.Time { return time.Unix(0, 0) }))
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.httpServer.Handler.ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set by middleware")
	}
}
