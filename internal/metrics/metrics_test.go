package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersByOutcome(t *testing.T) {
	m := New()
	m.Login(OutcomeSuccess)
	m.Login(OutcomeAuth)
	m.Login(OutcomeAuth)
	m.Lockout()
	m.Registration(OutcomeConflict)

	if got := testutil.ToFloat64(m.logins.WithLabelValues(OutcomeAuth)); got != 2 {
		t.Fatalf("expected 2 auth failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.lockouts); got != 1 {
		t.Fatalf("expected 1 lockout, got %v", got)
	}
	if got := testutil.ToFloat64(m.registrations.WithLabelValues(OutcomeConflict)); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.SessionLookup(true)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if rec.Code != 200 || !strings.Contains(string(body), `admin_session_lookups_total{result="hit"} 1`) {
		t.Fatalf("unexpected metrics output: %d %s", rec.Code, body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Login(OutcomeSuccess)
	m.Registration(OutcomeSuccess)
	m.Lockout()
	m.SessionLookup(false)
}
