package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerBeforeInitReturns503(t *testing.T) {
	current = nil
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestRecordCommandAndScrape(t *testing.T) {
	Init("vibedbg_test")
	RecordCommand("success", 12)
	RecordCommand("timeout", 5000)
	SetActiveConnections(3)
	SetQueueDepth(2)
	SetBreakerState(BreakerOpen)
	RecordBreakerTrip("open")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"vibedbg_test_commands_total",
		"vibedbg_test_command_duration_ms",
		"vibedbg_test_active_connections 3",
		"vibedbg_test_queue_depth 2",
		"vibedbg_test_breaker_state 1",
		"vibedbg_test_breaker_trips_total",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape output missing %q:\n%s", want, body)
		}
	}
}

func TestRecordBeforeInitIsNoop(t *testing.T) {
	current = nil
	RecordCommand("success", 1)
	SetActiveConnections(1)
	SetQueueDepth(1)
	SetBreakerState(BreakerClosed)
	RecordBreakerTrip("closed")
}
