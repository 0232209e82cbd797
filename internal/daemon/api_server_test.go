package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ticketdesk/internal/ledger"
	"ticketdesk/internal/logging"
)

type sourceStub struct {
	intakes   []ledger.Intake
	err       error
	lastLimit int
	lastTick  string
}

func (s *sourceStub) Status(context.Context) Status {
	return Status{Running: true, PID: 42, InFlight: 1, SuccessRate: 87.5}
}

func (s *sourceStub) RecentIntakes(_ context.Context, limit int, ticketID string) ([]ledger.Intake, error) {
	s.lastLimit = limit
	s.lastTick = ticketID
	return s.intakes, s.err
}

func newStubServer(token string, src *sourceStub) *apiServer {
	srv := &apiServer{token: token, logger: logging.NewNop(), source: src}
	srv.handler = srv.routes(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	}))
	return srv
}

func TestAPIServerStatus(t *testing.T) {
	srv := newStubServer("", &sourceStub{})
	w := httptest.NewRecorder()
	srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp Status
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Running || resp.PID != 42 || resp.InFlight != 1 {
		t.Fatalf("unexpected status payload: %+v", resp)
	}
}

func TestAPIServerRecent(t *testing.T) {
	src := &sourceStub{intakes: []ledger.Intake{{ID: 7, TicketID: "13624970", Status: ledger.StatusSuccess}}}
	srv := newStubServer("", src)

	w := httptest.NewRecorder()
	srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recent?limit=5&ticket=13624970", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp recentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Intakes) != 1 || resp.Intakes[0].TicketID != "13624970" {
		t.Fatalf("unexpected intakes: %+v", resp.Intakes)
	}
	if src.lastLimit != 5 || src.lastTick != "13624970" {
		t.Fatalf("query not forwarded: limit=%d ticket=%q", src.lastLimit, src.lastTick)
	}

	w = httptest.NewRecorder()
	srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recent?limit=100000", nil))
	if src.lastLimit != maxRecentLimit {
		t.Fatalf("expected limit clamp to %d, got %d", maxRecentLimit, src.lastLimit)
	}

	w = httptest.NewRecorder()
	srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recent?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}

	src.err = errors.New("database is locked")
	w = httptest.NewRecorder()
	srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/recent", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestAPIServerRejectsWrongMethod(t *testing.T) {
	srv := newStubServer("", &sourceStub{})
	w := httptest.NewRecorder()
	srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/status", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	srv := newStubServer("s3cret", &sourceStub{})
	cases := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing", "/api/status", "", http.StatusUnauthorized},
		{"wrong scheme", "/api/status", "Basic s3cret", http.StatusUnauthorized},
		{"wrong token", "/api/status", "Bearer nope", http.StatusUnauthorized},
		{"valid", "/api/status", "Bearer s3cret", http.StatusOK},
		{"metrics guarded", "/metrics", "", http.StatusUnauthorized},
		{"metrics valid", "/metrics", "Bearer s3cret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			srv.handler.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, w.Code)
			}
		})
	}
}
