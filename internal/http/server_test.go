package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"duit/internal/ledger/memory"
	"duit/internal/log"
	"duit/internal/services"
	"duit/internal/session"
	"duit/internal/views"
)

func newTestServer(t *testing.T) (*Server, *session.Session) {
	t.Helper()

	logger := log.New(log.Config{Level: slog.LevelError})
	store := memory.New()
	sess := session.New()

	totals := views.NewTotals(store, sess, logger)
	recent := views.NewRecentFeed(store, sess, 5, logger)
	month := views.NewMonthWindow(store, sess, logger)

	ctx, cancel := context.WithCancel(context.Background())
	for _, v := range []interface{ Start(context.Context) error }{totals, recent, month} {
		if err := v.Start(ctx); err != nil {
			t.Fatalf("start view: %v", err)
		}
	}

	intake := services.NewIntake(store, sess, nil, logger)
	srv := NewServer(":0", sess, intake, totals, recent, month, logger)

	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
		totals.Stop()
		recent.Stop()
		month.Stop()
		cancel()
		_ = store.Close()
	})

	return srv, sess
}

func doJSON(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *strings.Reader
	if body == "" {
		rdr = strings.NewReader("{}")
	} else {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

// waitForSummary polls until the totals view reflects the expected balance.
func waitForSummary(t *testing.T, srv *Server, wantBalance int64) summaryJSON {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var last summaryJSON
	for time.Now().Before(deadline) {
		rec := doJSON(t, srv, http.MethodGet, "/api/summary", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("summary status = %d", rec.Code)
		}
		last = summaryJSON{}
		if err := json.Unmarshal(rec.Body.Bytes(), &last); err != nil {
			t.Fatalf("decode summary: %v", err)
		}
		if last.BalanceCents == wantBalance {
			return last
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("summary never reached balance %d, last %+v", wantBalance, last)
	return summaryJSON{}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestCreateTransactionRequiresAuth(t *testing.T) {
	srv, sess := newTestServer(t)
	sess.Resolve("")

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"expense","amount":"12.50","category":"food","occurred_on":"2025-03-10"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateTransactionAndSummary(t *testing.T) {
	srv, sess := newTestServer(t)
	sess.Resolve("owner-1")

	rec := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"income","amount":"1000.00","category":"salary","occurred_on":"2025-03-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created["id"] == "" {
		t.Fatal("expected a transaction id")
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"kind":"expense","amount":"300.00","category":"rent","occurred_on":"2025-03-05"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	sum := waitForSummary(t, srv, 70000)
	if sum.TotalIncomeCents != 100000 || sum.TotalExpenseCents != 30000 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.Stale {
		t.Fatal("summary should not be stale")
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv, sess := newTestServer(t)
	sess.Resolve("owner-1")

	tests := []struct {
		name string
		body string
	}{
		{"bad kind", `{"kind":"transfer","amount":"10.00","category":"food","occurred_on":"2025-03-10"}`},
		{"bad amount", `{"kind":"expense","amount":"zero","category":"food","occurred_on":"2025-03-10"}`},
		{"missing category", `{"kind":"expense","amount":"10.00","category":"","occurred_on":"2025-03-10"}`},
		{"bad date", `{"kind":"expense","amount":"10.00","category":"food","occurred_on":"10/03/2025"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/api/transactions", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestRecentEndpoint(t *testing.T) {
	srv, sess := newTestServer(t)
	sess.Resolve("owner-1")

	for _, body := range []string{
		`{"kind":"expense","amount":"1.00","category":"food","occurred_on":"2025-03-01"}`,
		`{"kind":"expense","amount":"2.00","category":"food","occurred_on":"2025-03-02"}`,
	} {
		if rec := doJSON(t, srv, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("append failed: %d", rec.Code)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := doJSON(t, srv, http.MethodGet, "/api/recent", "")
		var feed recentJSON
		if err := json.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
			t.Fatalf("decode recent: %v", err)
		}
		if len(feed.Records) == 2 {
			if feed.Records[0].AmountCents != 200 {
				t.Fatalf("expected newest first, got %+v", feed.Records)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("recent feed never reached 2 records, got %d", len(feed.Records))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMonthAdvance(t *testing.T) {
	srv, sess := newTestServer(t)
	sess.Resolve("owner-1")

	rec := doJSON(t, srv, http.MethodGet, "/api/month", "")
	var before monthJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &before); err != nil {
		t.Fatalf("decode month: %v", err)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/month/advance", `{"delta":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("advance status = %d", rec.Code)
	}
	var cursor map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &cursor); err != nil {
		t.Fatalf("decode cursor: %v", err)
	}

	wantMonth := before.Month%12 + 1
	if cursor["month"] != wantMonth {
		t.Fatalf("cursor month = %d, want %d", cursor["month"], wantMonth)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/month/advance", `{"delta":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero delta status = %d, want 400", rec.Code)
	}
}

func TestSessionEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/session/login", `{"owner_id":""}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty login status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/session/login", `{"owner_id":"owner-7"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	var state sessionJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if state.State != "authenticated" || state.OwnerID != "owner-7" {
		t.Fatalf("unexpected session state %+v", state)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/session/logout", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	state = sessionJSON{}
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if state.State != "anonymous" || state.OwnerID != "" {
		t.Fatalf("unexpected session state %+v", state)
	}
}

func TestStreamSendsInitialSnapshot(t *testing.T) {
	srv, sess := newTestServer(t)
	sess.Resolve("owner-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // handler sends one snapshot, then sees the dead context and returns

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, "event: snapshot") {
		t.Fatalf("expected snapshot event, got %q", body)
	}
	if !strings.Contains(body, `"session"`) || !strings.Contains(body, `"summary"`) {
		t.Fatalf("snapshot payload incomplete: %q", body)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/transactions", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("Allow = %q", allow)
	}
}
