package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"duit/internal/core"
	"duit/internal/log"
	"duit/internal/services"
	"duit/internal/session"
)

type transactionJSON struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	Note        string `json:"note,omitempty"`
	OccurredOn  string `json:"occurred_on"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	out := transactionJSON{
		ID:          t.ID,
		Kind:        string(t.Kind),
		AmountCents: t.Amount.Cents,
		Category:    t.Category,
		Note:        t.Note,
		OccurredOn:  t.OccurredOn.String(),
	}
	if !t.CreatedAt.IsZero() {
		out.CreatedAt = t.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return out
}

func toTransactionsJSON(records []core.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(records))
	for _, t := range records {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

type summaryJSON struct {
	TotalIncomeCents  int64 `json:"total_income_cents"`
	TotalExpenseCents int64 `json:"total_expense_cents"`
	BalanceCents      int64 `json:"balance_cents"`
	Stale             bool  `json:"stale"`
}

type recentJSON struct {
	Records []transactionJSON `json:"records"`
	Loaded  bool              `json:"loaded"`
	Stale   bool              `json:"stale"`
}

type monthJSON struct {
	Year    int               `json:"year"`
	Month   int               `json:"month"`
	Records []transactionJSON `json:"records"`
	Loaded  bool              `json:"loaded"`
	Stale   bool              `json:"stale"`
}

type sessionJSON struct {
	State   string `json:"state"`
	OwnerID string `json:"owner_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps domain errors onto HTTP status codes. Unknown errors are
// treated as internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrMissingCategory),
		errors.Is(err, core.ErrMissingDate),
		errors.Is(err, session.ErrEmptyOwnerID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var body struct {
		Kind       string `json:"kind"`
		Amount     string `json:"amount"`
		Category   string `json:"category"`
		Note       string `json:"note"`
		OccurredOn string `json:"occurred_on"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	id, err := s.intake.Submit(r.Context(), services.SubmitRequest{
		Kind:       core.Kind(body.Kind),
		Amount:     body.Amount,
		Category:   body.Category,
		Note:       body.Note,
		OccurredOn: body.OccurredOn,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.summarySnapshot())
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.recentSnapshot())
}

func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.monthSnapshot())
}

func (s *Server) handleMonthAdvance(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var body struct {
		Delta int `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}
	if body.Delta == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "delta must be non-zero"})
		return
	}

	s.month.Advance(body.Delta)
	cursor := s.month.Cursor()
	writeJSON(w, http.StatusOK, map[string]int{
		"year":  cursor.Year,
		"month": int(cursor.Month),
	})
}

func (s *Server) handleSessionState(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.sessionSnapshot())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var body struct {
		OwnerID string `json:"owner_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	if err := s.sess.SignIn(body.OwnerID); err != nil {
		writeError(w, err)
		return
	}

	s.logger.InfoContext(r.Context(), "owner signed in", log.FieldOwnerID, body.OwnerID)
	writeJSON(w, http.StatusOK, s.sessionSnapshot())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	s.sess.SignOut()
	s.logger.InfoContext(r.Context(), "owner signed out")
	writeJSON(w, http.StatusOK, s.sessionSnapshot())
}

func (s *Server) summarySnapshot() summaryJSON {
	totals, stale := s.totals.Current()
	return summaryJSON{
		TotalIncomeCents:  totals.TotalIncome.Cents,
		TotalExpenseCents: totals.TotalExpense.Cents,
		BalanceCents:      totals.Balance.Cents,
		Stale:             stale,
	}
}

func (s *Server) recentSnapshot() recentJSON {
	records, loaded, stale := s.recent.Current()
	return recentJSON{
		Records: toTransactionsJSON(records),
		Loaded:  loaded,
		Stale:   stale,
	}
}

func (s *Server) monthSnapshot() monthJSON {
	records, loaded, stale := s.month.Current()
	cursor := s.month.Cursor()
	return monthJSON{
		Year:    cursor.Year,
		Month:   int(cursor.Month),
		Records: toTransactionsJSON(records),
		Loaded:  loaded,
		Stale:   stale,
	}
}

func (s *Server) sessionSnapshot() sessionJSON {
	out := sessionJSON{OwnerID: s.sess.CurrentOwnerID()}
	switch s.sess.State() {
	case session.StateAuthenticated:
		out.State = "authenticated"
	case session.StateAnonymous:
		out.State = "anonymous"
	default:
		out.State = "unknown"
	}
	return out
}
