package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacag-app/lacag/internal/logger"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/store"
	"github.com/lacag-app/lacag/internal/tracker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var now = time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *tracker.Tracker) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "lacag.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	clock := func() time.Time { return now }
	tr := tracker.New(st, nil, tracker.Options{Clock: clock, Log: logger.Discard()})
	require.NoError(t, tr.Load())

	svc := New(tr, Config{EventsBuffer: 10, Log: logger.Discard(), Clock: clock})
	return svc, tr
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDiffSnapshots(t *testing.T) {
	prev := Snapshot{Transactions: 3, SpentToday: 10.5}
	curr := Snapshot{Transactions: 5, SpentToday: 13.1}

	delta := diffSnapshots(prev, curr)
	assert.Equal(t, 2, delta.Transactions)
	assert.InDelta(t, 2.6, delta.SpentToday, 1e-9)
	assert.False(t, delta.isZero())
	assert.True(t, diffSnapshots(curr, curr).isZero())
}

func TestPublishEventRingBuffer(t *testing.T) {
	s, _ := newService(t)
	s.cfg.EventsBuffer = 2

	s.publishEvent(Event{ID: 1})
	s.publishEvent(Event{ID: 2})
	s.publishEvent(Event{ID: 3})

	events := s.recentEvents()
	require.Len(t, events, 2)
	assert.Equal(t, int64(2), events[0].ID)
	assert.Equal(t, int64(3), events[1].ID)
}

func TestPollOnceGuestPublishesSnapshotOnce(t *testing.T) {
	s, _ := newService(t)
	s.pollOnce(context.Background())
	s.pollOnce(context.Background())

	events := s.recentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventSnapshot, events[0].Type)

	st := s.snapshotStatus()
	assert.Equal(t, int64(2), st.PollCount)
	assert.Empty(t, st.LastError)
	assert.False(t, st.Summary.Authenticated)
}

func TestHealthz(t *testing.T) {
	s, _ := newService(t)
	w := performRequest(s.Router(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok\n", w.Body.String())
}

func TestAddExpenseEndpoint(t *testing.T) {
	s, tr := newService(t)
	s.pollOnce(context.Background())
	r := s.Router()

	w := performRequest(r, http.MethodPost, "/v1/expenses", ExpenseRequest{Amount: 12, Category: "food"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var tx model.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tx))
	assert.Equal(t, "Food", tx.Category)
	assert.InDelta(t, 12, tr.TotalSpentToday(now), 1e-9)

	events := s.recentEvents()
	require.Len(t, events, 2)
	assert.Equal(t, EventSpend, events[1].Type)
	assert.Equal(t, 1, events[1].Delta.Transactions)

	w = performRequest(r, http.MethodGet, "/v1/transactions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var txs []model.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txs))
	assert.Len(t, txs, 1)
}

func TestAddExpenseRejectsBadAmount(t *testing.T) {
	s, tr := newService(t)
	r := s.Router()

	w := performRequest(r, http.MethodPost, "/v1/expenses", map[string]any{"category": "Food"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPost, "/v1/expenses", ExpenseRequest{Amount: -4})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, tr.Transactions())
}

func TestDeleteTransactionEndpoint(t *testing.T) {
	s, tr := newService(t)
	tx, err := tr.AddExpense(context.Background(), 5, "Coffee")
	require.NoError(t, err)
	r := s.Router()

	w := performRequest(r, http.MethodDelete, "/v1/transactions/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(r, http.MethodDelete, "/v1/transactions/"+tx.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, tr.Transactions())
}

func TestChallengeEndpoint(t *testing.T) {
	s, tr := newService(t)
	require.NoError(t, tr.BeginChallenge("7day"))
	require.NoError(t, tr.ConfirmChallenge("7day", 10))
	r := s.Router()

	w := performRequest(r, http.MethodGet, "/v1/challenge/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp ChallengeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "active", string(resp.State.Step))
	assert.Len(t, resp.Progress.Slots, 7)
	assert.InDelta(t, 10, resp.Progress.Limit, 1e-9)

	w = performRequest(r, http.MethodGet, "/v1/challenge/30", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Locked)

	w = performRequest(r, http.MethodGet, "/v1/challenge/fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDailyEndpoint(t *testing.T) {
	s, tr := newService(t)
	_, err := tr.AddExpense(context.Background(), 5, "Coffee")
	require.NoError(t, err)
	r := s.Router()

	w := performRequest(r, http.MethodGet, "/v1/daily?days=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var days []model.DailyTotals
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &days))
	require.Len(t, days, 3)
	assert.InDelta(t, 5, days[0].Expense, 1e-9)

	w = performRequest(r, http.MethodGet, "/v1/daily?days=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusAndMetricsEndpoints(t *testing.T) {
	s, _ := newService(t)
	s.pollOnce(context.Background())
	r := s.Router()

	w := performRequest(r, http.MethodGet, "/v1/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "USD", st.Tracker.Currency)
	assert.Equal(t, 1, st.EventCount)

	w = performRequest(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lacag_daemon_refreshes_total")
}
