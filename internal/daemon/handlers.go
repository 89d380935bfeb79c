package daemon

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lacag-app/lacag/internal/baas"
	"github.com/lacag-app/lacag/internal/challenge"
	"github.com/lacag-app/lacag/internal/model"
	"github.com/lacag-app/lacag/internal/pipeline"
	"github.com/lacag-app/lacag/internal/tracker"
)

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ExpenseRequest is the body of POST /v1/expenses.
type ExpenseRequest struct {
	Amount   float64 `json:"amount" binding:"required"`
	Category string  `json:"category"`
}

// ChallengeResponse is served at /v1/challenge/:variant.
type ChallengeResponse struct {
	Variant  challenge.Variant          `json:"variant"`
	State    challenge.State            `json:"state"`
	Locked   bool                       `json:"locked"`
	Progress pipeline.ChallengeProgress `json:"progress"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrInvalidAmount),
		errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, tracker.ErrNotFound), errors.Is(err, baas.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, baas.ErrUnauthorized), errors.Is(err, tracker.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, baas.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, tracker.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func abortWith(c *gin.Context, err error) {
	c.JSON(statusFor(err), ErrorResponse{Error: err.Error()})
}

func (s *Service) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok\n")
}

func (s *Service) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleTransactions(c *gin.Context) {
	c.JSON(http.StatusOK, s.tracker.Transactions())
}

func (s *Service) handleAddExpense(c *gin.Context) {
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}
	tx, err := s.tracker.AddExpense(c.Request.Context(), req.Amount, req.Category)
	if err != nil {
		abortWith(c, err)
		return
	}
	s.observe()
	c.JSON(http.StatusCreated, tx)
}

func (s *Service) handleDeleteTransaction(c *gin.Context) {
	if err := s.tracker.DeleteTransaction(c.Request.Context(), c.Param("id")); err != nil {
		abortWith(c, err)
		return
	}
	s.observe()
	c.Status(http.StatusNoContent)
}

func (s *Service) handleDaily(c *gin.Context) {
	days := 7
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 366 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "days must be between 1 and 366"})
			return
		}
		days = n
	}
	now := s.now()
	since := pipeline.AddDays(pipeline.StartOfDay(now), -(days - 1))
	c.JSON(http.StatusOK, pipeline.AggregateDays(s.tracker.Transactions(), since, now))
}

func (s *Service) handleChallenge(c *gin.Context) {
	v, err := challenge.ParseVariant(c.Param("variant"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	board := s.tracker.Challenge()
	c.JSON(http.StatusOK, ChallengeResponse{
		Variant:  v,
		State:    board.State(v),
		Locked:   board.Locked(v),
		Progress: s.tracker.Progress(v, s.now()),
	})
}

func (s *Service) handleEvents(c *gin.Context) {
	c.JSON(http.StatusOK, s.recentEvents())
}

func (s *Service) handleStream(c *gin.Context) {
	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	// Send the current snapshot immediately.
	s.mu.RLock()
	current := Event{Type: EventSnapshot, Timestamp: s.now(), Snapshot: s.snapshot}
	s.mu.RUnlock()
	c.SSEvent(current.Type, current)
	c.Writer.Flush()

	c.Stream(func(io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev := <-ch:
			c.SSEvent(ev.Type, ev)
			return true
		}
	})
}
