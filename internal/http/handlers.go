package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"balansim/internal/advice"
	"balansim/internal/analytics"
	"balansim/internal/core"
	"balansim/internal/log"
	"balansim/internal/services"
)

const recentCount = 5

type addTransactionRequest struct {
	Type       string      `json:"type"`
	CategoryID string      `json:"categoryId"`
	Amount     *core.Money `json:"amount"`
	Note       string      `json:"note"`
}

type addCategoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

type startingBalanceRequest struct {
	StartingBalance *core.Money `json:"startingBalance"`
}

type mutationResponse struct {
	Transaction     *core.Transaction `json:"transaction,omitempty"`
	Category        *core.Category    `json:"category,omitempty"`
	StartingBalance *core.Money       `json:"startingBalance,omitempty"`
	Removed         *bool             `json:"removed,omitempty"`
	Totals          core.Totals       `json:"totals"`
	Warning         string            `json:"warning,omitempty"`
}

type summaryResponse struct {
	Totals          core.Totals              `json:"totals"`
	StartingBalance core.Money               `json:"startingBalance"`
	Advice          advice.Result            `json:"advice"`
	Recent          []analytics.HistoryEntry `json:"recent"`
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Snapshot())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	l := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, summaryResponse{
		Totals:          l.Totals(),
		StartingBalance: l.StartingBalance,
		Advice:          s.currentAdvice(),
		Recent:          analytics.Recent(l, recentCount),
	})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := analytics.HistoryFilter{Query: sanitizeInput(q.Get("q"))}
	if typ := strings.TrimSpace(q.Get("type")); typ != "" && !strings.EqualFold(typ, "ALL") {
		t, err := core.ParseTransactionType(typ)
		if err != nil {
			writeError(w, r, "list_transactions", err)
			return
		}
		f.Type = t
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": analytics.History(s.ledger.Snapshot(), f),
	})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": s.ledger.Snapshot().Categories,
	})
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, analytics.BuildReport(s.ledger.Snapshot(), s.opts.Now(), s.opts.Location))
}

func (s *Server) handleAdvice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currentAdvice())
}

func (s *Server) currentAdvice() advice.Result {
	if s.advice == nil {
		return advice.Result{Text: advice.MissingKeyAdvice, Fallback: true}
	}
	return s.advice.Current()
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var req addTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpAddTransaction, err)
		return
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		writeError(w, r, log.OpAddTransaction, err)
		return
	}
	if req.Amount == nil {
		writeError(w, r, log.OpAddTransaction, fmt.Errorf("%w: amount is required", core.ErrValidation))
		return
	}

	t, err := s.ledger.AddTransaction(r.Context(), services.NewTransaction{
		Type:       typ,
		CategoryID: sanitizeInput(req.CategoryID),
		Amount:     *req.Amount,
		Note:       sanitizeInput(req.Note),
	})
	warning, ok := persistenceWarning(err)
	if !ok {
		writeError(w, r, log.OpAddTransaction, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{
		Transaction: &t,
		Totals:      s.ledger.Snapshot().Totals(),
		Warning:     warning,
	})
}

// handleDeleteTransaction answers 204 whether or not the id existed.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	removed, err := s.ledger.DeleteTransaction(r.Context(), chi.URLParam(r, "id"))
	warning, ok := persistenceWarning(err)
	if !ok {
		writeError(w, r, log.OpDeleteTransaction, err)
		return
	}
	if warning != "" {
		writeJSON(w, http.StatusOK, mutationResponse{Removed: &removed, Totals: s.ledger.Snapshot().Totals(), Warning: warning})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req addCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpAddCategory, err)
		return
	}
	c, err := s.ledger.AddCategory(r.Context(), services.NewCategory{
		Name:  sanitizeInput(req.Name),
		Icon:  sanitizeInput(req.Icon),
		Color: sanitizeInput(req.Color),
	})
	warning, ok := persistenceWarning(err)
	if !ok {
		writeError(w, r, log.OpAddCategory, err)
		return
	}
	writeJSON(w, http.StatusCreated, mutationResponse{
		Category: &c,
		Totals:   s.ledger.Snapshot().Totals(),
		Warning:  warning,
	})
}

func (s *Server) handleRemoveCategory(w http.ResponseWriter, r *http.Request) {
	removed, err := s.ledger.RemoveCategory(r.Context(), chi.URLParam(r, "id"))
	warning, ok := persistenceWarning(err)
	if !ok {
		writeError(w, r, log.OpRemoveCategory, err)
		return
	}
	if warning != "" {
		writeJSON(w, http.StatusOK, mutationResponse{Removed: &removed, Totals: s.ledger.Snapshot().Totals(), Warning: warning})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetStartingBalance(w http.ResponseWriter, r *http.Request) {
	var req startingBalanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, log.OpSetStartingBalance, err)
		return
	}
	if req.StartingBalance == nil {
		writeError(w, r, log.OpSetStartingBalance, fmt.Errorf("%w: startingBalance is required", core.ErrValidation))
		return
	}

	err := s.ledger.SetStartingBalance(r.Context(), *req.StartingBalance)
	warning, ok := persistenceWarning(err)
	if !ok {
		writeError(w, r, log.OpSetStartingBalance, err)
		return
	}
	l := s.ledger.Snapshot()
	writeJSON(w, http.StatusOK, mutationResponse{
		StartingBalance: &l.StartingBalance,
		Totals:          l.Totals(),
		Warning:         warning,
	})
}
