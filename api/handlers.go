package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/economy"
	"github.com/xraph/economy/account"
	"github.com/xraph/economy/fund"
	"github.com/xraph/economy/id"
	"github.com/xraph/economy/job"
	"github.com/xraph/economy/types"
)

type openAccountRequest struct {
	ExternalID string       `json:"external_id"`
	Role       account.Role `json:"role"`
}

type amountRequest struct {
	Amount int64        `json:"amount"`
	Kind   account.Kind `json:"kind,omitempty"`
}

type purchaseRequest struct {
	Price int64 `json:"price"`
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type grantRequest struct {
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

// ──────────────────────────────────────────────────
// Health
// ──────────────────────────────────────────────────

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.Store().Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ──────────────────────────────────────────────────
// Accounts
// ──────────────────────────────────────────────────

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	var req openAccountRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = account.RoleUser
	}

	a, err := s.eng.OpenAccount(r.Context(), req.ExternalID, req.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := page(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	accounts, err := s.eng.ListAccounts(r.Context(), account.ListOpts{
		Role:   account.Role(q.Get("role")),
		Status: account.Status(q.Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.eng.GetAccount(r.Context(), accountID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	balance, err := s.eng.BalanceOf(r.Context(), accountID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": accountID, "balance": balance})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, offset, err := page(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	q := account.TxQuery{Limit: limit, Offset: offset}
	for _, k := range r.URL.Query()["kind"] {
		kind := account.Kind(k)
		if !kind.IsValid() {
			s.fail(w, r, economy.ErrInvalidKind)
			return
		}
		q.Kinds = append(q.Kinds, kind)
	}
	if raw := r.URL.Query().Get("window"); raw != "" {
		kind, err := types.ParseWindowKind(raw)
		if err != nil {
			s.fail(w, r, economy.ValidationError{Field: "window", Message: err.Error()})
			return
		}
		q.Window = types.WindowFor(kind, s.eng.Now())
	}

	txs, err := s.eng.ListTransactions(r.Context(), accountID, q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	s.post(w, r, s.eng.CreditAccount)
}

func (s *Server) handleDebit(w http.ResponseWriter, r *http.Request) {
	s.post(w, r, s.eng.DebitAccount)
}

type postFunc func(ctx context.Context, accountID id.AccountID, amount int64, kind account.Kind) (*account.Transaction, error)

func (s *Server) post(w http.ResponseWriter, r *http.Request, fn postFunc) {
	accountID, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req amountRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Kind == "" {
		req.Kind = account.KindMint
	}

	tx, err := fn(r.Context(), accountID, req.Amount, req.Kind)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, s.eng.DisableAccount)
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, s.eng.EnableAccount)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request, fn func(context.Context, id.AccountID) (*account.Account, error)) {
	accountID, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := fn(r.Context(), accountID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	from, err := parseAccountID("from", req.From)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	to, err := parseAccountID("to", req.To)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	txs, err := s.eng.Transfer(r.Context(), from, to, req.Amount)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txs)
}

// ──────────────────────────────────────────────────
// Taxation
// ──────────────────────────────────────────────────

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req amountRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.eng.ApplyEarningsTax(r.Context(), accountID, req.Amount, s.eng.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req purchaseRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.eng.ApplyPurchaseTax(r.Context(), accountID, req.Price, s.eng.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	price, err := strconv.ParseInt(r.URL.Query().Get("price"), 10, 64)
	if err != nil {
		s.fail(w, r, economy.ValidationError{Field: "price", Message: "must be an integer"})
		return
	}

	quote, err := s.eng.QuotePurchase(r.Context(), accountID, price, s.eng.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *Server) handleTaxSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.eng.GetTaxSettings(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleAdjustments(w http.ResponseWriter, r *http.Request) {
	limit, _, err := page(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	adjs, err := s.eng.GetRecentAdjustments(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, adjs)
}

// ──────────────────────────────────────────────────
// Funds
// ──────────────────────────────────────────────────

func (s *Server) handleFunds(w http.ResponseWriter, r *http.Request) {
	funds, err := s.eng.GetFundBreakdown(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, funds)
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	fundType, err := fund.ParseType(chi.URLParam(r, "fundType"))
	if err != nil {
		s.fail(w, r, economy.ErrInvalidFundType)
		return
	}
	var req grantRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	accountID, err := parseAccountID("account_id", req.AccountID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	tx, err := s.eng.Grant(r.Context(), fundType, accountID, req.Amount, req.Reference)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// ──────────────────────────────────────────────────
// Reporting
// ──────────────────────────────────────────────────

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	kind := types.WindowAll
	if raw := r.URL.Query().Get("window"); raw != "" {
		kind = types.WindowKind(raw)
	}

	stats, err := s.eng.GetStats(r.Context(), kind, s.eng.Now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleInvariants(w http.ResponseWriter, r *http.Request) {
	if err := s.eng.VerifyInvariants(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ──────────────────────────────────────────────────
// Jobs
// ──────────────────────────────────────────────────

func (s *Server) handleWeeklyBonus(w http.ResponseWriter, r *http.Request) {
	s.runJob(w, r, s.eng.RunWeeklyBonusJob)
}

func (s *Server) handleAnnualAdjustment(w http.ResponseWriter, r *http.Request) {
	s.runJob(w, r, s.eng.RunAnnualAdjustmentJob)
}

func (s *Server) handleFiscalYearSeed(w http.ResponseWriter, r *http.Request) {
	s.runJob(w, r, s.eng.RunFiscalYearJob)
}

func (s *Server) runJob(w http.ResponseWriter, r *http.Request, run func(context.Context, time.Time) (*job.Report, error)) {
	report, err := run(r.Context(), s.eng.Now())
	if report == nil {
		s.fail(w, r, err)
		return
	}
	status := http.StatusOK
	if err != nil {
		status, _ = classify(err)
		s.logger.Error("api: job failed", "job", report.Kind, "error", err)
	}
	writeJSON(w, status, report)
}

// ──────────────────────────────────────────────────
// Parameters
// ──────────────────────────────────────────────────

func accountParam(r *http.Request) (id.AccountID, error) {
	return parseAccountID("account_id", chi.URLParam(r, "accountID"))
}

func parseAccountID(field, raw string) (id.AccountID, error) {
	accountID, err := id.ParseAccountID(raw)
	if err != nil {
		return id.Nil, economy.ValidationError{Field: field, Message: err.Error()}
	}
	return accountID, nil
}

func page(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if raw := q.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return 0, 0, economy.ValidationError{Field: "limit", Message: "must be a non-negative integer"}
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			return 0, 0, economy.ValidationError{Field: "offset", Message: "must be a non-negative integer"}
		}
	}
	return limit, offset, nil
}
