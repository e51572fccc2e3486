package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/ledger"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

type createSourceRequest struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Name           string          `json:"name"`
	IsBank         bool            `json:"is_bank"`
	IsUSD          bool            `json:"is_usd"`
}

// postingRequest is the body of every transaction write. Category may be given
// by id or by name; unknown names fall back to "other".
type postingRequest struct {
	Rate       decimal.NullDecimal `json:"rate"`
	Amount     decimal.Decimal     `json:"amount"`
	Name       string              `json:"name"`
	Date       string              `json:"date"`
	Category   string              `json:"category"`
	SourceID   int64               `json:"source_id"`
	CategoryID int64               `json:"category_id"`
	IsUSD      bool                `json:"is_usd"`
	IsDeposit  bool                `json:"is_deposit"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.ledger.Sources(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sources)
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var body createSourceRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	src, err := s.ledger.CreateSource(r.Context(), ledger.CreateSourceRequest{
		OwnerID:        ownerFrom(r.Context()),
		Name:           body.Name,
		IsBank:         body.IsBank,
		IsUSD:          body.IsUSD,
		InitialBalance: body.InitialBalance,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, src)
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	rate, err := s.queryRate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	balances, err := s.ledger.GetBalances(r.Context(), ownerFrom(r.Context()), rate)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	totalUSD, totalToman := decimal.Zero, decimal.Zero
	for _, b := range balances {
		totalUSD = totalUSD.Add(b.USDValue)
		totalToman = totalToman.Add(b.TomanValue)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rate":        rate,
		"sources":     balances,
		"total_usd":   totalUSD,
		"total_toman": totalToman,
	})
}

// handleListTransactions lists transactions, optionally for one month
// (?month=YYYY-MM) and one source (?source_id=).
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	txns, err := s.ledger.GetTransactions(r.Context(), ownerFrom(r.Context()), filter)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}

func transactionFilter(r *http.Request) (model.TransactionFilter, error) {
	q := r.URL.Query()
	var filter model.TransactionFilter

	if month := q.Get("month"); month != "" {
		t, err := time.Parse("2006-01", month)
		if err != nil {
			return filter, fmt.Errorf("%w: month %q, want YYYY-MM", common.ErrInvalidInput, month)
		}
		filter = model.MonthFilter(t.Year(), t.Month())
	}

	ints := map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset}
	for key, dst := range ints {
		if raw := q.Get(key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				return filter, fmt.Errorf("%w: %s %q", common.ErrInvalidInput, key, raw)
			}
			*dst = n
		}
	}

	if raw := q.Get("source_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("%w: source_id %q", common.ErrInvalidInput, raw)
		}
		filter.SourceID = &id
	}
	return filter, nil
}

// toPosting resolves the category and rate of a write request.
func (s *Server) toPosting(r *http.Request, body postingRequest) (ledger.PostingRequest, error) {
	date, err := parseDate(body.Date)
	if err != nil {
		return ledger.PostingRequest{}, err
	}

	rate, err := s.resolveRate(r.Context(), body.Rate)
	if err != nil {
		return ledger.PostingRequest{}, err
	}

	categoryID := body.CategoryID
	if categoryID == 0 {
		cat, err := s.ledger.ResolveCategory(r.Context(), body.Category)
		if err != nil {
			return ledger.PostingRequest{}, err
		}
		categoryID = cat.ID
	}

	return ledger.PostingRequest{
		OwnerID:    ownerFrom(r.Context()),
		SourceID:   body.SourceID,
		CategoryID: categoryID,
		Name:       strings.TrimSpace(body.Name),
		Date:       date,
		Amount:     model.NewMoney(body.Amount, body.IsUSD),
		Rate:       rate,
		IsDeposit:  body.IsDeposit,
	}, nil
}

func (s *Server) handlePostTransaction(w http.ResponseWriter, r *http.Request) {
	s.post(w, r, false)
}

func (s *Server) handleAddIncome(w http.ResponseWriter, r *http.Request) {
	s.post(w, r, true)
}

func (s *Server) post(w http.ResponseWriter, r *http.Request, income bool) {
	var body postingRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	if income && body.Category == "" && body.CategoryID == 0 {
		body.Category = "income"
	}

	req, err := s.toPosting(r, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var txn *model.Transaction
	if income {
		txn, err = s.ledger.AddIncome(r.Context(), req)
	} else {
		txn, err = s.ledger.PostTransaction(r.Context(), req)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var body postingRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	req, err := s.toPosting(r, body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	txn, err := s.ledger.UpdateTransaction(r.Context(), id, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), ownerFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMonthlyReport serves ?year=&month= with an optional ?rate= for the
// balance section. Year and month default to the current month.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	year, month := now.Year(), int(now.Month())

	q := r.URL.Query()
	for key, dst := range map[string]*int{"year": &year, "month": &month} {
		if raw := q.Get(key); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				s.fail(w, r, fmt.Errorf("%w: %s %q", common.ErrInvalidInput, key, raw))
				return
			}
			*dst = n
		}
	}

	rate, err := s.queryRate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	report, err := s.ledger.MonthlyReport(r.Context(), ownerFrom(r.Context()), year, time.Month(month), rate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
