package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/ledger"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

type createLoanRequest struct {
	TotalAmount    decimal.Decimal `json:"total_amount"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	Name           string          `json:"name"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	IsUSD          bool            `json:"is_usd"`
}

// paymentRequest creates a payment. Status "pending" schedules it; anything
// else records it as already paid.
type paymentRequest struct {
	Rate            decimal.NullDecimal `json:"rate"`
	Amount          decimal.Decimal     `json:"amount"`
	PaymentDate     string              `json:"payment_date"`
	Status          string              `json:"status"`
	SourceID        int64               `json:"source_id"`
	IsUSD           bool                `json:"is_usd"`
	MirrorAsExpense bool                `json:"mirror_as_expense"`
}

type markPaidRequest struct {
	Rate            decimal.NullDecimal `json:"rate"`
	MirrorAsExpense bool                `json:"mirror_as_expense"`
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.ledger.GetLoans(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	writeJSON(w, http.StatusOK, loans)
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var body createLoanRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}

	start, err := parseDate(body.StartDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	req := ledger.CreateLoanRequest{
		OwnerID:        ownerFrom(r.Context()),
		Name:           body.Name,
		TotalAmount:    body.TotalAmount,
		MonthlyPayment: body.MonthlyPayment,
		InterestRate:   body.InterestRate,
		StartDate:      start,
		IsUSD:          body.IsUSD,
	}
	if body.EndDate != "" {
		end, err := parseDate(body.EndDate)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		req.EndDate = &end
	}

	loan, err := s.ledger.CreateLoan(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (s *Server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loan, err := s.ledger.GetLoan(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

func (s *Server) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.ledger.DeleteLoan(r.Context(), ownerFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payments, err := s.ledger.GetLoanPayments(r.Context(), ownerFrom(r.Context()), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if payments == nil {
		payments = []model.LoanPayment{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	loanID, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var body paymentRequest
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	date, err := parseDate(body.PaymentDate)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	req := ledger.PaymentRequest{
		OwnerID:         ownerFrom(r.Context()),
		LoanID:          loanID,
		SourceID:        body.SourceID,
		Date:            date,
		Amount:          model.NewMoney(body.Amount, body.IsUSD),
		MirrorAsExpense: body.MirrorAsExpense,
	}

	var payment *model.LoanPayment
	if body.Status == string(model.PaymentPending) {
		payment, err = s.ledger.SchedulePayment(r.Context(), req)
	} else {
		req.Rate, err = s.resolveRate(r.Context(), body.Rate)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		payment, err = s.ledger.RecordPayment(r.Context(), req)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) handleMarkPaymentPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var body markPaidRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	rate, err := s.resolveRate(r.Context(), body.Rate)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	payment, err := s.ledger.MarkPaymentPaid(r.Context(), ownerFrom(r.Context()), id, rate, body.MirrorAsExpense)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) handleLoanSummary(w http.ResponseWriter, r *http.Request) {
	rate, err := s.queryRate(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := s.ledger.GetLoanSummary(r.Context(), ownerFrom(r.Context()), rate)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
