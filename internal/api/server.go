// Package api is a thin HTTP adapter over the ledger. It translates JSON
// requests into ledger calls and ledger errors into status codes; it holds no
// business rules of its own. Authentication is out of scope: the caller's
// owner id arrives in the X-Owner-ID header.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/currency"
	"github.com/mertz1999/ai-money-tracker/internal/ledger"
)

// OwnerHeader carries the authenticated owner id.
const OwnerHeader = "X-Owner-ID"

type ctxKey int

const ownerKey ctxKey = iota

// Server is the money tracker HTTP API server.
type Server struct {
	ledger         *ledger.Ledger
	rates          currency.RateProvider
	logger         *slog.Logger
	metricsEnabled bool
}

// NewServer creates a new API server. rates supplies the rate for requests
// that do not carry one; it may be nil, in which case such requests fail.
func NewServer(l *ledger.Ledger, rates currency.RateProvider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{ledger: l, rates: rates, logger: logger}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories", s.handleListCategories)

		r.Group(func(r chi.Router) {
			r.Use(requireOwner)

			r.Get("/sources", s.handleListSources)
			r.Post("/sources", s.handleCreateSource)
			r.Get("/balances", s.handleBalances)

			r.Get("/transactions", s.handleListTransactions)
			r.Post("/transactions", s.handlePostTransaction)
			r.Post("/income", s.handleAddIncome)
			r.Put("/transactions/{id}", s.handleUpdateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Route("/loans", func(r chi.Router) {
				r.Get("/", s.handleListLoans)
				r.Post("/", s.handleCreateLoan)
				r.Get("/summary", s.handleLoanSummary)
				r.Put("/payments/{id}/pay", s.handleMarkPaymentPaid)
				r.Get("/{id}", s.handleGetLoan)
				r.Delete("/{id}", s.handleDeleteLoan)
				r.Get("/{id}/payments", s.handleListPayments)
				r.Post("/{id}/payments", s.handleCreatePayment)
			})

			r.Get("/reports/monthly", s.handleMonthlyReport)
		})
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// requireOwner resolves X-Owner-ID into the request context.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(OwnerHeader))
		owner, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || owner <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("missing or invalid %s header", OwnerHeader))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

func ownerFrom(ctx context.Context) int64 {
	owner, _ := ctx.Value(ownerKey).(int64)
	return owner
}

// resolveRate prefers an explicit rate from the request and falls back to the
// server's rate provider.
func (s *Server) resolveRate(ctx context.Context, explicit decimal.NullDecimal) (decimal.Decimal, error) {
	if explicit.Valid {
		if err := currency.ValidateRate(explicit.Decimal); err != nil {
			return decimal.Zero, err
		}
		return explicit.Decimal, nil
	}
	if s.rates == nil {
		return decimal.Zero, fmt.Errorf("%w: rate is required", common.ErrInvalidRate)
	}
	return s.rates.CurrentRate(ctx)
}

// queryRate reads an optional ?rate= parameter.
func (s *Server) queryRate(r *http.Request) (decimal.Decimal, error) {
	var explicit decimal.NullDecimal
	if raw := r.URL.Query().Get("rate"); raw != "" {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: rate %q", common.ErrInvalidRate, raw)
		}
		explicit = decimal.NewNullDecimal(rate)
	}
	return s.resolveRate(r.Context(), explicit)
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", common.ErrInvalidInput, raw)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", common.ErrInvalidInput, err)
	}
	return nil
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty means "not given".
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", common.ErrInvalidInput, raw)
	}
	return t.UTC(), nil
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrAlreadyPaid), errors.Is(err, common.ErrLedgerInvariant):
		return http.StatusConflict
	case errors.Is(err, common.ErrDuplicateEntry):
		return http.StatusConflict
	case common.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case common.IsRetryable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Server-side failures are logged and their
// detail is not sent to the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()

	switch {
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		msg = http.StatusText(status)
	}

	writeError(w, status, msg)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"status":  status,
		},
	})
}
