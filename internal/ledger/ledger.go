// Package ledger is the posting coordinator. It is the only code that mutates
// source balances and loan remaining amounts, and it does so in atomic units:
// each unit locks the entities it touches, opens one storage transaction,
// applies every leg, and commits or rolls back as a whole.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/currency"
	"github.com/mertz1999/ai-money-tracker/internal/model"
	"github.com/mertz1999/ai-money-tracker/internal/service"
)

// DefaultLockTimeout bounds how long a unit waits for an entity lock.
const DefaultLockTimeout = 5 * time.Second

// Ledger coordinates postings against a Storage.
type Ledger struct {
	store       service.Storage
	locks       *lockTable
	logger      *slog.Logger
	now         func() time.Time
	lockTimeout time.Duration
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLockTimeout sets how long a unit waits for each entity lock before
// failing with common.ErrContended.
func WithLockTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.lockTimeout = d
		}
	}
}

// WithClock overrides the clock used for default posting dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// New creates a Ledger over store.
func New(store service.Storage, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		locks:       newLockTable(),
		logger:      slog.Default(),
		now:         time.Now,
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// unit runs fn inside one storage transaction while holding the given entity
// locks. Locks are taken before the transaction begins so that a waiting unit
// never holds the database.
func (l *Ledger) unit(ctx context.Context, op string, keys []string, fn func(tx service.Transaction) error) (err error) {
	start := time.Now()
	defer func() { observe(op, start, err) }()

	release, err := l.locks.acquire(ctx, l.lockTimeout, keys...)
	LockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	defer release()

	tx, err := l.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			l.logger.Debug("rollback failed", "op", op, "error", rbErr)
		}
		return err
	}

	return tx.Commit()
}

// applyDelta adds the signed native-currency effect of entered to the source
// balance and keeps src in step with what was written. Reversals pass the same
// entered amount, USD magnitude and rate as the original posting, so the two
// cancel exactly.
func applyDelta(ctx context.Context, tx service.Transaction, src *model.Source, entered model.Money, amountUSD, rate, sign decimal.Decimal) error {
	native, err := currency.Settle(entered, amountUSD, src.IsUSD, rate)
	if err != nil {
		return err
	}
	balance := src.Balance.Add(native.Mul(sign))
	if err := tx.SetSourceBalance(ctx, src.ID, balance); err != nil {
		return err
	}
	src.Balance = balance
	return nil
}

func checkOwner(kind string, id, owner, want int64) error {
	if owner != want {
		return fmt.Errorf("%w: %s %d", common.ErrOwnerMismatch, kind, id)
	}
	return nil
}

// ownedSource loads a source and checks it belongs to ownerID.
func ownedSource(ctx context.Context, q service.Queries, ownerID, sourceID int64) (*model.Source, error) {
	src, err := q.GetSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner("source", sourceID, src.OwnerID, ownerID); err != nil {
		return nil, err
	}
	return src, nil
}

// ownedLoan loads a loan and checks it belongs to ownerID.
func ownedLoan(ctx context.Context, q service.Queries, ownerID, loanID int64) (*model.Loan, error) {
	loan, err := q.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if err := checkOwner("loan", loanID, loan.OwnerID, ownerID); err != nil {
		return nil, err
	}
	return loan, nil
}

func newOpID() string {
	return uuid.NewString()
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", common.ErrInvalidInput)
	}
	return nil
}

// postingDate normalizes a caller date to UTC, defaulting to now.
func (l *Ledger) postingDate(date time.Time) time.Time {
	if date.IsZero() {
		return l.now().UTC()
	}
	return date.UTC()
}
