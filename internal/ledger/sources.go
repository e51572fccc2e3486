package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/currency"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

// CreateSourceRequest opens an account. InitialBalance is in the source's
// native currency and is the only balance write that is not a posting.
type CreateSourceRequest struct {
	InitialBalance decimal.Decimal
	Name           string
	OwnerID        int64
	IsBank         bool
	IsUSD          bool
}

// CreateSource opens a new source for an owner. Names are unique per owner.
func (l *Ledger) CreateSource(ctx context.Context, req CreateSourceRequest) (*model.Source, error) {
	if err := requireName(req.Name); err != nil {
		return nil, err
	}

	src := &model.Source{
		OwnerID: req.OwnerID,
		Name:    strings.TrimSpace(req.Name),
		IsBank:  req.IsBank,
		IsUSD:   req.IsUSD,
		Balance: req.InitialBalance,
	}
	if err := l.store.CreateSource(ctx, src); err != nil {
		return nil, err
	}

	l.logger.Info("created source",
		"op", "create_source",
		"owner_id", src.OwnerID,
		"source_id", src.ID,
		"currency", src.Currency(),
		"balance", src.Balance.String())
	return src, nil
}

// Sources lists the owner's sources.
func (l *Ledger) Sources(ctx context.Context, ownerID int64) ([]model.Source, error) {
	return l.store.GetSources(ctx, ownerID)
}

// SourceByName finds one of the owner's sources by name.
func (l *Ledger) SourceByName(ctx context.Context, ownerID int64, name string) (*model.Source, error) {
	return l.store.GetSourceByName(ctx, ownerID, name)
}

// GetBalance returns a source's balance in its native currency.
func (l *Ledger) GetBalance(ctx context.Context, ownerID, sourceID int64) (model.Money, error) {
	src, err := ownedSource(ctx, l.store, ownerID, sourceID)
	if err != nil {
		return model.Money{}, err
	}
	return src.BalanceMoney(), nil
}

// GetBalances returns every source balance of the owner with USD and Toman
// equivalents at rate.
func (l *Ledger) GetBalances(ctx context.Context, ownerID int64, rate decimal.Decimal) ([]model.SourceBalance, error) {
	if err := currency.ValidateRate(rate); err != nil {
		return nil, err
	}

	sources, err := l.store.GetSources(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	balances := make([]model.SourceBalance, 0, len(sources))
	for _, src := range sources {
		usd, err := currency.ToUSD(src.Balance, src.IsUSD, rate)
		if err != nil {
			return nil, err
		}
		toman, err := currency.Settle(src.BalanceMoney(), usd, false, rate)
		if err != nil {
			return nil, err
		}
		balances = append(balances, model.SourceBalance{
			Source:     src,
			USDValue:   usd,
			TomanValue: toman,
		})
	}
	return balances, nil
}

// CreateCategory creates a shared category, returning the existing one when the
// name is taken.
func (l *Ledger) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	if err := requireName(name); err != nil {
		return nil, err
	}
	return l.store.CreateCategory(ctx, name)
}

// Categories lists all categories.
func (l *Ledger) Categories(ctx context.Context) ([]model.Category, error) {
	return l.store.GetCategories(ctx)
}

// ResolveCategory looks a category up by name and falls back to the reserved
// "other" category when the name is unknown or empty.
func (l *Ledger) ResolveCategory(ctx context.Context, name string) (*model.Category, error) {
	if strings.TrimSpace(name) != "" {
		cat, err := l.store.GetCategoryByName(ctx, name)
		if err == nil {
			return cat, nil
		}
		if !errors.Is(err, common.ErrCategoryNotFound) {
			return nil, err
		}
		l.logger.Debug("unknown category, using fallback", "category", name)
	}
	return l.store.GetCategoryByName(ctx, model.CategoryOther)
}
