package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/config"
	"github.com/mertz1999/ai-money-tracker/internal/ledger"
	"github.com/mertz1999/ai-money-tracker/internal/model"
	"github.com/mertz1999/ai-money-tracker/internal/storage"
)

// dateLayout is the format accepted by every --date flag.
const dateLayout = time.DateOnly

var errNoRate = errors.New("no exchange rate")

// postingRetry retries ledger units that lost a lock race.
var postingRetry = common.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     time.Second,
	Multiplier:   2,
}

// app bundles what a command needs to talk to the ledger.
type app struct {
	cfg    *config.Config
	store  *storage.SQLiteStorage
	ledger *ledger.Ledger
	owner  int64
}

// openApp loads configuration, opens and migrates the database and builds the
// ledger for the --owner the command runs as.
func openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	owner, err := cmd.Flags().GetInt64("owner")
	if err != nil {
		return nil, err
	}
	if owner <= 0 {
		return nil, fmt.Errorf("%w: --owner must be positive", common.ErrInvalidInput)
	}

	if err := cfg.EnsureDatabaseDir(); err != nil {
		return nil, err
	}
	store, err := initStorage(cmd.Context(), cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		store:  store,
		ledger: ledger.New(store, ledger.WithLockTimeout(cfg.Ledger.LockTimeout)),
		owner:  owner,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context, dbPath string) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// retry runs fn with the posting retry policy.
func retry(ctx context.Context, fn func() error) error {
	return common.WithRetry(ctx, fn, postingRetry)
}

// addRateFlag registers --rate on a command that converts currencies.
func addRateFlag(cmd *cobra.Command) {
	cmd.Flags().String("rate", "", "Toman per USD (default: rate.toman_per_usd from config)")
}

// rate returns the --rate flag, falling back to the configured rate.
func (a *app) rate(cmd *cobra.Command) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString("rate")
	if raw == "" {
		if !a.cfg.HasDefaultRate() {
			return decimal.Zero, common.NewUserError("pass --rate or set rate.toman_per_usd in the config", errNoRate)
		}
		return a.cfg.Rate.TomanPerUSD, nil
	}

	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: --rate %q", common.ErrInvalidRate, raw)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: --rate must be positive", common.ErrInvalidRate)
	}
	return rate, nil
}

// source resolves a source by numeric id or by name.
func (a *app) source(ctx context.Context, ref string) (*model.Source, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: --source is required", common.ErrInvalidInput)
	}
	if id, err := parseID(ref); err == nil {
		sources, err := a.ledger.Sources(ctx, a.owner)
		if err != nil {
			return nil, err
		}
		for i := range sources {
			if sources[i].ID == id {
				return &sources[i], nil
			}
		}
	}
	return a.ledger.SourceByName(ctx, a.owner, ref)
}

// parseCurrency maps a --currency flag to is_usd.
func parseCurrency(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "usd", "$", "":
		return true, nil
	case "toman", "irt", "t":
		return false, nil
	default:
		return false, fmt.Errorf("%w: currency %q (use usd or toman)", common.ErrInvalidInput, raw)
	}
}

// parseAmount reads a positive decimal.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount %q", common.ErrInvalidAmount, raw)
	}
	return amount, nil
}

// parseDate reads a YYYY-MM-DD date; empty means zero, which the ledger
// replaces with today.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q (use YYYY-MM-DD)", common.ErrInvalidInput, raw)
	}
	return t, nil
}

// parseMonth reads YYYY-MM.
func parseMonth(raw string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: month %q (use YYYY-MM)", common.ErrInvalidInput, raw)
	}
	return t.Year(), t.Month(), nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q", common.ErrInvalidInput, raw)
	}
	return id, nil
}

// formatFileSize formats bytes as human-readable size.
func formatFileSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// formatRelativeTime formats a time as relative to now.
func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		m := int(d.Minutes())
		if m == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", m)
	case d < 24*time.Hour:
		h := int(d.Hours())
		if h == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", h)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "yesterday"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("Jan 2, 2006")
	}
}
