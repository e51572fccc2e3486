package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mertz1999/ai-money-tracker/internal/classification"
	"github.com/mertz1999/ai-money-tracker/internal/cli"
	"github.com/mertz1999/ai-money-tracker/internal/common"
	"github.com/mertz1999/ai-money-tracker/internal/ledger"
	"github.com/mertz1999/ai-money-tracker/internal/model"
	"github.com/mertz1999/ai-money-tracker/internal/ofx"
	"github.com/mertz1999/ai-money-tracker/internal/storage"
)

// importOptions controls one import-ofx run.
type importOptions struct {
	source       string
	category     string
	currency     string
	dryRun       bool
	noCheckpoint bool
}

// importResult counts what an import did.
type importResult struct {
	Files      int
	Parsed     int
	Imported   int
	Duplicates int
	Failed     int
}

func importOFXCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import-ofx [files...]",
		Short: "Import transactions from OFX/QFX files",
		Long: `Import statement lines from OFX or QFX (Quicken) files exported from your bank
into one source. Lines are matched on their FITID, so importing an overlapping
statement again only posts what is new.

Examples:
  # Import a statement into the Checking source
  tracker import-ofx --source Checking ~/Downloads/chase_jan_2024.qfx

  # Import several files, previewing first
  tracker import-ofx --source Checking --dry-run ~/Downloads/chase_*.qfx

  # A Toman account statement
  tracker import-ofx --source Wallet --currency toman --rate 50000 statement.ofx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			handler := cli.NewInterruptHandler(cmd.OutOrStdout(), "Import",
				"Lines posted so far are kept. Run the same command again to import the rest.")
			ctx = handler.HandleInterrupts(ctx)

			result, err := runImport(ctx, cmd, a, files, opts)
			if handler.WasInterrupted() {
				return fmt.Errorf("import interrupted after %d lines", result.Imported)
			}
			if err != nil {
				return err
			}

			printImportResult(cmd.OutOrStdout(), result, opts.dryRun)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "", "source to post into (name or id)")
	cmd.Flags().StringVar(&opts.category, "category", "", "category for every imported line (default: picked from each description)")
	cmd.Flags().StringVar(&opts.currency, "currency", "", "statement currency: usd or toman (default: the source's currency)")
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "d", false, "Preview import without saving")
	cmd.Flags().BoolVar(&opts.noCheckpoint, "no-checkpoint", false, "skip the automatic checkpoint taken before importing")
	addRateFlag(cmd)
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

// categorizer picks the category of each imported line: the fixed --category
// when given, otherwise the first matching classification rule, otherwise other.
type categorizer struct {
	ledger   *ledger.Ledger
	detector *classification.Detector
	fixed    string
	ids      map[string]int64
}

func newCategorizer(a *app, fixed string) (*categorizer, error) {
	c := &categorizer{ledger: a.ledger, fixed: fixed, ids: make(map[string]int64)}
	if fixed == "" {
		detector, err := classification.NewDetector(classification.DefaultRules())
		if err != nil {
			return nil, err
		}
		c.detector = detector
	}
	return c, nil
}

func (c *categorizer) categoryFor(ctx context.Context, line ofx.Line) (int64, error) {
	name := c.fixed
	if c.detector != nil {
		name = model.CategoryOther
		if match := c.detector.Classify(line.Name, line.IsCredit); match != nil {
			name = match.Category
		}
	}

	if id, ok := c.ids[name]; ok {
		return id, nil
	}
	category, err := c.ledger.ResolveCategory(ctx, name)
	if err != nil {
		return 0, err
	}
	c.ids[name] = category.ID
	return category.ID, nil
}

// expandFiles expands globs, keeping plain paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			// If no glob matches, check if it's a direct file
			if _, err := os.Stat(pattern); err == nil {
				files = append(files, pattern)
			} else {
				slog.Warn("No files found matching pattern", "pattern", pattern)
			}
			continue
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, errors.New("no files found to import")
	}
	return files, nil
}

// runImport parses every file and posts lines not seen before.
func runImport(ctx context.Context, cmd *cobra.Command, a *app, files []string, opts importOptions) (importResult, error) {
	result := importResult{Files: len(files)}

	src, err := a.source(ctx, opts.source)
	if err != nil {
		return result, err
	}
	isUSD := src.IsUSD
	if opts.currency != "" {
		if isUSD, err = parseCurrency(opts.currency); err != nil {
			return result, err
		}
	}
	rate, err := a.rate(cmd)
	if err != nil {
		return result, err
	}
	categories, err := newCategorizer(a, opts.category)
	if err != nil {
		return result, err
	}

	base := ledger.PostingRequest{
		OwnerID:  a.owner,
		SourceID: src.ID,
		Amount:   model.NewMoney(decimal.Zero, isUSD),
		Rate:     rate,
	}

	if !opts.dryRun && !opts.noCheckpoint {
		if err := autoCheckpoint(ctx, a); err != nil {
			return result, err
		}
	}

	parser := ofx.NewParser()
	seen := make(map[string]bool)

	for _, path := range files {
		lines, err := parseStatement(ctx, parser, path)
		if err != nil {
			common.LogError(err, "Failed to parse OFX file", common.Fields{"file": path})
			result.Failed++
			continue
		}
		result.Parsed += len(lines)

		for _, line := range lines {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			if line.FITID != "" {
				if seen[line.FITID] {
					result.Duplicates++
					continue
				}
				seen[line.FITID] = true

				exists, err := a.store.HasExternalID(ctx, src.ID, line.FITID)
				if err != nil {
					return result, err
				}
				if exists {
					result.Duplicates++
					continue
				}
			}

			if opts.dryRun {
				result.Imported++
				continue
			}

			req := line.ToPosting(base)
			if req.CategoryID, err = categories.categoryFor(ctx, line); err != nil {
				return result, err
			}
			if err := retry(ctx, func() error {
				_, err := a.ledger.PostTransaction(ctx, req)
				return err
			}); err != nil {
				return result, fmt.Errorf("failed to post %q from %s: %w", line.Name, filepath.Base(path), err)
			}
			result.Imported++
		}

		slog.Info("Processed file",
			"file", filepath.Base(path),
			"lines", len(lines))
	}

	return result, nil
}

func parseStatement(ctx context.Context, parser *ofx.Parser, path string) ([]ofx.Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return parser.ParseFile(ctx, f)
}

// autoCheckpoint snapshots the database before a bulk change. In-memory
// databases have nothing to snapshot.
func autoCheckpoint(ctx context.Context, a *app) error {
	cm, err := a.store.NewCheckpointManager()
	if errors.Is(err, storage.ErrInMemoryDatabase) {
		return nil
	}
	if err != nil {
		return err
	}
	info, err := cm.AutoCheckpoint(ctx, "import")
	if err != nil {
		return fmt.Errorf("failed to checkpoint before import: %w", err)
	}
	slog.Info("Created checkpoint before import", "checkpoint", info.ID)
	return nil
}

func printImportResult(w io.Writer, r importResult, dryRun bool) {
	verb := "Imported"
	if dryRun {
		verb = "Would import"
	}
	fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("%s %d of %d lines from %d files", verb, r.Imported, r.Parsed, r.Files)))
	if r.Duplicates > 0 {
		fmt.Fprintln(w, cli.FormatInfo(fmt.Sprintf("Skipped %d lines already imported", r.Duplicates)))
	}
	if r.Failed > 0 {
		fmt.Fprintln(w, cli.FormatWarning(fmt.Sprintf("%d files could not be parsed", r.Failed)))
	}
}
