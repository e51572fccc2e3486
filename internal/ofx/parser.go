// Package ofx reads OFX/QFX bank and credit card statements into lines that
// can be posted to a source.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/mertz1999/ai-money-tracker/internal/ledger"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	tagFixRegex   = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Line is one statement entry. Amount is a positive magnitude; IsCredit tells
// money coming in from money going out.
type Line struct {
	Date      time.Time
	Amount    decimal.Decimal
	FITID     string
	Name      string
	AccountID string
	Type      string
	IsCredit  bool
}

// ToPosting fills a posting request from the line. base supplies the owner,
// source, category, rate and the currency the amount is read in.
func (l Line) ToPosting(base ledger.PostingRequest) ledger.PostingRequest {
	req := base
	req.Date = l.Date
	req.Name = l.Name
	req.Amount = model.NewMoney(l.Amount, base.Amount.IsUSD)
	req.IsDeposit = l.IsCredit
	req.ExternalID = l.FITID
	return req
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be INFO, WARN or ERROR
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML files sometimes drop the closing bracket of a bare tag line
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file and returns its statement lines in file
// order. Zero-amount lines carry no balance effect and are dropped.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]Line, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var lines []Line
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			bankStmts++
			lines = append(lines, p.convertList(stmt.BankTranList, string(stmt.BankAcctFrom.AcctID))...)
		}
	}

	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			ccStmts++
			lines = append(lines, p.convertList(stmt.BankTranList, string(stmt.CCAcctFrom.AcctID))...)
		}
	}

	slog.InfoContext(ctx, "Parsed OFX file",
		"total_lines", len(lines),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return lines, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, accountID string) []Line {
	if list == nil {
		return nil
	}

	lines := make([]Line, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		line, err := p.convertTransaction(ofxTx, accountID)
		if err != nil {
			slog.Warn("Skipping statement line",
				"fitid", string(ofxTx.FiTID),
				"account", accountID,
				"error", err)
			continue
		}
		if line.Amount.IsZero() {
			slog.Debug("Skipping zero-amount statement line", "fitid", line.FITID)
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// convertTransaction converts an OFX transaction. OFX signs debits negative.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, accountID string) (Line, error) {
	amount, err := decimal.NewFromString(ofxTx.TrnAmt.FloatString(8))
	if err != nil {
		return Line{}, fmt.Errorf("invalid amount: %w", err)
	}

	return Line{
		FITID:     string(ofxTx.FiTID),
		Date:      ofxTx.DtPosted.UTC(),
		Name:      p.extractMerchantName(ofxTx),
		Amount:    amount.Abs(),
		IsCredit:  amount.IsPositive(),
		AccountID: accountID,
		Type:      ofxTx.TrnType.String(),
	}, nil
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// PAYEE is usually the cleaner merchant name
	if tx.Payee != nil && tx.Payee.Name != "" {
		return strings.TrimSpace(string(tx.Payee.Name))
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " date stamps
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	if name == "" {
		name = "Imported transaction"
	}
	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	generic := []string{
		"DEBIT",
		"CREDIT",
		"PURCHASE",
		"PAYMENT",
		"POS TRANSACTION",
		"CARD PURCHASE",
	}

	upperName := strings.ToUpper(strings.TrimSpace(name))
	for _, g := range generic {
		if upperName == g {
			return true
		}
	}
	return false
}

// GetAccounts extracts unique account IDs from the OFX file.
func (p *Parser) GetAccounts(_ context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var accounts []string
	add := func(id ofxgo.String) {
		if id != "" && !seen[string(id)] {
			seen[string(id)] = true
			accounts = append(accounts, string(id))
		}
	}

	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok {
			add(stmt.BankAcctFrom.AcctID)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok {
			add(stmt.CCAcctFrom.AcctID)
		}
	}

	return accounts, nil
}
