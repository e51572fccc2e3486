package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mertz1999/ai-money-tracker/internal/ledger"
	"github.com/mertz1999/ai-money-tracker/internal/model"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240128120000[0:GMT]
<TRNAMT>2150.75
<FITID>2024012801
<NAME>ACME PAYROLL
</STMTTRN>
<STMTTRN>
<TRNTYPE>OTHER
<DTPOSTED>20240129120000[0:GMT]
<TRNAMT>0.00
<FITID>2024012901
<NAME>BALANCE INQUIRY
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{
			name:          "valid bank statement",
			ofxData:       sampleBankOFX,
			expectedCount: 4,
		},
		{
			name:          "valid credit card statement",
			ofxData:       sampleCreditCardOFX,
			expectedCount: 2,
		},
		{
			name:          "leading blank lines",
			ofxData:       "\n\n  " + sampleCreditCardOFX,
			expectedCount: 2,
		},
		{
			name:          "invalid OFX data",
			ofxData:       "not valid OFX",
			expectedError: true,
		},
		{
			name:          "empty OFX",
			ofxData:       "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser()
			reader := strings.NewReader(tt.ofxData)

			lines, err := parser.ParseFile(context.Background(), reader)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Len(t, lines, tt.expectedCount)
			}
		})
	}
}

func TestParseBankLines(t *testing.T) {
	parser := NewParser()

	lines, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, lines, 4, "zero-amount line is dropped")

	l1 := lines[0]
	assert.Equal(t, "2024011501", l1.FITID)
	assert.Equal(t, "STARBUCKS STORE #1234", l1.Name)
	assert.Equal(t, "25.5", l1.Amount.String())
	assert.False(t, l1.IsCredit)
	assert.Equal(t, "1234567890", l1.AccountID)
	assert.Equal(t, "DEBIT", l1.Type)
	assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), l1.Date)

	assert.Equal(t, "125", lines[1].Amount.String())
	assert.Equal(t, "CHECK #1234", lines[2].Name)
	assert.Equal(t, "500", lines[2].Amount.String())

	payroll := lines[3]
	assert.Equal(t, "2024012801", payroll.FITID)
	assert.True(t, payroll.IsCredit)
	assert.Equal(t, "2150.75", payroll.Amount.String())
}

func TestParseCreditCardLines(t *testing.T) {
	parser := NewParser()

	lines, err := parser.ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, "CC2024011001", lines[0].FITID)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", lines[0].Name)
	assert.Equal(t, "45.99", lines[0].Amount.String())
	assert.Equal(t, "4111111111111111", lines[0].AccountID)

	assert.Equal(t, "CC2024011501", lines[1].FITID)
	assert.Equal(t, "15", lines[1].Amount.String())
}

func TestLineToPosting(t *testing.T) {
	base := ledger.PostingRequest{
		OwnerID:    7,
		SourceID:   3,
		CategoryID: 2,
		Rate:       decimal.NewFromInt(50000),
		Amount:     model.NewMoney(decimal.Zero, false),
	}
	line := Line{
		Date:     time.Date(2024, 1, 28, 12, 0, 0, 0, time.UTC),
		Amount:   decimal.RequireFromString("2150.75"),
		FITID:    "2024012801",
		Name:     "ACME PAYROLL",
		IsCredit: true,
	}

	req := line.ToPosting(base)
	assert.Equal(t, int64(7), req.OwnerID)
	assert.Equal(t, int64(3), req.SourceID)
	assert.Equal(t, int64(2), req.CategoryID)
	assert.Equal(t, "2150.75", req.Amount.Amount.String())
	assert.False(t, req.Amount.IsUSD, "currency comes from the base request")
	assert.True(t, req.IsDeposit)
	assert.Equal(t, "2024012801", req.ExternalID)
	assert.Equal(t, "ACME PAYROLL", req.Name)
	assert.Equal(t, line.Date, req.Date)
	assert.True(t, base.Amount.Amount.IsZero(), "base is not modified")
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		memo     string
		expected string
	}{
		{
			name:     "remove POS prefix",
			input:    "POS PURCHASE STARBUCKS",
			expected: "STARBUCKS",
		},
		{
			name:     "remove DEBIT CARD prefix",
			input:    "DEBIT CARD PURCHASE WHOLE FOODS",
			expected: "WHOLE FOODS",
		},
		{
			name:     "keep clean name",
			input:    "NETFLIX.COM",
			expected: "NETFLIX.COM",
		},
		{
			name:     "trim whitespace",
			input:    "  AMAZON.COM  ",
			expected: "AMAZON.COM",
		},
		{
			name:     "generic name uses memo",
			input:    "PAYMENT",
			memo:     "CITY WATER DEPT",
			expected: "CITY WATER DEPT",
		},
		{
			name:     "strip date stamp",
			input:    "01/15 CORNER BAKERY",
			expected: "CORNER BAKERY",
		},
		{
			name:     "empty name",
			input:    "   ",
			expected: "Imported transaction",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{
				Name: ofxgo.String(tt.input),
				Memo: ofxgo.String(tt.memo),
			}
			assert.Equal(t, tt.expected, parser.extractMerchantName(tx))
		})
	}
}

func TestGetAccounts(t *testing.T) {
	parser := NewParser()

	accounts, err := parser.GetAccounts(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	assert.Equal(t, []string{"1234567890"}, accounts)

	accounts, err = parser.GetAccounts(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	assert.Equal(t, []string{"4111111111111111"}, accounts)
}

func TestPreprocessOFX(t *testing.T) {
	parser := NewParser()

	got := parser.preprocessOFX("\n  <STATUS><SEVERITY>Info</SEVERITY></STATUS>\n<BANKTRANLIST\n")
	assert.Equal(t, "<STATUS><SEVERITY>INFO</SEVERITY></STATUS>\n<BANKTRANLIST>\n", got)
}
