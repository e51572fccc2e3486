package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ofxHeader = `OFXHEADER:100
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
`

const ofxFooter = `</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const januaryLines = `<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240128120000[0:GMT]
<TRNAMT>100.00
<FITID>2024012801
<NAME>ACME PAYROLL
</STMTTRN>
`

// Overlaps January by one line.
const overlapLines = `<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240128120000[0:GMT]
<TRNAMT>100.00
<FITID>2024012801
<NAME>ACME PAYROLL
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240130120000[0:GMT]
<TRNAMT>-10.00
<FITID>2024013001
<NAME>Corner Deli
</STMTTRN>
`

func writeStatement(t *testing.T, dir, name, lines string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(ofxHeader+lines+ofxFooter), 0o600))
	return path
}

func TestImportOFX(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	jan := writeStatement(t, dir, "jan.qfx", januaryLines)
	writeStatement(t, dir, "overlap.qfx", overlapLines)

	h.mustRun("sources", "add", "Checking", "--bank", "--balance", "1000")

	out := h.mustRun("import-ofx", "--source", "Checking", "--rate", "50000", "--dry-run", jan)
	assert.Contains(t, out, "Would import 2 of 2 lines from 1 files")
	assert.Contains(t, h.mustRun("sources", "list"), "$1,000.00")

	out = h.mustRun("import-ofx", "--source", "Checking", "--rate", "50000", jan)
	assert.Contains(t, out, "Imported 2 of 2 lines from 1 files")
	assert.Contains(t, h.mustRun("sources", "list"), "$1,074.50")

	// Re-importing posts only lines whose FITID is new.
	out = h.mustRun("import-ofx", "--source", "Checking", "--rate", "50000", filepath.Join(dir, "*.qfx"))
	assert.Contains(t, out, "Imported 1 of 4 lines from 2 files")
	assert.Contains(t, out, "Skipped 3 lines already imported")
	assert.Contains(t, h.mustRun("sources", "list"), "$1,064.50")

	out = h.mustRun("tx", "list")
	assert.Contains(t, out, "STARBUCKS STORE #1234")
	assert.Contains(t, out, "Corner Deli")
	// Payroll is picked up as income; the rest falls back to other.
	assert.Contains(t, out, "income")
	assert.Contains(t, out, "other")

	// Each real import took a checkpoint first.
	assert.Contains(t, h.mustRun("checkpoint", "list"), "auto")

}

func TestImportOFX_FixedCategory(t *testing.T) {
	h := newHarness(t)
	jan := writeStatement(t, t.TempDir(), "jan.qfx", januaryLines)

	h.mustRun("sources", "add", "Checking", "--balance", "1000")
	h.mustRun("categories", "add", "groceries")
	h.mustRun("import-ofx", "--source", "Checking", "--rate", "50000", "--category", "groceries", "--no-checkpoint", jan)

	out := h.mustRun("tx", "list")
	assert.Contains(t, out, "groceries")
	assert.NotContains(t, out, "income")
	assert.Contains(t, h.mustRun("checkpoint", "list"), "No checkpoints found")
}

func TestImportOFX_NoFiles(t *testing.T) {
	h := newHarness(t)
	h.mustRun("sources", "add", "Checking")

	_, err := h.run("import-ofx", "--source", "Checking", "--rate", "50000",
		filepath.Join(t.TempDir(), "missing-*.qfx"))
	require.EqualError(t, err, "no files found to import")
}

func TestImportOFX_UnparseableFileIsReported(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.ofx")
	require.NoError(t, os.WriteFile(bad, []byte("not an ofx file"), 0o600))

	h.mustRun("sources", "add", "Checking", "--balance", "10")

	out := h.mustRun("import-ofx", "--source", "Checking", "--rate", "50000", "--no-checkpoint", bad)
	assert.Contains(t, out, "Imported 0 of 0 lines from 1 files")
	assert.Contains(t, out, "1 files could not be parsed")
}
