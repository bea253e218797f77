package importer

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// Format identifies a supported statement layout.
type Format string

const (
	// FormatBankCSV is the semicolon-separated export most Indonesian
	// internet-banking portals produce.
	FormatBankCSV Format = "bank_csv"
)

// Row is one statement line: a signed amount (negative for debits) with its
// booking date and description.
type Row struct {
	Date   time.Time
	Memo   string
	Amount decimal.Decimal
}

type Parser interface {
	Parse(r io.Reader) ([]Row, error)
}
