package bankcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/masjidhub/masjidkas/internal/importer"
)

// Recognized header names. Exports differ between banks; the Indonesian and
// English variants below cover the portals seen so far.
var (
	dateHeaders   = []string{"Tanggal", "Tanggal Transaksi", "Date"}
	memoHeaders   = []string{"Keterangan", "Uraian", "Description"}
	amountHeaders = []string{"Jumlah", "Nominal", "Amount"}
)

var dateLayouts = []string{"02/01/2006", "02-01-2006", "2006-01-02"}

type Parser struct{}

func New() *Parser {
	return &Parser{}
}

// Parse reads a semicolon-separated bank statement. The header row is found
// by landmark rather than position because exports routinely carry preamble
// rows (account number, period) above it; rows that do not parse as data
// (footers, totals) are skipped.
func (p *Parser) Parse(r io.Reader) ([]importer.Row, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	idxDate, idxMemo, idxAmount := -1, -1, -1
	headerFound := false

	var rows []importer.Row

	for _, record := range records {
		if !headerFound {
			matches := 0

			for i, col := range record {
				col = strings.TrimSpace(col)
				switch {
				case matchesAny(col, dateHeaders):
					idxDate = i
					matches++
				case matchesAny(col, memoHeaders):
					idxMemo = i
					matches++
				case matchesAny(col, amountHeaders):
					idxAmount = i
					matches++
				}
			}

			if matches >= 2 && idxDate != -1 && idxAmount != -1 {
				headerFound = true
			}

			continue
		}

		if len(record) <= idxDate || len(record) <= idxAmount {
			continue
		}

		date, ok := parseDate(strings.TrimSpace(record[idxDate]))
		if !ok {
			continue
		}

		amount, err := parseAmount(strings.TrimSpace(record[idxAmount]))
		if err != nil {
			continue
		}

		memo := ""
		if idxMemo != -1 && len(record) > idxMemo {
			memo = strings.TrimSpace(record[idxMemo])
		}

		rows = append(rows, importer.Row{
			Date:   date,
			Memo:   memo,
			Amount: amount,
		})
	}

	if !headerFound {
		return nil, fmt.Errorf("no statement header found")
	}

	return rows, nil
}

func matchesAny(col string, candidates []string) bool {
	for _, c := range candidates {
		if strings.EqualFold(col, c) {
			return true
		}
	}

	return false
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// parseAmount handles the Indonesian convention: dots as thousand
// separators, comma as the decimal separator ("1.234.567,89").
func parseAmount(s string) (decimal.Decimal, error) {
	clean := strings.ReplaceAll(s, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")

	return decimal.NewFromString(clean)
}
