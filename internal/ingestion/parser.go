package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesperbk/kontoflow/internal/domain"
)

// Config is the immutable parser configuration for the Nordea netbank
// export format. Build one with DefaultConfig and pass it around by value;
// nothing mutates it after construction.
type Config struct {
	Delimiter       rune
	DateLayout      string
	PendingSentinel string
	DefaultCurrency string
	// Columns maps localized export headers to canonical field names.
	// Headers not in the map pass through under their own name.
	Columns map[string]string
}

// DefaultConfig returns the configuration for current Nordea DK exports.
func DefaultConfig() Config {
	return Config{
		Delimiter:       ';',
		DateLayout:      "2006/01/02",
		PendingSentinel: "Reserveret",
		DefaultCurrency: "DKK",
		Columns: map[string]string{
			"Bogføringsdato": "posting_date",
			"Beløb":          "amount",
			"Afsender":       "sender",
			"Modtager":       "recipient",
			"Navn":           "name",
			"Beskrivelse":    "description",
			"Saldo":          "balance",
			"Valuta":         "currency",
			"Afstemt":        "reconciled",
		},
	}
}

// ParseFile parses one Nordea CSV export from disk.
func ParseFile(path string, cfg Config) ([]domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()
	return Parse(f, filepath.Base(path), cfg)
}

// Parse parses a Nordea CSV export: UTF-8 with optional BOM, semicolon
// delimited, Danish headers, Danish decimal format, quoted fields.
//
// An empty or header-only file yields zero transactions and no error. A
// malformed date or decimal anywhere fails the whole file; no partial
// result is returned.
func Parse(r io.Reader, sourceFile string, cfg Config) ([]domain.Transaction, error) {
	reader := csv.NewReader(r)
	reader.Comma = cfg.Delimiter
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		log.Printf("[ingestion] warning: %s appears to be empty", sourceFile)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", sourceFile, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\uFEFF")

	// A trailing delimiter produces an empty final column. Drop it from
	// the header and from every row below.
	if n := len(header); n > 0 && header[n-1] == "" {
		header = header[:n-1]
	}

	fields := make([]string, len(header))
	for i, col := range header {
		if canonical, ok := cfg.Columns[col]; ok {
			fields[i] = canonical
		} else {
			fields[i] = col
		}
	}

	var txns []domain.Transaction
	lineNum := 1
	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", sourceFile, lineNum, err)
		}
		if blankRow(row) {
			continue
		}
		if n := len(row); n > len(fields) && row[n-1] == "" {
			row = row[:n-1]
		}
		// Some exports truncate trailing empty values.
		for len(row) < len(fields) {
			row = append(row, "")
		}

		txn, err := newTransaction(fields, row, sourceFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		txns = append(txns, txn)
	}

	return txns, nil
}

// newTransaction applies the per-field normalization rules and builds the
// record. Empty values uniformly mean absent.
func newTransaction(fields, row []string, sourceFile string, cfg Config) (domain.Transaction, error) {
	txn := domain.Transaction{
		Currency:   cfg.DefaultCurrency,
		SourceFile: sourceFile,
	}
	amountSeen := false

	for i, field := range fields {
		value := row[i]
		if value == "" {
			continue
		}
		switch field {
		case "posting_date":
			if value == cfg.PendingSentinel {
				continue
			}
			t, err := time.Parse(cfg.DateLayout, value)
			if err != nil {
				return domain.Transaction{}, &ParseError{File: sourceFile, Field: "posting_date", Value: value, Err: err}
			}
			txn.PostingDate = &t
		case "amount":
			amount, err := parseDanishDecimal(value)
			if err != nil {
				return domain.Transaction{}, &ParseError{File: sourceFile, Field: "amount", Value: value, Err: err}
			}
			txn.Amount = amount
			amountSeen = true
		case "balance":
			balance, err := parseDanishDecimal(value)
			if err != nil {
				return domain.Transaction{}, &ParseError{File: sourceFile, Field: "balance", Value: value, Err: err}
			}
			txn.Balance = decimal.NullDecimal{Decimal: balance, Valid: true}
		case "sender":
			txn.Sender = value
		case "recipient":
			txn.Recipient = value
		case "name":
			txn.Name = value
		case "description":
			txn.Description = value
		case "currency":
			txn.Currency = value
		case "reconciled":
			txn.Reconciled = value
		default:
			if txn.Extra == nil {
				txn.Extra = make(map[string]string)
			}
			txn.Extra[field] = value
		}
	}

	if !amountSeen {
		return domain.Transaction{}, &ParseError{File: sourceFile, Field: "amount", Value: "", Err: errors.New("value is required")}
	}
	return txn, nil
}

// parseDanishDecimal converts the Danish locale form ("1.234,56") to a
// decimal: the period thousands separators are stripped, then the comma
// decimal separator becomes a period.
func parseDanishDecimal(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(s, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	return decimal.NewFromString(cleaned)
}

func blankRow(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
