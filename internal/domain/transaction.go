package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical wire form for posting dates, used in the
// content hash, the staging table and the API.
const DateLayout = "2006-01-02"

// Transaction is a single normalized Nordea transaction. Free-text fields
// use "" for absent; PostingDate is nil for pending ("Reserveret")
// transactions that have not posted yet and carry no stable identity.
type Transaction struct {
	PostingDate *time.Time          `json:"posting_date"`
	Amount      decimal.Decimal     `json:"amount"`
	Sender      string              `json:"sender,omitempty"`
	Recipient   string              `json:"recipient,omitempty"`
	Name        string              `json:"name,omitempty"`
	Description string              `json:"description,omitempty"`
	Balance     decimal.NullDecimal `json:"balance,omitempty"`
	Currency    string              `json:"currency"`
	Reconciled  string              `json:"reconciled,omitempty"`
	SourceFile  string              `json:"source_file"`

	// Extra holds columns the export carried that we do not map. They are
	// kept for forward compatibility only: never hashed, never persisted.
	Extra map[string]string `json:"-"`
}

// Pending reports whether the transaction has not posted yet.
func (t *Transaction) Pending() bool {
	return t.PostingDate == nil
}

// Hash returns the deduplication identity of the transaction: the hex
// sha256 of posting date, amount, description, name and balance joined
// with "|". Dates use DateLayout, decimals two fraction digits, absent
// values the empty string.
//
// The field set and order are frozen. Changing either invalidates the
// identity of every previously staged row.
func (t *Transaction) Hash() string {
	balance := ""
	if t.Balance.Valid {
		balance = t.Balance.Decimal.StringFixed(2)
	}
	date := ""
	if t.PostingDate != nil {
		date = t.PostingDate.Format(DateLayout)
	}
	input := strings.Join([]string{
		date,
		t.Amount.StringFixed(2),
		t.Description,
		t.Name,
		balance,
	}, "|")
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// StagedTransaction is a Transaction as persisted in the staging table.
type StagedTransaction struct {
	Transaction
	Hash     string    `json:"transaction_hash"`
	LoadedAt time.Time `json:"loaded_at"`
}

// ExportFile is a raw Nordea export awaiting ingestion.
type ExportFile struct {
	Name    string
	Path    string
	Account string
}

const exportPrefix = "Transaktioner_"

// AccountForFile infers the account identifier from a Nordea export
// filename. Netbank exports are named
// Transaktioner_<account>_<export date>.csv; the date suffix is what makes
// descending filename order a newest-first order. Files outside the
// convention use their full filename as a singleton account, so they never
// share coverage with anything else.
func AccountForFile(name string) string {
	if strings.HasPrefix(name, exportPrefix) {
		rest := strings.TrimPrefix(name, exportPrefix)
		if i := strings.Index(rest, "_"); i > 0 {
			return rest[:i]
		}
	}
	return name
}
