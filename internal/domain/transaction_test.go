package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTransaction() Transaction {
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	return Transaction{
		PostingDate: &date,
		Amount:      decimal.RequireFromString("-123.45"),
		Name:        "Netto",
		Description: "Dankort køb",
		Balance: decimal.NullDecimal{
			Decimal: decimal.RequireFromString("10250.10"),
			Valid:   true,
		},
		Currency:   "DKK",
		SourceFile: "Transaktioner_111_2024-01-31.csv",
	}
}

func TestHash_Stable(t *testing.T) {
	a := sampleTransaction()
	b := sampleTransaction()
	require.Equal(t, a.Hash(), b.Hash())
	assert.Len(t, a.Hash(), 64)
}

func TestHash_SensitiveToHashedFields(t *testing.T) {
	base := sampleTransaction()

	changed := sampleTransaction()
	changed.Amount = decimal.RequireFromString("-123.46")
	assert.NotEqual(t, base.Hash(), changed.Hash())

	changed = sampleTransaction()
	other := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	changed.PostingDate = &other
	assert.NotEqual(t, base.Hash(), changed.Hash())

	changed = sampleTransaction()
	changed.Description = "Dankort køb 2"
	assert.NotEqual(t, base.Hash(), changed.Hash())

	changed = sampleTransaction()
	changed.Name = "Føtex"
	assert.NotEqual(t, base.Hash(), changed.Hash())

	changed = sampleTransaction()
	changed.Balance = decimal.NullDecimal{}
	assert.NotEqual(t, base.Hash(), changed.Hash())
}

func TestHash_IgnoresNonIdentityFields(t *testing.T) {
	base := sampleTransaction()

	changed := sampleTransaction()
	changed.Sender = "nogen"
	changed.Recipient = "nogen anden"
	changed.Reconciled = "Ja"
	changed.SourceFile = "other.csv"
	changed.Currency = "SEK"
	assert.Equal(t, base.Hash(), changed.Hash())
}

func TestAccountForFile(t *testing.T) {
	assert.Equal(t, "111222333", AccountForFile("Transaktioner_111222333_2024-01-31.csv"))
	assert.Equal(t, "111222333", AccountForFile("Transaktioner_111222333_2024-01-31 (1).csv"))

	// Outside the convention the filename is its own singleton account.
	assert.Equal(t, "export.csv", AccountForFile("export.csv"))
	assert.Equal(t, "Transaktioner_.csv", AccountForFile("Transaktioner_.csv"))
}

func TestPending(t *testing.T) {
	txn := sampleTransaction()
	assert.False(t, txn.Pending())
	txn.PostingDate = nil
	assert.True(t, txn.Pending())
}
