package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesperbk/kontoflow/internal/domain"
)

// StagingRepo persists deduplicated transactions. The table is
// append-only: rows are inserted once, keyed by content hash, and never
// updated. Reset is the only destructive operation.
type StagingRepo struct {
	db *sql.DB
}

func NewStagingRepo(db *sql.DB) *StagingRepo {
	return &StagingRepo{db: db}
}

// BulkInsert inserts transactions in one database transaction, ignoring
// hash conflicts, and returns how many rows were actually inserted.
// Inserting the same records again is a silent no-op, which is what makes
// re-running an ingestion idempotent. Pending transactions must be
// filtered out by the caller; the posting_date column is NOT NULL.
func (r *StagingRepo) BulkInsert(txns []domain.Transaction) (int, error) {
	if len(txns) == 0 {
		return 0, nil
	}

	sqlTx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.Prepare(
		`INSERT OR IGNORE INTO raw_nordea_transactions
		(transaction_hash, posting_date, amount, sender, recipient,
		 name, description, balance, currency, reconciled, source_file, loaded_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	loadedAt := time.Now().UTC().Format(time.RFC3339)
	inserted := 0
	for i := range txns {
		txn := &txns[i]
		res, err := stmt.Exec(
			txn.Hash(), txn.PostingDate.Format(domain.DateLayout),
			txn.Amount.StringFixed(2), nullString(txn.Sender),
			nullString(txn.Recipient), nullString(txn.Name),
			nullString(txn.Description), nullDecimal(txn.Balance),
			txn.Currency, nullString(txn.Reconciled), txn.SourceFile, loadedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *StagingRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM raw_nordea_transactions").Scan(&count)
	return count, err
}

// Reset drops and recreates the staging table (the "fresh load" mode).
func (r *StagingRepo) Reset() error {
	if _, err := r.db.Exec("DROP TABLE IF EXISTS raw_nordea_transactions"); err != nil {
		return fmt.Errorf("drop staging table: %w", err)
	}
	return createTables(r.db)
}

func (r *StagingRepo) GetByHash(hash string) (*domain.StagedTransaction, error) {
	row := r.db.QueryRow(
		`SELECT transaction_hash, posting_date, amount, sender, recipient,
		 name, description, balance, currency, reconciled, source_file, loaded_at
		 FROM raw_nordea_transactions WHERE transaction_hash = ?`, hash,
	)
	return scanStaged(row)
}

// TransactionFilter narrows a List query. Zero values mean "no filter".
type TransactionFilter struct {
	From       *time.Time
	To         *time.Time
	Currency   string
	SourceFile string
	Page       int
	Limit      int
}

// List returns a page of staged transactions plus the total match count.
// Callers must not read meaning into row order beyond the posting_date
// sort requested here; the table itself is unordered.
func (r *StagingRepo) List(f TransactionFilter) ([]domain.StagedTransaction, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM raw_nordea_transactions"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	q := `SELECT transaction_hash, posting_date, amount, sender, recipient,
		 name, description, balance, currency, reconciled, source_file, loaded_at
		 FROM raw_nordea_transactions` + where +
		" ORDER BY posting_date DESC, transaction_hash LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var txns []domain.StagedTransaction
	for rows.Next() {
		txn, err := scanStaged(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *txn)
	}
	return txns, total, rows.Err()
}

// SourceFileStats summarizes what each export file contributed.
type SourceFileStats struct {
	SourceFile string `json:"source_file"`
	Rows       int    `json:"rows"`
	FirstDate  string `json:"first_date"`
	LastDate   string `json:"last_date"`
}

func (r *StagingRepo) SourceFiles() ([]SourceFileStats, error) {
	rows, err := r.db.Query(`
		SELECT source_file, COUNT(*), MIN(posting_date), MAX(posting_date)
		FROM raw_nordea_transactions GROUP BY source_file ORDER BY source_file DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SourceFileStats
	for rows.Next() {
		var s SourceFileStats
		if err := rows.Scan(&s.SourceFile, &s.Rows, &s.FirstDate, &s.LastDate); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// MonthlyVolume aggregates credits and debits per calendar month.
type MonthlyVolume struct {
	Month   string  `json:"month"`
	Rows    int     `json:"rows"`
	Credits float64 `json:"credits"`
	Debits  float64 `json:"debits"`
}

func (r *StagingRepo) MonthlyVolumes() ([]MonthlyVolume, error) {
	rows, err := r.db.Query(`
		SELECT substr(posting_date, 1, 7) AS month,
			COUNT(*),
			COALESCE(SUM(CASE WHEN CAST(amount AS REAL) > 0 THEN CAST(amount AS REAL) ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN CAST(amount AS REAL) < 0 THEN CAST(amount AS REAL) ELSE 0 END), 0)
		FROM raw_nordea_transactions GROUP BY month ORDER BY month
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MonthlyVolume
	for rows.Next() {
		var mv MonthlyVolume
		if err := rows.Scan(&mv.Month, &mv.Rows, &mv.Credits, &mv.Debits); err != nil {
			return nil, err
		}
		result = append(result, mv)
	}
	return result, rows.Err()
}

// Stats holds whole-table aggregates for the summary endpoint.
type Stats struct {
	Rows      int     `json:"rows"`
	Files     int     `json:"files"`
	FirstDate string  `json:"first_date"`
	LastDate  string  `json:"last_date"`
	NetAmount float64 `json:"net_amount"`
}

func (r *StagingRepo) GetStats() (*Stats, error) {
	s := &Stats{}
	var first, last sql.NullString
	err := r.db.QueryRow(`
		SELECT COUNT(*),
			COUNT(DISTINCT source_file),
			MIN(posting_date),
			MAX(posting_date),
			COALESCE(SUM(CAST(amount AS REAL)), 0)
		FROM raw_nordea_transactions
	`).Scan(&s.Rows, &s.Files, &first, &last, &s.NetAmount)
	if err != nil {
		return nil, err
	}
	s.FirstDate = first.String
	s.LastDate = last.String
	return s, nil
}

// --- helpers ---

func buildWhere(f TransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.From != nil {
		clauses = append(clauses, "posting_date >= ?")
		args = append(args, f.From.Format(domain.DateLayout))
	}
	if f.To != nil {
		clauses = append(clauses, "posting_date <= ?")
		args = append(args, f.To.Format(domain.DateLayout))
	}
	if f.Currency != "" {
		clauses = append(clauses, "currency = ?")
		args = append(args, f.Currency)
	}
	if f.SourceFile != "" {
		clauses = append(clauses, "source_file = ?")
		args = append(args, f.SourceFile)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDecimal(d decimal.NullDecimal) any {
	if !d.Valid {
		return nil
	}
	return d.Decimal.StringFixed(2)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanStaged(row scannable) (*domain.StagedTransaction, error) {
	var txn domain.StagedTransaction
	var postingDate, amount, loadedAt string
	var sender, recipient, name, description, balance, reconciled sql.NullString

	err := row.Scan(
		&txn.Hash, &postingDate, &amount, &sender, &recipient,
		&name, &description, &balance, &txn.Currency, &reconciled,
		&txn.SourceFile, &loadedAt,
	)
	if err != nil {
		return nil, err
	}

	date, err := time.Parse(domain.DateLayout, postingDate)
	if err != nil {
		return nil, fmt.Errorf("posting_date %q: %w", postingDate, err)
	}
	txn.PostingDate = &date

	txn.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", amount, err)
	}
	if balance.Valid {
		dec, err := decimal.NewFromString(balance.String)
		if err != nil {
			return nil, fmt.Errorf("balance %q: %w", balance.String, err)
		}
		txn.Balance = decimal.NullDecimal{Decimal: dec, Valid: true}
	}

	txn.Sender = sender.String
	txn.Recipient = recipient.String
	txn.Name = name.String
	txn.Description = description.String
	txn.Reconciled = reconciled.String
	txn.LoadedAt, _ = time.Parse(time.RFC3339, loadedAt)

	return &txn, nil
}
