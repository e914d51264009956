package ingestion

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jesperbk/kontoflow/internal/domain"
	"github.com/jesperbk/kontoflow/internal/repository"
)

// Service merges a directory of Nordea exports into the staging table.
type Service struct {
	repo *repository.StagingRepo
	cfg  Config
}

// NewService creates an ingestion service.
func NewService(repo *repository.StagingRepo, cfg Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// FileResult reports the outcome for a single export file.
type FileResult struct {
	File     string `json:"file"`
	Account  string `json:"account"`
	Parsed   int    `json:"parsed"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

// LoadResult reports the outcome of one ingestion run. Skipped counts
// pending transactions, precedence skips and hash duplicates together.
type LoadResult struct {
	Files    []FileResult `json:"files"`
	Inserted int          `json:"inserted"`
	Skipped  int          `json:"skipped"`
}

// LoadDir ingests every CSV export in dir, newest file first.
//
// Exports for the same account often cover overlapping date ranges; the
// filename embeds the export date, so descending filename order is
// newest-first. A per-account set of already-covered posting dates makes
// newer files win: once a date has been loaded from a newer file, the
// same date in an older file is skipped. Pending transactions (no posting
// date) are never persisted. Surviving records are batch-inserted keyed
// by content hash, so re-running a load is idempotent.
//
// Any parse or insert failure aborts the run. Files committed earlier in
// the run stay committed; each file's batch is transactional on its own.
func (s *Service) LoadDir(dir string) (*LoadResult, error) {
	files, err := scanExports(dir)
	if err != nil {
		return nil, err
	}
	log.Printf("[ingestion] found %d export(s) in %s", len(files), dir)

	coverage := make(map[string]map[string]bool)
	result := &LoadResult{}

	for _, f := range files {
		txns, err := ParseFile(f.Path, s.cfg)
		if err != nil {
			return nil, err
		}

		covered := coverage[f.Account]
		newDates := make(map[string]bool)
		var stage []domain.Transaction
		skipped := 0

		for i := range txns {
			txn := &txns[i]
			if txn.Pending() {
				skipped++
				continue
			}
			date := txn.PostingDate.Format(domain.DateLayout)
			if covered[date] {
				skipped++
				continue
			}
			stage = append(stage, *txn)
			newDates[date] = true
		}

		inserted, err := s.repo.BulkInsert(stage)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		skipped += len(stage) - inserted

		// Only after the batch committed do these dates shadow older files.
		if covered == nil {
			covered = make(map[string]bool)
			coverage[f.Account] = covered
		}
		for date := range newDates {
			covered[date] = true
		}

		log.Printf("[ingestion] %s: parsed %d, inserted %d, skipped %d",
			f.Name, len(txns), inserted, skipped)

		result.Files = append(result.Files, FileResult{
			File:     f.Name,
			Account:  f.Account,
			Parsed:   len(txns),
			Inserted: inserted,
			Skipped:  skipped,
		})
		result.Inserted += inserted
		result.Skipped += skipped
	}

	return result, nil
}

// scanExports lists the CSV files in dir in descending filename order.
func scanExports(dir string) ([]domain.ExportFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("export directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("export directory: %s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading export directory: %w", err)
	}

	var files []domain.ExportFile
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, domain.ExportFile{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			Account: domain.AccountForFile(e.Name()),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name > files[j].Name })
	return files, nil
}
