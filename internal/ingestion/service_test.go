package ingestion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jesperbk/kontoflow/internal/repository"
)

func newTestService(t *testing.T) (*Service, *repository.StagingRepo) {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewStagingRepo(db)
	return NewService(repo, DefaultConfig()), repo
}

func writeExport(t *testing.T, dir, name string, rows ...string) {
	t.Helper()
	data := nordeaHeader + "\n"
	for _, row := range rows {
		data += row + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
}

func TestLoadDir_Idempotent(t *testing.T) {
	svc, repo := newTestService(t)
	dir := t.TempDir()
	writeExport(t, dir, "Transaktioner_111_2024-01-31.csv",
		"2024/01/05;-123,45;;;Netto;Dankort køb;10.250,10;DKK;",
		"2024/01/06;25.000,00;;;Løn;Løn januar;35.250,10;DKK;",
	)

	first, err := svc.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, first.Skipped)

	second, err := svc.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Skipped)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLoadDir_PendingNeverStored(t *testing.T) {
	svc, repo := newTestService(t)
	dir := t.TempDir()
	writeExport(t, dir, "Transaktioner_111_2024-01-31.csv",
		"Reserveret;-50,00;;;Café;Reserveret beløb;;;",
		"2024/01/05;-10,00;;;;posted;;;",
	)

	result, err := svc.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Skipped)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoadDir_NewerFileWinsForSameDate(t *testing.T) {
	svc, repo := newTestService(t)
	dir := t.TempDir()

	// File B sorts after file A, so it is processed first (newest first).
	writeExport(t, dir, "Transaktioner_111_2024-01-31.csv",
		"2024/01/05;-10,00;;;;from newer export;;;",
	)
	writeExport(t, dir, "Transaktioner_111_2024-01-15.csv",
		"2024/01/05;-99,00;;;;stale version of the 5th;;;",
		"2024/01/04;-20,00;;;;only in older export;;;",
	)

	result, err := svc.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 1, result.Skipped)

	txns, total, err := repo.List(repository.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	var descs []string
	for _, txn := range txns {
		descs = append(descs, txn.Description)
	}
	assert.Contains(t, descs, "from newer export")
	assert.Contains(t, descs, "only in older export")
	assert.NotContains(t, descs, "stale version of the 5th")
}

func TestLoadDir_CoverageIsPerAccount(t *testing.T) {
	svc, repo := newTestService(t)
	dir := t.TempDir()

	writeExport(t, dir, "Transaktioner_111_2024-01-31.csv",
		"2024/01/05;-10,00;;;;konto 111;;;",
	)
	writeExport(t, dir, "Transaktioner_222_2024-01-15.csv",
		"2024/01/05;-20,00;;;;konto 222;;;",
	)

	result, err := svc.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)
	assert.Equal(t, 0, result.Skipped)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLoadDir_UnrecognizedFilenameIsSingletonAccount(t *testing.T) {
	svc, repo := newTestService(t)
	dir := t.TempDir()

	writeExport(t, dir, "Transaktioner_111_2024-01-31.csv",
		"2024/01/05;-10,00;;;;named export;;;",
	)
	writeExport(t, dir, "backup.csv",
		"2024/01/05;-20,00;;;;oddly named export;;;",
	)

	result, err := svc.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Inserted)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLoadDir_ParseFailureAbortsRunKeepsEarlierFiles(t *testing.T) {
	svc, repo := newTestService(t)
	dir := t.TempDir()

	// The good file sorts after the bad one, so it commits first.
	writeExport(t, dir, "Transaktioner_111_2024-02-01.csv",
		"2024/01/20;-10,00;;;;good;;;",
	)
	writeExport(t, dir, "Transaktioner_111_2024-01-01.csv",
		"not-a-date;-20,00;;;;bad;;;",
	)

	_, err := svc.LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Transaktioner_111_2024-01-01.csv")
	assert.Contains(t, err.Error(), "not-a-date")

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLoadDir_EmptyFileIsNotAnError(t *testing.T) {
	svc, repo := newTestService(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Transaktioner_111_2024-01-31.csv"), nil, 0o644))

	result, err := svc.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Inserted)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestLoadDir_IgnoresNonCSVFiles(t *testing.T) {
	svc, _ := newTestService(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644))

	result, err := svc.LoadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, result.Files)
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.LoadDir(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}
