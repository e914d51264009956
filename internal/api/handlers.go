package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jesperbk/kontoflow/internal/domain"
	"github.com/jesperbk/kontoflow/internal/repository"
)

// Handlers groups the HTTP handler methods and their dependencies.
type Handlers struct {
	repo *repository.StagingRepo
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// --- handlers ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.repo.Count(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.TransactionFilter{
		From:       parseDate(q.Get("from")),
		To:         parseDate(q.Get("to")),
		Currency:   q.Get("currency"),
		SourceFile: q.Get("source_file"),
		Page:       parseIntDefault(q.Get("page"), 1),
		Limit:      parseIntDefault(q.Get("limit"), 50),
	}

	txns, total, err := h.repo.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
	})
}

func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	txn, err := h.repo.GetByHash(hash)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *Handlers) GetSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.GetStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats.NetAmount = round2(stats.NetAmount)
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handlers) GetMonthlySummary(w http.ResponseWriter, r *http.Request) {
	volumes, err := h.repo.MonthlyVolumes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for i := range volumes {
		volumes[i].Credits = round2(volumes[i].Credits)
		volumes[i].Debits = round2(volumes[i].Debits)
	}
	writeJSON(w, http.StatusOK, map[string]any{"months": volumes})
}

func (h *Handlers) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.repo.SourceFiles()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}
