// Package handler exposes the search engine over HTTP.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/docugrid/searchcore/internal/element"
	"github.com/docugrid/searchcore/internal/searcher"
	"github.com/docugrid/searchcore/internal/searcher/executor"
	"github.com/docugrid/searchcore/internal/searcher/ranker"
	apperrors "github.com/docugrid/searchcore/pkg/errors"
	"github.com/docugrid/searchcore/pkg/logger"
)

// Handler serves the search API.
type Handler struct {
	engine *searcher.Engine
	logger *slog.Logger
}

// New creates a Handler around the engine.
func New(engine *searcher.Engine) *Handler {
	return &Handler{
		engine: engine,
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Search handles GET /api/v1/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	q := r.URL.Query()
	rawQuery := q.Get("q")

	opts, errMsg := parseOptions(q)
	if errMsg != "" {
		h.writeError(w, http.StatusBadRequest, errMsg)
		return
	}

	rs, err := h.engine.Search(ctx, rawQuery, opts)
	if err != nil {
		log.Error("search failed", "query", rawQuery, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, "search unavailable")
		return
	}

	log.Info("search completed",
		"query", rawQuery,
		"total", rs.TotalCount,
		"returned", len(rs.Results),
		"invalid", len(rs.Invalid) > 0,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, rs)
}

// Suggest handles GET /api/v1/suggest.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'prefix' is required")
		return
	}
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	terms, err := h.engine.Suggest(r.Context(), prefix, limit)
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "suggestions unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"prefix":      prefix,
		"suggestions": terms,
	})
}

// UpsertElement handles PUT /api/v1/elements.
func (h *Handler) UpsertElement(w http.ResponseWriter, r *http.Request) {
	var el element.Element
	if err := json.NewDecoder(r.Body).Decode(&el); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid element payload")
		return
	}
	if err := h.engine.AddElement(r.Context(), el); err != nil {
		logger.FromContext(r.Context()).Error("element upsert failed", "id", el.ID, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "indexed", "id": el.ID})
}

// DeleteElement handles DELETE /api/v1/elements/{id}.
func (h *Handler) DeleteElement(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "element id is required")
		return
	}
	removed, err := h.engine.RemoveElement(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "index unavailable")
		return
	}
	if !removed {
		h.writeError(w, http.StatusNotFound, "element not found")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "removed", "id": id})
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Statistics())
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.engine.Statistics()
	total := stats.CacheHits + stats.CacheMisses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.CacheHits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     stats.CacheHits,
		"misses":   stats.CacheMisses,
		"total":    total,
		"hit_rate": strconv.FormatFloat(hitRate, 'f', 1, 64) + "%",
	})
}

// CacheClear handles POST /api/v1/cache/clear.
func (h *Handler) CacheClear(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearCache(r.Context()); err != nil {
		h.logger.Error("cache clear failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache clear failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// parseOptions builds executor options from URL query parameters. It returns
// a non-empty message for parameters that fail to parse; query-language
// problems are left to the engine, which reports them in the result set.
func parseOptions(q map[string][]string) (executor.Options, string) {
	get := func(key string) string {
		if vs := q[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	var opts executor.Options
	if v := get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, "limit must be a positive integer"
		}
		opts.Limit = n
	}
	if v := get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, "offset must be a non-negative integer"
		}
		opts.Offset = n
	}
	if v := get("ranking"); v != "" {
		opts.Ranking = ranker.Strategy(v)
	}
	if v := get("highlight"); v == "true" || v == "1" {
		opts.Highlight = true
	}
	if v := get("natural"); v == "true" || v == "1" {
		opts.Natural = true
	}
	if v := get("types"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				opts.ElementTypes = append(opts.ElementTypes, element.Type(strings.ToLower(t)))
			}
		}
	}
	if minStr, maxStr := get("confidence_min"), get("confidence_max"); minStr != "" || maxStr != "" {
		fr := executor.FloatRange{Min: 0, Max: 1}
		if minStr != "" {
			f, err := strconv.ParseFloat(minStr, 64)
			if err != nil {
				return opts, "confidence_min must be a number"
			}
			fr.Min = f
		}
		if maxStr != "" {
			f, err := strconv.ParseFloat(maxStr, 64)
			if err != nil {
				return opts, "confidence_max must be a number"
			}
			fr.Max = f
		}
		opts.Confidence = &fr
	}
	if minStr, maxStr := get("page_min"), get("page_max"); minStr != "" && maxStr != "" {
		lo, err1 := strconv.Atoi(minStr)
		hi, err2 := strconv.Atoi(maxStr)
		if err1 != nil || err2 != nil || lo < 1 || hi < lo {
			return opts, "page_min and page_max must form a valid 1-based range"
		}
		opts.Pages = &executor.IntRange{Min: lo, Max: hi}
	}
	if v := get("no_cache"); v == "true" || v == "1" {
		useCache := false
		opts.UseCache = &useCache
	}
	return opts, ""
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
