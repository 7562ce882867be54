package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"bookshelf-service/models"

	"github.com/jmoiron/sqlx"
	"github.com/umakantv/go-utils/cache"
	"github.com/umakantv/go-utils/errs"
	"go.uber.org/zap"
)

// MetricsHandler computes per-user reading statistics over the book collection
type MetricsHandler struct {
	db    *sqlx.DB
	cache cache.Cache
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(db *sqlx.DB, cache cache.Cache) *MetricsHandler {
	return &MetricsHandler{
		db:    db,
		cache: cache,
	}
}

// metricsCacheKey is shared with BookHandler, which deletes the key on every
// book mutation so cached aggregates never go stale.
func metricsCacheKey(userID string) string {
	return "metrics:user:" + userID
}

// GetBookMetrics handles GET /books/metrics - aggregate statistics over the
// session user's books, computed at request time. The average rating only
// covers rated books in read status and is null when no such books exist;
// an empty collection yields zero totals and an empty genre distribution.
func (h *MetricsHandler) GetBookMetrics(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(ctx, h.db, w, r)
	if !ok {
		return
	}

	// Try cache first
	cacheKey := metricsCacheKey(user.ID)
	if cached, err := h.cache.Get(cacheKey); err == nil {
		logRequest(ctx, "debug", "Serving metrics from cache", zap.String("user_id", user.ID))
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached.([]byte))
		return
	}

	logRequest(ctx, "info", "Computing book metrics", zap.String("user_id", user.ID))

	var metrics models.BookMetrics

	// One row scan, three predicate-gated tallies
	err := h.db.QueryRow(
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		 FROM books WHERE user_id = ?`,
		models.StatusRead, models.StatusReading, models.StatusWantToRead, user.ID,
	).Scan(&metrics.TotalBooks, &metrics.TotalRead, &metrics.TotalReading, &metrics.TotalWantToRead)
	if err != nil {
		logRequest(ctx, "error", "Failed to compute status totals", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Database error"))
		return
	}

	metrics.GenreDistribution = []models.GenreCount{}
	err = h.db.Select(
		&metrics.GenreDistribution,
		"SELECT genre, COUNT(*) AS count FROM books WHERE user_id = ? GROUP BY genre ORDER BY count DESC, genre",
		user.ID,
	)
	if err != nil {
		logRequest(ctx, "error", "Failed to compute genre distribution", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Database error"))
		return
	}

	var avgRating sql.NullFloat64
	err = h.db.QueryRow(
		"SELECT AVG(rating) FROM books WHERE user_id = ? AND status = ? AND rating IS NOT NULL",
		user.ID, models.StatusRead,
	).Scan(&avgRating)
	if err != nil {
		logRequest(ctx, "error", "Failed to compute average rating", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Database error"))
		return
	}
	if avgRating.Valid {
		rounded := math.Round(avgRating.Float64*100) / 100
		metrics.AverageRating = &rounded
	}

	response, err := json.Marshal(metrics)
	if err != nil {
		logRequest(ctx, "error", "Failed to encode metrics", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Failed to encode response"))
		return
	}
	h.cache.Set(cacheKey, response, 5*time.Minute)

	logRequest(ctx, "info", "Metrics computed successfully", zap.Int("total_books", metrics.TotalBooks))

	w.Header().Set("Content-Type", "application/json")
	w.Write(response)
}
