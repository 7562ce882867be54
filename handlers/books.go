package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookshelf-service/models"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/umakantv/go-utils/cache"
	"github.com/umakantv/go-utils/errs"
	"go.uber.org/zap"
)

// BookHandler handles book collection operations, always scoped to the
// user resolved from the caller's session.
type BookHandler struct {
	db    *sqlx.DB
	cache cache.Cache
}

// NewBookHandler creates a new book handler
func NewBookHandler(db *sqlx.DB, cache cache.Cache) *BookHandler {
	return &BookHandler{
		db:    db,
		cache: cache,
	}
}

// sortableColumns maps client orderBy values to real columns. Anything
// outside this map is rejected; client input never reaches the ORDER BY
// clause verbatim.
var sortableColumns = map[string]string{
	"title":            "title",
	"author":           "author",
	"genre":            "genre",
	"publicationYear":  "publication_year",
	"publication_year": "publication_year",
	"rating":           "rating",
	"status":           "status",
	"createdAt":        "created_at",
	"created_at":       "created_at",
}

// isUniqueViolation reports whether err is a sqlite UNIQUE constraint
// rejection (duplicate title, globally or per user)
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// CreateBook handles POST /books - create a book owned by the session user
func (h *BookHandler) CreateBook(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(ctx, h.db, w, r)
	if !ok {
		return
	}

	var req models.CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logRequest(ctx, "error", "Invalid request body", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errs.NewValidationError("Invalid JSON"))
		return
	}

	if err := validate.Struct(req); err != nil {
		logRequest(ctx, "error", "Invalid book payload", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errs.NewValidationError("title, genre, author, publicationYear and status are required; status must be read, reading or want_to_read; rating must be between 1 and 5"))
		return
	}

	logRequest(ctx, "info", "Creating book", zap.String("title", req.Title), zap.String("user_id", user.ID))

	now := time.Now().UTC()
	_, err := h.db.Exec(
		"INSERT INTO books (id, user_id, title, genre, author, publication_year, status, rating, review, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		uuid.New().String(), user.ID, req.Title, req.Genre, req.Author, req.PublicationYear, req.Status, req.Rating, req.Review, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			logRequest(ctx, "error", "Duplicate book title", zap.String("title", req.Title))
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(errs.NewValidationError("A book with this title already exists"))
			return
		}
		logRequest(ctx, "error", "Failed to create book", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Failed to create book"))
		return
	}

	h.cache.Delete(metricsCacheKey(user.ID))

	logRequest(ctx, "info", "Book created successfully", zap.String("title", req.Title))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "Book created successfully"})
}

// ListBooks handles GET /books - list the session user's books, with
// optional exact-match filters (genre, status, rating) and an orderBy column
// from the sortable allow-list. Filters are conjunctive; created_at is always
// the final ordering key.
func (h *BookHandler) ListBooks(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(ctx, h.db, w, r)
	if !ok {
		return
	}

	query := "SELECT id, user_id, title, genre, author, publication_year, status, rating, review, created_at, updated_at FROM books WHERE user_id = ?"
	args := []interface{}{user.ID}

	params := r.URL.Query()
	if genre := params.Get("genre"); genre != "" {
		query += " AND genre = ?"
		args = append(args, genre)
	}
	if status := params.Get("status"); status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if ratingStr := params.Get("rating"); ratingStr != "" {
		rating, err := strconv.Atoi(ratingStr)
		if err != nil {
			logRequest(ctx, "error", "Invalid rating filter", zap.String("rating", ratingStr))
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(errs.NewValidationError("rating filter must be an integer"))
			return
		}
		query += " AND rating = ?"
		args = append(args, rating)
	}

	orderClause := " ORDER BY created_at"
	if orderBy := params.Get("orderBy"); orderBy != "" {
		column, known := sortableColumns[orderBy]
		if !known {
			logRequest(ctx, "error", "Unknown orderBy column", zap.String("orderBy", orderBy))
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(errs.NewValidationError("orderBy must be one of: title, author, genre, publicationYear, rating, status, createdAt"))
			return
		}
		orderClause = " ORDER BY " + column + ", created_at"
	}

	logRequest(ctx, "info", "Listing books", zap.String("user_id", user.ID))

	books := []models.Book{}
	if err := h.db.Select(&books, query+orderClause, args...); err != nil {
		logRequest(ctx, "error", "Failed to query books", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Database error"))
		return
	}

	logRequest(ctx, "info", "Books retrieved successfully", zap.Int("count", len(books)))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(books)
}

// UpdateBook handles PUT /books/{bookId} - partial update of an owned book.
// Only fields present in the body are touched; updated_at is always
// refreshed. The UPDATE is a single statement scoped by id and user_id, so a
// book owned by someone else is indistinguishable from a nonexistent one and
// there is no window between an ownership check and the mutation.
func (h *BookHandler) UpdateBook(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(ctx, h.db, w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	bookID := vars["bookId"]
	if _, err := uuid.Parse(bookID); err != nil {
		logRequest(ctx, "error", "Invalid book ID", zap.String("book_id", bookID))
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errs.NewValidationError("Invalid book ID"))
		return
	}

	var req models.UpdateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logRequest(ctx, "error", "Invalid request body", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errs.NewValidationError("Invalid JSON"))
		return
	}

	if err := validate.Struct(req); err != nil {
		logRequest(ctx, "error", "Invalid book payload", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errs.NewValidationError("status must be read, reading or want_to_read; rating must be between 1 and 5"))
		return
	}

	// Build update query from the fields actually present
	setParts := []string{}
	args := []interface{}{}

	if req.Title != nil {
		setParts = append(setParts, "title = ?")
		args = append(args, *req.Title)
	}
	if req.Genre != nil {
		setParts = append(setParts, "genre = ?")
		args = append(args, *req.Genre)
	}
	if req.Author != nil {
		setParts = append(setParts, "author = ?")
		args = append(args, *req.Author)
	}
	if req.PublicationYear != nil {
		setParts = append(setParts, "publication_year = ?")
		args = append(args, *req.PublicationYear)
	}
	if req.Status != nil {
		setParts = append(setParts, "status = ?")
		args = append(args, *req.Status)
	}
	if req.Rating != nil {
		setParts = append(setParts, "rating = ?")
		args = append(args, *req.Rating)
	}
	if req.Review != nil {
		setParts = append(setParts, "review = ?")
		args = append(args, *req.Review)
	}

	if len(setParts) == 0 {
		logRequest(ctx, "error", "No fields to update", zap.String("book_id", bookID))
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errs.NewValidationError("No fields to update"))
		return
	}

	setParts = append(setParts, "updated_at = ?")
	args = append(args, time.Now().UTC())
	args = append(args, bookID, user.ID)

	logRequest(ctx, "info", "Updating book", zap.String("book_id", bookID), zap.String("user_id", user.ID))

	query := "UPDATE books SET " + strings.Join(setParts, ", ") + " WHERE id = ? AND user_id = ?"
	result, err := h.db.Exec(query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			logRequest(ctx, "error", "Duplicate book title", zap.String("book_id", bookID))
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(errs.NewValidationError("A book with this title already exists"))
			return
		}
		logRequest(ctx, "error", "Failed to update book", zap.Error(err), zap.String("book_id", bookID))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Failed to update book"))
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		logRequest(ctx, "info", "Book not found for update", zap.String("book_id", bookID))
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(errs.NewNotFoundError("Book not found"))
		return
	}

	h.cache.Delete(metricsCacheKey(user.ID))

	logRequest(ctx, "info", "Book updated successfully", zap.String("book_id", bookID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Book updated successfully"})
}

// DeleteBook handles DELETE /books/{bookId} - delete an owned book.
// Same single-statement ownership scoping as UpdateBook.
func (h *BookHandler) DeleteBook(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(ctx, h.db, w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	bookID := vars["bookId"]
	if _, err := uuid.Parse(bookID); err != nil {
		logRequest(ctx, "error", "Invalid book ID", zap.String("book_id", bookID))
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errs.NewValidationError("Invalid book ID"))
		return
	}

	logRequest(ctx, "info", "Deleting book", zap.String("book_id", bookID), zap.String("user_id", user.ID))

	result, err := h.db.Exec("DELETE FROM books WHERE id = ? AND user_id = ?", bookID, user.ID)
	if err != nil {
		logRequest(ctx, "error", "Failed to delete book", zap.Error(err), zap.String("book_id", bookID))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Failed to delete book"))
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		logRequest(ctx, "info", "Book not found for deletion", zap.String("book_id", bookID))
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(errs.NewNotFoundError("Book not found"))
		return
	}

	h.cache.Delete(metricsCacheKey(user.ID))

	logRequest(ctx, "info", "Book deleted successfully", zap.String("book_id", bookID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Book deleted successfully"})
}
