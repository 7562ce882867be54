package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bookshelf-service/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/umakantv/go-utils/cache"
	"github.com/umakantv/go-utils/errs"
	"go.uber.org/zap"
)

// UserHandler handles registration and session-scoped user listing
type UserHandler struct {
	db    *sqlx.DB
	cache cache.Cache
}

// NewUserHandler creates a new user handler
func NewUserHandler(db *sqlx.DB, cache cache.Cache) *UserHandler {
	return &UserHandler{
		db:    db,
		cache: cache,
	}
}

func usersCacheKey(sessionID string) string {
	return "users:session:" + sessionID
}

// Register handles POST /users - create a user bound to the caller's session.
// This is the only endpoint reachable without a session cookie: when the
// request carries none, a fresh session id is issued and set as a cookie
// (path /, 7 days). No uniqueness is enforced on name or email.
func (h *UserHandler) Register(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logRequest(ctx, "error", "Invalid request body", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errs.NewValidationError("Invalid JSON"))
		return
	}

	if err := validate.Struct(req); err != nil {
		logRequest(ctx, "error", "Missing required fields", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errs.NewValidationError("name, lastName and email are required"))
		return
	}

	sessionID := sessionFromRequest(r)
	if sessionID == "" {
		sessionID = newSessionID()
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   sessionCookieMaxAge,
			HttpOnly: true,
		})
	}

	logRequest(ctx, "info", "Registering user", zap.String("name", req.Name))

	now := time.Now().UTC()
	_, err := h.db.Exec(
		"INSERT INTO users (id, session_id, name, last_name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		uuid.New().String(), sessionID, req.Name, req.LastName, req.Email, now, now,
	)
	if err != nil {
		logRequest(ctx, "error", "Failed to create user", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Failed to create user"))
		return
	}

	h.cache.Delete(usersCacheKey(sessionID))

	logRequest(ctx, "info", "User registered successfully")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"message": "User registered successfully"})
}

// ListUsers handles GET /users - list users bound to the caller's session.
// In the common case exactly one user matches; the schema does not enforce it.
func (h *UserHandler) ListUsers(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	sessionID := requireSession(ctx, w, r)
	if sessionID == "" {
		return
	}

	logRequest(ctx, "info", "Listing session users")

	// Try cache first
	cacheKey := usersCacheKey(sessionID)
	if cached, err := h.cache.Get(cacheKey); err == nil {
		logRequest(ctx, "debug", "Serving from cache")
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached.([]byte))
		return
	}

	users := []models.User{}
	err := h.db.Select(
		&users,
		"SELECT id, session_id, name, last_name, email, created_at, updated_at FROM users WHERE session_id = ? ORDER BY created_at",
		sessionID,
	)
	if err != nil {
		logRequest(ctx, "error", "Failed to query users", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Database error"))
		return
	}

	response, err := json.Marshal(models.ListUsersResponse{Users: users})
	if err != nil {
		logRequest(ctx, "error", "Failed to encode users", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Failed to encode response"))
		return
	}
	h.cache.Set(cacheKey, response, 5*time.Minute)

	logRequest(ctx, "info", "Users retrieved successfully", zap.Int("count", len(users)))

	w.Header().Set("Content-Type", "application/json")
	w.Write(response)
}
