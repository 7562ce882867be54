package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"bookshelf-service/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/umakantv/go-utils/errs"
	"go.uber.org/zap"
)

// SessionCookieName is the cookie correlating a browser session to a user.
// The cookie is set during registration only; every other endpoint just
// reads it. It is an opaque token, not a security credential.
const SessionCookieName = "sessionId"

// sessionCookieMaxAge is 7 days, matching the cookie expiry promised to clients
const sessionCookieMaxAge = 7 * 24 * 60 * 60

var validate = validator.New()

// newSessionID generates a fresh opaque session identifier
func newSessionID() string {
	return uuid.New().String()
}

// sessionFromRequest returns the session id cookie value, or "" when the
// request carries no session cookie.
func sessionFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// requireSession is the guard for endpoints that only need a session cookie
// to be present. Writes the 401 response itself and returns "" when the
// request carries no session.
func requireSession(ctx context.Context, w http.ResponseWriter, r *http.Request) string {
	sessionID := sessionFromRequest(r)
	if sessionID == "" {
		logRequest(ctx, "error", "No session cookie")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(errs.NewAuthenticationError("Not authenticated"))
		return ""
	}
	return sessionID
}

// currentUser resolves the user owning the request's session and is the
// precondition for every book operation. The resolved user is returned as an
// explicit value for the handler to thread through its queries; nothing is
// stored in ambient state. Writes the 401 response itself and reports false
// when the request has no session cookie or the session maps to no
// registered user. When several users share a session id, the
// earliest-created one owns the books.
func currentUser(ctx context.Context, db *sqlx.DB, w http.ResponseWriter, r *http.Request) (models.User, bool) {
	sessionID := requireSession(ctx, w, r)
	if sessionID == "" {
		return models.User{}, false
	}

	var user models.User
	err := db.QueryRowx(
		"SELECT id, session_id, name, last_name, email, created_at, updated_at FROM users WHERE session_id = ? ORDER BY created_at LIMIT 1",
		sessionID,
	).StructScan(&user)
	if err == sql.ErrNoRows {
		logRequest(ctx, "error", "Session not registered")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(errs.NewAuthenticationError("Session not registered"))
		return models.User{}, false
	}
	if err != nil {
		logRequest(ctx, "error", "Failed to resolve session user", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errs.NewInternalServerError("Database error"))
		return models.User{}, false
	}

	return user, true
}
