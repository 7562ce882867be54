package server

import (
	"context"
	"net/http"
	"os"

	cachepackage "bookshelf-service/cache"
	"bookshelf-service/database"
	"bookshelf-service/handlers"

	"github.com/umakantv/go-utils/httpserver"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

// checkAuth surfaces the session identity for request logging. The session
// cookie is not a credential, so no route demands auth at this layer; the
// handlers run their own session guard.
func checkAuth(r *http.Request) (bool, httpserver.RequestAuth) {
	cookie, err := r.Cookie(handlers.SessionCookieName)
	if err != nil {
		return false, httpserver.RequestAuth{}
	}

	return true, httpserver.RequestAuth{
		Type:   "session",
		Client: cookie.Value,
	}
}

func StartServer() {
	// Initialize logger
	logger.Init(logger.LoggerConfig{
		CallerKey:  "file",
		TimeKey:    "timestamp",
		CallerSkip: 1,
	})

	logger.Info("Starting Bookshelf Service...")

	// Initialize database
	dbConn := database.InitializeDatabase()
	defer dbConn.Close()

	// Initialize cache
	cache := cachepackage.InitializeCache()
	defer cache.Close()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(dbConn, cache)
	bookHandler := handlers.NewBookHandler(dbConn, cache)
	metricsHandler := handlers.NewMetricsHandler(dbConn, cache)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create HTTP server
	server := httpserver.New(port, checkAuth)

	// Register routes
	server.Register(httpserver.Route{
		Name:     "HealthCheck",
		Method:   "GET",
		Path:     "/health",
		AuthType: "none",
	}, httpserver.HandlerFunc(func(ctx context.Context, w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "bookshelf-service"}`))
	}))

	server.Register(httpserver.Route{
		Name:     "RegisterUser",
		Method:   "POST",
		Path:     "/users",
		AuthType: "none",
	}, httpserver.HandlerFunc(userHandler.Register))

	server.Register(httpserver.Route{
		Name:     "ListUsers",
		Method:   "GET",
		Path:     "/users",
		AuthType: "none",
	}, httpserver.HandlerFunc(userHandler.ListUsers))

	server.Register(httpserver.Route{
		Name:     "CreateBook",
		Method:   "POST",
		Path:     "/books",
		AuthType: "none",
	}, httpserver.HandlerFunc(bookHandler.CreateBook))

	server.Register(httpserver.Route{
		Name:     "ListBooks",
		Method:   "GET",
		Path:     "/books",
		AuthType: "none",
	}, httpserver.HandlerFunc(bookHandler.ListBooks))

	server.Register(httpserver.Route{
		Name:     "BookMetrics",
		Method:   "GET",
		Path:     "/books/metrics",
		AuthType: "none",
	}, httpserver.HandlerFunc(metricsHandler.GetBookMetrics))

	server.Register(httpserver.Route{
		Name:     "UpdateBook",
		Method:   "PUT",
		Path:     "/books/{bookId}",
		AuthType: "none",
	}, httpserver.HandlerFunc(bookHandler.UpdateBook))

	server.Register(httpserver.Route{
		Name:     "DeleteBook",
		Method:   "DELETE",
		Path:     "/books/{bookId}",
		AuthType: "none",
	}, httpserver.HandlerFunc(bookHandler.DeleteBook))

	logger.Info("Bookshelf Service started on port " + port)
	logger.Info("Health check: GET /health")
	logger.Info("API endpoints: POST/GET /users, POST/GET/PUT/DELETE /books, GET /books/metrics")

	// Start server
	if err := server.Start(); err != nil {
		logger.Error("Server failed to start", zap.Error(err))
		os.Exit(1)
	}
}
