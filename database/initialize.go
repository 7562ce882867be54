package database

import (
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/umakantv/go-utils/db"
	"github.com/umakantv/go-utils/db/migrations"
	"github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

func InitializeDatabase() *sqlx.DB {
	dbPath := os.Getenv("BOOKSHELF_DB")
	if dbPath == "" {
		dbPath = "./bookshelf.db"
	}

	// foreign_keys must be on for the books -> users cascade to hold
	config := db.DatabaseConfig{
		DRIVER: "sqlite3",
		DB:     dbPath + "?_foreign_keys=on",
	}

	dbConn := db.GetDBConnection(config)

	err := migrations.Migrate(dbConn, "./database/migrations")
	if err != nil {
		logger.Error("Error while running migration", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Database initialized successfully")
	return dbConn
}
