package db

import (
	"context"
	"database/sql"
	"fmt"
	"go-auth-api/config"
	"go-auth-api/logger"
	"time"

	_ "github.com/lib/pq"
)

// Connect opens the Postgres pool and verifies it answers. The caller owns
// the returned handle and closes it at shutdown.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	logger.Log.WithField("connection", cfg.SafeDSN()).Info("Attempting to connect to the database")

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		logger.Log.WithError(err).Error("Failed to open database connection")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		logger.Log.WithError(err).Error("Failed to ping database")
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Log.Info("Database connection established successfully")
	return db, nil
}
