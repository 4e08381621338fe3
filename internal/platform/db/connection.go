package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/oachat/chat-connector/internal/config"

	_ "github.com/lib/pq"
)

func InitializeDatabaseConnection(cfg *config.Config) (*sql.DB, error) {
	psqlConnectionInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s TimeZone=UTC",
		cfg.CursorDatabaseHost,
		cfg.CursorDatabasePort,
		cfg.CursorDatabaseUser,
		cfg.CursorDatabasePassword,
		cfg.CursorDatabaseName)

	sslSettings, err := buildPostgresSslConfigString(cfg)
	if err != nil {
		return nil, err
	}

	psqlConnectionInfo += " " + sslSettings

	return sql.Open("postgres", psqlConnectionInfo)
}

func buildPostgresSslConfigString(cfg *config.Config) (string, error) {
	if cfg.CursorDatabaseSslMode == "disable" {
		return "sslmode=disable", nil
	} else if cfg.CursorDatabaseSslMode == "verify-full" {
		return "sslmode=verify-full sslrootcert=" + cfg.CursorDatabaseSslRootCert, nil
	} else {
		return "", errors.New("Invalid SSL configuration for database connection: " + cfg.CursorDatabaseSslMode)
	}
}
