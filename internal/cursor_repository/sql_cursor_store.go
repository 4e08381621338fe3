package cursor_repository

import (
	"context"
	"database/sql"

	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/domain"
	"github.com/oachat/chat-connector/internal/platform/db"
	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/transport"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

type SqlCursorStore struct {
	database *sql.DB
	metrics  *sqlCursorStoreMetrics
}

type sqlCursorStoreMetrics struct {
	sqlCursorSaveDuration prometheus.Histogram
	sqlCursorLoadDuration prometheus.Histogram
}

func initializeSqlCursorStoreMetrics() *sqlCursorStoreMetrics {
	metrics := new(sqlCursorStoreMetrics)

	metrics.sqlCursorSaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "chat_connector_sql_save_cursor_duration",
		Help: "The amount of time it took to save a poll cursor in the db",
	})

	metrics.sqlCursorLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "chat_connector_sql_load_cursor_duration",
		Help: "The amount of time it took to load a poll cursor from the db",
	})

	return metrics
}

func NewSqlCursorStore(cfg *config.Config) (*SqlCursorStore, error) {

	database, err := db.InitializeDatabaseConnection(cfg)
	if err != nil {
		return nil, err
	}

	return &SqlCursorStore{
		database: database,
		metrics:  initializeSqlCursorStoreMetrics(),
	}, nil
}

func (scs *SqlCursorStore) Save(ctx context.Context, botID domain.BotID, cursor transport.Cursor) error {

	callDurationTimer := prometheus.NewTimer(scs.metrics.sqlCursorSaveDuration)
	defer callDurationTimer.ObserveDuration()

	log := logger.Log.WithFields(logrus.Fields{"bot_id": botID})

	update := "INSERT INTO poll_cursors (bot_id, cursor_value, updated_at) VALUES ($1, $2, NOW()) ON CONFLICT (bot_id) DO UPDATE SET cursor_value = EXCLUDED.cursor_value, updated_at = NOW()"

	statement, err := scs.database.Prepare(update)
	if err != nil {
		log.WithFields(logrus.Fields{"error": err}).Error("SQL Prepare failed")
		return err
	}
	defer statement.Close()

	_, err = statement.ExecContext(ctx, string(botID), string(cursor))
	if err != nil {
		if pqError, ok := err.(*pq.Error); ok && pgerrcode.IsConnectionException(string(pqError.Code)) {
			log.WithFields(logrus.Fields{"error": err}).Error("Lost database connection while saving cursor")
		} else {
			log.WithFields(logrus.Fields{"error": err}).Error("Insert/update cursor failed")
		}
		return err
	}

	return nil
}

func (scs *SqlCursorStore) Load(ctx context.Context, botID domain.BotID) (transport.Cursor, error) {

	callDurationTimer := prometheus.NewTimer(scs.metrics.sqlCursorLoadDuration)
	defer callDurationTimer.ObserveDuration()

	log := logger.Log.WithFields(logrus.Fields{"bot_id": botID})

	statement, err := scs.database.Prepare("SELECT cursor_value FROM poll_cursors WHERE bot_id = $1")
	if err != nil {
		log.WithFields(logrus.Fields{"error": err}).Error("SQL Prepare failed")
		return "", err
	}
	defer statement.Close()

	var cursorValue string
	err = statement.QueryRowContext(ctx, string(botID)).Scan(&cursorValue)
	if err == sql.ErrNoRows {
		return "", ErrCursorNotFound
	} else if err != nil {
		log.WithFields(logrus.Fields{"error": err}).Error("SQL query failed")
		return "", err
	}

	return transport.Cursor(cursorValue), nil
}
