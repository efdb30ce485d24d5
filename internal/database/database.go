package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/franckalain/wellness/internal/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// DB interface defines the methods our database should implement
type DB interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, p *models.UserProfile) error
	GetSettings(ctx context.Context, userID string) (*models.Settings, error)
	SaveSettings(ctx context.Context, s *models.Settings) error
	GetRoadmap(ctx context.Context, userID string) (*models.Roadmap, error)
	ReplaceRoadmap(ctx context.Context, r *models.Roadmap) error

	GetDailyStats(ctx context.Context, userID, date string) (*models.DailyStats, error)
	UpsertDailyStats(ctx context.Context, s *models.DailyStats) error
	ListDailyStats(ctx context.Context, userID string, limit int) ([]*models.DailyStats, error)

	AddFood(ctx context.Context, e *models.FoodEntry) error
	UpdateFood(ctx context.Context, e *models.FoodEntry) error
	DeleteFood(ctx context.Context, userID, id string) error
	ListFood(ctx context.Context, userID string, r TimeRange) ([]*models.FoodEntry, error)
	AddActivity(ctx context.Context, e *models.ActivityEntry) error
	ListActivities(ctx context.Context, userID string, r TimeRange) ([]*models.ActivityEntry, error)
	AddSleep(ctx context.Context, e *models.SleepEntry) error
	ListSleep(ctx context.Context, userID string, r TimeRange) ([]*models.SleepEntry, error)

	AppendMessage(ctx context.Context, m *models.ChatMessage) error
	ListMessages(ctx context.Context, userID, conversationID string, limit int) ([]*models.ChatMessage, error)

	Close() error
}

// TimeRange selects entries with From <= timestamp < To, in ms since epoch.
// A zero bound is open. Limit caps the result when positive.
type TimeRange struct {
	From  int64
	To    int64
	Limit int
}

// SQLiteDB implements the DB interface
type SQLiteDB struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteDB creates a new SQLite database connection
func NewSQLiteDB(dbPath string, logger *zap.Logger) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// pragmas below are per connection
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("error executing %q: %w", pragma, err)
		}
	}

	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}
	logger.Debug("database schema initialized", zap.String("path", dbPath))

	return &SQLiteDB{db: db, logger: logger}, nil
}

func initializeSchema(db *sql.DB) error {
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}
	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

func (r TimeRange) where(column string) (string, []any) {
	var clause string
	var args []any
	if r.From > 0 {
		clause += " AND " + column + " >= ?"
		args = append(args, r.From)
	}
	if r.To > 0 {
		clause += " AND " + column + " < ?"
		args = append(args, r.To)
	}
	return clause, args
}

func (r TimeRange) limit() string {
	if r.Limit > 0 {
		return fmt.Sprintf(" LIMIT %d", r.Limit)
	}
	return ""
}

// checkAffected turns a zero-row update or delete into ErrNotFound.
func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
