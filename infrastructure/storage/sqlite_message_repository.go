package storage

import (
	"chat-sync/domain"
	"chat-sync/errors"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteMessageRepository persists the log in a SQLite file.
// Ids come from an AUTOINCREMENT primary key.
type SQLiteMessageRepository struct {
	sqlDB *sql.DB
	log   *slog.Logger
}

// OpenSQLiteMessageRepository opens the database file and applies migrations.
func OpenSQLiteMessageRepository(path string, log *slog.Logger) (*SQLiteMessageRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single writer: appends are serialized by the connection itself
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteMessageRepository{sqlDB: sqlDB, log: log}, nil
}

func applyMigrations(sqlDB *sql.DB) error {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)
	for _, file := range files {
		content, err := migrationsFS.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if _, err := sqlDB.Exec(string(content)); err != nil {
			return fmt.Errorf("apply %s: %w", file, err)
		}
	}
	return nil
}

// Close releases the SQLite connection.
func (r *SQLiteMessageRepository) Close() error {
	if r == nil || r.sqlDB == nil {
		return nil
	}
	return r.sqlDB.Close()
}

func (r *SQLiteMessageRepository) Append(ctx context.Context, draft domain.Draft) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	res, err := r.sqlDB.ExecContext(ctx,
		`INSERT INTO messages (sender, body, created_at) VALUES (?, ?, ?)`,
		draft.Sender, draft.Body, draft.CreatedAt.UnixNano(),
	)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: append message: %w", errors.ErrStorage, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: append message id: %w", errors.ErrStorage, err)
	}
	return domain.Message{
		ID:        domain.MessageID(id),
		Sender:    draft.Sender,
		Body:      draft.Body,
		CreatedAt: time.Unix(0, draft.CreatedAt.UnixNano()).UTC(),
	}, nil
}

func (r *SQLiteMessageRepository) Since(ctx context.Context, after domain.MessageID, limit int) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		// SQLite reads a negative LIMIT as "no limit"
		limit = -1
	}
	rows, err := r.sqlDB.QueryContext(ctx,
		`SELECT id, sender, body, created_at FROM messages WHERE id > ? ORDER BY id LIMIT ?`,
		int64(after), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: read messages after %d: %w", errors.ErrStorage, after, err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var (
			id        int64
			createdAt int64
			message   domain.Message
		)
		if err := rows.Scan(&id, &message.Sender, &message.Body, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan message: %w", errors.ErrStorage, err)
		}
		message.ID = domain.MessageID(id)
		message.CreatedAt = time.Unix(0, createdAt).UTC()
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate messages: %w", errors.ErrStorage, err)
	}
	return messages, nil
}

func (r *SQLiteMessageRepository) LatestID(ctx context.Context) (domain.MessageID, error) {
	var id int64
	err := r.sqlDB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM messages`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: latest id: %w", errors.ErrStorage, err)
	}
	return domain.MessageID(id), nil
}
