package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joss/pairkit/internal/domain"
)

// SQLiteStore persists records so undo survives process restarts
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the ledger database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS file_edits (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		file_url TEXT NOT NULL,
		original_content TEXT NOT NULL,
		modified_content TEXT NOT NULL,
		tool_name TEXT NOT NULL,
		conversation_id TEXT,
		turn_id TEXT,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_file_edits_turn ON file_edits(turn_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, rec *domain.FileEditRecord) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO file_edits (file_url, original_content, modified_content, tool_name, conversation_id, turn_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.FileURL, rec.OriginalContent, rec.ModifiedContent, rec.ToolName, rec.ConversationID, rec.TurnID, rec.CreatedAt)
	if err != nil {
		return err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.Seq = seq
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.FileEditRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, file_url, original_content, modified_content, tool_name, conversation_id, turn_id, created_at
		FROM file_edits ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FileEditRecord
	for rows.Next() {
		var r domain.FileEditRecord
		var convID, turnID sql.NullString
		if err := rows.Scan(&r.Seq, &r.FileURL, &r.OriginalContent, &r.ModifiedContent, &r.ToolName, &convID, &turnID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ConversationID = convID.String
		r.TurnID = turnID.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Remove(ctx context.Context, seq int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM file_edits WHERE seq = ?`, seq)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
