// ABOUTME: SQLite implementation of ConversationStore using modernc.org/sqlite
// ABOUTME: Owns schema creation and tracked, idempotent column migrations

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements ConversationStore on a single SQLite file.
// The connection is a shared resource; mu serializes every operation so the
// store behaves like the single-writer resource it is. The lock is held only
// for the duration of one query or insert, never across file walks or
// network calls.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if absent) the database at path and ensures
// the schema is current. Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id INTEGER,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			input_type TEXT NOT NULL DEFAULT 'text',
			image_path TEXT,
			image_filename TEXT,
			image_size INTEGER,
			timestamp TEXT NOT NULL,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, timestamp);

		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// migration is one tracked schema step. Each adds a single optional column
// to the messages table; older database files predate these columns.
type migration struct {
	version int
	column  string
	apply   string
}

var migrations = []migration{
	{1, "input_type", `ALTER TABLE messages ADD COLUMN input_type TEXT NOT NULL DEFAULT 'text'`},
	{2, "image_path", `ALTER TABLE messages ADD COLUMN image_path TEXT`},
	{3, "image_filename", `ALTER TABLE messages ADD COLUMN image_filename TEXT`},
	{4, "image_size", `ALTER TABLE messages ADD COLUMN image_size INTEGER`},
}

// runMigrations applies any schema migrations not yet recorded in
// schema_migrations. A column that already exists (fresh schema, or a file
// migrated by an earlier run) is detected via pragma_table_info and recorded
// without altering the table, so "already present" is never inferred from a
// swallowed ALTER TABLE error.
func (s *SQLiteStore) runMigrations() error {
	for _, m := range migrations {
		var applied int
		err := s.db.QueryRow(`SELECT 1 FROM schema_migrations WHERE version = ?`, m.version).Scan(&applied)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("checking migration %d: %w", m.version, err)
		}

		var exists int
		err = s.db.QueryRow(`SELECT 1 FROM pragma_table_info('messages') WHERE name = ?`, m.column).Scan(&exists)
		if err == sql.ErrNoRows {
			if _, err := s.db.Exec(m.apply); err != nil {
				return fmt.Errorf("adding %s column to messages: %w", m.column, err)
			}
			s.logger.Info("applied migration", "version", m.version, "column", m.column)
		} else if err != nil {
			return fmt.Errorf("inspecting messages table: %w", err)
		}

		if _, err := s.db.Exec(
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			m.version, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("recording migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// CreateConversation inserts a new conversation row and returns its
// assigned identifier.
func (s *SQLiteStore) CreateConversation(ctx context.Context, createdAt string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (created_at) VALUES (?)`, createdAt)
	if err != nil {
		return 0, fmt.Errorf("inserting conversation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading conversation id: %w", err)
	}

	s.logger.Debug("created conversation", "id", id)
	return id, nil
}

// SaveMessage inserts a plain text message.
func (s *SQLiteStore) SaveMessage(ctx context.Context, conversationID int64, role, content, timestamp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, input_type, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, conversationID, role, content, InputTypeText, timestamp)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("saved message", "conversation_id", conversationID, "role", role)
	return nil
}

// SaveMessageWithImage inserts a message carrying optional image metadata.
// Callers should supply all three image fields together; any may be nil.
func (s *SQLiteStore) SaveMessageWithImage(ctx context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inputType := msg.InputType
	if inputType == "" {
		inputType = InputTypeText
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation_id, role, content, input_type, image_path, image_filename, image_size, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ConversationID, msg.Role, msg.Content, inputType,
		msg.ImagePath, msg.ImageFilename, msg.ImageSize, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	s.logger.Debug("saved message",
		"conversation_id", msg.ConversationID,
		"role", msg.Role,
		"input_type", inputType)
	return nil
}

// ListConversations returns all conversations ordered by created_at
// descending, most recent first. An empty store yields an empty slice.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at
		FROM conversations
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	conversations := []*Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation row: %w", err)
		}
		conversations = append(conversations, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation rows: %w", err)
	}
	return conversations, nil
}

// GetMessages returns all messages for a conversation in ascending
// timestamp order. Ties on timestamp fall back to insertion order. An
// unknown conversation id yields an empty slice, not an error.
func (s *SQLiteStore) GetMessages(ctx context.Context, conversationID int64) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, role, content, input_type, image_path, image_filename, image_size, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []*Message{}
	for rows.Next() {
		var msg Message
		var inputType sql.NullString
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Role,
			&msg.Content,
			&inputType,
			&msg.ImagePath,
			&msg.ImageFilename,
			&msg.ImageSize,
			&msg.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}

		// Rows written before the input_type column existed read as NULL
		msg.InputType = InputTypeText
		if inputType.Valid && inputType.String != "" {
			msg.InputType = inputType.String
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

// referencedImagePaths returns the set of image_path values referenced by
// any message.
func (s *SQLiteStore) referencedImagePaths(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT image_path FROM messages WHERE image_path IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("querying image paths: %w", err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning image path: %w", err)
		}
		paths[p] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating image path rows: %w", err)
	}
	return paths, nil
}

// Ensure SQLiteStore implements ConversationStore
var _ ConversationStore = (*SQLiteStore)(nil)
