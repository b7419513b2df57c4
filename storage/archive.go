// Package storage persists conversations to a local sqlite database
// so they survive restarts. The in-memory store stays authoritative
// while the app runs; the archive is written behind it.
package storage

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"murmur/model"
)

// ArchivedConversation is the listing view of an archived
// conversation, without message bodies.
type ArchivedConversation struct {
	ID           string
	Title        string
	MessageCount int
	LastUpdated  time.Time
}

// Archive stores conversations in <dataDir>/conversations.db.
type Archive struct {
	db *sql.DB
}

// NewArchive opens the archive database, creating the schema on
// first use.
func NewArchive(dataDir string) (*Archive, error) {
	dbPath := filepath.Join(dataDir, "conversations.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	a := &Archive{db: db}
	if err := a.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return a, nil
}

func (a *Archive) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		last_updated DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(last_updated);
	`

	_, err := a.db.Exec(schema)
	return err
}

// SaveConversation writes the conversation and all its messages,
// replacing any previous snapshot of the same conversation.
func (a *Archive) SaveConversation(conv *model.Conversation) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT OR REPLACE INTO conversations (id, title, last_updated) VALUES (?, ?, ?)`,
		conv.ID, conv.Title, conv.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	// Messages are rewritten wholesale. The assistant tail mutates
	// during streaming, so per-row updates are not worth tracking.
	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO messages (id, conversation_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i, msg := range conv.Messages {
		if _, err := stmt.Exec(msg.ID, conv.ID, i, string(msg.Role), msg.Content, msg.Timestamp); err != nil {
			return fmt.Errorf("failed to save message %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// LoadConversation reads a conversation and its messages. Returns
// (nil, nil) when the id is not archived.
func (a *Archive) LoadConversation(id string) (*model.Conversation, error) {
	var conv model.Conversation
	err := a.db.QueryRow(
		`SELECT id, title, last_updated FROM conversations WHERE id = ?`, id,
	).Scan(&conv.ID, &conv.Title, &conv.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	rows, err := a.db.Query(
		`SELECT id, role, content, created_at FROM messages WHERE conversation_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg model.Message
		var role string
		if err := rows.Scan(&msg.ID, &role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = model.Role(role)
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &conv, nil
}

// ListArchived returns conversation metadata, most recently updated
// first.
func (a *Archive) ListArchived() ([]ArchivedConversation, error) {
	rows, err := a.db.Query(`
	SELECT c.id, c.title, c.last_updated, COUNT(m.id)
	FROM conversations c
	LEFT JOIN messages m ON m.conversation_id = c.id
	GROUP BY c.id
	ORDER BY c.last_updated DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var list []ArchivedConversation
	for rows.Next() {
		var ac ArchivedConversation
		if err := rows.Scan(&ac.ID, &ac.Title, &ac.LastUpdated, &ac.MessageCount); err != nil {
			continue
		}
		list = append(list, ac)
	}
	return list, rows.Err()
}

// DeleteConversation removes a conversation and its messages. Unknown
// ids are not an error.
func (a *Archive) DeleteConversation(id string) error {
	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	return tx.Commit()
}

func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
