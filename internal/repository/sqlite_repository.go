package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"askcampus/backend/internal/model"
)

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository builds a Repository on top of an initialized SQLite
// database.
func NewSQLiteRepository(db *sql.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) SaveConversations(ctx context.Context, userID string, convs map[string]*model.Conversation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Full snapshot semantics: the incoming set replaces whatever was
	// stored, so conversations deleted on the client disappear here too.
	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("could not clear previous snapshot: %w", err)
	}

	insert := "INSERT INTO conversations (user_id, conversation_id, payload, updated_at) VALUES (?, ?, ?, ?)"
	now := time.Now().UTC()
	for id, conv := range convs {
		payload, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("could not marshal conversation %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, insert, userID, id, string(payload), now); err != nil {
			return fmt.Errorf("could not insert conversation %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func (r *sqliteRepository) LoadConversations(ctx context.Context, userID string) (map[string]*model.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT conversation_id, payload FROM conversations WHERE user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := make(map[string]*model.Conversation)
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		var conv model.Conversation
		if err := json.Unmarshal([]byte(payload), &conv); err != nil {
			return nil, fmt.Errorf("could not unmarshal conversation %s: %w", id, err)
		}
		convs[id] = &conv
	}
	return convs, rows.Err()
}

func (r *sqliteRepository) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM conversations WHERE user_id = ? AND conversation_id = ?", userID, conversationID)
	return err
}

func (r *sqliteRepository) SetActiveConversation(ctx context.Context, userID, conversationID string) error {
	query := `
		INSERT INTO active_conversations (user_id, conversation_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET conversation_id = excluded.conversation_id, updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, userID, conversationID, time.Now().UTC())
	return err
}

func (r *sqliteRepository) GetActiveConversation(ctx context.Context, userID string) (string, error) {
	row := r.db.QueryRowContext(ctx, "SELECT conversation_id FROM active_conversations WHERE user_id = ?", userID)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *sqliteRepository) SaveFeedback(ctx context.Context, entry model.FeedbackEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO feedback (user_id, conversation_id, query_id, rating, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.UserID, entry.ConversationID, entry.AnswerID, string(entry.Rating), ts.UTC())
	return err
}

func (r *sqliteRepository) DeleteFeedbackByConversation(ctx context.Context, conversationID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM feedback WHERE conversation_id = ?", conversationID)
	return err
}

func (r *sqliteRepository) UpsertGuest(ctx context.Context, userID string, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	query := `
		INSERT INTO users (user_id, auth_provider, created_at, last_login) VALUES (?, 'guest', ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET last_login = excluded.last_login
	`
	_, err := r.db.ExecContext(ctx, query, userID, ts.UTC(), ts.UTC())
	return err
}
