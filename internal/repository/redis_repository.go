package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"askcampus/backend/internal/model"
)

type redisRepository struct {
	rdb *redis.Client
}

// NewRedisRepository builds a Repository backed by Redis. Conversations are
// stored as JSON documents in a per-user hash so a snapshot save stays a
// single pipelined write.
func NewRedisRepository(rdb *redis.Client) Repository {
	return &redisRepository{rdb: rdb}
}

func (r *redisRepository) conversationsKey(userID string) string {
	return fmt.Sprintf("user:%s:conversations", userID)
}
func (r *redisRepository) activeKey(userID string) string {
	return fmt.Sprintf("user:%s:active", userID)
}
func (r *redisRepository) feedbackKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:feedback", conversationID)
}
func (r *redisRepository) userKey(userID string) string {
	return fmt.Sprintf("user:%s:profile", userID)
}

func (r *redisRepository) SaveConversations(ctx context.Context, userID string, convs map[string]*model.Conversation) error {
	fields := make(map[string]any, len(convs))
	for id, conv := range convs {
		payload, err := json.Marshal(conv)
		if err != nil {
			return fmt.Errorf("could not marshal conversation %s: %w", id, err)
		}
		fields[id] = string(payload)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Del(ctx, r.conversationsKey(userID))
	if len(fields) > 0 {
		pipe.HSet(ctx, r.conversationsKey(userID), fields)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisRepository) LoadConversations(ctx context.Context, userID string) (map[string]*model.Conversation, error) {
	raw, err := r.rdb.HGetAll(ctx, r.conversationsKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	convs := make(map[string]*model.Conversation, len(raw))
	for id, payload := range raw {
		var conv model.Conversation
		if err := json.Unmarshal([]byte(payload), &conv); err != nil {
			return nil, fmt.Errorf("could not unmarshal conversation %s: %w", id, err)
		}
		convs[id] = &conv
	}
	return convs, nil
}

func (r *redisRepository) DeleteConversation(ctx context.Context, userID, conversationID string) error {
	return r.rdb.HDel(ctx, r.conversationsKey(userID), conversationID).Err()
}

func (r *redisRepository) SetActiveConversation(ctx context.Context, userID, conversationID string) error {
	return r.rdb.Set(ctx, r.activeKey(userID), conversationID, 0).Err()
}

func (r *redisRepository) GetActiveConversation(ctx context.Context, userID string) (string, error) {
	id, err := r.rdb.Get(ctx, r.activeKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *redisRepository) SaveFeedback(ctx context.Context, entry model.FeedbackEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("could not marshal feedback: %w", err)
	}
	return r.rdb.RPush(ctx, r.feedbackKey(entry.ConversationID), payload).Err()
}

func (r *redisRepository) DeleteFeedbackByConversation(ctx context.Context, conversationID string) error {
	return r.rdb.Del(ctx, r.feedbackKey(conversationID)).Err()
}

func (r *redisRepository) UpsertGuest(ctx context.Context, userID string, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	profile := map[string]any{
		"user_id":       userID,
		"auth_provider": "guest",
		"last_login":    ts.UTC().Format(time.RFC3339),
	}
	return r.rdb.HSet(ctx, r.userKey(userID), profile).Err()
}
