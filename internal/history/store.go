// Package history is the conversation state store: one durable append-only
// message log per conversation identity, kept in Redis. The relational
// Conversation row only references this log, never duplicates it.
package history

import (
	"context"
	"encoding/json"
	"fmt"

	redisv9 "github.com/redis/go-redis/v9"

	"docuchat/internal/ai"
)

type Store struct {
	client *redisv9.Client
}

func NewStore(client *redisv9.Client) *Store {
	return &Store{client: client}
}

// Append pushes messages onto the end of a conversation's transcript.
func (s *Store) Append(ctx context.Context, conversationID string, messages ...ai.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	payloads := make([]interface{}, len(messages))
	for i, m := range messages {
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal transcript message failed: %w", err)
		}
		payloads[i] = raw
	}
	if err := s.client.RPush(ctx, s.key(conversationID), payloads...).Err(); err != nil {
		return fmt.Errorf("redis append transcript failed: %w", err)
	}
	return nil
}

// History replays the full transcript in append order. An unknown
// conversation yields an empty slice, not an error, so turn one needs no
// special casing.
func (s *Store) History(ctx context.Context, conversationID string) ([]ai.ChatMessage, error) {
	raws, err := s.client.LRange(ctx, s.key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis read transcript failed: %w", err)
	}

	messages := make([]ai.ChatMessage, 0, len(raws))
	for _, raw := range raws {
		var m ai.ChatMessage
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("unmarshal transcript message failed: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Delete removes a conversation's transcript entirely.
func (s *Store) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return fmt.Errorf("redis delete transcript failed: %w", err)
	}
	return nil
}

func (s *Store) key(conversationID string) string {
	return "chat:transcript:" + conversationID
}
