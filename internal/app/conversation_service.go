package app

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"docuchat/internal/agent"
	"docuchat/internal/ai"
	"docuchat/internal/model"
)

// ConversationRepo is the full conversation repository surface.
type ConversationRepo interface {
	Create(conversation *model.Conversation) error
	ListByUserID(userID uint) ([]model.Conversation, error)
	GetByIDAndUserID(id string, userID uint) (*model.Conversation, error)
	UpdateTitle(id string, userID uint, title string) error
	DeleteByIDAndUserID(id string, userID uint) error
}

type ConversationService struct {
	conversations ConversationRepo
	transcripts   TranscriptStore
}

func NewConversationService(conversations ConversationRepo, transcripts TranscriptStore) *ConversationService {
	return &ConversationService{conversations: conversations, transcripts: transcripts}
}

func (s *ConversationService) Create(userID uint, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New Conversation"
	}
	conversation := &model.Conversation{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
	}
	if err := s.conversations.Create(conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *ConversationService) List(userID uint) ([]model.Conversation, error) {
	return s.conversations.ListByUserID(userID)
}

func (s *ConversationService) Get(id string, userID uint) (*model.Conversation, error) {
	conversation, err := s.conversations.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}
	return conversation, nil
}

func (s *ConversationService) Rename(id string, userID uint, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	if _, err := s.Get(id, userID); err != nil {
		return nil, err
	}
	if err := s.conversations.UpdateTitle(id, userID, title); err != nil {
		return nil, err
	}
	return s.Get(id, userID)
}

// Delete removes the conversation row and its transcript. Interactions are
// kept for analytics.
func (s *ConversationService) Delete(ctx context.Context, id string, userID uint) error {
	if _, err := s.Get(id, userID); err != nil {
		return err
	}
	if err := s.conversations.DeleteByIDAndUserID(id, userID); err != nil {
		return err
	}
	if err := s.transcripts.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Str("conversation_id", id).Msg("delete transcript failed")
	}
	return nil
}

// TranscriptMessage is one user-visible turn of a conversation.
type TranscriptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages returns the user-visible transcript: user turns and final
// assistant answers, with tool traffic and empty tool-call shells left out.
func (s *ConversationService) Messages(ctx context.Context, id string, userID uint) ([]TranscriptMessage, error) {
	if _, err := s.Get(id, userID); err != nil {
		return nil, err
	}
	raw, err := s.transcripts.History(ctx, id)
	if err != nil {
		return nil, err
	}

	messages := make([]TranscriptMessage, 0, len(raw))
	for _, m := range raw {
		switch m.Role {
		case ai.RoleUser:
			messages = append(messages, TranscriptMessage{Role: m.Role, Content: m.Content})
		case ai.RoleAssistant:
			// Tool-call messages are interim reasoning even when the model
			// also emitted text alongside the call.
			if m.Content == "" || len(m.ToolCalls) > 0 {
				continue
			}
			messages = append(messages, TranscriptMessage{Role: m.Role, Content: agent.AnswerText(m.Content)})
		}
	}
	return messages, nil
}
