package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"docuchat/internal/agent"
	"docuchat/internal/ai"
	"docuchat/internal/attribution"
	"docuchat/internal/model"
)

var (
	ErrEmptyQuestion        = errors.New("question must not be empty")
	ErrEmptyTitle           = errors.New("title must not be empty")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrInteractionNotFound  = errors.New("interaction not found")
	ErrDocumentNotFound     = errors.New("document not found")
)

// AgentRunner produces a grounded answer plus the message trail of the turn.
type AgentRunner interface {
	Run(ctx context.Context, history []ai.ChatMessage, question string) (*agent.Response, []ai.ChatMessage, error)
}

// TranscriptStore is the durable per-conversation message log.
type TranscriptStore interface {
	Append(ctx context.Context, conversationID string, messages ...ai.ChatMessage) error
	History(ctx context.Context, conversationID string) ([]ai.ChatMessage, error)
	Delete(ctx context.Context, conversationID string) error
}

// ConversationStore is the slice of the conversation repository the chat
// service needs for ownership checks and activity bumps.
type ConversationStore interface {
	GetByIDAndUserID(id string, userID uint) (*model.Conversation, error)
	Touch(id string) error
}

// InteractionStore persists a turn and its reconciled document usage in one
// transaction.
type InteractionStore interface {
	CreateWithUsage(interaction *model.Interaction, claimedFilenames []string) (*attribution.Result, error)
	GetByID(id uint) (*model.Interaction, error)
	UsedFilenames(interactionID uint) ([]string, error)
}

type FeedbackStore interface {
	Upsert(interactionID uint, isPositive bool) (*model.Feedback, error)
	GetByInteractionID(interactionID uint) (*model.Feedback, error)
}

// DiscardPublisher hands discarded citation claims to the async persistence
// pipeline. Publishing is best effort; a broker outage never fails the chat
// turn.
type DiscardPublisher interface {
	PublishDiscards(ctx context.Context, interactionID uint, claimed []string) error
}

// ChatReply is the caller-facing result of one chat turn.
type ChatReply struct {
	InteractionID uint             `json:"interaction_id"`
	Answer        string           `json:"answer"`
	UsedDocuments []model.Document `json:"source_documents"`
	ResponseTime  float64          `json:"response_time"`
}

type ChatService struct {
	runner        AgentRunner
	transcripts   TranscriptStore
	conversations ConversationStore
	interactions  InteractionStore
	feedback      FeedbackStore
	discards      DiscardPublisher

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewChatService(runner AgentRunner, transcripts TranscriptStore, conversations ConversationStore, interactions InteractionStore, feedback FeedbackStore, discards DiscardPublisher) *ChatService {
	return &ChatService{
		runner:        runner,
		transcripts:   transcripts,
		conversations: conversations,
		interactions:  interactions,
		feedback:      feedback,
		discards:      discards,
		locks:         make(map[string]*sync.Mutex),
	}
}

// conversationLock serializes turns within one conversation so concurrent
// sends cannot interleave their transcript appends.
func (s *ChatService) conversationLock(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[conversationID] = l
	}
	return l
}

// SendMessage runs one chat turn: replay the transcript, invoke the agent,
// reconcile its citations against the document catalog, persist the
// interaction with its usage links, and append the turn to the transcript.
// An empty conversationID runs a single-shot turn with no history and no
// transcript write. An agent failure persists nothing.
func (s *ChatService) SendMessage(ctx context.Context, userID uint, conversationID, question string) (*ChatReply, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	var history []ai.ChatMessage
	if conversationID != "" {
		conv, err := s.conversations.GetByIDAndUserID(conversationID, userID)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			return nil, ErrConversationNotFound
		}

		lock := s.conversationLock(conversationID)
		lock.Lock()
		defer lock.Unlock()

		history, err = s.transcripts.History(ctx, conversationID)
		if err != nil {
			return nil, err
		}
	}

	started := time.Now()
	resp, trail, err := s.runner.Run(ctx, history, question)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(started).Seconds()

	interaction := &model.Interaction{
		ConversationID: conversationID,
		Question:       question,
		Answer:         resp.Answer,
		ResponseTime:   elapsed,
	}
	reconciled, err := s.interactions.CreateWithUsage(interaction, resp.UsedDocuments)
	if err != nil {
		return nil, err
	}

	if len(reconciled.Discarded) > 0 {
		log.Warn().
			Uint("interaction_id", interaction.ID).
			Strs("claimed", reconciled.Discarded).
			Msg("discarded citations of unknown documents")
		if err := s.discards.PublishDiscards(ctx, interaction.ID, reconciled.Discarded); err != nil {
			log.Error().Err(err).Uint("interaction_id", interaction.ID).Msg("publish discard events failed")
		}
	}

	if conversationID != "" {
		if err := s.transcripts.Append(ctx, conversationID, trail...); err != nil {
			return nil, err
		}
		if err := s.conversations.Touch(conversationID); err != nil {
			log.Warn().Err(err).Str("conversation_id", conversationID).Msg("bump conversation activity failed")
		}
	}

	used := make([]model.Document, 0, len(reconciled.Accepted))
	for _, a := range reconciled.Accepted {
		used = append(used, a.Document)
	}
	return &ChatReply{
		InteractionID: interaction.ID,
		Answer:        resp.Answer,
		UsedDocuments: used,
		ResponseTime:  elapsed,
	}, nil
}

// InteractionDetail is one persisted turn with its attributed documents and
// any feedback it received.
type InteractionDetail struct {
	Interaction   model.Interaction `json:"interaction"`
	UsedDocuments []string          `json:"used_documents"`
	Feedback      *model.Feedback   `json:"feedback,omitempty"`
}

// GetInteraction loads a persisted turn, its used filenames in citation
// order, and its feedback if any.
func (s *ChatService) GetInteraction(interactionID uint) (*InteractionDetail, error) {
	interaction, err := s.interactions.GetByID(interactionID)
	if err != nil {
		return nil, err
	}
	if interaction == nil {
		return nil, ErrInteractionNotFound
	}
	used, err := s.interactions.UsedFilenames(interactionID)
	if err != nil {
		return nil, err
	}
	feedback, err := s.feedback.GetByInteractionID(interactionID)
	if err != nil {
		return nil, err
	}
	return &InteractionDetail{
		Interaction:   *interaction,
		UsedDocuments: used,
		Feedback:      feedback,
	}, nil
}

// SubmitFeedback records a thumbs up or down for an interaction, replacing
// any earlier vote.
func (s *ChatService) SubmitFeedback(interactionID uint, isPositive bool) (*model.Feedback, error) {
	interaction, err := s.interactions.GetByID(interactionID)
	if err != nil {
		return nil, err
	}
	if interaction == nil {
		return nil, ErrInteractionNotFound
	}
	return s.feedback.Upsert(interactionID, isPositive)
}
