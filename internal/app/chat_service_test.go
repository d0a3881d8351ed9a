package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docuchat/internal/agent"
	"docuchat/internal/ai"
	"docuchat/internal/attribution"
	"docuchat/internal/model"
)

type fakeRunner struct {
	resp  *agent.Response
	trail []ai.ChatMessage
	err   error
	seen  []ai.ChatMessage // history of the last call
}

func (r *fakeRunner) Run(ctx context.Context, history []ai.ChatMessage, question string) (*agent.Response, []ai.ChatMessage, error) {
	r.seen = append([]ai.ChatMessage(nil), history...)
	if r.err != nil {
		return nil, nil, r.err
	}
	return r.resp, r.trail, nil
}

type fakeTranscripts struct {
	entries map[string][]ai.ChatMessage
}

func newFakeTranscripts() *fakeTranscripts {
	return &fakeTranscripts{entries: make(map[string][]ai.ChatMessage)}
}

func (s *fakeTranscripts) Append(ctx context.Context, conversationID string, messages ...ai.ChatMessage) error {
	s.entries[conversationID] = append(s.entries[conversationID], messages...)
	return nil
}

func (s *fakeTranscripts) History(ctx context.Context, conversationID string) ([]ai.ChatMessage, error) {
	return s.entries[conversationID], nil
}

func (s *fakeTranscripts) Delete(ctx context.Context, conversationID string) error {
	delete(s.entries, conversationID)
	return nil
}

type fakeConversations struct {
	owned   map[string]uint // conversation id -> owner
	touched []string
}

func (s *fakeConversations) GetByIDAndUserID(id string, userID uint) (*model.Conversation, error) {
	owner, ok := s.owned[id]
	if !ok || owner != userID {
		return nil, nil
	}
	return &model.Conversation{ID: id, UserID: userID}, nil
}

func (s *fakeConversations) Touch(id string) error {
	s.touched = append(s.touched, id)
	return nil
}

type fakeInteractions struct {
	docs    map[string]model.Document
	created []*model.Interaction
	usage   map[uint][]string
	nextID  uint
}

func (s *fakeInteractions) CreateWithUsage(interaction *model.Interaction, claims []string) (*attribution.Result, error) {
	result, err := attribution.Reconcile(claims, func(filename string) (*model.Document, error) {
		if doc, ok := s.docs[filename]; ok {
			return &doc, nil
		}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	s.nextID++
	interaction.ID = s.nextID
	s.created = append(s.created, interaction)
	if s.usage == nil {
		s.usage = make(map[uint][]string)
	}
	s.usage[interaction.ID] = result.AcceptedFilenames()
	return result, nil
}

func (s *fakeInteractions) GetByID(id uint) (*model.Interaction, error) {
	for _, in := range s.created {
		if in.ID == id {
			return in, nil
		}
	}
	return nil, nil
}

func (s *fakeInteractions) UsedFilenames(interactionID uint) ([]string, error) {
	return s.usage[interactionID], nil
}

// fakeFeedback keeps real rows and mirrors the repository's find-then-save
// upsert, so duplicate submissions can be caught as extra rows, not hidden by
// map semantics.
type fakeFeedback struct {
	rows   []model.Feedback
	nextID uint
}

func (s *fakeFeedback) Upsert(interactionID uint, isPositive bool) (*model.Feedback, error) {
	for i := range s.rows {
		if s.rows[i].InteractionID == interactionID {
			s.rows[i].IsPositive = isPositive
			fb := s.rows[i]
			return &fb, nil
		}
	}
	s.nextID++
	fb := model.Feedback{ID: s.nextID, InteractionID: interactionID, IsPositive: isPositive}
	s.rows = append(s.rows, fb)
	return &fb, nil
}

func (s *fakeFeedback) GetByInteractionID(interactionID uint) (*model.Feedback, error) {
	for i := range s.rows {
		if s.rows[i].InteractionID == interactionID {
			fb := s.rows[i]
			return &fb, nil
		}
	}
	return nil, nil
}

type fakeDiscards struct {
	published map[uint][]string
	err       error
}

func (p *fakeDiscards) PublishDiscards(ctx context.Context, interactionID uint, claimed []string) error {
	if p.err != nil {
		return p.err
	}
	if p.published == nil {
		p.published = make(map[uint][]string)
	}
	p.published[interactionID] = append(p.published[interactionID], claimed...)
	return nil
}

func newChatFixture(runner *fakeRunner) (*ChatService, *fakeTranscripts, *fakeConversations, *fakeInteractions, *fakeDiscards) {
	transcripts := newFakeTranscripts()
	conversations := &fakeConversations{owned: map[string]uint{"conv-1": 7}}
	interactions := &fakeInteractions{docs: map[string]model.Document{
		"report.pdf": {ID: 1, Filename: "report.pdf"},
	}}
	discards := &fakeDiscards{}
	svc := NewChatService(runner, transcripts, conversations, interactions, &fakeFeedback{}, discards)
	return svc, transcripts, conversations, interactions, discards
}

func TestSendMessage_PersistsInteractionAndTranscript(t *testing.T) {
	runner := &fakeRunner{
		resp: &agent.Response{Answer: "the answer", UsedDocuments: []string{"report.pdf"}},
		trail: []ai.ChatMessage{
			{Role: ai.RoleUser, Content: "q"},
			{Role: ai.RoleAssistant, Content: `{"answer":"the answer","used_documents":["report.pdf"]}`},
		},
	}
	svc, transcripts, conversations, interactions, _ := newChatFixture(runner)

	reply, err := svc.SendMessage(context.Background(), 7, "conv-1", "q")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if reply.Answer != "the answer" {
		t.Errorf("answer = %q", reply.Answer)
	}
	if len(reply.UsedDocuments) != 1 || reply.UsedDocuments[0].Filename != "report.pdf" {
		t.Errorf("used documents = %+v", reply.UsedDocuments)
	}
	if len(interactions.created) != 1 {
		t.Fatalf("interactions created = %d", len(interactions.created))
	}
	if interactions.created[0].Question != "q" {
		t.Errorf("stored question = %q", interactions.created[0].Question)
	}
	if got := len(transcripts.entries["conv-1"]); got != 2 {
		t.Errorf("transcript has %d messages, want 2", got)
	}
	if len(conversations.touched) != 1 {
		t.Errorf("conversation not touched")
	}
}

func TestSendMessage_AgentFailurePersistsNothing(t *testing.T) {
	runner := &fakeRunner{err: &agent.InvocationError{Err: errors.New("backend down")}}
	svc, transcripts, _, interactions, _ := newChatFixture(runner)

	_, err := svc.SendMessage(context.Background(), 7, "conv-1", "q")
	var invocationErr *agent.InvocationError
	if !errors.As(err, &invocationErr) {
		t.Fatalf("err = %v, want InvocationError", err)
	}
	if len(interactions.created) != 0 {
		t.Errorf("interaction persisted despite agent failure")
	}
	if len(transcripts.entries["conv-1"]) != 0 {
		t.Errorf("transcript written despite agent failure")
	}
}

func TestSendMessage_OwnershipMismatchIsNotFound(t *testing.T) {
	runner := &fakeRunner{resp: &agent.Response{Answer: "x"}}
	svc, _, _, _, _ := newChatFixture(runner)

	if _, err := svc.SendMessage(context.Background(), 99, "conv-1", "q"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("err = %v, want ErrConversationNotFound", err)
	}
	if _, err := svc.SendMessage(context.Background(), 7, "missing", "q"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestSendMessage_EmptyQuestion(t *testing.T) {
	svc, _, _, _, _ := newChatFixture(&fakeRunner{resp: &agent.Response{Answer: "x"}})
	if _, err := svc.SendMessage(context.Background(), 7, "conv-1", "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Errorf("err = %v, want ErrEmptyQuestion", err)
	}
}

func TestSendMessage_ReplaysHistory(t *testing.T) {
	runner := &fakeRunner{
		resp:  &agent.Response{Answer: "second"},
		trail: []ai.ChatMessage{{Role: ai.RoleUser, Content: "second q"}},
	}
	svc, transcripts, _, _, _ := newChatFixture(runner)
	transcripts.entries["conv-1"] = []ai.ChatMessage{
		{Role: ai.RoleUser, Content: "first q"},
		{Role: ai.RoleAssistant, Content: "first a"},
	}

	if _, err := svc.SendMessage(context.Background(), 7, "conv-1", "second q"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(runner.seen) != 2 || runner.seen[0].Content != "first q" {
		t.Errorf("agent saw history %+v", runner.seen)
	}
}

// echoRunner answers every question and builds the turn's trail from it, so
// transcripts of different conversations are distinguishable.
type echoRunner struct{}

func (echoRunner) Run(ctx context.Context, history []ai.ChatMessage, question string) (*agent.Response, []ai.ChatMessage, error) {
	return &agent.Response{Answer: "answer to " + question},
		[]ai.ChatMessage{
			{Role: ai.RoleUser, Content: question},
			{Role: ai.RoleAssistant, Content: "answer to " + question},
		},
		nil
}

func TestSendMessage_ConversationsAreIsolated(t *testing.T) {
	transcripts := newFakeTranscripts()
	conversations := &fakeConversations{owned: map[string]uint{"conv-a": 7, "conv-b": 7}}
	interactions := &fakeInteractions{docs: map[string]model.Document{}}
	svc := NewChatService(echoRunner{}, transcripts, conversations, interactions, &fakeFeedback{}, &fakeDiscards{})

	if _, err := svc.SendMessage(context.Background(), 7, "conv-a", "alpha question"); err != nil {
		t.Fatalf("send to conv-a failed: %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), 7, "conv-b", "beta question"); err != nil {
		t.Fatalf("send to conv-b failed: %v", err)
	}
	if _, err := svc.SendMessage(context.Background(), 7, "conv-a", "alpha followup"); err != nil {
		t.Fatalf("second send to conv-a failed: %v", err)
	}

	a := transcripts.entries["conv-a"]
	b := transcripts.entries["conv-b"]
	if len(a) != 4 || len(b) != 2 {
		t.Fatalf("transcript sizes: conv-a=%d conv-b=%d", len(a), len(b))
	}
	for _, m := range a {
		if strings.Contains(m.Content, "beta") {
			t.Errorf("conv-a transcript leaked conv-b content: %q", m.Content)
		}
	}
	for _, m := range b {
		if strings.Contains(m.Content, "alpha") {
			t.Errorf("conv-b transcript leaked conv-a content: %q", m.Content)
		}
	}
}

func TestSendMessage_SingleShotSkipsTranscript(t *testing.T) {
	runner := &fakeRunner{
		resp:  &agent.Response{Answer: "one off"},
		trail: []ai.ChatMessage{{Role: ai.RoleUser, Content: "q"}},
	}
	svc, transcripts, conversations, interactions, _ := newChatFixture(runner)

	reply, err := svc.SendMessage(context.Background(), 7, "", "q")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if reply.Answer != "one off" {
		t.Errorf("answer = %q", reply.Answer)
	}
	if len(interactions.created) != 1 {
		t.Errorf("single-shot turn not persisted")
	}
	if len(transcripts.entries) != 0 {
		t.Errorf("single-shot turn wrote a transcript")
	}
	if len(conversations.touched) != 0 {
		t.Errorf("single-shot turn touched a conversation")
	}
}

func TestSendMessage_PublishesDiscardedClaims(t *testing.T) {
	runner := &fakeRunner{
		resp: &agent.Response{
			Answer:        "cited a ghost",
			UsedDocuments: []string{"report.pdf", "ghost.pdf"},
		},
		trail: []ai.ChatMessage{{Role: ai.RoleUser, Content: "q"}},
	}
	svc, _, _, interactions, discards := newChatFixture(runner)

	reply, err := svc.SendMessage(context.Background(), 7, "conv-1", "q")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(reply.UsedDocuments) != 1 {
		t.Errorf("used documents = %+v, want only report.pdf", reply.UsedDocuments)
	}
	got := discards.published[interactions.created[0].ID]
	if len(got) != 1 || got[0] != "ghost.pdf" {
		t.Errorf("published discards = %v", got)
	}
}

func TestSendMessage_PublishFailureDoesNotFailTurn(t *testing.T) {
	runner := &fakeRunner{
		resp:  &agent.Response{Answer: "x", UsedDocuments: []string{"ghost.pdf"}},
		trail: []ai.ChatMessage{{Role: ai.RoleUser, Content: "q"}},
	}
	svc, _, _, _, discards := newChatFixture(runner)
	discards.err = errors.New("broker down")

	if _, err := svc.SendMessage(context.Background(), 7, "conv-1", "q"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
}

func TestSubmitFeedback(t *testing.T) {
	runner := &fakeRunner{
		resp:  &agent.Response{Answer: "x"},
		trail: []ai.ChatMessage{{Role: ai.RoleUser, Content: "q"}},
	}
	transcripts := newFakeTranscripts()
	conversations := &fakeConversations{owned: map[string]uint{"conv-1": 7}}
	interactions := &fakeInteractions{docs: map[string]model.Document{}}
	feedback := &fakeFeedback{}
	svc := NewChatService(runner, transcripts, conversations, interactions, feedback, &fakeDiscards{})

	if _, err := svc.SendMessage(context.Background(), 7, "conv-1", "q"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	id := interactions.created[0].ID

	fb, err := svc.SubmitFeedback(id, true)
	if err != nil {
		t.Fatalf("feedback failed: %v", err)
	}
	if !fb.IsPositive {
		t.Errorf("feedback polarity lost")
	}

	if _, err := svc.SubmitFeedback(9999, true); !errors.Is(err, ErrInteractionNotFound) {
		t.Errorf("err = %v, want ErrInteractionNotFound", err)
	}
}

func TestGetInteraction(t *testing.T) {
	runner := &fakeRunner{
		resp:  &agent.Response{Answer: "the answer", UsedDocuments: []string{"report.pdf"}},
		trail: []ai.ChatMessage{{Role: ai.RoleUser, Content: "q"}},
	}
	svc, _, _, interactions, _ := newChatFixture(runner)

	if _, err := svc.SendMessage(context.Background(), 7, "conv-1", "q"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	id := interactions.created[0].ID

	detail, err := svc.GetInteraction(id)
	if err != nil {
		t.Fatalf("get interaction failed: %v", err)
	}
	if detail.Interaction.Answer != "the answer" {
		t.Errorf("answer = %q", detail.Interaction.Answer)
	}
	if len(detail.UsedDocuments) != 1 || detail.UsedDocuments[0] != "report.pdf" {
		t.Errorf("used documents = %v", detail.UsedDocuments)
	}
	if detail.Feedback != nil {
		t.Errorf("feedback before any vote = %+v", detail.Feedback)
	}

	if _, err := svc.SubmitFeedback(id, true); err != nil {
		t.Fatalf("feedback failed: %v", err)
	}
	detail, err = svc.GetInteraction(id)
	if err != nil {
		t.Fatalf("get interaction failed: %v", err)
	}
	if detail.Feedback == nil || !detail.Feedback.IsPositive {
		t.Errorf("feedback not surfaced: %+v", detail.Feedback)
	}

	if _, err := svc.GetInteraction(9999); !errors.Is(err, ErrInteractionNotFound) {
		t.Errorf("err = %v, want ErrInteractionNotFound", err)
	}
}

func TestSubmitFeedback_ResubmitReplacesRow(t *testing.T) {
	runner := &fakeRunner{
		resp:  &agent.Response{Answer: "x"},
		trail: []ai.ChatMessage{{Role: ai.RoleUser, Content: "q"}},
	}
	transcripts := newFakeTranscripts()
	conversations := &fakeConversations{owned: map[string]uint{"conv-1": 7}}
	interactions := &fakeInteractions{docs: map[string]model.Document{}}
	feedback := &fakeFeedback{}
	svc := NewChatService(runner, transcripts, conversations, interactions, feedback, &fakeDiscards{})

	if _, err := svc.SendMessage(context.Background(), 7, "conv-1", "q"); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	id := interactions.created[0].ID

	if _, err := svc.SubmitFeedback(id, true); err != nil {
		t.Fatalf("first feedback failed: %v", err)
	}
	fb, err := svc.SubmitFeedback(id, false)
	if err != nil {
		t.Fatalf("second feedback failed: %v", err)
	}
	if fb.IsPositive {
		t.Errorf("resubmission did not replace polarity")
	}
	if len(feedback.rows) != 1 {
		t.Fatalf("feedback rows = %d, want exactly 1", len(feedback.rows))
	}
	if feedback.rows[0].IsPositive {
		t.Errorf("stored row kept the first polarity")
	}
}
