// Package agent orchestrates one reasoning/tool-call loop per user turn: the
// model decides per step whether to call the retrieval tool or to emit the
// final structured answer.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"docuchat/internal/ai"
)

const systemPrompt = `You are a helpful assistant that answers questions about the user's uploaded documents.
You can engage in casual conversation and also use your retrieval tool to augment the information you have.
For every user message decide whether it is part of a normal conversation or relevant to the stored documents; if it is relevant, call the retrieval tool.

IMPORTANT INSTRUCTIONS:
1. Prioritize information from the retrieved documents in your answer.
2. Pay attention to the 'Source:' field in the retrieved context - it names the document a passage came from.
3. Your final reply MUST be a single JSON object: {"answer": "<your answer>", "used_documents": ["<filename>", ...]}.
4. Populate used_documents with ALL unique filenames that appear in a 'Source:' field of context you actually used, in the order you used them. Extract only the filename (e.g. "climate_report.pdf").
5. If no relevant information is found, tell the user so in the answer and leave used_documents empty.`

// Response is the agent's structured output for one turn.
type Response struct {
	Answer        string   `json:"answer"`
	UsedDocuments []string `json:"used_documents"`
}

// InvocationError wraps any unrecoverable generation or tool-execution
// failure; the turn is aborted and nothing is persisted.
type InvocationError struct {
	Err error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("agent invocation failed: %v", e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// Generator is the slice of the model client the agent depends on.
type Generator interface {
	Generate(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage, tools []ai.ToolSpec) (*ai.Generation, error)
}

type Agent struct {
	generator     Generator
	tool          *RetrieverTool
	chatCfg       ai.ChatConfig
	maxIterations int
}

func New(generator Generator, tool *RetrieverTool, chatCfg ai.ChatConfig, maxIterations int) *Agent {
	if maxIterations <= 0 {
		maxIterations = 6
	}
	return &Agent{
		generator:     generator,
		tool:          tool,
		chatCfg:       chatCfg,
		maxIterations: maxIterations,
	}
}

// Run executes one turn on top of the given history. It returns the
// structured response and the turn's message trail (user question, any tool
// traffic, final assistant message) for the caller to append to the
// conversation transcript. On error the trail is nil and nothing should be
// persisted.
func (a *Agent) Run(ctx context.Context, history []ai.ChatMessage, question string) (*Response, []ai.ChatMessage, error) {
	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: systemPrompt})
	messages = append(messages, history...)

	userMsg := ai.ChatMessage{Role: ai.RoleUser, Content: question}
	messages = append(messages, userMsg)
	trail := []ai.ChatMessage{userMsg}

	tools := []ai.ToolSpec{a.tool.Spec()}

	for i := 0; i < a.maxIterations; i++ {
		gen, err := a.generator.Generate(ctx, a.chatCfg, messages, tools)
		if err != nil {
			return nil, nil, &InvocationError{Err: err}
		}

		messages = append(messages, gen.Message)
		trail = append(trail, gen.Message)

		if !gen.HasToolCalls() {
			resp := parseStructured(gen.Message.Content)
			return resp, trail, nil
		}

		for _, call := range gen.Message.ToolCalls {
			result, err := a.executeToolCall(ctx, call)
			if err != nil {
				return nil, nil, &InvocationError{Err: err}
			}
			toolMsg := ai.ChatMessage{
				Role:       ai.RoleTool,
				Content:    result,
				ToolCallID: call.ID,
			}
			messages = append(messages, toolMsg)
			trail = append(trail, toolMsg)
		}
	}

	return nil, nil, &InvocationError{Err: fmt.Errorf("no final answer after %d tool iterations", a.maxIterations)}
}

func (a *Agent) executeToolCall(ctx context.Context, call ai.ToolCall) (string, error) {
	if call.Function.Name != RetrieveToolName {
		return "", fmt.Errorf("model requested unknown tool %q", call.Function.Name)
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
		return "", fmt.Errorf("decode tool arguments failed: %w", err)
	}

	log.Debug().Str("tool", call.Function.Name).Str("query", args.Query).Msg("executing retrieval tool")
	return a.tool.Retrieve(ctx, args.Query)
}

// parseStructured decodes the final model message. The model is instructed,
// not forced, to emit JSON; if decoding fails the raw text becomes the answer
// with no citations rather than failing an otherwise complete turn.
func parseStructured(content string) *Response {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var resp Response
	if err := json.Unmarshal([]byte(trimmed), &resp); err == nil && resp.Answer != "" {
		return &resp
	}

	log.Warn().Msg("agent reply was not valid structured output, using raw text")
	return &Response{Answer: content}
}

// AnswerText extracts the plain answer from a stored assistant message,
// unwrapping the structured output format when present.
func AnswerText(content string) string {
	return parseStructured(content).Answer
}
