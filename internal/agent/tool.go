package agent

import (
	"context"
	"fmt"
	"strings"

	"docuchat/internal/ai"
	"docuchat/internal/vectorindex"
)

// RetrieveToolName is the capability name advertised to the model.
const RetrieveToolName = "retrieve_context"

// emptyIndexAdvisory is the terminal, non-error result returned when nothing
// is indexed yet.
const emptyIndexAdvisory = "The document vector store is currently empty. Notify the user and suggest to upload documents."

// sourceMarker prefixes each retrieved block with the bare filename of the
// chunk's origin. The agent is instructed to copy these filenames into its
// citation list, so the marker text is a contract and must not change.
const sourceMarker = "Source: "

// Searcher is the slice of the vector index the retrieval tool needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vectorindex.Result, error)
	IsEmpty() bool
}

// RetrieverTool wraps the vector index as a single callable capability
// exposed to the agent.
type RetrieverTool struct {
	index Searcher
	topK  int
}

func NewRetrieverTool(index Searcher, topK int) *RetrieverTool {
	if topK <= 0 {
		topK = 4
	}
	return &RetrieverTool{index: index, topK: topK}
}

func (t *RetrieverTool) Spec() ai.ToolSpec {
	return ai.ToolSpec{
		Name: RetrieveToolName,
		Description: "Retrieve information from the user's stored documents to help answer a query. " +
			"Only use this tool to search information relevant to the query, not for casual conversation.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The user's question or query.",
				},
			},
			"required": []string{"query"},
		},
	}
}

// Retrieve runs the similarity search and serializes each hit as a labeled
// block. An empty index short-circuits to the advisory string without
// touching the search path.
func (t *RetrieverTool) Retrieve(ctx context.Context, query string) (string, error) {
	if t.index.IsEmpty() {
		return emptyIndexAdvisory, nil
	}

	results, err := t.index.Search(ctx, query, t.topK)
	if err != nil {
		return "", fmt.Errorf("retrieval search failed: %w", err)
	}
	if len(results) == 0 {
		return emptyIndexAdvisory, nil
	}

	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = sourceMarker + r.Chunk.Source + "\nContent: " + r.Chunk.Text
	}
	return strings.Join(blocks, "\n\n"), nil
}
