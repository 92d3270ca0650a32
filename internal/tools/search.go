package tools

import (
	"context"
	"encoding/json"
	"fmt"

	customsearch "google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/XenioxYT/discord-chatbot/internal/config"
	"github.com/XenioxYT/discord-chatbot/internal/logger"
)

const defaultNumResults = 5

// GoogleSearchTool performs a Google Custom Search and serializes the top
// results for the model.
type GoogleSearchTool struct {
	svc   *customsearch.Service
	cseID string
	gl    string
}

// NewGoogleSearchTool builds the tool from the configured credentials.
func NewGoogleSearchTool(ctx context.Context, cfg config.GoogleConfig) (*GoogleSearchTool, error) {
	svc, err := customsearch.NewService(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create customsearch service: %w", err)
	}
	return &GoogleSearchTool{svc: svc, cseID: cfg.CSEID, gl: cfg.GL}, nil
}

func (t *GoogleSearchTool) Name() string { return "google_search" }

func (t *GoogleSearchTool) Description() string {
	return "Perform a Google search. Interpret the results given by the API and return them in a conversational format."
}

func (t *GoogleSearchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"search_term": {"type": "string"},
			"num_results": {"type": "integer"}
		},
		"required": ["search_term", "num_results"]
	}`)
}

type searchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

func (t *GoogleSearchTool) Run(ctx context.Context, args map[string]any) (string, error) {
	term, _ := args["search_term"].(string)
	if term == "" {
		return "", fmt.Errorf("search_term must be a non-empty string")
	}
	num := defaultNumResults
	// JSON numbers decode as float64.
	if n, ok := args["num_results"].(float64); ok && n > 0 {
		num = int(n)
	}

	resp, err := t.svc.Cse.List().Q(term).Cx(t.cseID).Gl(t.gl).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("customsearch list: %w", err)
	}

	items := resp.Items
	if len(items) > num {
		items = items[:num]
	}
	results := make([]searchResult, 0, len(items))
	for _, item := range items {
		results = append(results, searchResult{Title: item.Title, Link: item.Link, Snippet: item.Snippet})
	}

	out, err := json.Marshal(results)
	if err != nil {
		return "", err
	}
	logger.L.Debug("google search executed", "term", term, "results", len(results))
	return string(out), nil
}
