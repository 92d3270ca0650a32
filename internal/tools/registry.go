package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sashabaranov/go-openai"

	"github.com/XenioxYT/discord-chatbot/internal/logger"
)

// Registry holds the tools available to the model. Tools are registered at
// startup and the set is immutable afterwards.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. A duplicate name keeps the first registration; later
// ones are dropped with a warning so an MCP server cannot shadow a built-in.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; exists {
		logger.L.Warn("tool already registered, skipping", "tool", t.Name())
		return
	}
	r.tools[t.Name()] = t
}

// Specs returns the tool declarations in name order, ready to be passed to
// the model call.
func (r *Registry) Specs() []openai.Tool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	specs := make([]openai.Tool, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		specs = append(specs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return specs
}

// Invoke validates and executes one tool call. rawArgs is the JSON argument
// payload exactly as produced by the model.
func (r *Registry) Invoke(ctx context.Context, name, rawArgs string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	args := map[string]any{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
		}
	}

	if missing := missingRequired(t.Parameters(), args); len(missing) > 0 {
		return "", fmt.Errorf("%w: %s: missing required parameters %v", ErrInvalidArguments, name, missing)
	}

	out, err := t.Run(ctx, args)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExecution, name, err)
	}
	return out, nil
}

// missingRequired checks args against the schema's "required" list.
func missingRequired(schema json.RawMessage, args map[string]any) []string {
	var decl struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal(schema, &decl); err != nil {
		return nil
	}
	var missing []string
	for _, key := range decl.Required {
		if _, ok := args[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}
