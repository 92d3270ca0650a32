// Package tools declares the capabilities the model may request mid-turn and
// maps requested tool names to their executors.
package tools

import (
	"context"
	"encoding/json"
	"errors"
)

// Tool is the interface for all tools the model can invoke.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON Schema of the tool's arguments, fed
	// verbatim to the model as part of the tool declaration.
	Parameters() json.RawMessage
	Run(ctx context.Context, args map[string]any) (string, error)
}

var (
	// ErrUnknownTool means the model requested a name that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments means the argument payload did not parse or is
	// missing required parameters.
	ErrInvalidArguments = errors.New("invalid tool arguments")
	// ErrExecution wraps a registered tool's own failure.
	ErrExecution = errors.New("tool execution failed")
)
