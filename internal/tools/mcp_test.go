package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

type mockCaller struct {
	callFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

func (m *mockCaller) CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return m.callFunc(ctx, request)
}

func TestMCPTool_Run(t *testing.T) {
	tool := &mcpTool{
		caller: &mockCaller{callFunc: func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			require.Equal(t, "get_weather", req.Params.Name)
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "sunny in London"}},
			}, nil
		}},
		name:   "get_weather",
		schema: json.RawMessage(`{"type":"object","properties":{}}`),
	}

	out, err := tool.Run(context.Background(), map[string]any{"location": "London"})
	require.NoError(t, err)
	require.Equal(t, "sunny in London", out)
}

func TestMCPTool_RunServerError(t *testing.T) {
	tool := &mcpTool{
		caller: &mockCaller{callFunc: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "upstream unavailable"}},
			}, nil
		}},
		name: "get_weather",
	}

	_, err := tool.Run(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "upstream unavailable")
}

func TestMCPTool_RunTransportError(t *testing.T) {
	tool := &mcpTool{
		caller: &mockCaller{callFunc: func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, errors.New("connection refused")
		}},
		name: "get_weather",
	}

	_, err := tool.Run(context.Background(), nil)
	require.Error(t, err)
}
