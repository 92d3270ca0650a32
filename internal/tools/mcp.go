package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/XenioxYT/discord-chatbot/internal/config"
	"github.com/XenioxYT/discord-chatbot/internal/logger"
)

// MCPCaller is the subset of the MCP client used at invocation time; it is
// easy to mock in tests.
type MCPCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// mcpTool adapts one tool discovered on an MCP server to the Tool interface.
type mcpTool struct {
	caller      MCPCaller
	name        string
	description string
	schema      json.RawMessage
}

func (t *mcpTool) Name() string                { return t.name }
func (t *mcpTool) Description() string         { return t.description }
func (t *mcpTool) Parameters() json.RawMessage { return t.schema }

func (t *mcpTool) Run(ctx context.Context, args map[string]any) (string, error) {
	result, err := t.caller.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: t.name, Arguments: args},
	})
	if err != nil {
		return "", err
	}
	text := firstText(result.Content)
	if result.IsError {
		if text == "" {
			text = "tool reported an error without details"
		}
		return "", fmt.Errorf("%s", text)
	}
	if text == "" {
		raw, merr := json.Marshal(result)
		if merr != nil {
			return "", fmt.Errorf("unformattable tool result: %w", merr)
		}
		text = string(raw)
	}
	return text, nil
}

func firstText(content []mcp.Content) string {
	for _, item := range content {
		if tc, ok := item.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// RegisterMCPServers dials each configured MCP server, discovers its tools
// and registers them. A server that fails to connect is skipped with a log;
// the bot's built-in tools never depend on external servers being up.
// The returned closers shut the client transports down.
func RegisterMCPServers(ctx context.Context, reg *Registry, servers []config.MCPServerConfig) []io.Closer {
	var closers []io.Closer

	for _, serverCfg := range servers {
		mcpC, err := dial(serverCfg)
		if err != nil {
			logger.L.Error("failed to create MCP client", "name", serverCfg.Name, "error", err)
			continue
		}

		if serverCfg.Type != config.ClientTypeStdio {
			if err := mcpC.Start(ctx); err != nil {
				logger.L.Error("failed to start MCP client transport", "name", serverCfg.Name, "error", err)
				closeQuietly(mcpC, serverCfg.Name)
				continue
			}
		}

		initReq := mcp.InitializeRequest{
			Params: mcp.InitializeParams{Capabilities: mcp.ClientCapabilities{}},
		}
		if _, err := mcpC.Initialize(ctx, initReq); err != nil {
			logger.L.Error("failed to initialize MCP client", "name", serverCfg.Name, "error", err)
			closeQuietly(mcpC, serverCfg.Name)
			continue
		}

		serverTools, err := mcpC.ListTools(ctx, mcp.ListToolsRequest{})
		if err != nil {
			logger.L.Warn("failed to list tools for MCP client", "name", serverCfg.Name, "error", err)
			closeQuietly(mcpC, serverCfg.Name)
			continue
		}

		for _, discovered := range serverTools.Tools {
			reg.Register(&mcpTool{
				caller:      mcpC,
				name:        discovered.Name,
				description: discovered.Description,
				schema:      schemaOf(discovered),
			})
			logger.L.Info("registered tool from MCP server", "tool", discovered.Name, "name", serverCfg.Name)
		}
		closers = append(closers, mcpC)
	}

	return closers
}

func dial(serverCfg config.MCPServerConfig) (*client.Client, error) {
	switch serverCfg.Type {
	case config.ClientTypeSSE:
		var opts []transport.ClientOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(serverCfg.Headers))
		}
		return client.NewSSEMCPClient(serverCfg.URL, opts...)
	case config.ClientTypeStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(serverCfg.Headers))
		}
		return client.NewStreamableHttpClient(serverCfg.URL, opts...)
	case config.ClientTypeStdio:
		var env []string
		for k, v := range serverCfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		return client.NewStdioMCPClient(serverCfg.Command, env, serverCfg.Args...)
	default:
		return nil, fmt.Errorf("unsupported MCP server type %q (use sse, streamable_http or stdio)", serverCfg.Type)
	}
}

// schemaOf prefers the server's raw schema and falls back to the structured
// one; a tool with no usable schema gets an empty object schema so the model
// can still call it without arguments.
func schemaOf(t mcp.Tool) json.RawMessage {
	if len(t.RawInputSchema) > 0 && string(t.RawInputSchema) != "null" {
		return t.RawInputSchema
	}
	raw, err := json.Marshal(t.InputSchema)
	if err == nil && len(raw) > 0 && string(raw) != "null" && string(raw) != "{}" {
		return raw
	}
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func closeQuietly(c io.Closer, name string) {
	if err := c.Close(); err != nil {
		logger.L.Warn("MCP client close error", "name", name, "error", err)
	}
}
