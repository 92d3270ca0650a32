package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	name   string
	schema string
	run    func(ctx context.Context, args map[string]any) (string, error)
}

func (f *fakeTool) Name() string                { return f.name }
func (f *fakeTool) Description() string         { return "fake tool for tests" }
func (f *fakeTool) Parameters() json.RawMessage { return json.RawMessage(f.schema) }

func (f *fakeTool) Run(ctx context.Context, args map[string]any) (string, error) {
	if f.run != nil {
		return f.run(ctx, args)
	}
	return "ok", nil
}

func newTestRegistry(t ...Tool) *Registry {
	r := NewRegistry()
	for _, tool := range t {
		r.Register(tool)
	}
	return r
}

func TestInvoke_UnknownTool(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Invoke(context.Background(), "delete_server", "{}")
	require.ErrorIs(t, err, ErrUnknownTool)
}

func TestInvoke_MalformedArguments(t *testing.T) {
	r := newTestRegistry(&fakeTool{name: "echo", schema: `{"type":"object","properties":{}}`})
	_, err := r.Invoke(context.Background(), "echo", `{"not json`)
	require.ErrorIs(t, err, ErrInvalidArguments)
}

func TestInvoke_MissingRequiredParameter(t *testing.T) {
	r := newTestRegistry(&fakeTool{
		name:   "google_search",
		schema: `{"type":"object","properties":{"search_term":{"type":"string"},"num_results":{"type":"integer"}},"required":["search_term","num_results"]}`,
	})
	_, err := r.Invoke(context.Background(), "google_search", `{"search_term":"weather"}`)
	require.ErrorIs(t, err, ErrInvalidArguments)
	require.Contains(t, err.Error(), "num_results")
}

func TestInvoke_Success(t *testing.T) {
	r := newTestRegistry(&fakeTool{
		name:   "echo",
		schema: `{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`,
		run: func(_ context.Context, args map[string]any) (string, error) {
			return args["text"].(string), nil
		},
	})
	out, err := r.Invoke(context.Background(), "echo", `{"text":"hello"}`)
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestInvoke_EmptyArgumentsAllowedWhenNoneRequired(t *testing.T) {
	r := newTestRegistry(&fakeTool{name: "get_date_time", schema: `{"type":"object","properties":{"timezone":{"type":"string"}}}`})
	out, err := r.Invoke(context.Background(), "get_date_time", "")
	require.NoError(t, err)
	require.Equal(t, "ok", out)
}

func TestInvoke_WrapsToolFailure(t *testing.T) {
	boom := errors.New("upstream boom")
	r := newTestRegistry(&fakeTool{
		name:   "flaky",
		schema: `{"type":"object","properties":{}}`,
		run: func(context.Context, map[string]any) (string, error) {
			return "", boom
		},
	})
	_, err := r.Invoke(context.Background(), "flaky", "{}")
	require.ErrorIs(t, err, ErrExecution)
	require.Contains(t, err.Error(), "upstream boom")
}

func TestRegister_DuplicateKeepsFirst(t *testing.T) {
	first := &fakeTool{name: "dup", schema: `{}`, run: func(context.Context, map[string]any) (string, error) { return "first", nil }}
	second := &fakeTool{name: "dup", schema: `{}`, run: func(context.Context, map[string]any) (string, error) { return "second", nil }}
	r := newTestRegistry(first, second)

	out, err := r.Invoke(context.Background(), "dup", "{}")
	require.NoError(t, err)
	require.Equal(t, "first", out)
}

func TestSpecs_SortedAndComplete(t *testing.T) {
	r := newTestRegistry(
		&fakeTool{name: "scrape_web_page", schema: `{"type":"object"}`},
		&fakeTool{name: "get_date_time", schema: `{"type":"object"}`},
		&fakeTool{name: "google_search", schema: `{"type":"object"}`},
	)
	specs := r.Specs()
	require.Len(t, specs, 3)
	require.Equal(t, "get_date_time", specs[0].Function.Name)
	require.Equal(t, "google_search", specs[1].Function.Name)
	require.Equal(t, "scrape_web_page", specs[2].Function.Name)
}
