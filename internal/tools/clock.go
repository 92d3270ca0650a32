package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ClockTool reports the current date and time in a requested timezone.
type ClockTool struct {
	// now is overridable in tests.
	now func() time.Time
}

// NewClockTool builds the tool against the real clock.
func NewClockTool() *ClockTool {
	return &ClockTool{now: time.Now}
}

func (t *ClockTool) Name() string { return "get_date_time" }

func (t *ClockTool) Description() string {
	return "Get the current date and time."
}

func (t *ClockTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"timezone": {"type": "string"}
		}
	}`)
}

func (t *ClockTool) Run(_ context.Context, args map[string]any) (string, error) {
	tz := "UTC"
	if v, ok := args["timezone"].(string); ok && v != "" {
		tz = v
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return t.now().In(loc).Format("2006-01-02 15:04:05"), nil
}
