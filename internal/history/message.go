package history

// Role identifies who produced a message.
type Role string

// Replies are rendered to the transport but never stored, so there is no
// assistant role here: histories only ever hold system, user and tool entries.
const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleTool   Role = "tool"
)

// Message is a single entry in a conversation history. Name carries the tool
// name for RoleTool messages and is empty otherwise.
type Message struct {
	Role    Role
	Name    string
	Content string
}
