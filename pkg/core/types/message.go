package types

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool marks a structured note recording the outcome of a tool
	// execution. Providers that have no native tool role fold these into
	// assistant messages before sending.
	RoleTool Role = "tool"
)

// Message is a single entry in a call's conversation memory.
// Insertion order is significant: it defines the model context.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(text string) Message { return Message{Role: RoleSystem, Content: text} }

// User returns a user message.
func User(text string) Message { return Message{Role: RoleUser, Content: text} }

// Assistant returns an assistant message.
func Assistant(text string) Message { return Message{Role: RoleAssistant, Content: text} }

// ToolNote returns a tool-execution note.
func ToolNote(text string) Message { return Message{Role: RoleTool, Content: text} }
