package ollama

// Message is one turn of a /api/chat conversation.
type Message struct {
	Role    string   `json:"role"` // "user", "assistant", "system"
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // base64, no data: prefix
}

// NewUserMessage creates a user message, optionally carrying images.
func NewUserMessage(content string, images ...string) Message {
	return Message{Role: "user", Content: content, Images: images}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}

// GenerateRequest is the request body for /api/generate.
type GenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Images  []string       `json:"images,omitempty"`
	Think   bool           `json:"think,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// ChatRequest is the request body for /api/chat.
type ChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Think    bool           `json:"think,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

// frame is one NDJSON line of either endpoint. /api/generate fills
// Response, /api/chat fills Message.
type frame struct {
	Model      string  `json:"model"`
	Response   string  `json:"response"`
	Message    Message `json:"message"`
	Done       bool    `json:"done"`
	DoneReason string  `json:"done_reason,omitempty"`
	Error      string  `json:"error,omitempty"`
	EvalCount  int     `json:"eval_count,omitempty"`
}

// Chunk is the decoded content of one frame.
type Chunk struct {
	Content    string
	Done       bool
	DoneReason string
	Model      string
	EvalCount  int
}

// TokenFunc receives each non-empty content fragment in arrival order.
// Returning an error stops the stream.
type TokenFunc func(fragment string) error
