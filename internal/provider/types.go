// Package provider defines the Go-native reading of SPEC_FULL.md §6's
// curl-multi-shaped transport vtable: a Provider interface whose streaming
// and non-streaming calls deliver results over channels instead of through
// fdset/perform/info_read polling. See SPEC_FULL.md §1.1.
package provider

import "context"

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentBlock is a tagged variant over the block kinds a Message can carry.
type ContentBlock struct {
	Kind ContentKind `json:"kind"`

	Text string `json:"text,omitempty"`

	ThinkingText      string `json:"thinking_text,omitempty"`
	ThoughtSignature  string `json:"thought_signature,omitempty"`

	ToolCallID   string `json:"tool_call_id,omitempty"`
	ToolCallName string `json:"tool_call_name,omitempty"`
	ToolCallArgs string `json:"tool_call_arguments,omitempty"`

	ToolResultForID string `json:"tool_result_for_id,omitempty"`
	ToolResultText  string `json:"tool_result_text,omitempty"`
	ToolResultError bool   `json:"tool_result_error,omitempty"`
}

// ContentKind discriminates ContentBlock variants.
type ContentKind string

const (
	ContentText       ContentKind = "text"
	ContentThinking   ContentKind = "thinking"
	ContentToolCall   ContentKind = "tool_call"
	ContentToolResult ContentKind = "tool_result"
)

// Message is one turn of conversation.
type Message struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ThinkingLevel controls a model's extended-reasoning budget.
type ThinkingLevel string

const (
	ThinkingNone   ThinkingLevel = "none"
	ThinkingLow    ThinkingLevel = "low"
	ThinkingMedium ThinkingLevel = "medium"
	ThinkingHigh   ThinkingLevel = "high"
)

// ToolChoiceMode controls whether/how the model must call a tool.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
)

// ToolDefinition describes one callable tool for a Request.
type ToolDefinition struct {
	Name        string
	Description string
	Schema      map[string]any
	Strict      bool
}

// ThinkingConfig controls a request's extended-reasoning behavior.
type ThinkingConfig struct {
	Level          ThinkingLevel
	IncludeSummary bool
}

// Request is one model invocation.
type Request struct {
	Model           string
	SystemPrompt    string
	Messages        []Message
	Tools           []ToolDefinition
	Thinking        *ThinkingConfig
	MaxOutputTokens int
	ToolChoice      ToolChoiceMode
}

// FinishReason is the canonical reason a response stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishContentFilter FinishReason = "content_filter"
	FinishError         FinishReason = "error"
	FinishToolUse       FinishReason = "tool_use"
	FinishUnknown       FinishReason = "unknown"
)

// Usage reports token accounting for one response.
type Usage struct {
	InputTokens    int
	OutputTokens   int
	ThinkingTokens int
	CachedTokens   int
	TotalTokens    int
}

// Response is a fully materialized model reply.
type Response struct {
	Model           string
	FinishReason    FinishReason
	Content         []ContentBlock
	Usage           Usage
	ProviderData    *string
}

// ErrorCategory is the closed taxonomy from SPEC_FULL.md §3/§7.
type ErrorCategory string

const (
	ErrInvalidArg   ErrorCategory = "invalid_arg"
	ErrAuth         ErrorCategory = "auth"
	ErrNotFound     ErrorCategory = "not_found"
	ErrRateLimit    ErrorCategory = "rate_limit"
	ErrServer       ErrorCategory = "server"
	ErrTimeout      ErrorCategory = "timeout"
	ErrNetwork      ErrorCategory = "network"
	ErrParse        ErrorCategory = "parse"
	ErrProvider     ErrorCategory = "provider"
	ErrOutOfMemory  ErrorCategory = "out_of_memory"
	ErrUnknown      ErrorCategory = "unknown"
)

// StreamEventKind discriminates StreamEvent variants.
type StreamEventKind string

const (
	EventStart         StreamEventKind = "start"
	EventTextDelta     StreamEventKind = "text_delta"
	EventThinkingDelta StreamEventKind = "thinking_delta"
	EventToolCallStart StreamEventKind = "tool_call_start"
	EventToolCallDelta StreamEventKind = "tool_call_delta"
	EventToolCallDone  StreamEventKind = "tool_call_done"
	EventDone          StreamEventKind = "done"
	EventError         StreamEventKind = "error"
)

// StreamEvent is one unit of a streaming response, per SPEC_FULL.md §3.
type StreamEvent struct {
	Kind  StreamEventKind
	Index int

	// EventStart
	Model string

	// EventTextDelta / EventThinkingDelta
	Text string

	// EventToolCallStart
	ToolCallID   string
	ToolCallName string

	// EventToolCallDelta
	ArgsFragment string

	// EventDone
	FinishReason FinishReason
	Usage        Usage
	ProviderData *string

	// EventError
	ErrorCategory ErrorCategory
	ErrorMessage  string
}

// Provider is the Go-native reading of the curl-multi style transport
// vtable (SPEC_FULL.md §6). StartStream/StartRequest return immediately;
// the caller drains the returned channel inside the event loop's select.
type Provider interface {
	// StartStream begins a streaming request. The returned channel is closed
	// after the terminal Done/Error event has been delivered.
	StartStream(ctx context.Context, req *Request) (<-chan StreamEvent, error)

	// StartRequest performs a non-streaming request synchronously. Callers
	// run this on their own goroutine; the event loop never blocks on it.
	StartRequest(ctx context.Context, req *Request) (*Response, error)

	// Name identifies the provider for diagnostics and pricing lookups.
	Name() string
}
