package google

// Wire types for the Gemini generateContent/streamGenerateContent API.
// Field names mirror the JSON the API actually sends; only the subset the
// stream/response adapters consume is modeled.

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	ThoughtSignature string            `json:"thoughtSignature,omitempty"`
	FunctionCall     *wireFunctionCall `json:"functionCall,omitempty"`
}

type wireFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type wireCandidate struct {
	Content      wireContent `json:"content"`
	FinishReason string      `json:"finishReason,omitempty"`
}

type wireUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	ThoughtsTokenCount   int `json:"thoughtsTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type wireError struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type wireErrorEnvelope struct {
	Error *wireError `json:"error,omitempty"`
}

// wireChunk is the shape of one streamGenerateContent SSE data payload, and
// also (candidates/usageMetadata/promptFeedback/error aside) of one
// generateContent JSON response body.
type wireChunk struct {
	ModelVersion   string             `json:"modelVersion,omitempty"`
	Candidates     []wireCandidate    `json:"candidates,omitempty"`
	UsageMetadata  *wireUsageMetadata `json:"usageMetadata,omitempty"`
	Error          *wireError         `json:"error,omitempty"`
	PromptFeedback *wirePromptFeedback `json:"promptFeedback,omitempty"`
}

type wirePromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// requestBody is the outgoing generateContent/streamGenerateContent payload.
type requestBody struct {
	Contents          []wireContent      `json:"contents"`
	SystemInstruction *wireContent       `json:"systemInstruction,omitempty"`
	Tools             []requestTool      `json:"tools,omitempty"`
	ToolConfig        *requestToolConfig `json:"toolConfig,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
}

type requestTool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type requestToolConfig struct {
	FunctionCallingConfig requestFunctionCallingConfig `json:"functionCallingConfig"`
}

type requestFunctionCallingConfig struct {
	Mode string `json:"mode"`
}

type generationConfig struct {
	MaxOutputTokens int             `json:"maxOutputTokens,omitempty"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget  int  `json:"thinkingBudget,omitempty"`
	IncludeThoughts bool `json:"includeThoughts,omitempty"`
}
