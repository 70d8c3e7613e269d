package google

import (
	"encoding/json"

	"github.com/ikigai/ikigai/internal/provider"
)

// buildRequestBody converts the core's provider.Request into the Gemini
// wire shape described in SPEC_FULL.md §6, "Provider request JSON".
func buildRequestBody(req *provider.Request) *requestBody {
	body := &requestBody{
		Contents: make([]wireContent, 0, len(req.Messages)),
	}

	if req.SystemPrompt != "" {
		body.SystemInstruction = &wireContent{
			Parts: []wirePart{{Text: req.SystemPrompt}},
		}
	}

	for _, msg := range req.Messages {
		body.Contents = append(body.Contents, toWireContent(msg))
	}

	if len(req.Tools) > 0 {
		decls := make([]functionDeclaration, 0, len(req.Tools))
		for _, tool := range req.Tools {
			decls = append(decls, functionDeclaration{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Schema,
			})
		}
		body.Tools = []requestTool{{FunctionDeclarations: decls}}

		if req.ToolChoice != "" && req.ToolChoice != provider.ToolChoiceAuto {
			mode := "AUTO"
			switch req.ToolChoice {
			case provider.ToolChoiceNone:
				mode = "NONE"
			case provider.ToolChoiceRequired:
				mode = "ANY"
			}
			body.ToolConfig = &requestToolConfig{
				FunctionCallingConfig: requestFunctionCallingConfig{Mode: mode},
			}
		}
	}

	if req.MaxOutputTokens > 0 || req.Thinking != nil {
		gc := &generationConfig{MaxOutputTokens: req.MaxOutputTokens}
		if req.Thinking != nil && req.Thinking.Level != provider.ThinkingNone {
			gc.ThinkingConfig = &thinkingConfig{
				ThinkingBudget:  thinkingBudgetFor(req.Thinking.Level),
				IncludeThoughts: req.Thinking.IncludeSummary,
			}
		}
		body.GenerationConfig = gc
	}

	return body
}

// thinkingBudgetFor maps the core's coarse thinking level to a Gemini token
// budget. Exact values are a tuning knob, not a spec invariant.
func thinkingBudgetFor(level provider.ThinkingLevel) int {
	switch level {
	case provider.ThinkingLow:
		return 1024
	case provider.ThinkingMedium:
		return 8192
	case provider.ThinkingHigh:
		return 24576
	default:
		return 0
	}
}

// toWireContent converts one core Message into its Gemini Content shape.
func toWireContent(msg provider.Message) wireContent {
	role := "user"
	switch msg.Role {
	case provider.RoleAssistant:
		role = "model"
	case provider.RoleTool:
		role = "function"
	case provider.RoleUser:
		role = "user"
	}

	content := wireContent{Role: role}
	for _, block := range msg.Content {
		switch block.Kind {
		case provider.ContentText:
			content.Parts = append(content.Parts, wirePart{Text: block.Text})
		case provider.ContentThinking:
			content.Parts = append(content.Parts, wirePart{Text: block.ThinkingText, Thought: true, ThoughtSignature: block.ThoughtSignature})
		case provider.ContentToolCall:
			var args map[string]any
			_ = json.Unmarshal([]byte(block.ToolCallArgs), &args)
			content.Parts = append(content.Parts, wirePart{
				FunctionCall: &wireFunctionCall{Name: block.ToolCallName, Args: args},
			})
		case provider.ContentToolResult:
			content.Parts = append(content.Parts, wirePart{Text: block.ToolResultText})
		}
	}
	return content
}
