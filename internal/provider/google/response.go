package google

import (
	"encoding/json"
	"fmt"

	"github.com/ikigai/ikigai/internal/provider"
)

// parseResponse materializes a non-streaming generateContent body into a
// provider.Response, mirroring ik_google_parse_response. Unlike the stream
// path, a thought signature found alongside a functionCall part is attached
// directly to the resulting ToolCall block (SPEC_FULL.md §4.3,
// "Non-streaming response parsing").
func parseResponse(raw []byte) (*provider.Response, error) {
	var chunk wireChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, &parseError{msg: "invalid JSON in response body"}
	}

	if chunk.Error != nil {
		message := chunk.Error.Message
		if message == "" {
			message = "Unknown error"
		}
		return nil, &providerError{message: message}
	}

	if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
		return nil, &providerError{message: fmt.Sprintf("blocked: %s", chunk.PromptFeedback.BlockReason)}
	}

	resp := &provider.Response{
		Model:        chunk.ModelVersion,
		FinishReason: provider.FinishUnknown,
	}

	if len(chunk.Candidates) > 0 {
		cand := chunk.Candidates[0]
		resp.FinishReason = mapFinishReason(cand.FinishReason)

		for _, part := range cand.Content.Parts {
			if part.FunctionCall != nil {
				args := "{}"
				if part.FunctionCall.Args != nil {
					if fragment, err := json.Marshal(part.FunctionCall.Args); err == nil {
						args = string(fragment)
					}
				}
				block := provider.ContentBlock{
					Kind:         provider.ContentToolCall,
					ToolCallID:   generateToolID(),
					ToolCallName: part.FunctionCall.Name,
					ToolCallArgs: args,
				}
				if part.ThoughtSignature != "" {
					block.ThoughtSignature = part.ThoughtSignature
				}
				resp.Content = append(resp.Content, block)
				continue
			}

			if part.Text == "" {
				continue
			}
			if part.Thought {
				resp.Content = append(resp.Content, provider.ContentBlock{Kind: provider.ContentThinking, ThinkingText: part.Text})
			} else {
				resp.Content = append(resp.Content, provider.ContentBlock{Kind: provider.ContentText, Text: part.Text})
			}
		}
	}

	if chunk.UsageMetadata != nil {
		resp.Usage = provider.Usage{
			InputTokens:    chunk.UsageMetadata.PromptTokenCount,
			ThinkingTokens: chunk.UsageMetadata.ThoughtsTokenCount,
			OutputTokens:   chunk.UsageMetadata.CandidatesTokenCount - chunk.UsageMetadata.ThoughtsTokenCount,
			TotalTokens:    chunk.UsageMetadata.TotalTokenCount,
		}
	}

	return resp, nil
}

// parseError signals a malformed response body (SPEC_FULL.md §3 "Parse").
type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

// Category reports the canonical error category, provider.ErrParse.
func (e *parseError) Category() provider.ErrorCategory { return provider.ErrParse }

// providerError signals an in-body `error` or `promptFeedback.blockReason`
// (SPEC_FULL.md §3 "Provider").
type providerError struct{ message string }

func (e *providerError) Error() string { return e.message }

func (e *providerError) Category() provider.ErrorCategory { return provider.ErrProvider }
