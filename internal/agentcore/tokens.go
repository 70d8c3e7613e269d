package agentcore

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/ikigai/ikigai/internal/provider"
)

// tokenEncoding is the shared tiktoken encoding used for the pre-flight
// estimate (SPEC_FULL.md §6.2): Gemini has no published tiktoken encoding,
// so this approximates it with cl100k_base, the same fallback the teacher's
// token counter uses for every non-OpenAI model family.
var (
	tokenEncoding     *tiktoken.Tiktoken
	tokenEncodingOnce sync.Once
)

func getTokenEncoding() *tiktoken.Tiktoken {
	tokenEncodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return
		}
		tokenEncoding = enc
	})
	return tokenEncoding
}

// countTokens returns text's token count under the shared encoding, falling
// back to a rough 4-characters-per-token estimate if the encoding failed to
// load (mirrors TokenCounter.EstimateTokensForText's nil-encoding case).
func countTokens(text string) int {
	enc := getTokenEncoding()
	if enc == nil {
		return len(text) / 4
	}
	return len(enc.Encode(text, nil, nil))
}

// EstimateInputTokens returns a local pre-flight estimate of the prompt
// token count for the next request this agent would send, independent of
// the provider's own usageMetadata accounting. It walks systemPrompt plus
// every accumulated message's content blocks, counting whichever text each
// block kind carries.
func (a *Agent) EstimateInputTokens(systemPrompt string) int {
	total := countTokens(systemPrompt)
	for _, msg := range a.messages {
		total += countTokens(string(msg.Role))
		for _, block := range msg.Content {
			total += countTokens(blockText(block))
		}
	}
	return total
}

// blockText returns the text a ContentBlock contributes to the prompt,
// picking the field its Kind actually populates.
func blockText(block provider.ContentBlock) string {
	switch block.Kind {
	case provider.ContentThinking:
		return block.ThinkingText
	case provider.ContentToolCall:
		return strings.Join([]string{block.ToolCallName, block.ToolCallArgs}, " ")
	case provider.ContentToolResult:
		return block.ToolResultText
	default:
		return block.Text
	}
}
