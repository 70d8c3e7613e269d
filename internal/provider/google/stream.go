package google

import (
	"encoding/json"

	"github.com/ikigai/ikigai/internal/provider"
)

// streamContext accumulates per-stream state across chunks, mirroring
// ik_google_stream_ctx_t from
// _examples/original_source/src/providers/google/streaming_internal.h.
type streamContext struct {
	emit func(provider.StreamEvent)

	model        string
	started      bool
	inThinking   bool
	inToolCall   bool
	partIndex    int
	finishReason provider.FinishReason

	currentToolID   string
	currentToolName string

	usage provider.Usage
}

func newStreamContext(emit func(provider.StreamEvent)) *streamContext {
	return &streamContext{
		emit:         emit,
		finishReason: provider.FinishUnknown,
	}
}

// processChunk handles one decoded JSON object from the SSE stream, per
// ik_google_stream_process_data.
func (sc *streamContext) processChunk(raw []byte) {
	var chunk wireChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		// Malformed chunk: ignore and let the stream continue, per
		// SPEC_FULL.md §4.3.
		return
	}

	if chunk.Error != nil {
		sc.processError(chunk.Error)
		return
	}

	if !sc.started {
		sc.started = true
		sc.model = chunk.ModelVersion
		sc.emit(provider.StreamEvent{Kind: provider.EventStart, Model: sc.model})
	}

	if len(chunk.Candidates) > 0 {
		cand := chunk.Candidates[0]
		if cand.FinishReason != "" {
			sc.finishReason = mapFinishReason(cand.FinishReason)
		}
		if len(cand.Content.Parts) > 0 {
			sc.processParts(cand.Content.Parts)
		}
	}

	if chunk.UsageMetadata != nil {
		sc.processUsage(chunk.UsageMetadata)
	}
}

// processError emits a terminal Error event, per
// ik_google_stream_process_error.
func (sc *streamContext) processError(errObj *wireError) {
	message := "Unknown error"
	if errObj.Message != "" {
		message = errObj.Message
	}
	sc.emit(provider.StreamEvent{
		Kind:          provider.EventError,
		ErrorCategory: mapErrorStatus(errObj.Status),
		ErrorMessage:  message,
	})
}

// mapErrorStatus maps a Gemini error status string to the canonical
// category, per map_error_status.
func mapErrorStatus(status string) provider.ErrorCategory {
	switch status {
	case "UNAUTHENTICATED":
		return provider.ErrAuth
	case "RESOURCE_EXHAUSTED":
		return provider.ErrRateLimit
	case "INVALID_ARGUMENT":
		return provider.ErrInvalidArg
	default:
		return provider.ErrUnknown
	}
}

// endToolCallIfNeeded closes an in-progress tool call by emitting
// ToolCallDone; arguments are not accumulated here. Mirrors
// ik_google_stream_end_tool_call_if_needed.
func (sc *streamContext) endToolCallIfNeeded() {
	if !sc.inToolCall {
		return
	}
	sc.emit(provider.StreamEvent{Kind: provider.EventToolCallDone, Index: sc.partIndex})
	sc.inToolCall = false
}

// processParts walks one candidate's content parts, mirroring
// ik_google_stream_process_parts.
func (sc *streamContext) processParts(parts []wirePart) {
	for _, part := range parts {
		if part.FunctionCall != nil {
			sc.processFunctionCall(part.FunctionCall)
			continue
		}

		if part.Text == "" {
			continue
		}

		if part.Thought {
			sc.processThinkingPart(part.Text)
		} else {
			sc.processTextPart(part.Text)
		}
	}
}

// processFunctionCall mirrors process_function_call.
func (sc *streamContext) processFunctionCall(call *wireFunctionCall) {
	if !sc.inToolCall {
		sc.currentToolID = generateToolID()
		sc.currentToolName = call.Name

		sc.emit(provider.StreamEvent{
			Kind:         provider.EventToolCallStart,
			Index:        sc.partIndex,
			ToolCallID:   sc.currentToolID,
			ToolCallName: sc.currentToolName,
		})
		sc.inToolCall = true
	}

	if call.Args != nil {
		fragment, err := json.Marshal(call.Args)
		if err == nil {
			sc.emit(provider.StreamEvent{
				Kind:         provider.EventToolCallDelta,
				Index:        sc.partIndex,
				ArgsFragment: string(fragment),
			})
		}
	}
}

// processThinkingPart mirrors process_thinking_part.
func (sc *streamContext) processThinkingPart(text string) {
	sc.endToolCallIfNeeded()
	sc.inThinking = true
	sc.emit(provider.StreamEvent{Kind: provider.EventThinkingDelta, Index: sc.partIndex, Text: text})
}

// processTextPart mirrors process_text_part.
func (sc *streamContext) processTextPart(text string) {
	sc.endToolCallIfNeeded()
	if sc.inThinking {
		sc.partIndex++
		sc.inThinking = false
	}
	sc.emit(provider.StreamEvent{Kind: provider.EventTextDelta, Index: sc.partIndex, Text: text})
}

// processUsage mirrors ik_google_stream_process_usage: it derives usage
// counters, closes any open tool call, and emits the terminal Done event.
func (sc *streamContext) processUsage(usageObj *wireUsageMetadata) {
	sc.usage = provider.Usage{
		InputTokens:    usageObj.PromptTokenCount,
		ThinkingTokens: usageObj.ThoughtsTokenCount,
		OutputTokens:   usageObj.CandidatesTokenCount - usageObj.ThoughtsTokenCount,
		TotalTokens:    usageObj.TotalTokenCount,
		CachedTokens:   0,
	}

	sc.endToolCallIfNeeded()

	sc.emit(provider.StreamEvent{
		Kind:         provider.EventDone,
		FinishReason: sc.finishReason,
		Usage:        sc.usage,
		ProviderData: nil,
	})
}

// mapFinishReason maps a Gemini finishReason string to the canonical enum.
func mapFinishReason(reason string) provider.FinishReason {
	switch reason {
	case "STOP":
		return provider.FinishStop
	case "MAX_TOKENS":
		return provider.FinishLength
	case "SAFETY", "BLOCKLIST", "PROHIBITED_CONTENT", "IMAGE_SAFETY", "IMAGE_PROHIBITED_CONTENT", "RECITATION":
		return provider.FinishContentFilter
	case "MALFORMED_FUNCTION_CALL", "UNEXPECTED_TOOL_CALL":
		return provider.FinishError
	default:
		return provider.FinishUnknown
	}
}
