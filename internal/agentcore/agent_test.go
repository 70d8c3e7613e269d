package agentcore

import (
	"testing"

	"github.com/ikigai/ikigai/internal/provider"
	"github.com/ikigai/ikigai/internal/testutil"
	"github.com/ikigai/ikigai/internal/toolexec"
)

func newTestAgent(t *testing.T) *Agent {
	t.Helper()
	return New(nil, Config{ToolLoopMaxIterations: 3}, 100, nil, "")
}

func noopStream(events ...provider.StreamEvent) func(*provider.Request) (<-chan provider.StreamEvent, error) {
	return func(*provider.Request) (<-chan provider.StreamEvent, error) {
		ch := make(chan provider.StreamEvent, len(events))
		for _, ev := range events {
			ch <- ev
		}
		close(ch)
		return ch, nil
	}
}

func TestSubmitTransitionsToWaitingForLLM(t *testing.T) {
	a := newTestAgent(t)
	a.InputBuf.WriteString("hello")

	ch, err := a.Submit(noopStream(), nil, "", nil)
	testutil.RequireNoError(t, err, "submit")
	testutil.RequireEqual(t, a.State(), WaitingForLLM, "state after submit")
	testutil.RequireEqual(t, a.InputBuf.String(), "", "input buffer cleared")

	for range ch {
	}
}

func TestStreamDoneWithoutToolGoesIdle(t *testing.T) {
	a := newTestAgent(t)
	a.InputBuf.WriteString("hi")
	ch, err := a.Submit(noopStream(
		provider.StreamEvent{Kind: provider.EventTextDelta, Text: "hello\nworld"},
		provider.StreamEvent{Kind: provider.EventDone, FinishReason: provider.FinishStop},
	), nil, "", nil)
	testutil.RequireNoError(t, err, "submit")

	for ev := range ch {
		a.HandleStreamEvent(ev)
	}
	startTool, _ := a.StreamDone()

	testutil.RequireEqual(t, startTool, false, "no tool started")
	testutil.RequireEqual(t, a.State(), Idle, "state after done")
	lines := a.Scrollback.Lines()
	testutil.RequireEqual(t, len(lines), 2, "flushed line count")
	testutil.RequireEqual(t, lines[0].Text, "hello", "first flushed line")
	testutil.RequireEqual(t, lines[1].Text, "world", "residual line flushed on completion")
}

func TestStreamDoneWithToolCallStartsExecutingTool(t *testing.T) {
	a := newTestAgent(t)
	a.InputBuf.WriteString("do it")
	// The Gemini adapter's Done event carries STOP on a tool-call turn
	// (mapFinishReason has no path to ToolUse); StreamDone must still
	// recognize the ready pending tool call and force the loop onward.
	ch, err := a.Submit(noopStream(
		provider.StreamEvent{Kind: provider.EventToolCallStart, ToolCallID: "tool-1", ToolCallName: "grep"},
		provider.StreamEvent{Kind: provider.EventToolCallDelta, ArgsFragment: `{"pattern":`},
		provider.StreamEvent{Kind: provider.EventToolCallDelta, ArgsFragment: `"foo"}`},
		provider.StreamEvent{Kind: provider.EventToolCallDone},
		provider.StreamEvent{Kind: provider.EventDone, FinishReason: provider.FinishStop},
	), nil, "", nil)
	testutil.RequireNoError(t, err, "submit")

	for ev := range ch {
		a.HandleStreamEvent(ev)
	}
	startTool, call := a.StreamDone()

	testutil.RequireEqual(t, startTool, true, "tool call started")
	testutil.RequireEqual(t, a.State(), ExecutingTool, "state after done")
	testutil.RequireEqual(t, call.Name, "grep", "tool name")
	testutil.RequireEqual(t, call.ArgsJSON, `{"pattern":"foo"}`, "tool args reassembled")
	testutil.RequireTrue(t, a.ToolChildPID() == 0, "pid unset before BeginTool")
	testutil.RequireEqual(t, a.lastFinishReason, provider.FinishToolUse, "observed tool call overrides reported finish reason")
}

func TestToolCompletionContinuesLoopUnderBudget(t *testing.T) {
	a := newTestAgent(t)
	a.InputBuf.WriteString("go")
	// Same STOP-on-tool-call-turn shape as above: the continuation must
	// come from StreamDone's override, not from the provider's own event.
	ch, _ := a.Submit(noopStream(
		provider.StreamEvent{Kind: provider.EventToolCallStart, ToolCallID: "t1", ToolCallName: "grep"},
		provider.StreamEvent{Kind: provider.EventToolCallDone},
		provider.StreamEvent{Kind: provider.EventDone, FinishReason: provider.FinishStop},
	), nil, "", nil)
	for ev := range ch {
		a.HandleStreamEvent(ev)
	}
	a.StreamDone()

	cont := a.HandleToolCompletion(toolexec.Outcome{Result: "matches", ResultIsError: false})
	testutil.RequireTrue(t, cont, "loop continues under budget")
	testutil.RequireEqual(t, a.State(), WaitingForLLM, "state resumes waiting")
	testutil.RequireEqual(t, a.ToolChildPID(), int32(0), "pid cleared after completion")
}

func TestToolCompletionStopsAtBudget(t *testing.T) {
	a := newTestAgent(t)
	a.cfg.ToolLoopMaxIterations = 1
	a.toolIterationCount = 1
	a.lastFinishReason = provider.FinishToolUse
	a.pending = &pendingToolCall{id: "t1", name: "grep", ready: true}
	a.setState(ExecutingTool)

	cont := a.HandleToolCompletion(toolexec.Outcome{Result: "done"})
	testutil.RequireTrue(t, !cont, "loop stops at budget")
	testutil.RequireEqual(t, a.State(), Idle, "state goes idle at budget")
}

func TestInterruptedToolCompletionGoesIdleWithoutToolMessage(t *testing.T) {
	a := newTestAgent(t)
	a.pending = &pendingToolCall{id: "t1", name: "grep", ready: true}
	a.setState(ExecutingTool)
	a.RequestInterrupt()

	messagesBefore := len(a.messages)
	cont := a.HandleToolCompletion(toolexec.Outcome{Result: ""})
	testutil.RequireTrue(t, !cont, "interrupted tool does not continue loop")
	testutil.RequireEqual(t, a.State(), Idle, "state idle after interrupt")
	testutil.RequireEqual(t, len(a.messages), messagesBefore, "no tool-result message appended")
	testutil.RequireTrue(t, !a.InterruptRequested(), "interrupt flag cleared")

	lines := a.Scrollback.Lines()
	testutil.RequireEqual(t, lines[len(lines)-1].Text, "Interrupted", "interrupted sentinel appended")
}
