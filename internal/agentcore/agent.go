// Package agentcore implements SPEC_FULL.md §4.4's Agent State Machine: the
// Idle / WaitingForLLM / ExecutingTool transitions driving one conversation
// against a bound provider.Provider, with scrollback, streaming-buffer
// flush, tool-loop budgeting, and session persistence side effects.
package agentcore

import (
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ikigai/ikigai/internal/provider"
	"github.com/ikigai/ikigai/internal/session"
	"github.com/ikigai/ikigai/internal/toolexec"
)

// State is one of the three states in SPEC_FULL.md §4.4.
type State int32

const (
	Idle State = iota
	WaitingForLLM
	ExecutingTool
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case WaitingForLLM:
		return "waiting_for_llm"
	case ExecutingTool:
		return "executing_tool"
	default:
		return "unknown"
	}
}

// pendingToolCall accumulates one in-flight tool call across
// ToolCallStart/Delta/Done stream events.
type pendingToolCall struct {
	id       string
	name     string
	argsBuf  strings.Builder
	ready    bool
}

// Config bounds the tool-loop continuation budget (SPEC_FULL.md §4.4 "Tool
// loop budget").
type Config struct {
	ToolLoopMaxIterations int
}

// Agent owns one conversation's state machine, scrollback, and persistence.
// All mutation happens on the event-loop goroutine except where noted;
// State and the interrupt flag are atomic so the tool worker and signal
// path can read/write them safely (SPEC_FULL.md §5 "Cross-thread sharing").
type Agent struct {
	ID string

	provider provider.Provider
	cfg      Config

	state int32 // State, accessed atomically

	Scrollback *Scrollback
	InputBuf   strings.Builder

	messages []provider.Message

	streamBuf strings.Builder
	turnText  strings.Builder
	pending   *pendingToolCall

	toolIterationCount int
	lastFinishReason    provider.FinishReason

	// usage/metadata recorded on Done, cleared on idle.
	lastModel   string
	lastUsage   provider.Usage
	errorMsg    string

	interruptRequested atomic.Bool
	toolChildPID        atomic.Int32

	toolExec *toolexec.Execution

	sink      *session.Sink
	sessionID string

	mu sync.Mutex // guards fields mutated off the event-loop goroutine (toolExec swap)
}

// New constructs an idle agent bound to a provider and a tool-loop budget.
func New(p provider.Provider, cfg Config, scrollbackCapacity int, sink *session.Sink, sessionID string) *Agent {
	if cfg.ToolLoopMaxIterations <= 0 {
		cfg.ToolLoopMaxIterations = 25
	}
	return &Agent{
		ID:         uuid.NewString(),
		provider:   p,
		cfg:        cfg,
		Scrollback: NewScrollback(scrollbackCapacity),
		sink:       sink,
		sessionID:  sessionID,
	}
}

// State returns the agent's current state.
func (a *Agent) State() State { return State(atomic.LoadInt32(&a.state)) }

func (a *Agent) setState(s State) { atomic.StoreInt32(&a.state, int32(s)) }

// ToolChildPID returns the pid of the running tool child, or 0 if none.
// SPEC_FULL.md §8 invariant: state == ExecutingTool => ToolChildPID() > 0.
func (a *Agent) ToolChildPID() int32 { return a.toolChildPID.Load() }

// InterruptRequested reports whether an interrupt is pending.
func (a *Agent) InterruptRequested() bool { return a.interruptRequested.Load() }

// RequestInterrupt sets the interrupt flag; safe to call from the signal
// path or the event-loop goroutine (SPEC_FULL.md §5).
func (a *Agent) RequestInterrupt() { a.interruptRequested.Store(true) }

// Submit implements the Idle -> WaitingForLLM transition: append a user
// message and start a stream. Returns the channel the event loop should
// register as this agent's stream fan-in.
func (a *Agent) Submit(startStream func(*provider.Request) (<-chan provider.StreamEvent, error), tools []provider.ToolDefinition, systemPrompt string, thinking *provider.ThinkingConfig) (<-chan provider.StreamEvent, error) {
	text := a.InputBuf.String()
	a.InputBuf.Reset()

	userMsg := provider.Message{Role: provider.RoleUser, Content: []provider.ContentBlock{{Kind: provider.ContentText, Text: text}}}
	a.messages = append(a.messages, userMsg)
	a.persist(session.KindUser, text, "")

	req := &provider.Request{
		SystemPrompt: systemPrompt,
		Messages:     a.messages,
		Tools:        tools,
		Thinking:     thinking,
	}
	ch, err := startStream(req)
	if err != nil {
		return nil, err
	}
	a.streamBuf.Reset()
	a.pending = nil
	a.errorMsg = ""
	a.setState(WaitingForLLM)
	return ch, nil
}

// Continue starts a follow-up stream after a tool result without appending
// a new user message, implementing the "submit a continuation request"
// clause of the ExecutingTool -> WaitingForLLM transition (SPEC_FULL.md
// §4.4).
func (a *Agent) Continue(startStream func(*provider.Request) (<-chan provider.StreamEvent, error), tools []provider.ToolDefinition, systemPrompt string, thinking *provider.ThinkingConfig) (<-chan provider.StreamEvent, error) {
	req := &provider.Request{
		SystemPrompt: systemPrompt,
		Messages:     a.messages,
		Tools:        tools,
		Thinking:     thinking,
	}
	ch, err := startStream(req)
	if err != nil {
		return nil, err
	}
	a.streamBuf.Reset()
	a.pending = nil
	a.errorMsg = ""
	return ch, nil
}

// HandleStreamEvent routes one StreamEvent per SPEC_FULL.md §4.4's
// WaitingForLLM event handling. Call Finalize once the channel closes.
func (a *Agent) HandleStreamEvent(ev provider.StreamEvent) {
	switch ev.Kind {
	case provider.EventStart:
		a.lastModel = ev.Model
	case provider.EventTextDelta, provider.EventThinkingDelta:
		a.appendStreamText(ev.Text)
	case provider.EventToolCallStart:
		a.pending = &pendingToolCall{id: ev.ToolCallID, name: ev.ToolCallName}
	case provider.EventToolCallDelta:
		if a.pending != nil {
			a.pending.argsBuf.WriteString(ev.ArgsFragment)
		}
	case provider.EventToolCallDone:
		if a.pending != nil {
			a.pending.ready = true
		}
	case provider.EventError:
		a.errorMsg = ev.ErrorMessage
		a.lastFinishReason = provider.FinishError
	case provider.EventDone:
		a.lastUsage = ev.Usage
		a.lastFinishReason = ev.FinishReason
	}
}

// appendStreamText implements the "streaming buffer flush rule": newline in
// arriving text splits the buffer at the last newline, flushing complete
// lines to scrollback and retaining the tail.
func (a *Agent) appendStreamText(text string) {
	a.turnText.WriteString(text)
	a.streamBuf.WriteString(text)
	buf := a.streamBuf.String()
	last := strings.LastIndexByte(buf, '\n')
	if last < 0 {
		return
	}
	complete := buf[:last]
	for _, line := range strings.Split(complete, "\n") {
		a.Scrollback.Append(line)
	}
	a.streamBuf.Reset()
	a.streamBuf.WriteString(buf[last+1:])
}

// flushStreamBuf unconditionally flushes the residual buffer as one line,
// per the flush rule's "on stream completion" clause.
func (a *Agent) flushStreamBuf() {
	if a.streamBuf.Len() == 0 {
		return
	}
	a.Scrollback.Append(a.streamBuf.String())
	a.streamBuf.Reset()
}

// StreamDone implements WaitingForLLM's exit transitions
// (WaitingForLLM -> ExecutingTool or WaitingForLLM -> Idle), called once the
// stream channel is closed.
func (a *Agent) StreamDone() (startTool bool, call ToolCallRequest) {
	a.flushStreamBuf()
	text := a.turnText.String()
	a.turnText.Reset()

	if a.pending != nil && a.pending.ready {
		argsJSON := a.pending.argsBuf.String()
		if argsJSON == "" {
			argsJSON = "{}"
		}
		assistantMsg := provider.Message{Role: provider.RoleAssistant, Content: []provider.ContentBlock{
			{Kind: provider.ContentText, Text: text},
			{Kind: provider.ContentToolCall, ToolCallID: a.pending.id, ToolCallName: a.pending.name, ToolCallArgs: argsJSON},
		}}
		a.messages = append(a.messages, assistantMsg)

		// A provider's reported finish reason on a tool-call turn may not be
		// ToolUse (the Gemini adapter's Done carries STOP), but an observed,
		// ready tool call always means the loop must continue once the tool
		// completes, so this overrides it here (SPEC_FULL.md §4.3's
		// response-builder override, reapplied on the streaming path).
		a.lastFinishReason = provider.FinishToolUse
		a.persistAssistant(text)

		call = ToolCallRequest{ID: a.pending.id, Name: a.pending.name, ArgsJSON: argsJSON}
		a.setState(ExecutingTool)
		return true, call
	}

	if text != "" {
		a.messages = append(a.messages, provider.Message{Role: provider.RoleAssistant, Content: []provider.ContentBlock{{Kind: provider.ContentText, Text: text}}})
		a.persistAssistant(text)
	}
	a.pending = nil
	if a.errorMsg != "" {
		a.Scrollback.Append(a.errorMsg)
	}
	a.errorMsg = ""
	a.setState(Idle)
	return false, ToolCallRequest{}
}

// ToolCallRequest is the tool invocation StreamDone hands to the caller for
// dispatch through toolexec.Start.
type ToolCallRequest struct {
	ID       string
	Name     string
	ArgsJSON string
}

// BeginTool records the worker PID once toolexec.Start has spawned the
// child, satisfying the ExecutingTool => ToolChildPID() > 0 invariant.
func (a *Agent) BeginTool(ex *toolexec.Execution) {
	a.mu.Lock()
	a.toolExec = ex
	a.mu.Unlock()
	a.toolChildPID.Store(int32(ex.PID()))
}

// HandleToolCompletion implements ExecutingTool's exit transitions. If the
// interrupt flag was set, it clears state without a tool-result message
// (ExecutingTool -> Idle); otherwise it appends the tool result and decides
// whether to continue the tool loop (ExecutingTool -> WaitingForLLM).
func (a *Agent) HandleToolCompletion(outcome toolexec.Outcome) (continueLoop bool) {
	a.mu.Lock()
	a.toolExec = nil
	interrupted := a.interruptRequested.Load()
	a.mu.Unlock()
	a.toolChildPID.Store(0)

	toolID := ""
	if a.pending != nil {
		toolID = a.pending.id
	}

	if interrupted {
		a.interruptRequested.Store(false)
		a.pending = nil
		a.Scrollback.Append("Interrupted")
		a.persist(session.KindInterrupted, "Interrupted", "")
		a.setState(Idle)
		return false
	}

	a.messages = append(a.messages, provider.Message{Role: provider.RoleTool, Content: []provider.ContentBlock{
		{Kind: provider.ContentToolResult, ToolResultForID: toolID, ToolResultText: outcome.Result, ToolResultError: outcome.ResultIsError},
	}})
	a.persist(session.KindTool, outcome.Result, toolResultDataJSON(toolID, outcome.ResultIsError))
	a.pending = nil
	a.toolIterationCount++

	if a.shouldContinueToolLoop() {
		a.setState(WaitingForLLM)
		return true
	}
	a.setState(Idle)
	return false
}

// shouldContinueToolLoop implements SPEC_FULL.md §4.4's budget check.
func (a *Agent) shouldContinueToolLoop() bool {
	return a.lastFinishReason == provider.FinishToolUse && a.toolIterationCount < a.cfg.ToolLoopMaxIterations
}

// persistAssistant writes the assistant-kind row with model/finish-reason/
// usage metadata, per SPEC_FULL.md §4.4's persistence side effect.
func (a *Agent) persistAssistant(text string) {
	data := struct {
		Model        string `json:"model"`
		FinishReason string `json:"finish_reason"`
		InputTokens  int    `json:"input_tokens"`
		OutputTokens int    `json:"output_tokens"`
		ThinkingTokens int  `json:"thinking_tokens"`
		TotalTokens  int    `json:"total_tokens"`
	}{
		Model:          a.lastModel,
		FinishReason:   string(a.lastFinishReason),
		InputTokens:    a.lastUsage.InputTokens,
		OutputTokens:   a.lastUsage.OutputTokens,
		ThinkingTokens: a.lastUsage.ThinkingTokens,
		TotalTokens:    a.lastUsage.TotalTokens,
	}
	raw, _ := json.Marshal(data)
	a.persist(session.KindAssistant, text, string(raw))
}

func toolResultDataJSON(toolID string, isError bool) string {
	raw, _ := json.Marshal(struct {
		ToolCallID string `json:"tool_call_id"`
		IsError    bool   `json:"is_error"`
	}{toolID, isError})
	return string(raw)
}

func (a *Agent) persist(kind session.Kind, content, dataJSON string) {
	if a.sink == nil || a.sessionID == "" {
		return
	}
	_ = a.sink.InsertMessage(a.sessionID, a.ID, kind, content, dataJSON)
}

// ErrorMessage returns the error message recorded from an EventError during
// the current turn. StreamDone appends it to scrollback and clears it when
// the agent returns to Idle.
func (a *Agent) ErrorMessage() string { return a.errorMsg }
