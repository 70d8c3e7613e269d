package eventloop

import (
	"context"
	"fmt"
	"time"

	"github.com/ikigai/ikigai/internal/agentcore"
	"github.com/ikigai/ikigai/internal/debugpipe"
	"github.com/ikigai/ikigai/internal/inputdecoder"
	"github.com/ikigai/ikigai/internal/provider"
	"github.com/ikigai/ikigai/internal/scrolldetect"
	"github.com/ikigai/ikigai/internal/toolexec"
)

// Run is the single cooperative loop of SPEC_FULL.md §4.6: it blocks in a
// hand-written select over the terminal-bytes channel, the stream-event
// fan-in, the tool-completion fan-in, the debug-line fan-in, and a timer
// recomputed every iteration, until ctx is cancelled or Exit is set.
func (l *Loop) Run(ctx context.Context) {
	timer := time.NewTimer(l.NextTimeout(time.Now()))
	defer timer.Stop()

	for !l.Exit {
		select {
		case <-ctx.Done():
			return

		case data, ok := <-l.TerminalBytes:
			if !ok || len(data) == 0 {
				l.Exit = true
				break
			}
			l.dispatchTerminal(ctx, data)

		case msg := <-l.streamEvents:
			l.dispatchStream(ctx, msg)

		case msg := <-l.toolDone:
			l.dispatchToolCompletion(ctx, msg)

		case line := <-l.debugLines:
			l.dispatchDebugLine(line)

		case <-timer.C:
			l.dispatchTimeout(time.Now())
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(l.NextTimeout(time.Now()))

		l.Renderer.Render(l.currentAgent())
	}
}

// dispatchTerminal implements step 4: feed each byte through the decoder,
// route arrows through the scroll detector, everything else directly.
func (l *Loop) dispatchTerminal(ctx context.Context, data []byte) {
	for _, b := range data {
		action, ok := l.Decoder.Feed(b)
		if !ok {
			continue
		}
		l.dispatchAction(ctx, action)
	}
}

func (l *Loop) dispatchAction(ctx context.Context, action inputdecoder.Action) {
	now := time.Now()
	switch action.Kind {
	case inputdecoder.ActionArrowUp, inputdecoder.ActionArrowDown:
		dir := scrolldetect.Up
		if action.Kind == inputdecoder.ActionArrowDown {
			dir = scrolldetect.Down
		}
		ev, resolvedDir := l.Scroll.ProcessArrow(dir, now)
		l.dispatchScrollEvent(ev, resolvedDir)
	case inputdecoder.ActionEscape:
		l.dispatchEscape(ctx)
	default:
		l.applyAction(ctx, action)
	}
}

// dispatchScrollEvent acts on the scroll detector's verdict for one arrow
// press (SPEC_FULL.md §4.1/§4.6 step 4).
func (l *Loop) dispatchScrollEvent(ev scrolldetect.Event, dir scrolldetect.Direction) {
	switch ev {
	case scrolldetect.EventArrow:
		if dir == scrolldetect.Up {
			l.applyAction(context.Background(), inputdecoder.Action{Kind: inputdecoder.ActionArrowUp})
		} else {
			l.applyAction(context.Background(), inputdecoder.Action{Kind: inputdecoder.ActionArrowDown})
		}
	case scrolldetect.EventScroll:
		// A resolved scroll-wheel notch scrolls the current agent's
		// scrollback view; rendering owns the viewport offset, so the
		// loop only needs to trigger a re-render here.
	case scrolldetect.EventAbsorbed, scrolldetect.EventNone:
		// Swallowed pending disambiguation; nothing to do yet.
	}
}

// applyAction handles every non-arrow, non-escape action: input-buffer
// edits, submission, and agent navigation.
func (l *Loop) applyAction(ctx context.Context, action inputdecoder.Action) {
	a := l.currentAgent()
	if a == nil {
		return
	}
	switch action.Kind {
	case inputdecoder.ActionRune:
		if a.State() == agentcore.Idle {
			a.InputBuf.WriteRune(action.Rune)
		}
	case inputdecoder.ActionEnter:
		if a.State() == agentcore.Idle && a.InputBuf.Len() > 0 {
			l.submit(ctx, a)
		}
	case inputdecoder.ActionBackspace:
		l.backspaceInput(a)
	case inputdecoder.ActionCtrlU, inputdecoder.ActionKillLine:
		a.InputBuf.Reset()
	}
}

func (l *Loop) backspaceInput(a *agentcore.Agent) {
	s := a.InputBuf.String()
	if s == "" {
		return
	}
	runes := []rune(s)
	a.InputBuf.Reset()
	a.InputBuf.WriteString(string(runes[:len(runes)-1]))
}

// dispatchEscape implements SPEC_FULL.md §4.6's cancellation semantics: a
// no-op in Idle, provider cancellation in WaitingForLLM, and the tool
// interrupt protocol in ExecutingTool.
func (l *Loop) dispatchEscape(ctx context.Context) {
	a := l.currentAgent()
	if a == nil {
		return
	}
	switch a.State() {
	case agentcore.WaitingForLLM:
		a.RequestInterrupt()
		if cancel, ok := l.cancels[a.ID]; ok {
			cancel()
		}
	case agentcore.ExecutingTool:
		a.RequestInterrupt()
		if ex, ok := l.toolExecs[a.ID]; ok {
			go ex.Interrupt(ctx)
		}
	}
}

// submit implements the Idle -> WaitingForLLM transition and registers the
// resulting stream with the loop.
func (l *Loop) submit(ctx context.Context, a *agentcore.Agent) {
	if l.Debug.Enabled {
		a.Scrollback.Append(fmt.Sprintf("[tokens] estimated input tokens: %d", a.EstimateInputTokens(l.SystemPrompt)))
	}

	reqCtx, cancel := context.WithCancel(ctx)
	l.cancels[a.ID] = cancel
	ch, err := a.Submit(l.startStream(reqCtx), l.Tools, l.SystemPrompt, l.Thinking)
	if err != nil {
		cancel()
		delete(l.cancels, a.ID)
		return
	}
	l.RegisterStream(a.ID, ch)
}

// startStream binds the loop's shared Provider to one agent's request
// context, returning the closure Agent.Submit/Continue expect.
func (l *Loop) startStream(ctx context.Context) func(*provider.Request) (<-chan provider.StreamEvent, error) {
	return func(req *provider.Request) (<-chan provider.StreamEvent, error) {
		return l.Provider.StartStream(ctx, req)
	}
}

// dispatchStream implements step 5's per-event routing plus the
// WaitingForLLM exit transitions once the channel closes.
func (l *Loop) dispatchStream(ctx context.Context, msg StreamMsg) {
	a, ok := l.Agents[msg.AgentID]
	if !ok {
		return
	}
	if !msg.Closed {
		a.HandleStreamEvent(msg.Event)
		return
	}

	delete(l.cancels, a.ID)
	startTool, call := a.StreamDone()
	if !startTool {
		return
	}

	def, ok := l.ToolRegistry.Lookup(call.Name)
	if !ok {
		a.HandleToolCompletion(toolexec.Outcome{
			Result:        `{"error":"unknown tool","error_code":"API_ERROR"}`,
			ResultIsError: true,
		})
		return
	}
	ex, err := toolexec.Start(def, call.ArgsJSON)
	if err != nil {
		a.HandleToolCompletion(toolexec.Outcome{
			Result:        `{"error":"failed to start tool","error_code":"API_ERROR"}`,
			ResultIsError: true,
		})
		return
	}
	a.BeginTool(ex)
	l.trackToolExec(a.ID, ex)
	l.RegisterTool(a.ID, ex)
}

// dispatchToolCompletion implements step 7: apply the tool's outcome to
// the agent and, if the tool loop should continue, submit a continuation
// request.
func (l *Loop) dispatchToolCompletion(ctx context.Context, msg ToolMsg) {
	a, ok := l.Agents[msg.AgentID]
	if !ok {
		return
	}
	l.untrackToolExec(a.ID)

	cont := a.HandleToolCompletion(msg.Outcome)
	if !cont {
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	l.cancels[a.ID] = cancel
	ch, err := a.Continue(l.startStream(reqCtx), l.Tools, l.SystemPrompt, l.Thinking)
	if err != nil {
		cancel()
		delete(l.cancels, a.ID)
		return
	}
	l.RegisterStream(a.ID, ch)
}

// dispatchDebugLine implements step 6: append a debug line to scrollback
// only when debug output is enabled. Pipes are always drained regardless
// (draining happens unconditionally upstream in debugpipe.Pipe.run).
func (l *Loop) dispatchDebugLine(line debugpipe.Line) {
	if !l.Debug.Enabled {
		return
	}
	a := l.currentAgent()
	if a == nil {
		return
	}
	a.Scrollback.Append("[" + line.Prefix + "] " + line.Text)
	a.Scrollback.Append("")
}

// dispatchTimeout implements step 8: advance the spinner, probe the scroll
// detector's flush timeout.
func (l *Loop) dispatchTimeout(now time.Time) {
	if l.spinnerVisible {
		l.spinnerFrame++
	}
	if ev, dir := l.Scroll.CheckTimeout(now); ev == scrolldetect.EventArrow {
		l.dispatchScrollEvent(ev, dir)
	}
}
