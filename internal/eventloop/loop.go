// Package eventloop implements SPEC_FULL.md §4.6/§4.6.1's Event Loop: a
// single goroutine multiplexing terminal input, per-agent provider stream
// events, tool-worker completions, and debug-pipe lines through one
// hand-written select, replacing the distilled spec's fd_set/select
// description with Go channels (SPEC_FULL.md §1.1).
package eventloop

import (
	"context"
	"time"

	"github.com/ikigai/ikigai/internal/agentcore"
	"github.com/ikigai/ikigai/internal/debugpipe"
	"github.com/ikigai/ikigai/internal/inputdecoder"
	"github.com/ikigai/ikigai/internal/provider"
	"github.com/ikigai/ikigai/internal/scrolldetect"
	"github.com/ikigai/ikigai/internal/toolexec"
)

// spinnerTick, toolPollFloor, and defaultTimeout are the fixed inputs to
// the timeout-minimum rule in SPEC_FULL.md §4.6 step 2.
const (
	spinnerTick    = 80 * time.Millisecond
	toolPollFloor  = 50 * time.Millisecond
	defaultTimeout = 1000 * time.Millisecond
)

// StreamMsg carries one stream event tagged with its originating agent —
// the Go-native analog of an fd_set entry firing for that agent's
// transfer. Closed is true once the provider's channel has closed, with no
// further Event payload (SPEC_FULL.md §4.6.1).
type StreamMsg struct {
	AgentID string
	Event   provider.StreamEvent
	Closed  bool
}

// ToolMsg carries one tool-worker completion tagged with its agent.
type ToolMsg struct {
	AgentID string
	Outcome toolexec.Outcome
}

// Renderer redraws the current agent's frame. Abstracted behind an
// interface so the loop's dispatch logic can be tested without a real
// terminal (SPEC_FULL.md §4.6 step 8, "re-render... if anything changed").
type Renderer interface {
	Render(current *agentcore.Agent)
}

// NopRenderer implements Renderer by doing nothing.
type NopRenderer struct{}

func (NopRenderer) Render(*agentcore.Agent) {}

// Loop owns every live agent and the channels the select multiplexes.
// Agents register/unregister their stream and tool channels when they
// start/stop work, the channel-based analog of adding/removing fds from a
// select(2) fd_set (SPEC_FULL.md §4.6.1).
type Loop struct {
	Agents  map[string]*agentcore.Agent
	Order   []string
	Current string

	Decoder  *inputdecoder.Decoder
	Scroll   *scrolldetect.Detector
	Debug    *debugpipe.Manager
	Renderer Renderer

	// Provider, Tools, SystemPrompt, and Thinking are shared across every
	// agent in this loop; the config and tool registry are read-only after
	// init (SPEC_FULL.md §5 "Shared resources").
	Provider     provider.Provider
	Tools        []provider.ToolDefinition
	SystemPrompt string
	Thinking     *provider.ThinkingConfig
	ToolRegistry *toolexec.Registry

	TerminalBytes chan []byte

	streamEvents chan StreamMsg
	toolDone     chan ToolMsg
	debugLines   chan debugpipe.Line

	spinnerVisible bool
	spinnerFrame   int

	// cancels holds the per-agent cancel func for its in-flight request
	// context, invoked by Escape-in-WaitingForLLM (SPEC_FULL.md §4.6
	// "Cancellation semantics"). toolExecs holds the per-agent running
	// tool execution, consulted by Escape-in-ExecutingTool.
	cancels   map[string]context.CancelFunc
	toolExecs map[string]*toolexec.Execution

	// Exit is set by terminal-EOF or an explicit quit action; Run returns
	// as soon as it sees it set, without waiting for pending work.
	Exit bool
}

func (l *Loop) trackToolExec(agentID string, ex *toolexec.Execution) {
	if l.toolExecs == nil {
		l.toolExecs = make(map[string]*toolexec.Execution)
	}
	l.toolExecs[agentID] = ex
}

func (l *Loop) untrackToolExec(agentID string) {
	delete(l.toolExecs, agentID)
}

// New constructs an empty loop. Debug output starts disabled.
func New(renderer Renderer) *Loop {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	return &Loop{
		Agents:        make(map[string]*agentcore.Agent),
		Decoder:       inputdecoder.New(),
		Scroll:        scrolldetect.New(),
		Debug:         debugpipe.NewManager(false),
		Renderer:      renderer,
		TerminalBytes: make(chan []byte, 16),
		streamEvents:  make(chan StreamMsg, 64),
		toolDone:      make(chan ToolMsg, 16),
		debugLines:    make(chan debugpipe.Line, 64),
		cancels:       make(map[string]context.CancelFunc),
		toolExecs:     make(map[string]*toolexec.Execution),
	}
}

// AddAgent registers a new agent with the loop and makes it current if it
// is the first one.
func (l *Loop) AddAgent(a *agentcore.Agent) {
	l.Agents[a.ID] = a
	l.Order = append(l.Order, a.ID)
	if l.Current == "" {
		l.Current = a.ID
	}
}

// RemoveAgent unregisters an agent.
func (l *Loop) RemoveAgent(id string) {
	delete(l.Agents, id)
	for i, existing := range l.Order {
		if existing == id {
			l.Order = append(l.Order[:i], l.Order[i+1:]...)
			break
		}
	}
	if l.Current == id {
		if len(l.Order) > 0 {
			l.Current = l.Order[0]
		} else {
			l.Current = ""
		}
	}
}

// RegisterStream forwards every event off ch into the loop's shared
// streamEvents fan-in channel, tagged with agentID, then posts a Closed
// sentinel once ch closes. This is the "register a channel with the loop"
// step of SPEC_FULL.md §4.6.1.
func (l *Loop) RegisterStream(agentID string, ch <-chan provider.StreamEvent) {
	go func() {
		for ev := range ch {
			l.streamEvents <- StreamMsg{AgentID: agentID, Event: ev}
		}
		l.streamEvents <- StreamMsg{AgentID: agentID, Closed: true}
	}()
}

// RegisterTool forwards a tool execution's completion into the loop's
// shared toolDone fan-in channel once the child exits.
func (l *Loop) RegisterTool(agentID string, ex *toolexec.Execution) {
	go func() {
		<-ex.Done()
		outcome, _ := ex.Poll()
		l.toolDone <- ToolMsg{AgentID: agentID, Outcome: outcome}
	}()
}

// AttachDebugPipe subscribes a pipe's lines into the loop's shared
// debugLines fan-in channel.
func (l *Loop) AttachDebugPipe(p *debugpipe.Pipe) {
	go func() {
		for line := range p.Lines() {
			l.debugLines <- line
		}
	}()
}

// NextTimeout computes the select timeout per SPEC_FULL.md §4.6 step 2:
// the minimum of the spinner tick (if a spinner is visible), the tool-poll
// floor (if any agent is ExecutingTool), and the scroll detector's pending
// timeout, defaulting to 1000ms if none apply.
func (l *Loop) NextTimeout(now time.Time) time.Duration {
	best := defaultTimeout
	have := false

	consider := func(d time.Duration, ok bool) {
		if !ok {
			return
		}
		if !have || d < best {
			best = d
			have = true
		}
	}

	consider(spinnerTick, l.spinnerVisible)
	consider(toolPollFloor, l.anyExecutingTool())
	if d, ok := l.Scroll.NextTimeout(now); ok {
		consider(d, true)
	}

	return best
}

func (l *Loop) anyExecutingTool() bool {
	for _, a := range l.Agents {
		if a.State() == agentcore.ExecutingTool {
			return true
		}
	}
	return false
}

// currentAgent returns the agent the terminal input/rendering is currently
// bound to, or nil if none.
func (l *Loop) currentAgent() *agentcore.Agent {
	if l.Current == "" {
		return nil
	}
	return l.Agents[l.Current]
}
