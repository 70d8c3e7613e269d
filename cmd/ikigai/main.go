// Command ikigai is the CLI entrypoint for the terminal agent
// (SPEC_FULL.md §6.1): a cobra command tree, in the style of the teacher's
// cmd/claude/main.go option struct and flag wiring, that assembles
// config -> provider -> tool registry -> session sink -> event loop and
// drives it against a raw-mode terminal instead of a bubbletea program.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ikigai/ikigai/internal/agentcore"
	"github.com/ikigai/ikigai/internal/config"
	"github.com/ikigai/ikigai/internal/eventloop"
	"github.com/ikigai/ikigai/internal/provider"
	"github.com/ikigai/ikigai/internal/provider/google"
	"github.com/ikigai/ikigai/internal/render"
	"github.com/ikigai/ikigai/internal/session"
	"github.com/ikigai/ikigai/internal/terminal"
	"github.com/ikigai/ikigai/internal/toolexec"
)

// options holds the CLI flags cmd/ikigai accepts, mirroring the teacher's
// option-struct-plus-applyFlags pattern at a fraction of its surface.
type options struct {
	Model        string
	ConfigPath   string
	SystemPrompt string
	Resume       string
	Print        string
	ToolPaths    []string
	Debug        bool
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "ikigai",
		Short: "Ikigai - an interactive terminal agent for Gemini-family models",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd.Context(), opts)
		},
	}
	applyFlags(rootCmd.Flags(), opts)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "ikigai:", err)
		os.Exit(1)
	}
}

func applyFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVar(&opts.Model, "model", "", "Model name or alias to use for this session")
	flags.StringVar(&opts.ConfigPath, "config", "", "Path to the provider config file (default ~/.ikigai/config.json)")
	flags.StringVar(&opts.SystemPrompt, "system-prompt", "", "System prompt for the session")
	flags.StringVar(&opts.Resume, "resume", "", "Resume a previous session by id")
	flags.StringVar(&opts.Print, "print", "", "Run one prompt non-interactively and print the reply")
	flags.StringArrayVar(&opts.ToolPaths, "tool", nil, "Path to a tool subprocess binary, registered at startup (repeatable)")
	flags.BoolVar(&opts.Debug, "debug", false, "Enable debug-pipe output in scrollback")
}

func runRoot(ctx context.Context, opts *options) error {
	cfg, err := config.LoadProviderConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	baseDir, err := session.DefaultBaseDir()
	if err != nil {
		return fmt.Errorf("resolve base dir: %w", err)
	}
	sink, err := session.Open(baseDir)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer sink.Close()

	sessionID := opts.Resume
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	client := google.NewClient(cfg.APIBaseURL, cfg.APIKey, time.Duration(cfg.TimeoutMS)*time.Millisecond)
	prov := google.New(client, config.ResolveModel(cfg, opts.Model, ""))

	registry, err := toolexec.NewRegistry(ctx, opts.ToolPaths)
	if err != nil {
		return fmt.Errorf("load tool registry: %w", err)
	}

	tools := make([]provider.ToolDefinition, 0, len(registry.Definitions()))
	for _, def := range registry.Definitions() {
		tools = append(tools, provider.ToolDefinition{Name: def.Name, Description: def.Description, Schema: def.Schema, Strict: def.Strict})
	}

	thinking := &provider.ThinkingConfig{
		Level:          provider.ThinkingLevel(cfg.ThinkingLevel),
		IncludeSummary: cfg.ThinkingIncludeSummary,
	}

	if opts.Print != "" {
		return runPrint(ctx, prov, tools, opts, thinking, sink, sessionID)
	}
	return runInteractive(ctx, prov, tools, registry, opts, cfg, thinking, sink, sessionID)
}

// runPrint performs one non-streaming turn and prints the reply, the
// non-interactive analog of the teacher's -p/--print mode.
func runPrint(ctx context.Context, prov provider.Provider, tools []provider.ToolDefinition, opts *options, thinking *provider.ThinkingConfig, sink *session.Sink, sessionID string) error {
	req := &provider.Request{
		SystemPrompt: opts.SystemPrompt,
		Messages: []provider.Message{{
			Role:    provider.RoleUser,
			Content: []provider.ContentBlock{{Kind: provider.ContentText, Text: opts.Print}},
		}},
		Tools:    tools,
		Thinking: thinking,
	}
	resp, err := prov.StartRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	for _, block := range resp.Content {
		if block.Kind == provider.ContentText {
			fmt.Println(block.Text)
		}
	}
	_ = sink.InsertMessage(sessionID, uuid.NewString(), session.KindUser, opts.Print, "")
	return nil
}

// runInteractive wires a single agent into the event loop and drives it
// from a raw-mode terminal until EOF or interrupt.
func runInteractive(ctx context.Context, prov provider.Provider, tools []provider.ToolDefinition, registry *toolexec.Registry, opts *options, cfg *config.ProviderConfig, thinking *provider.ThinkingConfig, sink *session.Sink, sessionID string) error {
	term, err := terminal.New()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := term.EnterRaw(); err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	defer term.Restore()

	size, err := term.Size()
	if err != nil {
		size = terminal.Size{Rows: 24, Cols: 80}
	}

	renderer := render.New(size.Rows, size.Cols, func(frameJSON string) {
		fmt.Fprintln(os.Stdout, frameJSON)
	})

	loop := eventloop.New(renderer)
	loop.Provider = prov
	loop.Tools = tools
	loop.SystemPrompt = opts.SystemPrompt
	loop.Thinking = thinking
	loop.ToolRegistry = registry
	loop.Debug.Enabled = opts.Debug

	agent := agentcore.New(prov, agentcore.Config{ToolLoopMaxIterations: cfg.ToolLoopMaxIterations}, cfg.ScrollbackCapacity, sink, sessionID)
	loop.AddAgent(agent)

	go readTerminalBytes(os.Stdin, loop.TerminalBytes)

	loop.Run(ctx)
	return nil
}

// readTerminalBytes forwards stdin bytes to the loop's terminal-bytes
// channel, closing it (by sending a zero-length slice) on EOF per
// SPEC_FULL.md §4.6 step 4.
func readTerminalBytes(in *os.File, out chan<- []byte) {
	reader := bufio.NewReader(in)
	buf := make([]byte, 256)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			out <- chunk
		}
		if err != nil {
			out <- nil
			return
		}
	}
}
