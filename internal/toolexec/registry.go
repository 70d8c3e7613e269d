// Package toolexec implements SPEC_FULL.md §4.5's Tool Executor: a registry
// of subprocess tool binaries, and a process-group-isolated runner with a
// SIGTERM-then-SIGKILL interrupt protocol.
package toolexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Definition describes one callable tool (SPEC_FULL.md §3 "Tool
// Definition"): name, description, JSON-schema parameters, strict flag, plus
// the executable path the registry resolves it to.
type Definition struct {
	Name        string
	Description string
	Schema      map[string]any
	Strict      bool
	Path        string
}

// schemaResponse is the shape a tool binary prints for `exec(path) --schema`
// (SPEC_FULL.md §6 "Tool subprocess protocol").
type schemaResponse struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry is the ordered, read-only-after-init mapping from tool name to
// its Definition (SPEC_FULL.md §3).
type Registry struct {
	order   []string
	byName  map[string]Definition
}

// NewRegistry queries every executable at path with `--schema`, validates
// the returned JSON Schema compiles, and builds an ordered registry. A tool
// whose schema fails to parse or compile is rejected at load time rather
// than surfacing a malformed request to the provider later.
func NewRegistry(ctx context.Context, paths []string) (*Registry, error) {
	reg := &Registry{byName: make(map[string]Definition, len(paths))}

	for _, path := range paths {
		probeCtx, cancel := context.WithTimeout(ctx, registrationTimeout)
		def, err := loadDefinition(probeCtx, path)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("load tool %q: %w", path, err)
		}
		if err := validateSchema(def.Schema); err != nil {
			return nil, fmt.Errorf("tool %q schema: %w", def.Name, err)
		}
		if _, exists := reg.byName[def.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name %q", def.Name)
		}
		reg.order = append(reg.order, def.Name)
		reg.byName[def.Name] = def
	}

	sort.Strings(reg.order)
	return reg, nil
}

func loadDefinition(ctx context.Context, path string) (Definition, error) {
	cmd := exec.CommandContext(ctx, path, "--schema")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Definition{}, fmt.Errorf("run --schema: %w (stderr: %s)", err, stderr.String())
	}

	var resp schemaResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return Definition{}, fmt.Errorf("parse --schema output: %w", err)
	}
	if resp.Name == "" {
		return Definition{}, fmt.Errorf("--schema output missing name")
	}

	return Definition{
		Name:        resp.Name,
		Description: resp.Description,
		Schema:      resp.Parameters,
		Path:        path,
	}, nil
}

// validateSchema compiles a tool's JSON-schema parameters document,
// rejecting malformed schemas at registry-load time.
func validateSchema(schema map[string]any) error {
	if schema == nil {
		return nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", schema); err != nil {
		return fmt.Errorf("add schema resource: %w", err)
	}
	if _, err := compiler.Compile("schema.json"); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return nil
}

// Lookup resolves a tool name to its Definition.
func (r *Registry) Lookup(name string) (Definition, bool) {
	def, ok := r.byName[name]
	return def, ok
}

// Definitions returns all registered tools in name-sorted order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.byName[name])
	}
	return defs
}

// registrationTimeout bounds how long a `--schema` probe may take during
// startup; a hung tool binary must not block the whole CLI from launching.
const registrationTimeout = 5 * time.Second
