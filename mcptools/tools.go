// Package mcptools implements the tool registry and executor exposed
// over a JSON-RPC 2.0 surface (MCP-style tools/list, tools/call), with
// JSON-Schema input validation and a typed ToolError taxonomy.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ToolErrorKind is the taxonomy from spec §4.8.
type ToolErrorKind string

const (
	ErrInvalidParams ToolErrorKind = "InvalidParams"
	ErrNotFound      ToolErrorKind = "NotFound"
	ErrTimeout       ToolErrorKind = "Timeout"
	ErrUpstream      ToolErrorKind = "Upstream"
	ErrInternal      ToolErrorKind = "Internal"
)

// ToolError is the typed error every tool invocation can produce.
type ToolError struct {
	Kind ToolErrorKind
	Msg  string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error [%s]: %s", e.Kind, e.Msg)
}

// ContentBlock is one element of a tool call's content response.
type ContentBlock struct {
	Type     string `json:"type"` // "text" | "image" | "audio" | "resource"
	Text     string `json:"text,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// CallResult is the tools/call response shape.
type CallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError"`
}

// Tool is implemented by every concrete domain tool.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	TimeoutSecs() int
	Execute(ctx context.Context, input json.RawMessage) (CallResult, *ToolError)
}

// Registry holds the set of tools available for a session/process.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	compiled  map[string]*jsonschema.Schema
}

// NewRegistry constructs an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]Tool{}, compiled: map[string]*jsonschema.Schema{}}
}

// Register adds a tool, compiling and caching its JSON schema.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	schemaJSON, err := json.Marshal(t.InputSchema())
	if err != nil {
		return fmt.Errorf("mcptools: marshal schema for %s: %w", t.Name(), err)
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return fmt.Errorf("mcptools: parse schema for %s: %w", t.Name(), err)
	}

	compiler := jsonschema.NewCompiler()
	uri := "mem://" + t.Name() + ".json"
	if err := compiler.AddResource(uri, schemaDoc); err != nil {
		return fmt.Errorf("mcptools: add schema resource for %s: %w", t.Name(), err)
	}
	schema, err := compiler.Compile(uri)
	if err != nil {
		return fmt.Errorf("mcptools: compile schema for %s: %w", t.Name(), err)
	}

	r.tools[t.Name()] = t
	r.compiled[t.Name()] = schema
	return nil
}

// List returns tool descriptors for the tools/list method.
func (r *Registry) List() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, ToolDescriptor{
			Name: t.Name(), Description: t.Description(), InputSchema: t.InputSchema(),
		})
	}
	return out
}

// ToolDescriptor is one entry of the tools/list response.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Call validates input against the tool's schema, then executes it under
// a per-tool timeout (default 30s).
func (r *Registry) Call(ctx context.Context, name string, arguments json.RawMessage) CallResult {
	r.mu.RLock()
	t, ok := r.tools[name]
	schema := r.compiled[name]
	r.mu.RUnlock()

	if !ok {
		return errorResult(&ToolError{Kind: ErrNotFound, Msg: "tool not registered: " + name})
	}

	var parsed any
	if err := json.Unmarshal(arguments, &parsed); err != nil {
		return errorResult(&ToolError{Kind: ErrInvalidParams, Msg: "invalid JSON arguments: " + err.Error()})
	}
	if schema != nil {
		if err := schema.Validate(parsed); err != nil {
			return errorResult(&ToolError{Kind: ErrInvalidParams, Msg: err.Error()})
		}
	}

	timeout := time.Duration(t.TimeoutSecs()) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		res CallResult
		err *ToolError
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := t.Execute(callCtx, arguments)
		done <- outcome{res, err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return errorResult(o.err)
		}
		return o.res
	case <-callCtx.Done():
		return errorResult(&ToolError{Kind: ErrTimeout, Msg: "tool " + name + " exceeded timeout"})
	}
}

func errorResult(err *ToolError) CallResult {
	return CallResult{
		Content: []ContentBlock{{Type: "text", Text: err.Error()}},
		IsError: true,
	}
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
