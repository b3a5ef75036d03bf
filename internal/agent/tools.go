package agent

import (
	"context"
	"fmt"
	"sort"
)

// Tool is one operation the hosted model may call. Parameters returns a JSON
// schema object describing the arguments.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (string, error)
}

// ToolDefinition is what the model is told about a tool.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// Registry is the static dispatch table of callable tools. It is filled once
// at startup and only read afterwards.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register panics on a duplicate name: that is a wiring bug, not a runtime
// condition.
func (r *Registry) Register(t Tool) {
	if _, exists := r.tools[t.Name()]; exists {
		panic(fmt.Sprintf("agent: tool %q registered twice", t.Name()))
	}
	r.tools[t.Name()] = t
}

// Get returns nil for an unknown name.
func (r *Registry) Get(name string) Tool {
	return r.tools[name]
}

func (r *Registry) Len() int {
	return len(r.tools)
}

// Definitions are sorted by name so requests to the model are stable.
func (r *Registry) Definitions() []ToolDefinition {
	defs := make([]ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}
