package resource

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// Actions a resource supports. Each maps to a required permission in the
// resource descriptor.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Resource describes one CRUD domain the gateway proxies: where it lives on
// the backend, which permission each action needs, its field schema, and the
// validation rules applied before a write is forwarded.
type Resource struct {
	Name        string            `json:"name"`
	BackendPath string            `json:"backend_path"`
	Public      bool              `json:"public"`
	Permissions map[string]string `json:"permissions"`
	Fields      []Field           `json:"fields"`
	Rules       []Rule            `json:"rules,omitempty"`
}

type Field struct {
	Name     string   `json:"name"`
	Type     string   `json:"type"` // string, int, decimal, boolean, timestamp, date
	Required bool     `json:"required,omitempty"`
	Enum     []string `json:"enum,omitempty"`
}

// Rule is a write-time validation rule. Field rules check a single value
// (min, max, min_length, max_length, pattern); expression rules evaluate an
// expr-lang predicate over the whole payload and fail when it returns true.
type Rule struct {
	Type       string `json:"type"` // "field" or "expression"
	Field      string `json:"field,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Value      any    `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"`
	Message    string `json:"message,omitempty"`
	Compiled   any    `json:"-"` // *vm.Program, set once by Registry.Load
}

// Compile builds the expression program. Only expression rules compile;
// other rule types are a no-op.
func (r *Rule) Compile() error {
	if r.Type != "expression" || r.Expression == "" {
		return nil
	}
	program, err := expr.Compile(r.Expression, expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile rule %q: %w", r.Expression, err)
	}
	r.Compiled = program
	return nil
}

// GetField returns a pointer to the field with the given name, or nil.
func (r *Resource) GetField(name string) *Field {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			return &r.Fields[i]
		}
	}
	return nil
}

// HasField returns true if the resource has a field with the given name.
func (r *Resource) HasField(name string) bool {
	return r.GetField(name) != nil
}

// PermissionFor returns the permission required for the given action, or "".
func (r *Resource) PermissionFor(action string) string {
	return r.Permissions[action]
}
