package gateway

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"barberia-gateway/internal/resource"
)

// ValidatePayload checks a write payload against the resource schema and its
// rules before anything is forwarded to the backend: unknown fields are
// rejected, required fields enforced on create, enums checked, then field
// rules and expression rules run. A non-empty result means 422.
func ValidatePayload(res *resource.Resource, payload map[string]any, isCreate bool) []ErrorDetail {
	var errs []ErrorDetail

	for name := range payload {
		if !res.HasField(name) {
			errs = append(errs, ErrorDetail{
				Field:   name,
				Rule:    "unknown",
				Message: fmt.Sprintf("Unknown field: %s", name),
			})
		}
	}

	if isCreate {
		for _, f := range res.Fields {
			if !f.Required {
				continue
			}
			if val, ok := payload[f.Name]; !ok || val == nil || val == "" {
				errs = append(errs, ErrorDetail{
					Field:   f.Name,
					Rule:    "required",
					Message: fmt.Sprintf("Field %s is required", f.Name),
				})
			}
		}
	}

	for _, f := range res.Fields {
		if len(f.Enum) == 0 {
			continue
		}
		val, ok := payload[f.Name]
		if !ok || val == nil {
			continue
		}
		s, ok := val.(string)
		if !ok || !contains(f.Enum, s) {
			errs = append(errs, ErrorDetail{
				Field:   f.Name,
				Rule:    "enum",
				Message: fmt.Sprintf("Field %s must be one of %v", f.Name, f.Enum),
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	action := "update"
	if isCreate {
		action = "create"
	}
	env := map[string]any{
		"record": payload,
		"action": action,
	}

	for i := range res.Rules {
		rule := &res.Rules[i]
		switch rule.Type {
		case "field":
			if detail := EvaluateFieldRule(rule, payload); detail != nil {
				errs = append(errs, *detail)
			}
		case "expression":
			if detail := EvaluateExpressionRule(rule, env); detail != nil {
				errs = append(errs, *detail)
			}
		}
	}

	return errs
}

// EvaluateFieldRule evaluates a single field rule against a payload.
// Returns nil if the rule passes, or an ErrorDetail if it fails.
func EvaluateFieldRule(rule *resource.Rule, record map[string]any) *ErrorDetail {
	fieldName := rule.Field
	val, exists := record[fieldName]
	if !exists || val == nil {
		return nil // absent fields are not checked by field rules (use required for that)
	}

	op := rule.Operator
	msg := rule.Message
	if msg == "" {
		msg = fmt.Sprintf("field %s failed %s validation", fieldName, op)
	}

	switch op {
	case "min":
		num, ok := toFloat64(val)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if num < threshold {
			return &ErrorDetail{Field: fieldName, Rule: "min", Message: msg}
		}

	case "max":
		num, ok := toFloat64(val)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if num > threshold {
			return &ErrorDetail{Field: fieldName, Rule: "max", Message: msg}
		}

	case "min_length":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if len(s) < int(threshold) {
			return &ErrorDetail{Field: fieldName, Rule: "min_length", Message: msg}
		}

	case "max_length":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		threshold, ok := toFloat64(rule.Value)
		if !ok {
			return nil
		}
		if len(s) > int(threshold) {
			return &ErrorDetail{Field: fieldName, Rule: "max_length", Message: msg}
		}

	case "pattern":
		s, ok := val.(string)
		if !ok {
			return nil
		}
		pattern, ok := rule.Value.(string)
		if !ok {
			return nil
		}
		matched, err := regexp.MatchString(pattern, s)
		if err != nil || !matched {
			return &ErrorDetail{Field: fieldName, Rule: "pattern", Message: msg}
		}
	}

	return nil
}

// EvaluateExpressionRule evaluates a compiled expression rule against an
// environment of record and action. Returns nil if the rule passes
// (expression is false), or an ErrorDetail if violated (expression is true).
func EvaluateExpressionRule(rule *resource.Rule, env map[string]any) *ErrorDetail {
	prog, ok := rule.Compiled.(*vm.Program)
	if !ok || prog == nil {
		// Registry.Load compiles rules up front; a rule that arrives
		// uncompiled is compiled per call rather than cached, since the
		// descriptor is shared across concurrent requests.
		compiled, err := CompileExpression(rule.Expression)
		if err != nil {
			return &ErrorDetail{Rule: "expression", Message: fmt.Sprintf("compile error: %v", err)}
		}
		prog = compiled
	}

	result, err := expr.Run(prog, env)
	if err != nil {
		return &ErrorDetail{Rule: "expression", Message: fmt.Sprintf("rule evaluation error: %v", err)}
	}

	violated, ok := result.(bool)
	if !ok {
		return nil
	}

	if violated {
		msg := rule.Message
		if msg == "" {
			msg = "Expression rule violated"
		}
		return &ErrorDetail{Rule: "expression", Message: msg}
	}

	return nil
}

// CompileExpression compiles an expression string into an expr-lang program.
func CompileExpression(expression string) (*vm.Program, error) {
	prog, err := expr.Compile(expression, expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile expression: %w", err)
	}
	return prog, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// toFloat64 converts numeric types to float64.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}
