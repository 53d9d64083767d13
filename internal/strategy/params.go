package strategy

import (
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// ParamType is the declared type of a strategy parameter.
type ParamType string

const (
	ParamInt    ParamType = "int"
	ParamFloat  ParamType = "float"
	ParamBool   ParamType = "bool"
	ParamString ParamType = "string"
)

// ParamSpec declares a single strategy parameter: its name, type, whether
// the caller must provide it, and the default applied when absent.
type ParamSpec struct {
	Name     string
	Type     ParamType
	Required bool
	Default  any
}

// ResolveParams checks the raw parameter map against the given specs and
// returns a fully-populated map with defaults applied and numeric types
// normalized (int for ParamInt, float64 for ParamFloat). Unknown keys are
// rejected so a typo in a config file fails loudly instead of silently
// running with defaults.
func ResolveParams(specs []ParamSpec, params map[string]any) (map[string]any, error) {
	known := make(map[string]ParamSpec, len(specs))
	for _, s := range specs {
		known[s.Name] = s
	}
	for name := range params {
		if _, ok := known[name]; !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown parameter %q", name)
		}
	}

	resolved := make(map[string]any, len(specs))
	for _, s := range specs {
		raw, present := params[s.Name]
		if !present {
			if s.Required {
				return nil, errors.Newf(errors.ErrCodeMissingParameter, "missing required parameter %q", s.Name)
			}
			resolved[s.Name] = s.Default
			continue
		}
		v, err := coerceParam(s, raw)
		if err != nil {
			return nil, err
		}
		resolved[s.Name] = v
	}
	return resolved, nil
}

// coerceParam normalizes the YAML/JSON decoding artifacts: YAML decodes
// whole numbers as int and fractions as float64, so both directions need
// converting.
func coerceParam(s ParamSpec, raw any) (any, error) {
	switch s.Type {
	case ParamInt:
		switch v := raw.(type) {
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case float64:
			if v == float64(int(v)) {
				return int(v), nil
			}
		}
	case ParamFloat:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case ParamBool:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
	case ParamString:
		if v, ok := raw.(string); ok {
			return v, nil
		}
	}
	return nil, errors.Newf(errors.ErrCodeInvalidType, "parameter %q: expected %s, got %T", s.Name, s.Type, raw)
}

// IntParam reads an int parameter out of a resolved map.
func IntParam(resolved map[string]any, name string) int {
	v, _ := resolved[name].(int)
	return v
}

// FloatParam reads a float parameter out of a resolved map.
func FloatParam(resolved map[string]any, name string) float64 {
	v, _ := resolved[name].(float64)
	return v
}

// BoolParam reads a bool parameter out of a resolved map.
func BoolParam(resolved map[string]any, name string) bool {
	v, _ := resolved[name].(bool)
	return v
}

// StringParam reads a string parameter out of a resolved map.
func StringParam(resolved map[string]any, name string) string {
	v, _ := resolved[name].(string)
	return v
}
