package command

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
)

// Rejection reasons. Argument reasons carry the argument name after a colon.
const (
	RejectUnknownCommand  = "unknown_command"
	RejectMissingArgument = "missing_argument"
	RejectInvalidArgument = "invalid_argument"
	RejectInvalidAction   = "invalid_action"
)

// Validate checks actions against reg in order. Invalid actions are dropped individually and
// reported in rejected; undeclared argument keys are removed from valid actions.
func Validate(reg *registry.Registry, actions []RawAction) (valid []models.CommandAction, rejected []models.RejectedAction) {
	valid = []models.CommandAction{}
	for _, a := range actions {
		out, reason := validateAction(reg, a)
		if reason != "" {
			rejected = append(rejected, models.RejectedAction{Name: a.Name, Reason: reason})
			continue
		}
		valid = append(valid, out)
	}
	return valid, rejected
}

func validateAction(reg *registry.Registry, a RawAction) (models.CommandAction, string) {
	if a.Malformed != "" {
		return models.CommandAction{}, RejectInvalidAction
	}
	entry, ok := reg.Lookup(a.Name)
	if !ok {
		return models.CommandAction{}, RejectUnknownCommand
	}
	args := make(map[string]interface{}, len(a.Args))
	for _, spec := range entry.Required {
		v, present := a.Args[spec.Name]
		if !present || v == nil {
			return models.CommandAction{}, RejectMissingArgument + ":" + spec.Name
		}
		c, err := Coerce(v, spec.Shape)
		if err != nil {
			return models.CommandAction{}, RejectInvalidArgument + ":" + spec.Name
		}
		args[spec.Name] = c
	}
	for _, spec := range entry.Optional {
		v, present := a.Args[spec.Name]
		if !present || v == nil {
			continue
		}
		c, err := Coerce(v, spec.Shape)
		if err != nil {
			return models.CommandAction{}, RejectInvalidArgument + ":" + spec.Name
		}
		args[spec.Name] = c
	}
	return models.CommandAction{Name: entry.Name, Args: args}, ""
}

// Coerce converts a decoded JSON value to shape. Only unambiguous conversions succeed:
// numeric strings for int and number, "true"/"false" for bool, a lone string for string_list,
// and integral numbers for string.
func Coerce(v interface{}, shape registry.Shape) (interface{}, error) {
	switch shape {
	case registry.ShapeString, "":
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			if n, ok := integral(x); ok {
				return strconv.FormatInt(n, 10), nil
			}
		case float64:
			if n, ok := integralFloat(x); ok {
				return strconv.FormatInt(n, 10), nil
			}
		}

	case registry.ShapeInt:
		switch x := v.(type) {
		case json.Number:
			if n, ok := integral(x); ok {
				return n, nil
			}
		case float64:
			if n, ok := integralFloat(x); ok {
				return n, nil
			}
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return n, nil
			}
		}

	case registry.ShapeNumber:
		switch x := v.(type) {
		case json.Number:
			if f, err := x.Float64(); err == nil {
				return f, nil
			}
		case float64:
			return x, nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				return f, nil
			}
		}

	case registry.ShapeBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(x)) {
			case "true":
				return true, nil
			case "false":
				return false, nil
			}
		}

	case registry.ShapeStringList:
		switch x := v.(type) {
		case string:
			return []string{x}, nil
		case []interface{}:
			out := make([]string, 0, len(x))
			for _, item := range x {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("list item %v is not a string", item)
				}
				out = append(out, s)
			}
			return out, nil
		}

	case registry.ShapeObject:
		if m, ok := v.(map[string]interface{}); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, shape)
}

func integral(n json.Number) (int64, bool) {
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return integralFloat(f)
}

func integralFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
