package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyperjump/kotae/pkg/utils"
)

// ErrNoJSON is returned when a proposal contains no JSON object.
var ErrNoJSON = errors.New("no JSON object in proposal")

// Proposal is the untyped action proposal produced by the model.
type Proposal struct {
	Type    string
	Speech  string
	Actions []RawAction
}

// RawAction is one proposed action before validation. Numbers are kept as json.Number.
type RawAction struct {
	Name string
	Args map[string]interface{}
	// Malformed describes why the element could not be read as an action; Validate rejects it.
	Malformed string
}

// Parse extracts a proposal from model output. Code fences and surrounding prose are tolerated.
// Only a malformed document or actions list is an error; a malformed action element is
// returned with Malformed set so the rest of the batch survives.
func Parse(raw string) (*Proposal, error) {
	obj, ok := utils.ExtractJSONObject(raw)
	if !ok {
		return nil, ErrNoJSON
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(obj)))
	dec.UseNumber()
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode proposal: %w", err)
	}

	p := &Proposal{}
	var err error
	if p.Type, err = optionalString(doc, "type"); err != nil {
		return nil, err
	}
	if p.Speech, err = optionalString(doc, "speech"); err != nil {
		return nil, err
	}

	list, present := doc["actions"]
	if !present || list == nil {
		return p, nil
	}
	items, ok := list.([]interface{})
	if !ok {
		return nil, fmt.Errorf("actions must be an array, got %T", list)
	}
	for _, item := range items {
		p.Actions = append(p.Actions, parseAction(item))
	}
	return p, nil
}

func parseAction(item interface{}) RawAction {
	m, ok := item.(map[string]interface{})
	if !ok {
		name, _ := item.(string)
		return RawAction{Name: name, Malformed: fmt.Sprintf("action must be an object, got %T", item)}
	}
	name, err := optionalString(m, "name")
	if err != nil {
		return RawAction{Name: fmt.Sprint(m["name"]), Malformed: err.Error()}
	}
	switch a := m["args"].(type) {
	case nil:
		return RawAction{Name: name, Args: map[string]interface{}{}}
	case map[string]interface{}:
		return RawAction{Name: name, Args: a}
	default:
		return RawAction{Name: name, Malformed: fmt.Sprintf("args must be an object, got %T", a)}
	}
}

func optionalString(m map[string]interface{}, key string) (string, error) {
	switch v := m[key].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%s must be a string, got %T", key, v)
	}
}
