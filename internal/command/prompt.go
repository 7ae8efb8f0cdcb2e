package command

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/registry"
)

// SystemPrompt describes the output contract and the allowed commands of reg.
func SystemPrompt(reg *registry.Registry) string {
	var b strings.Builder
	b.WriteString(`You turn a user's request into actions for a local assistant app.
Use the CONTEXT only to fill in arguments; never invent commands.
Reply with exactly one JSON object and nothing else:
{"type": "command", "speech": "<one short sentence for the user>", "actions": [{"name": "<command>", "args": {...}}]}
If no allowed command fits, reply with an empty "actions" array and explain briefly in "speech".

Allowed commands:
`)
	for _, e := range reg.Entries() {
		fmt.Fprintf(&b, "- %s(%s)", e.Name, argList(e))
		if e.Description != "" {
			b.WriteString(": " + e.Description)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// UserPrompt renders the context block and the request.
func UserPrompt(question, contextText string) string {
	return "[CONTEXT]\n" + contextText + "\n\n[REQUEST]\n" + question
}

func argList(e *registry.Entry) string {
	parts := make([]string, 0, len(e.Required)+len(e.Optional))
	for _, a := range e.Required {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Name, shapeName(a.Shape)))
	}
	for _, a := range e.Optional {
		parts = append(parts, fmt.Sprintf("%s?: %s", a.Name, shapeName(a.Shape)))
	}
	return strings.Join(parts, ", ")
}

func shapeName(s registry.Shape) string {
	if s == "" {
		return string(registry.ShapeString)
	}
	return string(s)
}
