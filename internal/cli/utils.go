// Package cli renders kotae responses for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is the same JSON the HTTP API returns.
	OutputJSON OutputFormat = "json"
)

const rule = "─────────────────────────────────────────────────────────"

// ParseOutputFormat maps a flag value to a format. Unknown values are an error.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// WriteAnswer writes an answer response in the given format.
func WriteAnswer(w io.Writer, resp *models.AnswerResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	fmt.Fprintf(w, "\n%s\n\n", resp.Answer)
	writeTrust(w, resp.Guard, resp.Confidence, resp.Degraded)
	if len(resp.Sources) > 0 {
		fmt.Fprintln(w, "--- Sources ---")
		for i, s := range resp.Sources {
			fmt.Fprintln(w, rule)
			fmt.Fprintf(w, "[DOC %d] %s | Score: %.4f\n", i+1, s.Source, s.Score)
			fmt.Fprintf(w, "%s\n", Truncate(s.Preview, 200))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// WriteCommand writes a command response in the given format.
func WriteCommand(w io.Writer, resp *models.CommandResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	if resp.Speech != "" {
		fmt.Fprintf(w, "\n%s\n\n", resp.Speech)
	}
	writeTrust(w, resp.Guard, resp.Confidence, resp.Degraded)
	if len(resp.Actions) > 0 {
		fmt.Fprintln(w, "--- Actions ---")
		for _, a := range resp.Actions {
			fmt.Fprintf(w, "%s(%s)\n", a.Name, formatArgs(a.Args))
		}
	} else {
		fmt.Fprintln(w, "No actions proposed.")
	}
	if len(resp.Rejected) > 0 {
		fmt.Fprintln(w, "--- Rejected ---")
		for _, r := range resp.Rejected {
			fmt.Fprintf(w, "%s: %s\n", r.Name, r.Reason)
		}
	}
	fmt.Fprintln(w)
	return nil
}

// WriteAsk writes whichever response the router selected, prefixed by the route in text mode.
func WriteAsk(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp.Body())
	}
	fmt.Fprintf(w, "Intent: %s (%s: %s)\n", resp.Intent.Label, resp.Intent.Source, resp.Intent.Reason)
	if resp.Command != nil {
		return WriteCommand(w, resp.Command, format)
	}
	return WriteAnswer(w, resp.Answer, format)
}

// WriteCommands lists the registry entries.
func WriteCommands(w io.Writer, reg *registry.Registry, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, map[string]interface{}{"commands": reg.Entries()})
	}
	for _, e := range reg.Entries() {
		var args []string
		for _, a := range e.Required {
			args = append(args, fmt.Sprintf("%s: %s", a.Name, shapeOf(a)))
		}
		for _, a := range e.Optional {
			args = append(args, fmt.Sprintf("%s?: %s", a.Name, shapeOf(a)))
		}
		fmt.Fprintf(w, "%s(%s)\n", e.Name, strings.Join(args, ", "))
		if e.Description != "" {
			fmt.Fprintf(w, "    %s\n", e.Description)
		}
	}
	return nil
}

func shapeOf(a registry.ArgSpec) registry.Shape {
	if a.Shape == "" {
		return registry.ShapeString
	}
	return a.Shape
}

func writeTrust(w io.Writer, g models.GuardInfo, c *models.ConfidenceResult, degraded bool) {
	line := "Guard: " + g.Reason
	if g.TopScore != nil {
		line += fmt.Sprintf(" | Top score: %.4f", *g.TopScore)
	}
	if g.GoodHits != nil {
		line += fmt.Sprintf(" | Good hits: %d", *g.GoodHits)
	}
	if c != nil {
		line += fmt.Sprintf(" | Confidence: %s (%.2f)", c.Level, c.Score)
	}
	if degraded {
		line += " | degraded"
	}
	fmt.Fprintln(w, line)
	if g.Detail != "" {
		fmt.Fprintf(w, "Detail: %s\n", g.Detail)
	}
	fmt.Fprintln(w)
}

func formatArgs(args map[string]interface{}) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := json.Marshal(args[k])
		if err != nil {
			v = []byte(fmt.Sprint(args[k]))
		}
		parts = append(parts, k+"="+string(v))
	}
	return strings.Join(parts, ", ")
}

// Truncate truncates s to maxLen runes and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
