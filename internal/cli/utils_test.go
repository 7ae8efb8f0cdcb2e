package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func sampleAnswer() *models.AnswerResponse {
	return &models.AnswerResponse{
		Type:     models.TypeRAGAnswer,
		Question: "how do I pair the remote?",
		Answer:   "Hold the home button for five seconds [DOC 1].",
		Sources: []models.Source{
			{Source: "/docs/remote.md", Score: 0.21, Preview: "Hold the home button"},
		},
		Guard: models.GuardInfo{Reason: models.ReasonOK, TopScore: floatPtr(0.21), GoodHits: intPtr(2)},
		Confidence: &models.ConfidenceResult{
			Level: models.ConfidenceHigh,
			Score: 0.91,
		},
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputJSON); err != nil {
		t.Fatalf("WriteAnswer(json): %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded["type"] != models.TypeRAGAnswer {
		t.Errorf("type = %v", decoded["type"])
	}
	guard := decoded["guard"].(map[string]interface{})
	if guard["reason"] != "ok" || guard["good_hits"] != float64(2) {
		t.Errorf("guard = %v", guard)
	}
}

func TestWriteAnswer_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAnswer(&buf, sampleAnswer(), OutputText); err != nil {
		t.Fatalf("WriteAnswer(text): %v", err)
	}
	out := buf.String()
	for _, sub := range []string{"five seconds [DOC 1]", "Guard: ok", "Top score: 0.2100", "Good hits: 2", "Confidence: high", "[DOC 1] /docs/remote.md"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteCommand_text(t *testing.T) {
	resp := &models.CommandResponse{
		Type:    models.TypeCommand,
		Speech:  "Opening Wi-Fi settings.",
		Actions: []models.CommandAction{{Name: "open_settings", Args: map[string]interface{}{"section": "wifi", "level": int64(2)}}},
		Guard:   models.GuardInfo{Reason: models.ReasonOK},
		Rejected: []models.RejectedAction{
			{Name: "format_disk", Reason: "unknown_command"},
		},
	}
	var buf bytes.Buffer
	if err := WriteCommand(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, sub := range []string{"Opening Wi-Fi settings.", `open_settings(level=2, section="wifi")`, "format_disk: unknown_command"} {
		if !strings.Contains(out, sub) {
			t.Errorf("text output missing %q:\n%s", sub, out)
		}
	}
}

func TestWriteCommand_noActions(t *testing.T) {
	resp := &models.CommandResponse{
		Type:    models.TypeCommand,
		Speech:  "Not enough information.",
		Actions: []models.CommandAction{},
		Guard:   models.GuardInfo{Reason: models.ReasonNoResults},
	}
	var buf bytes.Buffer
	if err := WriteCommand(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No actions proposed.") {
		t.Errorf("got %q", buf.String())
	}
}

func TestWriteAsk(t *testing.T) {
	resp := &models.AskResponse{
		Intent: models.Intent{Label: models.IntentExplain, Source: models.IntentSourceRule, Reason: "rule_match:뭐야"},
		Answer: sampleAnswer(),
	}
	var buf bytes.Buffer
	if err := WriteAsk(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "Intent: explain (rule: rule_match:뭐야)") {
		t.Errorf("got %q", buf.String())
	}

	buf.Reset()
	if err := WriteAsk(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.AnswerResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Answer != resp.Answer.Answer {
		t.Errorf("answer = %q", decoded.Answer)
	}
}

func TestWriteCommands(t *testing.T) {
	reg, err := registry.New([]*registry.Entry{{
		Name:        "set_volume",
		Description: "Set the speaker volume.",
		Required:    []registry.ArgSpec{{Name: "level", Shape: registry.ShapeInt}},
		Optional:    []registry.ArgSpec{{Name: "device"}},
	}})
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := WriteCommands(&buf, reg, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "set_volume(level: int, device?: string)") {
		t.Errorf("got %q", buf.String())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		s      string
		maxLen int
		want   string
	}{
		{"empty", "", 5, ""},
		{"short", "hi", 5, "hi"},
		{"exact", "hello", 5, "hello"},
		{"long", "hello world", 5, "hello..."},
		{"runes", "안녕하세요 세계", 2, "안녕..."},
		{"maxLen zero", "ab", 0, "ab"},
		{"maxLen negative", "ab", -1, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Truncate(tt.s, tt.maxLen)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
			}
		})
	}
}
