package embedding

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSimpleTokenizer_Tokenize(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, _ := tok.Tokenize("hello world", 10)
	if len(ids) != 10 {
		t.Errorf("len(ids)=%d", len(ids))
	}
	if ids[0] != clsToken || ids[3] != sepToken {
		t.Errorf("ids = %v", ids)
	}
	if attn[0] != 1 || attn[3] != 1 || attn[4] != 0 {
		t.Errorf("attention = %v", attn)
	}
}

func TestSimpleTokenizer_TokenizePair(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, attn, types := tok.TokenizePair("what is raft", "raft is a consensus algorithm", 8)
	if len(ids) != 8 {
		t.Fatalf("len(ids)=%d", len(ids))
	}
	if ids[0] != clsToken || ids[7] != sepToken {
		t.Errorf("ids = %v", ids)
	}
	for i, a := range attn {
		if a != 1 {
			t.Errorf("attention[%d]=%d, want all ones when truncated to fit", i, a)
		}
	}
	if types[0] != 0 || types[7] != 1 {
		t.Errorf("token types = %v", types)
	}

	ids, attn, _ = tok.TokenizePair("a", "b", 16)
	if ids[2] != sepToken || ids[4] != sepToken || attn[5] != 0 {
		t.Errorf("short pair ids=%v attn=%v", ids, attn)
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"  a  b  c  ", []string{"a", "b", "c"}},
		{"Hello, World!", []string{"hello", "world"}},
		{"정전기 원리가 뭐야?", []string{"정전기", "원리가", "뭐야"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Words(tt.in)); diff != "" {
			t.Errorf("Words(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestHashString(t *testing.T) {
	h := HashString("abc")
	if h == 0 {
		t.Error("hash should be non-zero")
	}
	if HashString("abc") != HashString("abc") {
		t.Error("hash should be deterministic")
	}
}
