package utils

import "strings"

// ExtractJSONObject returns the first balanced {...} object in s, skipping code fences and
// any prose around it. Braces inside JSON strings are ignored.
func ExtractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start >= 0 {
		if end := matchBrace(s[start:]); end > 0 {
			return s[start : start+end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the index of the brace closing s[0], or -1.
func matchBrace(s string) int {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
