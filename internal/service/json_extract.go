package service

import (
	"errors"
	"strings"
)

var ErrNoJSONObject = errors.New("no balanced JSON object in output")

// StripCodeFence removes a surrounding markdown code fence, with or without a
// language tag. Text without a leading fence is returned trimmed.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop a language identifier on the opening line.
	if idx := strings.Index(text, "\n"); idx >= 0 {
		first := strings.TrimSpace(text[:idx])
		if len(first) < 20 && !strings.ContainsAny(first, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// FirstJSONObject returns the first balanced {...} in text. Braces inside JSON
// strings, including escaped quotes, do not count toward the balance.
func FirstJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := matchObject(text, start); end > 0 {
			return text[start:end], nil
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSONObject
}

// matchObject returns the index just past the brace closing text[start], or -1.
func matchObject(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
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
				return i + 1
			}
		}
	}
	return -1
}
