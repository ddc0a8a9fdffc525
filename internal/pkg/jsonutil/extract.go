package jsonutil

import "strings"

// Objects returns every balanced top-level JSON object embedded in raw, in order.
// Text between objects (log lines, progress output) is skipped. Braces inside
// strings are ignored.
func Objects(raw string) []string {
	var out []string
	for pos := 0; pos < len(raw); {
		obj, start, ok := scanObject(raw[pos:])
		if !ok {
			break
		}
		out = append(out, obj)
		pos += start + len(obj)
	}
	return out
}

// LastObject returns the last balanced JSON object in raw.
func LastObject(raw string) (string, bool) {
	objs := Objects(raw)
	if len(objs) == 0 {
		return "", false
	}
	return objs[len(objs)-1], true
}

// scanObject finds the first '{' in raw and returns the object it opens together
// with its offset. An unterminated object is skipped and scanning resumes after it.
func scanObject(raw string) (string, int, bool) {
	base := 0
	for {
		start := strings.IndexByte(raw[base:], '{')
		if start == -1 {
			return "", -1, false
		}
		start += base
		depth := 0
		inString := false
		escape := false
		for i := start; i < len(raw); i++ {
			ch := raw[i]
			if inString {
				if escape {
					escape = false
					continue
				}
				if ch == '\\' {
					escape = true
					continue
				}
				if ch == '"' {
					inString = false
				}
				continue
			}
			switch ch {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return raw[start : i+1], start, true
				}
			}
		}
		base = start + 1
	}
}
