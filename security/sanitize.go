package security

import "strings"

// escapable reports whether c must be preceded by a backslash in
// sanitized output.
func escapable(c byte) bool {
	return c == '\\' || c == '"' || c == '\'' || c == '`'
}

// Sanitize normalizes a string for safe console output. The rules:
//
//   - printable ASCII (0x20-0x7E) passes through, with a backslash
//     inserted before \ " ' ` unless one is already there;
//   - space, tab, newline, and carriage return pass through;
//   - every other byte becomes '?';
//   - once the output reaches maxLen bytes while input remains, it is
//     cut there and marked with "...".
//
// Sanitize is idempotent: an already-sanitized string comes back
// unchanged. The escape pass achieves this by copying an existing
// backslash-escapable pair verbatim instead of re-escaping it.
func Sanitize(input string, maxLen int) string {
	var sb strings.Builder
	sb.Grow(len(input))

	for i := 0; i < len(input); i++ {
		c := input[i]

		switch {
		case c == '\\' && i+1 < len(input) && escapable(input[i+1]):
			// Already-escaped pair: keep as is.
			sb.WriteByte(c)
			sb.WriteByte(input[i+1])
			i++
		case c >= 0x20 && c <= 0x7E:
			if escapable(c) {
				sb.WriteByte('\\')
			}
			sb.WriteByte(c)
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			sb.WriteByte(c)
		default:
			sb.WriteByte('?')
		}

		if sb.Len() >= maxLen && i+1 < len(input) {
			sb.WriteString("...")
			break
		}
	}

	return sb.String()
}

// SanitizeAll sanitizes every entry of a string table in place order,
// returning a fresh slice.
func SanitizeAll(entries []string, maxLen int) []string {
	out := make([]string, len(entries))
	for i, s := range entries {
		out[i] = Sanitize(s, maxLen)
	}
	return out
}
