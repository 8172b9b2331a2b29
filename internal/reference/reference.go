// Package reference renders the directives handed back to the caller in
// place of materialized text.
package reference

import (
	"fmt"
	"strings"
)

// Include returns `include!("<path>")` for the given file path.
func Include(path string) string {
	return "include!(" + quote(path) + ")"
}

// CompileError returns `compile_error!("<msg>")`, used when generation
// failed and there is nothing to materialize.
func CompileError(msg string) string {
	return "compile_error!(" + quote(msg) + ")"
}

// quote renders s as a Rust string literal.
func quote(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case 0:
			sb.WriteString(`\0`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\u{%x}`, r)
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
