package format

import "fmt"

var errVerify = fmt.Errorf("%w: printed tokens differ from input", ErrFormatterFailed)

// verify checks that the printer changed layout only. Trailing commas
// before a closing brace and the split of ">>" into two ">" are ignored.
func verify(in, out []token) error {
	a, b := normalize(in), normalize(out)
	n := min(len(a), len(b))
	for i := range n {
		if a[i].Kind != b[i].Kind || a[i].Text != b[i].Text {
			return fmt.Errorf("%w: token %d is %q, printed %q", errVerify, i, a[i].Text, b[i].Text)
		}
	}
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d tokens in, %d printed", errVerify, len(a), len(b))
	}
	return nil
}

func normalize(toks []token) []token {
	split := make([]token, 0, len(toks))
	for _, t := range toks {
		if t.Kind == tokPunct && t.Text == ">>" {
			split = append(split, token{Kind: tokPunct, Text: ">"}, token{Kind: tokPunct, Text: ">"})
			continue
		}
		split = append(split, t)
	}
	out := split[:0]
	for i, t := range split {
		if t.Kind == tokPunct && t.Text == "," && i+1 < len(split) &&
			split[i+1].Kind == tokClose && split[i+1].Text == "}" {
			continue
		}
		out = append(out, t)
	}
	return out
}
