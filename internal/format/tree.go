package format

import "fmt"

// node is a leaf token or a delimited group. For groups tok is the
// opening delimiter and closeTok the matching closing one.
type node struct {
	tok      token
	children []node
	closeTok token
}

func (n *node) isGroup() bool { return n.tok.Kind == tokOpen }

func (n *node) isBrace() bool { return n.isGroup() && n.tok.Text == "{" }

func (n *node) isComment() bool {
	return n.tok.Kind == tokLineComment || n.tok.Kind == tokBlockComment
}

// is reports whether n is the punctuation leaf text.
func (n *node) is(text string) bool {
	return n.tok.Kind == tokPunct && n.tok.Text == text
}

func closerOf(open string) string {
	switch open {
	case "(":
		return ")"
	case "[":
		return "]"
	default:
		return "}"
	}
}

// parseTree groups tokens by their delimiters. Unbalanced input is a SyntaxError.
func parseTree(toks []token) ([]node, error) {
	type frame struct {
		open  token
		items []node
	}
	stack := []frame{{}}
	for _, t := range toks {
		switch t.Kind {
		case tokOpen:
			stack = append(stack, frame{open: t})
		case tokClose:
			if len(stack) == 1 {
				return nil, &SyntaxError{Off: t.Off, Msg: fmt.Sprintf("unexpected %q", t.Text)}
			}
			top := stack[len(stack)-1]
			if want := closerOf(top.open.Text); want != t.Text {
				return nil, &SyntaxError{
					Off: t.Off,
					Msg: fmt.Sprintf("mismatched %q, expected %q for %q at offset %d", t.Text, want, top.open.Text, top.open.Off),
				}
			}
			stack = stack[:len(stack)-1]
			parent := &stack[len(stack)-1]
			parent.items = append(parent.items, node{tok: top.open, children: top.items, closeTok: t})
		default:
			cur := &stack[len(stack)-1]
			cur.items = append(cur.items, node{tok: t})
		}
	}
	if len(stack) > 1 {
		open := stack[len(stack)-1].open
		return nil, &SyntaxError{Off: open.Off, Msg: fmt.Sprintf("unclosed %q", open.Text)}
	}
	return stack[0].items, nil
}
