package format

import (
	"fmt"
	"strings"
)

// maxInlineWidth bounds struct literals kept on one line.
const maxInlineWidth = 60

type role uint8

const (
	roleNone role = iota
	roleWord
	roleComment // line comment
	roleGroup
	roleBinary
	rolePrefix
	roleTight
	roleSep
	roleColon
	rolePostfix
	roleMacroBang
	roleAttr
	roleGenOpen
	roleGenClose
	roleClosureOpen
	roleClosureClose
)

type tokRole struct {
	role     role
	depth    int  // generic nesting before this node
	inParams bool // between closure pipes
}

type seqMode uint8

const (
	modeInline seqMode = iota
	modeItems
	modeList
)

type braceKind uint8

const (
	braceItems   braceKind = iota // statements and items, one per line
	braceList                     // comma list, one element per line
	braceLiteral                  // struct literal, inline when short
	braceTight                    // use-tree group after ::
)

var operandKeywords = map[string]bool{
	"as": true, "box": true, "break": true, "const": true, "dyn": true,
	"else": true, "for": true, "if": true, "impl": true, "in": true,
	"let": true, "loop": true, "match": true, "move": true, "mut": true,
	"ref": true, "return": true, "static": true, "unsafe": true,
	"where": true, "while": true, "yield": true,
}

var itemKeywords = map[string]bool{
	"impl": true, "trait": true, "mod": true, "fn": true, "if": true,
	"else": true, "while": true, "for": true, "loop": true, "unsafe": true,
	"async": true, "extern": true, "macro_rules": true, "move": true,
}

var listKeywords = map[string]bool{
	"struct": true, "enum": true, "union": true, "match": true,
}

// notInGenerics stops the angle bracket scan: these words never appear in
// a generic argument list, so a '<' before them is a comparison.
var notInGenerics = map[string]bool{
	"if": true, "let": true, "match": true, "while": true,
	"return": true, "else": true, "loop": true,
}

func isOperandKeyword(n *node) bool {
	return n.tok.Kind == tokIdent && operandKeywords[n.tok.Text]
}

// printTokens lexes src, prints the token tree and checks the result.
func printTokens(src []byte, opt Options) ([]byte, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	tree, err := parseTree(toks)
	if err != nil {
		return nil, err
	}
	if err := checkItems(tree, len(src)); err != nil {
		return nil, err
	}
	p := &printer{w: NewWriter(opt, len(src)+len(src)/4)}
	p.printSeq(tree, modeItems)
	p.w.Newline()
	out := p.w.Bytes()

	printed, err := lex(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errVerify, err)
	}
	if err := verify(toks, printed); err != nil {
		return nil, err
	}
	return out, nil
}

type printer struct {
	w          *Writer
	inlineOnly bool // scratch rendering; any line break fails it
	failed     bool
}

func (p *printer) printSeq(seq []node, mode seqMode) {
	roles := classify(seq)
	prev := -1
	for i := range seq {
		if p.failed {
			return
		}
		n := &seq[i]
		if prev >= 0 && !p.w.AtLineStart() && spaceBetween(&seq[prev], roles[prev].role, n, roles[i].role) {
			p.w.Space()
		}
		prev = i
		switch {
		case n.isGroup():
			p.printGroup(seq, i, roles, mode)
		case n.tok.Kind == tokLineComment:
			if p.inlineOnly {
				p.failed = true
				return
			}
			p.w.WriteString(n.tok.Text)
			p.w.Newline()
			continue
		default:
			p.w.WriteString(n.tok.Text)
		}
		if mode != modeInline && i < len(seq)-1 && breakAfter(seq, i, roles, mode) {
			p.w.Newline()
		}
	}
}

func (p *printer) printGroup(seq []node, i int, roles []tokRole, mode seqMode) {
	n := &seq[i]
	if n.isBrace() {
		p.printBrace(seq, i, roles, mode)
		return
	}
	p.w.WriteString(n.tok.Text)
	p.printSeq(n.children, modeInline)
	p.w.WriteString(n.closeTok.Text)
}

func (p *printer) printBrace(seq []node, i int, roles []tokRole, outer seqMode) {
	n := &seq[i]
	if len(n.children) == 0 {
		p.w.WriteString("{}")
		return
	}
	kind := braceKindOf(seq, i, roles, outer)
	switch kind {
	case braceTight:
		p.w.WriteString("{")
		p.printSeq(n.children, modeInline)
		p.w.WriteString("}")
		return
	case braceLiteral:
		if s, ok := p.renderInline(n.children); ok {
			p.w.WriteString("{ ")
			p.w.WriteString(s)
			p.w.WriteString(" }")
			return
		}
	}
	if p.inlineOnly {
		p.failed = true
		return
	}
	mode := modeList
	if kind == braceItems {
		mode = modeItems
	}
	p.w.WriteString("{")
	p.w.Newline()
	p.w.IndentPush()
	p.printSeq(n.children, mode)
	if mode == modeList && needsTrailingComma(n.children) {
		p.w.WriteString(",")
	}
	p.w.Newline()
	p.w.IndentPop()
	p.w.WriteString("}")
}

func (p *printer) renderInline(seq []node) (string, bool) {
	sub := &printer{w: NewWriter(p.w.opt, maxInlineWidth), inlineOnly: true}
	sub.printSeq(seq, modeInline)
	if sub.failed {
		return "", false
	}
	s := string(sub.w.Bytes())
	if len(s) > maxInlineWidth || strings.ContainsRune(s, '\n') {
		return "", false
	}
	return s, true
}

func breakAfter(seq []node, i int, roles []tokRole, mode seqMode) bool {
	n := &seq[i]
	if n.isGroup() {
		switch n.tok.Text {
		case "[":
			return isAttribute(seq, i)
		case "{":
			return !continuesBrace(&seq[i+1])
		}
		return false
	}
	switch {
	case n.is(";"):
		return true
	case n.is(","):
		return mode == modeList && roles[i].depth == 0 && !roles[i].inParams
	}
	return false
}

// isAttribute reports whether the bracket group at i closes #[..] or #![..].
func isAttribute(seq []node, i int) bool {
	if i >= 1 && seq[i-1].is("#") {
		return true
	}
	return i >= 2 && seq[i-1].is("!") && seq[i-2].is("#")
}

// continuesBrace reports whether next keeps the expression after a closing
// brace on the same line: "} else", "};", "}.map(..)".
func continuesBrace(next *node) bool {
	if next.isGroup() {
		return false
	}
	switch next.tok.Kind {
	case tokPunct:
		return next.tok.Text != "#"
	case tokIdent:
		return next.tok.Text == "else" || next.tok.Text == "as"
	}
	return false
}

// braceKindOf decides the layout of the brace group at i from the tokens
// before it in the same statement or list element.
func braceKindOf(seq []node, i int, roles []tokRole, outer seqMode) braceKind {
	if i == 0 {
		return braceItems
	}
	pn, pr := &seq[i-1], roles[i-1].role
	switch {
	case pn.is("::"):
		return braceTight
	case pn.is("=>"), pn.is("="), pr == roleClosureClose, pr == roleMacroBang:
		return braceItems
	case pn.is("||") && pr == roleWord:
		return braceItems
	}
	for j := i - 1; j >= 0; j-- {
		n := &seq[j]
		if n.isBrace() || n.is(";") || (n.is(",") && roles[j].depth == 0 && outer != modeItems) {
			break
		}
		if n.tok.Kind != tokIdent {
			continue
		}
		if listKeywords[n.tok.Text] {
			return braceList
		}
		if itemKeywords[n.tok.Text] {
			return braceItems
		}
	}
	if (pn.tok.Kind == tokIdent && !operandKeywords[pn.tok.Text]) || pr == roleGenClose {
		return braceLiteral
	}
	return braceItems
}

func needsTrailingComma(seq []node) bool {
	last := len(seq) - 1
	if seq[last].isComment() || seq[last].is(",") || seq[last].is(";") {
		return false
	}
	roles := classify(seq)
	start := 0
	for j := last; j >= 0; j-- {
		if seq[j].is(",") && roles[j].depth == 0 && !roles[j].inParams {
			start = j + 1
			break
		}
	}
	for start <= last && seq[start].isComment() {
		start++
	}
	// a struct base "..base" must stay last without a comma
	return start > last || !(seq[start].is("..") || seq[start].is("..="))
}

func classify(seq []node) []tokRole {
	out := make([]tokRole, len(seq))
	depth := 0
	params := false
	prev := -1
	for i := range seq {
		n := &seq[i]
		out[i].depth = depth
		out[i].inParams = params
		if out[i].role == roleNone {
			out[i].role = classifyOne(seq, out, i, prev)
		}
		switch out[i].role {
		case roleGenOpen:
			depth++
		case roleGenClose:
			depth--
			if n.is(">>") {
				depth--
			}
			depth = max(depth, 0)
		case roleClosureOpen:
			params = true
		case roleClosureClose:
			params = false
		}
		if !n.isComment() {
			prev = i
		}
	}
	return out
}

func classifyOne(seq []node, out []tokRole, i, prev int) role {
	n := &seq[i]
	if n.isGroup() {
		return roleGroup
	}
	switch n.tok.Kind {
	case tokLineComment:
		return roleComment
	case tokIdent, tokLifetime, tokLiteral, tokBlockComment:
		return roleWord
	}
	operand := prev < 0 || !endsExpr(&seq[prev], out[prev].role)
	switch n.tok.Text {
	case ",", ";":
		return roleSep
	case ":":
		return roleColon
	case "::", ".":
		return roleTight
	case "..", "..=", "...":
		if operand {
			return rolePrefix
		}
		return roleTight
	case "#", "$":
		return roleAttr
	case "?":
		if operand {
			return rolePrefix
		}
		return rolePostfix
	case "!":
		if operand {
			return rolePrefix
		}
		return roleMacroBang
	case "-", "*", "&", "&&":
		if operand {
			return rolePrefix
		}
	case "|":
		if operand && markClosure(seq, out, i) {
			return roleClosureOpen
		}
	case "||":
		if operand {
			return roleWord
		}
	case "<":
		head := operand || seq[prev].tok.Kind == tokIdent || seq[prev].is("::")
		if head && markGeneric(seq, out, i) {
			return roleGenOpen
		}
	}
	return roleBinary
}

func endsExpr(n *node, r role) bool {
	switch r {
	case roleGroup, roleGenClose, rolePostfix:
		return true
	case roleWord:
		switch n.tok.Kind {
		case tokIdent:
			return !operandKeywords[n.tok.Text]
		case tokLiteral, tokLifetime:
			return true
		}
	}
	return false
}

// markGeneric scans forward from the '<' at i and, when the angle brackets
// balance over tokens that may appear in a generic list, marks them.
func markGeneric(seq []node, out []tokRole, i int) bool {
	var opens, closes []int
	depth := 0
	for j := i; j < len(seq); j++ {
		n := &seq[j]
		if n.isGroup() {
			if n.isBrace() {
				return false
			}
			continue
		}
		switch n.tok.Kind {
		case tokIdent:
			if notInGenerics[n.tok.Text] {
				return false
			}
			continue
		case tokLiteral, tokLifetime, tokLineComment, tokBlockComment:
			continue
		}
		switch n.tok.Text {
		case "<":
			depth++
			opens = append(opens, j)
		case ">":
			depth--
			closes = append(closes, j)
		case ">>":
			if depth < 2 {
				return false
			}
			depth -= 2
			closes = append(closes, j)
		case "::", ",", ":", "+", "=", "&", "*", "?", "!", "->", "-":
		default:
			return false
		}
		if depth == 0 {
			for _, k := range opens {
				out[k].role = roleGenOpen
			}
			for _, k := range closes {
				out[k].role = roleGenClose
			}
			return true
		}
	}
	return false
}

func markClosure(seq []node, out []tokRole, i int) bool {
	for j := i + 1; j < len(seq); j++ {
		n := &seq[j]
		switch {
		case n.isBrace(), n.is(";"), n.is("||"):
			return false
		case n.is("|"):
			out[j].role = roleClosureClose
			return true
		}
	}
	return false
}

func spaceBetween(pn *node, pr role, cn *node, cr role) bool {
	sp := baseSpace(pn, pr, cn, cr)
	if !sp && pn.tok.Kind == tokPunct && cn.tok.Kind == tokPunct && merges(pn.tok.Text, cn.tok.Text) {
		// nested generic closers may join as ">>"
		return pr != roleGenClose || cr != roleGenClose
	}
	return sp
}

func baseSpace(pn *node, pr role, cn *node, cr role) bool {
	switch pr {
	case rolePrefix, roleGenOpen, roleTight, roleAttr, roleClosureOpen:
		return false
	case roleMacroBang:
		return cr == roleWord || cn.isBrace()
	}
	switch cr {
	case roleSep, roleColon, roleTight, rolePostfix, roleGenClose, roleClosureClose, roleMacroBang:
		return false
	case roleGenOpen:
		if pr != roleWord {
			return true
		}
		return isOperandKeyword(pn) && pn.tok.Text != "impl" && pn.tok.Text != "for"
	case roleGroup:
		if cn.isBrace() {
			return true
		}
		switch pr {
		case roleGroup, roleGenClose, rolePostfix:
			return false
		case roleWord:
			return pn.tok.Kind != tokIdent || isOperandKeyword(pn)
		}
	}
	return true
}
