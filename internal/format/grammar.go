package format

import "fmt"

// reserved words never name an item, field or variant.
var reserved = map[string]bool{
	"as": true, "async": true, "await": true, "break": true, "const": true,
	"continue": true, "crate": true, "dyn": true, "else": true, "enum": true,
	"extern": true, "false": true, "fn": true, "for": true, "if": true,
	"impl": true, "in": true, "let": true, "loop": true, "match": true,
	"mod": true, "move": true, "mut": true, "pub": true, "ref": true,
	"return": true, "self": true, "Self": true, "static": true, "struct": true,
	"super": true, "trait": true, "true": true, "type": true, "unsafe": true,
	"use": true, "where": true, "while": true,
}

// headerStops cannot appear in a type, bound or where clause.
var headerStops = map[string]bool{
	"let": true, "struct": true, "enum": true, "trait": true, "mod": true,
	"use": true, "static": true, "type": true, "match": true, "if": true,
	"else": true, "while": true, "loop": true, "return": true, "break": true,
	"continue": true,
}

// checkItems reports the first malformed item in seq. The grammar is
// shallow: item headers and field lists are checked, function bodies only
// for `let` patterns.
func checkItems(seq []node, end int) error {
	p := &itemParser{seq: dropComments(seq), end: end}
	for !p.atEnd() {
		if err := p.item(); err != nil {
			return err
		}
	}
	return nil
}

func dropComments(seq []node) []node {
	out := make([]node, 0, len(seq))
	for i := range seq {
		if !seq[i].isComment() {
			out = append(out, seq[i])
		}
	}
	return out
}

type itemParser struct {
	seq []node
	pos int
	end int // offset reported when input runs out
}

func (p *itemParser) atEnd() bool { return p.pos >= len(p.seq) }

func (p *itemParser) peek() *node {
	if p.atEnd() {
		return nil
	}
	return &p.seq[p.pos]
}

func (p *itemParser) peekAt(k int) *node {
	if p.pos+k >= len(p.seq) {
		return nil
	}
	return &p.seq[p.pos+k]
}

func (p *itemParser) next() *node {
	n := p.peek()
	p.pos++
	return n
}

func (p *itemParser) fail(n *node, format string, args ...any) error {
	off := p.end
	if n != nil {
		off = n.tok.Off
	}
	return &SyntaxError{Off: off, Msg: fmt.Sprintf(format, args...)}
}

// expected reports what was wanted against what is there.
func (p *itemParser) expected(what string) error {
	n := p.peek()
	if n == nil {
		return p.fail(nil, "expected %s, found end of input", what)
	}
	return p.fail(n, "expected %s, found %s", what, describe(n))
}

func describe(n *node) string { return "`" + n.tok.Text + "`" }

func isWord(n *node, w string) bool {
	return n != nil && n.tok.Kind == tokIdent && n.tok.Text == w
}

func isName(n *node) bool {
	return n != nil && n.tok.Kind == tokIdent && !reserved[n.tok.Text]
}

func isGroupOf(n *node, open string) bool {
	return n != nil && n.isGroup() && n.tok.Text == open
}

func isPunct(n *node, text string) bool {
	return n != nil && n.is(text)
}

func (p *itemParser) name(what string) error {
	if !isName(p.peek()) {
		return p.expected(what + " name")
	}
	p.next()
	return nil
}

// attrs consumes outer and inner attributes and reports whether an outer
// one was seen.
func (p *itemParser) attrs() (bool, error) {
	outer := false
	for isPunct(p.peek(), "#") {
		p.next()
		if isPunct(p.peek(), "!") {
			p.next()
		} else {
			outer = true
		}
		if !isGroupOf(p.peek(), "[") {
			return outer, p.expected("`[` after `#`")
		}
		p.next()
	}
	return outer, nil
}

func (p *itemParser) visibility() {
	if !isWord(p.peek(), "pub") {
		return
	}
	p.next()
	if isGroupOf(p.peek(), "(") {
		p.next()
	}
}

func (p *itemParser) item() error {
	outer, err := p.attrs()
	if err != nil {
		return err
	}
	if p.atEnd() {
		if !outer {
			return nil // inner attributes only
		}
		return p.expected("item after attributes")
	}
	p.visibility()
	if p.atEnd() {
		return p.expected("item after visibility")
	}

	// qualifiers: default, const, async, unsafe, auto, extern "abi"
	for {
		n := p.peek()
		switch {
		case isWord(n, "default") && isKeyword(p.peekAt(1)),
			isWord(n, "const") && qualifies(p.peekAt(1)),
			isWord(n, "auto") && isWord(p.peekAt(1), "trait"),
			isWord(n, "async"), isWord(n, "unsafe"):
			p.next()
			continue
		}
		break
	}

	n := p.peek()
	switch {
	case n == nil:
		return p.expected("item")
	case isWord(n, "fn"):
		return p.fnItem()
	case isWord(n, "struct"):
		return p.structItem()
	case isWord(n, "union"):
		return p.unionItem()
	case isWord(n, "enum"):
		return p.enumItem()
	case isWord(n, "trait"):
		return p.traitItem()
	case isWord(n, "impl"):
		return p.implItem()
	case isWord(n, "mod"):
		return p.modItem()
	case isWord(n, "use"):
		return p.useItem()
	case isWord(n, "const"), isWord(n, "static"):
		return p.valueItem()
	case isWord(n, "type"):
		return p.typeItem()
	case isWord(n, "extern"):
		return p.externItem()
	case isWord(n, "macro_rules") && isPunct(p.peekAt(1), "!"):
		return p.macroRules()
	case n.tok.Kind == tokIdent && !reserved[n.tok.Text], isPunct(n, "::"),
		isWord(n, "self"), isWord(n, "super"), isWord(n, "crate"):
		return p.macroCall()
	default:
		return p.fail(n, "expected item, found %s", describe(n))
	}
}

func isKeyword(n *node) bool {
	return n != nil && n.tok.Kind == tokIdent && reserved[n.tok.Text]
}

// qualifies reports whether n can follow `const` as a function qualifier.
func qualifies(n *node) bool {
	return isWord(n, "fn") || isWord(n, "unsafe") || isWord(n, "async") || isWord(n, "extern")
}

func (p *itemParser) fnItem() error {
	p.next()
	if err := p.name("function"); err != nil {
		return err
	}
	if err := p.generics(); err != nil {
		return err
	}
	if !isGroupOf(p.peek(), "(") {
		return p.expected("`(`")
	}
	p.next()
	n := p.peek()
	if !(isPunct(n, "->") || isWord(n, "where") || isGroupOf(n, "{") || isPunct(n, ";")) {
		return p.expected("`->`, `where` or a function body")
	}
	body, err := p.header(true)
	if err != nil {
		return err
	}
	if body != nil {
		return checkBlock(body.children)
	}
	return nil
}

func (p *itemParser) structItem() error {
	p.next()
	if err := p.name("struct"); err != nil {
		return err
	}
	if err := p.generics(); err != nil {
		return err
	}
	tuple := false
	if isGroupOf(p.peek(), "(") {
		p.next()
		tuple = true
	}
	switch n := p.peek(); {
	case tuple && !isWord(n, "where") && !isPunct(n, ";"):
		return p.expected("`;` after tuple struct fields")
	case !tuple && !isWord(n, "where") && !isGroupOf(n, "{") && !isPunct(n, ";"):
		return p.expected("`{`, `(` or `;` after struct name")
	}
	body, err := p.header(true)
	if err != nil {
		return err
	}
	if body == nil {
		return nil
	}
	if tuple {
		return p.fail(body, "tuple struct cannot have a `{` body")
	}
	return checkFields(body)
}

func (p *itemParser) unionItem() error {
	p.next()
	if err := p.name("union"); err != nil {
		return err
	}
	if err := p.generics(); err != nil {
		return err
	}
	body, err := p.header(false)
	if err != nil {
		return err
	}
	return checkFields(body)
}

func (p *itemParser) enumItem() error {
	p.next()
	if err := p.name("enum"); err != nil {
		return err
	}
	if err := p.generics(); err != nil {
		return err
	}
	body, err := p.header(false)
	if err != nil {
		return err
	}
	for _, seg := range splitCommas(body) {
		v := &itemParser{seq: seg.nodes, end: seg.end}
		if _, err := v.attrs(); err != nil {
			return err
		}
		if err := v.name("variant"); err != nil {
			return err
		}
		switch n := v.peek(); {
		case isGroupOf(n, "{"):
			v.next()
			if err := checkFields(n); err != nil {
				return err
			}
		case isGroupOf(n, "("):
			v.next()
		}
		if isPunct(v.peek(), "=") {
			v.next()
			if v.atEnd() {
				return v.expected("discriminant")
			}
			v.pos = len(v.seq)
		}
		if !v.atEnd() {
			return v.fail(v.peek(), "unexpected %s in variant", describe(v.peek()))
		}
	}
	return nil
}

func (p *itemParser) traitItem() error {
	p.next()
	if err := p.name("trait"); err != nil {
		return err
	}
	if err := p.generics(); err != nil {
		return err
	}
	body, err := p.header(false)
	if err != nil {
		return err
	}
	return checkItems(body.children, body.closeTok.Off)
}

func (p *itemParser) implItem() error {
	kw := p.next()
	if isGroupOf(p.peek(), "{") {
		return p.fail(kw, "expected type after `impl`")
	}
	body, err := p.header(false)
	if err != nil {
		return err
	}
	return checkItems(body.children, body.closeTok.Off)
}

func (p *itemParser) modItem() error {
	p.next()
	if err := p.name("module"); err != nil {
		return err
	}
	switch n := p.next(); {
	case isPunct(n, ";"):
		return nil
	case isGroupOf(n, "{"):
		return checkItems(n.children, n.closeTok.Off)
	default:
		p.pos--
		return p.expected("`;` or `{` after module name")
	}
}

func (p *itemParser) useItem() error {
	kw := p.next()
	tree, err := p.untilSemi()
	if err != nil {
		return err
	}
	if len(tree) == 0 {
		return p.fail(kw, "expected use path")
	}
	return checkUseTree(tree)
}

// checkUseTree accepts paths, globs, braced groups and `as` renames.
func checkUseTree(seq []node) error {
	var prev *node
	for i := range seq {
		n := &seq[i]
		switch {
		case n.tok.Kind == tokIdent:
			if prev != nil && prev.tok.Kind == tokIdent && !isWord(prev, "as") && !isWord(n, "as") {
				return &SyntaxError{Off: n.tok.Off, Msg: fmt.Sprintf("expected `::` or `,`, found %s", describe(n))}
			}
		case n.is("::"), n.is("*"), n.is(","):
		case n.isBrace():
			if err := checkUseTree(dropComments(n.children)); err != nil {
				return err
			}
		default:
			return &SyntaxError{Off: n.tok.Off, Msg: fmt.Sprintf("unexpected %s in use path", describe(n))}
		}
		prev = n
	}
	return nil
}

// valueItem is `const NAME: T = expr;` or `static [mut] NAME: T = expr;`.
// The initializer is optional for trait and extern items.
func (p *itemParser) valueItem() error {
	p.next()
	if isWord(p.peek(), "mut") {
		p.next()
	}
	if err := p.name("constant"); err != nil {
		return err
	}
	if !isPunct(p.peek(), ":") {
		return p.expected("`:`")
	}
	colon := p.next()
	rest, err := p.untilSemi()
	if err != nil {
		return err
	}
	ty := rest
	for i := range rest {
		if rest[i].is("=") {
			ty = rest[:i]
			if i == len(rest)-1 {
				return &SyntaxError{Off: rest[i].tok.Off, Msg: "expected expression after `=`"}
			}
			break
		}
	}
	if len(ty) == 0 {
		return p.fail(colon, "expected type after `:`")
	}
	return checkType(ty)
}

func (p *itemParser) typeItem() error {
	p.next()
	if err := p.name("type"); err != nil {
		return err
	}
	rest, err := p.untilSemi()
	if err != nil {
		return err
	}
	for i := range rest {
		if rest[i].is("=") && i == len(rest)-1 {
			return &SyntaxError{Off: rest[i].tok.Off, Msg: "expected type after `=`"}
		}
	}
	return checkType(rest)
}

func (p *itemParser) externItem() error {
	p.next()
	if n := p.peek(); n != nil && n.tok.Kind == tokLiteral {
		p.next()
	}
	switch n := p.peek(); {
	case isWord(n, "crate"):
		p.next()
		if !isName(p.peek()) && !isWord(p.peek(), "self") {
			return p.expected("crate name")
		}
		p.next()
		if isWord(p.peek(), "as") {
			p.next()
			if !isName(p.peek()) {
				return p.expected("name after `as`")
			}
			p.next()
		}
		if !isPunct(p.peek(), ";") {
			return p.expected("`;`")
		}
		p.next()
		return nil
	case isWord(n, "fn"):
		return p.fnItem()
	case isGroupOf(n, "{"):
		p.next()
		return checkItems(n.children, n.closeTok.Off)
	default:
		return p.expected("`fn`, `crate` or `{` after `extern`")
	}
}

func (p *itemParser) macroRules() error {
	p.next() // macro_rules
	p.next() // !
	if err := p.name("macro"); err != nil {
		return err
	}
	n := p.peek()
	if n == nil || !n.isGroup() {
		return p.expected("macro body")
	}
	p.next()
	if n.isBrace() {
		if isPunct(p.peek(), ";") {
			p.next()
		}
		return nil
	}
	if !isPunct(p.peek(), ";") {
		return p.expected("`;` after macro definition")
	}
	p.next()
	return nil
}

// macroCall is `path!(..);`, `path![..];` or `path! {..}`.
func (p *itemParser) macroCall() error {
	first := p.peek()
	if isPunct(first, "::") {
		p.next()
	}
	for {
		n := p.peek()
		if n == nil || n.tok.Kind != tokIdent {
			return p.expected("path")
		}
		p.next()
		if !isPunct(p.peek(), "::") {
			break
		}
		p.next()
	}
	if !isPunct(p.peek(), "!") {
		return p.fail(first, "expected item, found %s", describe(first))
	}
	p.next()
	n := p.peek()
	if n == nil || !n.isGroup() {
		return p.expected("macro arguments")
	}
	p.next()
	if n.isBrace() {
		return nil
	}
	if !isPunct(p.peek(), ";") {
		return p.expected("`;` after macro invocation")
	}
	p.next()
	return nil
}

// generics consumes an optional `<..>` parameter list.
func (p *itemParser) generics() error {
	if !isPunct(p.peek(), "<") {
		return nil
	}
	open := p.peek()
	depth := 0
	for !p.atEnd() {
		n := p.next()
		depth = angleDepth(n, depth)
		if depth == 0 {
			return nil
		}
	}
	return p.fail(open, "unclosed `<`")
}

func angleDepth(n *node, depth int) int {
	switch {
	case n.is("<"):
		return depth + 1
	case n.is(">"):
		return max(depth-1, 0)
	case n.is(">>"):
		return max(depth-2, 0)
	}
	return depth
}

// header consumes bounds, return types and where clauses up to the item
// body. It returns the body brace, or nil when a `;` ended the item.
func (p *itemParser) header(allowSemi bool) (*node, error) {
	depth := 0
	for !p.atEnd() {
		n := p.peek()
		if depth == 0 {
			switch {
			case n.isBrace():
				p.next()
				return n, nil
			case n.is(";"):
				if !allowSemi {
					return nil, p.expected("`{`")
				}
				p.next()
				return nil, nil
			case n.is("="):
				return nil, p.fail(n, "unexpected `=` in item header")
			}
		}
		if err := checkTypeWord(n, p.peekAt(1)); err != nil {
			return nil, err
		}
		depth = angleDepth(n, depth)
		p.next()
	}
	if allowSemi {
		return nil, p.expected("`{` or `;`")
	}
	return nil, p.expected("`{`")
}

// checkTypeWord rejects statement keywords inside type positions. A bare
// `fn` is allowed only as a function pointer type.
func checkTypeWord(n, next *node) error {
	if n.tok.Kind != tokIdent {
		return nil
	}
	if headerStops[n.tok.Text] {
		return &SyntaxError{Off: n.tok.Off, Msg: fmt.Sprintf("unexpected keyword %s", describe(n))}
	}
	if n.tok.Text == "fn" && !isGroupOf(next, "(") {
		return &SyntaxError{Off: n.tok.Off, Msg: "expected `(` after `fn` in type"}
	}
	return nil
}

func checkType(seq []node) error {
	for i := range seq {
		var next *node
		if i+1 < len(seq) {
			next = &seq[i+1]
		}
		if err := checkTypeWord(&seq[i], next); err != nil {
			return err
		}
	}
	return nil
}

// untilSemi returns the nodes before the next `;` and consumes it.
func (p *itemParser) untilSemi() ([]node, error) {
	start := p.pos
	for !p.atEnd() {
		if p.peek().is(";") {
			out := p.seq[start:p.pos]
			p.next()
			return out, nil
		}
		p.next()
	}
	return nil, p.expected("`;`")
}

type segment struct {
	nodes []node
	end   int
}

// splitCommas splits a brace body at commas outside angle brackets. A
// single trailing comma is allowed; any other empty element is an error
// reported by the caller as a missing name.
func splitCommas(body *node) []segment {
	seq := dropComments(body.children)
	var out []segment
	depth, start := 0, 0
	for i := range seq {
		n := &seq[i]
		if depth == 0 && n.is(",") {
			out = append(out, segment{nodes: seq[start:i], end: n.tok.Off})
			start = i + 1
			continue
		}
		depth = angleDepth(n, depth)
	}
	if start < len(seq) {
		out = append(out, segment{nodes: seq[start:], end: body.closeTok.Off})
	}
	return out
}

// checkFields accepts `#[..]* vis? name: Type` elements.
func checkFields(body *node) error {
	for _, seg := range splitCommas(body) {
		f := &itemParser{seq: seg.nodes, end: seg.end}
		if _, err := f.attrs(); err != nil {
			return err
		}
		f.visibility()
		if err := f.name("field"); err != nil {
			return err
		}
		if !isPunct(f.peek(), ":") {
			return f.expected("`:` after field name")
		}
		f.next()
		if f.atEnd() {
			return f.expected("field type")
		}
		if err := checkType(f.seq[f.pos:]); err != nil {
			return err
		}
	}
	return nil
}

// checkBlock walks a function body. Statements are not parsed; a `let`
// must be followed by a pattern.
func checkBlock(seq []node) error {
	for i := range seq {
		n := &seq[i]
		if n.isGroup() {
			if err := checkBlock(n.children); err != nil {
				return err
			}
			continue
		}
		if !isWord(n, "let") {
			continue
		}
		var next *node
		for j := i + 1; j < len(seq); j++ {
			if !seq[j].isComment() {
				next = &seq[j]
				break
			}
		}
		switch {
		case next == nil:
			return &SyntaxError{Off: n.tok.Off, Msg: "expected pattern after `let`"}
		case next.isGroup(), next.is("&"), next.is("&&"), next.tok.Kind == tokLiteral,
			isWord(next, "mut"), isWord(next, "ref"), isWord(next, "Self"), isWord(next, "self"),
			isWord(next, "crate"), isWord(next, "super"),
			next.tok.Kind == tokIdent && !reserved[next.tok.Text]:
		default:
			return &SyntaxError{Off: next.tok.Off, Msg: fmt.Sprintf("expected pattern, found %s", describe(next))}
		}
	}
	return nil
}
