// Package parse consumes a token stream from pkg/template/token and
// builds the pkg/template/ast tree the transform package walks.
package parse

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/weftui/weft/pkg/config"
	"github.com/weftui/weft/pkg/template/ast"
	"github.com/weftui/weft/pkg/template/token"
)

// WhitespaceMode selects how runs of whitespace in text nodes are
// handled; condense is the default per spec.md's parser section.
type WhitespaceMode int

const (
	WhitespaceCondense WhitespaceMode = iota
	WhitespacePreserve
)

// Options configures a Parser. Config, when nil, defaults to
// config.Default(): the compiled-in HTML tag tables and delimiters a
// standalone Parser needs are the same ones pkg/config hands the rest
// of the compile pipeline, so a caller that already loaded a
// CompilerConfig (say, from a project's weft.yaml) can pass it through
// here instead of re-deriving Delimiters/KnownNatives by hand.
type Options struct {
	Delimiters   token.Delimiters
	Whitespace   WhitespaceMode
	KnownNatives map[string]bool // extra native tag names beyond Config's own set
	Config       *config.CompilerConfig
}

// Error is a parse-time diagnostic, collected rather than raised so a
// single compilation surfaces every problem it finds.
type Error struct {
	Message   string
	Line, Col int
}

func (e Error) Error() string {
	return fmt.Sprintf("template: %s at %d:%d", e.Message, e.Line, e.Col)
}

type openElement struct {
	node   *ast.ElementNode
	pre    bool // v-pre is active for this element or an ancestor

	// childNS is the namespace this element's own children inherit,
	// which differs from node.Namespace exactly at an SVG integration
	// point (foreignObject/desc/title): the element itself stays SVG,
	// but its content re-enters HTML.
	childNS ast.Namespace
}

// Parser builds an ast.Template from a token stream, maintaining an
// ancestor stack of open elements the way any streaming HTML parser
// does.
type Parser struct {
	tz   *token.Tokenizer
	opts Options
	errs []Error

	stack []*openElement
	root  []ast.Node
}

func New(src string, opts Options) *Parser {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Delimiters.Open == "" && opts.Delimiters.Close == "" {
		opts.Delimiters = token.Delimiters{Open: opts.Config.DelimitersOpen, Close: opts.Config.DelimitersClose}
	}
	return &Parser{
		tz:   token.NewWithConfig(src, opts.Delimiters, opts.Config),
		opts: opts,
	}
}

func (p *Parser) errorf(line, col int, format string, args ...any) {
	p.errs = append(p.errs, Error{Message: fmt.Sprintf(format, args...), Line: line, Col: col})
}

func (p *Parser) Errors() []Error { return p.errs }

// Parse drains the tokenizer, returning the resulting tree. It never
// returns an error itself: diagnostics accumulate in Errors() so the
// caller can report them all while still getting a best-effort tree.
func (p *Parser) Parse() *ast.Template {
	for {
		tok := p.tz.Next()
		if tok.Kind == token.KindEOF {
			break
		}
		p.handleToken(tok)
	}
	for _, e := range p.tz.Errors() {
		p.errorf(e.Line, e.Col, "%s", e.Message)
	}

	// EOF with a non-empty stack: implicitly close everything left,
	// emitting a missing-end-tag error per element.
	for len(p.stack) > 0 {
		top := p.stack[len(p.stack)-1]
		p.errorf(top.node.Loc.Line, top.node.Loc.Col, "missing-end-tag: <%s>", top.node.Tag)
		p.popAndClassify()
	}

	return &ast.Template{Nodes: p.condenseSiblings(p.root, true)}
}

func (p *Parser) currentChildren() *[]ast.Node {
	if len(p.stack) == 0 {
		return &p.root
	}
	top := p.stack[len(p.stack)-1]
	return &top.node.Children
}

func (p *Parser) inPre() bool {
	return len(p.stack) > 0 && p.stack[len(p.stack)-1].pre
}

func (p *Parser) handleToken(tok token.Token) {
	switch tok.Kind {
	case token.KindText:
		p.appendChild(&ast.TextNode{Content: tok.Text, Loc: pos(tok)})

	case token.KindInterpolation:
		if p.inPre() {
			p.appendChild(&ast.TextNode{Content: delimOpenOr(p.opts.Delimiters) + tok.Text + delimCloseOr(p.opts.Delimiters), Loc: pos(tok)})
			return
		}
		p.appendChild(&ast.InterpolationNode{Expr: tok.Text, Loc: pos(tok)})

	case token.KindComment:
		p.appendChild(&ast.CommentNode{Content: tok.Text, Loc: pos(tok)})

	case token.KindStartTag:
		p.openTag(tok)

	case token.KindEndTag:
		p.closeTag(tok)
	}
}

func (o Options) OpenOr() string { return delimOpenOr(o.Delimiters) }

func delimOpenOr(d token.Delimiters) string {
	if d.Open == "" {
		return token.DefaultDelimiters.Open
	}
	return d.Open
}
func delimCloseOr(d token.Delimiters) string {
	if d.Close == "" {
		return token.DefaultDelimiters.Close
	}
	return d.Close
}

func (p *Parser) appendChild(n ast.Node) {
	children := p.currentChildren()
	*children = append(*children, n)
}

// currentNamespace returns the namespace an about-to-open element
// inherits before its own override rule (if any) is applied: the
// enclosing element's childNS, or HTML at the root.
func (p *Parser) currentNamespace() ast.Namespace {
	if len(p.stack) == 0 {
		return ast.NamespaceHTML
	}
	return p.stack[len(p.stack)-1].childNS
}

// namespaceFor implements §4.3's namespace rule: `<svg>` enters SVG and
// `<math>` enters MathML for the element itself; everything else
// (including foreignObject/desc/title) takes the inherited namespace
// as its own — the HTML integration-point re-entry only changes what
// its *children* see, computed separately by childNamespaceFor.
func namespaceFor(tag string, cfg *config.CompilerConfig, inherited ast.Namespace) ast.Namespace {
	switch cfg.Fold(tag) {
	case "svg":
		return ast.NamespaceSVG
	case "math":
		return ast.NamespaceMathML
	}
	return inherited
}

// childNamespaceFor computes what an element's own children inherit,
// given the element's own (already-resolved) namespace: foreignObject,
// desc, and title are SVG integration points, so content beneath them
// re-enters HTML even though the elements themselves stay SVG.
func childNamespaceFor(tag string, cfg *config.CompilerConfig, own ast.Namespace) ast.Namespace {
	switch cfg.Fold(tag) {
	case "foreignobject", "desc", "title":
		if own == ast.NamespaceSVG {
			return ast.NamespaceHTML
		}
	}
	return own
}

func (p *Parser) openTag(tok token.Token) {
	pre := p.inPre()
	ns := namespaceFor(tok.Tag, p.opts.Config, p.currentNamespace())
	elem := &ast.ElementNode{
		Tag:         tok.Tag,
		SelfClosing: tok.SelfClosing,
		Namespace:   ns,
		Loc:         pos(tok),
	}

	for _, raw := range tok.Attrs {
		if pre || !isDirectiveName(raw.Name) {
			elem.Attrs = append(elem.Attrs, ast.Attribute{Name: raw.Name, Value: raw.Value, Loc: ast.Position{Line: raw.Line, Col: raw.Col}})
			continue
		}
		d := classifyDirective(raw)
		if d.Name == "for" {
			d = parseForDirective(d)
		}
		elem.Directives = append(elem.Directives, d)
		if d.Name == "pre" {
			pre = true
		}
	}

	elem.TagType = classifyTag(elem.Tag, elem.Directives, p.opts.Config, p.opts.KnownNatives)

	p.appendChild(elem)

	if !tok.SelfClosing && !p.opts.Config.IsVoidElement(elem.Tag) {
		childNS := childNamespaceFor(elem.Tag, p.opts.Config, ns)
		p.stack = append(p.stack, &openElement{node: elem, pre: pre, childNS: childNS})
	}
}

func (p *Parser) closeTag(tok token.Token) {
	idx := -1
	for i := len(p.stack) - 1; i >= 0; i-- {
		if p.opts.Config.SameTag(p.stack[i].node.Tag, tok.Tag) {
			idx = i
			break
		}
	}
	if idx == -1 {
		p.errorf(tok.Line, tok.Col, "invalid-end-tag: </%s> has no matching open tag", tok.Tag)
		return
	}
	// Implicitly close any intermediate elements between the stack top
	// and the match.
	for len(p.stack)-1 > idx {
		top := p.stack[len(p.stack)-1]
		p.errorf(tok.Line, tok.Col, "missing-end-tag: <%s> implicitly closed by </%s>", top.node.Tag, tok.Tag)
		p.popAndClassify()
	}
	p.popAndClassify()
}

func (p *Parser) popAndClassify() {
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	keep := top.pre || p.opts.Config.Fold(top.node.Tag) == "pre"
	for _, anc := range p.stack {
		if p.opts.Config.Fold(anc.node.Tag) == "pre" {
			keep = true
		}
	}
	top.node.Children = p.condenseSiblings(top.node.Children, keep)
}

// condenseSiblings applies the whitespace policy across one element's
// (or the root's) direct children: preserve leaves text untouched;
// condense collapses interior whitespace runs to a single space and
// drops whitespace-only nodes that are leading/trailing, adjacent to a
// comment, or between two elements when the run contains a newline.
func (p *Parser) condenseSiblings(nodes []ast.Node, pre bool) []ast.Node {
	if pre || p.opts.Whitespace == WhitespacePreserve {
		if pre {
			return normalizeNewlines(nodes)
		}
		return nodes
	}

	out := make([]ast.Node, 0, len(nodes))
	for i, n := range nodes {
		text, ok := n.(*ast.TextNode)
		if !ok {
			out = append(out, n)
			continue
		}
		condensed := condenseWhitespace(text.Content)
		if strings.TrimSpace(text.Content) == "" {
			leading := i == 0
			trailing := i == len(nodes)-1
			adjComment := (i > 0 && isComment(nodes[i-1])) || (i < len(nodes)-1 && isComment(nodes[i+1]))
			betweenElements := i > 0 && i < len(nodes)-1 && isElement(nodes[i-1]) && isElement(nodes[i+1]) && strings.Contains(text.Content, "\n")
			if leading || trailing || adjComment || betweenElements {
				continue
			}
			condensed = " "
		}
		out = append(out, &ast.TextNode{Content: condensed, Loc: text.Loc})
	}
	return out
}

func normalizeNewlines(nodes []ast.Node) []ast.Node {
	for _, n := range nodes {
		if text, ok := n.(*ast.TextNode); ok {
			text.Content = strings.ReplaceAll(text.Content, "\r\n", "\n")
		}
	}
	return nodes
}

func isComment(n ast.Node) bool { _, ok := n.(*ast.CommentNode); return ok }
func isElement(n ast.Node) bool { _, ok := n.(*ast.ElementNode); return ok }

var whitespaceRun = regexp.MustCompile(`\s+`)

func condenseWhitespace(s string) string {
	return whitespaceRun.ReplaceAllString(s, " ")
}

func pos(tok token.Token) ast.Position {
	return ast.Position{Line: tok.Line, Col: tok.Col}
}

// isDirectiveName reports whether a raw attribute name is one of the
// directive-introducing prefixes recognized in attribute-name
// position: v-name, :arg, @arg, #arg, .prop.
func isDirectiveName(name string) bool {
	if name == "" {
		return false
	}
	switch name[0] {
	case ':', '@', '#', '.':
		return true
	}
	return strings.HasPrefix(name, "v-")
}

var directiveArgModRe = regexp.MustCompile(`^([^.]*)((?:\.[\w-]+)*)$`)

// classifyDirective turns a raw v-/: /@/#/.-prefixed attribute into a
// Directive: name, argument (including a `[dynamic]` argument), and
// trailing `.mod` modifier list.
func classifyDirective(raw token.RawAttr) ast.Directive {
	name := raw.Name
	var dirName, rest string

	switch {
	case strings.HasPrefix(name, "v-"):
		rest = name[2:]
		if idx := strings.IndexByte(rest, ':'); idx >= 0 {
			dirName, rest = rest[:idx], rest[idx+1:]
		} else {
			dirName, rest = rest, ""
		}
	case name[0] == ':':
		dirName, rest = "bind", name[1:]
	case name[0] == '@':
		dirName, rest = "on", name[1:]
	case name[0] == '#':
		dirName, rest = "slot", name[1:]
	case name[0] == '.':
		dirName, rest = "bind", name[1:]
	}

	m := directiveArgModRe.FindStringSubmatch(rest)
	argPart, modPart := rest, ""
	if m != nil {
		argPart, modPart = m[1], m[2]
	}

	var mods []string
	if modPart != "" {
		mods = strings.Split(strings.TrimPrefix(modPart, "."), ".")
	}

	isDynamic := false
	if strings.HasPrefix(argPart, "[") && strings.HasSuffix(argPart, "]") {
		isDynamic = true
		argPart = argPart[1 : len(argPart)-1]
	}

	if name[0] == '.' {
		mods = append(mods, "prop")
	}

	return ast.Directive{
		Name:         dirName,
		Arg:          argPart,
		IsDynamicArg: isDynamic,
		Modifiers:    mods,
		Exp:          raw.Value,
		Loc:          ast.Position{Line: raw.Line, Col: raw.Col},
	}
}

// forExprRe splits "value in source", "(value, key) in source", and
// "(value, key, index) of source" forms.
var forExprRe = regexp.MustCompile(`(?s)^\s*(\([^)]*\)|[^\s,]+)\s+(?:in|of)\s+(.+?)\s*$`)
var forDestructureRe = regexp.MustCompile(`^\(\s*([^,]*)\s*(?:,\s*([^,]*)\s*)?(?:,\s*([^,]*)\s*)?\)$`)

func parseForDirective(d ast.Directive) ast.Directive {
	m := forExprRe.FindStringSubmatch(d.Exp)
	if m == nil {
		return d
	}
	lhs, source := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])

	var value, key, index string
	if strings.HasPrefix(lhs, "(") {
		if dm := forDestructureRe.FindStringSubmatch(lhs); dm != nil {
			value, key, index = strings.TrimSpace(dm[1]), strings.TrimSpace(dm[2]), strings.TrimSpace(dm[3])
		}
	} else {
		value = lhs
	}

	d.Exp = source
	d.Arg = value
	if key != "" {
		d.Modifiers = append(d.Modifiers, "key:"+key)
	}
	if index != "" {
		d.Modifiers = append(d.Modifiers, "index:"+index)
	}
	return d
}

// classifyTag decides an element's TagType from its (case-folded) tag
// name and structural directives: slot/template are special-cased,
// an uppercase-initial name is always a component, and everything
// else falls back to cfg's native-tag table (plus any caller-supplied
// extras) before defaulting to component for an unknown lowercase tag.
func classifyTag(tag string, directives []ast.Directive, cfg *config.CompilerConfig, extra map[string]bool) ast.TagType {
	folded := cfg.Fold(tag)
	if folded == "slot" {
		return ast.TagSlot
	}
	if folded == "template" {
		for _, d := range directives {
			switch d.Name {
			case "if", "else-if", "else", "for", "slot":
				return ast.TagTemplate
			}
		}
	}
	isUpper := tag != "" && tag[0] >= 'A' && tag[0] <= 'Z'
	if isUpper {
		return ast.TagComponent
	}
	if extra != nil && extra[folded] {
		return ast.TagElement
	}
	if cfg.IsNativeTag(tag) {
		return ast.TagElement
	}
	return ast.TagComponent
}
