package css

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/gorilla/css/scanner"
)

// Parse parses a stylesheet. name is used in error locations.
//
// Parsing recovers from errors at the enclosing declaration or rule, so a
// single pass reports every problem. When any error is found, Parse returns
// the recovered stylesheet together with a ParseErrors; callers applying
// stylesheets must treat that as a failed load.
func Parse(name, src string) (*Stylesheet, error) {
	p := newParser(name, src)
	p.sheet.Fingerprint = xxhash.Sum64String(src)
	p.parseStylesheet()
	p.validate()
	if len(p.errs) > 0 {
		slices.SortStableFunc(p.errs, func(a, b *ParseError) int {
			if a.Location.Line != b.Location.Line {
				return a.Location.Line - b.Location.Line
			}
			return a.Location.Column - b.Location.Column
		})
		return p.sheet, p.errs
	}
	return p.sheet, nil
}

// MustParse is Parse for stylesheets known to be valid, such as built-in
// defaults.
func MustParse(name, src string) *Stylesheet {
	sheet, err := Parse(name, src)
	if err != nil {
		panic(err)
	}
	return sheet
}

type parser struct {
	filename string
	toks     []*scanner.Token
	pos      int
	errs     ParseErrors
	sheet    *Stylesheet
}

func newParser(name, src string) *parser {
	p := &parser{
		filename: name,
		sheet:    NewStylesheet(name),
	}
	s := scanner.New(src)
	for {
		t := s.Next()
		switch t.Type {
		case scanner.TokenComment, scanner.TokenBOM, scanner.TokenCDO, scanner.TokenCDC:
			continue
		case scanner.TokenError:
			p.errorf(t, Syntax, "%s", t.Value)
			p.toks = append(p.toks, &scanner.Token{Type: scanner.TokenEOF, Line: t.Line, Column: t.Column})
			return p
		}
		p.toks = append(p.toks, t)
		if t.Type == scanner.TokenEOF {
			return p
		}
	}
}

func (p *parser) peek() *scanner.Token {
	return p.toks[min(p.pos, len(p.toks)-1)]
}

// peekAt looks n tokens ahead without skipping whitespace.
func (p *parser) peekAt(n int) *scanner.Token {
	return p.toks[min(p.pos+n, len(p.toks)-1)]
}

func (p *parser) next() *scanner.Token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) eof() bool {
	return p.peek().Type == scanner.TokenEOF
}

func (p *parser) skipWS() {
	for p.peek().Type == scanner.TokenS {
		p.next()
	}
}

func (p *parser) location(t *scanner.Token) Location {
	return Location{
		Filename: p.filename,
		Line:     t.Line,
		Column:   t.Column,
		Length:   max(1, utf8.RuneCountInString(t.Value)),
	}
}

func (p *parser) errorf(t *scanner.Token, kind ErrorKind, format string, args ...any) {
	p.errs = append(p.errs, &ParseError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: p.location(t),
	})
}

func (p *parser) parseStylesheet() {
	for {
		p.skipWS()
		t := p.peek()
		switch {
		case t.Type == scanner.TokenEOF:
			return
		case isChar(t, "$"):
			p.parseVariable(nil)
		case t.Type == scanner.TokenAtKeyword:
			p.errorf(t, Syntax, "unsupported at-rule %s", t.Value)
			p.skipStatement()
		case isChar(t, "}"):
			p.errorf(t, Syntax, "unexpected }")
			p.next()
		case isChar(t, ";"):
			p.next()
		default:
			p.parseRule()
		}
	}
}

// skipStatement skips to the end of the current statement: through the next
// ';' or past a balanced {...} block.
func (p *parser) skipStatement() {
	for !p.eof() {
		t := p.next()
		switch {
		case isChar(t, ";"):
			return
		case isChar(t, "{"):
			p.skipBlock()
			return
		}
	}
}

// skipBlock skips past the '}' closing a block whose '{' was consumed.
func (p *parser) skipBlock() {
	depth := 1
	for !p.eof() {
		t := p.next()
		switch {
		case isChar(t, "{"):
			depth++
		case isChar(t, "}"):
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// recover skips the rest of a declaration: through the next ';', or up to
// (not including) the '}' that closes the enclosing block.
func (p *parser) recover() {
	for !p.eof() {
		t := p.peek()
		switch {
		case isChar(t, ";"):
			p.next()
			return
		case isChar(t, "}"):
			return
		case isChar(t, "{"):
			p.next()
			p.skipBlock()
		default:
			p.next()
		}
	}
}

func (p *parser) parseRule() {
	start := p.peek()
	var prelude []*scanner.Token
	for {
		t := p.peek()
		if isChar(t, "{") {
			break
		}
		if t.Type == scanner.TokenEOF || isChar(t, ";") || isChar(t, "}") {
			p.errorf(start, Syntax, "expected { after selector %q", tokensText(prelude))
			if isChar(t, ";") {
				p.next()
			}
			return
		}
		prelude = append(prelude, p.next())
	}
	p.next() // {

	sels, serr := parseSelectors(prelude)
	if serr != nil {
		at := serr.tok
		if at == nil {
			at = start
		}
		p.errorf(at, SelectorSyntax, "%s", serr.msg)
		p.skipBlock()
		return
	}

	rule := &Rule{
		Selectors: sels,
		Location:  p.location(start),
	}
	if !p.parseBlock(rule) {
		return
	}
	p.sheet.AddRule(rule)
}

// parseBlock parses declarations up to and including the closing '}'. It
// returns false if the block is unterminated.
func (p *parser) parseBlock(rule *Rule) bool {
	for {
		p.skipWS()
		t := p.peek()
		switch {
		case t.Type == scanner.TokenEOF:
			p.errorf(t, Syntax, "unclosed block for rule at %s", rule.Location)
			return false
		case isChar(t, "}"):
			p.next()
			return true
		case isChar(t, ";"):
			p.next()
		case isChar(t, "$"):
			p.parseVariable(rule)
		case t.Type == scanner.TokenIdent:
			p.parseDeclaration(rule)
		case isChar(t, "{"):
			p.errorf(t, Syntax, "nested blocks are not supported")
			p.next()
			p.skipBlock()
		default:
			p.errorf(t, Syntax, "expected a property name, got %q", t.Value)
			p.recover()
		}
	}
}

func (p *parser) parseVariable(rule *Rule) {
	dollar := p.next()
	nameTok := p.peek()
	if nameTok.Type != scanner.TokenIdent {
		p.errorf(dollar, Syntax, "expected a variable name after $")
		p.recover()
		return
	}
	p.next()
	p.skipWS()
	if !isChar(p.peek(), ":") {
		p.errorf(p.peek(), Syntax, "expected : after $%s", nameTok.Value)
		p.recover()
		return
	}
	p.next()

	value, important, ok := p.parseValue()
	if !ok {
		return
	}
	if len(value) == 0 {
		p.errorf(nameTok, InvalidValue, "missing value for $%s", nameTok.Value)
		return
	}
	if important {
		p.errorf(nameTok, Syntax, "variable $%s cannot be !important", nameTok.Value)
		return
	}
	if rule == nil {
		p.sheet.Variables[nameTok.Value] = value
		return
	}
	rule.Declarations = append(rule.Declarations, Declaration{
		Property: "$" + nameTok.Value,
		Value:    value,
		Location: p.location(dollar),
	})
}

func (p *parser) parseDeclaration(rule *Rule) {
	nameTok := p.next()
	p.skipWS()
	if !isChar(p.peek(), ":") {
		p.errorf(p.peek(), Syntax, "expected : after %s", nameTok.Value)
		p.recover()
		return
	}
	p.next()

	value, important, ok := p.parseValue()
	if !ok {
		return
	}
	prop, found := LookupProperty(nameTok.Value)
	if !found {
		p.errorf(nameTok, UnknownProperty, "unknown property %q", nameTok.Value)
		return
	}
	if len(value) == 0 {
		p.errorf(nameTok, InvalidValue, "missing value for %s", prop.Name)
		return
	}
	rule.Declarations = append(rule.Declarations, Declaration{
		Property:  prop.Name,
		Value:     value,
		Important: important,
		Location:  p.location(nameTok),
	})
}

// parseValue reads value tokens up to the end of a declaration, consuming a
// terminating ';' but not a '}'. It reports false after an error, having
// already recovered.
func (p *parser) parseValue() (Value, bool, bool) {
	var (
		v         Value
		important bool
	)
	for {
		t := p.peek()
		switch {
		case t.Type == scanner.TokenEOF || isChar(t, "}"):
			return v, important, true
		case isChar(t, ";"):
			p.next()
			return v, important, true
		case t.Type == scanner.TokenS:
			p.next()
			continue
		case important:
			p.errorf(t, Syntax, "!important must end the declaration")
			p.recover()
			return nil, false, false
		case isChar(t, "!"):
			p.next()
			p.skipWS()
			if kw := p.peek(); kw.Type != scanner.TokenIdent || !strings.EqualFold(kw.Value, "important") {
				p.errorf(t, Syntax, "expected important after !")
				p.recover()
				return nil, false, false
			}
			p.next()
			important = true
			continue
		}
		tok, ok := p.valueToken()
		if !ok {
			p.recover()
			return nil, false, false
		}
		v = append(v, tok)
	}
}

// valueToken converts the next token, and for functions everything up to
// the closing parenthesis, into a value Token.
func (p *parser) valueToken() (Token, bool) {
	t := p.next()
	switch t.Type {
	case scanner.TokenIdent:
		return Token{Kind: KindIdent, Text: t.Value}, true
	case scanner.TokenNumber, scanner.TokenPercentage, scanner.TokenDimension:
		tok, _ := numericToken(t)
		return tok, true
	case scanner.TokenHash:
		return Token{Kind: KindHash, Text: t.Value}, true
	case scanner.TokenString:
		return Token{Kind: KindString, Text: unquote(t.Value)}, true
	case scanner.TokenFunction:
		return p.functionToken(t)
	case scanner.TokenChar:
		switch t.Value {
		case "$":
			name := p.peekAt(0)
			if name.Type != scanner.TokenIdent {
				p.errorf(t, Syntax, "expected a variable name after $")
				return Token{}, false
			}
			p.next()
			return Token{Kind: KindVar, Text: name.Value}, true
		case ",":
			return Token{Kind: KindComma, Text: ","}, true
		case "-", "+":
			if tok, ok := numericToken(p.peekAt(0)); ok {
				p.next()
				if t.Value == "-" {
					tok.Text = "-" + tok.Text
				}
				return tok, true
			}
			return Token{Kind: KindDelim, Text: t.Value}, true
		case "{", "(", ")", "[", "]":
			p.errorf(t, Syntax, "unexpected %q in value", t.Value)
			return Token{}, false
		}
		return Token{Kind: KindDelim, Text: t.Value}, true
	}
	p.errorf(t, Syntax, "unexpected %s in value", t.Type)
	return Token{}, false
}

func (p *parser) functionToken(open *scanner.Token) (Token, bool) {
	fn := Token{Kind: KindFunction, Text: strings.TrimSuffix(open.Value, "(")}
	for {
		t := p.peek()
		switch {
		case t.Type == scanner.TokenS:
			p.next()
		case isChar(t, ")"):
			p.next()
			return fn, true
		case t.Type == scanner.TokenEOF || isChar(t, ";") || isChar(t, "}"):
			p.errorf(open, Syntax, "unclosed %s", open.Value)
			return Token{}, false
		default:
			arg, ok := p.valueToken()
			if !ok {
				return Token{}, false
			}
			fn.Args = append(fn.Args, arg)
		}
	}
}

func numericToken(t *scanner.Token) (Token, bool) {
	switch t.Type {
	case scanner.TokenNumber:
		return Token{Kind: KindNumber, Text: t.Value}, true
	case scanner.TokenPercentage:
		return Token{Kind: KindPercentage, Text: t.Value}, true
	case scanner.TokenDimension:
		return Token{Kind: KindDimension, Text: t.Value}, true
	}
	return Token{}, false
}

func unquote(s string) string {
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

func tokensText(toks []*scanner.Token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.Value)
	}
	return strings.TrimSpace(sb.String())
}

// validate type-checks every declaration whose value can be resolved at load
// time, dropping invalid ones with an error. Values referencing variables
// that are not all defined at top level are left for the cascade, which
// treats a failed resolution as an absent declaration.
func (p *parser) validate() {
	for _, r := range p.sheet.Rules {
		kept := r.Declarations[:0]
		for _, d := range r.Declarations {
			if d.IsVariable() {
				kept = append(kept, d)
				continue
			}
			prop, _ := LookupProperty(d.Property)
			v := d.Value
			if v.HasVars() {
				sub, ok := v.Substitute(p.sheet.Lookup)
				if !ok {
					kept = append(kept, d)
					continue
				}
				v = sub
			}
			parsed, err := prop.Parse(v)
			if err != nil {
				p.errs = append(p.errs, &ParseError{
					Kind:     InvalidValue,
					Message:  err.Error(),
					Location: d.Location,
				})
				continue
			}
			if !d.Value.HasVars() {
				d.Parsed = parsed
			}
			kept = append(kept, d)
		}
		r.Declarations = kept
	}
}
