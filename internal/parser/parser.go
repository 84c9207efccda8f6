// Package parser reads ElseSQL statements:
//
//	SELECT [FACETS f1, f2] [SCRIPT name = 'script'] fields FROM index
//	  [WHERE condition] [FILTER condition]
//	  [ORDER BY field [ASC|DESC], ...] [LIMIT [offset,] size]
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ca-srg/elseql/internal/query"
)

// Error is a parse failure. Offset is the rune position in Text where the
// problem was found.
type Error struct {
	Text    string
	Offset  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (at offset %d)", e.Message, e.Offset)
}

// Caret returns the input followed by a line marking the error position.
func (e *Error) Caret() []string {
	return []string{e.Text, strings.Repeat(" ", e.Offset) + "^"}
}

// Parser implements the session parser contract.
type Parser struct{}

// New creates a Parser
func New() *Parser {
	return &Parser{}
}

// Parse implements session.Parser.
func (p *Parser) Parse(text string) (*query.AbstractQuery, error) {
	q, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// Parse parses a single statement. A trailing semicolon is allowed.
func Parse(text string) (*query.AbstractQuery, *Error) {
	text = norm.NFC.String(strings.TrimSpace(text))

	lex := &lexer{src: []rune(text)}
	toks, lexErr := lex.tokens()
	if lexErr != nil {
		lexErr.Text = text
		return nil, lexErr
	}

	p := &parser{toks: toks}
	q, err := p.statement()
	if err != nil {
		err.Text = text
		return nil, err
	}
	return q, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...interface{}) *Error {
	return &Error{Offset: tok.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expectKeyword(keyword string) *Error {
	tok := p.peek()
	if !tok.is(keyword) {
		return p.errorf(tok, "expected %s, found %s", strings.ToUpper(keyword), tok.describe())
	}
	p.advance()
	return nil
}

func (p *parser) expect(kind tokenKind, what string) (token, *Error) {
	tok := p.peek()
	if tok.kind != kind {
		return tok, p.errorf(tok, "expected %s, found %s", what, tok.describe())
	}
	return p.advance(), nil
}

var reserved = map[string]bool{
	"select": true, "facets": true, "script": true, "from": true, "where": true,
	"filter": true, "order": true, "by": true, "limit": true, "and": true,
	"or": true, "not": true, "in": true, "between": true, "like": true,
	"asc": true, "desc": true,
}

func (p *parser) name(what string) (string, *Error) {
	tok := p.peek()
	if tok.kind != tokIdent || reserved[strings.ToLower(tok.text)] {
		return "", p.errorf(tok, "expected %s, found %s", what, tok.describe())
	}
	p.advance()
	return tok.text, nil
}

func (p *parser) statement() (*query.AbstractQuery, *Error) {
	if err := p.expectKeyword("select"); err != nil {
		return nil, err
	}

	q := &query.AbstractQuery{}

	for {
		tok := p.peek()
		switch {
		case tok.is("facets"):
			if q.Facets != nil {
				return nil, p.errorf(tok, "duplicate FACETS clause")
			}
			p.advance()
			facets, err := p.nameList("facet field")
			if err != nil {
				return nil, err
			}
			q.Facets = facets
			continue
		case tok.is("script"):
			if q.Script != nil {
				return nil, p.errorf(tok, "duplicate SCRIPT clause")
			}
			p.advance()
			script, err := p.script()
			if err != nil {
				return nil, err
			}
			q.Script = script
			continue
		}
		break
	}

	fields, err := p.fields()
	if err != nil {
		return nil, err
	}
	q.Fields = fields

	if err := p.expectKeyword("from"); err != nil {
		return nil, err
	}
	index, err := p.name("index name")
	if err != nil {
		return nil, err
	}
	q.Index = index

	if p.peek().is("where") {
		p.advance()
		cond, err := p.condition()
		if err != nil {
			return nil, err
		}
		q.Query = cond
	}

	if p.peek().is("filter") {
		p.advance()
		cond, err := p.condition()
		if err != nil {
			return nil, err
		}
		q.Filter = cond
	}

	if p.peek().is("order") {
		p.advance()
		if err := p.expectKeyword("by"); err != nil {
			return nil, err
		}
		order, err := p.orderList()
		if err != nil {
			return nil, err
		}
		q.Order = order
	}

	if p.peek().is("limit") {
		p.advance()
		limit, err := p.limit()
		if err != nil {
			return nil, err
		}
		q.Limit = limit
	}

	if p.peek().kind == tokSemicolon {
		p.advance()
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected %s", tok.describe())
	}

	return q, nil
}

func (p *parser) nameList(what string) ([]string, *Error) {
	var names []string
	for {
		name, err := p.name(what)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		if p.peek().kind != tokComma {
			return names, nil
		}
		p.advance()
	}
}

func (p *parser) script() (*query.ScriptField, *Error) {
	name, err := p.name("script field name")
	if err != nil {
		return nil, err
	}
	tok := p.peek()
	if tok.kind != tokOp || tok.text != "=" {
		return nil, p.errorf(tok, "expected = after script field name, found %s", tok.describe())
	}
	p.advance()
	body, err := p.expect(tokString, "quoted script")
	if err != nil {
		return nil, err
	}
	return &query.ScriptField{Name: name, Body: body.text}, nil
}

func (p *parser) fields() ([]string, *Error) {
	tok := p.peek()
	if tok.kind == tokStar {
		p.advance()
		return []string{query.AllFields}, nil
	}
	if tok.is("count") && p.toks[p.pos+1].kind == tokLParen {
		p.advance()
		p.advance()
		if _, err := p.expect(tokStar, "*"); err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return []string{query.CountField}, nil
	}
	return p.nameList("field name")
}

func (p *parser) orderList() ([]query.SortKey, *Error) {
	var keys []query.SortKey
	for {
		field, err := p.name("sort field")
		if err != nil {
			return nil, err
		}
		key := query.SortKey{Field: field, Direction: "asc"}
		if tok := p.peek(); tok.is("asc") || tok.is("desc") {
			key.Direction = strings.ToLower(p.advance().text)
		}
		keys = append(keys, key)
		if p.peek().kind != tokComma {
			return keys, nil
		}
		p.advance()
	}
}

func (p *parser) limit() ([]int, *Error) {
	var values []int
	for {
		tok, err := p.expect(tokNumber, "number")
		if err != nil {
			return nil, err
		}
		n, convErr := strconv.Atoi(tok.text)
		if convErr != nil || n < 0 {
			return nil, p.errorf(tok, "invalid limit %s", tok.describe())
		}
		values = append(values, n)
		if p.peek().kind != tokComma {
			return values, nil
		}
		p.advance()
	}
}

func (p *parser) condition() (query.Expr, *Error) {
	node, err := p.or()
	if err != nil {
		return nil, err
	}
	return node, nil
}

func (p *parser) or() (Node, *Error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.peek().is("or") {
		p.advance()
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) and() (Node, *Error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.peek().is("and") {
		p.advance()
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) not() (Node, *Error) {
	if p.peek().is("not") {
		p.advance()
		operand, err := p.not()
		if err != nil {
			return nil, err
		}
		return &Not{Operand: operand}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Node, *Error) {
	tok := p.peek()
	switch tok.kind {
	case tokLParen:
		p.advance()
		inner, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &Group{Inner: inner}, nil
	case tokString:
		p.advance()
		return &Raw{Text: tok.text}, nil
	}

	field, err := p.name("field name or condition")
	if err != nil {
		return nil, err
	}
	return p.predicate(field)
}

func (p *parser) predicate(field string) (Node, *Error) {
	negate := false
	if p.peek().is("not") {
		p.advance()
		negate = true
	}

	node, err := p.predicateBody(field, negate)
	if err != nil {
		return nil, err
	}
	if negate {
		return &Not{Operand: node}, nil
	}
	return node, nil
}

func (p *parser) predicateBody(field string, negated bool) (Node, *Error) {
	tok := p.peek()
	switch {
	case tok.kind == tokOp && !negated:
		p.advance()
		value, err := p.value()
		if err != nil {
			return nil, err
		}
		return &Compare{Field: field, Op: tok.text, Value: value}, nil
	case tok.is("like"):
		p.advance()
		value, err := p.value()
		if err != nil {
			return nil, err
		}
		return &Like{Field: field, Pattern: value.Text}, nil
	case tok.is("in"):
		p.advance()
		if _, err := p.expect(tokLParen, "("); err != nil {
			return nil, err
		}
		var values []Value
		for {
			value, err := p.value()
			if err != nil {
				return nil, err
			}
			values = append(values, value)
			if p.peek().kind != tokComma {
				break
			}
			p.advance()
		}
		if _, err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return &In{Field: field, Values: values}, nil
	case tok.is("between"):
		p.advance()
		low, err := p.value()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("and"); err != nil {
			return nil, err
		}
		high, err := p.value()
		if err != nil {
			return nil, err
		}
		return &Between{Field: field, Low: low, High: high}, nil
	}

	if negated {
		return nil, p.errorf(tok, "expected LIKE, IN or BETWEEN after NOT, found %s", tok.describe())
	}
	return nil, p.errorf(tok, "expected comparison after %q, found %s", field, tok.describe())
}

func (p *parser) value() (Value, *Error) {
	tok := p.peek()
	switch tok.kind {
	case tokString:
		p.advance()
		return Value{Text: tok.text, Quoted: true}, nil
	case tokNumber, tokIdent:
		p.advance()
		return Value{Text: tok.text}, nil
	case tokStar:
		p.advance()
		return Value{Text: "*"}, nil
	}
	return Value{}, p.errorf(tok, "expected value, found %s", tok.describe())
}

// SplitStatements splits a script on semicolons outside quoted strings.
// Blank statements and lines starting with "--" are dropped.
func SplitStatements(script string) []string {
	var statements []string
	var current strings.Builder
	var quote rune

	flush := func() {
		stmt := stripComments(current.String())
		if stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, r := range script {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ';':
			flush()
			continue
		}
		current.WriteRune(r)
	}
	flush()

	return statements
}

func stripComments(stmt string) string {
	lines := strings.Split(stmt, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
