package parser

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokStar
	tokComma
	tokLParen
	tokRParen
	tokOp
	tokSemicolon
)

type token struct {
	kind tokenKind
	text string
	// pos is the rune offset of the first character.
	pos int
}

func (t token) is(keyword string) bool {
	return t.kind == tokIdent && strings.EqualFold(t.text, keyword)
}

func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return "string '" + t.text + "'"
	default:
		return "\"" + t.text + "\""
	}
}

type lexer struct {
	src []rune
	pos int
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_.@-*?", r)
}

func (l *lexer) tokens() ([]token, *Error) {
	var out []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			return out, nil
		}
	}
}

func (l *lexer) next() (token, *Error) {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	r := l.src[l.pos]

	switch {
	case r == '\'' || r == '"':
		return l.quoted(r)
	case r == ',':
		l.pos++
		return token{kind: tokComma, text: ",", pos: start}, nil
	case r == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case r == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case r == ';':
		l.pos++
		return token{kind: tokSemicolon, text: ";", pos: start}, nil
	case r == '=' || r == '<' || r == '>' || r == '!':
		return l.operator()
	case r == '*' && l.starStandsAlone():
		l.pos++
		return token{kind: tokStar, text: "*", pos: start}, nil
	case unicode.IsDigit(r) || (r == '-' && l.pos+1 < len(l.src) && unicode.IsDigit(l.src[l.pos+1])):
		return l.number()
	case isIdentRune(r):
		for l.pos < len(l.src) && isIdentRune(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos]), pos: start}, nil
	}

	return token{}, &Error{Offset: start, Message: "unexpected character '" + string(r) + "'"}
}

// starStandsAlone reports whether the '*' at pos is the select-all marker
// rather than the start of a wildcard pattern such as *error. A star glued
// to a keyword, as in "select *from", is the marker.
func (l *lexer) starStandsAlone() bool {
	end := l.pos + 1
	for end < len(l.src) && isIdentRune(l.src[end]) {
		end++
	}
	if end == l.pos+1 {
		return true
	}
	return reserved[strings.ToLower(string(l.src[l.pos+1:end]))]
}

func (l *lexer) quoted(quote rune) (token, *Error) {
	start := l.pos
	l.pos++

	var b strings.Builder
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if r == quote {
			// A doubled quote stands for the quote itself.
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == quote {
				b.WriteRune(quote)
				l.pos += 2
				continue
			}
			l.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		}
		b.WriteRune(r)
		l.pos++
	}

	return token{}, &Error{Offset: start, Message: "unterminated string"}
}

func (l *lexer) operator() (token, *Error) {
	start := l.pos
	for _, op := range []string{"<=", ">=", "!=", "<>", "=", "<", ">"} {
		n := len([]rune(op))
		if l.pos+n <= len(l.src) && string(l.src[l.pos:l.pos+n]) == op {
			l.pos += n
			return token{kind: tokOp, text: op, pos: start}, nil
		}
	}
	return token{}, &Error{Offset: start, Message: "unexpected character '" + string(l.src[start]) + "'"}
}

func (l *lexer) number() (token, *Error) {
	start := l.pos
	l.pos++
	for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}
	// 2024-01-01 style values continue as identifiers.
	if l.pos < len(l.src) && isIdentRune(l.src[l.pos]) {
		for l.pos < len(l.src) && isIdentRune(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos]), pos: start}, nil
	}
	return token{kind: tokNumber, text: string(l.src[start:l.pos]), pos: start}, nil
}
