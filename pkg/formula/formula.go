// Package formula implements a restricted arithmetic expression evaluator
// for metric formulas. It supports +, -, *, /, parentheses, numeric
// literals and identifiers resolved from a variable map, with no function
// calls, no attribute access, no side effects.
package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Evaluate parses and evaluates an expression against the variable map.
// Unknown identifiers and division by zero return errors; callers treat
// those as data-quality defects and degrade the metric to 0.0.
func Evaluate(expression string, vars map[string]float64) (float64, error) {
	tokens, err := tokenize(expression)
	if err != nil {
		return 0, err
	}
	p := &parser{tokens: tokens, vars: vars}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos < len(p.tokens) {
		return 0, fmt.Errorf("unexpected token %q", p.tokens[p.pos].text)
	}
	return value, nil
}

// Validate checks that an expression parses, without evaluating it.
func Validate(expression string) error {
	tokens, err := tokenize(expression)
	if err != nil {
		return err
	}
	p := &parser{tokens: tokens, skipResolve: true}
	if _, err := p.parseExpr(); err != nil {
		return err
	}
	if p.pos < len(p.tokens) {
		return fmt.Errorf("unexpected token %q", p.tokens[p.pos].text)
	}
	return nil
}

// Identifiers returns every identifier referenced by an expression.
func Identifiers(expression string) []string {
	tokens, err := tokenize(expression)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	idents := make([]string, 0)
	for _, tok := range tokens {
		if tok.kind == tokenIdent && !seen[tok.text] {
			seen[tok.text] = true
			idents = append(idents, tok.text)
		}
	}
	return idents
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenIdent
	tokenOp
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(expression string) ([]token, error) {
	tokens := make([]token, 0)
	runes := []rune(expression)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			tokens = append(tokens, token{tokenLParen, "("})
			i++
		case r == ')':
			tokens = append(tokens, token{tokenRParen, ")"})
			i++
		case r == '+' || r == '-' || r == '*' || r == '/':
			tokens = append(tokens, token{tokenOp, string(r)})
			i++
		case unicode.IsDigit(r) || r == '.':
			start := i
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.') {
				i++
			}
			text := string(runes[start:i])
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return nil, fmt.Errorf("invalid number %q", text)
			}
			tokens = append(tokens, token{tokenNumber, text})
		case unicode.IsLetter(r) || r == '_':
			start := i
			for i < len(runes) && (unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i]) || runes[i] == '_') {
				i++
			}
			tokens = append(tokens, token{tokenIdent, string(runes[start:i])})
		default:
			return nil, fmt.Errorf("unexpected character %q", string(r))
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty expression")
	}
	return tokens, nil
}

type parser struct {
	tokens      []token
	pos         int
	vars        map[string]float64
	skipResolve bool
}

func (p *parser) parseExpr() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokenOp &&
		(p.tokens[p.pos].text == "+" || p.tokens[p.pos].text == "-") {
		op := p.tokens[p.pos].text
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == "+" {
			value += right
		} else {
			value -= right
		}
	}
	return value, nil
}

func (p *parser) parseTerm() (float64, error) {
	value, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokenOp &&
		(p.tokens[p.pos].text == "*" || p.tokens[p.pos].text == "/") {
		op := p.tokens[p.pos].text
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == "*" {
			value *= right
		} else {
			if right == 0 && !p.skipResolve {
				return 0, fmt.Errorf("division by zero")
			}
			if !p.skipResolve {
				value /= right
			}
		}
	}
	return value, nil
}

func (p *parser) parseUnary() (float64, error) {
	if p.pos < len(p.tokens) && p.tokens[p.pos].kind == tokenOp && p.tokens[p.pos].text == "-" {
		p.pos++
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	if p.pos >= len(p.tokens) {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	tok := p.tokens[p.pos]
	switch tok.kind {
	case tokenNumber:
		p.pos++
		value, _ := strconv.ParseFloat(tok.text, 64)
		return value, nil
	case tokenIdent:
		p.pos++
		if p.skipResolve {
			return 0, nil
		}
		value, ok := p.vars[tok.text]
		if !ok {
			return 0, fmt.Errorf("unknown identifier %q", tok.text)
		}
		return value, nil
	case tokenLParen:
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.pos >= len(p.tokens) || p.tokens[p.pos].kind != tokenRParen {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return value, nil
	default:
		return 0, fmt.Errorf("unexpected token %q", strings.TrimSpace(tok.text))
	}
}
