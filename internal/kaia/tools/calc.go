package tools

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedExpression reports input that asked for arithmetic but does
// not form a valid expression. Callers distinguish this from "no expression
// present", which is ErrNoExpression.
var ErrMalformedExpression = errors.New("tools: malformed arithmetic expression")

// ErrNoExpression reports input with nothing arithmetic in it.
var ErrNoExpression = errors.New("tools: no arithmetic expression found")

// Spoken operator forms are rewritten to symbols before parsing. Order
// matters: multi-word forms must win over their single-word prefixes.
var wordOperators = []struct{ phrase, symbol string }{
	{"divided by", "/"},
	{"multiplied by", "*"},
	{"square root of", " sqrt "},
	{"percent of", "/100*"},
	{"% of", "/100*"},
	{"plus", "+"},
	{"minus", "-"},
	{"times", "*"},
	{"over", "/"},
}

var exprCharset = regexp.MustCompile(`[^0-9.+\-*/()A-Za-z ]`)

// Calculate extracts an arithmetic expression from free text and evaluates
// it. Only numbers, the four basic operators, parentheses, percentages, and
// square roots are understood; there is no name lookup and no code
// execution.
func Calculate(text string) (float64, error) {
	expr := normalizeExpression(text)
	if !strings.ContainsAny(expr, "0123456789") {
		return 0, ErrNoExpression
	}

	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	p := &parser{tokens: tokens}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, fmt.Errorf("%w: unexpected %q", ErrMalformedExpression, p.tokens[p.pos].text)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: result is not a finite number", ErrMalformedExpression)
	}
	return v, nil
}

// FormatNumber renders a result the way a person would say it: integers
// without a decimal point, everything else trimmed.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func normalizeExpression(text string) string {
	s := strings.ToLower(text)
	for _, op := range wordOperators {
		s = strings.ReplaceAll(s, op.phrase, op.symbol)
	}
	s = exprCharset.ReplaceAllString(s, " ")

	// Drop leftover words ("what", "is", "calculate") but keep sqrt.
	fields := strings.Fields(s)
	kept := fields[:0]
	for _, f := range fields {
		if f == "sqrt" || !containsLetter(f) {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

func containsLetter(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return true
		}
	}
	return false
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
	tokSqrt
)

type token struct {
	kind tokenKind
	text string
	val  float64
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ':
			i++
		case c == '+', c == '-', c == '*', c == '/':
			tokens = append(tokens, token{kind: tokOp, text: string(c)})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.') {
				j++
			}
			v, err := strconv.ParseFloat(expr[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q", ErrMalformedExpression, expr[i:j])
			}
			tokens = append(tokens, token{kind: tokNumber, text: expr[i:j], val: v})
			i = j
		case strings.HasPrefix(expr[i:], "sqrt"):
			tokens = append(tokens, token{kind: tokSqrt, text: "sqrt"})
			i += len("sqrt")
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", ErrMalformedExpression, c)
		}
	}
	if len(tokens) == 0 {
		return nil, ErrNoExpression
	}
	return tokens, nil
}

// parser is a standard recursive descent evaluator over the tokenized
// expression. Precedence: unary minus and sqrt bind tightest, then * and /,
// then + and -.
type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) parseExpr() (float64, error) {
	v, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOp || (t.text != "+" && t.text != "-") {
			return v, nil
		}
		p.pos++
		rhs, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if t.text == "+" {
			v += rhs
		} else {
			v -= rhs
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOp || (t.text != "*" && t.text != "/") {
			return v, nil
		}
		p.pos++
		rhs, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if t.text == "*" {
			v *= rhs
		} else {
			if rhs == 0 {
				return 0, fmt.Errorf("%w: division by zero", ErrMalformedExpression)
			}
			v /= rhs
		}
	}
}

func (p *parser) parseUnary() (float64, error) {
	t, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("%w: expression ends early", ErrMalformedExpression)
	}
	switch {
	case t.kind == tokOp && t.text == "-":
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	case t.kind == tokSqrt:
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if v < 0 {
			return 0, fmt.Errorf("%w: square root of a negative number", ErrMalformedExpression)
		}
		return math.Sqrt(v), nil
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() (float64, error) {
	t, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("%w: expression ends early", ErrMalformedExpression)
	}
	switch t.kind {
	case tokNumber:
		p.pos++
		return t.val, nil
	case tokLParen:
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return 0, fmt.Errorf("%w: missing closing parenthesis", ErrMalformedExpression)
		}
		p.pos++
		return v, nil
	default:
		return 0, fmt.Errorf("%w: unexpected %q", ErrMalformedExpression, t.text)
	}
}
