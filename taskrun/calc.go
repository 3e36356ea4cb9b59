package taskrun

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// evalExpression evaluates a basic arithmetic expression over float64.
// Supported: + - * /, parentheses, unary minus, decimal literals.
func evalExpression(input string) (float64, error) {
	p := &exprParser{src: input}
	value, err := p.parseSum()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.src) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.src[p.pos], p.pos)
	}
	return value, nil
}

type exprParser struct {
	src string
	pos int
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *exprParser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *exprParser) parseSum() (float64, error) {
	left, err := p.parseProduct()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseProduct() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/') {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, errors.New("division by zero")
			}
			left /= right
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	if op, ok := p.peek(); ok && op == '-' {
		p.pos++
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (float64, error) {
	ch, ok := p.peek()
	if !ok {
		return 0, errors.New("unexpected end of expression")
	}
	if ch == '(' {
		p.pos++
		value, err := p.parseSum()
		if err != nil {
			return 0, err
		}
		after, ok := p.peek()
		if !ok || after != ')' {
			return 0, errors.New("missing closing parenthesis")
		}
		p.pos++
		return value, nil
	}
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	lit := strings.TrimSpace(p.src[start:p.pos])
	if lit == "" {
		return 0, fmt.Errorf("unexpected character %q at position %d", ch, start)
	}
	value, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", lit)
	}
	return value, nil
}
