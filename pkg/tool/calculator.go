package tool

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/zen-systems/askroute/pkg/profile"
)

// Calculator evaluates arithmetic expressions. It runs in-process and never
// fails transiently.
type Calculator struct{}

// NewCalculator creates the computation tool.
func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Kind() profile.ToolKind { return profile.ToolComputation }

func (c *Calculator) Name() string { return "calculator" }

func (c *Calculator) AverageLatency() time.Duration { return 5 * time.Millisecond }

func (c *Calculator) Reliability() float64 { return 0.99 }

// Execute evaluates params["expression"], falling back to extracting an
// expression from params["query"] when none is given.
func (c *Calculator) Execute(ctx context.Context, params map[string]string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ToolError{Tool: c.Name(), Temporary: true, Err: err}
	}
	expr := strings.TrimSpace(params["expression"])
	if expr == "" {
		expr = extractExpression(params["query"])
	}
	if expr == "" {
		return nil, &ToolError{Tool: c.Name(), Err: fmt.Errorf("no computable expression")}
	}

	val, err := evalExpression(expr)
	if err != nil {
		return nil, &ToolError{Tool: c.Name(), Err: err}
	}

	out := strconv.FormatFloat(val, 'g', -1, 64)
	return &Result{
		Output:   fmt.Sprintf("%s = %s", expr, out),
		Metadata: map[string]string{"expression": expr, "value": out},
	}, nil
}

// extractExpression pulls the longest arithmetic run out of free text.
func extractExpression(text string) string {
	best := ""
	cur := strings.Builder{}
	flush := func() {
		s := strings.Trim(cur.String(), " +-*/^.")
		if strings.ContainsAny(s, "0123456789") && strings.ContainsAny(s, "+-*/^%") && len(s) > len(best) {
			best = s
		}
		cur.Reset()
	}
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '(', r == ')', r == '%',
			r == '+', r == '-', r == '*', r == '/', r == '^', r == ' ':
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return best
}

// evalExpression parses and evaluates +, -, *, /, ^, parentheses, unary
// minus, and percent literals such as 15%.
func evalExpression(s string) (float64, error) {
	p := &exprParser{input: s}
	v, err := p.parseSum()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected %q at offset %d", p.input[p.pos], p.pos)
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("result is not finite")
	}
	return v, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *exprParser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseSum() (float64, error) {
	v, err := p.parseProduct()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			r, err := p.parseProduct()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			p.pos++
			r, err := p.parseProduct()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parseProduct() (float64, error) {
	v, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			r, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			p.pos++
			r, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= r
		default:
			return v, nil
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	if p.peek() == '^' {
		p.pos++
		r, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		v = math.Pow(v, r)
	}
	return v, nil
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parseAtom()
}

func (p *exprParser) parseAtom() (float64, error) {
	c := p.peek()
	if c == '(' {
		p.pos++
		v, err := p.parseSum()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return 0, fmt.Errorf("expected number at offset %d", p.pos)
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", p.input[start:p.pos])
	}
	if p.pos < len(p.input) && p.input[p.pos] == '%' {
		p.pos++
		v /= 100
	}
	return v, nil
}
