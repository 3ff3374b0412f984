package grading

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`##(?:outcome:|gi)([A-Za-z0-9_.\-]+)##`)

// ExpandFormula replaces every outcome placeholder with the outcome's value scaled into the
// target range, formatted with two decimals. Placeholders for outcomes without a value become 0.
func ExpandFormula(formula string, values map[string]float64, specs []Outcome, target Range) (string, error) {
	ranges := make(map[string]Range, len(specs))
	for _, spec := range specs {
		ranges[spec.ID] = spec.Range
	}

	var expandErr error
	expanded := placeholderPattern.ReplaceAllStringFunc(formula, func(match string) string {
		id := placeholderPattern.FindStringSubmatch(match)[1]
		value, ok := values[id]
		if !ok {
			return "0"
		}
		source, ok := ranges[id]
		if !ok {
			source = target
		}
		if !source.Valid() || !target.Valid() {
			expandErr = formulaErrorf(formula, "outcome %s has an empty range", id)
			return "0"
		}
		scaled := (value-source.Min)/(source.Max-source.Min)*(target.Max-target.Min) + target.Min
		return strconv.FormatFloat(scaled, 'f', 2, 64)
	})
	if expandErr != nil {
		return "", expandErr
	}

	expanded = strings.TrimSpace(expanded)
	expanded = strings.TrimPrefix(expanded, "=")
	expanded = strings.TrimSpace(expanded)
	if rest := strings.TrimPrefix(expanded, "sum"); rest != expanded && strings.HasPrefix(strings.TrimSpace(rest), "(") {
		expanded = strings.TrimSpace(rest)
	}
	return expanded, nil
}

// EvaluateFormula expands placeholders and evaluates the remaining arithmetic. The result is
// rounded to one decimal. Malformed expressions and negative or non-finite results are errors.
func EvaluateFormula(formula string, values map[string]float64, specs []Outcome, target Range) (float64, error) {
	expr, err := ExpandFormula(formula, values, specs, target)
	if err != nil {
		return 0, err
	}
	result, err := EvaluateArithmetic(expr)
	if err != nil {
		if fe, ok := err.(*FormulaError); ok {
			return 0, &FormulaError{Formula: formula, Reason: fe.Reason}
		}
		return 0, err
	}
	if result < 0 {
		return 0, formulaErrorf(formula, "negative result %.2f", result)
	}
	return math.Round(result*10) / 10, nil
}

// CheckFormula reports whether formula is well formed once its placeholders are filled in.
// Division by zero is not reported since it depends on the outcome values.
func CheckFormula(formula string) error {
	expanded := placeholderPattern.ReplaceAllString(formula, "1")
	expr, err := ExpandFormula(expanded, nil, nil, Range{})
	if err != nil {
		return err
	}
	tokens, err := tokenize(expr)
	if err != nil {
		return &FormulaError{Formula: formula, Reason: err.(*FormulaError).Reason}
	}
	p := &parser{expr: expr, tokens: tokens, lenient: true}
	if _, err := p.parseExpr(); err != nil {
		return &FormulaError{Formula: formula, Reason: err.(*FormulaError).Reason}
	}
	if p.pos != len(p.tokens) {
		return formulaErrorf(formula, "unexpected %q", p.tokens[p.pos].text)
	}
	return nil
}

// EvaluateArithmetic evaluates an expression made of numbers, + - * /, parentheses and unary
// signs. Nothing else is accepted.
func EvaluateArithmetic(expr string) (float64, error) {
	tokens, err := tokenize(expr)
	if err != nil {
		return 0, err
	}
	p := &parser{expr: expr, tokens: tokens}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.tokens) {
		return 0, formulaErrorf(expr, "unexpected %q", p.tokens[p.pos].text)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, formulaErrorf(expr, "result is not a number")
	}
	return value, nil
}

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokOp
	tokLParen
	tokRParen
)

type token struct {
	kind  tokenKind
	text  string
	value float64
}

func tokenize(expr string) ([]token, error) {
	tokens := make([]token, 0, len(expr)/2)
	for i := 0; i < len(expr); {
		ch := expr[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '+' || ch == '-' || ch == '*' || ch == '/':
			tokens = append(tokens, token{kind: tokOp, text: string(ch)})
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		case (ch >= '0' && ch <= '9') || ch == '.':
			start := i
			dots := 0
			for i < len(expr) && ((expr[i] >= '0' && expr[i] <= '9') || expr[i] == '.') {
				if expr[i] == '.' {
					dots++
				}
				i++
			}
			text := expr[start:i]
			if dots > 1 || text == "." {
				return nil, formulaErrorf(expr, "malformed number %q", text)
			}
			value, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, formulaErrorf(expr, "malformed number %q", text)
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, value: value})
		default:
			return nil, formulaErrorf(expr, "unexpected character %q", string(ch))
		}
	}
	if len(tokens) == 0 {
		return nil, formulaErrorf(expr, "empty expression")
	}
	return tokens, nil
}

type parser struct {
	expr    string
	tokens  []token
	pos     int
	depth   int
	lenient bool
}

const maxNesting = 64

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOp || (tok.text != "+" && tok.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if tok.text == "+" {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokOp || (tok.text != "*" && tok.text != "/") {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if tok.text == "*" {
			left *= right
			continue
		}
		if right == 0 {
			if p.lenient {
				continue
			}
			return 0, formulaErrorf(p.expr, "division by zero")
		}
		left /= right
	}
}

func (p *parser) parseUnary() (float64, error) {
	tok, ok := p.peek()
	if ok && tok.kind == tokOp && (tok.text == "+" || tok.text == "-") {
		p.pos++
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxNesting {
			return 0, formulaErrorf(p.expr, "expression nested too deeply")
		}
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if tok.text == "-" {
			return -value, nil
		}
		return value, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (float64, error) {
	tok, ok := p.peek()
	if !ok {
		return 0, formulaErrorf(p.expr, "unexpected end of expression")
	}
	switch tok.kind {
	case tokNumber:
		p.pos++
		return tok.value, nil
	case tokLParen:
		p.pos++
		p.depth++
		defer func() { p.depth-- }()
		if p.depth > maxNesting {
			return 0, formulaErrorf(p.expr, "expression nested too deeply")
		}
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		closing, ok := p.peek()
		if !ok || closing.kind != tokRParen {
			return 0, formulaErrorf(p.expr, "missing closing parenthesis")
		}
		p.pos++
		return value, nil
	default:
		return 0, formulaErrorf(p.expr, "unexpected %q", tok.text)
	}
}
