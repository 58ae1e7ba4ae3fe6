package sexpr

import (
	"strings"

	"github.com/aretw0/harness/pkg/domain"
)

// ExprKind classifies an Expr.
type ExprKind string

const (
	ExprNumber ExprKind = "Number"
	ExprSymbol ExprKind = "Symbol"
	ExprList   ExprKind = "List"
)

// Expr is one node of the syntax tree.
type Expr struct {
	Kind   ExprKind
	Region Region
	Number float64 // ExprNumber
	Symbol string  // ExprSymbol
	Items  []Expr  // ExprList
}

// Namespace splits a symbol such as "a/b/c" into its namespace ["a", "b"] and name "c".
// Symbols without a separator, and the bare "/" symbol, have no namespace.
func (e Expr) Namespace() ([]string, string) {
	if e.Kind != ExprSymbol || len(e.Symbol) < 2 || !strings.Contains(e.Symbol, "/") {
		return nil, e.Symbol
	}
	parts := strings.Split(e.Symbol, "/")
	return parts[:len(parts)-1], parts[len(parts)-1]
}

// Value renders the expression as {"type": ..., "region": [...], ...}.
func (e Expr) Value() domain.Value {
	m := domain.NewOrderedMap().
		Set("type", domain.Str(string(e.Kind))).
		Set("region", e.Region.Value())

	switch e.Kind {
	case ExprNumber:
		m.Set("value", domain.Num(e.Number))
	case ExprSymbol:
		m.Set("value", domain.Str(e.Symbol))
		if ns, name := e.Namespace(); ns != nil {
			parts := make([]domain.Value, len(ns))
			for i, p := range ns {
				parts[i] = domain.Str(p)
			}
			m.Set("namespace", domain.List(parts...))
			m.Set("name", domain.Str(name))
		}
	case ExprList:
		items := make([]domain.Value, len(e.Items))
		for i, item := range e.Items {
			items[i] = item.Value()
		}
		m.Set("expressions", domain.List(items...))
	}
	return domain.Object(m)
}

// Module is the result of reading one source text.
type Module struct {
	Filename    *string
	Expressions []Expr
}

// Value renders the module as {"filename": ..., "expressions": [...]}.
func (m *Module) Value() domain.Value {
	filename := domain.Null()
	if m.Filename != nil {
		filename = domain.Str(*m.Filename)
	}
	exprs := make([]domain.Value, len(m.Expressions))
	for i, e := range m.Expressions {
		exprs[i] = e.Value()
	}
	return domain.Object(domain.NewOrderedMap().
		Set("filename", filename).
		Set("expressions", domain.List(exprs...)))
}

// Parse reads every top-level expression of input.
// Any lexical or structural problem fails the whole parse with an ErrorList.
func Parse(filename *string, input string) (*Module, error) {
	tokens, errs := Lex(input)
	p := &parser{tokens: tokens}

	module := &Module{Filename: filename, Expressions: []Expr{}}
	for p.pos < len(p.tokens) {
		expr, err := p.expr()
		if err != nil {
			errs = append(errs, err)
			break
		}
		module.Expressions = append(module.Expressions, expr)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return module, nil
}

type parser struct {
	tokens []Token
	pos    int
}

func (p *parser) expr() (Expr, *SyntaxError) {
	tok := p.tokens[p.pos]
	p.pos++

	switch tok.Kind {
	case TokenNumber:
		return Expr{Kind: ExprNumber, Region: tok.Region, Number: tok.Number}, nil
	case TokenSymbol:
		return Expr{Kind: ExprSymbol, Region: tok.Region, Symbol: tok.Text}, nil
	case TokenLParen:
		items := []Expr{}
		for {
			if p.pos >= len(p.tokens) {
				return Expr{}, &SyntaxError{
					Kind: ErrBadEndOfInput, Line: tok.Region.Start.Line, Col: tok.Region.Start.Col,
					Detail: "unclosed list",
				}
			}
			next := p.tokens[p.pos]
			if next.Kind == TokenRParen {
				p.pos++
				region := NewRegion(tok.Region.Start.Line, tok.Region.Start.Col, next.Region.End.Line, next.Region.End.Col)
				return Expr{Kind: ExprList, Region: region, Items: items}, nil
			}
			item, err := p.expr()
			if err != nil {
				return Expr{}, err
			}
			items = append(items, item)
		}
	default:
		return Expr{}, &SyntaxError{
			Kind: ErrBadEndOfInput, Line: tok.Region.Start.Line, Col: tok.Region.Start.Col,
			Detail: "unexpected ')'",
		}
	}
}
