package sexpr

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/aretw0/harness/pkg/domain"
)

// Reader is the engine that returns the syntax tree of its input.
type Reader struct {
	// Filename is reported in the module. Nil renders as null.
	Filename *string
}

// NewReader creates a Reader with no filename.
func NewReader() *Reader {
	return &Reader{}
}

// Evaluate parses input and returns the Module as a domain.Value.
func (r *Reader) Evaluate(ctx context.Context, input string) (any, error) {
	module, err := Parse(r.Filename, input)
	if err != nil {
		return nil, err
	}
	return module.Value(), nil
}

// ErrEval is the base error for evaluation problems (as opposed to syntax).
var ErrEval = errors.New("evaluation error")

// EvalError reports a semantic problem at a region.
type EvalError struct {
	Region Region
	Msg    string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Region.Start.Line, e.Region.Start.Col, e.Msg)
}

func (e *EvalError) Is(target error) bool { return target == ErrEval }

// Evaluator is the engine that computes programs made of arithmetic,
// comparison and defn forms.
//
//	(+ 1 2 3)                   6
//	(< 1 2 3)                   true
//	(defn five () (+ 2 3))      {"five": 5}
//
// A program evaluates to its last expression, unless every top-level form is
// a defn, in which case it evaluates to the ordered map of definitions.
type Evaluator struct{}

// NewEvaluator creates an Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate parses and runs input.
func (ev *Evaluator) Evaluate(ctx context.Context, input string) (any, error) {
	module, err := Parse(nil, input)
	if err != nil {
		return nil, err
	}
	return ev.Run(ctx, module)
}

// Run evaluates an already parsed module.
func (ev *Evaluator) Run(ctx context.Context, module *Module) (domain.Value, error) {
	env := &env{defs: domain.NewOrderedMap()}
	last := domain.Null()
	onlyDefs := true

	for _, expr := range module.Expressions {
		if err := ctx.Err(); err != nil {
			return domain.Value{}, err
		}
		if isDefn(expr) {
			if err := env.define(expr); err != nil {
				return domain.Value{}, err
			}
			continue
		}
		onlyDefs = false
		v, err := env.eval(expr)
		if err != nil {
			return domain.Value{}, err
		}
		last = v
	}

	if onlyDefs {
		return domain.Object(env.defs), nil
	}
	return last, nil
}

type env struct {
	defs *domain.OrderedMap
}

func isDefn(e Expr) bool {
	return e.Kind == ExprList && len(e.Items) > 0 && e.Items[0].Kind == ExprSymbol && e.Items[0].Symbol == "defn"
}

// define handles (defn name (params...) body).
func (en *env) define(e Expr) error {
	if len(e.Items) != 4 || e.Items[1].Kind != ExprSymbol || e.Items[2].Kind != ExprList {
		return &EvalError{Region: e.Region, Msg: "defn expects (defn name (params) body)"}
	}
	v, err := en.eval(e.Items[3])
	if err != nil {
		return err
	}
	en.defs.Set(e.Items[1].Symbol, v)
	return nil
}

func (en *env) eval(e Expr) (domain.Value, error) {
	switch e.Kind {
	case ExprNumber:
		return domain.Num(e.Number), nil
	case ExprSymbol:
		switch e.Symbol {
		case "true":
			return domain.Boolean(true), nil
		case "false":
			return domain.Boolean(false), nil
		}
		if v, ok := en.defs.Get(e.Symbol); ok {
			return v, nil
		}
		return domain.Value{}, &EvalError{Region: e.Region, Msg: fmt.Sprintf("undefined symbol %q", e.Symbol)}
	}

	if len(e.Items) == 0 {
		return domain.Value{}, &EvalError{Region: e.Region, Msg: "empty form"}
	}
	head := e.Items[0]
	if head.Kind != ExprSymbol {
		return domain.Value{}, &EvalError{Region: head.Region, Msg: "form must start with a symbol"}
	}
	if head.Symbol == "defn" {
		return domain.Value{}, &EvalError{Region: e.Region, Msg: "defn is only allowed at top level"}
	}
	// a defined name used as a call (five) yields its value
	if v, ok := en.defs.Get(head.Symbol); ok && len(e.Items) == 1 {
		return v, nil
	}

	args := e.Items[1:]
	switch head.Symbol {
	case "+", "-", "*", "/":
		return en.arith(head.Symbol, e, args)
	case "<", "<=", ">", ">=":
		return en.compare(head.Symbol, e, args)
	}
	return domain.Value{}, &EvalError{Region: head.Region, Msg: fmt.Sprintf("unknown form %q", head.Symbol)}
}

func (en *env) numbers(form Expr, args []Expr) ([]float64, error) {
	if len(args) == 0 {
		return nil, &EvalError{Region: form.Region, Msg: "operator needs at least one operand"}
	}
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := en.eval(a)
		if err != nil {
			return nil, err
		}
		if v.Kind() != domain.KindNumber {
			return nil, &EvalError{Region: a.Region, Msg: fmt.Sprintf("expected number, got %s", v.Kind())}
		}
		out[i] = v.AsFloat()
	}
	return out, nil
}

// arith folds left: (+ 3 5 6) is (+ (+ 3 5) 6).
func (en *env) arith(op string, form Expr, args []Expr) (domain.Value, error) {
	nums, err := en.numbers(form, args)
	if err != nil {
		return domain.Value{}, err
	}
	acc := nums[0]
	for i, n := range nums[1:] {
		switch op {
		case "+":
			acc += n
		case "-":
			acc -= n
		case "*":
			acc *= n
		case "/":
			if n == 0 {
				return domain.Value{}, &EvalError{Region: args[i+1].Region, Msg: "division by zero"}
			}
			acc /= n
		}
	}
	if math.IsInf(acc, 0) || math.IsNaN(acc) {
		return domain.Value{}, &EvalError{Region: form.Region, Msg: "numeric overflow"}
	}
	return domain.Num(acc), nil
}

// compare chains pairwise: (< a b c) is a<b and b<c.
func (en *env) compare(op string, form Expr, args []Expr) (domain.Value, error) {
	nums, err := en.numbers(form, args)
	if err != nil {
		return domain.Value{}, err
	}
	for i := 1; i < len(nums); i++ {
		a, b := nums[i-1], nums[i]
		var ok bool
		switch op {
		case "<":
			ok = a < b
		case "<=":
			ok = a <= b
		case ">":
			ok = a > b
		case ">=":
			ok = a >= b
		}
		if !ok {
			return domain.Boolean(false), nil
		}
	}
	return domain.Boolean(true), nil
}
