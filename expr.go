package lyra

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// exprEnv is the fixed variable set visible to property expressions.
// A fresh value is passed per evaluation; expressions cannot mutate it.
type exprEnv struct {
	T        float64 `expr:"t"`        // current document time in seconds
	Progress float64 `expr:"progress"` // eased effect progress in [0, 1]
	Index    float64 `expr:"index"`    // glyph index within the line
	Count    float64 `expr:"count"`    // glyph count of the line
	Width    float64 `expr:"width"`    // project width in pixels
	Height   float64 `expr:"height"`   // project height in pixels
}

// compiledExpr is a compiled property expression.
type compiledExpr = *vm.Program

// exprOptions is shared by every compile. Trig helpers cover the wave and
// wobble expressions lyric effects lean on; everything else comes from
// expr's builtins (abs, min, max, floor, ...).
var exprOptions = []expr.Option{
	expr.Env(exprEnv{}),
	expr.Function("sin",
		func(params ...any) (any, error) { return math.Sin(params[0].(float64)), nil },
		new(func(float64) float64),
	),
	expr.Function("cos",
		func(params ...any) (any, error) { return math.Cos(params[0].(float64)), nil },
		new(func(float64) float64),
	),
	expr.Function("pow",
		func(params ...any) (any, error) { return math.Pow(params[0].(float64), params[1].(float64)), nil },
		new(func(float64, float64) float64),
	),
}

// compileExpr compiles a property expression against the fixed environment.
func compileExpr(src string) (compiledExpr, error) {
	prog, err := expr.Compile(src, exprOptions...)
	if err != nil {
		return nil, fmt.Errorf("lyra: failed to compile expression %q: %w", src, err)
	}
	return prog, nil
}

// evalExpr runs a compiled expression. Numeric results convert to float64;
// boolean results map to 1/0 so conditions can drive properties directly.
func evalExpr(prog compiledExpr, env exprEnv) (float64, error) {
	out, err := expr.Run(prog, env)
	if err != nil {
		return 0, fmt.Errorf("lyra: expression evaluation failed: %w", err)
	}
	switch v := out.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("lyra: expression returned %T, want a number", out)
	}
}

// compiled returns the value's compiled program, compiling on first use.
// The engine compiles every bound expression at construction
// (Engine.compileExpressions), so frame evaluation only reads prog/badExpr
// and stays safe for concurrent use. A compile failure is reported once;
// afterward the value yields (nil, nil) and callers skip the property
// silently instead of recompiling.
func (v *AnimatedValue) compiled() (compiledExpr, error) {
	if v.prog != nil {
		return v.prog, nil
	}
	if v.badExpr {
		return nil, nil
	}
	prog, err := compileExpr(v.Expr)
	if err != nil {
		v.badExpr = true
		return nil, err
	}
	v.prog = prog
	return prog, nil
}
