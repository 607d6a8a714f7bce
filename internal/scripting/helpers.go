package scripting

import (
	"github.com/dop251/goja"

	"shipsim.dev/internal/sim/value"
)

var binaryOps = map[string]func(a, b value.Value) (value.Value, error){
	"add": func(a, b value.Value) (value.Value, error) { return a.Add(b), nil },
	"sub": func(a, b value.Value) (value.Value, error) { return a.Sub(b), nil },
	"mul": value.Value.Mul,
	"div": value.Value.Div,
	"mod": value.Value.Mod,
	"pow": value.Value.Pow,
}

var unaryOps = map[string]func(a value.Value) (value.Value, error){
	"neg":  value.Value.Neg,
	"abs":  value.Value.Abs,
	"sqrt": value.Value.Sqrt,
	"sin":  value.Value.Sin,
	"cos":  value.Value.Cos,
	"tan":  value.Value.Tan,
	"asin": value.Value.Asin,
	"acos": value.Value.Acos,
	"atan": value.Value.Atan,
	"fac":  value.Value.Fac,
}

// valueHelpers builds the yolol object. Arguments are converted like bus
// values; a failing operation throws a GoError carrying the value error.
func valueHelpers(rt *goja.Runtime) *goja.Object {
	obj := rt.NewObject()
	for name, op := range binaryOps {
		_ = obj.Set(name, func(call goja.FunctionCall) goja.Value {
			v, err := op(helperArg(rt, name, call, 0), helperArg(rt, name, call, 1))
			return helperResult(rt, v, err)
		})
	}
	for name, op := range unaryOps {
		_ = obj.Set(name, func(call goja.FunctionCall) goja.Value {
			v, err := op(helperArg(rt, name, call, 0))
			return helperResult(rt, v, err)
		})
	}
	return obj
}

func helperArg(rt *goja.Runtime, name string, call goja.FunctionCall, i int) value.Value {
	v, ok := fromJS(call.Argument(i))
	if !ok {
		panic(rt.NewTypeError("yolol.%s: argument %d must be a number, string or boolean", name, i+1))
	}
	return v
}

func helperResult(rt *goja.Runtime, v value.Value, err error) goja.Value {
	if err != nil {
		panic(rt.NewGoError(err))
	}
	return rt.ToValue(toJS(v))
}
