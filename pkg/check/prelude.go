package check

import (
	"sync"

	"github.com/j340m3/compiler/pkg/hm"
	"github.com/j340m3/compiler/pkg/scope"
)

var (
	tvA = hm.TypeVariable(0)
	tvB = hm.TypeVariable(1)
)

// Prelude returns the root frame every check starts from. It is built once
// and shared read-only by concurrent checks.
var Prelude = sync.OnceValue(func() *scope.Frame {
	return scope.Root(
		builtin("not", hm.NewScheme(nil, hm.NewFnType(hm.Bool, hm.Bool))),
		builtin("negate", hm.NewScheme(nil, hm.NewFnType(hm.Int, hm.Int))),
		builtin("toString", hm.NewScheme([]hm.TypeVariable{tvA}, hm.NewFnType(tvA, hm.String))),
		builtin("identity", hm.NewScheme([]hm.TypeVariable{tvA}, hm.NewFnType(tvA, tvA))),
		builtin("fst", hm.NewScheme([]hm.TypeVariable{tvA, tvB}, hm.NewFnType(hm.TupleType{Elems: hm.Types{tvA, tvB}}, tvA))),
		builtin("snd", hm.NewScheme([]hm.TypeVariable{tvA, tvB}, hm.NewFnType(hm.TupleType{Elems: hm.Types{tvA, tvB}}, tvB))),
	)
})

func builtin(name string, sch *hm.Scheme) scope.Entry {
	return scope.Entry{Name: name, Scheme: sch}
}

// operators maps each binary operator to its curried type.
var operators = map[string]*hm.Scheme{
	"+":  hm.NewScheme(nil, hm.Curried(hm.Int, hm.Int, hm.Int)),
	"-":  hm.NewScheme(nil, hm.Curried(hm.Int, hm.Int, hm.Int)),
	"*":  hm.NewScheme(nil, hm.Curried(hm.Int, hm.Int, hm.Int)),
	"++": hm.NewScheme(nil, hm.Curried(hm.String, hm.String, hm.String)),
	"<":  hm.NewScheme(nil, hm.Curried(hm.Bool, hm.Int, hm.Int)),
	"==": hm.NewScheme([]hm.TypeVariable{tvA}, hm.Curried(hm.Bool, tvA, tvA)),
}
