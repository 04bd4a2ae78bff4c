package board

import (
	"fmt"

	"ruleforge-hq/anvil/pkg/libeval"
)

// Object names bound by the checker.
const (
	ObjectA = "A"
	ObjectB = "B"
)

var builtinFields = map[string]func(*Item) libeval.Value{
	"Name": func(it *Item) libeval.Value { return libeval.String(it.Name) },
	"Type": func(it *Item) libeval.Value { return libeval.String(it.Type) },
	"Layer": func(it *Item) libeval.Value {
		if len(it.Layers) == 0 {
			return libeval.Null()
		}
		return libeval.String(it.Layers[0])
	},
	"Net":      func(it *Item) libeval.Value { return nullIfEmpty(it.Net) },
	"NetClass": func(it *Item) libeval.Value { return nullIfEmpty(it.NetClass) },
}

func nullIfEmpty(s string) libeval.Value {
	if s == "" {
		return libeval.Null()
	}
	return libeval.String(s)
}

// Binder resolves expression names against a board. It serves the objects
// A and B, the builtin fields Name, Type, Layer, Net and NetClass, every
// property declared on the board, and the methods existsOnLayer,
// hasNetclass, isPlated and hasProperty.
type Binder struct {
	board *Board
}

// NewBinder returns a Binder for b.
func NewBinder(b *Board) *Binder {
	return &Binder{board: b}
}

// Bind binds the items a and b (which may be nil) to ctx.
func Bind(ctx *libeval.Context, a, b *Item) {
	ctx.Bind(ObjectA, a)
	ctx.Bind(ObjectB, b)
}

// objectRef is the receiver of a method call and the value of a bare
// object name.
type objectRef string

func (o objectRef) item(ctx *libeval.Context) *Item {
	it, _ := ctx.Object(string(o)).(*Item)
	return it
}

// GetValue returns the item's name, or Undefined when nothing is bound.
func (o objectRef) GetValue(ctx *libeval.Context) (libeval.Value, error) {
	it := o.item(ctx)
	if it == nil {
		return libeval.Value{}, nil
	}
	return libeval.String(it.Name), nil
}

// ResolveIdentifier implements libeval.Host.
func (bd *Binder) ResolveIdentifier(object, field string) libeval.VarRef {
	if object != ObjectA && object != ObjectB {
		return nil
	}
	obj := objectRef(object)
	if field == "" {
		return obj
	}

	if get, ok := builtinFields[field]; ok {
		return libeval.VarRefFunc(func(ctx *libeval.Context) (libeval.Value, error) {
			it := obj.item(ctx)
			if it == nil {
				return libeval.Value{}, nil
			}
			return get(it), nil
		})
	}

	if bd.board == nil {
		return nil
	}
	if _, ok := bd.board.properties[field]; !ok {
		return nil
	}
	return libeval.VarRefFunc(func(ctx *libeval.Context) (libeval.Value, error) {
		it := obj.item(ctx)
		if it == nil {
			return libeval.Value{}, nil
		}
		if v, ok := it.Property(field); ok {
			return v, nil
		}
		return libeval.Null(), nil
	})
}

// ResolveFunction implements libeval.Host.
func (bd *Binder) ResolveFunction(name string) libeval.FuncRef {
	switch name {
	case "existsOnLayer":
		return bd.method(name, 1, bd.checkLayer, func(it *Item, arg string) bool {
			return it.OnLayer(arg)
		})
	case "hasNetclass":
		return bd.method(name, 1, nil, func(it *Item, arg string) bool {
			return it.NetClass != "" && libeval.WildcardMatch(arg, it.NetClass)
		})
	case "isPlated":
		return bd.method(name, 0, nil, func(it *Item, _ string) bool {
			return it.Plated
		})
	case "hasProperty":
		return bd.method(name, 1, nil, func(it *Item, arg string) bool {
			_, ok := it.Property(arg)
			return ok
		})
	}
	return nil
}

// checkLayer rejects literal layer names the board does not declare.
func (bd *Binder) checkLayer(ctx *libeval.Context, layer string) {
	if bd.board == nil || libeval.HasWildcard(layer) {
		return
	}
	if !bd.board.HasLayer(layer) {
		ctx.ReportError(fmt.Sprintf("unknown layer '%s'", layer))
	}
}

// method builds a predicate method taking argc (0 or 1) string arguments.
// During preflight it checks the argument count and types and runs
// validate on literal arguments.
func (bd *Binder) method(
	name string,
	argc int,
	validate func(ctx *libeval.Context, arg string),
	pred func(it *Item, arg string) bool,
) libeval.FuncRef {
	return libeval.FuncRefFunc(func(ctx *libeval.Context, self libeval.VarRef) error {
		if ctx.IsPreflight() {
			preflight(ctx, name, argc, validate)
			return nil
		}

		var arg string
		if argc == 1 {
			arg = ctx.Pop().AsString()
		}

		res := ctx.AllocValue()
		*res = libeval.Bool(false)
		if obj, ok := self.(objectRef); ok {
			if it := obj.item(ctx); it != nil {
				*res = libeval.Bool(pred(it, arg))
			}
		}
		ctx.Push(res)
		return nil
	})
}

func preflight(ctx *libeval.Context, name string, argc int, validate func(*libeval.Context, string)) {
	got := ctx.SP()
	switch {
	case got != argc && argc == 0:
		ctx.ReportError(fmt.Sprintf("%s() takes no arguments", name))
	case got != argc:
		ctx.ReportError(fmt.Sprintf("%s() expects %d argument, got %d", name, argc, got))
	case argc == 1:
		arg := ctx.Pop()
		switch {
		case arg.IsUndefined():
		case arg.Type() != libeval.TypeString:
			ctx.ReportError(fmt.Sprintf("%s() expects a string argument", name))
		case validate != nil:
			validate(ctx, arg.AsString())
		}
	}

	for ctx.SP() > 0 {
		ctx.Pop()
	}
	res := ctx.AllocValue()
	*res = libeval.Bool(false)
	ctx.Push(res)
}
