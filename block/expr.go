// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package block

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
)

// Symbol is the placeholder a documentation context returns instead of a
// value. Expressions evaluated against it build a readable formula.
type Symbol string

// Expr computes a length, count or choice from the context. The same
// expression yields a number while parsing and a formula in documentation.
type Expr interface {
	Eval(c *Context) (any, error)
	String() string
}

type constExpr int64

// Const is a fixed number.
func Const(n int) Expr { return constExpr(n) }

func (e constExpr) Eval(*Context) (any, error) { return int64(e), nil }
func (e constExpr) String() string             { return strconv.FormatInt(int64(e), 10) }

type pathExpr string

// Path reads a decoded sibling or ancestor value, e.g. "../count".
func Path(path string) Expr { return pathExpr(path) }

func (e pathExpr) Eval(c *Context) (any, error) {
	v, ok := c.Data(string(e))
	if !ok {
		return nil, c.Errorf(ErrBlockDefinition, "unresolved reference %q", string(e))
	}
	if f, ok := v.(*Failure); ok {
		return nil, c.Wrapf(ErrDataIntegrity, f.Err, "reference %q failed to decode", string(e))
	}
	return v, nil
}

func (e pathExpr) String() string { return string(e) }

type paramExpr string

// Param reads a scratch value set with Context.SetParam by a hook.
func Param(name string) Expr { return paramExpr(name) }

func (e paramExpr) Eval(c *Context) (any, error) {
	if c.mode == ModeDoc {
		return Symbol("$" + string(e)), nil
	}
	v, ok := c.Param(string(e))
	if !ok {
		return nil, c.Errorf(ErrBlockDefinition, "parameter %q not set", string(e))
	}
	return v, nil
}

func (e paramExpr) String() string { return "$" + string(e) }

type binaryExpr struct {
	op   byte
	a, b Expr
}

// Add returns a + b.
func Add(a, b Expr) Expr { return binaryExpr{'+', a, b} }

// Sub returns a - b.
func Sub(a, b Expr) Expr { return binaryExpr{'-', a, b} }

// Mul returns a * b.
func Mul(a, b Expr) Expr { return binaryExpr{'*', a, b} }

// Div returns a / b, truncated.
func Div(a, b Expr) Expr { return binaryExpr{'/', a, b} }

func (e binaryExpr) Eval(c *Context) (any, error) {
	x, err := e.a.Eval(c)
	if err != nil {
		return nil, err
	}
	y, err := e.b.Eval(c)
	if err != nil {
		return nil, err
	}
	_, xs := x.(Symbol)
	_, ys := y.(Symbol)
	if xs || ys {
		return Symbol(fmt.Sprintf("(%v %c %v)", x, e.op, y)), nil
	}
	l, lok := toInt64(x)
	r, rok := toInt64(y)
	if !lok || !rok {
		return nil, c.Errorf(ErrBlockDefinition, "non-numeric operands %v %c %v", x, e.op, y)
	}
	switch e.op {
	case '+':
		return l + r, nil
	case '-':
		return l - r, nil
	case '*':
		return l * r, nil
	default:
		if r == 0 {
			return nil, c.Errorf(ErrDataIntegrity, "division by zero in %s", e)
		}
		return l / r, nil
	}
}

func (e binaryExpr) String() string {
	return fmt.Sprintf("(%s %c %s)", e.a, e.op, e.b)
}

type funcExpr struct {
	name string
	fn   func(c *Context) (any, error)
}

// Func wraps Go logic. name is what documentation shows.
func Func(name string, fn func(c *Context) (any, error)) Expr {
	return funcExpr{name: name, fn: fn}
}

func (e funcExpr) Eval(c *Context) (any, error) {
	if c.mode == ModeDoc {
		return Symbol(e.name), nil
	}
	return e.fn(c)
}

func (e funcExpr) String() string { return e.name }

type celExpr struct {
	src  string
	vars map[string]string
	prg  cel.Program
}

// CEL compiles a CEL expression. vars binds each CEL variable to a context
// path; the variables are resolved with Context.Data when evaluated.
func CEL(src string, vars map[string]string) (Expr, error) {
	opts := make([]cel.EnvOption, 0, len(vars))
	for name := range vars {
		opts = append(opts, cel.Declarations(decls.NewVar(name, decls.Dyn)))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, iss := env.Compile(src)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", src, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", src, err)
	}
	return &celExpr{src: src, vars: vars, prg: prg}, nil
}

// MustCEL is CEL for package level schema definitions.
func MustCEL(src string, vars map[string]string) Expr {
	e, err := CEL(src, vars)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *celExpr) Eval(c *Context) (any, error) {
	if c.mode == ModeDoc {
		return Symbol(e.String()), nil
	}
	act := make(map[string]any, len(e.vars))
	for name, path := range e.vars {
		v, err := Path(path).Eval(c)
		if err != nil {
			return nil, err
		}
		switch v.(type) {
		case float32, float64, bool, string:
		default:
			if n, ok := toInt64(v); ok {
				v = n
			}
		}
		act[name] = v
	}
	out, _, err := e.prg.Eval(act)
	if err != nil {
		return nil, c.Wrapf(ErrDataIntegrity, err, "evaluate %q", e.src)
	}
	return out.Value(), nil
}

func (e *celExpr) String() string {
	names := make([]string, 0, len(e.vars))
	for name := range e.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	s := e.src
	for _, name := range names {
		s += fmt.Sprintf("; %s=%s", name, e.vars[name])
	}
	return s
}

// EvalInt evaluates e in c and converts the result to an int.
func EvalInt(e Expr, c *Context) (int, error) {
	v, err := e.Eval(c)
	if err != nil {
		return 0, err
	}
	n, ok := toInt64(v)
	if !ok {
		return 0, c.Errorf(ErrBlockDefinition, "%s is %v, not a number", e, v)
	}
	return int(n), nil
}

// staticInt reports the value of e when it does not depend on the context.
func staticInt(e Expr) (int, bool) {
	if k, ok := e.(constExpr); ok {
		return int(k), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float32:
		return int64(n), true
	case float64:
		return int64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}
