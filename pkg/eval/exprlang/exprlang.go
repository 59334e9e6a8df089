// Package exprlang is the default expression evaluator. It delegates parsing
// and execution to github.com/expr-lang/expr and adapts the result to the
// runtime's reactive containers:
//
//   - member access (a.b, a[i]) is rewritten into a call that reads through
//     the container API, so every property read is tracked;
//   - only the identifiers an expression references are resolved from the
//     environment, which keeps dependency sets precise;
//   - statement lists separated by ';' or newlines may assign with =, +=,
//     -=, *=, /=, ++ and --;
//   - === and !== are accepted as == and !=, and $name refers to the owning
//     node's intrinsic properties.
package exprlang

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/go-pink/pink/pkg/errors"
	"github.com/go-pink/pink/pkg/eval"
)

// DefaultCacheSize is the number of compiled programs kept per evaluator.
const DefaultCacheSize = 512

const (
	fnGet  = "__get"
	fnIter = "__iter"

	sigilPrefix = "__sigil_"
)

type ident struct {
	// key is the name inside the compiled program, name the one looked up
	// in the environment.
	key, name string
}

type program struct {
	prog   *vm.Program
	idents []ident
}

// Evaluator implements eval.Evaluator and eval.Assigner.
type Evaluator struct {
	cache *lru.Cache[string, *program]
	funcs []expr.Option
	// callables are function names never resolved from the environment.
	callables map[string]bool
}

var (
	_ eval.Evaluator = (*Evaluator)(nil)
	_ eval.Assigner  = (*Evaluator)(nil)
)

// Option configures an Evaluator.
type Option func(*config)

type config struct {
	cacheSize int
	funcs     []expr.Option
	names     []string
}

// WithCacheSize sets how many compiled programs are cached.
func WithCacheSize(n int) Option {
	return func(c *config) { c.cacheSize = n }
}

// WithFunction registers an additional function available to every
// expression.
func WithFunction(name string, fn func(params ...any) (any, error)) Option {
	return func(c *config) {
		c.funcs = append(c.funcs, expr.Function(name, fn))
		c.names = append(c.names, name)
	}
}

// New returns an evaluator.
func New(opts ...Option) *Evaluator {
	cfg := config{cacheSize: DefaultCacheSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cacheSize <= 0 {
		cfg.cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *program](cfg.cacheSize)
	if err != nil {
		panic(err)
	}
	callables := map[string]bool{"length": true, "str": true}
	for name := range builtins {
		callables[name] = true
	}
	for _, name := range cfg.names {
		callables[name] = true
	}
	return &Evaluator{cache: cache, funcs: cfg.funcs, callables: callables}
}

// Eval evaluates code against env. When code is a statement list the value
// of the last statement is returned; an assignment yields the assigned
// value.
func (e *Evaluator) Eval(code string, env eval.Env) (any, error) {
	return e.run("exprlang.Eval", code, env)
}

// Exec runs script against env for its side effects.
func (e *Evaluator) Exec(script string, env eval.Env) error {
	_, err := e.run("exprlang.Exec", script, env)
	return err
}

// Assign writes value through target, which must be an identifier or a
// member path such as "user.name" or "items[i]".
func (e *Evaluator) Assign(target string, value any, env eval.Env) error {
	target = strings.TrimSpace(rewrite(target))
	if err := e.assign(target, value, env); err != nil {
		return errors.Eval("exprlang.Assign", target, err)
	}
	return nil
}

func (e *Evaluator) run(op, code string, env eval.Env) (any, error) {
	src := rewrite(code)
	var last any
	for _, stmt := range splitStatements(src) {
		v, err := e.statement(stmt, env)
		if err != nil {
			return nil, errors.Eval(op, strings.TrimSpace(code), err)
		}
		last = v
	}
	return last, nil
}

func (e *Evaluator) statement(stmt string, env eval.Env) (any, error) {
	a, ok := parseAssignment(stmt)
	if !ok {
		return e.eval(stmt, env)
	}
	value, err := e.eval(a.rhs, env)
	if err != nil {
		return nil, err
	}
	if a.op != 0 {
		cur, err := e.eval(a.target, env)
		if err != nil {
			return nil, err
		}
		if value, err = arith(a.op, cur, value); err != nil {
			return nil, err
		}
	}
	if err := e.assign(a.target, value, env); err != nil {
		return nil, err
	}
	return value, nil
}

func (e *Evaluator) eval(code string, env eval.Env) (any, error) {
	p, err := e.compile(code)
	if err != nil {
		return nil, err
	}
	vars := make(map[string]any, len(p.idents))
	if env != nil {
		for _, id := range p.idents {
			if v, ok := env.Get(id.name); ok {
				vars[id.key] = v
			}
		}
	}
	return expr.Run(p.prog, vars)
}

func (e *Evaluator) compile(code string) (*program, error) {
	if p, ok := e.cache.Get(code); ok {
		return p, nil
	}
	v := &rewriter{seen: make(map[string]bool)}
	opts := []expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.Function(fnGet, func(params ...any) (any, error) {
			return member(params[0], params[1]), nil
		}),
		expr.Function(fnIter, func(params ...any) (any, error) {
			return iterable(params[0]), nil
		}),
		expr.Function("length", func(params ...any) (any, error) {
			return length(params[0])
		}),
		expr.Function("str", func(params ...any) (any, error) {
			return eval.Stringify(params[0]), nil
		}),
		expr.Patch(v),
	}
	opts = append(opts, e.funcs...)
	prog, err := expr.Compile(code, opts...)
	if err != nil {
		return nil, err
	}
	p := &program{prog: prog}
	for _, name := range v.names {
		if v.callees[name] && e.callables[name] {
			continue
		}
		p.idents = append(p.idents, ident{key: name, name: unsigil(name)})
	}
	e.cache.Add(code, p)
	return p, nil
}

// rewriter turns member access into tracked reads, feeds container
// arguments of builtins through an iterable conversion and records the
// referenced identifiers.
type rewriter struct {
	names   []string
	seen    map[string]bool
	callees map[string]bool
}

func (r *rewriter) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if n.Value == "$env" || r.seen[n.Value] {
			return
		}
		r.seen[n.Value] = true
		r.names = append(r.names, n.Value)
	case *ast.MemberNode:
		ast.Patch(node, call(fnGet, n.Node, n.Property))
	case *ast.BuiltinNode:
		if len(n.Arguments) > 0 {
			n.Arguments[0] = call(fnIter, n.Arguments[0])
		}
	case *ast.CallNode:
		id, ok := n.Callee.(*ast.IdentifierNode)
		if !ok {
			return
		}
		if r.callees == nil {
			r.callees = make(map[string]bool)
		}
		r.callees[id.Value] = true
		if builtins[id.Value] && len(n.Arguments) > 0 {
			n.Arguments[0] = call(fnIter, n.Arguments[0])
		}
	case *ast.BinaryNode:
		if n.Operator == "in" || n.Operator == "not in" {
			n.Right = call(fnIter, n.Right)
		}
	}
}

func call(name string, args ...ast.Node) *ast.CallNode {
	return &ast.CallNode{Callee: &ast.IdentifierNode{Value: name}, Arguments: args}
}

// builtins lists expr builtin functions whose first argument may be a
// collection.
var builtins = map[string]bool{
	"len": true, "all": true, "none": true, "any": true, "one": true,
	"filter": true, "map": true, "count": true, "sum": true, "find": true,
	"findIndex": true, "findLast": true, "findLastIndex": true,
	"groupBy": true, "sortBy": true, "reduce": true, "keys": true,
	"values": true, "toPairs": true, "first": true, "last": true,
	"get": true, "sort": true, "flatten": true, "uniq": true, "concat": true,
	"join": true, "max": true, "min": true, "mean": true, "median": true,
	"toJSON": true,
}

func unsigil(name string) string {
	if rest, ok := strings.CutPrefix(name, sigilPrefix); ok {
		return "$" + rest
	}
	return name
}

func arith(op byte, a, b any) (any, error) {
	if op == '+' {
		if s, ok := a.(string); ok {
			return s + eval.Stringify(b), nil
		}
		if s, ok := b.(string); ok {
			return eval.Stringify(a) + s, nil
		}
	}
	ai, aInt := a.(int)
	bi, bInt := b.(int)
	if a == nil {
		ai, aInt = 0, true
	}
	if aInt && bInt {
		switch op {
		case '+':
			return ai + bi, nil
		case '-':
			return ai - bi, nil
		case '*':
			return ai * bi, nil
		}
	}
	x, ok := eval.Number(a)
	if a == nil {
		x, ok = 0, true
	}
	y, ok2 := eval.Number(b)
	if !ok || !ok2 {
		return nil, fmt.Errorf("invalid operation: %T %c %T", a, op, b)
	}
	switch op {
	case '+':
		return x + y, nil
	case '-':
		return x - y, nil
	case '*':
		return x * y, nil
	case '/':
		return x / y, nil
	}
	return nil, fmt.Errorf("unknown operator %c", op)
}
