// Copyright 2024 The Tagwire Authors.
// SPDX-License-Identifier: Apache-2.0

package eval

import (
	"fmt"
	"strings"

	"github.com/k14s/starlark-go/resolve"
	"github.com/k14s/starlark-go/starlark"
	"github.com/k14s/starlark-go/syntax"

	"tagwire.dev/tagwire/pkg/datatag"
	"tagwire.dev/tagwire/pkg/marker"
)

func init() {
	resolve.AllowFloat = true
	resolve.AllowSet = true
	resolve.AllowLambda = true
	resolve.AllowBitwise = true
}

const (
	exprOpen  = "{{"
	exprClose = "}}"
)

// Engine evaluates template expressions embedded in string values. A string
// is treated as a template only when it carries the TrustedAsTemplate tag
// and does not carry the Untrusted tag; everything else passes through
// untouched. Expression results inherit the template's tags (minus
// TrustedAsTemplate, which never survives evaluation).
type Engine struct {
	scope   map[string]interface{}
	filters map[string]Filter
}

// NewEngine returns an engine resolving variable names against scope.
// Filters contributed by providers become callable inside expressions.
func NewEngine(scope map[string]interface{}, providers ...FilterProvider) *Engine {
	filters := map[string]Filter{}
	for _, provider := range providers {
		for name, filter := range provider.Filters() {
			filters[name] = filter
		}
	}
	return &Engine{scope: scope, filters: filters}
}

// Evaluate renders value if it is a trusted template string. Undefined
// variable names evaluate to deferred markers rather than errors, so a
// template result may itself be a marker.
func (e *Engine) Evaluate(value interface{}) (interface{}, error) {
	str, ok := datatag.Native(value).(string)
	if !ok {
		return value, nil
	}
	if !datatag.IsTaggedOn(datatag.KindTrustedAsTemplate, value) {
		return value, nil
	}
	if datatag.IsTaggedOn(datatag.KindUntrusted, value) {
		return value, nil
	}

	segments := splitTemplate(str)
	if len(segments) == 0 {
		return value, nil
	}

	// a template that is one bare expression keeps the result's type
	if len(segments) == 1 && segments[0].isExpr {
		result, err := e.evalExpr(segments[0].content)
		if err != nil {
			return nil, err
		}
		return e.inheritTags(value, result), nil
	}

	var out strings.Builder
	for _, seg := range segments {
		if !seg.isExpr {
			out.WriteString(seg.content)
			continue
		}
		result, err := e.evalExpr(seg.content)
		if err != nil {
			return nil, err
		}
		text, err := materializeText(result)
		if err != nil {
			return nil, err
		}
		out.WriteString(text)
	}
	return e.inheritTags(value, out.String()), nil
}

func (e *Engine) inheritTags(template, result interface{}) interface{} {
	if _, isMarker := result.(*marker.Marker); isMarker {
		return result
	}
	return datatag.Untag(datatag.TagCopy(template, result), datatag.KindTrustedAsTemplate)
}

func (e *Engine) evalExpr(src string) (result interface{}, err error) {
	expr, parseErr := syntax.ParseExpr("<expression>", src, 0)
	if parseErr != nil {
		return nil, fmt.Errorf("parsing expression '%s': %s", src, parseErr)
	}

	env := starlark.StringDict{}
	for name, val := range e.scope {
		starVal, err := goToStarlark(val)
		if err != nil {
			return nil, err
		}
		env[name] = starVal
	}
	for name, filter := range e.filters {
		env[name] = e.filterBuiltin(name, filter)
	}
	for _, name := range freeIdents(expr) {
		if _, bound := env[name]; bound {
			continue
		}
		if _, universal := starlark.Universe[name]; universal {
			continue
		}
		env[name] = marker.NewDeferred(fmt.Sprintf("'%s' is undefined", name))
	}

	// marker misuse inside an expression surfaces as a panic
	defer func() {
		if r := recover(); r != nil {
			if markerErr, ok := r.(*marker.MarkerError); ok {
				result, err = nil, markerErr
				return
			}
			panic(r)
		}
	}()

	thread := &starlark.Thread{Name: "tagwire-eval"}
	starResult, evalErr := starlark.Eval(thread, "<expression>", src, env)
	if evalErr != nil {
		return nil, fmt.Errorf("evaluating expression '%s': %s", src, evalErr)
	}
	return starlarkToGo(starResult)
}

func (e *Engine) filterBuiltin(name string, filter Filter) *starlark.Builtin {
	return starlark.NewBuiltin(name, func(
		thread *starlark.Thread, b *starlark.Builtin,
		args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {

		if len(kwargs) > 0 {
			return nil, fmt.Errorf("filter '%s' does not accept keyword arguments", name)
		}
		goArgs := make([]interface{}, len(args))
		for i, arg := range args {
			goArg, err := starlarkToGo(arg)
			if err != nil {
				return nil, err
			}
			goArgs[i] = goArg
		}
		result, err := e.ApplyFilter(name, goArgs...)
		if err != nil {
			return nil, err
		}
		return goToStarlark(result)
	})
}

// ApplyFilter invokes a named filter. Filters come from external providers
// and are not assumed to handle tags; whatever they return inherits the
// tags of the first tagged argument.
func (e *Engine) ApplyFilter(name string, args ...interface{}) (interface{}, error) {
	filter, found := e.filters[name]
	if !found {
		return nil, fmt.Errorf("unknown filter '%s'", name)
	}

	nativeArgs := make([]interface{}, len(args))
	for i, arg := range args {
		nativeArgs[i] = datatag.Native(arg)
	}
	result, err := filter(nativeArgs)
	if err != nil {
		return nil, fmt.Errorf("filter '%s': %s", name, err)
	}

	for _, arg := range args {
		if _, isTagged := arg.(*datatag.Value); isTagged {
			return datatag.TagCopy(arg, result), nil
		}
	}
	return result, nil
}

// TrustedExpression builds the template string that looks up a single
// variable, trusted for evaluation and carrying over the name's tags.
func TrustedExpression(name interface{}) (interface{}, error) {
	nameStr, ok := datatag.Native(name).(string)
	if !ok {
		return nil, fmt.Errorf("expected variable name to be a string, but was %T", datatag.Native(name))
	}
	expr := exprOpen + " " + nameStr + " " + exprClose
	return datatag.Apply(datatag.TagCopy(name, expr), datatag.TrustedAsTemplate{}), nil
}

type segment struct {
	content string
	isExpr  bool
}

// splitTemplate cuts s into literal and expression segments. Returns nil
// when s contains no expression.
func splitTemplate(s string) []segment {
	if !strings.Contains(s, exprOpen) {
		return nil
	}
	var segments []segment
	rest := s
	for {
		open := strings.Index(rest, exprOpen)
		if open < 0 {
			break
		}
		end := strings.Index(rest[open:], exprClose)
		if end < 0 {
			break
		}
		if open > 0 {
			segments = append(segments, segment{content: rest[:open]})
		}
		expr := strings.TrimSpace(rest[open+len(exprOpen) : open+end])
		segments = append(segments, segment{content: expr, isExpr: true})
		rest = rest[open+end+len(exprClose):]
	}
	if len(segments) == 0 {
		return nil
	}
	if rest != "" {
		segments = append(segments, segment{content: rest})
	}
	return segments
}

// freeIdents collects identifiers that may need a binding. Attribute names
// and named-argument keys are not bindings; loop variables may be collected
// but local bindings shadow anything injected for them.
func freeIdents(expr syntax.Expr) []string {
	seen := map[string]struct{}{}
	var names []string
	var visit func(n syntax.Node)
	visit = func(n syntax.Node) {
		switch node := n.(type) {
		case *syntax.Ident:
			if _, dup := seen[node.Name]; !dup {
				seen[node.Name] = struct{}{}
				names = append(names, node.Name)
			}
		case *syntax.DotExpr:
			visit(node.X)
		case *syntax.CallExpr:
			visit(node.Fn)
			for _, arg := range node.Args {
				if named, ok := arg.(*syntax.BinaryExpr); ok && named.Op == syntax.EQ {
					visit(named.Y)
					continue
				}
				visit(arg)
			}
		default:
			syntax.Walk(n, func(child syntax.Node) bool {
				if child == nil || child == n {
					return child == n
				}
				visit(child)
				return false
			})
		}
	}
	visit(expr)
	return names
}
