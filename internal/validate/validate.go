// Copyright (c) 2025 DbRevel
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package validate checks decoded JSON against the shapes the backend is
// expected to return. Checks are structural only: presence and primitive
// type of every required field, recursively. The first mismatch fails with
// a Validation error naming the field path, e.g. "metadata.query_plan.queries[0].query".
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	apperrors "dbrevel/cli/internal/errors"
)

type kind int

const (
	kindAny kind = iota
	kindObject
	kindArray
	kindMap
	kindString
	kindNumber
	kindInteger
	kindBool
	kindAnyOf
)

// Node describes the expected shape of one JSON value.
type Node struct {
	kind    kind
	fields  []Field
	elem    *Node
	options []*Node
}

// Field is a named member of an object node.
type Field struct {
	Name     string
	Node     *Node
	Optional bool
}

// Required declares a field that must be present and non-null.
func Required(name string, n *Node) Field { return Field{Name: name, Node: n} }

// Optional declares a field that may be absent or null.
func Optional(name string, n *Node) Field { return Field{Name: name, Node: n, Optional: true} }

func Object(fields ...Field) *Node { return &Node{kind: kindObject, fields: fields} }
func Array(elem *Node) *Node       { return &Node{kind: kindArray, elem: elem} }

// MapOf is an object with arbitrary keys whose values all match elem.
func MapOf(elem *Node) *Node { return &Node{kind: kindMap, elem: elem} }

func String() *Node  { return &Node{kind: kindString} }
func Number() *Node  { return &Node{kind: kindNumber} }
func Integer() *Node { return &Node{kind: kindInteger} }
func Bool() *Node    { return &Node{kind: kindBool} }
func Any() *Node     { return &Node{kind: kindAny} }

// AnyOf accepts a value matching at least one option.
func AnyOf(options ...*Node) *Node { return &Node{kind: kindAnyOf, options: options} }

// Check validates v against n. The returned error is a *errors.E of kind
// Validation, or nil.
func Check(n *Node, v any) error {
	return check(n, v, "")
}

func check(n *Node, v any, path string) error {
	switch n.kind {
	case kindAny:
		return nil

	case kindAnyOf:
		return checkAnyOf(n, v, path)

	case kindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			return mismatch(path, n, v)
		}
		for _, f := range n.fields {
			fp := join(path, f.Name)
			fv, present := obj[f.Name]
			if !present || fv == nil {
				if f.Optional {
					continue
				}
				if !present {
					return apperrors.NewValidation(fp, fmt.Sprintf("missing required field (expected %s)", f.Node.describe()))
				}
				return mismatch(fp, f.Node, fv)
			}
			if err := check(f.Node, fv, fp); err != nil {
				return err
			}
		}
		return nil

	case kindMap:
		obj, ok := v.(map[string]any)
		if !ok {
			return mismatch(path, n, v)
		}
		for _, k := range sortedKeys(obj) {
			if err := check(n.elem, obj[k], join(path, k)); err != nil {
				return err
			}
		}
		return nil

	case kindArray:
		arr, ok := v.([]any)
		if !ok {
			return mismatch(path, n, v)
		}
		for i, item := range arr {
			if err := check(n.elem, item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil

	case kindString:
		if _, ok := v.(string); !ok {
			return mismatch(path, n, v)
		}
		return nil

	case kindBool:
		if _, ok := v.(bool); !ok {
			return mismatch(path, n, v)
		}
		return nil

	case kindNumber:
		if _, ok := number(v); !ok {
			return mismatch(path, n, v)
		}
		return nil

	case kindInteger:
		f, ok := number(v)
		if !ok || math.Trunc(f) != f || math.IsInf(f, 0) {
			return mismatch(path, n, v)
		}
		return nil
	}
	return nil
}

// checkAnyOf passes when one option matches. When none does, the error of
// the first option whose top-level type matched is reported, so nested
// mismatches keep their precise path.
func checkAnyOf(n *Node, v any, path string) error {
	var deep error
	for _, opt := range n.options {
		err := check(opt, v, path)
		if err == nil {
			return nil
		}
		if deep == nil && opt.accepts(v) {
			deep = err
		}
	}
	if deep != nil {
		return deep
	}
	return mismatch(path, n, v)
}

// accepts reports whether v has the top-level JSON type of n.
func (n *Node) accepts(v any) bool {
	switch n.kind {
	case kindObject, kindMap:
		_, ok := v.(map[string]any)
		return ok
	case kindArray:
		_, ok := v.([]any)
		return ok
	case kindAnyOf:
		for _, o := range n.options {
			if o.accepts(v) {
				return true
			}
		}
		return false
	default:
		return check(n, v, "") == nil
	}
}

func (n *Node) describe() string {
	switch n.kind {
	case kindObject, kindMap:
		return "object"
	case kindArray:
		return "array"
	case kindString:
		return "string"
	case kindNumber:
		return "number"
	case kindInteger:
		return "integer"
	case kindBool:
		return "boolean"
	case kindAnyOf:
		names := make([]string, 0, len(n.options))
		for _, o := range n.options {
			names = append(names, o.describe())
		}
		return strings.Join(names, " or ")
	default:
		return "any"
	}
}

func mismatch(path string, n *Node, v any) error {
	field := path
	if field == "" {
		field = "$"
	}
	return apperrors.NewValidation(field, fmt.Sprintf("expected %s, got %s", n.describe(), typeName(v)))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if _, ok := number(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
