// Package conditions evaluates field conditions used by trigger matching and condition steps.
package conditions

import (
	"fmt"
	"reflect"
	"strings"
)

// Operator is a comparison applied to (actual, expected).
type Operator string

const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpIn         Operator = "in"
	OpNin        Operator = "nin"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpIsNull     Operator = "is_null"
	OpIsNotNull  Operator = "is_not_null"
	OpIsEmpty    Operator = "is_empty"
	OpIsNotEmpty Operator = "is_not_empty"
)

// Comparator is a total function over an actual and an expected value.
type Comparator func(actual, expected any) bool

var comparators = map[Operator]Comparator{
	OpEq:         equal,
	OpNe:         func(a, e any) bool { return !equal(a, e) },
	OpGt:         ordered(func(c int) bool { return c > 0 }),
	OpGte:        ordered(func(c int) bool { return c >= 0 }),
	OpLt:         ordered(func(c int) bool { return c < 0 }),
	OpLte:        ordered(func(c int) bool { return c <= 0 }),
	OpIn:         in,
	OpNin:        func(a, e any) bool { return !in(a, e) },
	OpContains:   contains,
	OpStartsWith: func(a, e any) bool { return stringOp(a, e, strings.HasPrefix) },
	OpEndsWith:   func(a, e any) bool { return stringOp(a, e, strings.HasSuffix) },
	OpIsNull:     func(a, _ any) bool { return isNil(a) },
	OpIsNotNull:  func(a, _ any) bool { return !isNil(a) },
	OpIsEmpty:    func(a, _ any) bool { return isEmpty(a) },
	OpIsNotEmpty: func(a, _ any) bool { return !isEmpty(a) },
}

// Operators lists every operator accepted by condition steps.
func Operators() []Operator {
	return []Operator{
		OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpIn, OpNin,
		OpContains, OpStartsWith, OpEndsWith,
		OpIsNull, OpIsNotNull, OpIsEmpty, OpIsNotEmpty,
	}
}

// ParseOperator returns the operator named by s.
func ParseOperator(s string) (Operator, error) {
	op := Operator(s)
	if _, ok := comparators[op]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownOperator, s)
	}

	return op, nil
}

// Evaluate applies the operator. Unknown operators never match.
func (o Operator) Evaluate(actual, expected any) bool {
	cmp, ok := comparators[o]
	if !ok {
		return false
	}

	return cmp(actual, expected)
}

func equal(a, b any) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}

	af, aNum := number(a)
	bf, bNum := number(b)

	if aNum && bNum {
		return af == bf
	}

	return reflect.DeepEqual(a, b)
}

func ordered(accept func(c int) bool) Comparator {
	return func(actual, expected any) bool {
		c, ok := compare(actual, expected)

		return ok && accept(c)
	}
}

// compare orders numbers numerically (numeric strings included) and other strings lexically.
func compare(a, b any) (int, bool) {
	af, aOk := numeric(a)
	bf, bOk := numeric(b)

	if aOk && bOk {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	as, aStr := a.(string)
	bs, bStr := b.(string)

	if aStr && bStr {
		return strings.Compare(as, bs), true
	}

	return 0, false
}

func in(actual, expected any) bool {
	for _, candidate := range list(expected) {
		if equal(actual, candidate) {
			return true
		}
	}

	return false
}

func contains(actual, expected any) bool {
	if s, ok := actual.(string); ok {
		sub, ok := stringValue(expected)

		return ok && strings.Contains(s, sub)
	}

	for _, item := range list(actual) {
		if equal(item, expected) {
			return true
		}
	}

	return false
}

func stringOp(actual, expected any, fn func(s, affix string) bool) bool {
	s, ok := stringValue(actual)
	if !ok {
		return false
	}

	affix, ok := stringValue(expected)
	if !ok {
		return false
	}

	return fn(s, affix)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func isEmpty(v any) bool {
	if isNil(v) {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	default:
		return false
	}
}

func list(v any) []any {
	if isNil(v) {
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items
}
