package conditions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownOperator = errors.New("unknown operator")

// triggerOperators maps the $-prefixed operators of trigger conditions onto comparators.
var triggerOperators = map[string]Operator{
	"$eq":  OpEq,
	"$ne":  OpNe,
	"$gt":  OpGt,
	"$gte": OpGte,
	"$lt":  OpLt,
	"$lte": OpLte,
	"$in":  OpIn,
	"$nin": OpNin,
}

// TriggerOperators lists the operators accepted inside trigger condition objects.
func TriggerOperators() []string {
	ops := make([]string, 0, len(triggerOperators))
	for op := range triggerOperators {
		ops = append(ops, op)
	}

	sort.Strings(ops)

	return ops
}

// MatchTrigger evaluates trigger conditions against an event context. Fields are ANDed, and so
// are the operators inside one field's operator object. A field mapped to anything other than
// an operator object is compared for equality.
func MatchTrigger(conds map[string]any, data map[string]any) (bool, error) {
	for _, field := range sortedKeys(conds) {
		actual, _ := Lookup(data, field)

		ops, isOperatorObject := operatorObject(conds[field])
		if !isOperatorObject {
			if !OpEq.Evaluate(actual, conds[field]) {
				return false, nil
			}

			continue
		}

		for _, name := range sortedKeys(ops) {
			op, ok := triggerOperators[name]
			if !ok {
				return false, fmt.Errorf("%w: %s on field %q", ErrUnknownOperator, name, field)
			}

			if !op.Evaluate(actual, ops[name]) {
				return false, nil
			}
		}
	}

	return true, nil
}

// ValidateTrigger reports the first unsupported operator found in conds.
func ValidateTrigger(conds map[string]any) error {
	for _, field := range sortedKeys(conds) {
		ops, ok := operatorObject(conds[field])
		if !ok {
			continue
		}

		for _, name := range sortedKeys(ops) {
			if _, ok := triggerOperators[name]; !ok {
				return fmt.Errorf("%w: %s on field %q", ErrUnknownOperator, name, field)
			}
		}
	}

	return nil
}

// operatorObject reports whether v is a non-empty map whose keys all start with "$".
func operatorObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}

	for key := range m {
		if !strings.HasPrefix(key, "$") {
			return nil, false
		}
	}

	return m, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
