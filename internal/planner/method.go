package planner

import (
	"strings"

	"task-planner/internal/errs"
)

// Method names one allocation strategy.
type Method string

const (
	MethodInterest           Method = "interest"
	MethodImportance         Method = "importance"
	MethodInterestImportance Method = "interest_importance"
	MethodPoints             Method = "points_allocation"
	MethodForceProcrastinate Method = "force_procrastinate"
)

var methods = []Method{
	MethodInterest,
	MethodImportance,
	MethodInterestImportance,
	MethodPoints,
	MethodForceProcrastinate,
}

// Methods lists every supported strategy in a stable order.
func Methods() []Method {
	out := make([]Method, len(methods))
	copy(out, methods)
	return out
}

// ParseMethod rejects anything outside the closed set with errs.KindInvalidMethod.
func ParseMethod(raw string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(raw)))
	if m.Valid() {
		return m, nil
	}
	return "", errs.InvalidMethod(raw)
}

func (m Method) Valid() bool {
	for _, known := range methods {
		if m == known {
			return true
		}
	}
	return false
}

func (m Method) String() string { return string(m) }
