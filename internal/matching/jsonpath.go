// Package matching provides body predicate evaluation for log filters.
package matching

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// BodyPath is a compiled JSONPath predicate applied to captured bodies.
type BodyPath struct {
	expr jp.Expr
}

// CompileBodyPath parses a JSONPath expression (e.g. "$.user.id").
func CompileBodyPath(path string) (*BodyPath, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("invalid body path %q: %w", path, err)
	}
	return &BodyPath{expr: expr}, nil
}

// Matches reports whether the path selects at least one value in body.
// A nil or non-JSON body never matches.
func (b *BodyPath) Matches(body any) bool {
	if body == nil {
		return false
	}
	return len(b.expr.Get(body)) > 0
}
