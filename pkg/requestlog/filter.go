package requestlog

import (
	"fmt"
	"regexp"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/Shubhon9/api-sniffer/internal/matching"
)

// Filter defines criteria for querying captured entries. Zero-valued
// fields impose no constraint; set fields are combined with logical AND.
type Filter struct {
	// Method filters by exact HTTP method match.
	Method string

	// StatusCode filters by exact response status code match.
	StatusCode int

	// PathPattern is a regular expression matched against the request path.
	PathPattern string

	// Since is an inclusive lower bound on the capture timestamp.
	Since time.Time

	// Limit is the maximum number of entries to return (0 = no limit).
	Limit int

	// Expr is an optional expression evaluated per entry, e.g.
	// `responseTime > 100 && method == "POST"`. Available identifiers:
	// sequence, method, path, query, ip, statusCode, responseTime.
	Expr string

	// BodyPath is an optional JSONPath expression; an entry matches
	// when the path selects a value in its request or response body.
	BodyPath string
}

// compiledFilter holds the filter with its pattern and expression
// compiled once per query.
type compiledFilter struct {
	f        *Filter
	path     *regexp.Regexp
	program  *vm.Program
	bodyPath *matching.BodyPath
}

func (f *Filter) compile() (*compiledFilter, error) {
	cf := &compiledFilter{f: f}
	if f == nil {
		return cf, nil
	}
	if f.PathPattern != "" {
		re, err := regexp.Compile(f.PathPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid path pattern %q: %w", f.PathPattern, err)
		}
		cf.path = re
	}
	if f.Expr != "" {
		program, err := expr.Compile(f.Expr, expr.AsBool(), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("invalid filter expression %q: %w", f.Expr, err)
		}
		cf.program = program
	}
	if f.BodyPath != "" {
		bp, err := matching.CompileBodyPath(f.BodyPath)
		if err != nil {
			return nil, err
		}
		cf.bodyPath = bp
	}
	return cf, nil
}

// matches checks an entry against all compiled criteria.
func (cf *compiledFilter) matches(e *Entry) bool {
	if cf.f == nil {
		return true
	}
	if cf.f.Method != "" && e.Request.Method != cf.f.Method {
		return false
	}
	if cf.f.StatusCode != 0 && e.Response.StatusCode != cf.f.StatusCode {
		return false
	}
	if cf.path != nil && !cf.path.MatchString(e.Request.Path) {
		return false
	}
	if !cf.f.Since.IsZero() && e.Timestamp.Before(cf.f.Since) {
		return false
	}
	if cf.program != nil {
		env := map[string]any{
			"sequence":     e.Sequence,
			"method":       e.Request.Method,
			"path":         e.Request.Path,
			"query":        e.Request.Query,
			"ip":           e.Request.IP,
			"statusCode":   e.Response.StatusCode,
			"responseTime": e.ResponseTimeMs,
		}
		out, err := expr.Run(cf.program, env)
		if err != nil {
			return false
		}
		ok, _ := out.(bool)
		if !ok {
			return false
		}
	}
	if cf.bodyPath != nil {
		if !cf.bodyPath.Matches(e.Request.Body) && !cf.bodyPath.Matches(e.Response.Body) {
			return false
		}
	}
	return true
}
