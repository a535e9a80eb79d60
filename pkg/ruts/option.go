package ruts

import (
	"fmt"
	"strings"
)

// ExecuteOption is the routing configuration of one execute method.
type ExecuteOption struct {
	// URLPattern overrides the derived pattern; empty means derive.
	URLPattern                 string
	SuppressTransaction        bool
	SuppressValidatorCallCheck bool
	// SQLExecutionCountLimit warns when a request runs more SQL; <=0 is unlimited.
	SQLExecutionCountLimit int
}

// HasURLPattern reports whether a pattern was specified.
func (o ExecuteOption) HasURLPattern() bool {
	return strings.TrimSpace(o.URLPattern) != ""
}

// HasSQLExecutionCountLimit reports whether a positive limit was specified.
func (o ExecuteOption) HasSQLExecutionCountLimit() bool {
	return o.SQLExecutionCountLimit > 0
}

func (o ExecuteOption) String() string {
	return fmt.Sprintf("{urlPattern=%q, suppressTransaction=%t, suppressValidatorCallCheck=%t, sqlExecutionCountLimit=%d}",
		o.URLPattern, o.SuppressTransaction, o.SuppressValidatorCallCheck, o.SQLExecutionCountLimit)
}

// ExecuteOptionFunc mutates an ExecuteOption while declaring an execute.
type ExecuteOptionFunc func(*ExecuteOption)

// WithURLPattern sets an explicit URL pattern. "{}" marks a URL parameter and
// "@word" stands for the method name.
func WithURLPattern(pattern string) ExecuteOptionFunc {
	return func(o *ExecuteOption) {
		o.URLPattern = pattern
	}
}

// SuppressTransaction runs the execute without a transaction.
func SuppressTransaction() ExecuteOptionFunc {
	return func(o *ExecuteOption) {
		o.SuppressTransaction = true
	}
}

// SuppressValidatorCallCheck disables the nested validator and validator call checks.
func SuppressValidatorCallCheck() ExecuteOptionFunc {
	return func(o *ExecuteOption) {
		o.SuppressValidatorCallCheck = true
	}
}

// WithSQLExecutionCountLimit sets the SQL count limit.
func WithSQLExecutionCountLimit(limit int) ExecuteOptionFunc {
	return func(o *ExecuteOption) {
		o.SQLExecutionCountLimit = limit
	}
}
