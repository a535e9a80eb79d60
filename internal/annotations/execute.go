// Package annotations parses the //ruts:: comment annotations that mark
// execute methods for code generation.
package annotations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/toyz/ruts/internal/errors"
)

const (
	// Prefix starts every annotation comment.
	Prefix      = "//ruts::"
	Namespace   = "ruts"
	KindExecute = "execute"
)

// Parameter names accepted by //ruts::execute.
const (
	ParamURLPattern                 = "UrlPattern"
	ParamSuppressTransaction        = "SuppressTransaction"
	ParamSuppressValidatorCallCheck = "SuppressValidatorCallCheck"
	ParamSQLExecutionCountLimit     = "SqlExecutionCountLimit"
)

type paramKind int

const (
	stringParam paramKind = iota
	flagParam
	numberParam
)

func (k paramKind) String() string {
	switch k {
	case stringParam:
		return "a quoted string"
	case flagParam:
		return "no value, true or false"
	default:
		return "a positive number"
	}
}

var executeParams = map[string]paramKind{
	ParamURLPattern:                 stringParam,
	ParamSuppressTransaction:        flagParam,
	ParamSuppressValidatorCallCheck: flagParam,
	ParamSQLExecutionCountLimit:     numberParam,
}

var annotationLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//`},
	{Name: "Separator", Pattern: `::`},
	{Name: "String", Pattern: `"(\\"|[^"])*"`},
	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Equals", Pattern: `=`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type annotationAST struct {
	Namespace  string          `parser:"Comment @Ident Separator"`
	Kind       string          `parser:"@Ident"`
	Parameters []*parameterAST `parser:"@@*"`
}

type parameterAST struct {
	Pos   lexer.Position
	Name  string    `parser:"Dash @Ident"`
	Value *valueAST `parser:"(Equals @@)?"`
}

type valueAST struct {
	String *string `parser:"  @String"`
	Number *string `parser:"| @Number"`
	Ident  *string `parser:"| @Ident"`
}

func (v *valueAST) raw() string {
	switch {
	case v == nil:
		return ""
	case v.String != nil:
		return strconv.Quote(*v.String)
	case v.Number != nil:
		return *v.Number
	default:
		return *v.Ident
	}
}

var annotationParser = participle.MustBuild[annotationAST](
	participle.Lexer(annotationLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
)

// Execute is a parsed //ruts::execute annotation.
type Execute struct {
	URLPattern                 string
	SuppressTransaction        bool
	SuppressValidatorCallCheck bool
	SQLExecutionCountLimit     int
	Location                   errors.SourceLocation
	Raw                        string
}

// HasOptions reports whether any parameter was given.
func (e *Execute) HasOptions() bool {
	return e.URLPattern != "" || e.SuppressTransaction || e.SuppressValidatorCallCheck || e.SQLExecutionCountLimit > 0
}

// IsAnnotation reports whether a comment line is a ruts annotation.
func IsAnnotation(comment string) bool {
	return strings.HasPrefix(strings.TrimSpace(comment), Prefix)
}

// ParseExecute parses one //ruts::execute comment line. loc is the position
// of the comment and is used for error reporting.
func ParseExecute(comment string, loc errors.SourceLocation) (*Execute, error) {
	comment = strings.TrimSpace(comment)
	ast, err := annotationParser.ParseString(loc.File, comment)
	if err != nil {
		syntax := errors.Wrap(errors.SyntaxErrorCode, "invalid annotation syntax", err).
			WithLocation(loc).
			WithContext("annotation", comment).
			WithSuggestion(`annotations look like: //ruts::execute -UrlPattern="{}/of/{}" -SuppressTransaction`)
		if perr, ok := err.(participle.Error); ok {
			syntax.Loc = offset(loc, perr.Position())
			syntax.Cause = fmt.Errorf("%s", perr.Message())
		}
		return nil, syntax
	}
	if ast.Namespace != Namespace {
		return nil, errors.Newf(errors.SyntaxErrorCode, "unknown annotation namespace %q", ast.Namespace).
			WithLocation(loc).
			WithSuggestion("use the " + Prefix + " prefix")
	}
	if ast.Kind != KindExecute {
		return nil, errors.Newf(errors.SyntaxErrorCode, "unknown annotation %q", Prefix+ast.Kind).
			WithLocation(loc).
			WithSuggestion("the only annotation is " + Prefix + KindExecute)
	}

	execute := &Execute{Location: loc, Raw: comment}
	seen := make(map[string]bool, len(ast.Parameters))
	for _, p := range ast.Parameters {
		ploc := offset(loc, p.Pos)
		kind, known := executeParams[p.Name]
		if !known {
			unknown := errors.Newf(errors.ValidationErrorCode, "unknown parameter -%s", p.Name).
				WithLocation(ploc).
				WithContext("parameter", p.Name)
			if suggestion := closestParam(p.Name); suggestion != "" {
				unknown.WithSuggestion(fmt.Sprintf("did you mean -%s?", suggestion))
			} else {
				unknown.WithSuggestion("known parameters: " + strings.Join(knownParams(), ", "))
			}
			return nil, unknown
		}
		if seen[p.Name] {
			return nil, errors.Newf(errors.ValidationErrorCode, "duplicate parameter -%s", p.Name).
				WithLocation(ploc)
		}
		seen[p.Name] = true
		if err := execute.apply(p, kind); err != nil {
			return nil, err.WithLocation(ploc).WithContext("parameter", p.Name)
		}
	}
	return execute, nil
}

func (e *Execute) apply(p *parameterAST, kind paramKind) *errors.BaseError {
	invalid := func() *errors.BaseError {
		return errors.Newf(errors.ValidationErrorCode, "parameter -%s expects %s, got %q", p.Name, kind, p.Value.raw())
	}
	switch kind {
	case stringParam:
		if p.Value == nil || p.Value.String == nil {
			return invalid().WithSuggestion(fmt.Sprintf(`quote the value: -%s="..."`, p.Name))
		}
		if strings.TrimSpace(*p.Value.String) == "" {
			return errors.Newf(errors.ValidationErrorCode, "parameter -%s must not be blank", p.Name)
		}
		e.URLPattern = *p.Value.String
	case flagParam:
		on := true
		if p.Value != nil {
			if p.Value.Ident == nil {
				return invalid()
			}
			parsed, err := strconv.ParseBool(*p.Value.Ident)
			if err != nil {
				return invalid()
			}
			on = parsed
		}
		if p.Name == ParamSuppressTransaction {
			e.SuppressTransaction = on
		} else {
			e.SuppressValidatorCallCheck = on
		}
	case numberParam:
		if p.Value == nil || p.Value.Number == nil {
			return invalid()
		}
		limit, err := strconv.Atoi(*p.Value.Number)
		if err != nil || limit <= 0 {
			return invalid()
		}
		e.SQLExecutionCountLimit = limit
	}
	return nil
}

func offset(loc errors.SourceLocation, pos lexer.Position) errors.SourceLocation {
	if pos.Column == 0 {
		return loc
	}
	base := loc.Column
	if base == 0 {
		base = 1
	}
	loc.Column = base + pos.Column - 1
	return loc
}

func knownParams() []string {
	return []string{
		"-" + ParamURLPattern,
		"-" + ParamSuppressTransaction,
		"-" + ParamSuppressValidatorCallCheck,
		"-" + ParamSQLExecutionCountLimit,
	}
}

// closestParam finds a known parameter differing only by case.
func closestParam(name string) string {
	for known := range executeParams {
		if strings.EqualFold(known, name) {
			return known
		}
	}
	return ""
}
