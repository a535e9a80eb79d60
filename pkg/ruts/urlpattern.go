package ruts

import (
	"fmt"
	"regexp"
	"strings"
)

const urlParamMark = "{}"

var methodNameMarkRegexp = regexp.MustCompile(`@word`)

// PreparedURLPattern is the compiled matcher of one execute against a param path,
// the request path remaining after the action path.
type PreparedURLPattern struct {
	resolved  string
	regexp    *regexp.Regexp
	specified bool
}

// ResolvedPattern is the pattern with the method name applied, e.g. "land/{}".
func (p *PreparedURLPattern) ResolvedPattern() string { return p.resolved }
func (p *PreparedURLPattern) Regexp() *regexp.Regexp { return p.regexp }
func (p *PreparedURLPattern) IsSpecified() bool { return p.specified }

// Match returns the raw URL parameter values, one per URL parameter
// (absent optional values are empty).
func (p *PreparedURLPattern) Match(paramPath string) ([]string, bool) {
	found := p.regexp.FindStringSubmatch(paramPath)
	if found == nil {
		return nil, false
	}
	return found[1:], true
}

func (p *PreparedURLPattern) String() string {
	return p.resolved
}

// prepareURLPattern resolves and compiles the pattern of an execute.
func prepareURLPattern(mappingName string, index bool, option ExecuteOption, params []*ExecuteParameter) (*PreparedURLPattern, error) {
	var resolved string
	if option.HasURLPattern() {
		resolved = strings.Trim(strings.TrimSpace(option.URLPattern), "/")
		if methodNameMarkRegexp.MatchString(resolved) {
			resolved = methodNameMarkRegexp.ReplaceAllLiteralString(resolved, mappingName)
		} else if !index {
			resolved = mappingName + "/" + resolved
		}
	} else {
		marks := make([]string, len(params))
		for i := range marks {
			marks[i] = urlParamMark
		}
		if !index {
			marks = append([]string{mappingName}, marks...)
		}
		resolved = strings.Join(marks, "/")
	}

	if count := strings.Count(resolved, urlParamMark); count != len(params) {
		return nil, fmt.Errorf("the pattern %q has %d parameter mark(s) but the method has %d URL parameter(s)", resolved, count, len(params))
	}

	var sb strings.Builder
	sb.WriteString("^")
	next := 0
	for i, segment := range strings.Split(resolved, "/") {
		separator := ""
		if i > 0 {
			separator = "/"
		}
		if segment == urlParamMark && params[next].optional {
			sb.WriteString("(?:" + separator + paramGroup(params[next]) + ")?")
			next++
			continue
		}
		sb.WriteString(regexp.QuoteMeta(separator))
		for j, literal := range strings.Split(segment, urlParamMark) {
			if j > 0 {
				sb.WriteString(paramGroup(params[next]))
				next++
			}
			sb.WriteString(regexp.QuoteMeta(literal))
		}
	}
	sb.WriteString("$")

	compiled, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, fmt.Errorf("failed to compile the URL pattern %q: %w", resolved, err)
	}
	return &PreparedURLPattern{resolved: resolved, regexp: compiled, specified: option.HasURLPattern()}, nil
}

func paramGroup(p *ExecuteParameter) string {
	switch {
	case isIntegerType(p.valueType):
		return `(-?[0-9]+)`
	case isNumberType(p.valueType):
		return `(-?[0-9]+(?:\.[0-9]+)?)`
	default:
		return `([^/]+)`
	}
}
