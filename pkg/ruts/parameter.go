package ruts

import (
	"context"
	"fmt"
	"reflect"
)

// ParameterKind classifies an execute method parameter.
type ParameterKind int

const (
	// InjectedParameter is supplied by the framework.
	InjectedParameter ParameterKind = iota
	// URLParameter is converted from a path segment.
	URLParameter
	// FormParameter is bound from request parameters or the body.
	FormParameter
)

func (k ParameterKind) String() string {
	switch k {
	case InjectedParameter:
		return "injected"
	case URLParameter:
		return "url"
	case FormParameter:
		return "form"
	default:
		return fmt.Sprintf("ParameterKind(%d)", int(k))
	}
}

var (
	contextType        = reflect.TypeOf((*context.Context)(nil)).Elem()
	runtimeType        = reflect.TypeOf((*ActionRuntime)(nil))
	requestContextType = reflect.TypeOf((*RequestContext)(nil)).Elem()
	queryMapType       = reflect.TypeOf(QueryMap{})
	errorType          = reflect.TypeOf((*error)(nil)).Elem()
	actionResponseType = reflect.TypeOf((*ActionResponse)(nil)).Elem()
)

func isInjectedType(t reflect.Type) bool {
	return t == contextType || t == runtimeType || t == requestContextType || t == queryMapType
}

// ExecuteParameter is one declared parameter of an execute method.
type ExecuteParameter struct {
	index     int
	paramType reflect.Type
	kind      ParameterKind
	optional  bool
	valueType reflect.Type
	listForm  bool
}

// Index is the position among the method arguments, receiver excluded.
func (p *ExecuteParameter) Index() int { return p.index }
func (p *ExecuteParameter) Type() reflect.Type { return p.paramType }
func (p *ExecuteParameter) Kind() ParameterKind { return p.kind }
func (p *ExecuteParameter) IsOptional() bool { return p.optional }
func (p *ExecuteParameter) IsURLParam() bool { return p.kind == URLParameter }
func (p *ExecuteParameter) IsListForm() bool { return p.listForm }
func (p *ExecuteParameter) ValueType() reflect.Type { return p.valueType }

// IsNumber reports whether the (unwrapped) value type is numeric.
func (p *ExecuteParameter) IsNumber() bool {
	return p.kind == URLParameter && isNumberType(p.valueType)
}

// URLParamArgs is the ordered list of URL-bound parameters of an execute.
type URLParamArgs struct {
	params []*ExecuteParameter
}

func (a *URLParamArgs) Size() int { return len(a.params) }

func (a *URLParamArgs) ParameterAt(i int) *ExecuteParameter {
	return a.params[i]
}

// IsNumberTypeParameter reports whether the i-th URL parameter is numeric.
func (a *URLParamArgs) IsNumberTypeParameter(i int) bool {
	return i < len(a.params) && a.params[i].IsNumber()
}

func (a *URLParamArgs) String() string {
	types := make([]string, len(a.params))
	for i, p := range a.params {
		types[i] = p.paramType.String()
	}
	return fmt.Sprint(types)
}

// analyzeParameter classifies the parameter at index of method type mt.
func analyzeParameter(index int, t reflect.Type, naming NamingConvention, actionPkg string) (*ExecuteParameter, error) {
	p := &ExecuteParameter{index: index, paramType: t, valueType: t}
	switch {
	case isInjectedType(t):
		p.kind = InjectedParameter
	case naming.IsFormType(t, actionPkg):
		p.kind = FormParameter
		p.valueType = structTypeOf(t)
	case t.Kind() == reflect.Slice && naming.IsFormType(t.Elem(), actionPkg):
		p.kind = FormParameter
		p.listForm = true
		p.valueType = structTypeOf(t.Elem())
	default:
		if elem, ok := optionalElemOf(t); ok && isURLParamType(elem) {
			p.kind = URLParameter
			p.optional = true
			p.valueType = elem
		} else if isURLParamType(t) {
			p.kind = URLParameter
		} else {
			return nil, fmt.Errorf("unsupported parameter type %v", t)
		}
	}
	return p, nil
}
