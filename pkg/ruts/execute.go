package ruts

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"
)

// ActionExecute is one routable method of an action. It is immutable once
// built and shared by all requests.
type ActionExecute struct {
	mapping           *ActionMapping
	method            reflect.Method
	executeKey        string
	mappingMethodName string
	restfulHTTPMethod string
	option            ExecuteOption
	indexMethod       bool
	params            []*ExecuteParameter
	urlParamArgs      *URLParamArgs
	formParam         *ExecuteParameter
	formMeta          *ActionFormMeta
	urlPattern        *PreparedURLPattern
}

// newActionExecute analyzes method and builds its execute. The returned error
// is always a *ConfigurationError.
func newActionExecute(mapping *ActionMapping, method reflect.Method, option ExecuteOption, naming NamingConvention) (*ActionExecute, error) {
	verb, mappingName := splitRestfulName(method.Name)
	execute := &ActionExecute{
		mapping:           mapping,
		method:            method,
		executeKey:        lowerFirst(method.Name),
		mappingMethodName: mappingName,
		restfulHTTPMethod: verb,
		option:            option,
		indexMethod:       mappingName == "index",
	}

	mt := method.Type
	if mt.IsVariadic() {
		return nil, execute.signatureError("variadic parameters cannot be routed")
	}
	var urlParams []*ExecuteParameter
	actionPkg := structTypeOf(mapping.actionType).PkgPath()
	for i := 1; i < mt.NumIn(); i++ {
		param, err := analyzeParameter(i-1, mt.In(i), naming, actionPkg)
		if err != nil {
			return nil, execute.signatureError(err.Error())
		}
		switch param.kind {
		case URLParameter:
			if len(urlParams) > 0 && urlParams[len(urlParams)-1].optional && !param.optional {
				return nil, execute.signatureError(fmt.Sprintf("the required parameter %v follows an optional parameter", param.paramType))
			}
			urlParams = append(urlParams, param)
		case FormParameter:
			if execute.formParam != nil {
				return nil, execute.signatureError("only one form or body parameter is allowed")
			}
			execute.formParam = param
		}
		execute.params = append(execute.params, param)
	}
	if len(urlParams) > 0 {
		execute.urlParamArgs = &URLParamArgs{params: urlParams}
	}

	if mt.NumOut() != 2 || mt.Out(1) != errorType || !mt.Out(0).Implements(actionResponseType) {
		return nil, execute.signatureError("the results must be (an ActionResponse, error)")
	}

	if execute.formParam != nil {
		meta, err := newActionFormMeta(execute, execute.formParam)
		if err != nil {
			return nil, err
		}
		execute.formMeta = meta
	}

	pattern, err := prepareURLPattern(mappingName, execute.indexMethod, option, urlParams)
	if err != nil {
		return nil, newConfigurationError(ErrURLPatternMismatch, NewDiagnostic("The URL pattern does not fit the URL parameters of the execute method.").
			Item("Advice", "Write one {} for each URL parameter, in order.",
				"  (x) WithURLPattern(\"{}\") with Land(id int, name string)",
				"  (o) WithURLPattern(\"{}/{}\") with Land(id int, name string)").
			Item("Execute Method", execute.String()).
			Item("URL Pattern", option.URLPattern).
			Item("Detail", err.Error()))
	}
	execute.urlPattern = pattern
	return execute, nil
}

func (e *ActionExecute) signatureError(detail string) *ConfigurationError {
	return newConfigurationError(ErrIllegalExecuteSignature, NewDiagnostic("The execute method signature cannot be routed.").
		Item("Advice", "Parameters must be URL parameters (string, numbers, bool, UUID, classifications or their Optional),",
			"one form or body (e.g. *SeaForm, *SeaBody, []*SeaBody) and framework values (context.Context, *ruts.ActionRuntime).",
			"Results must be (an ActionResponse, error).").
		Item("Execute Method", e.String()).
		Item("Detail", detail))
}

// ActionMapping returns the owning mapping.
func (e *ActionExecute) ActionMapping() *ActionMapping { return e.mapping }

// Method returns the reflected method.
func (e *ActionExecute) Method() reflect.Method { return e.method }

// ExecuteKey is the lower-camel method name, e.g. "getIndex".
func (e *ActionExecute) ExecuteKey() string { return e.executeKey }

// MappingMethodName is the method name without its verb prefix, e.g. "index".
func (e *ActionExecute) MappingMethodName() string { return e.mappingMethodName }

func (e *ActionExecute) ExecuteOption() ExecuteOption { return e.option }

func (e *ActionExecute) IsIndexMethod() bool { return e.indexMethod }

// RestfulHTTPMethod returns the bound verb in lower case.
func (e *ActionExecute) RestfulHTTPMethod() Optional[string] {
	if e.restfulHTTPMethod == "" {
		return OptionalEmpty[string]()
	}
	return OptionalOf(e.restfulHTTPMethod)
}

func (e *ActionExecute) IsRestful() bool { return e.restfulHTTPMethod != "" }

func (e *ActionExecute) Parameters() []*ExecuteParameter { return e.params }

// URLParamArgs returns the URL parameters, absent when the method takes none.
func (e *ActionExecute) URLParamArgs() Optional[*URLParamArgs] {
	if e.urlParamArgs == nil {
		return OptionalEmpty[*URLParamArgs]()
	}
	return OptionalOf(e.urlParamArgs)
}

func (e *ActionExecute) HasURLParameter() bool { return e.urlParamArgs != nil }

// IsNumberTypeParameter reports whether the i-th URL parameter is numeric.
func (e *ActionExecute) IsNumberTypeParameter(i int) bool {
	return e.urlParamArgs != nil && e.urlParamArgs.IsNumberTypeParameter(i)
}

// FormMeta returns the form metadata, absent when the method takes no form.
func (e *ActionExecute) FormMeta() Optional[*ActionFormMeta] {
	if e.formMeta == nil {
		return OptionalEmpty[*ActionFormMeta]()
	}
	return OptionalOf(e.formMeta)
}

func (e *ActionExecute) PreparedURLPattern() *PreparedURLPattern { return e.urlPattern }

// IsTargetHTTPMethod reports whether the execute accepts httpMethod.
func (e *ActionExecute) IsTargetHTTPMethod(httpMethod string) bool {
	if e.restfulHTTPMethod == "" {
		return true
	}
	if strings.EqualFold(httpMethod, e.restfulHTTPMethod) {
		return true
	}
	return e.restfulHTTPMethod == "get" && strings.EqualFold(httpMethod, http.MethodHead)
}

// DetermineTarget reports whether the execute serves paramPath with httpMethod.
func (e *ActionExecute) DetermineTarget(paramPath string, httpMethod string) bool {
	if !e.IsTargetHTTPMethod(httpMethod) {
		return false
	}
	_, ok := e.urlPattern.Match(paramPath)
	return ok
}

// String renders the method expression, e.g. "SeaAction@land(int)".
func (e *ActionExecute) String() string {
	typeName := "?"
	if e.mapping != nil {
		typeName = structTypeOf(e.mapping.actionType).Name()
	}
	mt := e.method.Type
	var args []string
	if mt != nil {
		for i := 1; i < mt.NumIn(); i++ {
			args = append(args, mt.In(i).String())
		}
	}
	return fmt.Sprintf("%s@%s(%s)", typeName, e.executeKey, strings.Join(args, ", "))
}
