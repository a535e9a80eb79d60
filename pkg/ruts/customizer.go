package ruts

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/rs/zerolog"
)

// RomanticActionCustomizer turns component definitions into action mappings,
// failing fast on convention violations.
type RomanticActionCustomizer struct {
	config      *ModuleConfig
	annotations AnnotationRegistry
	naming      NamingConvention
	logger      zerolog.Logger
}

// CustomizerOption configures a RomanticActionCustomizer.
type CustomizerOption func(*RomanticActionCustomizer)

// WithAnnotationRegistry replaces DefaultAnnotationRegistry.
func WithAnnotationRegistry(registry AnnotationRegistry) CustomizerOption {
	return func(c *RomanticActionCustomizer) {
		c.annotations = registry
	}
}

// WithNamingConvention replaces DefaultNamingConvention.
func WithNamingConvention(naming NamingConvention) CustomizerOption {
	return func(c *RomanticActionCustomizer) {
		c.naming = naming
	}
}

// WithCustomizerLogger sets the boot logger.
func WithCustomizerLogger(logger zerolog.Logger) CustomizerOption {
	return func(c *RomanticActionCustomizer) {
		c.logger = logger
	}
}

// NewRomanticActionCustomizer creates a customizer registering into config.
func NewRomanticActionCustomizer(config *ModuleConfig, opts ...CustomizerOption) *RomanticActionCustomizer {
	c := &RomanticActionCustomizer{
		config:      config,
		annotations: DefaultAnnotationRegistry,
		naming:      DefaultNamingConvention(),
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Customize builds the mapping of def and registers it. Checks run in a fixed
// order and the first violation aborts the registration of this action.
func (c *RomanticActionCustomizer) Customize(def *ComponentDef) error {
	if err := def.validate(); err != nil {
		return err
	}
	actionName := def.Name
	if actionName == "" {
		actionName = c.naming.ActionName(def.Type)
	}
	if err := c.verifyPackageConvention(def, actionName); err != nil {
		return err
	}

	mapping := newActionMapping(actionName, c.naming.ActionPath(actionName), def)
	if err := c.setupMethod(mapping); err != nil {
		return err
	}
	if err := c.verifyExecuteMethodSize(mapping); err != nil {
		return err
	}
	if err := c.verifyExecuteMethodNotShadowingOthers(mapping); err != nil {
		return err
	}
	if err := c.verifyExecuteMethodDefinedInConcreteClassOnly(mapping); err != nil {
		return err
	}
	if err := c.verifyExecuteMethodRestfulIndependent(mapping); err != nil {
		return err
	}
	if err := c.config.AddActionMapping(mapping); err != nil {
		return err
	}

	c.logger.Debug().
		Str("action", mapping.actionName).
		Str("path", mapping.actionPath).
		Int("executes", mapping.ExecuteCount()).
		Msg("action customized")
	return nil
}

func (c *RomanticActionCustomizer) verifyPackageConvention(def *ComponentDef, actionName string) error {
	sep := strings.LastIndex(actionName, "_")
	if sep < 0 {
		return nil
	}
	pkg := actionName[:sep]
	if !hasUpperCase(pkg) {
		return nil
	}
	return newConfigurationError(ErrActionPackageHasUpperCase, NewDiagnostic("The package of the action has upper case.").
		Item("Advice", "Action packages become URL paths and must be lower case.",
			"  (x) web/seaLand/SeaLandAction",
			"  (o) web/sealand/SealandAction",
			"  (o) web/sea/land/SeaLandAction").
		Item("Action", def.Type).
		Item("Package", strings.ReplaceAll(pkg, "_", "/")))
}

// setupMethod builds one execute per declared exported method.
func (c *RomanticActionCustomizer) setupMethod(mapping *ActionMapping) error {
	for _, annotation := range c.annotations.Lookup(mapping.actionType) {
		method, ok := mapping.actionType.MethodByName(annotation.Method)
		if !ok {
			c.logger.Warn().
				Str("action", mapping.actionName).
				Str("method", annotation.Method).
				Msg("execute declaration ignored: no exported method of that name")
			continue
		}
		if existing, dup := mapping.executeMap[lowerFirst(method.Name)]; dup {
			return newConfigurationError(ErrOverloadedExecute, NewDiagnostic("Overloaded execute methods are not allowed.").
				Item("Advice", "URL dispatch cannot choose between methods by parameter types. Declare each execute method once.").
				Item("Action", mapping.actionType).
				Item("Existing Execute", existing).
				Item("Duplicate Declaration", annotation.Method, annotation.Option))
		}
		execute, err := newActionExecute(mapping, method, annotation.Option, c.naming)
		if err != nil {
			return err
		}
		if err := mapping.RegisterExecute(execute); err != nil {
			return err
		}
	}
	return nil
}

func (c *RomanticActionCustomizer) verifyExecuteMethodSize(mapping *ActionMapping) error {
	if mapping.ExecuteCount() > 0 {
		return nil
	}
	return newConfigurationError(ErrExecuteNotFound, NewDiagnostic("The action has no execute method.").
		Item("Advice", "Declare at least one exported method as an execute method.",
			"  (x) func (a *SeaAction) Index() (ruts.HtmlResponse, error)  // not declared",
			"  (o) //ruts::execute",
			"      func (a *SeaAction) Index() (ruts.HtmlResponse, error)").
		Item("Action", mapping.actionType))
}

// verifyExecuteMethodNotShadowingOthers rejects an index execute taking a
// non-numeric URL parameter without a pattern when a named execute without
// parameters or pattern exists. Cases it cannot decide are left alone.
func (c *RomanticActionCustomizer) verifyExecuteMethodNotShadowingOthers(mapping *ActionMapping) error {
	for _, index := range mapping.ExecuteList() {
		if !index.indexMethod || !index.HasURLParameter() || index.option.HasURLPattern() {
			continue
		}
		if index.IsNumberTypeParameter(0) {
			continue
		}
		for _, named := range mapping.ExecuteList() {
			if named.indexMethod {
				continue
			}
			if index.IsRestful() && named.IsRestful() && index.restfulHTTPMethod != named.restfulHTTPMethod {
				continue
			}
			if named.option.HasURLPattern() || named.HasURLParameter() {
				continue
			}
			return newConfigurationError(ErrShadowedExecute, NewDiagnostic("The named execute method is shadowed by the index method.").
				Item("Advice", "The index method with a string URL parameter catches every single-segment path.",
					"Use a numeric first parameter, a URL pattern, or a parameter on the named method.",
					"  (x) Index(name string) and Land()",
					"  (o) Index(id int) and Land()",
					"  (o) Index(name string) with WithURLPattern(\"@word/{}\") and Land()").
				Item("Action", mapping.actionType).
				Item("Index Method", index).
				Item("Shadowed Method", named))
		}
	}
	return nil
}

// verifyExecuteMethodDefinedInConcreteClassOnly rejects executes declared on
// embedded types, and executes naming a method that an embedded type also has.
// Reflection cannot tell a promoted method from one the action redeclares, so
// both are rejected.
func (c *RomanticActionCustomizer) verifyExecuteMethodDefinedInConcreteClassOnly(mapping *ActionMapping) error {
	actionStruct := structTypeOf(mapping.actionType)
	if embedded, found := c.findAnnotatedEmbedded(actionStruct, map[reflect.Type]bool{}); found {
		return newConfigurationError(ErrExecuteAtSuperClass, NewDiagnostic("Execute methods must be declared on the concrete action.").
			Item("Advice", "Route derivation depends on the concrete action type.",
				"Move the execute declarations from the embedded type to the action itself.").
			Item("Action", mapping.actionType).
			Item("Embedded Type", embedded).
			Item("Declared Methods", annotatedMethodNames(c.annotations.Lookup(embedded))))
	}
	for _, execute := range mapping.ExecuteList() {
		embedded, found := findEmbeddedWithMethod(actionStruct, execute.method.Name, map[reflect.Type]bool{})
		if !found {
			continue
		}
		return newConfigurationError(ErrExecuteAtSuperClass, NewDiagnostic("Execute methods must be declared on the concrete action.").
			Item("Advice", "The execute method is promoted from (or shadows) a method of an embedded type.",
				"Declare it on the action itself under a name the embedded types do not use.").
			Item("Action", mapping.actionType).
			Item("Embedded Type", embedded).
			Item("Execute Method", execute))
	}
	return nil
}

func findEmbeddedWithMethod(t reflect.Type, name string, visited map[reflect.Type]bool) (reflect.Type, bool) {
	if t.Kind() != reflect.Struct || visited[t] {
		return nil, false
	}
	visited[t] = true
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.Anonymous {
			continue
		}
		embedded := structTypeOf(field.Type)
		if embedded.Kind() != reflect.Struct {
			continue
		}
		if _, ok := reflect.PointerTo(embedded).MethodByName(name); ok {
			return embedded, true
		}
		if found, ok := findEmbeddedWithMethod(embedded, name, visited); ok {
			return found, true
		}
	}
	return nil, false
}

func (c *RomanticActionCustomizer) findAnnotatedEmbedded(t reflect.Type, visited map[reflect.Type]bool) (reflect.Type, bool) {
	if t.Kind() != reflect.Struct || visited[t] {
		return nil, false
	}
	visited[t] = true
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.Anonymous {
			continue
		}
		embedded := structTypeOf(field.Type)
		if embedded.Kind() != reflect.Struct {
			continue
		}
		if c.annotations.Has(embedded) {
			return embedded, true
		}
		if found, ok := c.findAnnotatedEmbedded(embedded, visited); ok {
			return found, true
		}
	}
	return nil, false
}

func (c *RomanticActionCustomizer) verifyExecuteMethodRestfulIndependent(mapping *ActionMapping) error {
	for _, restful := range mapping.ExecuteList() {
		if !restful.IsRestful() {
			continue
		}
		for _, plain := range mapping.ExecuteList() {
			if plain.IsRestful() || plain.mappingMethodName != restful.mappingMethodName {
				continue
			}
			return newConfigurationError(ErrRestfulConflict, NewDiagnostic("The restful execute method conflicts with the plain execute method.").
				Item("Advice", "Use either verb-prefixed methods or a plain method for one name, not both.",
					"  (x) GetIndex() and Index()",
					"  (o) GetIndex() and PostIndex()").
				Item("Action", mapping.actionType).
				Item("Restful Method", restful).
				Item("Plain Method", plain))
		}
	}
	return nil
}

func annotatedMethodNames(annotations []ExecuteAnnotation) string {
	names := make([]string, len(annotations))
	for i, a := range annotations {
		names[i] = a.Method
	}
	return fmt.Sprint(names)
}
