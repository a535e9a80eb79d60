package ruts

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/toyz/ruts/pkg/ruts/validation"
)

const (
	validateTag = "validate"
	validTag    = "valid"
)

// FormInitializer lets a form set its defaults when instantiated.
type FormInitializer interface {
	InitForm() error
}

// ActionFormProperty is one readable property of a form.
type ActionFormProperty struct {
	name  string
	field reflect.StructField
}

// Name is the external name used for binding (json, then form tag, then field name).
func (p *ActionFormProperty) Name() string { return p.name }
func (p *ActionFormProperty) Field() reflect.StructField { return p.field }
func (p *ActionFormProperty) Type() reflect.Type { return p.field.Type }

// ValueOf reads the property from a form pointer.
func (p *ActionFormProperty) ValueOf(form any) (any, error) {
	rv := reflect.Indirect(reflect.ValueOf(form))
	fv, err := rv.FieldByIndexErr(p.field.Index)
	if err != nil {
		return nil, err
	}
	return fv.Interface(), nil
}

// ActionFormMeta is the registration-time metadata of a form or body type.
type ActionFormMeta struct {
	execute            *ActionExecute
	formKey            string
	formType           reflect.Type
	listFormParameter  reflect.Type
	properties         map[string]*ActionFormProperty
	propertyOrder      []string
	validatorAnnotated bool
}

func newActionFormMeta(execute *ActionExecute, param *ExecuteParameter) (*ActionFormMeta, error) {
	meta := &ActionFormMeta{
		execute:    execute,
		formType:   param.valueType,
		properties: make(map[string]*ActionFormProperty),
	}
	if execute.mapping != nil {
		meta.formKey = execute.mapping.actionName + "_" + execute.executeKey + "_Form"
	}
	if param.listForm {
		meta.listFormParameter = param.paramType
	}
	for _, field := range readableFields(meta.formType) {
		name := validation.PropertyName(field)
		if name == "" {
			continue
		}
		if _, exists := meta.properties[name]; !exists {
			meta.propertyOrder = append(meta.propertyOrder, name)
		}
		meta.properties[name] = &ActionFormProperty{name: name, field: field}
		if hasValidatorAnnotation(field) {
			meta.validatorAnnotated = true
		}
	}
	if !execute.option.SuppressValidatorCallCheck {
		if err := meta.checkNestedBeanValidatorCalled(); err != nil {
			return nil, err
		}
	}
	return meta, nil
}

func (m *ActionFormMeta) FormKey() string { return m.formKey }
func (m *ActionFormMeta) FormType() reflect.Type { return m.formType }
func (m *ActionFormMeta) IsValidatorAnnotated() bool { return m.validatorAnnotated }

// ListFormParameter returns the declared slice type when the execute takes a JSON array body.
func (m *ActionFormMeta) ListFormParameter() Optional[reflect.Type] {
	if m.listFormParameter == nil {
		return OptionalEmpty[reflect.Type]()
	}
	return OptionalOf(m.listFormParameter)
}

// Properties returns the properties in declaration order.
func (m *ActionFormMeta) Properties() []*ActionFormProperty {
	result := make([]*ActionFormProperty, 0, len(m.propertyOrder))
	for _, name := range m.propertyOrder {
		result = append(result, m.properties[name])
	}
	return result
}

func (m *ActionFormMeta) Property(name string) (*ActionFormProperty, bool) {
	p, ok := m.properties[name]
	return p, ok
}

// CreateActionForm returns a form that is instantiated on first use.
func (m *ActionFormMeta) CreateActionForm() *VirtualForm {
	return &VirtualForm{meta: m, supplier: m.newFormInstance}
}

func (m *ActionFormMeta) newFormInstance() (form any, err error) {
	if m.formType.Kind() == reflect.Slice {
		return nil, &ExecuteUsageError{Kind: ErrFormTypeIsList, Diagnostic: NewDiagnostic("A list form must be unwrapped to its element type before instantiation.").
			Item("Form Type", m.formType)}
	}
	defer func() {
		if r := recover(); r != nil {
			err = m.createFailure(fmt.Errorf("panic: %v", r))
		}
	}()
	created := reflect.New(m.formType).Interface()
	if initializer, ok := created.(FormInitializer); ok {
		if err := initializer.InitForm(); err != nil {
			return nil, m.createFailure(err)
		}
	}
	return created, nil
}

func (m *ActionFormMeta) createFailure(cause error) *ActionFormCreateFailureError {
	return &ActionFormCreateFailureError{
		FormType: m.formType,
		Cause:    cause,
		Diagnostic: NewDiagnostic("Failed to create the action form (or body) for the execute method.").
			Item("Advice", "The form must be a plain struct whose InitForm (if any) succeeds.").
			Item("Execute Method", m.execute).
			Item("Form Type", m.formType).
			Item("Cause", cause),
	}
}

func (m *ActionFormMeta) checkNestedBeanValidatorCalled() error {
	for _, name := range m.propertyOrder {
		field := m.properties[name].field
		if hasCascadeMarker(field) {
			continue
		}
		t := derefType(field.Type)
		if !isValidableCheckTarget(t) {
			continue
		}
		if t.Kind() == reflect.Slice {
			elem := derefType(t.Elem())
			if isValidableCheckTarget(elem) && elem.Kind() == reflect.Struct {
				if err := m.detectLonelyAnnotatedField(field, elem); err != nil {
					return err
				}
			}
			continue
		}
		if err := m.detectLonelyAnnotatedField(field, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *ActionFormMeta) detectLonelyAnnotatedField(outer reflect.StructField, nestedType reflect.Type) error {
	for _, nested := range readableFields(nestedType) {
		if !hasValidatorAnnotation(nested) {
			continue
		}
		return newConfigurationError(ErrLonelyValidatorAnnotation, NewDiagnostic("The nested bean has validator annotations but its field is not marked for nested validation.").
			Item("Advice", "Mark the field holding the nested bean with valid:\"\" (or dive for slices).",
				"  (x) Sea SeaPart `json:\"sea\"`",
				"  (o) Sea SeaPart `json:\"sea\" valid:\"\"`",
				"  (o) Seas []SeaPart `json:\"seas\" validate:\"dive\"`").
			Item("Execute Method", m.execute).
			Item("Form Type", m.formType).
			Item("Lonely Field", fmt.Sprintf("%s %v", outer.Name, outer.Type)).
			Item("Annotated Field", fmt.Sprintf("%s.%s `%s`", nestedType.Name(), nested.Name, nested.Tag)))
	}
	return nil
}

// readableFields lists the exported fields of t, promoted ones included.
func readableFields(t reflect.Type) []reflect.StructField {
	if t.Kind() != reflect.Struct {
		return nil
	}
	var fields []reflect.StructField
	for _, field := range reflect.VisibleFields(t) {
		if field.Anonymous || !field.IsExported() {
			continue
		}
		fields = append(fields, field)
	}
	return fields
}

func hasValidatorAnnotation(field reflect.StructField) bool {
	tag := strings.TrimSpace(field.Tag.Get(validateTag))
	return tag != "" && tag != "-"
}

func hasCascadeMarker(field reflect.StructField) bool {
	if _, ok := field.Tag.Lookup(validTag); ok {
		return true
	}
	for _, rule := range strings.Split(field.Tag.Get(validateTag), ",") {
		if strings.TrimSpace(rule) == "dive" {
			return true
		}
	}
	return false
}

// isValidableCheckTarget reports whether t may hold a nested bean: structs
// other than well-known values, and slices.
func isValidableCheckTarget(t reflect.Type) bool {
	if t == timeType || t == uuidType || isClassificationType(t) {
		return false
	}
	if _, ok := optionalElemOf(t); ok {
		return false
	}
	switch t.Kind() {
	case reflect.Struct, reflect.Slice:
		return true
	default:
		return false
	}
}

func derefType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// VirtualForm defers form instantiation until the form is first needed.
type VirtualForm struct {
	meta     *ActionFormMeta
	supplier func() (any, error)
	realForm any
	realized bool
}

// Realize instantiates the form once and returns it.
func (f *VirtualForm) Realize() (any, error) {
	if f.realized {
		return f.realForm, nil
	}
	created, err := f.supplier()
	if err != nil {
		return nil, err
	}
	f.realForm = created
	f.realized = true
	return created, nil
}

func (f *VirtualForm) IsRealized() bool { return f.realized }
func (f *VirtualForm) FormMeta() *ActionFormMeta { return f.meta }
