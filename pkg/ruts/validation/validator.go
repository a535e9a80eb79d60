// Package validation runs struct-tag constraints on action forms and reports
// them as property violations.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Violation is one failed constraint on a form property.
type Violation struct {
	// Property is the dotted property path, named by json or form tags.
	Property string
	Tag      string
	Param    string
	Value    any
}

// MessageKey is the resource key used to render the violation.
func (v Violation) MessageKey() string {
	return "constraints." + v.Tag + ".message"
}

// MessageValues returns the constraint parameter when present.
func (v Violation) MessageValues() []any {
	if v.Param == "" {
		return nil
	}
	return []any{v.Param}
}

// ActionValidator wraps a shared validator instance.
type ActionValidator struct {
	validate *validator.Validate
}

// New creates an ActionValidator that names properties after their json or form tags.
func New() *ActionValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(PropertyName)
	return &ActionValidator{validate: v}
}

// RegisterValidation adds a custom constraint tag.
func (av *ActionValidator) RegisterValidation(tag string, fn validator.Func) error {
	return av.validate.RegisterValidation(tag, fn)
}

// Validate checks form and returns its violations in field order.
// The returned error is reserved for inputs that cannot be validated at all.
func (av *ActionValidator) Validate(form any) ([]Violation, error) {
	if form == nil {
		return nil, fmt.Errorf("cannot validate a nil form")
	}
	rv := reflect.ValueOf(form)
	if rv.Kind() == reflect.Slice {
		var all []Violation
		for i := 0; i < rv.Len(); i++ {
			violations, err := av.Validate(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			for _, violation := range violations {
				violation.Property = fmt.Sprintf("[%d].%s", i, violation.Property)
				all = append(all, violation)
			}
		}
		return all, nil
	}

	err := av.validate.Struct(form)
	if err == nil {
		return nil, nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil, fmt.Errorf("cannot validate %T: %w", form, err)
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return nil, err
	}
	violations := make([]Violation, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		violations = append(violations, Violation{
			Property: trimRoot(fe.Namespace()),
			Tag:      fe.Tag(),
			Param:    fe.Param(),
			Value:    fe.Value(),
		})
	}
	return violations, nil
}

// PropertyName resolves the external name of a struct field: the json tag,
// then the form tag, then the Go field name.
func PropertyName(field reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		if tag, ok := field.Tag.Lookup(key); ok {
			name := strings.Split(tag, ",")[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
	}
	return field.Name
}

func trimRoot(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
