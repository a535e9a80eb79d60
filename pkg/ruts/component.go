package ruts

import (
	"fmt"
	"reflect"
)

// ComponentDef is a component offered to the customizer.
type ComponentDef struct {
	// Name overrides the derived action name when set.
	Name string
	// Type is the pointer type of the component.
	Type reflect.Type
	// Instantiate returns the component serving one request.
	Instantiate func() (any, error)
}

// ComponentOf defines a singleton component.
func ComponentOf(instance any) *ComponentDef {
	return &ComponentDef{
		Type: reflect.TypeOf(instance),
		Instantiate: func() (any, error) {
			return instance, nil
		},
	}
}

// PrototypeOf defines a component created fresh for every request.
func PrototypeOf[T any](factory func() *T) *ComponentDef {
	return &ComponentDef{
		Type: reflect.TypeOf((*T)(nil)),
		Instantiate: func() (any, error) {
			created := factory()
			if created == nil {
				return nil, fmt.Errorf("factory of %T returned nil", created)
			}
			return created, nil
		},
	}
}

// Named sets the component name.
func (d *ComponentDef) Named(name string) *ComponentDef {
	d.Name = name
	return d
}

func (d *ComponentDef) validate() error {
	if d == nil {
		return fmt.Errorf("the component definition must not be nil")
	}
	if d.Type == nil || d.Type.Kind() != reflect.Pointer || d.Type.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("the component must be a pointer to a struct: %v", d.Type)
	}
	if d.Instantiate == nil {
		return fmt.Errorf("the component %v has no instantiation function", d.Type)
	}
	return nil
}
