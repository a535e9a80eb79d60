package ruts

import "reflect"

// Optional holds a value that may be absent. It is used for optional URL
// parameters and for every "may not exist" value the framework hands out.
type Optional[T any] struct {
	value   T
	present bool
}

// OptionalOf wraps a present value.
func OptionalOf[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// OptionalEmpty returns an absent value.
func OptionalEmpty[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// IsPresent reports whether a value exists.
func (o Optional[T]) IsPresent() bool {
	return o.present
}

// OrElse returns the value, or other when absent.
func (o Optional[T]) OrElse(other T) T {
	if o.present {
		return o.value
	}
	return other
}

func (o Optional[T]) optionalElem() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (o *Optional[T]) optionalSet(v reflect.Value) {
	o.value = v.Interface().(T)
	o.present = true
}

type optionalValue interface {
	optionalElem() reflect.Type
}

type optionalSetter interface {
	optionalSet(v reflect.Value)
}

var optionalValueType = reflect.TypeOf((*optionalValue)(nil)).Elem()

// optionalElemOf returns the wrapped type when t is an Optional.
func optionalElemOf(t reflect.Type) (reflect.Type, bool) {
	if t.Kind() != reflect.Struct || !t.Implements(optionalValueType) {
		return nil, false
	}
	return reflect.Zero(t).Interface().(optionalValue).optionalElem(), true
}

// newOptionalValue builds an Optional of type t, present when v is valid.
func newOptionalValue(t reflect.Type, v reflect.Value) reflect.Value {
	ptr := reflect.New(t)
	if v.IsValid() {
		ptr.Interface().(optionalSetter).optionalSet(v)
	}
	return ptr.Elem()
}
