package ruts

import (
	"reflect"
	"sync"
)

// ExecuteAnnotation marks one method of an action as routable.
type ExecuteAnnotation struct {
	Method string
	Option ExecuteOption
}

// Execute declares the named method as an execute method.
func Execute(method string, opts ...ExecuteOptionFunc) ExecuteAnnotation {
	a := ExecuteAnnotation{Method: method}
	for _, opt := range opts {
		opt(&a.Option)
	}
	return a
}

// AnnotationRegistry stores execute declarations per action struct type.
type AnnotationRegistry interface {
	Register(actionType reflect.Type, executes ...ExecuteAnnotation)
	// Lookup returns the declarations in registration order.
	Lookup(actionType reflect.Type) []ExecuteAnnotation
	Has(actionType reflect.Type) bool
}

type inMemoryAnnotationRegistry struct {
	mu          sync.RWMutex
	annotations map[reflect.Type][]ExecuteAnnotation
}

// NewInMemoryAnnotationRegistry creates an empty registry.
func NewInMemoryAnnotationRegistry() AnnotationRegistry {
	return &inMemoryAnnotationRegistry{
		annotations: make(map[reflect.Type][]ExecuteAnnotation),
	}
}

func (r *inMemoryAnnotationRegistry) Register(actionType reflect.Type, executes ...ExecuteAnnotation) {
	actionType = structTypeOf(actionType)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.annotations[actionType] = append(r.annotations[actionType], executes...)
}

func (r *inMemoryAnnotationRegistry) Lookup(actionType reflect.Type) []ExecuteAnnotation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	found := r.annotations[structTypeOf(actionType)]
	result := make([]ExecuteAnnotation, len(found))
	copy(result, found)
	return result
}

func (r *inMemoryAnnotationRegistry) Has(actionType reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.annotations[structTypeOf(actionType)]) > 0
}

// DefaultAnnotationRegistry receives the declarations made by Annotate,
// normally from generated init functions.
var DefaultAnnotationRegistry = NewInMemoryAnnotationRegistry()

// Annotate declares the execute methods of action type T.
func Annotate[T any](executes ...ExecuteAnnotation) {
	DefaultAnnotationRegistry.Register(reflect.TypeOf((*T)(nil)).Elem(), executes...)
}

func structTypeOf(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
