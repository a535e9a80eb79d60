package ruts

import (
	"reflect"
	"sync"
)

// Classification is an enumerated code value, e.g. a member status.
type Classification interface {
	Code() string
	Alias() string
}

var classificationType = reflect.TypeOf((*Classification)(nil)).Elem()

// ClassificationProvider resolves classification values from their codes.
type ClassificationProvider interface {
	CodeOf(t reflect.Type, code string) (Classification, bool)
	Provides(t reflect.Type) bool
}

type classificationRegistry struct {
	mu      sync.RWMutex
	finders map[reflect.Type]func(code string) (Classification, bool)
}

// DefaultClassificationProvider holds the classifications registered with RegisterClassification.
var DefaultClassificationProvider = &classificationRegistry{
	finders: make(map[reflect.Type]func(code string) (Classification, bool)),
}

// RegisterClassification makes classification type T usable as a URL parameter.
func RegisterClassification[T Classification](codeOf func(code string) (T, bool)) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	DefaultClassificationProvider.mu.Lock()
	defer DefaultClassificationProvider.mu.Unlock()
	DefaultClassificationProvider.finders[t] = func(code string) (Classification, bool) {
		found, ok := codeOf(code)
		if !ok {
			return nil, false
		}
		return found, true
	}
}

func (r *classificationRegistry) CodeOf(t reflect.Type, code string) (Classification, bool) {
	r.mu.RLock()
	finder, ok := r.finders[t]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return finder(code)
}

func (r *classificationRegistry) Provides(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.finders[t]
	return ok
}

func isClassificationType(t reflect.Type) bool {
	return t.Implements(classificationType) || reflect.PointerTo(t).Implements(classificationType)
}
