// Package models holds the metadata the parser extracts for the generator.
package models

import "github.com/toyz/ruts/internal/errors"

// PackageMetadata represents all annotated actions found in a package
type PackageMetadata struct {
	PackageName string // name of the Go package
	PackagePath string // file system path to the package
	ImportPath  string // import path, empty when unresolved
	Actions     []ActionMetadata
	Warnings    []string
}

// HasActions reports whether any annotated action was found.
func (p *PackageMetadata) HasActions() bool {
	return len(p.Actions) > 0
}

// ConstructorCount counts the actions with a NewXxxAction constructor.
func (p *PackageMetadata) ConstructorCount() int {
	n := 0
	for _, a := range p.Actions {
		if a.Constructor != "" {
			n++
		}
	}
	return n
}

// ExecuteCount counts the annotated execute methods of the package.
func (p *PackageMetadata) ExecuteCount() int {
	n := 0
	for _, a := range p.Actions {
		n += len(a.Executes)
	}
	return n
}

// ActionMetadata represents an action struct and its execute methods
type ActionMetadata struct {
	TypeName    string // e.g. ProductListAction
	Constructor string // NewProductListAction when declared
	FileName    string
	Line        int
	Executes    []ExecuteMetadata
}

// ExecuteMetadata represents one //ruts::execute method
type ExecuteMetadata struct {
	MethodName                 string
	URLPattern                 string
	SuppressTransaction        bool
	SuppressValidatorCallCheck bool
	SQLExecutionCountLimit     int
	Location                   errors.SourceLocation
}

// HasOptions reports whether the execute carries any option.
func (e ExecuteMetadata) HasOptions() bool {
	return e.URLPattern != "" || e.SuppressTransaction || e.SuppressValidatorCallCheck || e.SQLExecutionCountLimit > 0
}
