// Package parser extracts annotated actions from Go source with go/ast.
package parser

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"
	"unicode"

	"github.com/toyz/ruts/internal/annotations"
	"github.com/toyz/ruts/internal/errors"
	"github.com/toyz/ruts/internal/models"
	"github.com/toyz/ruts/internal/utils"
)

const (
	defaultWebPackage   = "web"
	defaultActionSuffix = "Action"
)

// Parser finds //ruts::execute methods of action structs
type Parser struct {
	files        *utils.FileProcessor
	webPackage   string
	actionSuffix string
}

// Option configures a Parser.
type Option func(*Parser)

// WithWebPackage changes the package name that roots action URLs.
func WithWebPackage(name string) Option {
	return func(p *Parser) { p.webPackage = name }
}

// NewParser creates a new annotation parser
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		files:        utils.NewFileProcessor(),
		webPackage:   defaultWebPackage,
		actionSuffix: defaultActionSuffix,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseDirectory parses the package in dir. importPath is used for the
// package naming checks and may be empty.
func (p *Parser) ParseDirectory(dir, importPath string) (*models.PackageMetadata, error) {
	files, packageName, err := p.files.ParseDirectoryFiles(dir)
	if err != nil {
		return nil, err
	}
	metadata := &models.PackageMetadata{
		PackageName: packageName,
		PackagePath: dir,
		ImportPath:  importPath,
	}
	if err := p.extract(metadata, files); err != nil {
		return nil, err
	}
	return metadata, nil
}

// ParseSource parses source code from a string for testing purposes
func (p *Parser) ParseSource(filename, source, importPath string) (*models.PackageMetadata, error) {
	file, err := p.files.ParseSource(filename, source)
	if err != nil {
		return nil, err
	}
	metadata := &models.PackageMetadata{
		PackageName: file.Name.Name,
		PackagePath: "./",
		ImportPath:  importPath,
	}
	if err := p.extract(metadata, []utils.ParsedFile{{Path: filename, File: file}}); err != nil {
		return nil, err
	}
	return metadata, nil
}

func (p *Parser) extract(metadata *models.PackageMetadata, files []utils.ParsedFile) error {
	errs := errors.NewMultipleErrors()
	actions := make(map[string]*models.ActionMetadata)
	var order []string

	// first pass: action structs and their constructors
	for _, f := range files {
		for _, decl := range f.File.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, spec := range gen.Specs {
				ts := spec.(*ast.TypeSpec)
				if _, isStruct := ts.Type.(*ast.StructType); !isStruct || !p.isActionName(ts.Name.Name) {
					continue
				}
				actions[ts.Name.Name] = &models.ActionMetadata{
					TypeName: ts.Name.Name,
					FileName: f.Path,
					Line:     p.position(ts.Pos()).Line,
				}
				order = append(order, ts.Name.Name)
			}
		}
	}
	for _, f := range files {
		for _, decl := range f.File.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv != nil {
				continue
			}
			name := strings.TrimPrefix(fn.Name.Name, "New")
			if action, found := actions[name]; found && name != fn.Name.Name && returnsAction(fn, name) {
				action.Constructor = fn.Name.Name
			}
		}
	}

	// second pass: annotated methods
	for _, f := range files {
		for _, decl := range f.File.Decls {
			p.checkMisplaced(decl, errs)
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Recv == nil {
				continue
			}
			execute, err := p.parseExecute(fn, actions)
			if err != nil {
				addError(errs, err)
				continue
			}
			if execute == nil {
				continue
			}
			action := actions[receiverName(fn)]
			action.Executes = append(action.Executes, *execute)
		}
	}

	for _, name := range order {
		action := actions[name]
		if len(action.Executes) == 0 {
			continue
		}
		metadata.Actions = append(metadata.Actions, *action)
	}
	if metadata.HasActions() && metadata.ImportPath != "" {
		if err := p.checkPackage(metadata); err != nil {
			addError(errs, err)
		}
	}
	return errs.ErrOrNil()
}

func (p *Parser) parseExecute(fn *ast.FuncDecl, actions map[string]*models.ActionMetadata) (*models.ExecuteMetadata, error) {
	comment, err := p.annotationOf(fn.Doc)
	if err != nil || comment == nil {
		return nil, err
	}
	loc := p.location(comment.Pos())
	method := fn.Name.Name

	recvName := receiverName(fn)
	if _, ok := actions[recvName]; !ok {
		return nil, errors.Newf(errors.ValidationErrorCode, "%s is not a method of an action struct", method).
			WithLocation(loc).
			WithContext("receiver", recvName).
			WithSuggestion(fmt.Sprintf("declare execute methods on a struct named like Xxx%s", p.actionSuffix))
	}
	if !isPointerReceiver(fn) {
		return nil, errors.Newf(errors.ValidationErrorCode, "execute method %s.%s needs a pointer receiver", recvName, method).
			WithLocation(loc).
			WithSuggestion(fmt.Sprintf("func (a *%s) %s(...)", recvName, method))
	}
	if !ast.IsExported(method) {
		return nil, errors.Newf(errors.ValidationErrorCode, "execute method %s.%s must be exported", recvName, method).
			WithLocation(loc)
	}
	if !returnsResponseAndError(fn) {
		return nil, errors.Newf(errors.ValidationErrorCode, "execute method %s.%s must return (response, error)", recvName, method).
			WithLocation(loc).
			WithSuggestion(fmt.Sprintf("func (a *%s) %s(...) (*ruts.JSONResponse, error)", recvName, method))
	}

	parsed, err := annotations.ParseExecute(comment.Text, loc)
	if err != nil {
		return nil, err
	}
	return &models.ExecuteMetadata{
		MethodName:                 method,
		URLPattern:                 parsed.URLPattern,
		SuppressTransaction:        parsed.SuppressTransaction,
		SuppressValidatorCallCheck: parsed.SuppressValidatorCallCheck,
		SQLExecutionCountLimit:     parsed.SQLExecutionCountLimit,
		Location:                   loc,
	}, nil
}

// annotationOf returns the single annotation line of a doc comment.
func (p *Parser) annotationOf(doc *ast.CommentGroup) (*ast.Comment, error) {
	if doc == nil {
		return nil, nil
	}
	var found *ast.Comment
	for _, c := range doc.List {
		if !annotations.IsAnnotation(c.Text) {
			continue
		}
		if found != nil {
			return nil, errors.New(errors.ValidationErrorCode, "a method can carry only one //ruts::execute").
				WithLocation(p.location(c.Pos()))
		}
		found = c
	}
	return found, nil
}

// checkMisplaced reports annotations on functions and type declarations.
func (p *Parser) checkMisplaced(decl ast.Decl, errs *errors.MultipleErrors) {
	var doc *ast.CommentGroup
	switch d := decl.(type) {
	case *ast.FuncDecl:
		if d.Recv != nil {
			return
		}
		doc = d.Doc
	case *ast.GenDecl:
		doc = d.Doc
	}
	if doc == nil {
		return
	}
	for _, c := range doc.List {
		if annotations.IsAnnotation(c.Text) {
			errs.Add(errors.New(errors.ValidationErrorCode, "//ruts::execute must annotate a method").
				WithLocation(p.location(c.Pos())))
		}
	}
}

func (p *Parser) checkPackage(metadata *models.PackageMetadata) error {
	segments := strings.Split(metadata.ImportPath, "/")
	below := -1
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == p.webPackage {
			below = i + 1
			break
		}
	}
	if below < 0 {
		metadata.Warnings = append(metadata.Warnings,
			fmt.Sprintf("package %s is not under a %q package; its actions map to URLs from their type names only", metadata.ImportPath, p.webPackage))
		return nil
	}
	for _, segment := range segments[below:] {
		if strings.IndexFunc(segment, unicode.IsUpper) >= 0 {
			first := metadata.Actions[0]
			return errors.Newf(errors.ValidationErrorCode, "action package %s has upper case", metadata.ImportPath).
				WithLocation(errors.SourceLocation{File: first.FileName, Line: first.Line}).
				WithContext("segment", segment).
				WithSuggestion("action packages become URL paths and must be lower case, e.g. web/sea/land")
		}
	}
	return nil
}

func (p *Parser) isActionName(name string) bool {
	return strings.HasSuffix(name, p.actionSuffix) && name != p.actionSuffix && ast.IsExported(name)
}

func (p *Parser) position(pos token.Pos) token.Position {
	return p.files.FileSet().Position(pos)
}

func (p *Parser) location(pos token.Pos) errors.SourceLocation {
	position := p.position(pos)
	return errors.SourceLocation{File: position.Filename, Line: position.Line, Column: position.Column}
}

func addError(errs *errors.MultipleErrors, err error) {
	if found, ok := errors.Find(err); ok {
		errs.Add(found)
		return
	}
	errs.Add(errors.Wrap(errors.UnknownErrorCode, "parse", err))
}

func receiverName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	expr := fn.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return ""
}

func isPointerReceiver(fn *ast.FuncDecl) bool {
	_, ok := fn.Recv.List[0].Type.(*ast.StarExpr)
	return ok
}

func returnsResponseAndError(fn *ast.FuncDecl) bool {
	results := fn.Type.Results
	if results == nil || results.NumFields() != 2 {
		return false
	}
	last := results.List[len(results.List)-1].Type
	ident, ok := last.(*ast.Ident)
	return ok && ident.Name == "error"
}

func returnsAction(fn *ast.FuncDecl, typeName string) bool {
	results := fn.Type.Results
	if results == nil || len(results.List) == 0 {
		return false
	}
	star, ok := results.List[0].Type.(*ast.StarExpr)
	if !ok {
		return false
	}
	ident, ok := star.X.(*ast.Ident)
	return ok && ident.Name == typeName
}
