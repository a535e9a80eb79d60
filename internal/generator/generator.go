// Package generator renders autogen_actions.go for parsed packages.
package generator

import (
	"bytes"
	"path/filepath"

	"golang.org/x/tools/imports"

	"github.com/toyz/ruts/internal/errors"
	"github.com/toyz/ruts/internal/models"
	"github.com/toyz/ruts/internal/utils"
)

const (
	RuntimeImport = "github.com/toyz/ruts/pkg/ruts"
	FxImport      = "github.com/toyz/ruts/pkg/ruts/rutsfx"
)

// GeneratedFile is the rendered output for one package
type GeneratedFile struct {
	PackageName string
	FilePath    string
	Content     []byte
}

// Generator renders action registrations
type Generator struct{}

// NewGenerator creates a new code generator instance
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the registration file of a package with annotated actions.
func (g *Generator) Generate(metadata *models.PackageMetadata) (*GeneratedFile, error) {
	if metadata == nil || !metadata.HasActions() {
		return nil, errors.New(errors.GenerationErrorCode, "no annotated actions to generate")
	}
	filePath := filepath.Join(metadata.PackagePath, utils.GeneratedFileName)

	data := templateData{
		PackageName:     metadata.PackageName,
		RuntimeImport:   RuntimeImport,
		FxImport:        FxImport,
		HasConstructors: metadata.ConstructorCount() > 0,
		Actions:         metadata.Actions,
	}
	var buf bytes.Buffer
	if err := actionsTmpl.Execute(&buf, data); err != nil {
		return nil, errors.Wrap(errors.GenerationErrorCode, "execute template", err).
			WithLocation(errors.SourceLocation{File: filePath})
	}

	formatted, err := imports.Process(filePath, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, errors.Wrap(errors.GenerationErrorCode, "format generated code", err).
			WithLocation(errors.SourceLocation{File: filePath}).
			WithContext("source", buf.String())
	}

	return &GeneratedFile{
		PackageName: metadata.PackageName,
		FilePath:    filePath,
		Content:     formatted,
	}, nil
}
