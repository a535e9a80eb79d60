package cli

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/toyz/ruts/internal/errors"
	"github.com/toyz/ruts/internal/generator"
	"github.com/toyz/ruts/internal/parser"
	"github.com/toyz/ruts/internal/utils"
)

// GenerationSummary contains information about the generation process
type GenerationSummary struct {
	PackagesProcessed int
	ActionsFound      int
	ExecutesFound     int
	ModulesGenerated  int
	GeneratedFiles    []string
	UnchangedFiles    []string
	RemovedFiles      []string
	StaleFiles        []string
	Warnings          []string
}

// Generator coordinates the CLI generation process
type Generator struct {
	scanner       *DirectoryScanner
	codeGenerator *generator.Generator
	diagnostics   *utils.DiagnosticSystem
	summary       GenerationSummary
}

// NewGenerator creates a new CLI generator
func NewGenerator(diagnostics *utils.DiagnosticSystem) *Generator {
	return &Generator{
		scanner:       NewDirectoryScanner(),
		codeGenerator: generator.NewGenerator(),
		diagnostics:   diagnostics,
	}
}

// Summary returns the summary of the last run
func (g *Generator) Summary() GenerationSummary {
	return g.summary
}

// Run executes the complete generation process
func (g *Generator) Run(config Config) error {
	startTime := time.Now()
	g.summary = GenerationSummary{}
	g.diagnostics.Verbose("Starting code generation at %s", startTime.Format("15:04:05"))

	resolver := NewModuleResolver()
	if config.WorkDir != "" {
		resolver = NewModuleResolverAt(config.WorkDir)
	}
	mod, err := resolver.ResolveModule(config.ModuleName)
	if err != nil {
		return err
	}
	g.diagnostics.Verbose("Module: %s (%s)", mod.Path, mod.Dir)

	packageDirs, err := g.scanner.ScanDirectories(config.Directories)
	if err != nil {
		return err
	}
	if len(packageDirs) == 0 {
		return errors.New(errors.ValidationErrorCode, "no Go packages found in specified directories").
			WithContext("directories", config.Directories).
			WithSuggestion("try scanning parent directories or use the './...' pattern")
	}
	g.diagnostics.Info("Found %d packages to process", len(packageDirs))

	var opts []parser.Option
	if config.WebPackage != "" {
		opts = append(opts, parser.WithWebPackage(config.WebPackage))
	}
	p := parser.NewParser(opts...)

	errs := errors.NewMultipleErrors()
	for _, dir := range packageDirs {
		if err := g.processPackage(p, resolver, mod, dir, config.Check); err != nil {
			collect(errs, err)
		}
	}
	if !errs.IsEmpty() {
		return errs.ErrOrNil()
	}

	if config.Check && len(g.summary.StaleFiles) > 0 {
		stale := errors.Newf(errors.GenerationErrorCode, "%d generated files are out of date", len(g.summary.StaleFiles)).
			WithSuggestion("run ruts without --check to regenerate them")
		for i, file := range g.summary.StaleFiles {
			stale.WithContext("file_"+strconv.Itoa(i+1), file)
		}
		return stale
	}
	g.diagnostics.Verbose("Finished in %s", time.Since(startTime).Round(time.Millisecond))
	return nil
}

func (g *Generator) processPackage(p *parser.Parser, resolver *ModuleResolver, mod utils.GoModule, dir string, check bool) error {
	g.summary.PackagesProcessed++
	importPath, err := resolver.BuildPackagePath(mod, dir)
	if err != nil {
		g.warn("%s: %v", dir, err)
		importPath = ""
	}

	metadata, err := p.ParseDirectory(dir, importPath)
	if err != nil {
		return err
	}
	for _, warning := range metadata.Warnings {
		g.warn("%s", warning)
	}

	target := filepath.Join(dir, utils.GeneratedFileName)
	existing, readErr := os.ReadFile(target)
	exists := readErr == nil

	if !metadata.HasActions() {
		if !exists {
			return nil
		}
		if check {
			g.summary.StaleFiles = append(g.summary.StaleFiles, target)
			return nil
		}
		if err := os.Remove(target); err != nil {
			return errors.Wrap(errors.FileSystemErrorCode, "remove obsolete generated file", err).
				WithLocation(errors.SourceLocation{File: target})
		}
		g.summary.RemovedFiles = append(g.summary.RemovedFiles, target)
		g.diagnostics.Item("Removed %s", utils.RelativePath(target))
		return nil
	}

	g.summary.ActionsFound += len(metadata.Actions)
	g.summary.ExecutesFound += metadata.ExecuteCount()
	if metadata.ConstructorCount() > 0 {
		g.summary.ModulesGenerated++
	}
	g.diagnostics.Debug("%s: %d actions, %d executes", importPath, len(metadata.Actions), metadata.ExecuteCount())

	file, err := g.codeGenerator.Generate(metadata)
	if err != nil {
		return err
	}
	if exists && bytes.Equal(existing, file.Content) {
		g.summary.UnchangedFiles = append(g.summary.UnchangedFiles, file.FilePath)
		return nil
	}
	if check {
		g.summary.StaleFiles = append(g.summary.StaleFiles, file.FilePath)
		return nil
	}
	if err := utils.WriteFile(file.FilePath, file.Content); err != nil {
		return err
	}
	g.summary.GeneratedFiles = append(g.summary.GeneratedFiles, file.FilePath)
	g.diagnostics.Item("Writing %s", utils.RelativePath(file.FilePath))
	return nil
}

func (g *Generator) warn(format string, args ...any) {
	message := fmt.Sprintf(format, args...)
	g.diagnostics.Warn("%s", message)
	g.summary.Warnings = append(g.summary.Warnings, message)
}

func collect(errs *errors.MultipleErrors, err error) {
	var multiple *errors.MultipleErrors
	if stderrors.As(err, &multiple) {
		for _, e := range multiple.Errors {
			errs.Add(e)
		}
		return
	}
	if found, ok := errors.Find(err); ok {
		errs.Add(found)
		return
	}
	errs.Add(errors.Wrap(errors.UnknownErrorCode, "generate", err))
}
