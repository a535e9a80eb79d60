package cli

import (
	"os"
	"path"
	"path/filepath"

	"github.com/toyz/ruts/internal/errors"
	"github.com/toyz/ruts/internal/utils"
)

// ModuleResolver handles resolving Go module information
type ModuleResolver struct {
	workDir string
}

// NewModuleResolver creates a new module resolver rooted at the working directory
func NewModuleResolver() *ModuleResolver {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &ModuleResolver{workDir: wd}
}

// NewModuleResolverAt creates a module resolver rooted at dir
func NewModuleResolverAt(dir string) *ModuleResolver {
	return &ModuleResolver{workDir: dir}
}

// ResolveModule resolves the module used for import paths. A custom module
// name is rooted at the working directory.
func (r *ModuleResolver) ResolveModule(customModule string) (utils.GoModule, error) {
	if customModule != "" {
		abs, err := filepath.Abs(r.workDir)
		if err != nil {
			return utils.GoModule{}, errors.Wrap(errors.FileSystemErrorCode, "resolve working directory", err)
		}
		return utils.GoModule{Path: customModule, Dir: abs}, nil
	}
	mod, err := utils.FindModule(r.workDir)
	if err != nil {
		return utils.GoModule{}, errors.Wrap(errors.ModuleErrorCode, "failed to determine module name", err).
			WithSuggestion("consider using the --module flag")
	}
	return mod, nil
}

// BuildPackagePath builds the full import path for a package directory
func (r *ModuleResolver) BuildPackagePath(mod utils.GoModule, packageDir string) (string, error) {
	if !filepath.IsAbs(packageDir) {
		packageDir = filepath.Join(r.workDir, packageDir)
	}
	importPath, err := mod.ImportPath(packageDir)
	if err != nil {
		return "", err
	}
	return path.Clean(importPath), nil
}
