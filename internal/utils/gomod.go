package utils

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"

	"github.com/toyz/ruts/internal/errors"
)

// GoModule is the module a directory belongs to.
type GoModule struct {
	Path string // module path from the module directive
	Dir  string // absolute directory holding go.mod
}

// ImportPath builds the import path of a package directory inside the module.
func (m GoModule) ImportPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrapf(errors.FileSystemErrorCode, err, "resolve %s", dir)
	}
	rel, err := filepath.Rel(m.Dir, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", errors.Newf(errors.ModuleErrorCode, "%s is outside module %s", dir, m.Path)
	}
	if rel == "." {
		return m.Path, nil
	}
	return path.Join(m.Path, filepath.ToSlash(rel)), nil
}

// ParseModuleName extracts the module name from a go.mod file
func ParseModuleName(goModPath string) (string, error) {
	cleanPath := filepath.Clean(goModPath)
	if filepath.Base(cleanPath) != "go.mod" {
		return "", errors.Newf(errors.ModuleErrorCode, "file is not a go.mod file: %s", goModPath)
	}
	content, err := os.ReadFile(cleanPath)
	if err != nil {
		return "", errors.Wrap(errors.FileSystemErrorCode, "read go.mod", err).
			WithLocation(errors.SourceLocation{File: cleanPath})
	}
	modFile, err := modfile.Parse(cleanPath, content, nil)
	if err != nil {
		return "", errors.Wrap(errors.ModuleErrorCode, "parse go.mod", err).
			WithLocation(errors.SourceLocation{File: cleanPath})
	}
	if modFile.Module == nil {
		return "", errors.New(errors.ModuleErrorCode, "no module declaration found in go.mod").
			WithLocation(errors.SourceLocation{File: cleanPath})
	}
	return modFile.Module.Mod.Path, nil
}

// FindGoModFile searches for go.mod starting from startDir and walking up
func FindGoModFile(startDir string) (string, error) {
	currentDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", errors.Wrapf(errors.FileSystemErrorCode, err, "resolve %s", startDir)
	}
	for {
		goModPath := filepath.Join(currentDir, "go.mod")
		if info, err := os.Stat(goModPath); err == nil && !info.IsDir() {
			return goModPath, nil
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}
	return "", errors.Newf(errors.ModuleErrorCode, "go.mod file not found from %s", startDir).
		WithSuggestion("run inside a Go module or pass --module")
}

// FindModule resolves the module containing dir.
func FindModule(dir string) (GoModule, error) {
	goModPath, err := FindGoModFile(dir)
	if err != nil {
		return GoModule{}, err
	}
	name, err := ParseModuleName(goModPath)
	if err != nil {
		return GoModule{}, err
	}
	return GoModule{Path: name, Dir: filepath.Dir(goModPath)}, nil
}
