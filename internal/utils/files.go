package utils

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/toyz/ruts/internal/errors"
)

// GeneratedFileName is the file the generator writes into each package.
const GeneratedFileName = "autogen_actions.go"

// FileFilter defines a function that determines whether a file should be processed
type FileFilter func(path string, info os.DirEntry) bool

// DirectoryFilter defines a function that determines whether a directory should be processed
type DirectoryFilter func(path string, info os.DirEntry) bool

// DefaultGoFileFilter filters for .go files, excluding tests and autogen files
func DefaultGoFileFilter() FileFilter {
	return func(path string, info os.DirEntry) bool {
		if info.IsDir() {
			return false
		}
		name := info.Name()
		return strings.HasSuffix(name, ".go") &&
			!strings.HasSuffix(name, "_test.go") &&
			!strings.HasPrefix(name, "autogen_")
	}
}

// DefaultDirectoryFilter skips directories that shouldn't contain source code
func DefaultDirectoryFilter() DirectoryFilter {
	skipDirs := map[string]bool{
		"vendor":       true,
		"node_modules": true,
		"testdata":     true,
		"build":        true,
		"dist":         true,
	}
	return func(path string, info os.DirEntry) bool {
		if !info.IsDir() {
			return true
		}
		name := info.Name()
		// hidden and _-prefixed directories are ignored by the go tool too
		if (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) && name != "." && name != ".." {
			return false
		}
		return !skipDirs[name]
	}
}

// FileProcessor provides utilities for common file processing operations
type FileProcessor struct {
	fileSet *token.FileSet
}

// NewFileProcessor creates a new file processor
func NewFileProcessor() *FileProcessor {
	return &FileProcessor{fileSet: token.NewFileSet()}
}

// FileSet returns the file set positions of parsed files belong to.
func (fp *FileProcessor) FileSet() *token.FileSet {
	return fp.fileSet
}

// ScanDirectoriesWithGoFiles returns every directory under rootDirs that
// contains Go files. When recursive is false only the roots are checked.
func (fp *FileProcessor) ScanDirectoriesWithGoFiles(rootDirs []string, recursive bool) ([]string, error) {
	var packageDirs []string
	visited := make(map[string]bool)
	for _, rootDir := range rootDirs {
		dirs, err := fp.scanDirectory(rootDir, recursive, visited)
		if err != nil {
			return nil, err
		}
		packageDirs = append(packageDirs, dirs...)
	}
	return packageDirs, nil
}

func (fp *FileProcessor) scanDirectory(dir string, recursive bool, visited map[string]bool) ([]string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(errors.FileSystemErrorCode, err, "resolve %s", dir)
	}
	if visited[absDir] {
		return nil, nil
	}
	visited[absDir] = true

	var packageDirs []string
	hasGoFiles, err := fp.HasGoFiles(dir)
	if err != nil {
		return nil, errors.Wrapf(errors.FileSystemErrorCode, err, "read %s", dir)
	}
	if hasGoFiles {
		packageDirs = append(packageDirs, dir)
	}
	if !recursive {
		return packageDirs, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(errors.FileSystemErrorCode, err, "read %s", dir)
	}
	directoryFilter := DefaultDirectoryFilter()
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		entryPath := filepath.Join(dir, entry.Name())
		if !directoryFilter(entryPath, entry) {
			continue
		}
		subDirs, err := fp.scanDirectory(entryPath, recursive, visited)
		if err != nil {
			return nil, err
		}
		packageDirs = append(packageDirs, subDirs...)
	}
	return packageDirs, nil
}

// HasGoFiles checks if a directory contains any .go files (excluding test files and autogen files)
func (fp *FileProcessor) HasGoFiles(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	fileFilter := DefaultGoFileFilter()
	for _, entry := range entries {
		if fileFilter(filepath.Join(dir, entry.Name()), entry) {
			return true, nil
		}
	}
	return false, nil
}

// ParsedFile is one parsed source file of a package directory.
type ParsedFile struct {
	Path string
	File *ast.File
}

// ParseDirectoryFiles parses the Go files of a directory in name order and
// returns them with the package name.
func (fp *FileProcessor) ParseDirectoryFiles(dirPath string) ([]ParsedFile, string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, "", errors.Wrapf(errors.FileSystemErrorCode, err, "read %s", dirPath)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		files       []ParsedFile
		packageName string
	)
	fileFilter := DefaultGoFileFilter()
	for _, entry := range entries {
		filePath := filepath.Join(dirPath, entry.Name())
		if !fileFilter(filePath, entry) {
			continue
		}
		file, err := parser.ParseFile(fp.fileSet, filePath, nil, parser.ParseComments)
		if err != nil {
			return nil, "", errors.Wrap(errors.SyntaxErrorCode, "parse Go file", err).
				WithLocation(errors.SourceLocation{File: filePath})
		}
		if packageName == "" {
			packageName = file.Name.Name
		} else if file.Name.Name != packageName {
			return nil, "", errors.Newf(errors.SyntaxErrorCode, "multiple packages found in directory: %s and %s", packageName, file.Name.Name).
				WithLocation(errors.SourceLocation{File: dirPath})
		}
		files = append(files, ParsedFile{Path: filePath, File: file})
	}
	if len(files) == 0 {
		return nil, "", errors.Newf(errors.FileSystemErrorCode, "no Go files found in %s", dirPath)
	}
	return files, packageName, nil
}

// ParseSource parses a single source string, mainly for tests.
func (fp *FileProcessor) ParseSource(filename, source string) (*ast.File, error) {
	file, err := parser.ParseFile(fp.fileSet, filename, source, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrap(errors.SyntaxErrorCode, "parse Go source", err).
			WithLocation(errors.SourceLocation{File: filename})
	}
	return file, nil
}

// CleanDirectories removes generated files from directories. A "/..."
// suffix cleans the directory tree.
func (fp *FileProcessor) CleanDirectories(dirs []string) ([]string, error) {
	var removed []string
	for _, dir := range dirs {
		base, recursive := SplitPattern(dir)
		if !recursive {
			if err := cleanSingleDirectory(base, &removed); err != nil {
				return removed, err
			}
			continue
		}
		directoryFilter := DefaultDirectoryFilter()
		err := filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				// unreadable directories are skipped
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			if path != base && !directoryFilter(path, d) {
				return filepath.SkipDir
			}
			return cleanSingleDirectory(path, &removed)
		})
		if err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func cleanSingleDirectory(dir string, removed *[]string) error {
	generated := filepath.Join(dir, GeneratedFileName)
	if err := os.Remove(generated); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(errors.FileSystemErrorCode, "remove generated file", err).
			WithLocation(errors.SourceLocation{File: generated})
	}
	*removed = append(*removed, generated)
	return nil
}

// SplitPattern splits a Go-style "./..." directory pattern into its base
// directory and whether it is recursive.
func SplitPattern(pattern string) (string, bool) {
	if pattern == "..." {
		return ".", true
	}
	if strings.HasSuffix(pattern, "/...") {
		base := strings.TrimSuffix(pattern, "/...")
		if base == "" {
			base = "."
		}
		return base, true
	}
	return pattern, false
}

// WriteFile writes content, creating or replacing path.
func WriteFile(path string, content []byte) error {
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrap(errors.FileSystemErrorCode, "write generated file", err).
			WithLocation(errors.SourceLocation{File: path})
	}
	return nil
}

// RelativePath shows path relative to the working directory when possible.
func RelativePath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	if rel == "." {
		return rel
	}
	return fmt.Sprintf(".%c%s", filepath.Separator, rel)
}
