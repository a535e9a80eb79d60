package cli

import (
	"github.com/toyz/ruts/internal/utils"
)

// DirectoryScanner handles directory scanning for Go packages
type DirectoryScanner struct {
	fileProcessor *utils.FileProcessor
}

// NewDirectoryScanner creates a new directory scanner
func NewDirectoryScanner() *DirectoryScanner {
	return &DirectoryScanner{fileProcessor: utils.NewFileProcessor()}
}

// ScanDirectories returns the directories containing Go files. Go-style
// patterns like "./..." scan recursively, plain directories do not.
func (s *DirectoryScanner) ScanDirectories(patterns []string) ([]string, error) {
	var found []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		base, recursive := utils.SplitPattern(pattern)
		dirs, err := s.fileProcessor.ScanDirectoriesWithGoFiles([]string{base}, recursive)
		if err != nil {
			return nil, err
		}
		for _, dir := range dirs {
			if !seen[dir] {
				seen[dir] = true
				found = append(found, dir)
			}
		}
	}
	return found, nil
}
