package cli

import (
	"github.com/toyz/ruts/internal/utils"
)

// Cleaner handles cleaning up generated files
type Cleaner struct {
	fileProcessor *utils.FileProcessor
}

// NewCleaner creates a new cleaner
func NewCleaner() *Cleaner {
	return &Cleaner{fileProcessor: utils.NewFileProcessor()}
}

// CleanGeneratedFiles removes autogen_actions.go files from the given
// directories and returns the removed paths.
func (c *Cleaner) CleanGeneratedFiles(directories []string) ([]string, error) {
	return c.fileProcessor.CleanDirectories(directories)
}
