package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quayAction = `package quay

type QuayAction struct{}

func NewQuayAction() *QuayAction { return &QuayAction{} }

//ruts::execute -UrlPattern="{}"
func (a *QuayAction) Index(id int) (*Response, error) { return nil, nil }
`

func setupModule(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"go.mod":                      "module example.com/quay\n\ngo 1.25\n",
		"app/web/quay/quay_action.go": quayAction,
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	t.Chdir(root)
	return root
}

func TestRun_RequiresDirectories(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "At least one directory path is required")
	assert.Contains(t, stderr.String(), "Usage: ruts")
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run([]string{"--help"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "-web-package")
}

func TestRun_UnknownFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"--nope", "./..."}, &stdout, &stderr))
}

func TestRun_GenerateCheckClean(t *testing.T) {
	root := setupModule(t)
	generated := filepath.Join(root, "app", "web", "quay", "autogen_actions.go")
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 1, run([]string{"--quiet", "--check", "./app/..."}, &stdout, &stderr))
	assert.NoFileExists(t, generated)

	assert.Equal(t, 0, run([]string{"--quiet", "./app/..."}, &stdout, &stderr))
	assert.FileExists(t, generated)

	assert.Equal(t, 0, run([]string{"--quiet", "--check", "./app/..."}, &stdout, &stderr))

	assert.Equal(t, 0, run([]string{"--quiet", "--clean", "./app/..."}, &stdout, &stderr))
	assert.NoFileExists(t, generated)
}

func TestRun_ReportsErrors(t *testing.T) {
	root := setupModule(t)
	broken := "package quay\n\ntype DockAction struct{}\n\n//ruts::execute -Dock\nfunc (a *DockAction) Index() (*Response, error) { return nil, nil }\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "web", "quay", "dock_action.go"), []byte(broken), 0o644))

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run([]string{"--quiet", "./app/..."}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown parameter -Dock")
}
