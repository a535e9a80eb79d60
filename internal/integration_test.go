package internal

import (
	"go/ast"
	goparser "go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/ruts/internal/generator"
	"github.com/toyz/ruts/internal/parser"
	"github.com/toyz/ruts/internal/utils"
)

const lighthouseSource = `package lighthouse

import "github.com/toyz/ruts/pkg/ruts"

type LighthouseAction struct {
	ruts.TypicalAction
}

func NewLighthouseAction() *LighthouseAction { return &LighthouseAction{} }

//ruts::execute
func (a *LighthouseAction) Index() (*ruts.HTMLResponse, error) {
	return ruts.AsHTML("lighthouse.html"), nil
}

//ruts::execute -UrlPattern="{}/beam" -SqlExecutionCountLimit=3
func (a *LighthouseAction) Beam(keeperID int) (*ruts.JSONResponse, error) {
	return ruts.AsJSON(keeperID), nil
}
`

// TestParseGenerateRoundTrip parses an action package, writes its
// registrations and parses the package again with the generated file present.
func TestParseGenerateRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "app", "web", "lighthouse")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lighthouse_action.go"), []byte(lighthouseSource), 0o644))

	p := parser.NewParser()
	metadata, err := p.ParseDirectory(dir, "example.com/sea/app/web/lighthouse")
	require.NoError(t, err)
	require.Len(t, metadata.Actions, 1)
	assert.Equal(t, 2, metadata.ExecuteCount())
	assert.Empty(t, metadata.Warnings)

	file, err := generator.NewGenerator().Generate(metadata)
	require.NoError(t, err)
	require.NoError(t, utils.WriteFile(file.FilePath, file.Content))

	parsed, err := goparser.ParseFile(token.NewFileSet(), file.FilePath, nil, goparser.ParseComments)
	require.NoError(t, err)
	assert.Equal(t, "lighthouse", parsed.Name.Name)

	var funcs, vars []string
	for _, decl := range parsed.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			funcs = append(funcs, d.Name.Name)
		case *ast.GenDecl:
			if d.Tok != token.VAR {
				continue
			}
			for _, spec := range d.Specs {
				for _, name := range spec.(*ast.ValueSpec).Names {
					vars = append(vars, name.Name)
				}
			}
		}
	}
	assert.Equal(t, []string{"init"}, funcs)
	assert.Equal(t, []string{"AutogenModule"}, vars)
	assert.Contains(t, string(file.Content), `ruts.Execute("Beam", ruts.WithURLPattern("{}/beam"), ruts.WithSQLExecutionCountLimit(3)),`)

	again, err := p.ParseDirectory(dir, "example.com/sea/app/web/lighthouse")
	require.NoError(t, err)
	assert.Equal(t, metadata.Actions, again.Actions)

	regenerated, err := generator.NewGenerator().Generate(again)
	require.NoError(t, err)
	assert.Equal(t, file.Content, regenerated.Content)
}
