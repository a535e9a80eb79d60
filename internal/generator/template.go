package generator

import (
	"strconv"
	"strings"
	"text/template"

	"github.com/toyz/ruts/internal/models"
)

const actionsTemplate = `// Code generated by ruts. DO NOT EDIT.
// This file was automatically generated and should not be modified manually.

package {{.PackageName}}

import (
	"{{.RuntimeImport}}"
{{- if .HasConstructors}}
	"{{.FxImport}}"
	"go.uber.org/fx"
{{- end}}
)

func init() {
{{- range .Actions}}
	ruts.Annotate[{{.TypeName}}](
{{- range .Executes}}
		ruts.Execute({{quote .MethodName}}{{options .}}),
{{- end}}
	)
{{- end}}
}
{{- if .HasConstructors}}

// AutogenModule provides the annotated actions of package {{.PackageName}}.
var AutogenModule = fx.Module({{quote .PackageName}},
{{- range .Actions}}{{if .Constructor}}
	rutsfx.Action[{{.TypeName}}]({{.Constructor}}),
{{- end}}{{end}}
)
{{- end}}
`

type templateData struct {
	PackageName     string
	RuntimeImport   string
	FxImport        string
	HasConstructors bool
	Actions         []models.ActionMetadata
}

var actionsTmpl = template.Must(template.New("actions").Funcs(template.FuncMap{
	"quote":   strconv.Quote,
	"options": executeOptions,
}).Parse(actionsTemplate))

// executeOptions renders the option arguments of one ruts.Execute call.
func executeOptions(execute models.ExecuteMetadata) string {
	var b strings.Builder
	if execute.URLPattern != "" {
		b.WriteString(", ruts.WithURLPattern(" + strconv.Quote(execute.URLPattern) + ")")
	}
	if execute.SuppressTransaction {
		b.WriteString(", ruts.SuppressTransaction()")
	}
	if execute.SuppressValidatorCallCheck {
		b.WriteString(", ruts.SuppressValidatorCallCheck()")
	}
	if execute.SQLExecutionCountLimit > 0 {
		b.WriteString(", ruts.WithSQLExecutionCountLimit(" + strconv.Itoa(execute.SQLExecutionCountLimit) + ")")
	}
	return b.String()
}
