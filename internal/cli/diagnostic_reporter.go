package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/toyz/ruts/internal/errors"
)

// DiagnosticReporter provides user-friendly error reporting and diagnostics
type DiagnosticReporter struct {
	verbose bool
	out     io.Writer
}

// NewDiagnosticReporter creates a new diagnostic reporter
func NewDiagnosticReporter(verbose bool, out io.Writer) *DiagnosticReporter {
	return &DiagnosticReporter{verbose: verbose, out: out}
}

var (
	errorTitle = color.New(color.FgRed, color.Bold)
	warnMark   = color.New(color.FgYellow, color.Bold)
	locColor   = color.New(color.FgCyan)
	hintColor  = color.New(color.FgGreen)
)

// ReportWarning prints a warning line
func (r *DiagnosticReporter) ReportWarning(message string) {
	warnMark.Fprint(r.out, "! ")
	fmt.Fprintln(r.out, message)
}

// ReportError prints every generator error found in err
func (r *DiagnosticReporter) ReportError(err error) {
	errorTitle.Fprintln(r.out, "\nERROR: Code Generation Failed")
	fmt.Fprintln(r.out, "=============================")

	var multiple *errors.MultipleErrors
	if stderrors.As(err, &multiple) {
		for i, e := range multiple.Errors {
			fmt.Fprintf(r.out, "\n%d) ", i+1)
			r.reportOne(e)
		}
		fmt.Fprintln(r.out)
		return
	}
	if found, ok := errors.Find(err); ok {
		fmt.Fprintln(r.out)
		r.reportOne(found)
	} else {
		fmt.Fprintf(r.out, "\nMessage: %s\n", err)
	}
	fmt.Fprintln(r.out)
}

func (r *DiagnosticReporter) reportOne(err errors.RutsError) {
	fmt.Fprintf(r.out, "%s\n", titleOf(err.ErrorCode()))
	if loc := err.Location(); !loc.IsEmpty() {
		fmt.Fprint(r.out, "   Location: ")
		locColor.Fprintln(r.out, loc.String())
	}
	fmt.Fprintf(r.out, "   Message: %s\n", messageOf(err))

	if ctx := err.Context(); len(ctx) > 0 {
		keys := make([]string, 0, len(ctx))
		if base, ok := err.(*errors.BaseError); ok {
			keys = base.ContextKeys()
		} else {
			for k := range ctx {
				keys = append(keys, k)
			}
		}
		for _, k := range keys {
			if k == "source" && !r.verbose {
				continue
			}
			fmt.Fprintf(r.out, "   %s: %v\n", formatContextKey(k), ctx[k])
		}
	}
	for _, hint := range err.Suggestions() {
		hintColor.Fprint(r.out, "   Hint: ")
		fmt.Fprintln(r.out, hint)
	}

	if r.verbose {
		level := 1
		for cause := err.Unwrap(); cause != nil; cause = stderrors.Unwrap(cause) {
			fmt.Fprintf(r.out, "   Cause %d: %s\n", level, cause)
			level++
		}
	}
}

func messageOf(err errors.RutsError) string {
	if base, ok := err.(*errors.BaseError); ok {
		if base.Cause != nil {
			return fmt.Sprintf("%s: %v", base.Message, base.Cause)
		}
		return base.Message
	}
	return err.Error()
}

func titleOf(code errors.ErrorCode) string {
	switch code {
	case errors.SyntaxErrorCode:
		return "Annotation Syntax Error"
	case errors.ValidationErrorCode:
		return "Validation Error"
	case errors.GenerationErrorCode:
		return "Code Generation Error"
	case errors.FileSystemErrorCode:
		return "File System Error"
	case errors.ModuleErrorCode:
		return "Module Error"
	default:
		return "Error"
	}
}

// formatContextKey turns snake_case keys into Title Case
func formatContextKey(key string) string {
	parts := strings.Split(key, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, " ")
}
