package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
)

// DiagnosticLevel represents the level of diagnostic output
type DiagnosticLevel int

const (
	DiagnosticSilent DiagnosticLevel = iota
	DiagnosticError
	DiagnosticWarn
	DiagnosticInfo
	DiagnosticVerbose
	DiagnosticDebug
)

// DiagnosticSystem provides structured, user-friendly output
type DiagnosticSystem struct {
	level    DiagnosticLevel
	showTime bool
	output   io.Writer
	errorOut io.Writer
	indent   int
	now      func() time.Time
}

// NewDiagnosticSystem creates a new diagnostic system
func NewDiagnosticSystem(level DiagnosticLevel) *DiagnosticSystem {
	return &DiagnosticSystem{
		level:    level,
		showTime: level >= DiagnosticVerbose,
		output:   color.Output,
		errorOut: color.Error,
		now:      time.Now,
	}
}

// NewQuietDiagnostics creates a diagnostic system that only shows errors
func NewQuietDiagnostics() *DiagnosticSystem {
	return NewDiagnosticSystem(DiagnosticError)
}

// NewVerboseDiagnostics creates a diagnostic system with full output
func NewVerboseDiagnostics() *DiagnosticSystem {
	return NewDiagnosticSystem(DiagnosticVerbose)
}

// SetOutput redirects normal and error output.
func (d *DiagnosticSystem) SetOutput(output, errorOut io.Writer) {
	d.output = output
	d.errorOut = errorOut
}

// Level returns the configured level.
func (d *DiagnosticSystem) Level() DiagnosticLevel {
	return d.level
}

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warnColor    = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgBlue)
	successColor = color.New(color.FgGreen)
	verboseColor = color.New(color.FgHiBlack)
	debugColor   = color.New(color.FgMagenta)
	headerColor  = color.New(color.FgCyan)
)

// Error outputs error messages (always shown unless silent)
func (d *DiagnosticSystem) Error(format string, args ...any) {
	if d.level >= DiagnosticError {
		d.writeMessage(d.errorOut, "ERROR", errorColor, format, args...)
	}
}

func (d *DiagnosticSystem) Warn(format string, args ...any) {
	if d.level >= DiagnosticWarn {
		d.writeMessage(d.errorOut, "WARN", warnColor, format, args...)
	}
}

func (d *DiagnosticSystem) Info(format string, args ...any) {
	if d.level >= DiagnosticInfo {
		d.writeMessage(d.output, "INFO", infoColor, format, args...)
	}
}

func (d *DiagnosticSystem) Success(format string, args ...any) {
	if d.level >= DiagnosticInfo {
		d.writeMessage(d.output, "SUCCESS", successColor, format, args...)
	}
}

// Verbose outputs detailed messages (verbose mode only)
func (d *DiagnosticSystem) Verbose(format string, args ...any) {
	if d.level >= DiagnosticVerbose {
		d.writeMessage(d.output, "VERBOSE", verboseColor, format, args...)
	}
}

func (d *DiagnosticSystem) Debug(format string, args ...any) {
	if d.level >= DiagnosticDebug {
		d.writeMessage(d.output, "DEBUG", debugColor, format, args...)
	}
}

// Header outputs the tool header
func (d *DiagnosticSystem) Header(message string) {
	if d.level >= DiagnosticInfo {
		headerColor.Fprintf(d.output, "Ruts: %s\n", message)
	}
}

// Subsection creates a subsection header
func (d *DiagnosticSystem) Subsection(title string) {
	if d.level >= DiagnosticInfo {
		fmt.Fprintf(d.output, "\n%s:\n", title)
	}
}

// Item outputs a phase item with checkmark
func (d *DiagnosticSystem) Item(format string, args ...any) {
	if d.level >= DiagnosticInfo {
		fmt.Fprint(d.output, d.getIndent())
		successColor.Fprint(d.output, "✓ ")
		fmt.Fprintf(d.output, format+"\n", args...)
	}
}

// List outputs a bulleted list item
func (d *DiagnosticSystem) List(format string, args ...any) {
	if d.level >= DiagnosticInfo {
		fmt.Fprintf(d.output, "%s- %s\n", d.getIndent(), fmt.Sprintf(format, args...))
	}
}

func (d *DiagnosticSystem) Indent() { d.indent++ }

func (d *DiagnosticSystem) Unindent() {
	if d.indent > 0 {
		d.indent--
	}
}

// Summary outputs a final summary with statistics in key order
func (d *DiagnosticSystem) Summary(title string, stats map[string]any) {
	if d.level < DiagnosticInfo {
		return
	}
	fmt.Fprintf(d.output, "\n%s\n", title)
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(d.output, "   %s: %v\n", k, stats[k])
	}
	fmt.Fprintln(d.output)
}

func (d *DiagnosticSystem) writeMessage(writer io.Writer, level string, c *color.Color, format string, args ...any) {
	var output strings.Builder
	output.WriteString(d.getIndent())
	if d.showTime {
		output.WriteString(d.now().Format("15:04:05 "))
	}
	output.WriteString(c.Sprintf("[%s]", level))
	output.WriteString(" ")
	output.WriteString(fmt.Sprintf(format, args...))
	output.WriteString("\n")
	fmt.Fprint(writer, output.String())
}

func (d *DiagnosticSystem) getIndent() string {
	return strings.Repeat("  ", d.indent)
}

// DisableColorsUnlessTerminal follows NO_COLOR and FORCE_COLOR on top of
// the terminal detection of fatih/color.
func DisableColorsUnlessTerminal() {
	if os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
		return
	}
	if os.Getenv("FORCE_COLOR") != "" {
		color.NoColor = false
	}
}
