package utils

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func newBufferedDiagnostics(level DiagnosticLevel) (*DiagnosticSystem, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	d := NewDiagnosticSystem(level)
	d.showTime = false
	d.SetOutput(&out, &errOut)
	return d, &out, &errOut
}

func TestDiagnosticSystem_Levels(t *testing.T) {
	previous := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = previous })

	d, out, errOut := newBufferedDiagnostics(DiagnosticError)
	d.Info("scanning %d", 3)
	d.Warn("careful")
	d.Error("failed %s", "sea")
	assert.Empty(t, out.String())
	assert.Equal(t, "[ERROR] failed sea\n", errOut.String())

	d, out, errOut = newBufferedDiagnostics(DiagnosticInfo)
	d.Info("scanning")
	d.Verbose("hidden")
	d.Warn("careful")
	d.Indent()
	d.List("sea")
	d.Unindent()
	d.Unindent()
	d.Item("done")
	assert.Equal(t, "[INFO] scanning\n  - sea\n✓ done\n", out.String())
	assert.Equal(t, "[WARN] careful\n", errOut.String())
}

func TestDiagnosticSystem_Summary(t *testing.T) {
	d, out, _ := newBufferedDiagnostics(DiagnosticInfo)
	d.Summary("Done", map[string]any{"b": 2, "a": 1})
	assert.Equal(t, "\nDone\n   a: 1\n   b: 2\n\n", out.String())

	quiet, out, _ := newBufferedDiagnostics(DiagnosticError)
	quiet.Summary("Done", map[string]any{"a": 1})
	assert.Empty(t, out.String())
}
