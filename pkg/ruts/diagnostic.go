package ruts

import (
	"fmt"
	"strings"
)

// Diagnostic is a sectioned, developer-facing report attached to framework errors.
type Diagnostic struct {
	notice string
	items  []diagnosticItem
}

type diagnosticItem struct {
	title    string
	elements []string
}

// NewDiagnostic starts a report with its one-line notice.
func NewDiagnostic(notice string) *Diagnostic {
	return &Diagnostic{notice: notice}
}

// Item appends a titled section.
func (d *Diagnostic) Item(title string, elements ...any) *Diagnostic {
	item := diagnosticItem{title: title}
	for _, element := range elements {
		item.elements = append(item.elements, fmt.Sprint(element))
	}
	d.items = append(d.items, item)
	return d
}

// Notice returns the one-line summary.
func (d *Diagnostic) Notice() string {
	return d.notice
}

// ItemElements returns the elements of the first section titled title.
func (d *Diagnostic) ItemElements(title string) []string {
	for _, item := range d.items {
		if item.title == title {
			return item.elements
		}
	}
	return nil
}

func (d *Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString("Look at the notice below.\n")
	sb.WriteString("/* ------------------------------------------------------------\n")
	sb.WriteString(d.notice)
	sb.WriteString("\n")
	for _, item := range d.items {
		sb.WriteString("\n[")
		sb.WriteString(item.title)
		sb.WriteString("]\n")
		for _, element := range item.elements {
			sb.WriteString(element)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("------------------------------------------------------------ */")
	return sb.String()
}
