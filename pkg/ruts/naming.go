package ruts

import (
	"reflect"
	"strings"
	"unicode"
)

// NamingConvention drives action name, URL path and form detection.
type NamingConvention struct {
	// WebPackage is the package segment under which action packages live.
	WebPackage   string
	ActionSuffix string
	FormSuffixes []string
}

// DefaultNamingConvention returns the stock convention: actions under "web",
// named "...Action", with "...Form" and "...Body" parameters.
func DefaultNamingConvention() NamingConvention {
	return NamingConvention{
		WebPackage:   "web",
		ActionSuffix: "Action",
		FormSuffixes: []string{"Form", "Body"},
	}
}

// PackageSegments returns the segments of pkgPath below the web package.
func (n NamingConvention) PackageSegments(pkgPath string) []string {
	if n.WebPackage == "" {
		return nil
	}
	segments := strings.Split(pkgPath, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] == n.WebPackage {
			return segments[i+1:]
		}
	}
	return nil
}

// ActionName builds e.g. "sea_seaLandAction" from package segments and the type name.
func (n NamingConvention) ActionName(actionType reflect.Type) string {
	actionType = structTypeOf(actionType)
	parts := append([]string{}, n.PackageSegments(actionType.PkgPath())...)
	parts = append(parts, lowerFirst(actionType.Name()))
	return strings.Join(parts, "_")
}

// ActionPath derives the URL path from an action name: package segments,
// then the words of the type name not already spelled by the package.
func (n NamingConvention) ActionPath(actionName string) string {
	parts := strings.Split(actionName, "_")
	segments, typeName := parts[:len(parts)-1], parts[len(parts)-1]

	words := splitCamel(strings.TrimSuffix(upperFirst(typeName), n.ActionSuffix))
	if len(segments) == 0 && len(words) == 1 && words[0] == "root" {
		words = nil
	}
	for _, segment := range segments {
		if len(words) == 0 || !strings.EqualFold(words[0], segment) {
			break
		}
		words = words[1:]
	}

	pathParts := append(append([]string{}, segments...), words...)
	if len(pathParts) == 0 {
		return "/"
	}
	return "/" + strings.Join(pathParts, "/") + "/"
}

// IsFormType reports whether t is a bindable form or body for an action in actionPkg.
func (n NamingConvention) IsFormType(t reflect.Type, actionPkg string) bool {
	t = structTypeOf(t)
	if t == nil || t.Kind() != reflect.Struct || t.Name() == "" {
		return false
	}
	suffixed := false
	for _, suffix := range n.FormSuffixes {
		if strings.HasSuffix(t.Name(), suffix) && t.Name() != suffix {
			suffixed = true
			break
		}
	}
	if !suffixed {
		return false
	}
	if t.PkgPath() == actionPkg || n.WebPackage == "" {
		return true
	}
	for _, segment := range strings.Split(t.PkgPath(), "/") {
		if segment == n.WebPackage {
			return true
		}
	}
	return false
}

var restfulVerbPrefixes = []string{"Get", "Post", "Put", "Delete", "Patch"}

// splitRestfulName separates a verb prefix from a method name:
// "GetIndex" is ("get", "index"), "Land" is ("", "land").
func splitRestfulName(methodName string) (verb string, mappingName string) {
	for _, prefix := range restfulVerbPrefixes {
		rest := strings.TrimPrefix(methodName, prefix)
		if rest != methodName && rest != "" && unicode.IsUpper(rune(rest[0])) {
			return strings.ToLower(prefix), lowerFirst(rest)
		}
	}
	return "", lowerFirst(methodName)
}

func splitCamel(s string) []string {
	var words []string
	runes := []rune(s)
	start := 0
	for i := 1; i < len(runes); i++ {
		boundary := unicode.IsUpper(runes[i]) &&
			(unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1])))
		if boundary {
			words = append(words, strings.ToLower(string(runes[start:i])))
			start = i
		}
	}
	if start < len(runes) {
		words = append(words, strings.ToLower(string(runes[start:])))
	}
	return words
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}
