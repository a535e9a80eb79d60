package ruts

import "strings"

// RoutePathPartType is the kind of a RoutePath part.
type RoutePathPartType int

const (
	StaticPart RoutePathPartType = iota
	ParameterPart
	WildcardPart
)

// RoutePathPart is one parsed part of a RoutePath.
type RoutePathPart struct {
	Type  RoutePathPartType
	Value string
}

// RoutePath is a server route in "/static/{param}/{*}" notation. Adapters
// translate it to their own syntax.
type RoutePath string

// CatchAllPath routes every request to one handler.
const CatchAllPath RoutePath = "/{*}"

func (p RoutePath) Raw() string {
	return string(p)
}

// Parts splits the path into static, parameter and wildcard parts.
func (p RoutePath) Parts() []RoutePathPart {
	path := string(p)
	var parts []RoutePathPart
	for len(path) > 0 {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			parts = append(parts, RoutePathPart{Type: StaticPart, Value: path})
			break
		}
		closing := strings.IndexByte(path[open:], '}')
		if closing < 0 {
			parts = append(parts, RoutePathPart{Type: StaticPart, Value: path})
			break
		}
		if open > 0 {
			parts = append(parts, RoutePathPart{Type: StaticPart, Value: path[:open]})
		}
		name := path[open+1 : open+closing]
		if name == "*" {
			parts = append(parts, RoutePathPart{Type: WildcardPart, Value: "*"})
		} else {
			parts = append(parts, RoutePathPart{Type: ParameterPart, Value: name})
		}
		path = path[open+closing+1:]
	}
	return parts
}

// Convert renders the path with the given parameter and wildcard syntax.
func (p RoutePath) Convert(param func(name string) string, wildcard string) string {
	var sb strings.Builder
	for _, part := range p.Parts() {
		switch part.Type {
		case ParameterPart:
			sb.WriteString(param(part.Value))
		case WildcardPart:
			sb.WriteString(wildcard)
		default:
			sb.WriteString(part.Value)
		}
	}
	return sb.String()
}
