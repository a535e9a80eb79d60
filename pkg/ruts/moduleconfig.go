package ruts

import (
	"sort"
	"strings"
	"sync"
)

// ModuleConfig is the registry of action mappings. It is written while the
// application starts, then frozen and only read while serving.
type ModuleConfig struct {
	mu      sync.RWMutex
	byName  map[string]*ActionMapping
	byPath  map[string]*ActionMapping
	ordered []*ActionMapping
	frozen  bool
}

// NewModuleConfig creates an empty, writable registry.
func NewModuleConfig() *ModuleConfig {
	return &ModuleConfig{
		byName: make(map[string]*ActionMapping),
		byPath: make(map[string]*ActionMapping),
	}
}

// AddActionMapping registers mapping. Fails once frozen or when the name or path is taken.
func (mc *ModuleConfig) AddActionMapping(mapping *ActionMapping) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.frozen {
		return newConfigurationError(ErrModuleConfigFrozen, NewDiagnostic("Actions cannot be registered after the module config is frozen.").
			Item("Action", mapping.actionName))
	}
	existing, nameTaken := mc.byName[mapping.actionName]
	if !nameTaken {
		existing, nameTaken = mc.byPath[mapping.actionPath]
	}
	if nameTaken {
		return newConfigurationError(ErrDuplicateAction, NewDiagnostic("Two actions share the same name or URL path.").
			Item("Advice", "Rename one of the actions or move it to another package.").
			Item("Existing Action", existing.actionType, existing.actionName, existing.actionPath).
			Item("Duplicate Action", mapping.actionType, mapping.actionName, mapping.actionPath))
	}
	mc.byName[mapping.actionName] = mapping
	mc.byPath[mapping.actionPath] = mapping
	mc.ordered = append(mc.ordered, mapping)
	return nil
}

// Freeze ends the registration phase.
func (mc *ModuleConfig) Freeze() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.frozen = true
}

func (mc *ModuleConfig) IsFrozen() bool {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.frozen
}

func (mc *ModuleConfig) FindActionMapping(actionName string) Optional[*ActionMapping] {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if mapping, ok := mc.byName[actionName]; ok {
		return OptionalOf(mapping)
	}
	return OptionalEmpty[*ActionMapping]()
}

// ActionMappings returns every mapping sorted by action path.
func (mc *ModuleConfig) ActionMappings() []*ActionMapping {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	result := make([]*ActionMapping, len(mc.ordered))
	copy(result, mc.ordered)
	sort.Slice(result, func(i, j int) bool {
		return result[i].actionPath < result[j].actionPath
	})
	return result
}

// ResolvedRequest is a request path resolved to an execute.
type ResolvedRequest struct {
	Mapping   *ActionMapping
	Execute   *ActionExecute
	ParamPath string
}

// ResolveRequest finds the execute for requestPath and httpMethod, trying the
// longest action path first.
func (mc *ModuleConfig) ResolveRequest(requestPath string, httpMethod string) Optional[ResolvedRequest] {
	segments := splitPath(requestPath)
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	for i := len(segments); i >= 0; i-- {
		actionPath := "/"
		if i > 0 {
			actionPath = "/" + strings.Join(segments[:i], "/") + "/"
		}
		mapping, ok := mc.byPath[actionPath]
		if !ok {
			continue
		}
		paramPath := strings.Join(segments[i:], "/")
		if execute, found := mapping.FindActionExecute(paramPath, httpMethod).Get(); found {
			return OptionalOf(ResolvedRequest{Mapping: mapping, Execute: execute, ParamPath: paramPath})
		}
	}
	return OptionalEmpty[ResolvedRequest]()
}

// RouteInfo describes one execute for listings.
type RouteInfo struct {
	Action     string
	Execute    string
	HTTPMethod string
	Path       string
}

// Routes lists every execute in path order.
func (mc *ModuleConfig) Routes() []RouteInfo {
	var routes []RouteInfo
	for _, mapping := range mc.ActionMappings() {
		for _, execute := range mapping.ExecuteList() {
			path := mapping.actionPath + execute.urlPattern.ResolvedPattern()
			routes = append(routes, RouteInfo{
				Action:     mapping.actionName,
				Execute:    execute.String(),
				HTTPMethod: strings.ToUpper(execute.RestfulHTTPMethod().OrElse("*")),
				Path:       path,
			})
		}
	}
	return routes
}

func splitPath(requestPath string) []string {
	var segments []string
	for _, segment := range strings.Split(requestPath, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
