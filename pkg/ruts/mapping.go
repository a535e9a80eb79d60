package ruts

import (
	"reflect"
)

// ActionMapping is one routable action and its executes.
type ActionMapping struct {
	actionName   string
	actionPath   string
	actionType   reflect.Type
	component    *ComponentDef
	executeMap   map[string]*ActionExecute
	executeOrder []string
}

func newActionMapping(actionName string, actionPath string, component *ComponentDef) *ActionMapping {
	return &ActionMapping{
		actionName: actionName,
		actionPath: actionPath,
		actionType: component.Type,
		component:  component,
		executeMap: make(map[string]*ActionExecute),
	}
}

func (m *ActionMapping) ActionName() string { return m.actionName }

// ActionPath is the URL prefix of the action, e.g. "/sea/land/".
func (m *ActionMapping) ActionPath() string { return m.actionPath }

func (m *ActionMapping) ActionType() reflect.Type { return m.actionType }

func (m *ActionMapping) ComponentDef() *ComponentDef { return m.component }

// RegisterExecute adds an execute. A key already taken is an overload.
func (m *ActionMapping) RegisterExecute(execute *ActionExecute) error {
	if existing, ok := m.executeMap[execute.executeKey]; ok {
		return newConfigurationError(ErrOverloadedExecute, NewDiagnostic("Overloaded execute methods are not allowed.").
			Item("Advice", "URL dispatch cannot choose between methods by parameter types. Declare each execute method once.").
			Item("Action", m.actionType).
			Item("Existing Execute", existing).
			Item("Duplicate Execute", execute))
	}
	m.executeMap[execute.executeKey] = execute
	m.executeOrder = append(m.executeOrder, execute.executeKey)
	return nil
}

// ExecuteList returns named executes in declaration order, then index executes.
func (m *ActionMapping) ExecuteList() []*ActionExecute {
	var named, index []*ActionExecute
	for _, key := range m.executeOrder {
		execute := m.executeMap[key]
		if execute.indexMethod {
			index = append(index, execute)
		} else {
			named = append(named, execute)
		}
	}
	return append(named, index...)
}

func (m *ActionMapping) ExecuteCount() int { return len(m.executeMap) }

// FindExecuteByName looks up an execute by key ("land") or Go method name ("Land").
func (m *ActionMapping) FindExecuteByName(name string) Optional[*ActionExecute] {
	if execute, ok := m.executeMap[lowerFirst(name)]; ok {
		return OptionalOf(execute)
	}
	return OptionalEmpty[*ActionExecute]()
}

// FindActionExecute returns the first execute serving paramPath with httpMethod.
func (m *ActionMapping) FindActionExecute(paramPath string, httpMethod string) Optional[*ActionExecute] {
	for _, execute := range m.ExecuteList() {
		if execute.DetermineTarget(paramPath, httpMethod) {
			return OptionalOf(execute)
		}
	}
	return OptionalEmpty[*ActionExecute]()
}

// CreateAction returns the component serving one request.
func (m *ActionMapping) CreateAction() (any, error) {
	return m.component.Instantiate()
}

func (m *ActionMapping) String() string {
	return "mapping:{" + m.actionName + ", " + m.actionPath + "}"
}
