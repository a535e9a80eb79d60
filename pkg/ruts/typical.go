package ruts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/toyz/ruts/pkg/ruts/dbaccess"
)

// TypicalAction is the default god-hand implementation. Actions embed it and
// override the hooks they need.
type TypicalAction struct {
	// Login guards the actions; nil means every action is public.
	Login LoginManager
	// Sessions stores session attributes; nil falls back to the dispatcher's store.
	Sessions SessionStore
	// Translator converts infrastructure errors; nil falls back to the dispatcher's.
	Translator ExceptionTranslator
	// ArrangeAccessContext builds the access context; nil uses DefaultAccessContextArranger.
	ArrangeAccessContext AccessContextArranger
	// HandleApplicationError may turn an application error into a response.
	HandleApplicationError func(rt *ActionRuntime, appErr *ApplicationError) (ActionResponse, error)
	// Module names the application module in the access context.
	Module string
}

// GodHandPrologue prepares the resource and the access context, then checks the login.
func (a *TypicalAction) GodHandPrologue(rt *ActionRuntime) (ActionResponse, error) {
	resource := &GodHandResource{
		Runtime:    rt,
		Request:    &requestManager{rc: rt.rc},
		Response:   &responseManager{rc: rt.rc},
		Session:    a.sessionManager(rt),
		Login:      OptionalEmpty[LoginManager](),
		Translator: a.Translator,
	}
	if a.Login != nil {
		resource.Login = OptionalOf(a.Login)
	}
	if resource.Translator == nil {
		resource.Translator = rt.translator
	}
	if resource.Translator == nil {
		resource.Translator = DefaultExceptionTranslator
	}
	rt.setResource(resource)

	arranger := a.ArrangeAccessContext
	if arranger == nil {
		arranger = DefaultAccessContextArranger(a.Module)
	}
	accessContext, err := arranger(resource)
	if err != nil {
		return nil, fmt.Errorf("arrange access context: %w", err)
	}
	rt.bindContext(dbaccess.WithAccessContext(rt.Context(), accessContext))

	if a.Login != nil {
		return a.Login.CheckLoginRequired(rt)
	}
	return nil, nil
}

func (a *TypicalAction) sessionManager(rt *ActionRuntime) SessionManager {
	store := a.Sessions
	if store == nil {
		store = rt.sessions
	}
	if store == nil {
		return nil
	}
	return newCookieSessionManager(store, rt.rc)
}

func (a *TypicalAction) GodHandBefore(rt *ActionRuntime) (ActionResponse, error) { return nil, nil }
func (a *TypicalAction) CallbackBefore(rt *ActionRuntime) (ActionResponse, error) { return nil, nil }

// GodHandMonologue hands application errors to HandleApplicationError.
func (a *TypicalAction) GodHandMonologue(rt *ActionRuntime) (ActionResponse, error) {
	appErr, ok := AsApplicationError(rt.FailureCause())
	if !ok {
		return nil, nil
	}
	rt.Logger().Info().Err(appErr).Msg("Application error")
	if a.HandleApplicationError == nil {
		return nil, nil
	}
	return a.HandleApplicationError(rt, appErr)
}

// GodHandEpilogue checks the SQL count and whether the validator was called.
func (a *TypicalAction) GodHandEpilogue(rt *ActionRuntime) error {
	a.checkSQLExecutionCount(rt)
	if rt.IsFailure() {
		return nil
	}
	return checkValidatorCalled(rt)
}

func (a *TypicalAction) checkSQLExecutionCount(rt *ActionRuntime) {
	limit := rt.sqlCountLimit
	if option := rt.execute.ExecuteOption(); option.HasSQLExecutionCountLimit() {
		limit = option.SQLExecutionCountLimit
	}
	if limit <= 0 {
		return
	}
	count := rt.RequestedSqlCount()
	if count.TotalCountOfSQL() > limit {
		rt.Logger().Warn().
			Int("limit", limit).
			Stringer("sql_count", count).
			Msg("Too many SQL executions in one request")
	}
}

func checkValidatorCalled(rt *ActionRuntime) error {
	execute := rt.execute
	if execute.ExecuteOption().SuppressValidatorCallCheck || rt.validatorCalled {
		return nil
	}
	meta, ok := execute.FormMeta().Get()
	if !ok || !meta.IsValidatorAnnotated() {
		return nil
	}
	return &ExecuteUsageError{
		Kind: ErrValidatorNotCalled,
		Diagnostic: NewDiagnostic("The form has validator tags but Validate was not called.").
			Item("Advice", "Call Validate in the execute method, or use SuppressValidatorCallCheck.").
			Item("Execute Method", execute).
			Item("Form Type", meta.FormType()),
	}
}

func (a *TypicalAction) CallbackFinally(rt *ActionRuntime) {}

// GodHandFinally writes the request summary.
func (a *TypicalAction) GodHandFinally(rt *ActionRuntime) {
	event := rt.Logger().Debug()
	if rt.IsFailure() {
		event = event.Err(rt.FailureCause())
	}
	event.Stringer("sql_count", rt.RequestedSqlCount()).
		Dur("elapsed", rt.Elapsed()).
		Msg("Action finished")
}

// Validate runs the form validation. more may add further messages; any
// message turns into a ValidationFailureError.
func (a *TypicalAction) Validate(ctx context.Context, form any, more func(messages *UserMessages)) error {
	return Validate(ctx, form, more)
}

// Validate validates form for the action running on ctx.
func Validate(ctx context.Context, form any, more func(messages *UserMessages)) error {
	rt, ok := RuntimeFrom(ctx)
	if !ok {
		return errors.New("validate called outside of an action")
	}
	rt.validatorCalled = true
	messages := NewUserMessages()
	if rt.validator != nil {
		violations, err := rt.validator.Validate(form)
		if err != nil {
			return err
		}
		for _, v := range violations {
			messages.Add(v.Property, UserMessageByKey(v.MessageKey(), v.MessageValues()...))
		}
	}
	if more != nil {
		more(messages)
	}
	if messages.IsEmpty() {
		rt.validationFails = nil
		return nil
	}
	rt.validationFails = messages
	return &ValidationFailureError{Messages: messages}
}

// CheckOr404NotFound fails with a 404 unless expected holds.
func (a *TypicalAction) CheckOr404NotFound(expected bool, debugMsg string, args ...any) error {
	if expected {
		return nil
	}
	return &ForcedRequest404NotFoundError{DebugMsg: fmt.Sprintf(debugMsg, args...)}
}

// CheckParameter fails with a 404 unless expected holds. Broken
// parameters are treated as a missing page.
func (a *TypicalAction) CheckParameter(expected bool) error {
	if expected {
		return nil
	}
	return &ForcedRequest404NotFoundError{DebugMsg: "the parameter is not expected"}
}

// CheckParameterExists fails with a 404 when value is nil, empty or absent.
func (a *TypicalAction) CheckParameterExists(value any) error {
	if isParameterPresent(value) {
		return nil
	}
	return &ForcedRequest404NotFoundError{DebugMsg: fmt.Sprintf("the parameter does not exist: %v", value)}
}

func isParameterPresent(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case interface{ IsPresent() bool }:
		return v.IsPresent()
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		return !rv.IsNil()
	case reflect.Slice, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

// CheckParameterPlusNumber fails with a 404 unless number > 0.
func (a *TypicalAction) CheckParameterPlusNumber(number int64) error {
	if number > 0 {
		return nil
	}
	return &ForcedRequest404NotFoundError{DebugMsg: fmt.Sprintf("the parameter should be plus number: %d", number)}
}

// CheckParameterZeroOrPlusNumber fails with a 404 unless number >= 0.
func (a *TypicalAction) CheckParameterZeroOrPlusNumber(number int64) error {
	if number >= 0 {
		return nil
	}
	return &ForcedRequest404NotFoundError{DebugMsg: fmt.Sprintf("the parameter should be zero or plus number: %d", number)}
}

// CheckOrBadRequest fails with a 400 unless expected holds.
func (a *TypicalAction) CheckOrBadRequest(expected bool, debugMsg string) error {
	if expected {
		return nil
	}
	return &ForcedRequest400BadRequestError{DebugMsg: debugMsg}
}

// CheckOrIllegalTransition fails with an application error unless expected holds.
func (a *TypicalAction) CheckOrIllegalTransition(expected bool, transitionKey string, debugMsg string) error {
	if expected {
		return nil
	}
	return NewForcedIllegalTransitionApplicationError(debugMsg, transitionKey)
}

// Redirect is a shortcut for a redirect response with an optional status.
func (a *TypicalAction) Redirect(path string, status ...int) *HTMLResponse {
	response := RedirectTo(path)
	if len(status) > 0 {
		response.Status(status[0])
	} else {
		response.Status(http.StatusFound)
	}
	return response
}
