package ruts

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/toyz/ruts/pkg/ruts/dbaccess"
	"github.com/toyz/ruts/pkg/ruts/validation"
)

type runtimeKey struct{}

// ActionRuntime is the per-request state of one action execution. It is
// created by the dispatcher and handed to every lifecycle callback.
type ActionRuntime struct {
	ctx        context.Context
	rc         RequestContext
	mapping    *ActionMapping
	execute    *ActionExecute
	paramPath  string
	requestID  string
	beginTime  time.Time
	logger     zerolog.Logger
	sqlCounter *dbaccess.SQLCounter
	validator  *validation.ActionValidator
	sessions   SessionStore
	translator ExceptionTranslator

	// sqlCountLimit applies when the execute sets no limit; <= 0 is unlimited.
	sqlCountLimit int

	action          any
	form            *VirtualForm
	resource        *GodHandResource
	response        ActionResponse
	failureCause    error
	validatorCalled bool
	validationFails *UserMessages
	displayData     map[string]any

	stage        Stage
	stageResults []StageResult
	finallies    []func()
}

func newActionRuntime(ctx context.Context, rc RequestContext, resolved ResolvedRequest, requestID string, logger zerolog.Logger) *ActionRuntime {
	rt := &ActionRuntime{
		rc:          rc,
		mapping:     resolved.Mapping,
		execute:     resolved.Execute,
		paramPath:   resolved.ParamPath,
		requestID:   requestID,
		beginTime:   time.Now(),
		sqlCounter:  dbaccess.NewSQLCounter(),
		displayData: make(map[string]any),
	}
	rt.logger = logger.With().
		Str("request_id", requestID).
		Str("action", resolved.Mapping.ActionName()).
		Str("execute", resolved.Execute.ExecuteKey()).
		Logger()
	rt.bindContext(dbaccess.WithSQLCounter(ctx, rt.sqlCounter))
	return rt
}

// RuntimeFrom returns the runtime of the action handling ctx.
func RuntimeFrom(ctx context.Context) (*ActionRuntime, bool) {
	rt, ok := ctx.Value(runtimeKey{}).(*ActionRuntime)
	return rt, ok
}

// bindContext replaces the request context, keeping the runtime reachable from it.
func (rt *ActionRuntime) bindContext(ctx context.Context) {
	if existing, ok := RuntimeFrom(ctx); !ok || existing != rt {
		ctx = context.WithValue(ctx, runtimeKey{}, rt)
	}
	rt.ctx = ctx
}

// Context is the current request context. It carries the transaction while
// the execute method runs.
func (rt *ActionRuntime) Context() context.Context { return rt.ctx }
func (rt *ActionRuntime) RequestContext() RequestContext { return rt.rc }
func (rt *ActionRuntime) ActionMapping() *ActionMapping { return rt.mapping }
func (rt *ActionRuntime) ActionExecute() *ActionExecute { return rt.execute }
func (rt *ActionRuntime) ParamPath() string { return rt.paramPath }
func (rt *ActionRuntime) RequestID() string { return rt.requestID }
func (rt *ActionRuntime) BeginTime() time.Time { return rt.beginTime }
func (rt *ActionRuntime) Logger() *zerolog.Logger { return &rt.logger }
func (rt *ActionRuntime) Action() any { return rt.action }

// ActionForm returns the form of the execute when it declares one.
func (rt *ActionRuntime) ActionForm() Optional[*VirtualForm] {
	if rt.form == nil {
		return OptionalEmpty[*VirtualForm]()
	}
	return OptionalOf(rt.form)
}

// Resource returns the god-hand resource prepared by the prologue.
func (rt *ActionRuntime) Resource() Optional[*GodHandResource] {
	if rt.resource == nil {
		return OptionalEmpty[*GodHandResource]()
	}
	return OptionalOf(rt.resource)
}

func (rt *ActionRuntime) setResource(resource *GodHandResource) { rt.resource = resource }

// ActionResponse is the response decided so far, nil before the execute finishes.
func (rt *ActionRuntime) ActionResponse() ActionResponse { return rt.response }

// FailureCause is the error that ended the execute, if any.
func (rt *ActionRuntime) FailureCause() error { return rt.failureCause }
func (rt *ActionRuntime) IsFailure() bool { return rt.failureCause != nil }

// IsValidatorCalled reports whether Validate ran during this request.
func (rt *ActionRuntime) IsValidatorCalled() bool { return rt.validatorCalled }

// ValidationErrors returns the messages of the last failed validation.
func (rt *ActionRuntime) ValidationErrors() Optional[*UserMessages] {
	if rt.validationFails == nil {
		return OptionalEmpty[*UserMessages]()
	}
	return OptionalOf(rt.validationFails)
}

// RegisterData puts a value for HTML rendering.
func (rt *ActionRuntime) RegisterData(key string, value any) {
	rt.displayData[key] = value
}

func (rt *ActionRuntime) DisplayData() map[string]any { return rt.displayData }

// RequestedSqlCount is a snapshot of the SQL executed so far.
func (rt *ActionRuntime) RequestedSqlCount() dbaccess.RequestedSqlCount {
	return rt.sqlCounter.Snapshot()
}

// Stage is the lifecycle stage currently running.
func (rt *ActionRuntime) Stage() Stage { return rt.stage }

// StageResults returns the finished stages in order.
func (rt *ActionRuntime) StageResults() []StageResult {
	return append([]StageResult(nil), rt.stageResults...)
}

// onFinally registers fn to run after the finally hooks.
func (rt *ActionRuntime) onFinally(fn func()) {
	rt.finallies = append(rt.finallies, fn)
}

// Elapsed is the time since the request was resolved.
func (rt *ActionRuntime) Elapsed() time.Duration {
	return time.Since(rt.beginTime)
}
