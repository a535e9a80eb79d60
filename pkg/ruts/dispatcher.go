package ruts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/toyz/ruts/pkg/ruts/dbaccess"
	"github.com/toyz/ruts/pkg/ruts/jsonmanager"
	"github.com/toyz/ruts/pkg/ruts/validation"
)

const requestIDHeader = "X-Request-ID"

// RequestDispatcher resolves requests against the frozen ModuleConfig and
// runs the execute methods through the god-hand chain.
type RequestDispatcher struct {
	config    *ModuleConfig
	binder    *FormBinder
	responder *ActionResponder
	validator *validation.ActionValidator
	tx        dbaccess.TransactionRunner
	metrics   *Metrics
	tracer    trace.Tracer
	logger    zerolog.Logger

	sessions      SessionStore
	translator    ExceptionTranslator
	sqlCountLimit int
}

// DispatcherOption configures a RequestDispatcher.
type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	json            jsonmanager.Manager
	templates       TemplateRenderer
	validator       *validation.ActionValidator
	tx              dbaccess.TransactionRunner
	metrics         *Metrics
	tracer          trace.Tracer
	logger          zerolog.Logger
	sessions        SessionStore
	translator      ExceptionTranslator
	classifications ClassificationProvider
	sqlCountLimit   int
}

func WithJSONManager(json jsonmanager.Manager) DispatcherOption {
	return func(o *dispatcherOptions) { o.json = json }
}

func WithTemplateRenderer(templates TemplateRenderer) DispatcherOption {
	return func(o *dispatcherOptions) { o.templates = templates }
}

func WithValidator(validator *validation.ActionValidator) DispatcherOption {
	return func(o *dispatcherOptions) { o.validator = validator }
}

// WithTransactionRunner wraps each execute in a transaction unless suppressed.
func WithTransactionRunner(tx dbaccess.TransactionRunner) DispatcherOption {
	return func(o *dispatcherOptions) { o.tx = tx }
}

func WithMetrics(metrics *Metrics) DispatcherOption {
	return func(o *dispatcherOptions) { o.metrics = metrics }
}

func WithTracer(tracer trace.Tracer) DispatcherOption {
	return func(o *dispatcherOptions) { o.tracer = tracer }
}

func WithDispatcherLogger(logger zerolog.Logger) DispatcherOption {
	return func(o *dispatcherOptions) { o.logger = logger }
}

// WithSessionStore is the store used by actions that do not set their own.
func WithSessionStore(sessions SessionStore) DispatcherOption {
	return func(o *dispatcherOptions) { o.sessions = sessions }
}

func WithExceptionTranslator(translator ExceptionTranslator) DispatcherOption {
	return func(o *dispatcherOptions) { o.translator = translator }
}

func WithClassificationProvider(classifications ClassificationProvider) DispatcherOption {
	return func(o *dispatcherOptions) { o.classifications = classifications }
}

// WithSQLCountLimit sets the SQL warning threshold for executes without their own.
func WithSQLCountLimit(limit int) DispatcherOption {
	return func(o *dispatcherOptions) { o.sqlCountLimit = limit }
}

// NewRequestDispatcher creates a dispatcher over config. The config is
// frozen so no mapping can be added while serving.
func NewRequestDispatcher(config *ModuleConfig, opts ...DispatcherOption) *RequestDispatcher {
	o := &dispatcherOptions{
		tx:         dbaccess.NoTransactionRunner{},
		logger:     zerolog.Nop(),
		translator: DefaultExceptionTranslator,
		sessions:   NewMemorySessionStore(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.json == nil {
		o.json = jsonmanager.NewSimpleJSONManager(jsonmanager.WithLogger(o.logger))
	}
	if o.validator == nil {
		o.validator = validation.New()
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("github.com/toyz/ruts")
	}
	config.Freeze()
	return &RequestDispatcher{
		config:        config,
		binder:        NewFormBinder(o.json, o.classifications),
		responder:     NewActionResponder(o.json, o.templates),
		validator:     o.validator,
		tx:            o.tx,
		metrics:       o.metrics,
		tracer:        o.tracer,
		logger:        o.logger,
		sessions:      o.sessions,
		translator:    o.translator,
		sqlCountLimit: o.sqlCountLimit,
	}
}

// Mount registers the dispatcher as the catch-all route of server.
func (d *RequestDispatcher) Mount(server WebServerInterface, middlewares ...MiddlewareFunc) {
	for _, method := range []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	} {
		server.RegisterRoute(method, CatchAllPath, d.Handle, middlewares...)
	}
}

// Handle serves one request. Failures come back as *HTTPError.
func (d *RequestDispatcher) Handle(rc RequestContext) (err error) {
	resolved, ok := d.config.ResolveRequest(rc.Path(), rc.Method()).Get()
	if !ok {
		return NewHTTPError(http.StatusNotFound)
	}

	requestID := rc.Request().Header(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	rc.Response().SetHeader(requestIDHeader, requestID)

	ctx, span := d.tracer.Start(rc.Context(), resolved.Mapping.ActionName()+"@"+resolved.Execute.ExecuteKey(),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", rc.Method()),
			attribute.String("url.path", rc.Path()),
			attribute.String("ruts.action", resolved.Mapping.ActionName()),
			attribute.String("ruts.request_id", requestID),
		))
	defer span.End()

	rt := newActionRuntime(ctx, rc, resolved, requestID, d.logger)
	rt.validator = d.validator
	rt.sessions = d.sessions
	rt.translator = d.translator
	rt.sqlCountLimit = d.sqlCountLimit

	status := http.StatusOK
	defer func() {
		if r := recover(); r != nil {
			rt.logger.Error().Interface("panic", r).Msg("Panic while dispatching")
			err = NewHTTPError(http.StatusInternalServerError)
			err.(*HTTPError).Internal = fmt.Errorf("panic: %v", r)
		}
		if he, ok := err.(*HTTPError); ok {
			status = he.Code
		} else if written := rc.Response().Status(); written != 0 {
			status = written
		}
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		if d.metrics != nil {
			d.metrics.Observe(resolved.Mapping.ActionName(), resolved.Execute.ExecuteKey(), status, rt.Elapsed(), rt.RequestedSqlCount())
		}
	}()

	action, err := resolved.Mapping.CreateAction()
	if err != nil {
		return d.failure(rt, fmt.Errorf("create action %s: %w", resolved.Mapping.ActionName(), err))
	}
	rt.action = action
	callback, ok := action.(ActionCallback)
	if !ok {
		callback = &TypicalAction{}
	}

	response, err := RunGodHandChain(rt, callback, func(rt *ActionRuntime) (ActionResponse, error) {
		return d.invoke(rt, action)
	})
	if err != nil {
		return d.failure(rt, err)
	}
	if err := d.responder.Respond(rt, response); err != nil {
		return d.failure(rt, err)
	}
	return nil
}

func (d *RequestDispatcher) invoke(rt *ActionRuntime, action any) (response ActionResponse, err error) {
	call := func(ctx context.Context) error {
		rt.bindContext(ctx)
		args, err := d.binder.Arguments(rt)
		if err != nil {
			return err
		}
		response, err = callExecute(rt.execute, action, args)
		return err
	}

	outer := rt.Context()
	defer rt.bindContext(outer)
	if rt.execute.ExecuteOption().SuppressTransaction {
		err = call(outer)
	} else {
		err = d.tx.RunInTx(outer, call)
	}
	if err != nil {
		return nil, err
	}
	if stream, ok := response.(*StreamResponse); ok {
		if hook, ok := stream.AfterTxCommitHook().Get(); ok {
			hook()
		}
	}
	return response, nil
}

func callExecute(execute *ActionExecute, action any, args []reflect.Value) (ActionResponse, error) {
	in := make([]reflect.Value, 0, len(args)+1)
	in = append(in, reflect.ValueOf(action))
	in = append(in, args...)
	out := execute.Method().Func.Call(in)
	if errValue := out[1]; !errValue.IsNil() {
		return nil, errValue.Interface().(error)
	}
	result := out[0]
	if (result.Kind() == reflect.Pointer || result.Kind() == reflect.Interface) && result.IsNil() {
		return nil, &ExecuteUsageError{
			Kind: ErrIllegalResponse,
			Diagnostic: NewDiagnostic("The execute method returned a nil response without an error.").
				Item("Advice", "Return UndefinedResponse() when the execute writes the response itself.").
				Item("Execute Method", execute),
		}
	}
	return result.Interface().(ActionResponse), nil
}

// failure maps an error to the HTTP error returned to the adapter.
func (d *RequestDispatcher) failure(rt *ActionRuntime, err error) *HTTPError {
	var (
		delicate RequestDelicateError
		failed   *ValidationFailureError
		httpErr  *HTTPError
	)
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.As(err, &delicate):
		rt.logger.Debug().Err(err).Msg("Request delicate error")
		return &HTTPError{Code: delicate.HTTPStatus(), Message: delicate.Title(), Internal: err}
	case errors.As(err, &failed):
		return &HTTPError{
			Code:     http.StatusBadRequest,
			Message:  map[string]any{"messages": failed.Messages.ToMap()},
			Internal: err,
		}
	}
	if appErr, ok := AsApplicationError(err); ok {
		return &HTTPError{
			Code:     http.StatusBadRequest,
			Message:  map[string]any{"messages": appErr.Messages},
			Internal: err,
		}
	}
	rt.logger.Error().Err(err).Msg("Action failed")
	return &HTTPError{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError), Internal: err}
}

// MountMetrics serves the metrics on path.
func (d *RequestDispatcher) MountMetrics(server WebServerInterface, path string) {
	if d.metrics == nil || path == "" {
		return
	}
	server.RegisterHTTPHandler(http.MethodGet, RoutePath(path), d.metrics.Handler())
}

// Routes lists the dispatchable routes.
func (d *RequestDispatcher) Routes() []RouteInfo {
	return d.config.Routes()
}
