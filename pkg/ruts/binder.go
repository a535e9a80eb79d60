package ruts

import (
	"encoding"
	"fmt"
	"mime"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/toyz/ruts/pkg/ruts/jsonmanager"
)

// FormBinder fills execute arguments from the request.
type FormBinder struct {
	json            jsonmanager.Manager
	classifications ClassificationProvider
	multipart       func() MultipartRequestHandler
}

// NewFormBinder creates a binder using json for request bodies.
func NewFormBinder(json jsonmanager.Manager, classifications ClassificationProvider) *FormBinder {
	if classifications == nil {
		classifications = DefaultClassificationProvider
	}
	return &FormBinder{
		json:            json,
		classifications: classifications,
		multipart: func() MultipartRequestHandler {
			return NewDefaultMultipartRequestHandler(0)
		},
	}
}

// WithMultipartHandler replaces the multipart handler factory.
func (b *FormBinder) WithMultipartHandler(factory func() MultipartRequestHandler) *FormBinder {
	b.multipart = factory
	return b
}

// Arguments builds the argument list of the execute method, receiver excluded.
func (b *FormBinder) Arguments(rt *ActionRuntime) ([]reflect.Value, error) {
	execute := rt.execute
	var rawValues []string
	if execute.HasURLParameter() {
		matched, ok := execute.urlPattern.Match(rt.paramPath)
		if !ok {
			return nil, &ForcedRequest404NotFoundError{DebugMsg: "the URL parameters do not match " + execute.urlPattern.String()}
		}
		rawValues = matched
	}

	args := make([]reflect.Value, len(execute.params))
	urlIndex := 0
	for i, param := range execute.params {
		switch param.kind {
		case InjectedParameter:
			args[i] = b.injected(rt, param.paramType)
		case URLParameter:
			raw := ""
			if urlIndex < len(rawValues) {
				raw = rawValues[urlIndex]
			}
			urlIndex++
			value, err := b.urlParameter(raw, param)
			if err != nil {
				return nil, err
			}
			args[i] = value
		case FormParameter:
			value, err := b.form(rt, param)
			if err != nil {
				return nil, err
			}
			args[i] = value
		}
	}
	return args, nil
}

func (b *FormBinder) injected(rt *ActionRuntime, t reflect.Type) reflect.Value {
	switch t {
	case runtimeType:
		return reflect.ValueOf(rt)
	case requestContextType:
		return reflect.ValueOf(&rt.rc).Elem()
	case queryMapType:
		return reflect.ValueOf(NewQueryMap(rt.rc.QueryParams()))
	default:
		ctx := rt.Context()
		return reflect.ValueOf(&ctx).Elem()
	}
}

func (b *FormBinder) urlParameter(raw string, param *ExecuteParameter) (reflect.Value, error) {
	if raw == "" {
		if param.optional {
			return newOptionalValue(param.paramType, reflect.Value{}), nil
		}
		return reflect.Value{}, &ForcedRequest404NotFoundError{
			DebugMsg: fmt.Sprintf("the URL parameter #%d is required", param.index),
		}
	}
	value, err := convertURLParam(raw, param.valueType, b.classifications)
	if err != nil {
		return reflect.Value{}, &ForcedRequest404NotFoundError{
			DebugMsg: fmt.Sprintf("cannot convert the URL parameter %q to %v", raw, param.valueType),
			Cause:    err,
		}
	}
	if param.optional {
		return newOptionalValue(param.paramType, value), nil
	}
	return value, nil
}

func (b *FormBinder) form(rt *ActionRuntime, param *ExecuteParameter) (reflect.Value, error) {
	meta, _ := rt.execute.FormMeta().Get()
	if param.listForm {
		return b.listBody(rt, param, meta)
	}

	virtual := meta.CreateActionForm()
	rt.form = virtual
	form, err := virtual.Realize()
	if err != nil {
		return reflect.Value{}, err
	}
	if isJSONRequest(rt.rc) {
		body, err := rt.rc.Request().Body()
		if err != nil {
			return reflect.Value{}, badRequest("cannot read the request body", err)
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if jsonmanager.IsArrayJSON(body) {
				return reflect.Value{}, badRequest("the body is a JSON array but the execute takes "+meta.FormType().String(), nil)
			}
			if err := b.json.Decode(string(body), form); err != nil {
				return reflect.Value{}, badRequest("cannot parse the JSON body", err)
			}
		}
	} else if isMultipartRequest(rt.rc) {
		handler := b.multipart()
		if err := handler.HandleRequest(rt.rc); err != nil {
			return reflect.Value{}, err
		}
		rt.onFinally(handler.Finish)
		if err := b.decode(handler.TextElements(), form); err != nil {
			return reflect.Value{}, err
		}
		bindFiles(meta, form, handler.FileElements())
	} else if err := b.bindParameters(rt.rc, form); err != nil {
		return reflect.Value{}, err
	}
	return adjustPointer(reflect.ValueOf(form), param.paramType), nil
}

func (b *FormBinder) listBody(rt *ActionRuntime, param *ExecuteParameter, meta *ActionFormMeta) (reflect.Value, error) {
	body, err := rt.rc.Request().Body()
	if err != nil {
		return reflect.Value{}, badRequest("cannot read the request body", err)
	}
	items, err := b.json.MappingJSONToList(string(body), meta.newFormInstance)
	if err != nil {
		return reflect.Value{}, badRequest("cannot parse the JSON array body", err)
	}
	list := reflect.MakeSlice(param.paramType, 0, len(items))
	elemType := param.paramType.Elem()
	for _, item := range items {
		list = reflect.Append(list, adjustPointer(reflect.ValueOf(item), elemType))
	}
	return list, nil
}

// bindParameters decodes query and form parameters into form by the "form" tag.
func (b *FormBinder) bindParameters(rc RequestContext, form any) error {
	params := make(map[string][]string)
	for key, values := range rc.QueryParams() {
		params[key] = values
	}
	if rc.Method() != "GET" && rc.Method() != "HEAD" {
		if values, err := rc.FormParams(); err == nil {
			for key, vs := range values {
				params[key] = vs
			}
		}
	}
	return b.decode(params, form)
}

func (b *FormBinder) decode(params map[string][]string, form any) error {
	input := make(map[string]any, len(params))
	for key, values := range params {
		if len(values) == 1 {
			input[key] = values[0]
		} else {
			input[key] = values
		}
	}
	if len(input) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		Result:           form,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			textUnmarshalerHook,
			b.classificationHook,
		),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return badRequest("cannot bind the request parameters", err)
	}
	return nil
}

func textUnmarshalerHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() == reflect.String || !reflect.PointerTo(to).Implements(textUnmarshalerType) {
		return data, nil
	}
	target := reflect.New(to)
	if err := target.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(reflect.ValueOf(data).String())); err != nil {
		return nil, err
	}
	return target.Elem().Interface(), nil
}

func (b *FormBinder) classificationHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || !isClassificationType(to) {
		return data, nil
	}
	found, ok := b.classifications.CodeOf(to, reflect.ValueOf(data).String())
	if !ok {
		return nil, fmt.Errorf("unknown code %q for classification %v", data, to)
	}
	return found, nil
}

func isJSONRequest(rc RequestContext) bool {
	mediaType, _, err := mime.ParseMediaType(rc.Request().ContentType())
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// adjustPointer turns the *T form instance into the declared T or *T.
func adjustPointer(v reflect.Value, declared reflect.Type) reflect.Value {
	if declared.Kind() != reflect.Pointer && v.Kind() == reflect.Pointer {
		return v.Elem()
	}
	return v
}

func badRequest(debugMsg string, cause error) *ForcedRequest400BadRequestError {
	if cause != nil {
		debugMsg += ": " + cause.Error()
	}
	return &ForcedRequest400BadRequestError{DebugMsg: debugMsg, Cause: cause}
}
