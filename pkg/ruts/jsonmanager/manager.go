package jsonmanager

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// RealJSONParser is the codec a Manager delegates to.
type RealJSONParser interface {
	ToJSON(v any) ([]byte, error)
	FromJSON(data []byte, v any) error
}

// Manager encodes and decodes request and response payloads.
type Manager interface {
	Encode(v any) (string, error)
	Decode(data string, v any) error
	// DecodeList decodes a JSON array into list, which must be a pointer to a slice.
	DecodeList(data string, list any) error
	// MappingJSONTo decodes into the instance returned by supplier.
	MappingJSONTo(data string, supplier func() (any, error)) (any, error)
	// MappingJSONToList decodes every array element into a fresh instance from supplier.
	MappingJSONToList(data string, supplier func() (any, error)) ([]any, error)
}

// GoJSONParser is the default parser backed by goccy/go-json.
type GoJSONParser struct {
	Pretty          bool
	DisallowUnknown bool
}

// Name identifies the parser in boot logging.
func (p GoJSONParser) Name() string {
	return "goccy/go-json"
}

func (p GoJSONParser) ToJSON(v any) ([]byte, error) {
	if p.Pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func (p GoJSONParser) FromJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if p.DisallowUnknown {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(v)
}

// ParseError reports a payload that could not be mapped to its target type.
type ParseError struct {
	Target string
	JSON   string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse the JSON to %s: %v (json=%s)", e.Target, e.Cause, abbreviate(e.JSON, 100))
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// SimpleJSONManager is the stock Manager implementation.
type SimpleJSONManager struct {
	parser RealJSONParser
	logger zerolog.Logger
}

// Option configures a SimpleJSONManager.
type Option func(*SimpleJSONManager)

// WithParser replaces the underlying codec.
func WithParser(parser RealJSONParser) Option {
	return func(m *SimpleJSONManager) {
		m.parser = parser
	}
}

// WithLogger sets the logger used for boot logging.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *SimpleJSONManager) {
		m.logger = logger
	}
}

// NewSimpleJSONManager creates a manager with the go-json parser unless replaced by an option.
func NewSimpleJSONManager(opts ...Option) *SimpleJSONManager {
	m := &SimpleJSONManager{
		parser: GoJSONParser{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger.Info().Str("parser", parserName(m.parser)).Msg("[JSON Manager] booted")
	return m
}

func (m *SimpleJSONManager) Encode(v any) (string, error) {
	data, err := m.parser.ToJSON(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode %T to JSON: %w", v, err)
	}
	return string(data), nil
}

func (m *SimpleJSONManager) Decode(data string, v any) error {
	if err := m.parser.FromJSON([]byte(data), v); err != nil {
		return &ParseError{Target: fmt.Sprintf("%T", v), JSON: data, Cause: err}
	}
	return nil
}

func (m *SimpleJSONManager) DecodeList(data string, list any) error {
	rv := reflect.ValueOf(list)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("list must be a pointer to a slice: %T", list)
	}
	if !IsArrayJSON([]byte(data)) {
		return &ParseError{Target: rv.Elem().Type().String(), JSON: data, Cause: fmt.Errorf("not a JSON array")}
	}
	return m.Decode(data, list)
}

func (m *SimpleJSONManager) MappingJSONTo(data string, supplier func() (any, error)) (any, error) {
	target, err := supplier()
	if err != nil {
		return nil, err
	}
	if err := m.Decode(data, target); err != nil {
		return nil, err
	}
	return target, nil
}

func (m *SimpleJSONManager) MappingJSONToList(data string, supplier func() (any, error)) ([]any, error) {
	parsed := gjson.Parse(data)
	if !gjson.Valid(data) || !parsed.IsArray() {
		return nil, &ParseError{Target: "list", JSON: data, Cause: fmt.Errorf("not a JSON array")}
	}
	var result []any
	var mappingErr error
	parsed.ForEach(func(_, element gjson.Result) bool {
		target, err := m.MappingJSONTo(element.Raw, supplier)
		if err != nil {
			mappingErr = err
			return false
		}
		result = append(result, target)
		return true
	})
	if mappingErr != nil {
		return nil, mappingErr
	}
	return result, nil
}

// Decode decodes data into a new T.
func Decode[T any](m Manager, data string) (T, error) {
	var v T
	err := m.Decode(data, &v)
	return v, err
}

// DecodeList decodes a JSON array into a []T.
func DecodeList[T any](m Manager, data string) ([]T, error) {
	var list []T
	err := m.DecodeList(data, &list)
	return list, err
}

// IsArrayJSON reports whether data holds a well-formed JSON array.
func IsArrayJSON(data []byte) bool {
	return gjson.ValidBytes(data) && gjson.ParseBytes(data).IsArray()
}

func parserName(p RealJSONParser) string {
	if named, ok := p.(interface{ Name() string }); ok {
		return named.Name()
	}
	return fmt.Sprintf("%T", p)
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
