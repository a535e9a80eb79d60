package ruts

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var (
	uuidType            = reflect.TypeOf(uuid.UUID{})
	timeType            = reflect.TypeOf(time.Time{})
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// isURLParamType reports whether a URL segment can be converted to t.
func isURLParamType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return t == uuidType || isClassificationType(t) || reflect.PointerTo(t).Implements(textUnmarshalerType)
}

func isNumberType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isIntegerType(t reflect.Type) bool {
	return isNumberType(t) && t.Kind() != reflect.Float32 && t.Kind() != reflect.Float64
}

// convertURLParam converts one URL segment to t.
func convertURLParam(raw string, t reflect.Type, classifications ClassificationProvider) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	switch {
	case t == uuidType:
		id, err := uuid.Parse(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(id), nil
	case isClassificationType(t):
		found, ok := classifications.CodeOf(t, raw)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown code %q for classification %v", raw, t)
		}
		return reflect.ValueOf(found).Convert(t), nil
	case reflect.PointerTo(t).Implements(textUnmarshalerType) && t.Kind() != reflect.String:
		if err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw)); err != nil {
			return reflect.Value{}, err
		}
		return v, nil
	}

	switch t.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		v.SetFloat(f)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported URL parameter type %v", t)
	}
	return v, nil
}
