package ruts

import (
	"net/url"
	"strconv"
	"strings"
)

// QueryMap gives typed access to query parameters. An execute method may
// declare it as a parameter.
type QueryMap struct {
	values url.Values
}

// NewQueryMap creates a QueryMap from raw query values.
func NewQueryMap(values map[string][]string) QueryMap {
	return QueryMap{values: url.Values(values)}
}

// Get returns the first value for key, or "".
func (q QueryMap) Get(key string) string {
	return q.values.Get(key)
}

// GetDefault returns the first value for key, or defaultValue when missing.
func (q QueryMap) GetDefault(key, defaultValue string) string {
	if value := q.values.Get(key); value != "" {
		return value
	}
	return defaultValue
}

// GetInt returns the value as an int, or 0 when missing or invalid.
func (q QueryMap) GetInt(key string) int {
	return q.GetIntDefault(key, 0)
}

func (q QueryMap) GetIntDefault(key string, defaultValue int) int {
	if value := q.values.Get(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetBool accepts "true", "1", "yes" and "on", case insensitive.
func (q QueryMap) GetBool(key string) bool {
	switch strings.ToLower(q.values.Get(key)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}

func (q QueryMap) GetAll(key string) []string {
	return q.values[key]
}

func (q QueryMap) Has(key string) bool {
	_, exists := q.values[key]
	return exists
}

func (q QueryMap) ToMap() map[string][]string {
	return map[string][]string(q.values)
}
