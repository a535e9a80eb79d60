package ruts

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamingConvention_PackageSegments(t *testing.T) {
	n := DefaultNamingConvention()
	tests := []struct {
		pkgPath string
		want    []string
	}{
		{"example.com/app/web", []string{}},
		{"example.com/app/web/sea", []string{"sea"}},
		{"example.com/app/web/sea/land", []string{"sea", "land"}},
		{"example.com/web/app/web/sea", []string{"sea"}},
		{"example.com/app/service", nil},
	}
	for _, tt := range tests {
		t.Run(tt.pkgPath, func(t *testing.T) {
			assert.Equal(t, tt.want, n.PackageSegments(tt.pkgPath))
		})
	}
}

func TestNamingConvention_ActionPath(t *testing.T) {
	n := DefaultNamingConvention()
	tests := []struct {
		actionName string
		want       string
	}{
		{"rootAction", "/"},
		{"seaAction", "/sea/"},
		{"seaLandAction", "/sea/land/"},
		{"sea_seaAction", "/sea/"},
		{"sea_seaLandAction", "/sea/land/"},
		{"sea_landAction", "/sea/land/"},
		{"sea_land_seaLandPiariAction", "/sea/land/piari/"},
		{"product_productListAction", "/product/list/"},
	}
	for _, tt := range tests {
		t.Run(tt.actionName, func(t *testing.T) {
			assert.Equal(t, tt.want, n.ActionPath(tt.actionName))
		})
	}
}

func TestNamingConvention_ActionName(t *testing.T) {
	n := DefaultNamingConvention()
	assert.Equal(t, "seaAction", n.ActionName(reflect.TypeOf(&SeaAction{})))

	n.WebPackage = "ruts"
	assert.Equal(t, "seaAction", n.ActionName(reflect.TypeOf(SeaAction{})))
}

func TestNamingConvention_IsFormType(t *testing.T) {
	n := DefaultNamingConvention()
	pkg := reflect.TypeOf(SeaAction{}).PkgPath()

	assert.True(t, n.IsFormType(reflect.TypeOf(&LonelyForm{}), pkg))
	assert.True(t, n.IsFormType(reflect.TypeOf(MarkedForm{}), pkg))
	assert.False(t, n.IsFormType(reflect.TypeOf(SeaPart{}), pkg))
	assert.False(t, n.IsFormType(reflect.TypeOf(""), pkg))
	assert.False(t, n.IsFormType(reflect.TypeOf(&LonelyForm{}), "example.com/other"))
}

func TestSplitRestfulName(t *testing.T) {
	tests := []struct {
		method      string
		verb        string
		mappingName string
	}{
		{"GetIndex", "get", "index"},
		{"PostLand", "post", "land"},
		{"DeleteSea", "delete", "sea"},
		{"Getaway", "", "getaway"},
		{"Get", "", "get"},
		{"Land", "", "land"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			verb, name := splitRestfulName(tt.method)
			assert.Equal(t, tt.verb, verb)
			assert.Equal(t, tt.mappingName, name)
		})
	}
}

func TestSplitCamel(t *testing.T) {
	assert.Equal(t, []string{"sea", "land"}, splitCamel("SeaLand"))
	assert.Equal(t, []string{"html", "page"}, splitCamel("HTMLPage"))
	assert.Equal(t, []string{"sea"}, splitCamel("Sea"))
}

func urlParam(t reflect.Type, optional bool) *ExecuteParameter {
	p := &ExecuteParameter{paramType: t, valueType: t, kind: URLParameter}
	if optional {
		elem, _ := optionalElemOf(t)
		p.valueType = elem
		p.optional = true
	}
	return p
}

func TestPrepareURLPattern(t *testing.T) {
	intParam := urlParam(reflect.TypeOf(0), false)
	stringParam := urlParam(reflect.TypeOf(""), false)
	optionalString := urlParam(reflect.TypeOf(Optional[string]{}), true)

	tests := []struct {
		name       string
		mapping    string
		index      bool
		pattern    string
		params     []*ExecuteParameter
		resolved   string
		matches    map[string][]string
		notMatches []string
	}{
		{
			name:       "index without parameters",
			mapping:    "index",
			index:      true,
			resolved:   "",
			matches:    map[string][]string{"": {}},
			notMatches: []string{"land"},
		},
		{
			name:       "named with number",
			mapping:    "land",
			params:     []*ExecuteParameter{intParam},
			resolved:   "land/{}",
			matches:    map[string][]string{"land/3": {"3"}, "land/-1": {"-1"}},
			notMatches: []string{"land/abc", "land", "sea/3"},
		},
		{
			name:       "index with optional",
			mapping:    "index",
			index:      true,
			params:     []*ExecuteParameter{intParam, optionalString},
			resolved:   "{}/{}",
			matches:    map[string][]string{"3": {"3", ""}, "3/mystic": {"3", "mystic"}},
			notMatches: []string{"mystic"},
		},
		{
			name:     "explicit pattern",
			mapping:  "land",
			pattern:  "{}/of/{}",
			params:   []*ExecuteParameter{intParam, stringParam},
			resolved: "land/{}/of/{}",
			matches:  map[string][]string{"land/1/of/sea": {"1", "sea"}},
		},
		{
			name:     "method name mark",
			mapping:  "land",
			pattern:  "piari/@word/{}",
			params:   []*ExecuteParameter{stringParam},
			resolved: "piari/land/{}",
			matches:  map[string][]string{"piari/land/bonvo": {"bonvo"}},
		},
		{
			name:     "mark inside segment",
			mapping:  "land",
			pattern:  "item-{}",
			params:   []*ExecuteParameter{intParam},
			resolved: "land/item-{}",
			matches:  map[string][]string{"land/item-7": {"7"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := prepareURLPattern(tt.mapping, tt.index, ExecuteOption{URLPattern: tt.pattern}, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.resolved, p.ResolvedPattern())
			assert.Equal(t, tt.pattern != "", p.IsSpecified())
			for path, want := range tt.matches {
				got, ok := p.Match(path)
				require.True(t, ok, path)
				assert.Equal(t, want, got, path)
			}
			for _, path := range tt.notMatches {
				_, ok := p.Match(path)
				assert.False(t, ok, path)
			}
		})
	}
}

func TestPrepareURLPattern_MarkCountMismatch(t *testing.T) {
	_, err := prepareURLPattern("land", false, ExecuteOption{URLPattern: "{}/{}"}, []*ExecuteParameter{urlParam(reflect.TypeOf(0), false)})
	assert.Error(t, err)
}

type Color string

func (c Color) Code() string { return string(c) }
func (c Color) Alias() string { return "color " + string(c) }

func TestConvertURLParam(t *testing.T) {
	RegisterClassification(func(code string) (Color, bool) {
		switch code {
		case "red", "blue":
			return Color(code), true
		}
		return "", false
	})

	v, err := convertURLParam("42", reflect.TypeOf(int64(0)), DefaultClassificationProvider)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Interface())

	v, err = convertURLParam("true", reflect.TypeOf(false), DefaultClassificationProvider)
	require.NoError(t, err)
	assert.Equal(t, true, v.Interface())

	id := uuid.New()
	v, err = convertURLParam(id.String(), reflect.TypeOf(uuid.UUID{}), DefaultClassificationProvider)
	require.NoError(t, err)
	assert.Equal(t, id, v.Interface())

	v, err = convertURLParam("red", reflect.TypeOf(Color("")), DefaultClassificationProvider)
	require.NoError(t, err)
	assert.Equal(t, Color("red"), v.Interface())

	_, err = convertURLParam("green", reflect.TypeOf(Color("")), DefaultClassificationProvider)
	assert.Error(t, err)
	_, err = convertURLParam("abc", reflect.TypeOf(0), DefaultClassificationProvider)
	assert.Error(t, err)
}
