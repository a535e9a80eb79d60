package ruts

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTideTooLow = errors.New("tide too low")

type DefaultedForm struct {
	Page int `form:"page"`
}

func (f *DefaultedForm) InitForm() error {
	f.Page = 1
	return nil
}

type FailingForm struct {
	Name string `form:"name"`
}

func (f *FailingForm) InitForm() error { return errTideTooLow }

type PanickingForm struct {
	Name string `form:"name"`
}

func (f *PanickingForm) InitForm() error { panic("rough sea") }

type FactoryAction struct{}

func (a *FactoryAction) Defaulted(form *DefaultedForm) (*JSONResponse, error) { return AsJSON(form), nil }
func (a *FactoryAction) Failing(form *FailingForm) (*JSONResponse, error) { return AsJSON(form), nil }
func (a *FactoryAction) Panicking(form *PanickingForm) (*JSONResponse, error) { return AsJSON(form), nil }

func factoryFormMeta(t *testing.T, executeName string) *ActionFormMeta {
	t.Helper()
	tc := newTestCustomizer().annotate(&FactoryAction{}, Execute("Defaulted"), Execute("Failing"), Execute("Panicking"))
	require.NoError(t, tc.customize(&FactoryAction{}))

	mapping, ok := tc.config.FindActionMapping("factoryAction").Get()
	require.True(t, ok)
	execute, ok := mapping.FindExecuteByName(executeName).Get()
	require.True(t, ok)
	meta, ok := execute.FormMeta().Get()
	require.True(t, ok)
	return meta
}

func TestVirtualForm_RealizesOnce(t *testing.T) {
	meta := factoryFormMeta(t, "defaulted")
	form := meta.CreateActionForm()
	assert.False(t, form.IsRealized())
	assert.Same(t, meta, form.FormMeta())

	first, err := form.Realize()
	require.NoError(t, err)
	assert.True(t, form.IsRealized())
	assert.Equal(t, &DefaultedForm{Page: 1}, first)

	second, err := form.Realize()
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestVirtualForm_CreateFailure(t *testing.T) {
	tests := []struct {
		name     string
		execute  string
		formType reflect.Type
		check    func(t *testing.T, cause error)
	}{
		{"init error", "failing", reflect.TypeOf(FailingForm{}), func(t *testing.T, cause error) {
			assert.ErrorIs(t, cause, errTideTooLow)
		}},
		{"init panic", "panicking", reflect.TypeOf(PanickingForm{}), func(t *testing.T, cause error) {
			assert.Contains(t, cause.Error(), "rough sea")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := factoryFormMeta(t, tt.execute).CreateActionForm()
			assert.False(t, form.IsRealized())

			created, err := form.Realize()
			assert.Nil(t, created)
			assert.False(t, form.IsRealized())

			var failure *ActionFormCreateFailureError
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.formType, failure.FormType)
			assert.ErrorIs(t, err, failure.Cause)
			tt.check(t, failure.Cause)
		})
	}
}

func TestVirtualForm_ListFormType(t *testing.T) {
	meta := &ActionFormMeta{formType: reflect.TypeOf([]SeaPart{})}
	_, err := meta.CreateActionForm().Realize()
	assert.ErrorIs(t, err, ErrFormTypeIsList)

	var usage *ExecuteUsageError
	require.ErrorAs(t, err, &usage)
	assert.Equal(t, []string{"[]ruts.SeaPart"}, usage.Diagnostic.ItemElements("Form Type"))
}
