package ruts

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCallback struct {
	calls []string

	prologue  ActionResponse
	before    ActionResponse
	monologue ActionResponse
	epilogue  error
	panicAt   string
}

func (c *recordingCallback) record(name string) {
	c.calls = append(c.calls, name)
	if c.panicAt == name {
		panic("boom at " + name)
	}
}

func (c *recordingCallback) GodHandPrologue(rt *ActionRuntime) (ActionResponse, error) {
	c.record("godHandPrologue")
	return c.prologue, nil
}

func (c *recordingCallback) GodHandBefore(rt *ActionRuntime) (ActionResponse, error) {
	c.record("godHandBefore")
	return c.before, nil
}

func (c *recordingCallback) CallbackBefore(rt *ActionRuntime) (ActionResponse, error) {
	c.record("callbackBefore")
	return nil, nil
}

func (c *recordingCallback) GodHandMonologue(rt *ActionRuntime) (ActionResponse, error) {
	c.record("godHandMonologue")
	return c.monologue, nil
}

func (c *recordingCallback) GodHandEpilogue(rt *ActionRuntime) error {
	c.record("godHandEpilogue")
	return c.epilogue
}

func (c *recordingCallback) CallbackFinally(rt *ActionRuntime) { c.record("callbackFinally") }
func (c *recordingCallback) GodHandFinally(rt *ActionRuntime) { c.record("godHandFinally") }

func newTestRuntime() *ActionRuntime {
	return &ActionRuntime{logger: zerolog.Nop(), ctx: context.Background()}
}

func executeReturning(c *recordingCallback, resp ActionResponse, err error) ExecuteFunc {
	return func(rt *ActionRuntime) (ActionResponse, error) {
		c.record("execute")
		return resp, err
	}
}

func stagesOf(rt *ActionRuntime) []Stage {
	var stages []Stage
	for _, result := range rt.StageResults() {
		stages = append(stages, result.Stage)
	}
	return stages
}

func TestRunGodHandChain_Order(t *testing.T) {
	rt := newTestRuntime()
	c := &recordingCallback{}
	var finallyRan bool
	rt.onFinally(func() { finallyRan = true })

	resp, err := RunGodHandChain(rt, c, executeReturning(c, AsJSON("sea"), nil))
	require.NoError(t, err)
	assert.Equal(t, "sea", resp.(*JSONResponse).Body())
	assert.Equal(t, []string{
		"godHandPrologue", "godHandBefore", "callbackBefore", "execute",
		"godHandEpilogue", "callbackFinally", "godHandFinally",
	}, c.calls)
	assert.True(t, finallyRan)
	assert.Equal(t, []Stage{StagePrologue, StageBefore, StageExecute, StageEpilogue, StageFinally}, stagesOf(rt))
	assert.Same(t, resp, rt.ActionResponse())
}

func TestRunGodHandChain_PrologueShortCircuit(t *testing.T) {
	rt := newTestRuntime()
	c := &recordingCallback{prologue: AsJSON("maintenance").Status(503)}

	resp, err := RunGodHandChain(rt, c, executeReturning(c, AsJSON("sea"), nil))
	require.NoError(t, err)
	assert.Equal(t, "maintenance", resp.(*JSONResponse).Body())
	assert.Equal(t, []string{"godHandPrologue", "godHandEpilogue", "callbackFinally", "godHandFinally"}, c.calls)
}

func TestRunGodHandChain_GodHandBeforeSkipsCallbackBefore(t *testing.T) {
	rt := newTestRuntime()
	c := &recordingCallback{before: AsJSON("login")}

	resp, err := RunGodHandChain(rt, c, executeReturning(c, AsJSON("sea"), nil))
	require.NoError(t, err)
	assert.Equal(t, "login", resp.(*JSONResponse).Body())
	assert.NotContains(t, c.calls, "callbackBefore")
	assert.NotContains(t, c.calls, "execute")
}

func TestRunGodHandChain_Monologue(t *testing.T) {
	appErr := NewApplicationError("no stock", ApplicationMessage{Key: "errors.no.stock"})

	t.Run("handled", func(t *testing.T) {
		rt := newTestRuntime()
		c := &recordingCallback{monologue: AsJSON("sorry").Status(409)}

		resp, err := RunGodHandChain(rt, c, executeReturning(c, nil, appErr))
		require.NoError(t, err)
		assert.Equal(t, "sorry", resp.(*JSONResponse).Body())
		assert.Contains(t, c.calls, "godHandMonologue")
		assert.Same(t, appErr, rt.FailureCause())
	})
	t.Run("declined", func(t *testing.T) {
		rt := newTestRuntime()
		c := &recordingCallback{}

		resp, err := RunGodHandChain(rt, c, executeReturning(c, AsJSON("ignored"), appErr))
		assert.Nil(t, resp)
		assert.Same(t, appErr, err)
		assert.Contains(t, c.calls, "godHandMonologue")
		assert.True(t, rt.IsFailure())
	})
	t.Run("not an application error", func(t *testing.T) {
		rt := newTestRuntime()
		c := &recordingCallback{monologue: AsJSON("never")}
		broken := errors.New("broken")

		_, err := RunGodHandChain(rt, c, executeReturning(c, nil, broken))
		assert.Same(t, broken, err)
		assert.NotContains(t, c.calls, "godHandMonologue")
		assert.Contains(t, c.calls, "godHandEpilogue")
	})
}

func TestRunGodHandChain_Panic(t *testing.T) {
	rt := newTestRuntime()
	c := &recordingCallback{panicAt: "execute"}
	var finallyRan bool
	rt.onFinally(func() { finallyRan = true })

	resp, err := RunGodHandChain(rt, c, executeReturning(c, AsJSON("sea"), nil))
	assert.Nil(t, resp)

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, StageExecute, panicErr.Stage)
	assert.Equal(t, "boom at execute", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Contains(t, c.calls, "godHandFinally")
	assert.True(t, finallyRan)
}

func TestRunGodHandChain_PanicInFinally(t *testing.T) {
	rt := newTestRuntime()
	c := &recordingCallback{panicAt: "callbackFinally"}
	var finallyRan bool
	rt.onFinally(func() { finallyRan = true })

	resp, err := RunGodHandChain(rt, c, executeReturning(c, AsJSON("sea"), nil))
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Contains(t, c.calls, "godHandFinally")
	assert.True(t, finallyRan)

	results := rt.StageResults()
	last := results[len(results)-1]
	assert.Equal(t, StageFinally, last.Stage)
	assert.Error(t, last.Err)
}

func TestRunGodHandChain_Epilogue(t *testing.T) {
	epilogueErr := errors.New("validator not called")

	t.Run("replaces success", func(t *testing.T) {
		rt := newTestRuntime()
		c := &recordingCallback{epilogue: epilogueErr}

		resp, err := RunGodHandChain(rt, c, executeReturning(c, AsJSON("sea"), nil))
		assert.Nil(t, resp)
		assert.Same(t, epilogueErr, err)
		assert.Nil(t, rt.ActionResponse())
	})
	t.Run("keeps earlier error", func(t *testing.T) {
		rt := newTestRuntime()
		c := &recordingCallback{epilogue: epilogueErr}
		broken := errors.New("broken")

		_, err := RunGodHandChain(rt, c, executeReturning(c, nil, broken))
		assert.Same(t, broken, err)
	})
}

func TestRunGodHandChain_FinalliesInOrder(t *testing.T) {
	rt := newTestRuntime()
	c := &recordingCallback{}
	var order []int
	rt.onFinally(func() { order = append(order, 1) })
	rt.onFinally(func() { order = append(order, 2) })

	_, err := RunGodHandChain(rt, c, executeReturning(c, AsJSON("sea"), nil))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, order)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "monologue", StageMonologue.String())
	assert.Equal(t, "Stage(42)", Stage(42).String())
}
