package ruts

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Stage is one step of the action lifecycle.
type Stage int

const (
	StagePrologue Stage = iota
	StageBefore
	StageExecute
	StageMonologue
	StageEpilogue
	StageFinally
)

func (s Stage) String() string {
	switch s {
	case StagePrologue:
		return "prologue"
	case StageBefore:
		return "before"
	case StageExecute:
		return "execute"
	case StageMonologue:
		return "monologue"
	case StageEpilogue:
		return "epilogue"
	case StageFinally:
		return "finally"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// StageResult records the outcome of one finished stage.
type StageResult struct {
	Stage    Stage
	Response ActionResponse
	Err      error
	Elapsed  time.Duration
}

// ActionCallback is the god-hand and callback hook set of an action. Embed
// TypicalAction to get the default behavior and override what you need.
//
// A non-nil response from a prologue or before hook short-circuits the
// execute method. The monologue hook runs only for application errors and
// may turn them into a response; returning nil declines. Epilogue and
// finally hooks always run.
type ActionCallback interface {
	GodHandPrologue(rt *ActionRuntime) (ActionResponse, error)
	GodHandBefore(rt *ActionRuntime) (ActionResponse, error)
	CallbackBefore(rt *ActionRuntime) (ActionResponse, error)
	GodHandMonologue(rt *ActionRuntime) (ActionResponse, error)
	GodHandEpilogue(rt *ActionRuntime) error
	CallbackFinally(rt *ActionRuntime)
	GodHandFinally(rt *ActionRuntime)
}

// ExecuteFunc runs the execute method itself.
type ExecuteFunc func(rt *ActionRuntime) (ActionResponse, error)

// PanicError is a panic recovered from a lifecycle stage.
type PanicError struct {
	Stage Stage
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic at %s: %v", e.Stage, e.Value)
}

// Unwrap exposes a panicked error value.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// RunGodHandChain drives one request through the lifecycle stages.
func RunGodHandChain(rt *ActionRuntime, callback ActionCallback, execute ExecuteFunc) (response ActionResponse, err error) {
	defer func() {
		rt.runFinally(callback)
	}()

	response, err = rt.runStage(StagePrologue, func() (ActionResponse, error) {
		return callback.GodHandPrologue(rt)
	})
	if err == nil && response == nil {
		response, err = rt.runStage(StageBefore, func() (ActionResponse, error) {
			if resp, err := callback.GodHandBefore(rt); err != nil || resp != nil {
				return resp, err
			}
			return callback.CallbackBefore(rt)
		})
	}
	if err == nil && response == nil {
		response, err = rt.runStage(StageExecute, func() (ActionResponse, error) {
			return execute(rt)
		})
	}

	if err != nil {
		err = rt.translate(err)
		rt.failureCause = err
		if _, ok := AsApplicationError(err); ok {
			handled, monoErr := rt.runStage(StageMonologue, func() (ActionResponse, error) {
				return callback.GodHandMonologue(rt)
			})
			switch {
			case monoErr != nil:
				err = monoErr
				rt.failureCause = err
			case handled != nil:
				response, err = handled, nil
			}
		}
	}
	if err != nil {
		response = nil
	}
	rt.response = response

	_, epilogueErr := rt.runStage(StageEpilogue, func() (ActionResponse, error) {
		return nil, callback.GodHandEpilogue(rt)
	})
	if epilogueErr != nil && err == nil {
		response, err = nil, epilogueErr
		rt.response = nil
		rt.failureCause = err
	}
	return response, err
}

func (rt *ActionRuntime) runFinally(callback ActionCallback) {
	rt.runStage(StageFinally, func() (ActionResponse, error) {
		defer func() {
			for _, fn := range rt.finallies {
				fn()
			}
		}()
		defer callback.GodHandFinally(rt)
		callback.CallbackFinally(rt)
		return nil, nil
	})
}

func (rt *ActionRuntime) runStage(stage Stage, fn func() (ActionResponse, error)) (response ActionResponse, err error) {
	rt.stage = stage
	begin := time.Now()
	defer func() {
		if r := recover(); r != nil {
			response, err = nil, &PanicError{Stage: stage, Value: r, Stack: debug.Stack()}
		}
		rt.stageResults = append(rt.stageResults, StageResult{
			Stage:    stage,
			Response: response,
			Err:      err,
			Elapsed:  time.Since(begin),
		})
		if err != nil {
			rt.logger.Debug().Err(err).Stringer("stage", stage).Msg("Lifecycle stage failed")
		}
	}()
	return fn()
}

func (rt *ActionRuntime) translate(err error) error {
	if rt.resource != nil && rt.resource.Translator != nil {
		return rt.resource.Translator.Translate(err)
	}
	return err
}
