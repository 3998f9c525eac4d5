package cmmn

import (
	"fmt"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

type CmmnEngineError struct {
	Msg string
}

func (e *CmmnEngineError) Error() string {
	return e.Msg
}

// newEngineErrorf uses fmt.Sprintf(format, a...) to format the message
func newEngineErrorf(format string, a ...interface{}) error {
	return &CmmnEngineError{
		Msg: fmt.Sprintf(format, a...),
	}
}

// IllegalTransitionError is returned when a requested transition is not
// legal for the activity type or the current state of the execution.
type IllegalTransitionError struct {
	Transition       string
	CaseExecutionKey int64
	ActivityType     cmmn11.ActivityType
	State            runtime.CaseExecutionState
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("transition %s is not allowed for case execution %d (%s in state %s)",
		e.Transition, e.CaseExecutionKey, e.ActivityType, e.State)
}

func newIllegalTransitionError(transition string, execution *runtime.CaseExecution, activityType cmmn11.ActivityType) error {
	return &IllegalTransitionError{
		Transition:       transition,
		CaseExecutionKey: execution.Key,
		ActivityType:     activityType,
		State:            execution.State,
	}
}

// RemainingChildError is returned when a stage cannot complete because a
// child execution is still in the way.
type RemainingChildError struct {
	Transition       string
	CaseExecutionKey int64
	ChildKey         int64
	ChildActivityId  string
	ChildState       runtime.CaseExecutionState
}

func (e *RemainingChildError) Error() string {
	return fmt.Sprintf("cannot perform %s on case execution %d: child %d (%s) is still in state %s",
		e.Transition, e.CaseExecutionKey, e.ChildKey, e.ChildActivityId, e.ChildState)
}

// ExpressionEvaluationError is returned when a rule or ifPart condition
// cannot be evaluated or returns a non-boolean.
type ExpressionEvaluationError struct {
	Msg string
	Err error
}

func (e *ExpressionEvaluationError) Error() string {
	if e.Err != nil {
		return e.Msg + "\nerror: " + e.Err.Error()
	}
	return e.Msg
}
