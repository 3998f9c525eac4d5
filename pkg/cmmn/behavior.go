package cmmn

import (
	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

// activityBehavior is the per-activity-type half of the lifecycle. The
// variant is chosen once per case execution, at creation time, from the
// activity type; each variant enforces its own legal-transition subset.
type activityBehavior interface {
	onCreate(t *executionTree, e *runtime.CaseExecution) error
	onEnable(t *executionTree, e *runtime.CaseExecution) error
	onDisable(t *executionTree, e *runtime.CaseExecution) error
	onReenable(t *executionTree, e *runtime.CaseExecution) error
	onStart(t *executionTree, e *runtime.CaseExecution) error
	onManualStart(t *executionTree, e *runtime.CaseExecution) error
	onCompletion(t *executionTree, e *runtime.CaseExecution) error
	onManualCompletion(t *executionTree, e *runtime.CaseExecution) error
	onTermination(t *executionTree, e *runtime.CaseExecution) error
	onParentTermination(t *executionTree, e *runtime.CaseExecution) error
	onExit(t *executionTree, e *runtime.CaseExecution) error
	onSuspension(t *executionTree, e *runtime.CaseExecution) error
	onParentSuspension(t *executionTree, e *runtime.CaseExecution) error
	onResume(t *executionTree, e *runtime.CaseExecution) error
	onParentResume(t *executionTree, e *runtime.CaseExecution) error
	onReactivation(t *executionTree, e *runtime.CaseExecution) error
	onOccur(t *executionTree, e *runtime.CaseExecution) error

	// lifecycle hooks
	created(t *executionTree, e *runtime.CaseExecution) error
	started(t *executionTree, e *runtime.CaseExecution) error
	resumed(t *executionTree, e *runtime.CaseExecution) error
	reactivated(t *executionTree, e *runtime.CaseExecution) error

	// sentry firing
	fireEntryCriteria(t *executionTree, e *runtime.CaseExecution) error
	fireExitCriteria(t *executionTree, e *runtime.CaseExecution) error

	// pending-transition finals, re-entered by child callbacks on
	// composites
	performTerminate(t *executionTree, e *runtime.CaseExecution) error
	performExit(t *executionTree, e *runtime.CaseExecution) error
	performSuspension(t *executionTree, e *runtime.CaseExecution) error
	performParentSuspension(t *executionTree, e *runtime.CaseExecution) error
}

// compositeBehavior is implemented by the stage variant only: it
// receives the child state-change callbacks that drive auto-completion
// and the two-phase terminate/suspend protocol.
type compositeBehavior interface {
	activityBehavior

	handleChildCompletion(t *executionTree, e *runtime.CaseExecution, child *runtime.CaseExecution) error
	handleChildDisabled(t *executionTree, e *runtime.CaseExecution, child *runtime.CaseExecution) error
	handleChildTermination(t *executionTree, e *runtime.CaseExecution, child *runtime.CaseExecution) error
	handleChildSuspension(t *executionTree, e *runtime.CaseExecution, child *runtime.CaseExecution) error
}

var (
	stageBehaviorInstance         = &stageBehavior{}
	taskBehaviorInstance          = &taskBehavior{}
	humanTaskBehaviorInstance     = &humanTaskBehavior{}
	milestoneBehaviorInstance     = &milestoneBehavior{}
	eventListenerBehaviorInstance = &eventListenerBehavior{}
)

// behaviorFor is the closed dispatch table over the activity types.
func behaviorFor(activityType cmmn11.ActivityType) activityBehavior {
	switch activityType {
	case cmmn11.ActivityTypeCasePlanModel, cmmn11.ActivityTypeStage:
		return stageBehaviorInstance
	case cmmn11.ActivityTypeHumanTask:
		return humanTaskBehaviorInstance
	case cmmn11.ActivityTypeMilestone:
		return milestoneBehaviorInstance
	case cmmn11.ActivityTypeEventListener:
		return eventListenerBehaviorInstance
	default:
		return taskBehaviorInstance
	}
}

// planItemBehavior carries the rule evaluation shared by all variants.
type planItemBehavior struct{}

// onCreate moves a NEW execution into AVAILABLE and announces it.
func (planItemBehavior) onCreate(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "create", runtime.CaseExecutionStateNew); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateAvailable)
	t.markDirty(e)
	return t.emit(e, cmmn11.EventCreate)
}

// evaluateManualActivationRule defaults to false when the activity
// declares no rule, so undecorated plan items start automatically.
func (planItemBehavior) evaluateManualActivationRule(t *executionTree, e *runtime.CaseExecution, activity *cmmn11.Activity) (bool, error) {
	if activity.ManualActivationRule == nil {
		return false, nil
	}
	return evaluateBoolExpression(activity.ManualActivationRule.Expression, t.variableScope(e))
}

func (planItemBehavior) evaluateRequiredRule(t *executionTree, e *runtime.CaseExecution, activity *cmmn11.Activity) error {
	if activity.RequiredRule == nil {
		return nil
	}
	required, err := t.evaluateRequired(e, activity)
	if err != nil {
		return err
	}
	if required != e.Required {
		e.Required = required
		t.markDirty(e)
	}
	return nil
}

func (t *executionTree) evaluateRequired(e *runtime.CaseExecution, activity *cmmn11.Activity) (bool, error) {
	return evaluateBoolExpression(activity.RequiredRule.Expression, t.variableScope(e))
}

// isAtLeastOneEntryCriterionSatisfied holds when a criterion fired while
// the execution was NEW, or when the activity declares no entry criteria
// at all.
func (t *executionTree) isAtLeastOneEntryCriterionSatisfied(e *runtime.CaseExecution, activity *cmmn11.Activity) bool {
	if e.EntryCriterionSatisfied {
		return true
	}
	return len(activity.EntryCriteria) == 0
}
