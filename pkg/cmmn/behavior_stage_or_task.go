package cmmn

import (
	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

// stageOrTaskBehavior carries the transition rules stages and tasks
// share. Variant-specific work (child instantiation, user task records,
// completion checks) is layered on top by the concrete variants, which
// are re-dispatched through the behavior table where an override
// matters.
type stageOrTaskBehavior struct {
	planItemBehavior
}

func (b stageOrTaskBehavior) created(t *executionTree, e *runtime.CaseExecution) error {
	behavior, activity, err := t.behaviorOf(e)
	if err != nil {
		return err
	}
	if e.IsAvailable() && t.isAtLeastOneEntryCriterionSatisfied(e, activity) {
		if err := behavior.fireEntryCriteria(t, e); err != nil {
			return err
		}
	}
	if e.IsAvailable() || e.IsEnabled() {
		return b.evaluateRequiredRule(t, e, activity)
	}
	return nil
}

func (stageOrTaskBehavior) onEnable(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if e.IsCaseInstance() {
		return newIllegalTransitionError("enable", e, activity.Type)
	}
	if err := ensureTransitionAllowed(e, activity.Type, "enable", runtime.CaseExecutionStateAvailable); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateEnabled)
	t.markDirty(e)
	return t.emit(e, cmmn11.EventEnable)
}

func (stageOrTaskBehavior) onDisable(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if e.IsCaseInstance() {
		return newIllegalTransitionError("disable", e, activity.Type)
	}
	if err := ensureTransitionAllowed(e, activity.Type, "disable", runtime.CaseExecutionStateEnabled); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateDisabled)
	t.markDirty(e)
	if err := t.emit(e, cmmn11.EventDisable); err != nil {
		return err
	}
	if parent := t.parentOf(e); parent != nil {
		return t.notifyChildDisabled(parent, e)
	}
	return nil
}

func (stageOrTaskBehavior) onReenable(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if e.IsCaseInstance() {
		return newIllegalTransitionError("reenable", e, activity.Type)
	}
	if err := ensureTransitionAllowed(e, activity.Type, "reenable", runtime.CaseExecutionStateDisabled); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateEnabled)
	t.markDirty(e)
	return t.emit(e, cmmn11.EventReenable)
}

func (stageOrTaskBehavior) onStart(t *executionTree, e *runtime.CaseExecution) error {
	behavior, activity, err := t.behaviorOf(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "start", runtime.CaseExecutionStateAvailable); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateActive)
	t.markDirty(e)
	if err := t.emit(e, cmmn11.EventStart); err != nil {
		return err
	}
	return behavior.started(t, e)
}

func (stageOrTaskBehavior) onManualStart(t *executionTree, e *runtime.CaseExecution) error {
	behavior, activity, err := t.behaviorOf(e)
	if err != nil {
		return err
	}
	if e.IsCaseInstance() {
		return newIllegalTransitionError("manualStart", e, activity.Type)
	}
	if err := ensureTransitionAllowed(e, activity.Type, "manualStart", runtime.CaseExecutionStateEnabled); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateActive)
	t.markDirty(e)
	if err := t.emit(e, cmmn11.EventManualStart); err != nil {
		return err
	}
	return behavior.started(t, e)
}

func (stageOrTaskBehavior) onCompletion(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "complete", runtime.CaseExecutionStateActive); err != nil {
		return err
	}
	return t.performComplete(e, cmmn11.EventComplete)
}

func (b stageOrTaskBehavior) onManualCompletion(t *executionTree, e *runtime.CaseExecution) error {
	return b.onCompletion(t, e)
}

func (stageOrTaskBehavior) onTermination(t *executionTree, e *runtime.CaseExecution) error {
	behavior, activity, err := t.behaviorOf(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "terminate", runtime.CaseExecutionStateActive); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateTerminatingOnTermination)
	t.markDirty(e)
	return behavior.performTerminate(t, e)
}

func (stageOrTaskBehavior) onParentTermination(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	return newIllegalTransitionError("parentTerminate", e, activity.Type)
}

func (stageOrTaskBehavior) onExit(t *executionTree, e *runtime.CaseExecution) error {
	behavior, activity, err := t.behaviorOf(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "exit",
		runtime.CaseExecutionStateAvailable,
		runtime.CaseExecutionStateEnabled,
		runtime.CaseExecutionStateDisabled,
		runtime.CaseExecutionStateActive,
		runtime.CaseExecutionStateSuspended,
		runtime.CaseExecutionStateFailed); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateTerminatingOnExit)
	t.markDirty(e)
	return behavior.performExit(t, e)
}

func (stageOrTaskBehavior) onSuspension(t *executionTree, e *runtime.CaseExecution) error {
	behavior, activity, err := t.behaviorOf(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "suspend", runtime.CaseExecutionStateActive); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateSuspendingOnSuspension)
	t.markDirty(e)
	return behavior.performSuspension(t, e)
}

func (stageOrTaskBehavior) onParentSuspension(t *executionTree, e *runtime.CaseExecution) error {
	behavior, activity, err := t.behaviorOf(e)
	if err != nil {
		return err
	}
	if e.IsCaseInstance() {
		return newIllegalTransitionError("parentSuspend", e, activity.Type)
	}
	if err := ensureTransitionAllowed(e, activity.Type, "parentSuspend",
		runtime.CaseExecutionStateAvailable,
		runtime.CaseExecutionStateEnabled,
		runtime.CaseExecutionStateDisabled,
		runtime.CaseExecutionStateActive); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateSuspendingOnParentSuspension)
	t.markDirty(e)
	return behavior.performParentSuspension(t, e)
}

func (b stageOrTaskBehavior) onResume(t *executionTree, e *runtime.CaseExecution) error {
	behavior, activity, err := t.behaviorOf(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "resume", runtime.CaseExecutionStateSuspended); err != nil {
		return err
	}
	if err := b.ensureParentActive(t, e, "resume", activity.Type); err != nil {
		return err
	}
	b.restorePreviousState(t, e)
	if err := t.emit(e, cmmn11.EventResume); err != nil {
		return err
	}
	return behavior.resumed(t, e)
}

func (b stageOrTaskBehavior) onParentResume(t *executionTree, e *runtime.CaseExecution) error {
	behavior, activity, err := t.behaviorOf(e)
	if err != nil {
		return err
	}
	if e.IsCaseInstance() {
		return newIllegalTransitionError("parentResume", e, activity.Type)
	}
	if err := ensureTransitionAllowed(e, activity.Type, "parentResume", runtime.CaseExecutionStateSuspended); err != nil {
		return err
	}
	if err := b.ensureParentActive(t, e, "parentResume", activity.Type); err != nil {
		return err
	}
	b.restorePreviousState(t, e)
	if err := t.emit(e, cmmn11.EventParentResume); err != nil {
		return err
	}
	return behavior.resumed(t, e)
}

func (stageOrTaskBehavior) onReactivation(t *executionTree, e *runtime.CaseExecution) error {
	behavior, activity, err := t.behaviorOf(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "reactivate", runtime.CaseExecutionStateFailed); err != nil {
		return err
	}
	e.SetState(runtime.CaseExecutionStateActive)
	t.markDirty(e)
	if err := t.emit(e, cmmn11.EventReactivate); err != nil {
		return err
	}
	return behavior.reactivated(t, e)
}

func (stageOrTaskBehavior) onOccur(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	return newIllegalTransitionError("occur", e, activity.Type)
}

func (stageOrTaskBehavior) started(t *executionTree, e *runtime.CaseExecution) error {
	return nil
}

func (stageOrTaskBehavior) resumed(t *executionTree, e *runtime.CaseExecution) error {
	return nil
}

func (stageOrTaskBehavior) reactivated(t *executionTree, e *runtime.CaseExecution) error {
	return nil
}

func (b stageOrTaskBehavior) fireEntryCriteria(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	manualActivation, err := b.evaluateManualActivationRule(t, e, activity)
	if err != nil {
		return err
	}
	if manualActivation {
		return t.enable(e)
	}
	return t.start(e)
}

func (stageOrTaskBehavior) fireExitCriteria(t *executionTree, e *runtime.CaseExecution) error {
	return t.exit(e)
}

func (stageOrTaskBehavior) performTerminate(t *executionTree, e *runtime.CaseExecution) error {
	return t.performTerminate(e)
}

func (stageOrTaskBehavior) performExit(t *executionTree, e *runtime.CaseExecution) error {
	return t.performExit(e)
}

func (stageOrTaskBehavior) performSuspension(t *executionTree, e *runtime.CaseExecution) error {
	return t.performSuspension(e)
}

func (stageOrTaskBehavior) performParentSuspension(t *executionTree, e *runtime.CaseExecution) error {
	return t.performParentSuspension(e)
}

// ensureParentActive guards resume: a child cannot leave SUSPENDED
// while its parent is not ACTIVE.
func (stageOrTaskBehavior) ensureParentActive(t *executionTree, e *runtime.CaseExecution, transition string, activityType cmmn11.ActivityType) error {
	parent := t.parentOf(e)
	if parent != nil && !parent.IsActive() {
		return newEngineErrorf("cannot perform %s on case execution %d (%s): parent %d is not active",
			transition, e.Key, activityType, parent.Key)
	}
	return nil
}

// restorePreviousState leaves SUSPENDED back into the state held before
// the suspension.
func (stageOrTaskBehavior) restorePreviousState(t *executionTree, e *runtime.CaseExecution) {
	previous := e.PreviousState
	if previous == "" || previous == runtime.CaseExecutionStateSuspended {
		previous = runtime.CaseExecutionStateActive
	}
	e.SetState(previous)
	t.markDirty(e)
}
