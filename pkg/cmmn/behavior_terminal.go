package cmmn

import (
	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

// terminalEventBehavior is the variant shared by milestones and event
// listeners: no enable/disable/start, the only forward transition is
// occur. Parent suspension, parent resume and reactivation are illegal;
// exit criteria are never applicable.
type terminalEventBehavior struct {
	planItemBehavior
}

func (terminalEventBehavior) created(t *executionTree, e *runtime.CaseExecution) error {
	return nil
}

func (terminalEventBehavior) illegal(t *executionTree, e *runtime.CaseExecution, transition string) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	return newIllegalTransitionError(transition, e, activity.Type)
}

func (b terminalEventBehavior) onEnable(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "enable")
}

func (b terminalEventBehavior) onDisable(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "disable")
}

func (b terminalEventBehavior) onReenable(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "reenable")
}

func (b terminalEventBehavior) onStart(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "start")
}

func (b terminalEventBehavior) onManualStart(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "manualStart")
}

func (b terminalEventBehavior) onCompletion(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "complete")
}

func (b terminalEventBehavior) onManualCompletion(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "complete")
}

func (terminalEventBehavior) onTermination(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "terminate",
		runtime.CaseExecutionStateAvailable,
		runtime.CaseExecutionStateSuspended); err != nil {
		return err
	}
	return t.performTerminate(e)
}

func (terminalEventBehavior) onParentTermination(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "parentTerminate",
		runtime.CaseExecutionStateAvailable,
		runtime.CaseExecutionStateSuspended); err != nil {
		return err
	}
	return t.performParentTerminate(e)
}

func (b terminalEventBehavior) onExit(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "exit")
}

func (terminalEventBehavior) onSuspension(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "suspend", runtime.CaseExecutionStateAvailable); err != nil {
		return err
	}
	return t.performSuspension(e)
}

func (b terminalEventBehavior) onParentSuspension(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "parentSuspend")
}

func (terminalEventBehavior) onResume(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "resume", runtime.CaseExecutionStateSuspended); err != nil {
		return err
	}
	if parent := t.parentOf(e); parent != nil && !parent.IsActive() {
		return newEngineErrorf("cannot perform resume on case execution %d (%s): parent %d is not active",
			e.Key, activity.Type, parent.Key)
	}
	e.SetState(runtime.CaseExecutionStateAvailable)
	t.markDirty(e)
	return t.emit(e, cmmn11.EventResume)
}

func (b terminalEventBehavior) onParentResume(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "parentResume")
}

func (b terminalEventBehavior) onReactivation(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "reactivate")
}

// onOccur is the only forward transition of a terminal event.
func (terminalEventBehavior) onOccur(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "occur", runtime.CaseExecutionStateAvailable); err != nil {
		return err
	}
	return t.performComplete(e, cmmn11.EventOccur)
}

func (terminalEventBehavior) started(t *executionTree, e *runtime.CaseExecution) error {
	return nil
}

func (terminalEventBehavior) resumed(t *executionTree, e *runtime.CaseExecution) error {
	return nil
}

func (terminalEventBehavior) reactivated(t *executionTree, e *runtime.CaseExecution) error {
	return nil
}

func (terminalEventBehavior) fireEntryCriteria(t *executionTree, e *runtime.CaseExecution) error {
	return t.occur(e)
}

func (b terminalEventBehavior) fireExitCriteria(t *executionTree, e *runtime.CaseExecution) error {
	return b.illegal(t, e, "exit")
}

func (terminalEventBehavior) performTerminate(t *executionTree, e *runtime.CaseExecution) error {
	return t.performTerminate(e)
}

func (terminalEventBehavior) performExit(t *executionTree, e *runtime.CaseExecution) error {
	return t.performExit(e)
}

func (terminalEventBehavior) performSuspension(t *executionTree, e *runtime.CaseExecution) error {
	return t.performSuspension(e)
}

func (terminalEventBehavior) performParentSuspension(t *executionTree, e *runtime.CaseExecution) error {
	return t.performParentSuspension(e)
}

// milestoneBehavior occurs on its own as soon as its entry criteria are
// satisfied; a milestone without any entry criteria occurs right after
// creation.
type milestoneBehavior struct {
	terminalEventBehavior
}

func (milestoneBehavior) created(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if e.IsAvailable() && t.isAtLeastOneEntryCriterionSatisfied(e, activity) {
		return t.occur(e)
	}
	return nil
}

// eventListenerBehavior waits for its external event regardless of
// entry criteria.
type eventListenerBehavior struct {
	terminalEventBehavior
}
