package cmmn

import (
	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

// The exported transition surface of a case execution. Every method
// dispatches into the behavior variant of the activity type, which
// enforces its own legal-transition subset.

func (t *executionTree) create(execution *runtime.CaseExecution) error {
	behavior, _, err := t.behaviorOf(execution)
	if err != nil {
		return err
	}
	if err := behavior.onCreate(t, execution); err != nil {
		return err
	}
	return behavior.created(t, execution)
}

func (t *executionTree) enable(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onEnable)
}

func (t *executionTree) disable(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onDisable)
}

func (t *executionTree) reenable(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onReenable)
}

func (t *executionTree) start(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onStart)
}

func (t *executionTree) manualStart(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onManualStart)
}

func (t *executionTree) complete(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onCompletion)
}

func (t *executionTree) manualComplete(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onManualCompletion)
}

func (t *executionTree) terminate(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onTermination)
}

func (t *executionTree) parentTerminate(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onParentTermination)
}

func (t *executionTree) exit(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onExit)
}

func (t *executionTree) suspend(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onSuspension)
}

func (t *executionTree) parentSuspend(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onParentSuspension)
}

func (t *executionTree) resume(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onResume)
}

func (t *executionTree) parentResume(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onParentResume)
}

func (t *executionTree) reactivate(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onReactivation)
}

func (t *executionTree) occur(execution *runtime.CaseExecution) error {
	return t.dispatch(execution, activityBehavior.onOccur)
}

func (t *executionTree) dispatch(execution *runtime.CaseExecution, transition func(activityBehavior, *executionTree, *runtime.CaseExecution) error) error {
	behavior, _, err := t.behaviorOf(execution)
	if err != nil {
		return err
	}
	return transition(behavior, t, execution)
}

// fail moves an active task execution into FAILED. Only task-shaped
// activities can fail; composites and terminal events cannot.
func (t *executionTree) fail(execution *runtime.CaseExecution) error {
	activity, err := t.activity(execution)
	if err != nil {
		return err
	}
	if !activity.Type.IsTask() {
		return newIllegalTransitionError("fail", execution, activity.Type)
	}
	if !execution.IsActive() {
		return newIllegalTransitionError("fail", execution, activity.Type)
	}
	execution.SetState(runtime.CaseExecutionStateFailed)
	t.markDirty(execution)
	return nil
}

// ensureTransitionAllowed returns an IllegalTransitionError unless the
// execution currently is in one of the given states.
func ensureTransitionAllowed(execution *runtime.CaseExecution, activityType cmmn11.ActivityType, transition string, from ...runtime.CaseExecutionState) error {
	for _, state := range from {
		if execution.State == state {
			return nil
		}
	}
	return newIllegalTransitionError(transition, execution, activityType)
}

// transition finals. Every final sets the target state and routes the
// resulting standard event through the notification pipeline.

// performComplete is the final of complete, manualComplete and occur.
func (t *executionTree) performComplete(execution *runtime.CaseExecution, event cmmn11.StandardEvent) error {
	execution.SetState(runtime.CaseExecutionStateCompleted)
	t.markDirty(execution)
	if err := t.emit(execution, event); err != nil {
		return err
	}

	parent := t.parentOf(execution)
	if parent == nil {
		t.engine.exportEndCaseInstanceEvent(*t.definition, *execution)
		if t.engine.metrics != nil {
			t.engine.metrics.CasesCompleted.Add(t.engine.meterContext(), 1)
			t.engine.metrics.CasesActive.Add(t.engine.meterContext(), -1)
		}
		return nil
	}
	if t.present(execution) {
		t.removeExecution(execution)
	}
	return t.notifyChildCompletion(parent, execution)
}

// performParentComplete retires a non-disabled child of a completing
// stage. The child was neither NEW nor ACTIVE, so it completes without
// its own cascade.
func (t *executionTree) performParentComplete(execution *runtime.CaseExecution) error {
	execution.SetState(runtime.CaseExecutionStateCompleted)
	t.markDirty(execution)
	if err := t.emit(execution, cmmn11.EventParentComplete); err != nil {
		return err
	}
	if t.present(execution) {
		t.removeExecution(execution)
	}
	return nil
}

// performTerminate is the final of terminate.
func (t *executionTree) performTerminate(execution *runtime.CaseExecution) error {
	return t.performTermination(execution, cmmn11.EventTerminate)
}

// performExit is the final of exit.
func (t *executionTree) performExit(execution *runtime.CaseExecution) error {
	return t.performTermination(execution, cmmn11.EventExit)
}

// performParentTerminate is the final of parentTerminate on terminal
// event activities.
func (t *executionTree) performParentTerminate(execution *runtime.CaseExecution) error {
	return t.performTermination(execution, cmmn11.EventParentTerminate)
}

func (t *executionTree) performTermination(execution *runtime.CaseExecution, event cmmn11.StandardEvent) error {
	execution.SetState(runtime.CaseExecutionStateTerminated)
	t.markDirty(execution)
	if err := t.emit(execution, event); err != nil {
		return err
	}

	parent := t.parentOf(execution)
	if parent == nil {
		t.engine.exportEndCaseInstanceEvent(*t.definition, *execution)
		if t.engine.metrics != nil {
			t.engine.metrics.CasesActive.Add(t.engine.meterContext(), -1)
		}
		return nil
	}
	if t.present(execution) {
		t.removeExecution(execution)
	}
	return t.notifyChildTermination(parent, execution)
}

// performSuspension is the final of suspend.
func (t *executionTree) performSuspension(execution *runtime.CaseExecution) error {
	return t.performSuspended(execution, cmmn11.EventSuspend)
}

// performParentSuspension is the final of parentSuspend.
func (t *executionTree) performParentSuspension(execution *runtime.CaseExecution) error {
	return t.performSuspended(execution, cmmn11.EventParentSuspend)
}

func (t *executionTree) performSuspended(execution *runtime.CaseExecution, event cmmn11.StandardEvent) error {
	execution.SetState(runtime.CaseExecutionStateSuspended)
	t.markDirty(execution)
	if err := t.emit(execution, event); err != nil {
		return err
	}
	parent := t.parentOf(execution)
	if parent == nil {
		return nil
	}
	return t.notifyChildSuspension(parent, execution)
}

// close retires a finished case instance: remaining descendants (left
// behind by a suspended or failed tree), every user task record and
// all sentry parts are removed. The root record survives in state
// CLOSED.
func (t *executionTree) close(execution *runtime.CaseExecution) error {
	activity, err := t.activity(execution)
	if err != nil {
		return err
	}
	if !execution.IsCaseInstance() {
		return newIllegalTransitionError("close", execution, activity.Type)
	}
	if err := ensureTransitionAllowed(execution, activity.Type, "close",
		runtime.CaseExecutionStateCompleted,
		runtime.CaseExecutionStateTerminated,
		runtime.CaseExecutionStateSuspended,
		runtime.CaseExecutionStateFailed); err != nil {
		return err
	}
	for _, descendant := range t.subtree(execution) {
		if !t.present(descendant) {
			continue
		}
		t.removeExecution(descendant)
	}
	// completed human tasks outlive their executions, so the record
	// sweep covers the whole instance, not just present descendants
	for _, task := range t.userTasks {
		t.removeUserTask(task)
	}
	execution.SetState(runtime.CaseExecutionStateClosed)
	t.markDirty(execution)
	for _, part := range t.scopeParts(execution.Key) {
		t.removePart(part)
	}
	if t.engine.metrics != nil {
		t.engine.metrics.CasesClosed.Add(t.engine.meterContext(), 1)
	}
	t.engine.exportPlanItemEvent(t, execution, cmmn11.EventClose)
	return nil
}

// parent notification. Only composites track child state changes.

func (t *executionTree) notifyChildCompletion(parent *runtime.CaseExecution, child *runtime.CaseExecution) error {
	behavior, _, err := t.behaviorOf(parent)
	if err != nil {
		return err
	}
	if composite, ok := behavior.(compositeBehavior); ok {
		return composite.handleChildCompletion(t, parent, child)
	}
	return nil
}

func (t *executionTree) notifyChildDisabled(parent *runtime.CaseExecution, child *runtime.CaseExecution) error {
	behavior, _, err := t.behaviorOf(parent)
	if err != nil {
		return err
	}
	if composite, ok := behavior.(compositeBehavior); ok {
		return composite.handleChildDisabled(t, parent, child)
	}
	return nil
}

func (t *executionTree) notifyChildTermination(parent *runtime.CaseExecution, child *runtime.CaseExecution) error {
	behavior, _, err := t.behaviorOf(parent)
	if err != nil {
		return err
	}
	if composite, ok := behavior.(compositeBehavior); ok {
		return composite.handleChildTermination(t, parent, child)
	}
	return nil
}

func (t *executionTree) notifyChildSuspension(parent *runtime.CaseExecution, child *runtime.CaseExecution) error {
	behavior, _, err := t.behaviorOf(parent)
	if err != nil {
		return err
	}
	if composite, ok := behavior.(compositeBehavior); ok {
		return composite.handleChildSuspension(t, parent, child)
	}
	return nil
}

// emit routes one standard event of an execution: the event is exported,
// the repetition evaluator gets its chance, then the sentries of the
// surrounding scope are notified. The sentry state is durably marked
// before any cascading transition runs, so nested re-entrant firing
// observes consistent part state.
func (t *executionTree) emit(execution *runtime.CaseExecution, event cmmn11.StandardEvent) error {
	t.engine.exportPlanItemEvent(t, execution, event)

	if err := t.evaluateRepetition(execution, event); err != nil {
		return err
	}

	scope := t.parentOf(execution)
	if scope != nil && t.present(scope) {
		if err := t.handleChildTransition(scope, execution, event); err != nil {
			return err
		}
	}
	return nil
}
