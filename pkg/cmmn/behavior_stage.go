package cmmn

import (
	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

// stageBehavior is the composite variant, used for stages and for the
// case plan model itself. A stage entering a pending terminate/suspend
// transition first cascades into its children and finishes its own
// transition from the child callbacks.
type stageBehavior struct {
	stageOrTaskBehavior
}

var _ compositeBehavior = &stageBehavior{}

// started instantiates the child plan items, creates the sentry parts
// declared in this stage, runs the children's creation lifecycle and
// then checks whether the stage already completes.
func (b *stageBehavior) started(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if len(activity.Activities) == 0 {
		return t.complete(e)
	}

	children := make([]*runtime.CaseExecution, 0, len(activity.Activities))
	for _, childActivity := range activity.Activities {
		children = append(children, t.createChildExecution(e, childActivity))
	}
	b.createSentryParts(t, e, activity)

	for _, child := range children {
		if !e.IsActive() {
			break
		}
		if child.IsNew() {
			if err := t.create(child); err != nil {
				return err
			}
		}
	}

	if e.IsActive() {
		if err := t.fireIfOnlySentryParts(e); err != nil {
			return err
		}
		if e.IsActive() {
			return b.checkAndCompleteCaseExecution(t, e)
		}
	}
	return nil
}

func (*stageBehavior) createSentryParts(t *executionTree, e *runtime.CaseExecution, activity *cmmn11.Activity) {
	for i := range activity.Sentries {
		sentry := &activity.Sentries[i]
		for _, onPart := range sentry.OnParts {
			part := &runtime.SentryPart{
				Key:              t.engine.generateKey(),
				CaseInstanceKey:  e.CaseInstanceKey,
				CaseExecutionKey: e.Key,
				SentryId:         sentry.Id,
				Type:             runtime.SentryPartTypeOnPart,
				Source:           onPart.SourceRef,
				StandardEvent:    onPart.StandardEvent,
			}
			t.parts[part.Key] = part
			t.markPartDirty(part)
		}
		if sentry.IfPart != nil {
			part := &runtime.SentryPart{
				Key:              t.engine.generateKey(),
				CaseInstanceKey:  e.CaseInstanceKey,
				CaseExecutionKey: e.Key,
				SentryId:         sentry.Id,
				Type:             runtime.SentryPartTypeIfPart,
			}
			t.parts[part.Key] = part
			t.markPartDirty(part)
		}
	}
}

// re-activation

func (b *stageBehavior) onReactivation(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if e.IsActive() {
		return newIllegalTransitionError("reactivate", e, activity.Type)
	}
	if e.IsCaseInstance() {
		if e.IsClosed() {
			return newIllegalTransitionError("reactivate", e, activity.Type)
		}
	} else if err := ensureTransitionAllowed(e, activity.Type, "reactivate", runtime.CaseExecutionStateFailed); err != nil {
		return err
	}

	previouslySuspended := e.PreviousState == runtime.CaseExecutionStateSuspended
	e.SetState(runtime.CaseExecutionStateActive)
	t.markDirty(e)
	if err := t.emit(e, cmmn11.EventReactivate); err != nil {
		return err
	}
	if e.IsCaseInstance() && previouslySuspended {
		return b.resumed(t, e)
	}
	return nil
}

// completion

func (b *stageBehavior) onCompletion(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "complete", runtime.CaseExecutionStateActive); err != nil {
		return err
	}
	if _, err := b.canComplete(t, e, true, activity.AutoComplete); err != nil {
		return err
	}
	if err := b.completing(t, e); err != nil {
		return err
	}
	return t.performComplete(e, cmmn11.EventComplete)
}

// onManualCompletion relaxes the completion condition: only required
// children must be out of the way.
func (b *stageBehavior) onManualCompletion(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "complete", runtime.CaseExecutionStateActive); err != nil {
		return err
	}
	if _, err := b.canComplete(t, e, true, true); err != nil {
		return err
	}
	if err := b.completing(t, e); err != nil {
		return err
	}
	return t.performComplete(e, cmmn11.EventComplete)
}

// completing cascades to the remaining children: disabled ones are
// removed, the rest completes with its parent.
func (*stageBehavior) completing(t *executionTree, e *runtime.CaseExecution) error {
	for _, child := range t.children(e.Key) {
		if child.IsDisabled() {
			t.removeExecution(child)
			continue
		}
		if err := t.performParentComplete(child); err != nil {
			return err
		}
	}
	return nil
}

// canComplete checks whether the stage may leave ACTIVE: no child may
// be NEW or ACTIVE, and depending on autoComplete either every required
// child or every child must be DISABLED, COMPLETED or TERMINATED.
func (*stageBehavior) canComplete(t *executionTree, e *runtime.CaseExecution, throwException bool, autoComplete bool) (bool, error) {
	children := t.children(e.Key)
	if len(children) == 0 {
		// a stage without children completes
		return true, nil
	}

	for _, child := range children {
		if child.IsNew() || child.IsActive() {
			if throwException {
				return false, &RemainingChildError{
					Transition:       "complete",
					CaseExecutionKey: e.Key,
					ChildKey:         child.Key,
					ChildActivityId:  child.ActivityId,
					ChildState:       child.State,
				}
			}
			return false, nil
		}
	}

	childOutOfTheWay := func(child *runtime.CaseExecution) bool {
		return child.IsDisabled() || child.IsCompleted() || child.IsTerminated()
	}

	if autoComplete {
		// only required children must be out of the way
		for _, child := range children {
			if child.Required && !childOutOfTheWay(child) {
				if throwException {
					return false, &RemainingChildError{
						Transition:       "complete",
						CaseExecutionKey: e.Key,
						ChildKey:         child.Key,
						ChildActivityId:  child.ActivityId,
						ChildState:       child.State,
					}
				}
				return false, nil
			}
		}
		return true, nil
	}

	for _, child := range children {
		if !childOutOfTheWay(child) {
			if throwException {
				return false, &RemainingChildError{
					Transition:       "complete",
					CaseExecutionKey: e.Key,
					ChildKey:         child.Key,
					ChildActivityId:  child.ActivityId,
					ChildState:       child.State,
				}
			}
			return false, nil
		}
	}
	return true, nil
}

func (b *stageBehavior) checkAndCompleteCaseExecution(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	ok, err := b.canComplete(t, e, false, activity.AutoComplete)
	if err != nil {
		return err
	}
	if ok {
		return t.complete(e)
	}
	return nil
}

// termination

// isAbleToTerminate holds when no child is in the way anymore. A
// completed child can still be present when an exit criterion fired off
// that child's completion event.
func (*stageBehavior) isAbleToTerminate(t *executionTree, e *runtime.CaseExecution) bool {
	for _, child := range t.children(e.Key) {
		if !child.IsTerminated() && !child.IsCompleted() {
			return false
		}
	}
	return true
}

func (b *stageBehavior) performTerminate(t *executionTree, e *runtime.CaseExecution) error {
	if !b.isAbleToTerminate(t, e) {
		return b.terminateChildren(t, e)
	}
	return t.performTerminate(e)
}

func (b *stageBehavior) performExit(t *executionTree, e *runtime.CaseExecution) error {
	if !b.isAbleToTerminate(t, e) {
		return b.terminateChildren(t, e)
	}
	return t.performExit(e)
}

func (b *stageBehavior) terminateChildren(t *executionTree, e *runtime.CaseExecution) error {
	for _, child := range t.children(e.Key) {
		if err := b.terminateChild(t, child); err != nil {
			return err
		}
		if !t.present(e) || !e.IsTerminating() {
			// a child callback already finished the pending transition
			break
		}
	}
	return nil
}

func (*stageBehavior) terminateChild(t *executionTree, child *runtime.CaseExecution) error {
	// terminated and completed children are left alone: a sentry fired
	// during the cascade may already have retired them
	if child.IsTerminated() || child.IsCompleted() {
		return nil
	}
	activity, err := t.activity(child)
	if err != nil {
		return err
	}
	if activity.Type.IsTerminalEvent() {
		return t.parentTerminate(child)
	}
	return t.exit(child)
}

// suspension

func (*stageBehavior) isAbleToSuspend(t *executionTree, e *runtime.CaseExecution) bool {
	for _, child := range t.children(e.Key) {
		if !child.IsSuspended() {
			return false
		}
	}
	return true
}

func (b *stageBehavior) performSuspension(t *executionTree, e *runtime.CaseExecution) error {
	if !b.isAbleToSuspend(t, e) {
		return b.suspendChildren(t, e)
	}
	return t.performSuspension(e)
}

func (b *stageBehavior) performParentSuspension(t *executionTree, e *runtime.CaseExecution) error {
	if !b.isAbleToSuspend(t, e) {
		return b.suspendChildren(t, e)
	}
	return t.performParentSuspension(e)
}

func (*stageBehavior) suspendChildren(t *executionTree, e *runtime.CaseExecution) error {
	for _, child := range t.children(e.Key) {
		if child.IsTerminated() || child.IsSuspended() {
			continue
		}
		activity, err := t.activity(child)
		if err != nil {
			return err
		}
		if activity.Type.IsTerminalEvent() {
			if err := t.suspend(child); err != nil {
				return err
			}
		} else if err := t.parentSuspend(child); err != nil {
			return err
		}
	}
	return nil
}

// resume

func (b *stageBehavior) resumed(t *executionTree, e *runtime.CaseExecution) error {
	if e.IsAvailable() {
		// re-run the creation lifecycle to pick up criteria that fired
		// in the meantime
		return b.created(t, e)
	}
	if e.IsActive() {
		return b.resumeChildren(t, e)
	}
	return nil
}

func (*stageBehavior) resumeChildren(t *executionTree, e *runtime.CaseExecution) error {
	for _, child := range t.children(e.Key) {
		if child.IsTerminated() {
			continue
		}
		activity, err := t.activity(child)
		if err != nil {
			return err
		}
		if activity.Type.IsTerminalEvent() {
			if err := t.resume(child); err != nil {
				return err
			}
		} else if err := t.parentResume(child); err != nil {
			return err
		}
	}
	return nil
}

// sentry

func (b *stageBehavior) fireEntryCriteria(t *executionTree, e *runtime.CaseExecution) error {
	if e.IsCaseInstance() {
		return newEngineErrorf("entry criteria are not allowed on the case instance %d", e.Key)
	}
	return b.stageOrTaskBehavior.fireEntryCriteria(t, e)
}

func (*stageBehavior) fireExitCriteria(t *executionTree, e *runtime.CaseExecution) error {
	if e.IsCaseInstance() {
		return t.terminate(e)
	}
	return t.exit(e)
}

// child state changes

func (b *stageBehavior) handleChildCompletion(t *executionTree, e *runtime.CaseExecution, child *runtime.CaseExecution) error {
	t.markDirty(e)
	if e.IsActive() {
		return b.checkAndCompleteCaseExecution(t, e)
	}
	return nil
}

func (b *stageBehavior) handleChildDisabled(t *executionTree, e *runtime.CaseExecution, child *runtime.CaseExecution) error {
	t.markDirty(e)
	if e.IsActive() {
		return b.checkAndCompleteCaseExecution(t, e)
	}
	return nil
}

func (b *stageBehavior) handleChildSuspension(t *executionTree, e *runtime.CaseExecution, child *runtime.CaseExecution) error {
	if !e.IsSuspending() || !b.isAbleToSuspend(t, e) {
		return nil
	}
	switch e.State {
	case runtime.CaseExecutionStateSuspendingOnSuspension:
		return t.performSuspension(e)
	case runtime.CaseExecutionStateSuspendingOnParentSuspension:
		return t.performParentSuspension(e)
	default:
		return newEngineErrorf("cannot finish suspension of case execution %d in state %s", e.Key, e.State)
	}
}

func (b *stageBehavior) handleChildTermination(t *executionTree, e *runtime.CaseExecution, child *runtime.CaseExecution) error {
	t.markDirty(e)
	if e.IsActive() {
		return b.checkAndCompleteCaseExecution(t, e)
	}
	if e.IsTerminating() && b.isAbleToTerminate(t, e) {
		switch e.State {
		case runtime.CaseExecutionStateTerminatingOnTermination:
			return t.performTerminate(e)
		case runtime.CaseExecutionStateTerminatingOnExit:
			return t.performExit(e)
		default:
			return newEngineErrorf("cannot finish termination of case execution %d in state %s", e.Key, e.State)
		}
	}
	return nil
}
