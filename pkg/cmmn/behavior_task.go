package cmmn

import (
	"time"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

// taskBehavior is the generic leaf variant. A non-blocking task has no
// internal structure and completes in the same command that started it;
// a blocking task stays ACTIVE until completed from the outside.
type taskBehavior struct {
	stageOrTaskBehavior
}

func (taskBehavior) started(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if activity.IsBlocking {
		return nil
	}
	return t.complete(e)
}

// humanTaskBehavior keeps a user-facing task record in sync with the
// owning execution: created on start, suspension flag mirrored, deleted
// when the execution is terminated or exited.
type humanTaskBehavior struct {
	stageOrTaskBehavior
}

func (humanTaskBehavior) started(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	task := &runtime.UserTask{
		Key:              t.engine.generateKey(),
		CaseExecutionKey: e.Key,
		CaseInstanceKey:  e.CaseInstanceKey,
		ActivityId:       activity.Id,
		Name:             activity.Name,
		State:            runtime.UserTaskStateCreated,
		CreatedAt:        time.Now(),
	}
	t.userTasks[task.Key] = task
	t.markUserTaskDirty(task)
	if t.engine.metrics != nil {
		t.engine.metrics.UserTasksCreated.Add(t.engine.meterContext(), 1)
	}
	return nil
}

func (b humanTaskBehavior) onCompletion(t *executionTree, e *runtime.CaseExecution) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	if err := ensureTransitionAllowed(e, activity.Type, "complete", runtime.CaseExecutionStateActive); err != nil {
		return err
	}
	b.completeUserTaskRecord(t, e)
	return t.performComplete(e, cmmn11.EventComplete)
}

func (b humanTaskBehavior) onManualCompletion(t *executionTree, e *runtime.CaseExecution) error {
	return b.onCompletion(t, e)
}

func (b humanTaskBehavior) performTerminate(t *executionTree, e *runtime.CaseExecution) error {
	b.deleteUserTaskRecord(t, e)
	return t.performTerminate(e)
}

func (b humanTaskBehavior) performExit(t *executionTree, e *runtime.CaseExecution) error {
	b.deleteUserTaskRecord(t, e)
	return t.performExit(e)
}

func (b humanTaskBehavior) performSuspension(t *executionTree, e *runtime.CaseExecution) error {
	b.setUserTaskState(t, e, runtime.UserTaskStateSuspended)
	return t.performSuspension(e)
}

func (b humanTaskBehavior) performParentSuspension(t *executionTree, e *runtime.CaseExecution) error {
	b.setUserTaskState(t, e, runtime.UserTaskStateSuspended)
	return t.performParentSuspension(e)
}

func (b humanTaskBehavior) resumed(t *executionTree, e *runtime.CaseExecution) error {
	if e.IsActive() {
		b.setUserTaskState(t, e, runtime.UserTaskStateCreated)
	}
	return nil
}

func (humanTaskBehavior) completeUserTaskRecord(t *executionTree, e *runtime.CaseExecution) {
	if task := t.userTaskOf(e.Key); task != nil {
		task.State = runtime.UserTaskStateCompleted
		t.markUserTaskDirty(task)
		if t.engine.metrics != nil {
			t.engine.metrics.UserTasksCompleted.Add(t.engine.meterContext(), 1)
		}
	}
}

func (humanTaskBehavior) deleteUserTaskRecord(t *executionTree, e *runtime.CaseExecution) {
	if task := t.userTaskOf(e.Key); task != nil {
		t.removeUserTask(task)
	}
}

func (humanTaskBehavior) setUserTaskState(t *executionTree, e *runtime.CaseExecution, state runtime.UserTaskState) {
	if task := t.userTaskOf(e.Key); task != nil && task.State != state {
		task.State = state
		t.markUserTaskDirty(task)
	}
}
