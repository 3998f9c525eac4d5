package cmmn

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
	"github.com/operaton/caseflow/pkg/storage"
)

// executionTree is the in-memory working copy of one case instance for
// the duration of one command. All cascading transitions mutate it via
// same-thread recursive calls; the accumulated writes are flushed as a
// single batch at the command boundary.
type executionTree struct {
	engine     *Engine
	definition *runtime.CaseDefinition
	root       *runtime.CaseExecution

	executions map[int64]*runtime.CaseExecution
	parts      map[int64]*runtime.SentryPart
	userTasks  map[int64]*runtime.UserTask

	dirtyExecutions   map[int64]struct{}
	dirtyParts        map[int64]struct{}
	dirtyUserTasks    map[int64]struct{}
	removedExecutions map[int64]struct{}
	removedParts      map[int64]struct{}
	removedUserTasks  map[int64]struct{}
}

func newExecutionTree(engine *Engine, definition *runtime.CaseDefinition) *executionTree {
	return &executionTree{
		engine:            engine,
		definition:        definition,
		executions:        map[int64]*runtime.CaseExecution{},
		parts:             map[int64]*runtime.SentryPart{},
		userTasks:         map[int64]*runtime.UserTask{},
		dirtyExecutions:   map[int64]struct{}{},
		dirtyParts:        map[int64]struct{}{},
		dirtyUserTasks:    map[int64]struct{}{},
		removedExecutions: map[int64]struct{}{},
		removedParts:      map[int64]struct{}{},
		removedUserTasks:  map[int64]struct{}{},
	}
}

// loadExecutionTree materializes the runtime tree of a case instance.
func (engine *Engine) loadExecutionTree(ctx context.Context, caseInstanceKey int64) (*executionTree, error) {
	executions, err := engine.persistence.FindCaseExecutionsByCaseInstanceKey(ctx, caseInstanceKey)
	if err != nil {
		return nil, errors.Join(newEngineErrorf("failed to load case instance %d", caseInstanceKey), err)
	}
	if len(executions) == 0 {
		return nil, errors.Join(newEngineErrorf("case instance %d was not found", caseInstanceKey), storage.ErrNotFound)
	}

	var root *runtime.CaseExecution
	for i := range executions {
		if executions[i].IsCaseInstance() {
			root = &executions[i]
			break
		}
	}
	if root == nil {
		return nil, newEngineErrorf("case instance %d has no root case execution", caseInstanceKey)
	}

	definition, err := engine.persistence.FindCaseDefinitionByKey(ctx, root.CaseDefinitionKey)
	if err != nil {
		return nil, errors.Join(newEngineErrorf("failed to load case definition %d", root.CaseDefinitionKey), err)
	}

	tree := newExecutionTree(engine, &definition)
	for i := range executions {
		execution := executions[i]
		tree.executions[execution.Key] = &execution
	}
	tree.root = tree.executions[root.Key]

	parts, err := engine.persistence.FindSentryPartsByCaseInstanceKey(ctx, caseInstanceKey)
	if err != nil {
		return nil, errors.Join(newEngineErrorf("failed to load sentry parts of case instance %d", caseInstanceKey), err)
	}
	for i := range parts {
		part := parts[i]
		tree.parts[part.Key] = &part
	}

	userTasks, err := engine.persistence.FindUserTasksByCaseInstanceKey(ctx, caseInstanceKey)
	if err != nil {
		return nil, errors.Join(newEngineErrorf("failed to load user tasks of case instance %d", caseInstanceKey), err)
	}
	for i := range userTasks {
		task := userTasks[i]
		tree.userTasks[task.Key] = &task
	}

	return tree, nil
}

// activity resolves the definition-time plan item of an execution.
func (t *executionTree) activity(execution *runtime.CaseExecution) (*cmmn11.Activity, error) {
	activity := t.definition.Model.FindActivityById(execution.ActivityId)
	if activity == nil {
		return nil, newEngineErrorf("case execution %d references unknown activity %s", execution.Key, execution.ActivityId)
	}
	return activity, nil
}

func (t *executionTree) behaviorOf(execution *runtime.CaseExecution) (activityBehavior, *cmmn11.Activity, error) {
	activity, err := t.activity(execution)
	if err != nil {
		return nil, nil, err
	}
	return behaviorFor(activity.Type), activity, nil
}

// parentOf returns the parent execution, nil on the root.
func (t *executionTree) parentOf(execution *runtime.CaseExecution) *runtime.CaseExecution {
	if execution.IsCaseInstance() {
		return nil
	}
	return t.executions[execution.ParentKey]
}

// children returns the present child executions ordered by key, so
// cascades visit siblings in creation order.
func (t *executionTree) children(parentKey int64) []*runtime.CaseExecution {
	result := make([]*runtime.CaseExecution, 0)
	for _, execution := range t.executions {
		if execution.ParentKey == parentKey {
			result = append(result, execution)
		}
	}
	slices.SortFunc(result, func(a, b *runtime.CaseExecution) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return result
}

// subtree collects every execution below the given one, depth-first
// with the deepest descendants first, matching the order in which
// sentry firing visits the tree.
func (t *executionTree) subtree(execution *runtime.CaseExecution) []*runtime.CaseExecution {
	var result []*runtime.CaseExecution
	for _, child := range t.children(execution.Key) {
		result = append(result, t.subtree(child)...)
	}
	result = append(result, t.children(execution.Key)...)
	return result
}

func (t *executionTree) present(execution *runtime.CaseExecution) bool {
	_, ok := t.executions[execution.Key]
	return ok
}

func (t *executionTree) markDirty(execution *runtime.CaseExecution) {
	if _, removed := t.removedExecutions[execution.Key]; !removed {
		t.dirtyExecutions[execution.Key] = struct{}{}
	}
}

func (t *executionTree) markPartDirty(part *runtime.SentryPart) {
	if _, removed := t.removedParts[part.Key]; !removed {
		t.dirtyParts[part.Key] = struct{}{}
	}
}

func (t *executionTree) markUserTaskDirty(task *runtime.UserTask) {
	if _, removed := t.removedUserTasks[task.Key]; !removed {
		t.dirtyUserTasks[task.Key] = struct{}{}
	}
}

// createChildExecution allocates a fresh case execution for the given
// activity under the given parent, in state NEW.
func (t *executionTree) createChildExecution(parent *runtime.CaseExecution, activity *cmmn11.Activity) *runtime.CaseExecution {
	execution := &runtime.CaseExecution{
		Key:               t.engine.generateKey(),
		CaseDefinitionKey: parent.CaseDefinitionKey,
		CaseInstanceKey:   parent.CaseInstanceKey,
		ParentKey:         parent.Key,
		ActivityId:        activity.Id,
		State:             runtime.CaseExecutionStateNew,
		CreatedAt:         time.Now(),
		VariableHolder:    runtime.NewVariableHolder(nil, nil),
	}
	t.executions[execution.Key] = execution
	t.markDirty(execution)
	return execution
}

// removeExecution retires a case execution: its owned sentry parts are
// deleted first, then the node itself.
func (t *executionTree) removeExecution(execution *runtime.CaseExecution) {
	for _, part := range t.scopeParts(execution.Key) {
		t.removePart(part)
	}
	delete(t.executions, execution.Key)
	delete(t.dirtyExecutions, execution.Key)
	t.removedExecutions[execution.Key] = struct{}{}
}

func (t *executionTree) removePart(part *runtime.SentryPart) {
	delete(t.parts, part.Key)
	delete(t.dirtyParts, part.Key)
	t.removedParts[part.Key] = struct{}{}
}

func (t *executionTree) removeUserTask(task *runtime.UserTask) {
	delete(t.userTasks, task.Key)
	delete(t.dirtyUserTasks, task.Key)
	t.removedUserTasks[task.Key] = struct{}{}
}

// scopeParts returns the sentry parts owned by the given scope
// execution, ordered by key.
func (t *executionTree) scopeParts(scopeKey int64) []*runtime.SentryPart {
	result := make([]*runtime.SentryPart, 0)
	for _, part := range t.parts {
		if part.CaseExecutionKey == scopeKey {
			result = append(result, part)
		}
	}
	slices.SortFunc(result, func(a, b *runtime.SentryPart) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return result
}

// sentryParts returns the parts of one sentry within a scope.
func (t *executionTree) sentryParts(scopeKey int64, sentryId string) []*runtime.SentryPart {
	result := make([]*runtime.SentryPart, 0)
	for _, part := range t.scopeParts(scopeKey) {
		if part.SentryId == sentryId {
			result = append(result, part)
		}
	}
	return result
}

func (t *executionTree) userTaskOf(executionKey int64) *runtime.UserTask {
	for _, task := range t.userTasks {
		if task.CaseExecutionKey == executionKey {
			return task
		}
	}
	return nil
}

// variableScope is the expression evaluation scope of an execution:
// the case variables of the root, shadowed by the execution's locals.
func (t *executionTree) variableScope(execution *runtime.CaseExecution) map[string]interface{} {
	scope := t.root.VariableHolder.Variables()
	if execution.Key != t.root.Key {
		for k, v := range execution.VariableHolder.LocalVariables() {
			scope[k] = v
		}
	}
	return scope
}

// flush writes the accumulated changes of the command as one batch.
func (t *executionTree) flush(ctx context.Context) error {
	batch := t.engine.persistence.NewBatch()
	for key := range t.dirtyExecutions {
		if execution, ok := t.executions[key]; ok {
			if err := batch.SaveCaseExecution(ctx, *execution); err != nil {
				return err
			}
		}
	}
	for key := range t.removedExecutions {
		if err := batch.DeleteCaseExecution(ctx, key); err != nil {
			return err
		}
	}
	for key := range t.dirtyParts {
		if part, ok := t.parts[key]; ok {
			if err := batch.SaveSentryPart(ctx, *part); err != nil {
				return err
			}
		}
	}
	for key := range t.removedParts {
		if err := batch.DeleteSentryPart(ctx, key); err != nil {
			return err
		}
	}
	for key := range t.dirtyUserTasks {
		if task, ok := t.userTasks[key]; ok {
			if err := batch.SaveUserTask(ctx, *task); err != nil {
				return err
			}
		}
	}
	for key := range t.removedUserTasks {
		if err := batch.DeleteUserTask(ctx, key); err != nil {
			return err
		}
	}
	return batch.Flush(ctx)
}
