package cmmn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
	otelPkg "github.com/operaton/caseflow/pkg/otel"
)

// DeployCaseDefinition registers a case model with the engine. Deploying
// the same case id again creates a new version; running instances keep
// the version they were started with.
func (engine *Engine) DeployCaseDefinition(ctx context.Context, model *cmmn11.Case) (*runtime.CaseDefinition, error) {
	if err := model.Prepare(); err != nil {
		return nil, errors.Join(newEngineErrorf("invalid case definition %s", model.Id), err)
	}

	deployed, err := engine.persistence.FindCaseDefinitionsById(ctx, model.Id)
	if err != nil {
		return nil, errors.Join(newEngineErrorf("failed to look up prior deployments of case %s", model.Id), err)
	}
	version := int32(1)
	if len(deployed) > 0 {
		version = deployed[len(deployed)-1].Version + 1
	}

	definition := runtime.CaseDefinition{
		CaseId:     model.Id,
		Version:    version,
		Key:        engine.generateKey(),
		Model:      model,
		DeployedAt: time.Now(),
	}
	if err := engine.persistence.SaveCaseDefinition(ctx, definition); err != nil {
		return nil, errors.Join(newEngineErrorf("failed to deploy case %s", model.Id), err)
	}
	engine.exportNewCaseEvent(definition)
	engine.logger.Info("deployed case definition", "caseId", definition.CaseId, "version", definition.Version, "key", definition.Key)
	return &definition, nil
}

// CreateCaseInstanceById creates a new case instance for the latest
// deployed version of the given case id.
// Might return CmmnEngineError, when no case with given ID was found
func (engine *Engine) CreateCaseInstanceById(ctx context.Context, caseId string, variableContext map[string]interface{}) (*runtime.CaseExecution, error) {
	definition, err := engine.persistence.FindLatestCaseDefinitionById(ctx, caseId)
	if err != nil {
		return nil, errors.Join(newEngineErrorf("no case with id=%s was found (prior deployed into the engine)", caseId), err)
	}
	return engine.CreateCaseInstance(ctx, &definition, variableContext)
}

// CreateCaseInstanceByKey creates a new case instance for the case
// definition with the given key.
func (engine *Engine) CreateCaseInstanceByKey(ctx context.Context, definitionKey int64, variableContext map[string]interface{}) (*runtime.CaseExecution, error) {
	definition, err := engine.persistence.FindCaseDefinitionByKey(ctx, definitionKey)
	if err != nil {
		return nil, errors.Join(newEngineErrorf("no case definition with key %d was found (prior deployed into the engine)", definitionKey), err)
	}
	return engine.CreateCaseInstance(ctx, &definition, variableContext)
}

// CreateCaseInstance instantiates the case plan model: the root case
// execution is created and started in the same command, which activates
// it and runs the creation lifecycle of its plan items.
func (engine *Engine) CreateCaseInstance(ctx context.Context, definition *runtime.CaseDefinition, variableContext map[string]interface{}) (*runtime.CaseExecution, error) {
	ctx, span := engine.tracer.Start(ctx, fmt.Sprintf("create-case-instance:%s", definition.CaseId), trace.WithAttributes(
		attribute.String(otelPkg.AttributeCaseId, definition.CaseId),
		attribute.Int64(otelPkg.AttributeCaseDefinitionKey, definition.Key),
	))
	defer span.End()

	tree := newExecutionTree(engine, definition)
	key := engine.generateKey()
	root := &runtime.CaseExecution{
		Key:               key,
		CaseDefinitionKey: definition.Key,
		CaseInstanceKey:   key,
		ActivityId:        definition.Model.CasePlanModel.Id,
		State:             runtime.CaseExecutionStateNew,
		CreatedAt:         time.Now(),
		VariableHolder:    runtime.NewVariableHolder(nil, variableContext),
	}
	tree.executions[root.Key] = root
	tree.root = root
	tree.markDirty(root)
	span.SetAttributes(attribute.Int64(otelPkg.AttributeCaseInstanceKey, root.Key))

	engine.exportCaseInstanceEvent(*definition, *root)
	if engine.metrics != nil {
		engine.metrics.CasesStarted.Add(ctx, 1)
		engine.metrics.CasesActive.Add(ctx, 1)
	}

	// the root skips the creation lifecycle of a plan item: it has no
	// criteria and no manual activation, it activates right away
	behavior, _, err := tree.behaviorOf(root)
	if err != nil {
		return root, engine.recordError(span, err)
	}
	if err := behavior.onCreate(tree, root); err != nil {
		return root, engine.recordError(span, err)
	}
	if err := tree.start(root); err != nil {
		return root, engine.recordError(span, err)
	}

	if err := tree.flush(ctx); err != nil {
		return root, engine.recordError(span, errors.Join(newEngineErrorf("failed to persist case instance %d", root.Key), err))
	}
	return root, nil
}

// ManuallyStartCaseExecution activates an enabled case execution.
func (engine *Engine) ManuallyStartCaseExecution(ctx context.Context, caseExecutionKey int64) (*runtime.CaseExecution, error) {
	return engine.runTransitionCommand(ctx, "manual-start", caseExecutionKey, (*executionTree).manualStart)
}

// DisableCaseExecution disables an enabled case execution; its parent
// stage may auto-complete as a consequence.
func (engine *Engine) DisableCaseExecution(ctx context.Context, caseExecutionKey int64) (*runtime.CaseExecution, error) {
	return engine.runTransitionCommand(ctx, "disable", caseExecutionKey, (*executionTree).disable)
}

// ReenableCaseExecution puts a disabled case execution back to ENABLED.
func (engine *Engine) ReenableCaseExecution(ctx context.Context, caseExecutionKey int64) (*runtime.CaseExecution, error) {
	return engine.runTransitionCommand(ctx, "reenable", caseExecutionKey, (*executionTree).reenable)
}

// CompleteCaseExecution completes an active case execution. On a stage
// this is the manual completion: only required children must be out of
// the way.
func (engine *Engine) CompleteCaseExecution(ctx context.Context, caseExecutionKey int64) (*runtime.CaseExecution, error) {
	return engine.runTransitionCommand(ctx, "complete", caseExecutionKey, (*executionTree).manualComplete)
}

// TerminateCaseExecution terminates an active case execution and
// cascades into its children.
func (engine *Engine) TerminateCaseExecution(ctx context.Context, caseExecutionKey int64) (*runtime.CaseExecution, error) {
	return engine.runTransitionCommand(ctx, "terminate", caseExecutionKey, (*executionTree).terminate)
}

// SuspendCaseExecution suspends a case execution and cascades into its
// children.
func (engine *Engine) SuspendCaseExecution(ctx context.Context, caseExecutionKey int64) (*runtime.CaseExecution, error) {
	return engine.runTransitionCommand(ctx, "suspend", caseExecutionKey, (*executionTree).suspend)
}

// ResumeCaseExecution resumes a suspended case execution into the state
// it held before the suspension.
func (engine *Engine) ResumeCaseExecution(ctx context.Context, caseExecutionKey int64) (*runtime.CaseExecution, error) {
	return engine.runTransitionCommand(ctx, "resume", caseExecutionKey, (*executionTree).resume)
}

// OccurCaseExecution signals the event an available milestone or event
// listener waits for.
func (engine *Engine) OccurCaseExecution(ctx context.Context, caseExecutionKey int64) (*runtime.CaseExecution, error) {
	return engine.runTransitionCommand(ctx, "occur", caseExecutionKey, (*executionTree).occur)
}

// FailCaseExecution marks an active task execution as FAILED.
func (engine *Engine) FailCaseExecution(ctx context.Context, caseExecutionKey int64) (*runtime.CaseExecution, error) {
	return engine.runTransitionCommand(ctx, "fail", caseExecutionKey, (*executionTree).fail)
}

// ReactivateCaseExecution puts a failed case execution back to ACTIVE.
func (engine *Engine) ReactivateCaseExecution(ctx context.Context, caseExecutionKey int64) (*runtime.CaseExecution, error) {
	return engine.runTransitionCommand(ctx, "reactivate", caseExecutionKey, (*executionTree).reactivate)
}

// CloseCaseInstance closes a finished case instance: the remaining
// runtime records are retired and the root survives in state CLOSED.
func (engine *Engine) CloseCaseInstance(ctx context.Context, caseInstanceKey int64) (*runtime.CaseExecution, error) {
	tree, err := engine.loadExecutionTree(ctx, caseInstanceKey)
	if err != nil {
		return nil, err
	}
	ctx, span := engine.startCommandSpan(ctx, "close", tree, tree.root)
	defer span.End()

	if err := tree.close(tree.root); err != nil {
		return tree.root, engine.recordError(span, err)
	}
	if err := tree.flush(ctx); err != nil {
		return tree.root, engine.recordError(span, errors.Join(newEngineErrorf("failed to persist case instance %d", caseInstanceKey), err))
	}
	return tree.root, nil
}

// CompleteUserTask completes the human task execution owning the user
// task record. The given variables become case variables first, so
// sentries firing off the completion observe them.
func (engine *Engine) CompleteUserTask(ctx context.Context, userTaskKey int64, variables map[string]interface{}) (*runtime.CaseExecution, error) {
	task, err := engine.persistence.FindUserTaskByKey(ctx, userTaskKey)
	if err != nil {
		return nil, errors.Join(newEngineErrorf("no user task with key %d was found", userTaskKey), err)
	}
	tree, err := engine.loadExecutionTree(ctx, task.CaseInstanceKey)
	if err != nil {
		return nil, err
	}
	execution, ok := tree.executions[task.CaseExecutionKey]
	if !ok {
		return nil, newEngineErrorf("user task %d references missing case execution %d", userTaskKey, task.CaseExecutionKey)
	}
	ctx, span := engine.startCommandSpan(ctx, "complete-user-task", tree, execution)
	defer span.End()

	if len(variables) > 0 {
		tree.root.VariableHolder.SetVariables(variables)
		tree.markDirty(tree.root)
	}
	if err := tree.complete(execution); err != nil {
		return execution, engine.recordError(span, err)
	}
	if err := tree.flush(ctx); err != nil {
		return execution, engine.recordError(span, errors.Join(newEngineErrorf("failed to persist case instance %d", task.CaseInstanceKey), err))
	}
	return execution, nil
}

// SetCaseVariables updates the case variables of a case instance and
// re-evaluates the if-only sentries of every active stage against them.
func (engine *Engine) SetCaseVariables(ctx context.Context, caseInstanceKey int64, variables map[string]interface{}) error {
	tree, err := engine.loadExecutionTree(ctx, caseInstanceKey)
	if err != nil {
		return err
	}
	ctx, span := engine.startCommandSpan(ctx, "set-case-variables", tree, tree.root)
	defer span.End()

	tree.root.VariableHolder.SetVariables(variables)
	tree.markDirty(tree.root)

	scopes := append([]*runtime.CaseExecution{tree.root}, tree.subtree(tree.root)...)
	for _, scope := range scopes {
		if !tree.present(scope) || !scope.IsActive() {
			continue
		}
		activity, err := tree.activity(scope)
		if err != nil {
			return engine.recordError(span, err)
		}
		if !activity.Type.IsComposite() {
			continue
		}
		if err := tree.fireIfOnlySentryParts(scope); err != nil {
			return engine.recordError(span, err)
		}
	}

	if err := tree.flush(ctx); err != nil {
		return engine.recordError(span, errors.Join(newEngineErrorf("failed to persist case instance %d", caseInstanceKey), err))
	}
	return nil
}

// FindCaseExecution returns the case execution with the given key.
func (engine *Engine) FindCaseExecution(ctx context.Context, caseExecutionKey int64) (runtime.CaseExecution, error) {
	return engine.persistence.FindCaseExecutionByKey(ctx, caseExecutionKey)
}

// FindCaseExecutions returns every node of the runtime tree of a case
// instance, the root included.
func (engine *Engine) FindCaseExecutions(ctx context.Context, caseInstanceKey int64) ([]runtime.CaseExecution, error) {
	return engine.persistence.FindCaseExecutionsByCaseInstanceKey(ctx, caseInstanceKey)
}

// FindCaseExecutionsByActivityId returns the case executions of a case
// instance instantiating the given plan item, repeated instances
// included.
func (engine *Engine) FindCaseExecutionsByActivityId(ctx context.Context, caseInstanceKey int64, activityId string) ([]runtime.CaseExecution, error) {
	return engine.persistence.FindCaseExecutionsByActivityId(ctx, caseInstanceKey, activityId)
}

// FindCaseExecutionsByState returns the case executions of a case
// instance currently in the given state.
func (engine *Engine) FindCaseExecutionsByState(ctx context.Context, caseInstanceKey int64, state runtime.CaseExecutionState) ([]runtime.CaseExecution, error) {
	executions, err := engine.persistence.FindCaseExecutionsByCaseInstanceKey(ctx, caseInstanceKey)
	if err != nil {
		return nil, err
	}
	matches := make([]runtime.CaseExecution, 0, len(executions))
	for _, execution := range executions {
		if execution.State == state {
			matches = append(matches, execution)
		}
	}
	return matches, nil
}

// FindUserTask returns the user task record with the given key.
func (engine *Engine) FindUserTask(ctx context.Context, userTaskKey int64) (runtime.UserTask, error) {
	return engine.persistence.FindUserTaskByKey(ctx, userTaskKey)
}

// FindUserTasks returns the user task records of a case instance.
func (engine *Engine) FindUserTasks(ctx context.Context, caseInstanceKey int64) ([]runtime.UserTask, error) {
	return engine.persistence.FindUserTasksByCaseInstanceKey(ctx, caseInstanceKey)
}

// runTransitionCommand is the command boundary of the single-execution
// operations: load the tree, perform the transition with its cascades,
// flush the writes as one batch.
func (engine *Engine) runTransitionCommand(ctx context.Context, name string, caseExecutionKey int64, transition func(*executionTree, *runtime.CaseExecution) error) (*runtime.CaseExecution, error) {
	stored, err := engine.persistence.FindCaseExecutionByKey(ctx, caseExecutionKey)
	if err != nil {
		return nil, errors.Join(newEngineErrorf("no case execution with key %d was found", caseExecutionKey), err)
	}
	tree, err := engine.loadExecutionTree(ctx, stored.CaseInstanceKey)
	if err != nil {
		return nil, err
	}
	execution, ok := tree.executions[caseExecutionKey]
	if !ok {
		return nil, newEngineErrorf("case execution %d is no longer part of case instance %d", caseExecutionKey, stored.CaseInstanceKey)
	}

	ctx, span := engine.startCommandSpan(ctx, name, tree, execution)
	defer span.End()

	if err := transition(tree, execution); err != nil {
		return execution, engine.recordError(span, err)
	}
	if err := tree.flush(ctx); err != nil {
		return execution, engine.recordError(span, errors.Join(newEngineErrorf("failed to persist case instance %d", stored.CaseInstanceKey), err))
	}
	return execution, nil
}

func (engine *Engine) startCommandSpan(ctx context.Context, name string, tree *executionTree, execution *runtime.CaseExecution) (context.Context, trace.Span) {
	return engine.tracer.Start(ctx, fmt.Sprintf("%s:%s", name, execution.ActivityId), trace.WithAttributes(
		attribute.String(otelPkg.AttributeCaseId, tree.definition.CaseId),
		attribute.Int64(otelPkg.AttributeCaseDefinitionKey, tree.definition.Key),
		attribute.Int64(otelPkg.AttributeCaseInstanceKey, execution.CaseInstanceKey),
		attribute.Int64(otelPkg.AttributeExecutionKey, execution.Key),
		attribute.String(otelPkg.AttributeActivityId, execution.ActivityId),
		attribute.String(otelPkg.AttributeExecutionState, string(execution.State)),
	))
}

func (engine *Engine) recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
