package cmmn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

func TestNestedStageCompletesBottomUp(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("nested-stage-case").
		CreateStage("PI_Stage_1").
		CreateHumanTask("PI_HumanTask_1").
		EndActivity())

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "nested-stage-case", nil)
	require.NoError(t, err)

	stage := findByActivityId(t, instance.Key, "PI_Stage_1")
	require.Len(t, stage, 1)
	assert.Equal(t, runtime.CaseExecutionStateActive, stage[0].State)

	completeUserTaskOf(t, instance.Key, "PI_HumanTask_1", nil)

	root, err := cmmnEngine.FindCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateCompleted, root.State)
	assert.Empty(t, findByActivityId(t, instance.Key, "PI_Stage_1"))
}

func TestAutoCompleteStageIgnoresNonRequiredEnabledChildren(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("required-rule-case").
		AutoComplete().
		CreateHumanTask("PI_HumanTask_Required").
		RequiredRule("true").
		CreateHumanTask("PI_HumanTask_Optional").
		ManualActivationRule("true"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "required-rule-case", nil)
	require.NoError(t, err)

	completeUserTaskOf(t, instance.Key, "PI_HumanTask_Required", nil)

	root, err := cmmnEngine.FindCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateCompleted, root.State)
}

func TestManualCompletionRequiresChildrenOutOfTheWay(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("manual-completion-case").
		CreateHumanTask("PI_HumanTask_Busy").
		CreateHumanTask("PI_HumanTask_Idle").
		ManualActivationRule("true"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "manual-completion-case", nil)
	require.NoError(t, err)

	// an active child blocks even the manual completion
	_, err = cmmnEngine.CompleteCaseExecution(t.Context(), instance.Key)
	var remaining *RemainingChildError
	require.ErrorAs(t, err, &remaining)
	assert.Equal(t, "PI_HumanTask_Busy", remaining.ChildActivityId)

	completeUserTaskOf(t, instance.Key, "PI_HumanTask_Busy", nil)

	// the enabled child is not required, manual completion passes it by
	root, err := cmmnEngine.CompleteCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateCompleted, root.State)
}

func TestTerminateCascadesIntoChildren(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("terminate-case").
		CreateStage("PI_Stage_1").
		CreateHumanTask("PI_HumanTask_1").
		CreateHumanTask("PI_HumanTask_2").
		EndActivity())

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "terminate-case", nil)
	require.NoError(t, err)

	tasks, err := cmmnEngine.FindUserTasks(t.Context(), instance.Key)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	root, err := cmmnEngine.TerminateCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateTerminated, root.State)

	// the subtree is retired, user task records included
	executions, err := cmmnEngine.FindCaseExecutions(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Len(t, executions, 1)
	tasks, err = cmmnEngine.FindUserTasks(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSuspendAndResumeCascade(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("suspend-case").
		CreateStage("PI_Stage_1").
		CreateHumanTask("PI_HumanTask_1").
		EndActivity())

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "suspend-case", nil)
	require.NoError(t, err)

	root, err := cmmnEngine.SuspendCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateSuspended, root.State)

	stage := findByActivityId(t, instance.Key, "PI_Stage_1")
	require.Len(t, stage, 1)
	assert.Equal(t, runtime.CaseExecutionStateSuspended, stage[0].State)
	task := findByActivityId(t, instance.Key, "PI_HumanTask_1")
	require.Len(t, task, 1)
	assert.Equal(t, runtime.CaseExecutionStateSuspended, task[0].State)
	assert.Equal(t, runtime.UserTaskStateSuspended, singleUserTask(t, instance.Key).State)

	root, err = cmmnEngine.ResumeCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateActive, root.State)

	task = findByActivityId(t, instance.Key, "PI_HumanTask_1")
	require.Len(t, task, 1)
	assert.Equal(t, runtime.CaseExecutionStateActive, task[0].State)
	assert.Equal(t, runtime.UserTaskStateCreated, singleUserTask(t, instance.Key).State)
}

func TestMilestoneWithoutCriteriaOccursOnCreation(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("eager-milestone-case").
		CreateMilestone("PI_Milestone_1").
		CreateHumanTask("PI_HumanTask_1"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "eager-milestone-case", nil)
	require.NoError(t, err)

	assert.Empty(t, findByActivityId(t, instance.Key, "PI_Milestone_1"))
	assert.Equal(t, runtime.CaseExecutionStateActive, instance.State)
}

func TestMilestoneOccursWhenEntryCriterionFires(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("milestone-case").
		CreateHumanTask("PI_HumanTask_1").
		CreateMilestone("PI_Milestone_Done").
		EntryCriterion("Sentry_Done").
		Sentry("Sentry_Done", cmmn11.OnPart("PI_HumanTask_1", cmmn11.EventComplete)))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "milestone-case", nil)
	require.NoError(t, err)

	milestone := findByActivityId(t, instance.Key, "PI_Milestone_Done")
	require.Len(t, milestone, 1)
	assert.Equal(t, runtime.CaseExecutionStateAvailable, milestone[0].State)

	completeUserTaskOf(t, instance.Key, "PI_HumanTask_1", nil)

	root, err := cmmnEngine.FindCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateCompleted, root.State)
}

func TestEventListenerWaitsForItsOccurrence(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("event-listener-case").
		CreateEventListener("PI_EventListener_1").
		CreateHumanTask("PI_HumanTask_Gated").
		EntryCriterion("Sentry_Signal").
		Sentry("Sentry_Signal", cmmn11.OnPart("PI_EventListener_1", cmmn11.EventOccur)))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "event-listener-case", nil)
	require.NoError(t, err)

	listener := findByActivityId(t, instance.Key, "PI_EventListener_1")
	require.Len(t, listener, 1)
	assert.Equal(t, runtime.CaseExecutionStateAvailable, listener[0].State)

	_, err = cmmnEngine.OccurCaseExecution(t.Context(), listener[0].Key)
	require.NoError(t, err)

	gated := findByActivityId(t, instance.Key, "PI_HumanTask_Gated")
	require.Len(t, gated, 1)
	assert.Equal(t, runtime.CaseExecutionStateActive, gated[0].State)
}
