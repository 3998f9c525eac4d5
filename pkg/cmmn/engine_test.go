package cmmn

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
	"github.com/operaton/caseflow/pkg/storage/inmemory"
)

var cmmnEngine Engine
var engineStorage *inmemory.Storage

func TestMain(m *testing.M) {
	engineStorage = inmemory.NewStorage()

	var exitCode int

	defer func() {
		os.Exit(exitCode)
	}()

	cmmnEngine = NewEngine(EngineWithStorage(engineStorage))

	exitCode = m.Run()
}

// deploy is the test shortcut from builder to deployed definition.
func deploy(t *testing.T, builder *cmmn11.CaseBuilder) *runtime.CaseDefinition {
	t.Helper()
	model, err := builder.Build()
	require.NoError(t, err)
	definition, err := cmmnEngine.DeployCaseDefinition(t.Context(), model)
	require.NoError(t, err)
	return definition
}

func findByActivityId(t *testing.T, caseInstanceKey int64, activityId string) []runtime.CaseExecution {
	t.Helper()
	executions, err := cmmnEngine.FindCaseExecutionsByActivityId(t.Context(), caseInstanceKey, activityId)
	require.NoError(t, err)
	return executions
}

func singleUserTask(t *testing.T, caseInstanceKey int64) runtime.UserTask {
	t.Helper()
	tasks, err := cmmnEngine.FindUserTasks(t.Context(), caseInstanceKey)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	return tasks[0]
}

func TestDeployAssignsIncreasingVersions(t *testing.T) {
	first := deploy(t, cmmn11.NewCaseBuilder("versioned-case").
		CreateTask("PI_Task_1"))
	second := deploy(t, cmmn11.NewCaseBuilder("versioned-case").
		CreateTask("PI_Task_1"))

	assert.Equal(t, int32(1), first.Version)
	assert.Equal(t, int32(2), second.Version)
	assert.NotEqual(t, first.Key, second.Key)

	latest, err := engineStorage.FindLatestCaseDefinitionById(t.Context(), "versioned-case")
	require.NoError(t, err)
	assert.Equal(t, second.Key, latest.Key)
}

func TestDeployRejectsInvalidDefinition(t *testing.T) {
	model, err := cmmn11.NewCaseBuilder("broken-case").
		CreateTask("PI_Task_1").
		EntryCriterion("Sentry_Missing").
		Build()
	assert.Error(t, err)
	assert.Nil(t, model)
}

func TestEmptyCaseCompletesImmediately(t *testing.T) {
	definition := deploy(t, cmmn11.NewCaseBuilder("empty-case"))

	instance, err := cmmnEngine.CreateCaseInstanceByKey(t.Context(), definition.Key, nil)
	require.NoError(t, err)

	assert.Equal(t, runtime.CaseExecutionStateCompleted, instance.State)
}

func TestNonBlockingTaskCompletesInTheStartingCommand(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("auto-task-case").
		CreateTask("PI_Task_1"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "auto-task-case", nil)
	require.NoError(t, err)

	assert.Equal(t, runtime.CaseExecutionStateCompleted, instance.State)
	assert.Empty(t, findByActivityId(t, instance.Key, "PI_Task_1"))
}

func TestHumanTaskStaysActiveUntilCompleted(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("human-task-case").
		CreateHumanTask("PI_HumanTask_1").Name("Review request"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "human-task-case", nil)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateActive, instance.State)

	executions := findByActivityId(t, instance.Key, "PI_HumanTask_1")
	require.Len(t, executions, 1)
	assert.Equal(t, runtime.CaseExecutionStateActive, executions[0].State)

	task := singleUserTask(t, instance.Key)
	assert.Equal(t, "Review request", task.Name)
	assert.Equal(t, runtime.UserTaskStateCreated, task.State)

	_, err = cmmnEngine.CompleteUserTask(t.Context(), task.Key, nil)
	require.NoError(t, err)

	root, err := cmmnEngine.FindCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateCompleted, root.State)

	task, err = cmmnEngine.FindUserTask(t.Context(), task.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.UserTaskStateCompleted, task.State)
}

func TestCompleteUserTaskVariablesBecomeCaseVariables(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("approval-case").
		CreateHumanTask("PI_HumanTask_Approve").
		CreateHumanTask("PI_HumanTask_Publish").
		EntryCriterion("Sentry_Approved").
		Sentry("Sentry_Approved", cmmn11.OnPart("PI_HumanTask_Approve", cmmn11.EventComplete)))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "approval-case", nil)
	require.NoError(t, err)

	approve := singleUserTask(t, instance.Key)
	_, err = cmmnEngine.CompleteUserTask(t.Context(), approve.Key, map[string]interface{}{"approved": true})
	require.NoError(t, err)

	publish := findByActivityId(t, instance.Key, "PI_HumanTask_Publish")
	require.Len(t, publish, 1)
	assert.Equal(t, runtime.CaseExecutionStateActive, publish[0].State)

	root, err := cmmnEngine.FindCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, true, root.VariableHolder.GetVariable("approved"))
}

func TestManualActivationLeavesTaskEnabled(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("manual-case").
		CreateHumanTask("PI_HumanTask_1").
		ManualActivationRule("true"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "manual-case", nil)
	require.NoError(t, err)

	executions := findByActivityId(t, instance.Key, "PI_HumanTask_1")
	require.Len(t, executions, 1)
	assert.Equal(t, runtime.CaseExecutionStateEnabled, executions[0].State)

	// no user task record before the manual start
	tasks, err := cmmnEngine.FindUserTasks(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	started, err := cmmnEngine.ManuallyStartCaseExecution(t.Context(), executions[0].Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateActive, started.State)
	assert.Equal(t, runtime.UserTaskStateCreated, singleUserTask(t, instance.Key).State)
}

func TestDisableAndReenable(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("disable-case").
		CreateHumanTask("PI_HumanTask_1").
		ManualActivationRule("true").
		CreateHumanTask("PI_HumanTask_2"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "disable-case", nil)
	require.NoError(t, err)

	enabled := findByActivityId(t, instance.Key, "PI_HumanTask_1")
	require.Len(t, enabled, 1)

	disabled, err := cmmnEngine.DisableCaseExecution(t.Context(), enabled[0].Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateDisabled, disabled.State)

	reenabled, err := cmmnEngine.ReenableCaseExecution(t.Context(), disabled.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateEnabled, reenabled.State)
}

func TestDisabledChildDoesNotBlockAutoComplete(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("auto-complete-case").
		AutoComplete().
		CreateHumanTask("PI_HumanTask_Main").
		CreateHumanTask("PI_HumanTask_Optional").
		ManualActivationRule("true"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "auto-complete-case", nil)
	require.NoError(t, err)

	optional := findByActivityId(t, instance.Key, "PI_HumanTask_Optional")
	require.Len(t, optional, 1)
	_, err = cmmnEngine.DisableCaseExecution(t.Context(), optional[0].Key)
	require.NoError(t, err)

	main := singleUserTask(t, instance.Key)
	_, err = cmmnEngine.CompleteUserTask(t.Context(), main.Key, nil)
	require.NoError(t, err)

	root, err := cmmnEngine.FindCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateCompleted, root.State)
}

func TestFindCaseExecutionsByState(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("state-query-case").
		CreateHumanTask("PI_HumanTask_Active").
		CreateHumanTask("PI_HumanTask_Waiting").
		ManualActivationRule("true"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "state-query-case", nil)
	require.NoError(t, err)

	active, err := cmmnEngine.FindCaseExecutionsByState(t.Context(), instance.Key, runtime.CaseExecutionStateActive)
	require.NoError(t, err)
	require.Len(t, active, 2)

	enabled, err := cmmnEngine.FindCaseExecutionsByState(t.Context(), instance.Key, runtime.CaseExecutionStateEnabled)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "PI_HumanTask_Waiting", enabled[0].ActivityId)

	suspended, err := cmmnEngine.FindCaseExecutionsByState(t.Context(), instance.Key, runtime.CaseExecutionStateSuspended)
	require.NoError(t, err)
	assert.Empty(t, suspended)
}

func TestCloseRetiresTheRuntimeTree(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("close-case").
		CreateTask("PI_Task_1"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "close-case", nil)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateCompleted, instance.State)

	closed, err := cmmnEngine.CloseCaseInstance(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateClosed, closed.State)

	root, err := cmmnEngine.FindCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateClosed, root.State)

	executions, err := cmmnEngine.FindCaseExecutions(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Len(t, executions, 1)
}

func TestCloseRemovesCompletedUserTaskRecords(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("close-user-task-case").
		CreateHumanTask("PI_HumanTask_1"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "close-user-task-case", nil)
	require.NoError(t, err)

	task := singleUserTask(t, instance.Key)
	_, err = cmmnEngine.CompleteUserTask(t.Context(), task.Key, nil)
	require.NoError(t, err)

	// the completed record outlives its execution until the close
	completed, err := cmmnEngine.FindUserTasks(t.Context(), instance.Key)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, runtime.UserTaskStateCompleted, completed[0].State)

	_, err = cmmnEngine.CloseCaseInstance(t.Context(), instance.Key)
	require.NoError(t, err)

	tasks, err := cmmnEngine.FindUserTasks(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestFailAndReactivateTask(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("fail-case").
		CreateHumanTask("PI_HumanTask_1"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "fail-case", nil)
	require.NoError(t, err)

	executions := findByActivityId(t, instance.Key, "PI_HumanTask_1")
	require.Len(t, executions, 1)

	failed, err := cmmnEngine.FailCaseExecution(t.Context(), executions[0].Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateFailed, failed.State)

	reactivated, err := cmmnEngine.ReactivateCaseExecution(t.Context(), failed.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateActive, reactivated.State)
}
