package cmmn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

func completeUserTaskOf(t *testing.T, caseInstanceKey int64, activityId string, variables map[string]interface{}) {
	t.Helper()
	tasks, err := cmmnEngine.FindUserTasks(t.Context(), caseInstanceKey)
	require.NoError(t, err)
	for _, task := range tasks {
		if task.ActivityId == activityId && task.State == runtime.UserTaskStateCreated {
			_, err := cmmnEngine.CompleteUserTask(t.Context(), task.Key, variables)
			require.NoError(t, err)
			return
		}
	}
	t.Fatalf("no open user task for activity %s", activityId)
}

func TestEntryCriterionActivatesAvailableTask(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("entry-criterion-case").
		CreateHumanTask("PI_HumanTask_First").
		CreateHumanTask("PI_HumanTask_Second").
		EntryCriterion("Sentry_1").
		Sentry("Sentry_1", cmmn11.OnPart("PI_HumanTask_First", cmmn11.EventComplete)))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "entry-criterion-case", nil)
	require.NoError(t, err)

	second := findByActivityId(t, instance.Key, "PI_HumanTask_Second")
	require.Len(t, second, 1)
	assert.Equal(t, runtime.CaseExecutionStateAvailable, second[0].State)

	completeUserTaskOf(t, instance.Key, "PI_HumanTask_First", nil)

	second = findByActivityId(t, instance.Key, "PI_HumanTask_Second")
	require.Len(t, second, 1)
	assert.Equal(t, runtime.CaseExecutionStateActive, second[0].State)
}

func TestSentryWaitsForAllOnParts(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("two-onparts-case").
		CreateHumanTask("PI_HumanTask_A").
		CreateHumanTask("PI_HumanTask_B").
		CreateHumanTask("PI_HumanTask_C").
		EntryCriterion("Sentry_Both").
		Sentry("Sentry_Both",
			cmmn11.OnPart("PI_HumanTask_A", cmmn11.EventComplete),
			cmmn11.OnPart("PI_HumanTask_B", cmmn11.EventComplete)))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "two-onparts-case", nil)
	require.NoError(t, err)

	completeUserTaskOf(t, instance.Key, "PI_HumanTask_A", nil)
	c := findByActivityId(t, instance.Key, "PI_HumanTask_C")
	require.Len(t, c, 1)
	assert.Equal(t, runtime.CaseExecutionStateAvailable, c[0].State)

	completeUserTaskOf(t, instance.Key, "PI_HumanTask_B", nil)
	c = findByActivityId(t, instance.Key, "PI_HumanTask_C")
	require.Len(t, c, 1)
	assert.Equal(t, runtime.CaseExecutionStateActive, c[0].State)
}

func TestIfPartGatesTheSentry(t *testing.T) {
	builder := func(caseId string) *cmmn11.CaseBuilder {
		return cmmn11.NewCaseBuilder(caseId).
			CreateHumanTask("PI_HumanTask_Decide").
			CreateHumanTask("PI_HumanTask_Ship").
			EntryCriterion("Sentry_Approved").
			SentryWithIfPart("Sentry_Approved", "=approved",
				cmmn11.OnPart("PI_HumanTask_Decide", cmmn11.EventComplete))
	}

	deploy(t, builder("ifpart-rejected-case"))
	rejected, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "ifpart-rejected-case", nil)
	require.NoError(t, err)
	completeUserTaskOf(t, rejected.Key, "PI_HumanTask_Decide", map[string]interface{}{"approved": false})
	ship := findByActivityId(t, rejected.Key, "PI_HumanTask_Ship")
	require.Len(t, ship, 1)
	assert.Equal(t, runtime.CaseExecutionStateAvailable, ship[0].State)

	deploy(t, builder("ifpart-approved-case"))
	approved, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "ifpart-approved-case", nil)
	require.NoError(t, err)
	completeUserTaskOf(t, approved.Key, "PI_HumanTask_Decide", map[string]interface{}{"approved": true})
	ship = findByActivityId(t, approved.Key, "PI_HumanTask_Ship")
	require.Len(t, ship, 1)
	assert.Equal(t, runtime.CaseExecutionStateActive, ship[0].State)
}

func TestIfOnlySentryFiresOnVariableChange(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("ifonly-case").
		CreateHumanTask("PI_HumanTask_Wait").
		CreateHumanTask("PI_HumanTask_Gated").
		EntryCriterion("Sentry_Ready").
		SentryWithIfPart("Sentry_Ready", "=ready"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "ifonly-case",
		map[string]interface{}{"ready": false})
	require.NoError(t, err)

	gated := findByActivityId(t, instance.Key, "PI_HumanTask_Gated")
	require.Len(t, gated, 1)
	assert.Equal(t, runtime.CaseExecutionStateAvailable, gated[0].State)

	err = cmmnEngine.SetCaseVariables(t.Context(), instance.Key, map[string]interface{}{"ready": true})
	require.NoError(t, err)

	gated = findByActivityId(t, instance.Key, "PI_HumanTask_Gated")
	require.Len(t, gated, 1)
	assert.Equal(t, runtime.CaseExecutionStateActive, gated[0].State)
}

func TestExitCriterionTerminatesActiveTask(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("exit-criterion-case").
		CreateHumanTask("PI_HumanTask_Cancel").
		CreateHumanTask("PI_HumanTask_Work").
		ExitCriterion("Sentry_Cancelled").
		Sentry("Sentry_Cancelled", cmmn11.OnPart("PI_HumanTask_Cancel", cmmn11.EventComplete)))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "exit-criterion-case", nil)
	require.NoError(t, err)

	completeUserTaskOf(t, instance.Key, "PI_HumanTask_Cancel", nil)

	// the work task was exited and its record removed alongside it
	assert.Empty(t, findByActivityId(t, instance.Key, "PI_HumanTask_Work"))
	tasks, err := cmmnEngine.FindUserTasks(t.Context(), instance.Key)
	require.NoError(t, err)
	for _, task := range tasks {
		assert.NotEqual(t, "PI_HumanTask_Work", task.ActivityId)
	}

	root, err := cmmnEngine.FindCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateCompleted, root.State)
}

func TestExitCriterionOnCaseInstanceTerminatesTheCase(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("case-exit-case").
		ExitCriterion("Sentry_Abort").
		CreateHumanTask("PI_HumanTask_Abort").
		CreateHumanTask("PI_HumanTask_Work").
		Sentry("Sentry_Abort", cmmn11.OnPart("PI_HumanTask_Abort", cmmn11.EventComplete)))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "case-exit-case", nil)
	require.NoError(t, err)

	completeUserTaskOf(t, instance.Key, "PI_HumanTask_Abort", nil)

	root, err := cmmnEngine.FindCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateTerminated, root.State)
	assert.Empty(t, findByActivityId(t, instance.Key, "PI_HumanTask_Work"))
}
