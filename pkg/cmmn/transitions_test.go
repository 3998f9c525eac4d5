package cmmn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
	"github.com/operaton/caseflow/pkg/storage"
)

func requireIllegalTransition(t *testing.T, err error, transition string) {
	t.Helper()
	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, transition, illegal.Transition)
}

func TestIllegalTransitionsOnHumanTask(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("illegal-task-case").
		CreateHumanTask("PI_HumanTask_1"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "illegal-task-case", nil)
	require.NoError(t, err)

	executions := findByActivityId(t, instance.Key, "PI_HumanTask_1")
	require.Len(t, executions, 1)
	active := executions[0].Key

	// the task auto-started, it was never ENABLED
	_, err = cmmnEngine.DisableCaseExecution(t.Context(), active)
	requireIllegalTransition(t, err, "disable")

	_, err = cmmnEngine.ManuallyStartCaseExecution(t.Context(), active)
	requireIllegalTransition(t, err, "manualStart")

	_, err = cmmnEngine.OccurCaseExecution(t.Context(), active)
	requireIllegalTransition(t, err, "occur")

	_, err = cmmnEngine.ResumeCaseExecution(t.Context(), active)
	requireIllegalTransition(t, err, "resume")
}

func TestIllegalTransitionsOnMilestone(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("illegal-milestone-case").
		CreateHumanTask("PI_HumanTask_Anchor").
		CreateMilestone("PI_Milestone_1").
		EntryCriterion("Sentry_Never").
		Sentry("Sentry_Never", cmmn11.OnPart("PI_HumanTask_Anchor", cmmn11.EventTerminate)))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "illegal-milestone-case", nil)
	require.NoError(t, err)

	milestone := findByActivityId(t, instance.Key, "PI_Milestone_1")
	require.Len(t, milestone, 1)
	available := milestone[0].Key

	_, err = cmmnEngine.ManuallyStartCaseExecution(t.Context(), available)
	requireIllegalTransition(t, err, "manualStart")

	_, err = cmmnEngine.CompleteCaseExecution(t.Context(), available)
	requireIllegalTransition(t, err, "complete")

	_, err = cmmnEngine.FailCaseExecution(t.Context(), available)
	requireIllegalTransition(t, err, "fail")
}

func TestIllegalTransitionsOnCaseInstance(t *testing.T) {
	deploy(t, cmmn11.NewCaseBuilder("illegal-root-case").
		CreateHumanTask("PI_HumanTask_1"))

	instance, err := cmmnEngine.CreateCaseInstanceById(t.Context(), "illegal-root-case", nil)
	require.NoError(t, err)

	_, err = cmmnEngine.DisableCaseExecution(t.Context(), instance.Key)
	requireIllegalTransition(t, err, "disable")

	_, err = cmmnEngine.ManuallyStartCaseExecution(t.Context(), instance.Key)
	requireIllegalTransition(t, err, "manualStart")

	// an active case cannot be closed
	_, err = cmmnEngine.CloseCaseInstance(t.Context(), instance.Key)
	requireIllegalTransition(t, err, "close")

	root, err := cmmnEngine.TerminateCaseExecution(t.Context(), instance.Key)
	require.NoError(t, err)
	assert.Equal(t, runtime.CaseExecutionStateTerminated, root.State)

	// terminate is not repeatable
	_, err = cmmnEngine.TerminateCaseExecution(t.Context(), instance.Key)
	requireIllegalTransition(t, err, "terminate")

	_, err = cmmnEngine.CloseCaseInstance(t.Context(), instance.Key)
	require.NoError(t, err)
}

func TestOperatingOnUnknownExecutionReturnsNotFound(t *testing.T) {
	_, err := cmmnEngine.CompleteCaseExecution(t.Context(), 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
