package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetStatePreservesStateBeforeTransientPhase(t *testing.T) {
	execution := CaseExecution{State: CaseExecutionStateActive}

	execution.SetState(CaseExecutionStateSuspendingOnSuspension)
	assert.Equal(t, CaseExecutionStateActive, execution.PreviousState)

	// the transient phase does not overwrite the preserved state
	execution.SetState(CaseExecutionStateSuspended)
	assert.Equal(t, CaseExecutionStateActive, execution.PreviousState)

	execution.SetState(CaseExecutionStateActive)
	assert.Equal(t, CaseExecutionStateSuspended, execution.PreviousState)
}

func TestIsCaseInstance(t *testing.T) {
	root := CaseExecution{Key: 1, CaseInstanceKey: 1}
	assert.True(t, root.IsCaseInstance())

	child := CaseExecution{Key: 2, CaseInstanceKey: 1, ParentKey: 1}
	assert.False(t, child.IsCaseInstance())
}
