package runtime

// CaseExecutionState as per CMMN 1.1, section 8.4.2 (plan item
// lifecycle). The *_ING states are internal: a composite entered one of
// them waits for child callbacks before finishing its own transition.
//
//	           ┌───┐
//	           │NEW│
//	           └─┬─┘
//	             v          entry criterion +          ┌────────┐
//	        ┌─────────┐     manual activation          │DISABLED│
//	        │AVAILABLE├──────────────────┐             └──┬─────┘
//	        └─┬───┬───┘                  v    disable     ^ reenable
//	          │   │ occur           ┌───────┐<────────────┴──┐
//	          │   │ (milestone,     │ENABLED├────────────────┘
//	          │   │  event listener)└──┬────┘
//	          │   │                    │ manualStart
//	          │   │    start           v
//	          │   └──────────> ┌──────────┐ suspend  ┌─────────┐
//	          │                │  ACTIVE  │<-------->│SUSPENDED│
//	          │                └─┬──────┬─┘  resume  └─────────┘
//	          │         complete │      │ fail ┌──────┐
//	          │                  v      └─────>│FAILED│ (task only)
//	          │           ┌─────────┐          └──────┘
//	          │           │COMPLETED│   terminate/exit/parentTerminate
//	          │           └─────────┘          v
//	          └──────────────────────────>┌──────────┐
//	            parentTerminate           │TERMINATED│
//	                                      └──────────┘
//
// The root case instance additionally reaches CLOSED and never goes
// through ENABLED/DISABLED.
type CaseExecutionState string

const (
	CaseExecutionStateNew        CaseExecutionState = "NEW"
	CaseExecutionStateAvailable  CaseExecutionState = "AVAILABLE"
	CaseExecutionStateEnabled    CaseExecutionState = "ENABLED"
	CaseExecutionStateDisabled   CaseExecutionState = "DISABLED"
	CaseExecutionStateActive     CaseExecutionState = "ACTIVE"
	CaseExecutionStateSuspended  CaseExecutionState = "SUSPENDED"
	CaseExecutionStateCompleted  CaseExecutionState = "COMPLETED"
	CaseExecutionStateTerminated CaseExecutionState = "TERMINATED"
	CaseExecutionStateFailed     CaseExecutionState = "FAILED"
	CaseExecutionStateClosed     CaseExecutionState = "CLOSED"

	CaseExecutionStateTerminatingOnTermination       CaseExecutionState = "TERMINATING_ON_TERMINATION"
	CaseExecutionStateTerminatingOnParentTermination CaseExecutionState = "TERMINATING_ON_PARENT_TERMINATION"
	CaseExecutionStateTerminatingOnExit              CaseExecutionState = "TERMINATING_ON_EXIT"
	CaseExecutionStateSuspendingOnSuspension         CaseExecutionState = "SUSPENDING_ON_SUSPENSION"
	CaseExecutionStateSuspendingOnParentSuspension   CaseExecutionState = "SUSPENDING_ON_PARENT_SUSPENSION"
)

// IsTerminating reports whether the state is one of the internal
// terminating states.
func (s CaseExecutionState) IsTerminating() bool {
	return s == CaseExecutionStateTerminatingOnTermination ||
		s == CaseExecutionStateTerminatingOnParentTermination ||
		s == CaseExecutionStateTerminatingOnExit
}

// IsSuspending reports whether the state is one of the internal
// suspending states.
func (s CaseExecutionState) IsSuspending() bool {
	return s == CaseExecutionStateSuspendingOnSuspension ||
		s == CaseExecutionStateSuspendingOnParentSuspension
}

// IsTerminal reports whether the state ends the lifecycle of a case
// execution.
func (s CaseExecutionState) IsTerminal() bool {
	return s == CaseExecutionStateCompleted ||
		s == CaseExecutionStateTerminated ||
		s == CaseExecutionStateClosed
}
