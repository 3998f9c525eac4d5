package runtime

import (
	"time"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
)

// CaseDefinition is a deployed case model. The same case id may be
// deployed multiple times with increasing versions.
type CaseDefinition struct {
	CaseId     string       // the id as declared in the case model
	Version    int32        // default=1, incremented per deployment of the same id
	Key        int64        // the engine's key for this id+version
	Model      *cmmn11.Case // the definition tree
	DeployedAt time.Time
}

// CaseExecution is one node of the runtime tree: a single instantiation
// of a plan item within a case instance. The tree is expressed through
// keys only; the engine materializes parent/child structure per command.
type CaseExecution struct {
	Key               int64              `json:"k"`
	CaseDefinitionKey int64              `json:"cdk"`
	CaseInstanceKey   int64              `json:"cik"`          // the root's own key; self-referencing on the root
	ParentKey         int64              `json:"pk,omitempty"` // zero only on the root
	ActivityId        string             `json:"aid"`
	State             CaseExecutionState `json:"s"`
	PreviousState     CaseExecutionState `json:"ps,omitempty"`
	Required          bool               `json:"req,omitempty"`
	Revision          int32              `json:"rev"`
	CreatedAt         time.Time          `json:"c"`

	// case-level variables live on the root execution
	VariableHolder VariableHolder `json:"vh,omitempty"`

	// set when an entry criterion fires while the execution is still in
	// state NEW, so the creation lifecycle can pick it up; never persisted
	EntryCriterionSatisfied bool `json:"-"`
}

// IsCaseInstance reports whether this execution is the root of its tree.
func (e *CaseExecution) IsCaseInstance() bool {
	return e.ParentKey == 0
}

// SetState performs the bookkeeping of a state transition. The previous
// state is not overwritten while the execution is terminating or
// suspending, so the state held before the transient phase survives it.
func (e *CaseExecution) SetState(next CaseExecutionState) {
	if !e.State.IsTerminating() && !e.State.IsSuspending() {
		e.PreviousState = e.State
	}
	e.State = next
}

func (e *CaseExecution) IsNew() bool         { return e.State == CaseExecutionStateNew }
func (e *CaseExecution) IsAvailable() bool   { return e.State == CaseExecutionStateAvailable }
func (e *CaseExecution) IsEnabled() bool     { return e.State == CaseExecutionStateEnabled }
func (e *CaseExecution) IsDisabled() bool    { return e.State == CaseExecutionStateDisabled }
func (e *CaseExecution) IsActive() bool      { return e.State == CaseExecutionStateActive }
func (e *CaseExecution) IsSuspended() bool   { return e.State == CaseExecutionStateSuspended }
func (e *CaseExecution) IsCompleted() bool   { return e.State == CaseExecutionStateCompleted }
func (e *CaseExecution) IsTerminated() bool  { return e.State == CaseExecutionStateTerminated }
func (e *CaseExecution) IsFailed() bool      { return e.State == CaseExecutionStateFailed }
func (e *CaseExecution) IsClosed() bool      { return e.State == CaseExecutionStateClosed }
func (e *CaseExecution) IsTerminating() bool { return e.State.IsTerminating() }
func (e *CaseExecution) IsSuspending() bool  { return e.State.IsSuspending() }

// SentryPartType discriminates the persisted satisfaction flags of a
// sentry.
type SentryPartType string

const (
	SentryPartTypeOnPart SentryPartType = "ON_PART"
	SentryPartTypeIfPart SentryPartType = "IF_PART"
)

// SentryPart is one persisted satisfaction flag per (case execution,
// sentry, onPart/ifPart). Parts are owned by the composite execution
// whose activity declares the sentry and are deleted with it.
type SentryPart struct {
	Key              int64                `json:"k"`
	CaseInstanceKey  int64                `json:"cik"`
	CaseExecutionKey int64                `json:"cek"` // the declaring scope
	SentryId         string               `json:"sid"`
	Type             SentryPartType       `json:"t"`
	Source           string               `json:"src,omitempty"` // onPart: the source activity id
	StandardEvent    cmmn11.StandardEvent `json:"ev,omitempty"`
	Satisfied        bool                 `json:"sat"`
	Revision         int32                `json:"rev"`
}

// UserTaskState tracks the lifecycle of a user-facing task record.
type UserTaskState string

const (
	UserTaskStateCreated   UserTaskState = "CREATED"
	UserTaskStateSuspended UserTaskState = "SUSPENDED"
	UserTaskStateCompleted UserTaskState = "COMPLETED"
)

// UserTask is the task record a human task execution maintains through
// the task collaborator: created on start, suspension flag kept in sync
// with the owning execution, deleted on terminate/exit.
type UserTask struct {
	Key              int64         `json:"k"`
	CaseExecutionKey int64         `json:"cek"`
	CaseInstanceKey  int64         `json:"cik"`
	ActivityId       string        `json:"aid"`
	Name             string        `json:"n,omitempty"`
	Assignee         string        `json:"a,omitempty"`
	State            UserTaskState `json:"s"`
	Revision         int32         `json:"rev"`
	CreatedAt        time.Time     `json:"c"`
}
