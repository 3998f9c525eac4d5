package storage

import (
	"context"
	"errors"

	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

// ErrNotFound is returned by find methods that expect exactly one match
// when the record does not exist.
var ErrNotFound = errors.New("not found")

// ErrRevisionConflict is returned by save methods when the stored
// revision differs from the revision of the record being written. The
// engine surfaces it unchanged; retrying is the caller's concern.
var ErrRevisionConflict = errors.New("revision conflict")

// Storage is the persistence collaborator of the case engine. Within a
// command the engine reads through it and collects writes into a Batch
// that is flushed at the command boundary.
//
// Methods that are expected to return exactly one match MUST return
// ErrNotFound when the result does not exist.
type Storage interface {
	CaseDefinitionStorageReader
	CaseDefinitionStorageWriter
	CaseExecutionStorageReader
	CaseExecutionStorageWriter
	SentryPartStorageReader
	SentryPartStorageWriter
	UserTaskStorageReader
	UserTaskStorageWriter

	GenerateId() int64
	NewBatch() Batch
}

// Batch collects writes of one command and applies them atomically on
// Flush (as far as the backing store supports it).
type Batch interface {
	CaseExecutionStorageWriter
	SentryPartStorageWriter
	UserTaskStorageWriter

	// Flush writes the batch into the storage and prepares the batch
	// for new statements.
	Flush(ctx context.Context) error
}

type CaseDefinitionStorageReader interface {
	FindLatestCaseDefinitionById(ctx context.Context, caseDefinitionId string) (runtime.CaseDefinition, error)

	FindCaseDefinitionByKey(ctx context.Context, caseDefinitionKey int64) (runtime.CaseDefinition, error)

	// FindCaseDefinitionsById returns zero or many deployed definitions
	// with the given id, ordered by version from 1 (first) to the
	// largest version (last).
	FindCaseDefinitionsById(ctx context.Context, caseDefinitionId string) ([]runtime.CaseDefinition, error)
}

type CaseDefinitionStorageWriter interface {
	// SaveCaseDefinition persists a CaseDefinition and potentially
	// overwrites prior data stored with the given key.
	SaveCaseDefinition(ctx context.Context, definition runtime.CaseDefinition) error
}

type CaseExecutionStorageReader interface {
	FindCaseExecutionByKey(ctx context.Context, caseExecutionKey int64) (runtime.CaseExecution, error)

	// FindCaseExecutionsByCaseInstanceKey returns every node of the
	// runtime tree rooted at the given case instance, the root included.
	FindCaseExecutionsByCaseInstanceKey(ctx context.Context, caseInstanceKey int64) ([]runtime.CaseExecution, error)

	FindChildCaseExecutions(ctx context.Context, parentKey int64) ([]runtime.CaseExecution, error)

	FindCaseExecutionsByActivityId(ctx context.Context, caseInstanceKey int64, activityId string) ([]runtime.CaseExecution, error)
}

type CaseExecutionStorageWriter interface {
	// SaveCaseExecution persists the execution. Implementations MUST
	// compare the stored revision with the incoming one and return
	// ErrRevisionConflict on mismatch; the revision is incremented on a
	// successful write.
	SaveCaseExecution(ctx context.Context, execution runtime.CaseExecution) error

	DeleteCaseExecution(ctx context.Context, caseExecutionKey int64) error
}

type SentryPartStorageReader interface {
	FindSentryPartsByCaseInstanceKey(ctx context.Context, caseInstanceKey int64) ([]runtime.SentryPart, error)

	FindSentryPartsByCaseExecutionKey(ctx context.Context, caseExecutionKey int64) ([]runtime.SentryPart, error)
}

type SentryPartStorageWriter interface {
	// SaveSentryPart persists the part with the same revision semantics
	// as SaveCaseExecution. Saving an unchanged part is the way the
	// engine forces a revision bump to provoke a conflict when two
	// commands satisfy parts of the same sentry concurrently.
	SaveSentryPart(ctx context.Context, part runtime.SentryPart) error

	DeleteSentryPart(ctx context.Context, sentryPartKey int64) error
}

type UserTaskStorageReader interface {
	FindUserTaskByKey(ctx context.Context, userTaskKey int64) (runtime.UserTask, error)

	FindUserTaskByCaseExecutionKey(ctx context.Context, caseExecutionKey int64) (runtime.UserTask, error)

	FindUserTasksByCaseInstanceKey(ctx context.Context, caseInstanceKey int64) ([]runtime.UserTask, error)
}

type UserTaskStorageWriter interface {
	SaveUserTask(ctx context.Context, task runtime.UserTask) error

	DeleteUserTask(ctx context.Context, userTaskKey int64) error
}
