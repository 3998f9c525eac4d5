package inmemory

import (
	"context"
	"errors"
	"math/rand"
	"slices"

	"github.com/operaton/caseflow/pkg/cmmn/runtime"
	"github.com/operaton/caseflow/pkg/storage"
)

// Storage keeps case information in memory,
// please use NewStorage to create a new object of this type.
type Storage struct {
	CaseDefinitions map[int64]runtime.CaseDefinition
	CaseExecutions  map[int64]runtime.CaseExecution
	SentryParts     map[int64]runtime.SentryPart
	UserTasks       map[int64]runtime.UserTask
}

func NewStorage() *Storage {
	return &Storage{
		CaseDefinitions: make(map[int64]runtime.CaseDefinition),
		CaseExecutions:  make(map[int64]runtime.CaseExecution),
		SentryParts:     make(map[int64]runtime.SentryPart),
		UserTasks:       make(map[int64]runtime.UserTask),
	}
}

var _ storage.Storage = &Storage{}

func (mem *Storage) GenerateId() int64 {
	return rand.Int63()
}

func (mem *Storage) NewBatch() storage.Batch {
	return &StorageBatch{
		db:        mem,
		stmtToRun: make([]func() error, 0, 10),
	}
}

var _ storage.CaseDefinitionStorageReader = &Storage{}

func (mem *Storage) FindLatestCaseDefinitionById(ctx context.Context, caseDefinitionId string) (runtime.CaseDefinition, error) {
	var res runtime.CaseDefinition
	found := false
	for _, def := range mem.CaseDefinitions {
		if def.CaseId != caseDefinitionId {
			continue
		}
		if res.Version != 0 && def.Version < res.Version {
			continue
		}
		found = true
		res = def
	}
	if !found {
		return res, storage.ErrNotFound
	}
	return res, nil
}

func (mem *Storage) FindCaseDefinitionByKey(ctx context.Context, caseDefinitionKey int64) (runtime.CaseDefinition, error) {
	res, ok := mem.CaseDefinitions[caseDefinitionKey]
	if !ok {
		return res, storage.ErrNotFound
	}
	return res, nil
}

func (mem *Storage) FindCaseDefinitionsById(ctx context.Context, caseDefinitionId string) ([]runtime.CaseDefinition, error) {
	res := make([]runtime.CaseDefinition, 0)
	for _, def := range mem.CaseDefinitions {
		if def.CaseId != caseDefinitionId {
			continue
		}
		res = append(res, def)
	}
	slices.SortFunc(res, func(a, b runtime.CaseDefinition) int {
		return int(a.Version - b.Version)
	})
	return res, nil
}

var _ storage.CaseDefinitionStorageWriter = &Storage{}

func (mem *Storage) SaveCaseDefinition(ctx context.Context, definition runtime.CaseDefinition) error {
	mem.CaseDefinitions[definition.Key] = definition
	return nil
}

var _ storage.CaseExecutionStorageReader = &Storage{}

func (mem *Storage) FindCaseExecutionByKey(ctx context.Context, caseExecutionKey int64) (runtime.CaseExecution, error) {
	res, ok := mem.CaseExecutions[caseExecutionKey]
	if !ok {
		return res, storage.ErrNotFound
	}
	return res, nil
}

func (mem *Storage) FindCaseExecutionsByCaseInstanceKey(ctx context.Context, caseInstanceKey int64) ([]runtime.CaseExecution, error) {
	res := make([]runtime.CaseExecution, 0)
	for _, execution := range mem.CaseExecutions {
		if execution.CaseInstanceKey != caseInstanceKey {
			continue
		}
		res = append(res, execution)
	}
	return res, nil
}

func (mem *Storage) FindChildCaseExecutions(ctx context.Context, parentKey int64) ([]runtime.CaseExecution, error) {
	res := make([]runtime.CaseExecution, 0)
	for _, execution := range mem.CaseExecutions {
		if execution.ParentKey != parentKey {
			continue
		}
		res = append(res, execution)
	}
	return res, nil
}

func (mem *Storage) FindCaseExecutionsByActivityId(ctx context.Context, caseInstanceKey int64, activityId string) ([]runtime.CaseExecution, error) {
	res := make([]runtime.CaseExecution, 0)
	for _, execution := range mem.CaseExecutions {
		if execution.CaseInstanceKey != caseInstanceKey || execution.ActivityId != activityId {
			continue
		}
		res = append(res, execution)
	}
	return res, nil
}

var _ storage.CaseExecutionStorageWriter = &Storage{}

func (mem *Storage) SaveCaseExecution(ctx context.Context, execution runtime.CaseExecution) error {
	stored, ok := mem.CaseExecutions[execution.Key]
	if ok && stored.Revision != execution.Revision {
		return errors.Join(storage.ErrRevisionConflict,
			errors.New("case execution "+execution.ActivityId+" was modified concurrently"))
	}
	execution.Revision++
	mem.CaseExecutions[execution.Key] = execution
	return nil
}

func (mem *Storage) DeleteCaseExecution(ctx context.Context, caseExecutionKey int64) error {
	delete(mem.CaseExecutions, caseExecutionKey)
	return nil
}

var _ storage.SentryPartStorageReader = &Storage{}

func (mem *Storage) FindSentryPartsByCaseInstanceKey(ctx context.Context, caseInstanceKey int64) ([]runtime.SentryPart, error) {
	res := make([]runtime.SentryPart, 0)
	for _, part := range mem.SentryParts {
		if part.CaseInstanceKey != caseInstanceKey {
			continue
		}
		res = append(res, part)
	}
	return res, nil
}

func (mem *Storage) FindSentryPartsByCaseExecutionKey(ctx context.Context, caseExecutionKey int64) ([]runtime.SentryPart, error) {
	res := make([]runtime.SentryPart, 0)
	for _, part := range mem.SentryParts {
		if part.CaseExecutionKey != caseExecutionKey {
			continue
		}
		res = append(res, part)
	}
	return res, nil
}

var _ storage.SentryPartStorageWriter = &Storage{}

func (mem *Storage) SaveSentryPart(ctx context.Context, part runtime.SentryPart) error {
	stored, ok := mem.SentryParts[part.Key]
	if ok && stored.Revision != part.Revision {
		return errors.Join(storage.ErrRevisionConflict,
			errors.New("sentry part of "+part.SentryId+" was modified concurrently"))
	}
	part.Revision++
	mem.SentryParts[part.Key] = part
	return nil
}

func (mem *Storage) DeleteSentryPart(ctx context.Context, sentryPartKey int64) error {
	delete(mem.SentryParts, sentryPartKey)
	return nil
}

var _ storage.UserTaskStorageReader = &Storage{}

func (mem *Storage) FindUserTaskByKey(ctx context.Context, userTaskKey int64) (runtime.UserTask, error) {
	res, ok := mem.UserTasks[userTaskKey]
	if !ok {
		return res, storage.ErrNotFound
	}
	return res, nil
}

func (mem *Storage) FindUserTaskByCaseExecutionKey(ctx context.Context, caseExecutionKey int64) (runtime.UserTask, error) {
	for _, task := range mem.UserTasks {
		if task.CaseExecutionKey == caseExecutionKey {
			return task, nil
		}
	}
	return runtime.UserTask{}, storage.ErrNotFound
}

func (mem *Storage) FindUserTasksByCaseInstanceKey(ctx context.Context, caseInstanceKey int64) ([]runtime.UserTask, error) {
	res := make([]runtime.UserTask, 0)
	for _, task := range mem.UserTasks {
		if task.CaseInstanceKey != caseInstanceKey {
			continue
		}
		res = append(res, task)
	}
	return res, nil
}

var _ storage.UserTaskStorageWriter = &Storage{}

func (mem *Storage) SaveUserTask(ctx context.Context, task runtime.UserTask) error {
	mem.UserTasks[task.Key] = task
	return nil
}

func (mem *Storage) DeleteUserTask(ctx context.Context, userTaskKey int64) error {
	delete(mem.UserTasks, userTaskKey)
	return nil
}

type StorageBatch struct {
	db        *Storage
	stmtToRun []func() error
}

var _ storage.Batch = &StorageBatch{}

func (b *StorageBatch) Flush(ctx context.Context) error {
	var joinErr error
	for _, stmt := range b.stmtToRun {
		err := stmt()
		if err != nil {
			joinErr = errors.Join(joinErr, err)
		}
	}
	if joinErr != nil {
		return joinErr
	}
	b.stmtToRun = make([]func() error, 0)
	return nil
}

var _ storage.CaseExecutionStorageWriter = &StorageBatch{}

func (b *StorageBatch) SaveCaseExecution(ctx context.Context, execution runtime.CaseExecution) error {
	b.stmtToRun = append(b.stmtToRun, func() error {
		return b.db.SaveCaseExecution(ctx, execution)
	})
	return nil
}

func (b *StorageBatch) DeleteCaseExecution(ctx context.Context, caseExecutionKey int64) error {
	b.stmtToRun = append(b.stmtToRun, func() error {
		return b.db.DeleteCaseExecution(ctx, caseExecutionKey)
	})
	return nil
}

var _ storage.SentryPartStorageWriter = &StorageBatch{}

func (b *StorageBatch) SaveSentryPart(ctx context.Context, part runtime.SentryPart) error {
	b.stmtToRun = append(b.stmtToRun, func() error {
		return b.db.SaveSentryPart(ctx, part)
	})
	return nil
}

func (b *StorageBatch) DeleteSentryPart(ctx context.Context, sentryPartKey int64) error {
	b.stmtToRun = append(b.stmtToRun, func() error {
		return b.db.DeleteSentryPart(ctx, sentryPartKey)
	})
	return nil
}

var _ storage.UserTaskStorageWriter = &StorageBatch{}

func (b *StorageBatch) SaveUserTask(ctx context.Context, task runtime.UserTask) error {
	b.stmtToRun = append(b.stmtToRun, func() error {
		return b.db.SaveUserTask(ctx, task)
	})
	return nil
}

func (b *StorageBatch) DeleteUserTask(ctx context.Context, userTaskKey int64) error {
	b.stmtToRun = append(b.stmtToRun, func() error {
		return b.db.DeleteUserTask(ctx, userTaskKey)
	})
	return nil
}
