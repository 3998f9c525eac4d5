package storagetest

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	stdruntime "runtime"

	"github.com/stretchr/testify/assert"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
	"github.com/operaton/caseflow/pkg/storage"
)

type StorageTestFunc func(s storage.Storage, t *testing.T) func(t *testing.T)

// StorageTester holds the suite that every storage.Storage
// implementation is expected to pass.
type StorageTester struct {
	caseDefinition runtime.CaseDefinition
	caseInstance   runtime.CaseExecution
}

func (st *StorageTester) GetTests() map[string]StorageTestFunc {
	tests := map[string]StorageTestFunc{}

	// all test functions need to be registered here
	functions := []StorageTestFunc{
		st.TestCaseDefinitionStorageWriter,
		st.TestCaseDefinitionStorageReader,
		st.TestCaseExecutionStorageWriter,
		st.TestCaseExecutionStorageReader,
		st.TestCaseExecutionRevisionCheck,
		st.TestSentryPartStorageWriter,
		st.TestSentryPartStorageReader,
		st.TestSentryPartRevisionCheck,
		st.TestUserTaskStorageWriter,
		st.TestUserTaskStorageReader,
		st.TestBatchFlush,
	}

	for _, function := range functions {
		funcName := getFunctionName(function)
		strippedName := funcName[strings.LastIndex(funcName, ".")+1:]
		tests[strippedName] = function
	}
	return tests
}

func getFunctionName(i any) string {
	return stdruntime.FuncForPC(reflect.ValueOf(i).Pointer()).Name()
}

func getCaseDefinition(r int64) runtime.CaseDefinition {
	model, err := cmmn11.NewCaseBuilder(fmt.Sprintf("id-%d", r)).
		CreateHumanTask("PI_HumanTask_1").
		Build()
	if err != nil {
		panic(err)
	}
	return runtime.CaseDefinition{
		CaseId:     fmt.Sprintf("id-%d", r),
		Version:    1,
		Key:        r,
		Model:      model,
		DeployedAt: time.Now(),
	}
}

func getCaseInstance(r int64, d runtime.CaseDefinition) runtime.CaseExecution {
	return runtime.CaseExecution{
		Key:               r,
		CaseDefinitionKey: d.Key,
		CaseInstanceKey:   r,
		ActivityId:        d.CaseId,
		State:             runtime.CaseExecutionStateActive,
		VariableHolder: runtime.NewVariableHolder(nil, map[string]interface{}{
			"v1":   float64(123),
			"var2": "val2",
		}),
		CreatedAt: time.Now(),
	}
}

func getChildCaseExecution(r int64, instance runtime.CaseExecution, activityId string) runtime.CaseExecution {
	return runtime.CaseExecution{
		Key:               r,
		CaseDefinitionKey: instance.CaseDefinitionKey,
		CaseInstanceKey:   instance.CaseInstanceKey,
		ParentKey:         instance.Key,
		ActivityId:        activityId,
		State:             runtime.CaseExecutionStateAvailable,
		CreatedAt:         time.Now(),
	}
}

func getSentryPart(r int64, instance runtime.CaseExecution) runtime.SentryPart {
	return runtime.SentryPart{
		Key:              r,
		CaseInstanceKey:  instance.CaseInstanceKey,
		CaseExecutionKey: instance.Key,
		SentryId:         fmt.Sprintf("Sentry_%d", r),
		Type:             runtime.SentryPartTypeOnPart,
		Source:           "PI_HumanTask_1",
		StandardEvent:    cmmn11.EventComplete,
	}
}

func getUserTask(r int64, instance runtime.CaseExecution, caseExecutionKey int64) runtime.UserTask {
	return runtime.UserTask{
		Key:              r,
		CaseExecutionKey: caseExecutionKey,
		CaseInstanceKey:  instance.CaseInstanceKey,
		ActivityId:       "PI_HumanTask_1",
		Name:             fmt.Sprintf("task-%d", r),
		State:            runtime.UserTaskStateCreated,
		CreatedAt:        time.Now(),
	}
}

// PrepareTestData will prepare common data for the tests
func (st *StorageTester) PrepareTestData(s storage.Storage, t *testing.T) {
	r := s.GenerateId()

	st.caseDefinition = getCaseDefinition(r)
	err := s.SaveCaseDefinition(t.Context(), st.caseDefinition)
	assert.NoError(t, err)

	st.caseInstance = getCaseInstance(r, st.caseDefinition)
	err = s.SaveCaseExecution(t.Context(), st.caseInstance)
	assert.NoError(t, err)
}

func (st *StorageTester) TestCaseDefinitionStorageWriter(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		def := getCaseDefinition(r)

		err := s.SaveCaseDefinition(t.Context(), def)
		assert.NoError(t, err)

		definition, err := s.FindCaseDefinitionByKey(t.Context(), r)
		assert.NoError(t, err)
		assert.Equal(t, r, definition.Key)
	}
}

func (st *StorageTester) TestCaseDefinitionStorageReader(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		def := getCaseDefinition(r)
		err := s.SaveCaseDefinition(t.Context(), def)
		assert.NoError(t, err)

		secondVersion := def
		secondVersion.Key = s.GenerateId()
		secondVersion.Version = 2
		err = s.SaveCaseDefinition(t.Context(), secondVersion)
		assert.NoError(t, err)

		definition, err := s.FindLatestCaseDefinitionById(t.Context(), def.CaseId)
		assert.NoError(t, err)
		assert.Equal(t, secondVersion.Key, definition.Key)

		definition, err = s.FindCaseDefinitionByKey(t.Context(), def.Key)
		assert.NoError(t, err)
		assert.Equal(t, r, definition.Key)

		definitions, err := s.FindCaseDefinitionsById(t.Context(), def.CaseId)
		assert.NoError(t, err)
		assert.Len(t, definitions, 2)
		assert.Equal(t, int32(1), definitions[0].Version)
		assert.Equal(t, int32(2), definitions[1].Version)

		_, err = s.FindLatestCaseDefinitionById(t.Context(), "no-such-case")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
}

func (st *StorageTester) TestCaseExecutionStorageWriter(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		execution := getChildCaseExecution(r, st.caseInstance, "PI_HumanTask_1")
		err := s.SaveCaseExecution(t.Context(), execution)
		assert.NoError(t, err)

		stored, err := s.FindCaseExecutionByKey(t.Context(), r)
		assert.NoError(t, err)
		assert.Equal(t, r, stored.Key)
		assert.Equal(t, execution.Revision+1, stored.Revision)

		err = s.DeleteCaseExecution(t.Context(), r)
		assert.NoError(t, err)

		_, err = s.FindCaseExecutionByKey(t.Context(), r)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
}

func (st *StorageTester) TestCaseExecutionStorageReader(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		instance := getCaseInstance(r, st.caseDefinition)
		err := s.SaveCaseExecution(t.Context(), instance)
		assert.NoError(t, err)

		child := getChildCaseExecution(s.GenerateId(), instance, "PI_HumanTask_1")
		err = s.SaveCaseExecution(t.Context(), child)
		assert.NoError(t, err)

		executions, err := s.FindCaseExecutionsByCaseInstanceKey(t.Context(), instance.Key)
		assert.NoError(t, err)
		assert.Len(t, executions, 2)

		children, err := s.FindChildCaseExecutions(t.Context(), instance.Key)
		assert.NoError(t, err)
		assert.Len(t, children, 1)
		assert.Equal(t, child.Key, children[0].Key)

		executions, err = s.FindCaseExecutionsByActivityId(t.Context(), instance.Key, "PI_HumanTask_1")
		assert.NoError(t, err)
		assert.Len(t, executions, 1)
		assert.Equal(t, child.Key, executions[0].Key)
	}
}

func (st *StorageTester) TestCaseExecutionRevisionCheck(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		execution := getChildCaseExecution(r, st.caseInstance, "PI_HumanTask_1")
		err := s.SaveCaseExecution(t.Context(), execution)
		assert.NoError(t, err)

		// the local copy still carries the revision from before the save
		err = s.SaveCaseExecution(t.Context(), execution)
		assert.ErrorIs(t, err, storage.ErrRevisionConflict)

		execution.Revision++
		err = s.SaveCaseExecution(t.Context(), execution)
		assert.NoError(t, err)
	}
}

func (st *StorageTester) TestSentryPartStorageWriter(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		part := getSentryPart(r, st.caseInstance)
		err := s.SaveSentryPart(t.Context(), part)
		assert.NoError(t, err)

		err = s.DeleteSentryPart(t.Context(), r)
		assert.NoError(t, err)

		parts, err := s.FindSentryPartsByCaseExecutionKey(t.Context(), st.caseInstance.Key)
		assert.NoError(t, err)
		for _, stored := range parts {
			assert.NotEqual(t, r, stored.Key)
		}
	}
}

func (st *StorageTester) TestSentryPartStorageReader(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		instance := getCaseInstance(r, st.caseDefinition)
		err := s.SaveCaseExecution(t.Context(), instance)
		assert.NoError(t, err)

		part := getSentryPart(s.GenerateId(), instance)
		err = s.SaveSentryPart(t.Context(), part)
		assert.NoError(t, err)

		parts, err := s.FindSentryPartsByCaseInstanceKey(t.Context(), instance.Key)
		assert.NoError(t, err)
		assert.Len(t, parts, 1)
		assert.Equal(t, part.Key, parts[0].Key)
		assert.False(t, parts[0].Satisfied)

		parts, err = s.FindSentryPartsByCaseExecutionKey(t.Context(), instance.Key)
		assert.NoError(t, err)
		assert.Len(t, parts, 1)
	}
}

func (st *StorageTester) TestSentryPartRevisionCheck(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		part := getSentryPart(r, st.caseInstance)
		err := s.SaveSentryPart(t.Context(), part)
		assert.NoError(t, err)

		err = s.SaveSentryPart(t.Context(), part)
		assert.ErrorIs(t, err, storage.ErrRevisionConflict)

		part.Revision++
		part.Satisfied = true
		err = s.SaveSentryPart(t.Context(), part)
		assert.NoError(t, err)
	}
}

func (st *StorageTester) TestUserTaskStorageWriter(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		task := getUserTask(r, st.caseInstance, s.GenerateId())
		err := s.SaveUserTask(t.Context(), task)
		assert.NoError(t, err)

		stored, err := s.FindUserTaskByKey(t.Context(), r)
		assert.NoError(t, err)
		assert.Equal(t, r, stored.Key)

		err = s.DeleteUserTask(t.Context(), r)
		assert.NoError(t, err)

		_, err = s.FindUserTaskByKey(t.Context(), r)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
}

func (st *StorageTester) TestUserTaskStorageReader(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		instance := getCaseInstance(r, st.caseDefinition)
		err := s.SaveCaseExecution(t.Context(), instance)
		assert.NoError(t, err)

		executionKey := s.GenerateId()
		task := getUserTask(s.GenerateId(), instance, executionKey)
		err = s.SaveUserTask(t.Context(), task)
		assert.NoError(t, err)

		stored, err := s.FindUserTaskByCaseExecutionKey(t.Context(), executionKey)
		assert.NoError(t, err)
		assert.Equal(t, task.Key, stored.Key)

		tasks, err := s.FindUserTasksByCaseInstanceKey(t.Context(), instance.Key)
		assert.NoError(t, err)
		assert.Len(t, tasks, 1)

		_, err = s.FindUserTaskByCaseExecutionKey(t.Context(), s.GenerateId())
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
}

func (st *StorageTester) TestBatchFlush(s storage.Storage, t *testing.T) func(t *testing.T) {
	return func(t *testing.T) {
		r := s.GenerateId()

		instance := getCaseInstance(r, st.caseDefinition)
		child := getChildCaseExecution(s.GenerateId(), instance, "PI_HumanTask_1")

		batch := s.NewBatch()
		err := batch.SaveCaseExecution(t.Context(), instance)
		assert.NoError(t, err)
		err = batch.SaveCaseExecution(t.Context(), child)
		assert.NoError(t, err)

		// nothing is visible before the flush
		_, err = s.FindCaseExecutionByKey(t.Context(), instance.Key)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		err = batch.Flush(t.Context())
		assert.NoError(t, err)

		executions, err := s.FindCaseExecutionsByCaseInstanceKey(t.Context(), instance.Key)
		assert.NoError(t, err)
		assert.Len(t, executions, 2)
	}
}
