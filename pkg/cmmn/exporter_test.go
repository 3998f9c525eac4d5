package cmmn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operaton/caseflow/pkg/cmmn/exporter"
	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/storage/inmemory"
)

type recordingExporter struct {
	caseEvents []string
	intents    []string
}

func (r *recordingExporter) NewCaseEvent(event *exporter.CaseEvent) {
	r.caseEvents = append(r.caseEvents, "CASE_DEPLOYED:"+event.CaseId)
}

func (r *recordingExporter) NewCaseInstanceEvent(event *exporter.CaseInstanceEvent) {
	r.caseEvents = append(r.caseEvents, "CASE_INSTANCE_CREATED")
}

func (r *recordingExporter) EndCaseInstanceEvent(event *exporter.CaseInstanceEvent) {
	r.caseEvents = append(r.caseEvents, "CASE_INSTANCE_ENDED")
}

func (r *recordingExporter) NewPlanItemEvent(event *exporter.CaseInstanceEvent, itemInfo *exporter.PlanItemInfo) {
	r.intents = append(r.intents, itemInfo.ActivityId+":"+itemInfo.Intent)
}

type panickingExporter struct{}

func (panickingExporter) NewCaseEvent(event *exporter.CaseEvent)                 { panic("boom") }
func (panickingExporter) NewCaseInstanceEvent(event *exporter.CaseInstanceEvent) { panic("boom") }
func (panickingExporter) EndCaseInstanceEvent(event *exporter.CaseInstanceEvent) { panic("boom") }
func (panickingExporter) NewPlanItemEvent(event *exporter.CaseInstanceEvent, itemInfo *exporter.PlanItemInfo) {
	panic("boom")
}

func TestExporterReceivesLifecycleIntents(t *testing.T) {
	recorder := &recordingExporter{}
	engine := NewEngine(EngineWithStorage(inmemory.NewStorage()), EngineWithExporter(recorder))

	model, err := cmmn11.NewCaseBuilder("exported-case").
		CreateTask("PI_Task_1").
		Build()
	require.NoError(t, err)
	_, err = engine.DeployCaseDefinition(t.Context(), model)
	require.NoError(t, err)

	instance, err := engine.CreateCaseInstanceById(t.Context(), "exported-case", nil)
	require.NoError(t, err)
	require.NotNil(t, instance)

	assert.Equal(t, []string{
		"CASE_DEPLOYED:exported-case",
		"CASE_INSTANCE_CREATED",
		"CASE_INSTANCE_ENDED",
	}, recorder.caseEvents)
	assert.Equal(t, []string{
		"exported-case:PLAN_ITEM_CREATED",
		"exported-case:PLAN_ITEM_ACTIVATED",
		"PI_Task_1:PLAN_ITEM_CREATED",
		"PI_Task_1:PLAN_ITEM_ACTIVATED",
		"PI_Task_1:PLAN_ITEM_COMPLETED",
		"exported-case:PLAN_ITEM_COMPLETED",
	}, recorder.intents)
}

func TestPanickingExporterDoesNotFailTheCommand(t *testing.T) {
	recorder := &recordingExporter{}
	engine := NewEngine(EngineWithStorage(inmemory.NewStorage()),
		EngineWithExporter(panickingExporter{}),
		EngineWithExporter(recorder))

	model, err := cmmn11.NewCaseBuilder("panicking-exporter-case").
		CreateTask("PI_Task_1").
		Build()
	require.NoError(t, err)
	_, err = engine.DeployCaseDefinition(t.Context(), model)
	require.NoError(t, err)

	instance, err := engine.CreateCaseInstanceById(t.Context(), "panicking-exporter-case", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, recorder.intents)
	assert.NotNil(t, instance)
}
