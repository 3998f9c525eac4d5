package cmmn

import (
	"github.com/operaton/caseflow/pkg/cmmn/exporter"
	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

// AddEventExporter registers an EventExporter instance
func (engine *Engine) AddEventExporter(exporter exporter.EventExporter) {
	engine.exporters = append(engine.exporters, exporter)
}

func (engine *Engine) exportNewCaseEvent(definition runtime.CaseDefinition) {
	event := exporter.CaseEvent{
		CaseId:  definition.CaseId,
		CaseKey: definition.Key,
		Version: definition.Version,
	}
	for _, exp := range engine.exporters {
		engine.exportSafely(func() { exp.NewCaseEvent(&event) })
	}
}

func (engine *Engine) exportCaseInstanceEvent(definition runtime.CaseDefinition, caseInstance runtime.CaseExecution) {
	event := exporter.CaseInstanceEvent{
		CaseId:          definition.CaseId,
		CaseKey:         definition.Key,
		Version:         definition.Version,
		CaseInstanceKey: caseInstance.Key,
	}
	for _, exp := range engine.exporters {
		engine.exportSafely(func() { exp.NewCaseInstanceEvent(&event) })
	}
}

func (engine *Engine) exportEndCaseInstanceEvent(definition runtime.CaseDefinition, caseInstance runtime.CaseExecution) {
	event := exporter.CaseInstanceEvent{
		CaseId:          definition.CaseId,
		CaseKey:         definition.Key,
		Version:         definition.Version,
		CaseInstanceKey: caseInstance.Key,
	}
	for _, exp := range engine.exporters {
		engine.exportSafely(func() { exp.EndCaseInstanceEvent(&event) })
	}
}

func (engine *Engine) exportPlanItemEvent(t *executionTree, execution *runtime.CaseExecution, event cmmn11.StandardEvent) {
	intent, ok := planItemIntent(event)
	if !ok {
		return
	}
	activity, err := t.activity(execution)
	if err != nil {
		engine.logger.Warn("skipping plan item event export", "caseExecutionKey", execution.Key, "error", err)
		return
	}
	instanceEvent := exporter.CaseInstanceEvent{
		CaseId:          t.definition.CaseId,
		CaseKey:         t.definition.Key,
		Version:         t.definition.Version,
		CaseInstanceKey: execution.CaseInstanceKey,
	}
	info := exporter.PlanItemInfo{
		ActivityType: string(activity.Type),
		ActivityId:   activity.Id,
		ExecutionKey: execution.Key,
		Intent:       string(intent),
	}
	for _, exp := range engine.exporters {
		engine.exportSafely(func() { exp.NewPlanItemEvent(&instanceEvent, &info) })
	}
}

// planItemIntent maps a standard event to the exported intent. Internal
// bookkeeping events like parentSuspend or reenable are not exported.
func planItemIntent(event cmmn11.StandardEvent) (exporter.Intent, bool) {
	switch event {
	case cmmn11.EventCreate:
		return exporter.PlanItemCreated, true
	case cmmn11.EventEnable:
		return exporter.PlanItemEnabled, true
	case cmmn11.EventStart, cmmn11.EventManualStart:
		return exporter.PlanItemActivated, true
	case cmmn11.EventComplete, cmmn11.EventParentComplete:
		return exporter.PlanItemCompleted, true
	case cmmn11.EventTerminate, cmmn11.EventExit, cmmn11.EventParentTerminate:
		return exporter.PlanItemTerminated, true
	case cmmn11.EventOccur:
		return exporter.PlanItemOccurred, true
	case cmmn11.EventClose:
		return exporter.PlanItemClosed, true
	default:
		return "", false
	}
}

// exportSafely shields the engine from exporter panics; a broken
// exporter must not fail the command that produced the event.
func (engine *Engine) exportSafely(export func()) {
	defer func() {
		if r := recover(); r != nil {
			engine.logger.Error("event exporter panicked", "panic", r)
		}
	}()
	export()
}
