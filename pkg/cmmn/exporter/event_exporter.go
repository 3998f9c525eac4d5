package exporter

// EventExporter receives case lifecycle events after the engine has
// committed them. Exporters run fire and forget; a failing exporter
// never fails the command that produced the event.
type EventExporter interface {
	NewCaseEvent(event *CaseEvent)
	NewCaseInstanceEvent(event *CaseInstanceEvent)
	EndCaseInstanceEvent(event *CaseInstanceEvent)
	NewPlanItemEvent(event *CaseInstanceEvent, itemInfo *PlanItemInfo)
}

type Intent string

const (
	PlanItemCreated    Intent = "PLAN_ITEM_CREATED"
	PlanItemEnabled    Intent = "PLAN_ITEM_ENABLED"
	PlanItemActivated  Intent = "PLAN_ITEM_ACTIVATED"
	PlanItemCompleted  Intent = "PLAN_ITEM_COMPLETED"
	PlanItemTerminated Intent = "PLAN_ITEM_TERMINATED"
	PlanItemOccurred   Intent = "PLAN_ITEM_OCCURRED"
	PlanItemClosed     Intent = "PLAN_ITEM_CLOSED"
)

type CaseEvent struct {
	CaseId  string
	CaseKey int64
	Version int32
}

type CaseInstanceEvent struct {
	CaseId          string
	CaseKey         int64
	Version         int32
	CaseInstanceKey int64
}

type PlanItemInfo struct {
	ActivityType string
	ActivityId   string
	ExecutionKey int64
	Intent       string
}
