package otel

const (
	Prefix                     = "cmmn-"
	AttributeCaseInstanceKey   = Prefix + "instance-key"
	AttributeCaseId            = Prefix + "case-id"
	AttributeCaseDefinitionKey = Prefix + "definition-key"
	AttributeActivityId        = Prefix + "activity-id"
	AttributeActivityType      = Prefix + "activity-type"
	AttributeExecutionKey      = Prefix + "execution-key"
	AttributeExecutionState    = Prefix + "execution-state"
)
