package cmmn11

// ActivityType discriminates the runtime behavior of a plan item.
// The behavior variant for a case execution is chosen once, at creation
// time, based on this type.
type ActivityType string

const (
	ActivityTypeCasePlanModel ActivityType = "CASE_PLAN_MODEL"
	ActivityTypeStage         ActivityType = "STAGE"
	ActivityTypeTask          ActivityType = "TASK"
	ActivityTypeHumanTask     ActivityType = "HUMAN_TASK"
	ActivityTypeMilestone     ActivityType = "MILESTONE"
	ActivityTypeEventListener ActivityType = "EVENT_LISTENER"
)

// IsComposite reports whether activities of this type may contain
// child plan items.
func (t ActivityType) IsComposite() bool {
	return t == ActivityTypeCasePlanModel || t == ActivityTypeStage
}

// IsTask reports whether activities of this type are leaf tasks.
func (t ActivityType) IsTask() bool {
	return t == ActivityTypeTask || t == ActivityTypeHumanTask
}

// IsTerminalEvent reports whether activities of this type occur instead
// of being started (milestones and event listeners).
func (t ActivityType) IsTerminalEvent() bool {
	return t == ActivityTypeMilestone || t == ActivityTypeEventListener
}

// StandardEvent is a named lifecycle event a case execution emits when
// it performs a transition. Sentry onParts subscribe to these events.
type StandardEvent string

const (
	EventCreate          StandardEvent = "create"
	EventEnable          StandardEvent = "enable"
	EventDisable         StandardEvent = "disable"
	EventReenable        StandardEvent = "reenable"
	EventManualStart     StandardEvent = "manualStart"
	EventStart           StandardEvent = "start"
	EventComplete        StandardEvent = "complete"
	EventParentComplete  StandardEvent = "parentComplete"
	EventTerminate       StandardEvent = "terminate"
	EventExit            StandardEvent = "exit"
	EventParentTerminate StandardEvent = "parentTerminate"
	EventSuspend         StandardEvent = "suspend"
	EventParentSuspend   StandardEvent = "parentSuspend"
	EventResume          StandardEvent = "resume"
	EventParentResume    StandardEvent = "parentResume"
	EventReactivate      StandardEvent = "reactivate"
	EventOccur           StandardEvent = "occur"
	EventClose           StandardEvent = "close"
)

// Rule is a boolean-valued FEEL expression evaluated against the case
// variables (manual activation, required and ifPart conditions).
type Rule struct {
	Expression string
}

// RepetitionRule decides whether a completed/disabled (or otherwise
// repeat-eligible) plan item spawns a fresh sibling instance.
// An empty RepeatOnEvents means the default events: complete and disable.
type RepetitionRule struct {
	Expression     string
	RepeatOnEvents []StandardEvent
}

// DefaultRepeatOnEvents are the standard events on which a repetition
// rule is evaluated when the declaration does not name its own.
var DefaultRepeatOnEvents = []StandardEvent{EventComplete, EventDisable}

// Events returns the standard events this rule repeats on.
func (r *RepetitionRule) Events() []StandardEvent {
	if len(r.RepeatOnEvents) == 0 {
		return DefaultRepeatOnEvents
	}
	return r.RepeatOnEvents
}

// OnPartDeclaration references a source plan item together with the
// standard event that satisfies this part of the sentry.
type OnPartDeclaration struct {
	SourceRef     string
	StandardEvent StandardEvent
}

// IfPartDeclaration is an optional boolean condition over the case
// variables; it is evaluated once all onParts of the sentry fired.
type IfPartDeclaration struct {
	Condition string
}

// SentryDeclaration is a named condition declared within a stage.
// Plan items of that stage reference it as an entry or exit criterion.
type SentryDeclaration struct {
	Id      string
	OnParts []OnPartDeclaration
	IfPart  *IfPartDeclaration
}

// Activity is a definition-time plan item: a stage, task, milestone or
// event listener, with its item control rules and declared sentries.
type Activity struct {
	Id   string
	Name string
	Type ActivityType

	// item control
	AutoComplete         bool
	IsBlocking           bool
	ManualActivationRule *Rule
	RequiredRule         *Rule
	RepetitionRule       *RepetitionRule

	// criteria reference sentries declared in the surrounding stage
	EntryCriteria []string
	ExitCriteria  []string

	// composite-only
	Sentries   []SentryDeclaration
	Activities []*Activity
}

// GetSentry returns the sentry declared on this activity with the given
// id, or nil.
func (a *Activity) GetSentry(sentryId string) *SentryDeclaration {
	for i := range a.Sentries {
		if a.Sentries[i].Id == sentryId {
			return &a.Sentries[i]
		}
	}
	return nil
}
