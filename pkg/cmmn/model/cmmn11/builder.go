package cmmn11

import "github.com/operaton/caseflow/pkg/ptr"

// CaseBuilder assembles a Case definition programmatically. Definitions
// normally come from an external modeling/parsing layer; the builder is
// the in-process way to declare them (and what the engine tests use).
//
//	c, err := cmmn11.NewCaseBuilder("case").
//		CreateStage("PI_Stage_1").
//		AutoComplete().
//		CreateHumanTask("PI_HumanTask_1").
//		EndActivity().
//		Build()
//
// Create* descends into the new activity when it is composite; leaf
// activities stay current until the next Create*/EndActivity call so
// rules and criteria attach to them.
type CaseBuilder struct {
	definition *Case
	stack      []*Activity
	current    *Activity
}

// NewCaseBuilder starts a new case definition; the case plan model gets
// the id of the case itself, as the modeling layer does.
func NewCaseBuilder(caseId string) *CaseBuilder {
	root := &Activity{
		Id:   caseId,
		Type: ActivityTypeCasePlanModel,
	}
	return &CaseBuilder{
		definition: &Case{Id: caseId, CasePlanModel: root},
		stack:      []*Activity{root},
		current:    root,
	}
}

func (b *CaseBuilder) top() *Activity {
	return b.stack[len(b.stack)-1]
}

func (b *CaseBuilder) create(id string, activityType ActivityType) *CaseBuilder {
	// a leaf stays current only until the next sibling is declared
	if b.current != b.top() && b.current.Type.IsComposite() {
		b.stack = append(b.stack, b.current)
	}
	activity := &Activity{Id: id, Type: activityType}
	parent := b.top()
	parent.Activities = append(parent.Activities, activity)
	b.current = activity
	return b
}

// CreateStage declares a stage inside the current composite and makes
// it the current activity; subsequent Create* calls nest inside it.
func (b *CaseBuilder) CreateStage(id string) *CaseBuilder {
	return b.create(id, ActivityTypeStage)
}

// CreateTask declares a generic (auto-completing) task.
func (b *CaseBuilder) CreateTask(id string) *CaseBuilder {
	return b.create(id, ActivityTypeTask)
}

// CreateHumanTask declares a blocking human task.
func (b *CaseBuilder) CreateHumanTask(id string) *CaseBuilder {
	b.create(id, ActivityTypeHumanTask)
	b.current.IsBlocking = true
	return b
}

// CreateMilestone declares a milestone.
func (b *CaseBuilder) CreateMilestone(id string) *CaseBuilder {
	return b.create(id, ActivityTypeMilestone)
}

// CreateEventListener declares an event listener.
func (b *CaseBuilder) CreateEventListener(id string) *CaseBuilder {
	return b.create(id, ActivityTypeEventListener)
}

// EndActivity closes the current composite and continues in its parent.
// An open leaf closes together with its stage.
func (b *CaseBuilder) EndActivity() *CaseBuilder {
	if b.current != b.top() && b.current.Type.IsComposite() {
		// an empty composite was never entered, it closes on its own
		b.current = b.top()
		return b
	}
	if len(b.stack) > 1 {
		b.stack = b.stack[:len(b.stack)-1]
	}
	b.current = b.top()
	return b
}

// Name sets the display name of the current activity.
func (b *CaseBuilder) Name(name string) *CaseBuilder {
	b.current.Name = name
	return b
}

// AutoComplete marks the current composite as auto-completing.
func (b *CaseBuilder) AutoComplete() *CaseBuilder {
	b.current.AutoComplete = true
	return b
}

// ManualActivationRule attaches a manual-activation expression to the
// current activity; without one the activity starts automatically.
func (b *CaseBuilder) ManualActivationRule(expression string) *CaseBuilder {
	b.current.ManualActivationRule = ptr.To(Rule{Expression: expression})
	return b
}

// RequiredRule attaches a required-rule expression.
func (b *CaseBuilder) RequiredRule(expression string) *CaseBuilder {
	b.current.RequiredRule = ptr.To(Rule{Expression: expression})
	return b
}

// RepetitionRule attaches a repetition rule; events override the
// default repeat-on events (complete, disable).
func (b *CaseBuilder) RepetitionRule(expression string, events ...StandardEvent) *CaseBuilder {
	b.current.RepetitionRule = ptr.To(RepetitionRule{Expression: expression, RepeatOnEvents: events})
	return b
}

// Sentry declares a sentry on the composite surrounding the current
// activity (or on the current composite itself).
func (b *CaseBuilder) Sentry(id string, onParts ...OnPartDeclaration) *CaseBuilder {
	scope := b.top()
	scope.Sentries = append(scope.Sentries, SentryDeclaration{Id: id, OnParts: onParts})
	return b
}

// SentryWithIfPart declares a sentry with an ifPart condition.
func (b *CaseBuilder) SentryWithIfPart(id string, condition string, onParts ...OnPartDeclaration) *CaseBuilder {
	scope := b.top()
	scope.Sentries = append(scope.Sentries, SentryDeclaration{
		Id:      id,
		OnParts: onParts,
		IfPart:  &IfPartDeclaration{Condition: condition},
	})
	return b
}

// OnPart is shorthand for an onPart declaration.
func OnPart(sourceRef string, event StandardEvent) OnPartDeclaration {
	return OnPartDeclaration{SourceRef: sourceRef, StandardEvent: event}
}

// EntryCriterion references a declared sentry as entry criterion of the
// current activity.
func (b *CaseBuilder) EntryCriterion(sentryId string) *CaseBuilder {
	b.current.EntryCriteria = append(b.current.EntryCriteria, sentryId)
	return b
}

// ExitCriterion references a declared sentry as exit criterion of the
// current activity.
func (b *CaseBuilder) ExitCriterion(sentryId string) *CaseBuilder {
	b.current.ExitCriteria = append(b.current.ExitCriteria, sentryId)
	return b
}

// Build indexes and validates the definition.
func (b *CaseBuilder) Build() (*Case, error) {
	if err := b.definition.Prepare(); err != nil {
		return nil, err
	}
	return b.definition, nil
}
