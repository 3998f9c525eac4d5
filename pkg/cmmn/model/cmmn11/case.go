package cmmn11

import "fmt"

// Case is the parsed definition of a single case: a case plan model with
// its nested plan items and sentries, plus lookup indexes built once.
type Case struct {
	Id            string
	Name          string
	CasePlanModel *Activity

	activitiesById map[string]*Activity
	parentById     map[string]*Activity
	sentryScopeBy  map[string]*Activity
}

// Prepare builds the lookup indexes and validates the definition. A
// case must be prepared once before it is executed; CaseBuilder.Build
// does it for builder-made definitions.
func (c *Case) Prepare() error {
	if err := c.index(); err != nil {
		return err
	}
	return c.validate()
}

// index (re)builds the lookup maps over the case plan model tree.
func (c *Case) index() error {
	c.activitiesById = map[string]*Activity{}
	c.parentById = map[string]*Activity{}
	c.sentryScopeBy = map[string]*Activity{}
	return c.indexActivity(c.CasePlanModel, nil)
}

func (c *Case) indexActivity(activity *Activity, parent *Activity) error {
	if _, ok := c.activitiesById[activity.Id]; ok {
		return fmt.Errorf("duplicate activity id: %s", activity.Id)
	}
	c.activitiesById[activity.Id] = activity
	if parent != nil {
		c.parentById[activity.Id] = parent
	}
	for i := range activity.Sentries {
		sentryId := activity.Sentries[i].Id
		if _, ok := c.sentryScopeBy[sentryId]; ok {
			return fmt.Errorf("duplicate sentry id: %s", sentryId)
		}
		c.sentryScopeBy[sentryId] = activity
	}
	for _, child := range activity.Activities {
		if err := c.indexActivity(child, activity); err != nil {
			return err
		}
	}
	return nil
}

// FindActivityById returns the plan item with the given id, or nil.
func (c *Case) FindActivityById(activityId string) *Activity {
	return c.activitiesById[activityId]
}

// ParentOf returns the composite containing the given plan item;
// nil for the case plan model itself.
func (c *Case) ParentOf(activityId string) *Activity {
	return c.parentById[activityId]
}

// FindSentryById returns the sentry declaration with the given id
// together with the stage it is declared in.
func (c *Case) FindSentryById(sentryId string) (*SentryDeclaration, *Activity) {
	scope, ok := c.sentryScopeBy[sentryId]
	if !ok {
		return nil, nil
	}
	return scope.GetSentry(sentryId), scope
}

// EntryCriteria resolves the entry criteria of a plan item to their
// sentry declarations.
func (c *Case) EntryCriteria(activity *Activity) []*SentryDeclaration {
	return c.resolveCriteria(activity.EntryCriteria)
}

// ExitCriteria resolves the exit criteria of a plan item to their
// sentry declarations.
func (c *Case) ExitCriteria(activity *Activity) []*SentryDeclaration {
	return c.resolveCriteria(activity.ExitCriteria)
}

func (c *Case) resolveCriteria(sentryIds []string) []*SentryDeclaration {
	var result []*SentryDeclaration
	for _, id := range sentryIds {
		if declaration, _ := c.FindSentryById(id); declaration != nil {
			result = append(result, declaration)
		}
	}
	return result
}

// validate checks referential consistency of criteria and onParts.
func (c *Case) validate() error {
	for id, activity := range c.activitiesById {
		for _, sentryId := range append(append([]string{}, activity.EntryCriteria...), activity.ExitCriteria...) {
			declaration, _ := c.FindSentryById(sentryId)
			if declaration == nil {
				return fmt.Errorf("activity %s references undeclared sentry %s", id, sentryId)
			}
		}
		if len(activity.Activities) > 0 && !activity.Type.IsComposite() {
			return fmt.Errorf("activity %s of type %s cannot contain child activities", id, activity.Type)
		}
	}
	for sentryId, scope := range c.sentryScopeBy {
		declaration := scope.GetSentry(sentryId)
		for _, onPart := range declaration.OnParts {
			if c.FindActivityById(onPart.SourceRef) == nil {
				return fmt.Errorf("sentry %s references unknown source activity %s", sentryId, onPart.SourceRef)
			}
		}
	}
	if c.CasePlanModel.Type != ActivityTypeCasePlanModel {
		return fmt.Errorf("case %s: root activity must be a case plan model, got %s", c.Id, c.CasePlanModel.Type)
	}
	return nil
}
