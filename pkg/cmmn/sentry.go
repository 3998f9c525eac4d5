package cmmn

import (
	"slices"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

// Sentry firing protocol. A standard event of a child execution marks
// the matching onParts of the surrounding scope as satisfied before any
// cascading transition runs; fully satisfied sentries are then reset and
// fired against the scope's subtree, deepest descendants first. The
// reset enables the same sentry to fire again for a repeated plan item.

// handleChildTransition routes one standard event of a child execution
// into the sentries of its scope.
func (t *executionTree) handleChildTransition(scope *runtime.CaseExecution, child *runtime.CaseExecution, event cmmn11.StandardEvent) error {
	affected := t.collectAffectedSentries(scope, child, event)
	if len(affected) == 0 {
		return nil
	}
	t.forceUpdateOnSentries(scope, affected)

	satisfied, err := t.getSatisfiedSentries(scope, affected)
	if err != nil {
		return err
	}
	if len(satisfied) == 0 {
		return nil
	}

	t.resetSentries(scope, satisfied)
	if t.engine.metrics != nil {
		t.engine.metrics.SentriesFired.Add(t.engine.meterContext(), int64(len(satisfied)))
	}
	return t.fireSentries(scope, satisfied)
}

// collectAffectedSentries marks the onParts subscribed to the given
// event as satisfied. Already satisfied parts stay satisfied, so a
// second occurrence of the same event is idempotent.
func (t *executionTree) collectAffectedSentries(scope *runtime.CaseExecution, child *runtime.CaseExecution, event cmmn11.StandardEvent) []string {
	var affected []string
	for _, part := range t.scopeParts(scope.Key) {
		if part.Type != runtime.SentryPartTypeOnPart {
			continue
		}
		if part.Source != child.ActivityId || part.StandardEvent != event {
			continue
		}
		if !part.Satisfied {
			part.Satisfied = true
			t.markPartDirty(part)
		}
		if !slices.Contains(affected, part.SentryId) {
			affected = append(affected, part.SentryId)
		}
	}
	return affected
}

// forceUpdateOnSentries marks every part of the affected sentries dirty,
// so concurrent commands on the same case instance collide on the
// revision check instead of firing the same sentry twice.
func (t *executionTree) forceUpdateOnSentries(scope *runtime.CaseExecution, sentryIds []string) {
	for _, sentryId := range sentryIds {
		for _, part := range t.sentryParts(scope.Key, sentryId) {
			t.markPartDirty(part)
		}
	}
}

// getSatisfiedSentries filters the affected sentries down to the fully
// satisfied ones: every onPart fired and the ifPart, if any, evaluates
// to true. The ifPart result is persisted on the part, so it is only
// evaluated once per firing cycle.
func (t *executionTree) getSatisfiedSentries(scope *runtime.CaseExecution, sentryIds []string) ([]string, error) {
	var satisfied []string
	for _, sentryId := range sentryIds {
		ok, err := t.isSentrySatisfied(scope, sentryId)
		if err != nil {
			return nil, err
		}
		if ok {
			satisfied = append(satisfied, sentryId)
		}
	}
	return satisfied, nil
}

func (t *executionTree) isSentrySatisfied(scope *runtime.CaseExecution, sentryId string) (bool, error) {
	for _, part := range t.sentryParts(scope.Key, sentryId) {
		switch part.Type {
		case runtime.SentryPartTypeOnPart:
			if !part.Satisfied {
				return false, nil
			}
		case runtime.SentryPartTypeIfPart:
			if part.Satisfied {
				continue
			}
			ok, err := t.evaluateIfPart(scope, sentryId)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			part.Satisfied = true
			t.markPartDirty(part)
		}
	}
	return true, nil
}

func (t *executionTree) evaluateIfPart(scope *runtime.CaseExecution, sentryId string) (bool, error) {
	declaration, _ := t.definition.Model.FindSentryById(sentryId)
	if declaration == nil || declaration.IfPart == nil {
		return false, newEngineErrorf("sentry %s of case execution %d has no ifPart declaration", sentryId, scope.Key)
	}
	return evaluateBoolExpression(declaration.IfPart.Condition, t.variableScope(scope))
}

// resetSentries puts the parts of the fired sentries back to
// unsatisfied.
func (t *executionTree) resetSentries(scope *runtime.CaseExecution, sentryIds []string) {
	for _, sentryId := range sentryIds {
		for _, part := range t.sentryParts(scope.Key, sentryId) {
			if part.Satisfied {
				part.Satisfied = false
				t.markPartDirty(part)
			}
		}
	}
}

// fireSentries applies the fired sentries as entry and exit criteria
// across the scope's subtree. Deeper descendants are visited first, and
// executions retired by an earlier firing in the same walk are skipped.
func (t *executionTree) fireSentries(scope *runtime.CaseExecution, sentryIds []string) error {
	for _, execution := range t.subtree(scope) {
		if !t.present(execution) {
			continue
		}
		if execution.IsActive() {
			if err := t.checkAndFireExitCriteria(execution, sentryIds); err != nil {
				return err
			}
			continue
		}
		if err := t.checkAndFireEntryCriteria(execution, sentryIds); err != nil {
			return err
		}
	}
	if t.present(scope) && scope.IsCaseInstance() && scope.IsActive() {
		return t.checkAndFireExitCriteria(scope, sentryIds)
	}
	return nil
}

func (t *executionTree) checkAndFireExitCriteria(execution *runtime.CaseExecution, sentryIds []string) error {
	behavior, activity, err := t.behaviorOf(execution)
	if err != nil {
		return err
	}
	for _, criterion := range activity.ExitCriteria {
		if slices.Contains(sentryIds, criterion) {
			return behavior.fireExitCriteria(t, execution)
		}
	}
	return nil
}

// checkAndFireEntryCriteria fires an available execution; an execution
// still NEW only records the satisfied criterion and fires once its
// creation lifecycle runs.
func (t *executionTree) checkAndFireEntryCriteria(execution *runtime.CaseExecution, sentryIds []string) error {
	if !execution.IsAvailable() && !execution.IsNew() {
		return nil
	}
	behavior, activity, err := t.behaviorOf(execution)
	if err != nil {
		return err
	}
	for _, criterion := range activity.EntryCriteria {
		if !slices.Contains(sentryIds, criterion) {
			continue
		}
		if execution.IsNew() {
			execution.EntryCriterionSatisfied = true
			return nil
		}
		return behavior.fireEntryCriteria(t, execution)
	}
	return nil
}

// fireIfOnlySentryParts evaluates the sentries of a freshly started
// stage that consist of an ifPart alone. Such a sentry has no triggering
// event, so it gets one evaluation right after the stage's children are
// instantiated.
func (t *executionTree) fireIfOnlySentryParts(e *runtime.CaseExecution) error {
	hasOnPart := map[string]bool{}
	ifOnly := map[string]bool{}
	var order []string
	for _, part := range t.scopeParts(e.Key) {
		switch part.Type {
		case runtime.SentryPartTypeOnPart:
			hasOnPart[part.SentryId] = true
		case runtime.SentryPartTypeIfPart:
			if !part.Satisfied && !ifOnly[part.SentryId] {
				ifOnly[part.SentryId] = true
				order = append(order, part.SentryId)
			}
		}
	}

	var satisfied []string
	for _, sentryId := range order {
		if hasOnPart[sentryId] {
			continue
		}
		ok, err := t.isSentrySatisfied(e, sentryId)
		if err != nil {
			return err
		}
		if ok {
			satisfied = append(satisfied, sentryId)
		}
	}
	if len(satisfied) == 0 {
		return nil
	}

	t.resetSentries(e, satisfied)
	if t.engine.metrics != nil {
		t.engine.metrics.SentriesFired.Add(t.engine.meterContext(), int64(len(satisfied)))
	}
	return t.fireSentries(e, satisfied)
}
