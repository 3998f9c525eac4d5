package cmmn

import (
	"slices"

	"github.com/operaton/caseflow/pkg/cmmn/model/cmmn11"
	"github.com/operaton/caseflow/pkg/cmmn/runtime"
)

// entryCriteriaRepeatEvents are the events a repetition rule is
// evaluated on when the plan item declares entry criteria: the rule then
// decides at activation time whether a further instance waits for the
// criteria again.
var entryCriteriaRepeatEvents = []cmmn11.StandardEvent{
	cmmn11.EventEnable,
	cmmn11.EventStart,
	cmmn11.EventOccur,
}

// evaluateRepetition spawns a fresh sibling instance of a plan item when
// its repetition rule holds for the emitted event. The sibling runs the
// regular creation lifecycle under the same parent: without entry
// criteria it activates (or enables) immediately, with entry criteria it
// stays available until a sentry fires again.
func (t *executionTree) evaluateRepetition(e *runtime.CaseExecution, event cmmn11.StandardEvent) error {
	activity, err := t.activity(e)
	if err != nil {
		return err
	}
	rule := activity.RepetitionRule
	if rule == nil {
		return nil
	}

	if len(activity.EntryCriteria) == 0 {
		if !slices.Contains(rule.Events(), event) {
			return nil
		}
	} else if !slices.Contains(entryCriteriaRepeatEvents, event) {
		return nil
	}

	if rule.Expression != "" {
		repeat, err := evaluateBoolExpression(rule.Expression, t.variableScope(e))
		if err != nil {
			return err
		}
		if !repeat {
			return nil
		}
	}

	parent := t.parentOf(e)
	if parent == nil || !t.present(parent) || !parent.IsActive() {
		return nil
	}

	sibling := t.createChildExecution(parent, activity)
	return t.create(sibling)
}
