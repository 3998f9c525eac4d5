package cmmn

import (
	"fmt"
	"strings"

	"github.com/pbinitiative/feel"
)

func evaluateExpression(expression string, variableContext map[string]interface{}) (interface{}, error) {
	expression = strings.TrimSpace(expression)
	//check if is expression if not treat as constant
	if !strings.HasPrefix(expression, "=") {
		return expression, nil
	}

	expression = strings.TrimPrefix(expression, "=")
	res, err := feel.EvalStringWithScope(expression, variableContext)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %s with variables %s : %w", expression, variableContext, err)
	}
	return res, nil
}

// evaluateBoolExpression evaluates a rule condition against the case
// variables. Constants "true" and "false" work without the expression
// prefix.
func evaluateBoolExpression(expression string, variableContext map[string]interface{}) (bool, error) {
	out, err := evaluateExpression(expression, variableContext)
	if err != nil {
		return false, &ExpressionEvaluationError{
			Msg: fmt.Sprintf("error evaluating condition '%s'", expression),
			Err: err,
		}
	}
	switch result := out.(type) {
	case bool:
		return result, nil
	case string:
		switch strings.TrimSpace(result) {
		case "true":
			return true, nil
		case "false", "":
			return false, nil
		}
	}
	return false, &ExpressionEvaluationError{
		Msg: fmt.Sprintf("condition '%s' returned non-boolean result: %v", expression, out),
	}
}
