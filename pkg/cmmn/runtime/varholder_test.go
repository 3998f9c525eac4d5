package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariableHolderShadowsParentScope(t *testing.T) {
	parent := NewVariableHolder(nil, map[string]interface{}{
		"shared": "parent",
		"only":   float64(1),
	})
	child := NewVariableHolder(&parent, map[string]interface{}{
		"shared": "child",
	})

	assert.Equal(t, "child", child.GetVariable("shared"))
	assert.Equal(t, float64(1), child.GetVariable("only"))
	assert.Nil(t, child.GetVariable("missing"))

	merged := child.Variables()
	assert.Equal(t, map[string]interface{}{
		"shared": "child",
		"only":   float64(1),
	}, merged)

	// the parent scope is untouched by the child's shadowing
	assert.Equal(t, "parent", parent.GetVariable("shared"))
}

func TestVariableHolderWritesStayLocal(t *testing.T) {
	parent := NewVariableHolder(nil, map[string]interface{}{"v": "old"})
	child := NewVariableHolder(&parent, nil)

	child.SetVariables(map[string]interface{}{"v": "new", "extra": true})

	assert.Equal(t, "new", child.GetVariable("v"))
	assert.Equal(t, "old", parent.GetVariable("v"))
	assert.Equal(t, map[string]interface{}{"v": "new", "extra": true}, child.LocalVariables())

	child.DeleteVariable("v")
	assert.Equal(t, "old", child.GetVariable("v"))
}

func TestZeroValueVariableHolderIsUsable(t *testing.T) {
	var holder VariableHolder

	holder.SetVariable("v", 42)
	assert.Equal(t, 42, holder.GetVariable("v"))
	assert.Equal(t, map[string]interface{}{"v": 42}, holder.Variables())
}
