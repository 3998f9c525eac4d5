package runtime

// VariableHolder keeps the variables of a scope with an optional parent
// scope. Case-level variables live on the root case execution; rule and
// ifPart expressions are evaluated against them.
type VariableHolder struct {
	parent         *VariableHolder
	localVariables map[string]interface{}
}

// NewVariableHolder creates a new VariableHolder with a given parent and
// localVariables map. If localVariables is nil an empty map is used.
func NewVariableHolder(parent *VariableHolder, localVariables map[string]interface{}) VariableHolder {
	if localVariables == nil {
		localVariables = make(map[string]interface{})
	}
	return VariableHolder{
		parent:         parent,
		localVariables: localVariables,
	}
}

// Variables returns the merged view of this scope: parent variables
// shadowed by local ones.
func (vh *VariableHolder) Variables() map[string]interface{} {
	merged := make(map[string]interface{})
	if vh.parent != nil {
		for k, v := range vh.parent.Variables() {
			merged[k] = v
		}
	}
	for k, v := range vh.localVariables {
		merged[k] = v
	}
	return merged
}

func (vh *VariableHolder) LocalVariables() map[string]interface{} {
	if vh.localVariables == nil {
		vh.localVariables = make(map[string]interface{})
	}
	return vh.localVariables
}

// GetVariable resolves a variable in this scope or any parent scope.
func (vh *VariableHolder) GetVariable(key string) interface{} {
	if v, ok := vh.localVariables[key]; ok {
		return v
	}
	if vh.parent != nil {
		return vh.parent.GetVariable(key)
	}
	return nil
}

func (vh *VariableHolder) SetVariable(key string, val interface{}) {
	vh.LocalVariables()[key] = val
}

func (vh *VariableHolder) SetVariables(variables map[string]interface{}) {
	for k, v := range variables {
		vh.SetVariable(k, v)
	}
}

func (vh *VariableHolder) DeleteVariable(key string) {
	delete(vh.LocalVariables(), key)
}
