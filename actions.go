package templating

// ActionType names an intent handled by variable reducers.
type ActionType string

const (
	ActionAddVariable                  ActionType = "templating/addVariable"
	ActionRemoveVariable               ActionType = "templating/removeVariable"
	ActionSetCurrentVariableValue      ActionType = "templating/setCurrentVariableValue"
	ActionChangeVariableInitLock       ActionType = "templating/changeVariableInitLock"
	ActionUpdateVariableOptions        ActionType = "templating/updateVariableOptions"
	ActionUpdateVariableTags           ActionType = "templating/updateVariableTags"
	ActionCreateCustomOptionsFromQuery ActionType = "templating/createCustomOptionsFromQuery"
)

// Log-only action names. They label DispatchLogEvents and are never
// dispatched.
const (
	ActionMetricFindQuery ActionType = "templating/metricFindQuery"
	ActionEmitActivity    ActionType = "templating/emitActivity"
)

// Action is an intent dispatched against one variable instance.
type Action interface {
	Type() ActionType
	Target() Identifier
}

// AddVariable inserts a new variable instance built from the adapter's
// initial state merged with Model.
type AddVariable struct {
	ID    Identifier
	Model VariableModel
}

func (a AddVariable) Type() ActionType   { return ActionAddVariable }
func (a AddVariable) Target() Identifier { return a.ID }

// RemoveVariable discards a variable instance.
type RemoveVariable struct {
	ID Identifier
}

func (a RemoveVariable) Type() ActionType   { return ActionRemoveVariable }
func (a RemoveVariable) Target() Identifier { return a.ID }

// SetCurrentVariableValue commits Option as the current selection.
type SetCurrentVariableValue struct {
	ID     Identifier
	Option VariableOption
}

func (a SetCurrentVariableValue) Type() ActionType   { return ActionSetCurrentVariableValue }
func (a SetCurrentVariableValue) Target() Identifier { return a.ID }

// ChangeVariableInitLock replaces the in-flight initialization handle.
type ChangeVariableInitLock struct {
	ID   Identifier
	Lock *InitLock
}

func (a ChangeVariableInitLock) Type() ActionType   { return ActionChangeVariableInitLock }
func (a ChangeVariableInitLock) Target() Identifier { return a.ID }

// UpdateVariableOptions replaces a query variable's options with the
// resolution of Results.
type UpdateVariableOptions struct {
	ID      Identifier
	Results []MetricFindValue
}

func (a UpdateVariableOptions) Type() ActionType   { return ActionUpdateVariableOptions }
func (a UpdateVariableOptions) Target() Identifier { return a.ID }

// UpdateVariableTags replaces a query variable's tags.
type UpdateVariableTags struct {
	ID      Identifier
	Results []MetricFindValue
}

func (a UpdateVariableTags) Type() ActionType   { return ActionUpdateVariableTags }
func (a UpdateVariableTags) Target() Identifier { return a.ID }

// CreateCustomOptionsFromQuery re-derives a custom variable's options from
// its static query.
type CreateCustomOptionsFromQuery struct {
	ID Identifier
}

func (a CreateCustomOptionsFromQuery) Type() ActionType   { return ActionCreateCustomOptionsFromQuery }
func (a CreateCustomOptionsFromQuery) Target() Identifier { return a.ID }
