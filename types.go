package templating

import "slices"

// VariableType discriminates variable kinds and selects their adapter.
type VariableType string

const (
	// VariableTypeQuery derives options from a datasource query.
	VariableTypeQuery VariableType = "query"
	// VariableTypeCustom derives options from a static comma separated list.
	VariableTypeCustom VariableType = "custom"
)

// VariableHide controls how a variable is displayed.
type VariableHide int

const (
	HideNone VariableHide = iota
	HideLabel
	HideVariable
)

// VariableRefresh controls when query variables re-run their query.
type VariableRefresh int

const (
	RefreshNever VariableRefresh = iota
	RefreshOnDashboardLoad
	RefreshOnTimeRangeChanged
)

// VariableSort selects the ordering applied to resolved options. Codes are
// decoded as family = ceil(code/2) and descending = code is even.
type VariableSort int

const (
	SortDisabled VariableSort = iota
	SortAlphabeticalAsc
	SortAlphabeticalDesc
	SortNumericalAsc
	SortNumericalDesc
	SortAlphabeticalCaseInsensitiveAsc
	SortAlphabeticalCaseInsensitiveDesc
)

const (
	// AllVariableText is the display text of the synthetic "All" option.
	AllVariableText = "All"
	// AllVariableValue is the value of the synthetic "All" option.
	AllVariableValue = "$__all"
	// NoneVariableText is the display text of the synthetic "None" option.
	NoneVariableText = "None"
	// NoneVariableValue is the value of the synthetic "None" option.
	NoneVariableValue = ""
)

// VariableOption is one selectable value of a variable.
type VariableOption struct {
	Text     string `json:"text"`
	Value    string `json:"value"`
	Selected bool   `json:"selected"`
	IsNone   bool   `json:"isNone,omitempty"`
}

// IsAll reports whether the option is the "All" sentinel.
func (o VariableOption) IsAll() bool {
	return o.Value == AllVariableValue || o.Text == AllVariableText
}

// VariableTag is a secondary option dimension of query variables.
type VariableTag struct {
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// Identifier addresses a variable instance by kind and name.
type Identifier struct {
	Type VariableType
	Name string
}

// String renders the identifier as "type/name".
func (id Identifier) String() string {
	return string(id.Type) + "/" + id.Name
}

// VariableModel is implemented by every variable kind. Kind specific state
// lives on the concrete type; shared fields are exposed through Common.
type VariableModel interface {
	Common() *VariableBase
	Clone() VariableModel
}

// VariableBase holds the fields shared by all variable kinds.
type VariableBase struct {
	Name        string           `json:"name"`
	Label       string           `json:"label,omitempty"`
	Type        VariableType     `json:"type"`
	Hide        VariableHide     `json:"hide"`
	SkipURLSync bool             `json:"skipUrlSync"`
	Index       int              `json:"index"`
	Global      bool             `json:"global"`
	InitLock    *InitLock        `json:"-"`
	Current     VariableOption   `json:"current"`
	Options     []VariableOption `json:"options"`
}

// Common implements VariableModel.
func (b *VariableBase) Common() *VariableBase {
	return b
}

// ID returns the identifier of the variable.
func (b *VariableBase) ID() Identifier {
	return Identifier{Type: b.Type, Name: b.Name}
}

func (b VariableBase) clone() VariableBase {
	out := b
	out.Options = slices.Clone(b.Options)
	return out
}

// QueryVariable derives its options from a datasource query.
type QueryVariable struct {
	VariableBase
	Datasource     string          `json:"datasource"`
	Query          string          `json:"query"`
	Regex          string          `json:"regex"`
	Sort           VariableSort    `json:"sort"`
	Refresh        VariableRefresh `json:"refresh"`
	Multi          bool            `json:"multi"`
	IncludeAll     bool            `json:"includeAll"`
	AllValue       string          `json:"allValue,omitempty"`
	Tags           []VariableTag   `json:"tags"`
	UseTags        bool            `json:"useTags"`
	TagsQuery      string          `json:"tagsQuery"`
	TagValuesQuery string          `json:"tagValuesQuery"`
	Definition     string          `json:"definition"`
}

// Clone returns a copy that shares no mutable structure with v.
func (v *QueryVariable) Clone() VariableModel {
	out := *v
	out.VariableBase = v.VariableBase.clone()
	out.Tags = slices.Clone(v.Tags)
	return &out
}

// CustomVariable derives its options from a static comma separated list.
type CustomVariable struct {
	VariableBase
	Query      string `json:"query"`
	Multi      bool   `json:"multi"`
	IncludeAll bool   `json:"includeAll"`
	AllValue   string `json:"allValue,omitempty"`
}

// Clone returns a copy that shares no mutable structure with v.
func (v *CustomVariable) Clone() VariableModel {
	out := *v
	out.VariableBase = v.VariableBase.clone()
	return &out
}

// CustomAllValue implements AllValueProvider.
func (v *QueryVariable) CustomAllValue() string {
	return v.AllValue
}

// CustomAllValue implements AllValueProvider.
func (v *CustomVariable) CustomAllValue() string {
	return v.AllValue
}

// AllValueProvider is implemented by kinds that support a custom value for
// the "All" option.
type AllValueProvider interface {
	CustomAllValue() string
}
