package ports

// Host bundles every collaborator a full engine needs.
// Hosts usually implement it with a single adapter value.
type Host interface {
	VariableStore
	VariableSink
	CustomVariables
	FeedbackEngine
	PageAssignment
	SurfaceControl
	UserConfig
	ChoiceSets
	BankStore
	StyleOverrides
	ButtonControl
	InstanceControl
	AppControl
}
