package logging

// Standardized attribute keys shared across symsync components.
const (
	FieldComponent = "component"
	FieldConfigID  = "config_id"
	FieldSource    = "source"
	FieldTarget    = "target"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
)
