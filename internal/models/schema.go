package models

// FieldSchema describes one exploration parameter to widget-building
// clients: its kind, constraint, and current default. The dashboard builds
// its controls from this instead of hardcoding them.
type FieldSchema struct {
	Name    string      `json:"name"`
	Kind    string      `json:"kind"` // magnitude | selector | range
	Doc     string      `json:"doc,omitempty"`
	Default interface{} `json:"default"`

	// Selector fields only
	Allowed []string `json:"allowed,omitempty"`

	// Range fields only
	BoundLo int `json:"bound_lo,omitempty"`
	BoundHi int `json:"bound_hi,omitempty"`
}

// SchemaResponse represents the widget contract of the explorer
type SchemaResponse struct {
	Fields []FieldSchema `json:"fields"`
}
