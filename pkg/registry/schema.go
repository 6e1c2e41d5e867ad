// pkg/registry/schema.go
package registry

// InspectionRegistry lets a site override the built-in inspection types
// without a rebuild.
type InspectionRegistry struct {
	Version     string       `json:"version"`
	LastUpdated string       `json:"lastUpdated"`
	Inspections []Inspection `json:"inspections"`
}

// Inspection overrides one built-in type. Zero values keep the built-in setting.
type Inspection struct {
	Type        string          `json:"type"`
	DisplayName string          `json:"displayName,omitempty"`
	Resource    string          `json:"resource,omitempty"`
	Cap         int             `json:"cap,omitempty"`
	MinPhotos   *int            `json:"minPhotos,omitempty"`
	Enabled     *bool           `json:"enabled,omitempty"`
	Checklist   []ChecklistItem `json:"checklist,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

type ChecklistItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}
