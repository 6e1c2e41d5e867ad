// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

func LoadRegistry(path string) (*InspectionRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg InspectionRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse registry %s: %w", path, err)
	}
	return &reg, nil
}

// SaveRegistry writes reg as indented JSON, stamping LastUpdated.
func SaveRegistry(reg *InspectionRegistry, path string) error {
	reg.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

// Find returns the entry for type t, or nil.
func (r *InspectionRegistry) Find(t string) *Inspection {
	for i := range r.Inspections {
		if r.Inspections[i].Type == t {
			return &r.Inspections[i]
		}
	}
	return nil
}

// Validate checks the registry for duplicates and malformed overrides.
// known lists the accepted type names.
func (r *InspectionRegistry) Validate(known []string) error {
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}

	seen := make(map[string]bool)
	for _, in := range r.Inspections {
		if in.Type == "" {
			return fmt.Errorf("inspection missing required field: type")
		}
		if len(allowed) > 0 && !allowed[in.Type] {
			return fmt.Errorf("unknown inspection type: %s", in.Type)
		}
		if seen[in.Type] {
			return fmt.Errorf("duplicate inspection type: %s", in.Type)
		}
		seen[in.Type] = true

		if in.Cap < 0 {
			return fmt.Errorf("inspection %s: cap must not be negative", in.Type)
		}
		if in.MinPhotos != nil && (*in.MinPhotos < 0 || *in.MinPhotos > 5) {
			return fmt.Errorf("inspection %s: minPhotos must be between 0 and 5", in.Type)
		}

		items := make(map[string]bool)
		for _, item := range in.Checklist {
			if !keyPattern.MatchString(item.Key) {
				return fmt.Errorf("inspection %s: invalid checklist key %q", in.Type, item.Key)
			}
			if items[item.Key] {
				return fmt.Errorf("inspection %s: duplicate checklist key %q", in.Type, item.Key)
			}
			if item.Label == "" {
				return fmt.Errorf("inspection %s: checklist item %s has no label", in.Type, item.Key)
			}
			items[item.Key] = true
		}
	}
	return nil
}
