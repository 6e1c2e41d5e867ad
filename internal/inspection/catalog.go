package inspection

import (
	"fmt"

	"ert-inspection/internal/common/config"
	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/models"
	"ert-inspection/internal/wizard"
	"ert-inspection/pkg/registry"
)

// Catalog is the set of enabled inspection definitions.
type Catalog struct {
	defs  map[models.InspectionType]*wizard.Definition
	order []models.InspectionType
}

// Option customizes a catalog before the definitions are built.
type Option func(*wizard.Definition, *bool)

// WithConfig applies the per-type "inspections" config section.
func WithConfig(cfg *config.Config) Option {
	return func(d *wizard.Definition, enabled *bool) {
		if cfg == nil {
			return
		}
		if !config.IsInspectionEnabled(cfg, string(d.Type)) {
			*enabled = false
		}
		ic, ok := cfg.Inspections[string(d.Type)]
		if !ok {
			return
		}
		if ic.Cap > 0 {
			d.Cap = ic.Cap
		}
		if ic.Resource != "" {
			d.Resource = ic.Resource
		}
	}
}

// WithRegistry applies a registry file's overrides.
func WithRegistry(reg *registry.InspectionRegistry) Option {
	return func(d *wizard.Definition, enabled *bool) {
		if reg == nil {
			return
		}
		entry := reg.Find(string(d.Type))
		if entry == nil {
			return
		}
		if entry.Enabled != nil {
			*enabled = *entry.Enabled
		}
		if entry.DisplayName != "" {
			d.Title = entry.DisplayName
		}
		if entry.Resource != "" {
			d.Resource = entry.Resource
		}
		if entry.Cap > 0 {
			d.Cap = entry.Cap
		}
		if entry.MinPhotos != nil && d.PhotoStep != 0 {
			d.MinPhotos = *entry.MinPhotos
		}
		if len(entry.Checklist) > 0 {
			d.Checklist = make([]wizard.ChecklistItem, len(entry.Checklist))
			for i, item := range entry.Checklist {
				d.Checklist[i] = wizard.ChecklistItem{Key: item.Key, Label: item.Label}
			}
		}
	}
}

// NewCatalog builds the built-in definitions with options applied in order.
func NewCatalog(opts ...Option) (*Catalog, error) {
	c := &Catalog{defs: make(map[models.InspectionType]*wizard.Definition)}
	for _, d := range builtins() {
		enabled := true
		for _, opt := range opts {
			opt(&d, &enabled)
		}
		if !enabled {
			continue
		}
		def, err := wizard.Build(d)
		if err != nil {
			return nil, fmt.Errorf("build %s definition: %w", d.Type, err)
		}
		c.defs[def.Type] = def
		c.order = append(c.order, def.Type)
	}
	return c, nil
}

// Default is the catalog with no overrides.
func Default() *Catalog {
	c, err := NewCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the definition for t.
func (c *Catalog) Get(t models.InspectionType) (*wizard.Definition, error) {
	def, ok := c.defs[t]
	if !ok {
		return nil, errors.NewUnknownInspectionError(string(t))
	}
	return def, nil
}

// Lookup resolves a user-supplied name such as "smoke-detector".
func (c *Catalog) Lookup(name string) (*wizard.Definition, error) {
	t, ok := models.ParseInspectionType(name)
	if !ok {
		return nil, errors.NewUnknownInspectionError(name)
	}
	return c.Get(t)
}

// All returns the enabled definitions in display order.
func (c *Catalog) All() []*wizard.Definition {
	out := make([]*wizard.Definition, 0, len(c.order))
	for _, t := range c.order {
		out = append(out, c.defs[t])
	}
	return out
}

// KnownTypes lists every built-in type name, enabled or not.
func KnownTypes() []string {
	out := make([]string, 0, len(models.AllInspectionTypes))
	for _, t := range models.AllInspectionTypes {
		out = append(out, string(t))
	}
	return out
}
