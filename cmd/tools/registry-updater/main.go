// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"ert-inspection/internal/inspection"
	"ert-inspection/pkg/registry"
)

var registryPath string

func main() {
	addCmd := flag.NewFlagSet("add", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	checklistCmd := flag.NewFlagSet("checklist", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	for _, fs := range []*flag.FlagSet{addCmd, updateCmd, checklistCmd, validateCmd} {
		fs.StringVar(&registryPath, "path", "configs/inspection-registry.json", "Path to registry file")
	}

	// Add command flags
	typeAdd := addCmd.String("type", "", "Inspection type (apar, hydrant, eyewash, smoke, p2h)")
	displayName := addCmd.String("displayName", "", "Display name override")
	resource := addCmd.String("resource", "", "Records API collection override")
	capAdd := addCmd.Int("cap", 0, "Unit cap override (0 keeps the built-in)")

	// Update command flags
	typeUpdate := updateCmd.String("type", "", "Inspection type to update")
	field := updateCmd.String("field", "", "Field to update (displayName, resource, cap, minPhotos, enabled)")
	value := updateCmd.String("value", "", "New value for the field")

	// Checklist command flags
	typeChecklist := checklistCmd.String("type", "", "Inspection type")
	itemKey := checklistCmd.String("key", "", "Checklist item key (e.g., tekanan)")
	itemLabel := checklistCmd.String("label", "", "Checklist item label")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		addCmd.Parse(os.Args[2:])
		if *typeAdd == "" {
			fmt.Println("Error: type is required for add.")
			addCmd.Usage()
			os.Exit(1)
		}
		entry := registry.Inspection{
			Type:        strings.ToLower(*typeAdd),
			DisplayName: *displayName,
			Resource:    *resource,
			Cap:         *capAdd,
		}
		if err := addInspection(&entry); err != nil {
			fmt.Printf("Error adding inspection: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Added inspection override: %s\n", entry.Type)

	case "update":
		updateCmd.Parse(os.Args[2:])
		if *typeUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: type, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		if err := updateInspection(*typeUpdate, *field, *value); err != nil {
			fmt.Printf("Error updating inspection: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Updated inspection %s, field %s to %s\n", *typeUpdate, *field, *value)

	case "checklist":
		checklistCmd.Parse(os.Args[2:])
		if *typeChecklist == "" || *itemKey == "" || *itemLabel == "" {
			fmt.Println("Error: type, key, and label are required for checklist.")
			checklistCmd.Usage()
			os.Exit(1)
		}
		if err := setChecklistItem(*typeChecklist, *itemKey, *itemLabel); err != nil {
			fmt.Printf("Error updating checklist: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Checklist item %s set on %s\n", *itemKey, *typeChecklist)

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := validateRegistry(); err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry validation passed.")

	case "help":
		fallthrough
	default:
		help()
	}
}

func loadOrCreate() (*registry.InspectionRegistry, error) {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &registry.InspectionRegistry{Version: "1.0.0", Inspections: []registry.Inspection{}}, nil
		}
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}

// save validates against the built-in types before writing.
func save(reg *registry.InspectionRegistry) error {
	if err := reg.Validate(inspection.KnownTypes()); err != nil {
		return err
	}
	return registry.SaveRegistry(reg, registryPath)
}

func addInspection(entry *registry.Inspection) error {
	reg, err := loadOrCreate()
	if err != nil {
		return err
	}
	if reg.Find(entry.Type) != nil {
		return fmt.Errorf("inspection %s already has an override", entry.Type)
	}
	reg.Inspections = append(reg.Inspections, *entry)
	return save(reg)
}

func updateInspection(t, field, value string) error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}

	entry := reg.Find(t)
	if entry == nil {
		return fmt.Errorf("inspection %s not found", t)
	}

	switch field {
	case "displayName":
		entry.DisplayName = value
	case "resource":
		entry.Resource = value
	case "cap":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid cap value: %w", err)
		}
		entry.Cap = n
	case "minPhotos":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid minPhotos value: %w", err)
		}
		entry.MinPhotos = &n
	case "enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid enabled value: %w", err)
		}
		entry.Enabled = &b
	default:
		return fmt.Errorf("unknown field: %s", field)
	}

	return save(reg)
}

func setChecklistItem(t, key, label string) error {
	reg, err := loadOrCreate()
	if err != nil {
		return err
	}
	entry := reg.Find(t)
	if entry == nil {
		reg.Inspections = append(reg.Inspections, registry.Inspection{Type: t})
		entry = &reg.Inspections[len(reg.Inspections)-1]
	}

	for i := range entry.Checklist {
		if entry.Checklist[i].Key == key {
			entry.Checklist[i].Label = label
			return save(reg)
		}
	}
	entry.Checklist = append(entry.Checklist, registry.ChecklistItem{Key: key, Label: label})
	return save(reg)
}

func validateRegistry() error {
	reg, err := registry.LoadRegistry(registryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(inspection.KnownTypes()); err != nil {
		return err
	}

	// the catalog must still build with these overrides applied
	if _, err := inspection.NewCatalog(inspection.WithRegistry(reg)); err != nil {
		return err
	}
	return nil
}

func help() {
	fmt.Println(`Usage: registry-updater <command> [flags]

Commands:
  add        Add an override for an inspection type
  update     Change one field of an override
  checklist  Add or relabel a checklist item (replaces the built-in list)
  validate   Check the registry against the built-in types

All commands accept -path (default configs/inspection-registry.json).`)
}
