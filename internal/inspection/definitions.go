// Package inspection holds the built-in inspection types and assembles
// them, with site overrides, into a catalog of wizard definitions.
package inspection

import (
	"ert-inspection/internal/models"
	"ert-inspection/internal/wizard"
)

var (
	threeSteps = []string{"Info", "Units", "Review"}
	photoSteps = []string{"Info", "Units", "Photos", "Review"}
)

// sessionInfo is shared by every type; it feeds the report header.
func sessionInfo() []wizard.Field {
	return []wizard.Field{
		{Key: "area", Label: "Area", Required: true},
		{Key: "pic", Label: "PIC", Required: true},
		{Key: "periodeInspeksi", Label: "Inspection period", Required: true},
		{Key: "tanggal", Label: "Date"},
	}
}

func aparDefinition() wizard.Definition {
	return wizard.Definition{
		Type:       models.TypeAPAR,
		Title:      "APAR (fire extinguisher)",
		Prefix:     "apar",
		Resource:   "apar",
		Cap:        30,
		Steps:      threeSteps,
		InfoFields: sessionInfo(),
		UnitFields: []wizard.Field{
			{Key: "lokasi", Label: "Unit location", Required: true},
			{Key: "jenis", Label: "Extinguisher type", Enum: []string{"CO2", "Powder", "Foam", "AF11", "Clean Agent"}},
			{Key: "kapasitas", Label: "Capacity", Pattern: `^[0-9]+([.,][0-9]+)?\s*(kg|KG|Kg|L|l)?$`},
			{Key: "tanggalKadaluarsa", Label: "Expiry date"},
		},
		IdentityField: "lokasi",
		Checklist: []wizard.ChecklistItem{
			{Key: "tabung", Label: "Cylinder free of dents and rust"},
			{Key: "selang", Label: "Hose intact"},
			{Key: "pin", Label: "Safety pin in place"},
			{Key: "segel", Label: "Seal intact"},
			{Key: "tekanan", Label: "Pressure gauge in green zone"},
			{Key: "label", Label: "Label and instructions readable"},
		},
	}
}

func hydrantDefinition() wizard.Definition {
	return wizard.Definition{
		Type:       models.TypeHydrant,
		Title:      "Hydrant",
		Prefix:     "hydrant",
		Resource:   "hydrant",
		Cap:        30,
		Steps:      threeSteps,
		InfoFields: sessionInfo(),
		UnitFields: []wizard.Field{
			{Key: "lokasi", Label: "Hydrant location", Required: true},
			{Key: "jenis", Label: "Hydrant type", Enum: []string{"Pillar", "Box", "Landing Valve"}},
		},
		IdentityField: "lokasi",
		TagPrefix:     wizard.HydrantTagPrefix,
		Checklist: []wizard.ChecklistItem{
			{Key: "box", Label: "Hydrant box clean and unlocked"},
			{Key: "selang", Label: "Hose rolled and undamaged"},
			{Key: "nozzle", Label: "Nozzle present"},
			{Key: "kopling", Label: "Coupling fits"},
			{Key: "valve", Label: "Valve opens and closes"},
			{Key: "tekanan", Label: "Water pressure adequate"},
		},
	}
}

func eyeWashDefinition() wizard.Definition {
	return wizard.Definition{
		Type:       models.TypeEyeWash,
		Title:      "Eye Wash",
		Prefix:     "eyewash",
		Resource:   "eyewash",
		Cap:        30,
		Steps:      photoSteps,
		PhotoStep:  3,
		MinPhotos:  1,
		InfoFields: sessionInfo(),
		UnitFields: []wizard.Field{
			{Key: "lokasi", Label: "Station location", Required: true},
			{Key: "jenis", Label: "Station type", Enum: []string{"Plumbed", "Portable", "Combination"}},
		},
		IdentityField: "lokasi",
		Checklist: []wizard.ChecklistItem{
			{Key: "aliran", Label: "Water flows on activation"},
			{Key: "kebersihan", Label: "Bowl and nozzles clean"},
			{Key: "akses", Label: "Access unobstructed"},
			{Key: "rambu", Label: "Sign visible"},
			{Key: "penutup", Label: "Dust caps in place"},
		},
	}
}

func smokeDefinition() wizard.Definition {
	return wizard.Definition{
		Type:       models.TypeSmokeDetector,
		Title:      "Smoke Detector",
		Prefix:     "smoke",
		Resource:   "smoke-detector",
		Cap:        27,
		Steps:      threeSteps,
		InfoFields: sessionInfo(),
		UnitFields: []wizard.Field{
			{Key: "lokasi", Label: "Detector location", Required: true},
			{Key: "zona", Label: "Alarm zone"},
		},
		IdentityField: "lokasi",
		Checklist: []wizard.ChecklistItem{
			{Key: "indikator", Label: "Indicator LED blinking"},
			{Key: "tesAsap", Label: "Responds to smoke test"},
			{Key: "kebersihan", Label: "Free of dust"},
			{Key: "fisik", Label: "Housing undamaged"},
		},
	}
}

func p2hDefinition() wizard.Definition {
	info := append(sessionInfo(),
		wizard.Field{Key: "pengemudi", Label: "Driver", Required: true},
		wizard.Field{Key: "shift", Label: "Shift"},
	)
	return wizard.Definition{
		Type:       models.TypeP2H,
		Title:      "P2H (vehicle pre-use check)",
		Prefix:     "p2h",
		Resource:   "p2h",
		Cap:        1,
		Steps:      photoSteps,
		PhotoStep:  3,
		MinPhotos:  1,
		InfoFields: info,
		UnitFields: []wizard.Field{
			{Key: "nomorUnit", Label: "Unit number", Required: true},
			{Key: "jenisKendaraan", Label: "Vehicle type"},
			{Key: "odometer", Label: "Odometer", Pattern: `^[0-9]+$`},
		},
		IdentityField: "nomorUnit",
		Checklist: []wizard.ChecklistItem{
			{Key: "rem", Label: "Brakes"},
			{Key: "lampu", Label: "Lights"},
			{Key: "ban", Label: "Tyres"},
			{Key: "oli", Label: "Engine oil level"},
			{Key: "klakson", Label: "Horn"},
			{Key: "wiper", Label: "Wipers"},
			{Key: "sabuk", Label: "Seat belts"},
			{Key: "apar", Label: "Vehicle fire extinguisher"},
		},
	}
}

// builtins returns fresh copies of every built-in definition in display order.
func builtins() []wizard.Definition {
	return []wizard.Definition{aparDefinition(), hydrantDefinition(), eyeWashDefinition(), smokeDefinition(), p2hDefinition()}
}
