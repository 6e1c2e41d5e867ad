package inspection

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ert-inspection/internal/common/config"
	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/draft"
	"ert-inspection/internal/models"
	"ert-inspection/internal/wizard"
	"ert-inspection/pkg/registry"
)

func newWizard(t *testing.T, def *wizard.Definition) *wizard.Wizard {
	log := logger.NewTestLogger(t)
	store := draft.NewStore(draft.NewMemoryBackend(), def.Prefix, draft.CurrentSchemaVersion, log)
	w := wizard.New(def, store, log)
	w.Load(context.Background())
	return w
}

func addUnit(t *testing.T, w *wizard.Wizard, identity, tag string, cond models.Condition) models.Unit {
	ctx := context.Background()
	def := w.Definition()
	require.NoError(t, w.SetFormField(ctx, def.IdentityField, identity))
	if tag != "" {
		require.NoError(t, w.SetFormField(ctx, "tag", tag))
	}
	require.NoError(t, w.SetCondition(ctx, cond))
	u, err := w.AddUnit(ctx)
	require.NoError(t, err)
	return u
}

func TestDefault_BuildsAllTypes(t *testing.T) {
	c := Default()

	all := c.All()
	require.Len(t, all, 5)
	for i, def := range all {
		assert.Equal(t, models.AllInspectionTypes[i], def.Type)
	}

	caps := map[models.InspectionType]int{
		models.TypeAPAR:          30,
		models.TypeHydrant:       30,
		models.TypeEyeWash:       30,
		models.TypeSmokeDetector: 27,
		models.TypeP2H:           1,
	}
	for typ, want := range caps {
		def, err := c.Get(typ)
		require.NoError(t, err)
		assert.Equal(t, want, def.Cap, typ)
	}
}

func TestLookup(t *testing.T) {
	c := Default()

	def, err := c.Lookup("smoke-detector")
	require.NoError(t, err)
	assert.Equal(t, "smoke-detector", def.Resource)

	_, err = c.Lookup("forklift")
	assert.ErrorIs(t, err, errors.ErrUnknownInspection)
}

func TestAPAR_ReviewCounts(t *testing.T) {
	c := Default()
	def, err := c.Get(models.TypeAPAR)
	require.NoError(t, err)
	w := newWizard(t, def)

	addUnit(t, w, "Gudang A", "1", models.ConditionLayak)
	addUnit(t, w, "Gudang B", "2", models.ConditionTidakLayak)
	addUnit(t, w, "Workshop", "3", models.ConditionLayak)

	units := w.Session().Units
	require.Len(t, units, 3)
	assert.Equal(t, []string{"1", "2", "3"}, []string{units[0].Tag, units[1].Tag, units[2].Tag})

	sum := w.Review()
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Layak)
	assert.Equal(t, 1, sum.TidakLayak)
}

func TestAPAR_CapOf30(t *testing.T) {
	def, err := Default().Get(models.TypeAPAR)
	require.NoError(t, err)
	w := newWizard(t, def)

	for i := 1; i <= 30; i++ {
		addUnit(t, w, fmt.Sprintf("Pos %d", i), "", models.ConditionLayak)
	}

	ctx := context.Background()
	require.NoError(t, w.SetFormField(ctx, "lokasi", "Pos 31"))
	_, err = w.AddUnit(ctx)
	assert.ErrorIs(t, err, errors.ErrCapacityExceeded)
	assert.Len(t, w.Session().Units, 30)
}

func TestSmokeDetector_CapOf27(t *testing.T) {
	def, err := Default().Get(models.TypeSmokeDetector)
	require.NoError(t, err)
	s := wizard.NewSession(def)

	for i := 0; i < 27; i++ {
		_, err := s.AddUnit(def, models.UnitForm{Fields: map[string]string{"lokasi": fmt.Sprintf("Room %d", i)}})
		require.NoError(t, err)
	}
	_, err = s.AddUnit(def, models.UnitForm{Fields: map[string]string{"lokasi": "Room 28"}})
	assert.ErrorIs(t, err, errors.ErrCapacityExceeded)
	assert.Len(t, s.Units, 27)
}

func TestHydrant_TagFormatting(t *testing.T) {
	def, err := Default().Get(models.TypeHydrant)
	require.NoError(t, err)
	w := newWizard(t, def)

	withDigits := addUnit(t, w, "Main gate", "07", models.ConditionLayak)
	assert.Equal(t, "HYD-07", withDigits.Tag)

	blank := addUnit(t, w, "Pump house", "", models.ConditionLayak)
	assert.Equal(t, fmt.Sprintf("HYD-%d", blank.ID), blank.Tag)
}

func TestP2H_SingleVehicleAndPhotoGate(t *testing.T) {
	def, err := Default().Get(models.TypeP2H)
	require.NoError(t, err)
	w := newWizard(t, def)
	ctx := context.Background()

	for _, kv := range [][2]string{{"area", "Pit 3"}, {"pic", "Budi"}, {"periodeInspeksi", "Oktober"}} {
		require.NoError(t, w.SetInfo(ctx, kv[0], kv[1]))
	}
	err = w.GoTo(ctx, 2)
	assert.ErrorIs(t, err, errors.ErrStepBlocked, "driver is required for P2H")

	require.NoError(t, w.SetInfo(ctx, "pengemudi", "Andi"))
	require.NoError(t, w.GoTo(ctx, 2))

	require.NoError(t, w.SetFormField(ctx, "nomorUnit", "DT-12"))
	require.NoError(t, w.SetFormField(ctx, "odometer", "12a"))
	_, err = w.AddUnit(ctx)
	assert.ErrorIs(t, err, errors.ErrInvalidField)

	require.NoError(t, w.SetFormField(ctx, "odometer", "120450"))
	addUnit(t, w, "DT-12", "", models.ConditionLayak)

	require.NoError(t, w.GoTo(ctx, 3))
	err = w.GoTo(ctx, 4)
	assert.ErrorIs(t, err, errors.ErrStepBlocked)

	require.NoError(t, w.AddPhoto(ctx, "data:image/jpeg;base64,/9j/4AAQ"))
	assert.NoError(t, w.GoTo(ctx, 4))
}

func TestWithConfig_Overrides(t *testing.T) {
	off := false
	c, err := NewCatalog(WithConfig(&config.Config{Inspections: map[string]config.InspectionConfig{
		"apar": {Cap: 10, Resource: "fire-extinguisher"},
		"p2h":  {Enabled: &off},
	}}))
	require.NoError(t, err)

	def, err := c.Get(models.TypeAPAR)
	require.NoError(t, err)
	assert.Equal(t, 10, def.Cap)
	assert.Equal(t, "fire-extinguisher", def.Resource)

	_, err = c.Get(models.TypeP2H)
	assert.ErrorIs(t, err, errors.ErrUnknownInspection)
	assert.Len(t, c.All(), 4)
}

func TestWithRegistry_Overrides(t *testing.T) {
	two := 2
	reg := &registry.InspectionRegistry{Inspections: []registry.Inspection{
		{Type: "eyewash", DisplayName: "Eye Wash Station", MinPhotos: &two},
		{Type: "smoke", Checklist: []registry.ChecklistItem{{Key: "baterai", Label: "Battery OK"}}},
	}}
	c, err := NewCatalog(WithRegistry(reg))
	require.NoError(t, err)

	eye, err := c.Get(models.TypeEyeWash)
	require.NoError(t, err)
	assert.Equal(t, "Eye Wash Station", eye.Title)
	assert.Equal(t, 2, eye.MinPhotos)

	smoke, err := c.Get(models.TypeSmokeDetector)
	require.NoError(t, err)
	require.Len(t, smoke.Checklist, 1)
	assert.Equal(t, "baterai", smoke.Checklist[0].Key)

	// builtins are rebuilt per catalog
	fresh, err := Default().Get(models.TypeSmokeDetector)
	require.NoError(t, err)
	assert.Len(t, fresh.Checklist, 4)
}

func TestKnownTypes_MatchesRegistryValidation(t *testing.T) {
	reg := &registry.InspectionRegistry{Inspections: []registry.Inspection{{Type: "hydrant"}, {Type: "forklift"}}}
	err := reg.Validate(KnownTypes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forklift")
}
