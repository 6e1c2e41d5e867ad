package wizard

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ert-inspection/internal/common/errors"
	"ert-inspection/internal/common/logger"
	"ert-inspection/internal/draft"
	"ert-inspection/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

func testDefinition(t *testing.T, cap int, photoStep bool) *Definition {
	d := Definition{
		Type:     models.TypeAPAR,
		Title:    "Test APAR",
		Prefix:   "apar",
		Resource: "apar",
		Cap:      cap,
		Steps:    []string{"Info", "Units", "Review"},
		InfoFields: []Field{
			{Key: "area", Label: "Area", Required: true},
			{Key: "pic", Label: "PIC", Required: true},
			{Key: "catatan", Label: "Catatan"},
		},
		UnitFields: []Field{
			{Key: "lokasi", Label: "Unit location", Required: true},
			{Key: "jenis", Label: "Type", Enum: []string{"CO2", "Powder"}},
		},
		IdentityField: "lokasi",
		Checklist: []ChecklistItem{
			{Key: "tabung", Label: "Cylinder"},
			{Key: "segel", Label: "Seal"},
		},
	}
	if photoStep {
		d.Steps = []string{"Info", "Units", "Photos", "Review"}
		d.PhotoStep = 3
		d.MinPhotos = 1
	}
	def, err := Build(d)
	require.NoError(t, err)
	return def
}

func form(lokasi string) models.UnitForm {
	return models.UnitForm{Fields: map[string]string{"lokasi": lokasi}}
}

func newTestWizard(t *testing.T, backend draft.Backend, def *Definition) *Wizard {
	log := logger.NewTestLogger(t)
	w := New(def, draft.NewStore(backend, def.Prefix, draft.CurrentSchemaVersion, log), log)
	w.Load(context.Background())
	return w
}

const sig = "data:image/png;base64,iVBORw0KGgo="

// ==========================
// Definition
// ==========================

func TestBuild_RejectsBadDefinitions(t *testing.T) {
	base := Definition{Type: models.TypeAPAR, Prefix: "apar", Resource: "apar", Cap: 3, Steps: []string{"a", "b", "c"}}

	noCap := base
	noCap.Cap = 0
	_, err := Build(noCap)
	assert.Error(t, err)

	badPhoto := base
	badPhoto.PhotoStep = 3
	_, err = Build(badPhoto)
	assert.Error(t, err)

	badIdentity := base
	badIdentity.IdentityField = "nope"
	_, err = Build(badIdentity)
	assert.Error(t, err)

	_, err = Build(base)
	assert.NoError(t, err)
}

// ==========================
// Unit Accumulator
// ==========================

func TestAddUnit_CapEnforced(t *testing.T) {
	for _, cap := range []int{1, 3, 27} {
		t.Run(fmt.Sprintf("cap %d", cap), func(t *testing.T) {
			def := testDefinition(t, cap, false)
			s := NewSession(def)

			for i := 0; i < cap; i++ {
				_, err := s.AddUnit(def, form(fmt.Sprintf("Pos %d", i)))
				require.NoError(t, err)
			}

			_, err := s.AddUnit(def, form("one too many"))
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrCapacityExceeded)
			assert.Equal(t, fmt.Sprintf("Maximum of %d units reached", cap), errors.UserMessage(err))
			assert.Len(t, s.Units, cap)
		})
	}
}

func TestAddUnit_RequiresIdentityField(t *testing.T) {
	def := testDefinition(t, 5, false)
	s := NewSession(def)
	before := s.NextID

	for _, lokasi := range []string{"", "   "} {
		_, err := s.AddUnit(def, form(lokasi))
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrMissingRequiredField)
		assert.Equal(t, "Unit location is required", errors.UserMessage(err))
	}

	_, err := s.AddUnit(def, models.UnitForm{})
	assert.ErrorIs(t, err, errors.ErrMissingRequiredField)

	assert.Empty(t, s.Units)
	assert.Equal(t, before, s.NextID)
}

func TestAddUnit_RejectsUnknownValues(t *testing.T) {
	def := testDefinition(t, 5, false)
	s := NewSession(def)

	_, err := s.AddUnit(def, models.UnitForm{Fields: map[string]string{"lokasi": "A", "jenis": "Water"}})
	assert.ErrorIs(t, err, errors.ErrInvalidField)

	_, err = s.AddUnit(def, models.UnitForm{
		Fields:    map[string]string{"lokasi": "A"},
		Checklist: map[string]models.CheckResult{"roda": models.CheckYes},
	})
	assert.ErrorIs(t, err, errors.ErrInvalidField)
	assert.Empty(t, s.Units)
}

func TestAddUnit_FillsDefaultsAndResetsForm(t *testing.T) {
	def := testDefinition(t, 5, false)
	s := NewSession(def)

	fixed := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	newIdempotencyKey = func() string { return "key-1" }
	t.Cleanup(func() {
		now = time.Now
		newIdempotencyKey = defaultKeyFunc
	})

	s.Form = models.UnitForm{
		Fields:    map[string]string{"lokasi": "  Gudang  ", "jenis": ""},
		Checklist: map[string]models.CheckResult{"tabung": models.CheckNo},
		Notes:     " penyok ",
	}
	unit, err := s.AddUnit(def, s.Form)
	require.NoError(t, err)

	assert.Equal(t, 1, unit.ID)
	assert.Equal(t, "1", unit.Tag)
	assert.Equal(t, map[string]string{"lokasi": "Gudang"}, unit.Fields)
	assert.Equal(t, models.CheckNo, unit.Checklist["tabung"])
	assert.Equal(t, models.CheckNA, unit.Checklist["segel"])
	assert.Equal(t, models.ConditionLayak, unit.Condition)
	assert.Equal(t, "penyok", unit.Notes)
	assert.Equal(t, "key-1", unit.IdempotencyKey)
	assert.Equal(t, fixed, unit.AddedAt)

	assert.Equal(t, def.DefaultForm(), s.Form)
}

var defaultKeyFunc = newIdempotencyKey

func TestIDs_UniqueAndMonotonic(t *testing.T) {
	def := testDefinition(t, 30, false)
	s := NewSession(def)

	ops := []string{"add", "add", "remove:1", "add", "remove:3", "remove:3", "add", "add", "remove:2", "add"}
	maxAssigned := 0
	for _, op := range ops {
		if op == "add" {
			u, err := s.AddUnit(def, form("x"))
			require.NoError(t, err)
			assert.Greater(t, u.ID, maxAssigned)
			maxAssigned = u.ID
			continue
		}
		var id int
		_, _ = fmt.Sscanf(op, "remove:%d", &id)
		s.RemoveUnit(id)
	}

	seen := map[int]bool{}
	keys := map[string]bool{}
	for _, u := range s.Units {
		assert.False(t, seen[u.ID], "duplicate id %d", u.ID)
		assert.False(t, keys[u.IdempotencyKey], "duplicate idempotency key")
		seen[u.ID] = true
		keys[u.IdempotencyKey] = true
	}
	assert.Greater(t, s.NextID, maxAssigned)
}

func TestRemoveUnit_Idempotent(t *testing.T) {
	def := testDefinition(t, 5, false)
	s := NewSession(def)
	_, _ = s.AddUnit(def, form("a"))
	_, _ = s.AddUnit(def, form("b"))

	assert.True(t, s.RemoveUnit(1))
	assert.False(t, s.RemoveUnit(1))
	assert.False(t, s.RemoveUnit(42))
	require.Len(t, s.Units, 1)
	assert.Equal(t, 2, s.Units[0].ID)
}

func TestFormatTagNumber(t *testing.T) {
	tests := []struct {
		name     string
		typ      models.InspectionType
		raw      string
		expected string
	}{
		{"hydrant digits", models.TypeHydrant, "07", "HYD-07"},
		{"hydrant strips non digits", models.TypeHydrant, " 1a2 ", "HYD-12"},
		{"hydrant already prefixed", models.TypeHydrant, "hyd-3", "HYD-3"},
		{"hydrant no digits", models.TypeHydrant, "abc", ""},
		{"other types keep raw", models.TypeAPAR, " A-01 ", "A-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatTagNumber(tt.typ, tt.raw))
		})
	}
}

// ==========================
// Step Gate
// ==========================

func TestCanAdvance_Monotonicity(t *testing.T) {
	def := testDefinition(t, 5, false)
	s := NewSession(def)

	d := CanAdvance(def, 1, 2, s)
	assert.False(t, d.Allowed)
	assert.Equal(t, "Area is required", d.Message)

	s.Info["area"] = "Gudang"
	s.Info["catatan"] = "unrelated"
	assert.False(t, CanAdvance(def, 1, 2, s).Allowed)

	s.Info["pic"] = "Budi"
	assert.True(t, CanAdvance(def, 1, 2, s).Allowed)

	delete(s.Info, "catatan")
	assert.True(t, CanAdvance(def, 1, 2, s).Allowed, "unrelated fields do not matter")

	d = CanAdvance(def, 2, 3, s)
	assert.False(t, d.Allowed)
	assert.Equal(t, "Add at least one unit before continuing", d.Message)

	_, err := s.AddUnit(def, form("A"))
	require.NoError(t, err)
	assert.True(t, CanAdvance(def, 2, 3, s).Allowed)

	s.Info["pic"] = " "
	assert.False(t, CanAdvance(def, 1, 3, s).Allowed, "jumps check every step in between")
}

func TestCanAdvance_BackwardAlwaysAllowed(t *testing.T) {
	def := testDefinition(t, 5, false)
	s := NewSession(def)
	assert.True(t, CanAdvance(def, 3, 1, s).Allowed)
	assert.True(t, CanAdvance(def, 2, 2, s).Allowed)
	assert.False(t, CanAdvance(def, 1, 9, s).Allowed)
}

func TestCanAdvance_PhotoMinimum(t *testing.T) {
	def := testDefinition(t, 5, true)
	s := NewSession(def)
	s.Info["area"], s.Info["pic"] = "A", "B"
	_, _ = s.AddUnit(def, form("x"))

	assert.True(t, CanAdvance(def, 2, 3, s).Allowed)
	d := CanAdvance(def, 3, 4, s)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Message, "photo")

	require.NoError(t, s.AddPhoto(def, sig))
	assert.True(t, CanAdvance(def, 3, 4, s).Allowed)
	assert.Empty(t, Missing(def, 4, s))
}

func TestCanAdvance_DoesNotMutate(t *testing.T) {
	def := testDefinition(t, 5, false)
	s := NewSession(def)
	before := s.Clone()
	CanAdvance(def, 1, 3, s)
	assert.Equal(t, before, s)
}

// ==========================
// Photos and signers
// ==========================

func TestPhotos_CapAndRemoval(t *testing.T) {
	def := testDefinition(t, 5, true)
	s := NewSession(def)

	for i := 0; i < DefaultMaxPhotos; i++ {
		require.NoError(t, s.AddPhoto(def, fmt.Sprintf("data:image/jpeg;base64,%d", i)))
	}
	err := s.AddPhoto(def, sig)
	assert.ErrorIs(t, err, errors.ErrPhotoLimitExceeded)
	assert.Len(t, s.Photos, DefaultMaxPhotos)

	require.NoError(t, s.RemovePhoto(1))
	assert.Equal(t, []string{
		"data:image/jpeg;base64,0", "data:image/jpeg;base64,2",
		"data:image/jpeg;base64,3", "data:image/jpeg;base64,4",
	}, s.Photos)
	assert.ErrorIs(t, s.RemovePhoto(10), errors.ErrInvalidField)
	assert.ErrorIs(t, s.AddPhoto(def, "not a data url"), errors.ErrInvalidField)
}

func TestCheckSignatures(t *testing.T) {
	s := &Session{}
	assert.ErrorIs(t, s.CheckSignatures(), errors.ErrSignatureMissing)

	s.Known = models.Signer{Name: "Pak Kepala", Signature: sig}
	s.Checked = models.Signer{Name: "Inspektur"}
	err := s.CheckSignatures()
	assert.ErrorIs(t, err, errors.ErrSignatureMissing)
	assert.Equal(t, "Inspector signature is required", errors.UserMessage(err))

	s.Checked.Signature = sig
	assert.NoError(t, s.CheckSignatures())
}

// ==========================
// Persistent Wizard
// ==========================

func TestWizard_ReloadRestoresStepAndUnits(t *testing.T) {
	ctx := context.Background()
	backend := draft.NewMemoryBackend()
	def := testDefinition(t, 30, false)

	w := newTestWizard(t, backend, def)
	require.NoError(t, w.SetInfo(ctx, "area", "Workshop"))
	require.NoError(t, w.SetInfo(ctx, "pic", "Sari"))
	require.NoError(t, w.Next(ctx))

	for _, loc := range []string{"Pos 1", "Pos 2"} {
		require.NoError(t, w.SetFormField(ctx, "lokasi", loc))
		_, err := w.AddUnit(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, w.SetFormField(ctx, "lokasi", "half typed"))

	reloaded := newTestWizard(t, backend, def)
	s := reloaded.Session()
	assert.Equal(t, 2, s.Step)
	assert.Equal(t, w.Session().Units, s.Units)
	assert.Equal(t, 3, s.NextID)
	assert.Equal(t, "half typed", s.Form.Fields["lokasi"])

	_, err := reloaded.AddUnit(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Session().Units[2].ID)
}

func TestWizard_GoToBlockedLeavesStep(t *testing.T) {
	ctx := context.Background()
	w := newTestWizard(t, draft.NewMemoryBackend(), testDefinition(t, 5, false))

	err := w.GoTo(ctx, 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrStepBlocked)
	assert.Equal(t, "Area is required", errors.UserMessage(err))
	assert.Equal(t, 1, w.Session().Step)

	assert.ErrorIs(t, w.GoTo(ctx, 0), errors.ErrInvalidStep)
	assert.NoError(t, w.Back(ctx))
	assert.Equal(t, 1, w.Session().Step)
}

func TestWizard_RejectsUnknownKeys(t *testing.T) {
	ctx := context.Background()
	w := newTestWizard(t, draft.NewMemoryBackend(), testDefinition(t, 5, false))

	assert.ErrorIs(t, w.SetInfo(ctx, "nope", "x"), errors.ErrInvalidField)
	assert.ErrorIs(t, w.SetFormField(ctx, "nope", "x"), errors.ErrInvalidField)
	assert.ErrorIs(t, w.SetChecklistItem(ctx, "nope", models.CheckYes), errors.ErrInvalidField)
	assert.ErrorIs(t, w.SetSigner(ctx, "boss", "x", ""), errors.ErrInvalidField)
}

func TestWizard_SignersPersistSeparately(t *testing.T) {
	ctx := context.Background()
	backend := draft.NewMemoryBackend()
	def := testDefinition(t, 5, false)
	w := newTestWizard(t, backend, def)

	require.NoError(t, w.SetSigner(ctx, models.RoleKnown, "Pak Kepala", ""))
	require.NoError(t, w.SetSigner(ctx, models.RoleKnown, "", sig))
	assert.ErrorIs(t, w.SetSigner(ctx, models.RoleChecked, "X", "scribble"), errors.ErrInvalidField)

	reloaded := newTestWizard(t, backend, def)
	assert.Equal(t, models.Signer{Name: "Pak Kepala", Signature: sig}, reloaded.Session().Known)
}

func TestWizard_ResetClearsDraft(t *testing.T) {
	ctx := context.Background()
	backend := draft.NewMemoryBackend()
	def := testDefinition(t, 5, false)
	w := newTestWizard(t, backend, def)

	require.NoError(t, w.SetInfo(ctx, "area", "A"))
	require.NoError(t, w.SetFormField(ctx, "lokasi", "x"))
	_, err := w.AddUnit(ctx)
	require.NoError(t, err)

	require.NoError(t, w.Reset(ctx))
	assert.Empty(t, backend.Keys())
	assert.Equal(t, NewSession(def), w.Session())
	assert.Equal(t, NewSession(def), newTestWizard(t, backend, def).Session())
}

func TestWizard_LoadClampsBadStep(t *testing.T) {
	ctx := context.Background()
	backend := draft.NewMemoryBackend()
	def := testDefinition(t, 5, false)
	store := draft.NewStore(backend, def.Prefix, draft.CurrentSchemaVersion, logger.NewNoOpLogger())
	require.NoError(t, draft.Set(ctx, store, FieldStep, 9))

	w := newTestWizard(t, backend, def)
	assert.Equal(t, 1, w.Session().Step)
}

// ==========================
// Enum validation
// ==========================

func TestAddUnit_RejectsOutOfEnumConditionAndAnswers(t *testing.T) {
	def := testDefinition(t, 5, false)
	s := NewSession(def)

	badCondition := form("Pos 1")
	badCondition.Condition = "BROKEN"
	_, err := s.AddUnit(def, badCondition)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidField)
	assert.Equal(t, "Invalid value for Condition", errors.UserMessage(err))

	badAnswer := form("Pos 1")
	badAnswer.Checklist = map[string]models.CheckResult{"tabung": "maybe"}
	_, err = s.AddUnit(def, badAnswer)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidField)
	assert.Equal(t, "Invalid value for Cylinder", errors.UserMessage(err))

	assert.Empty(t, s.Units)
	assert.Equal(t, 1, s.NextID)
}

func TestWizard_SettersRejectOutOfEnumValues(t *testing.T) {
	ctx := context.Background()
	backend := draft.NewMemoryBackend()
	def := testDefinition(t, 5, false)
	w := newTestWizard(t, backend, def)

	assert.ErrorIs(t, w.SetCondition(ctx, "BROKEN"), errors.ErrInvalidField)
	assert.ErrorIs(t, w.SetChecklistItem(ctx, "tabung", "maybe"), errors.ErrInvalidField)
	assert.Empty(t, w.Session().Form.Condition)
	assert.Empty(t, w.Session().Form.Checklist)

	require.NoError(t, w.SetFormField(ctx, "lokasi", "Pos 1"))
	_, err := w.AddUnit(ctx)
	require.NoError(t, err)

	sum := w.Review()
	assert.Equal(t, sum.Total, sum.Layak+sum.TidakLayak)
}

func TestWizard_LoadDropsOutOfEnumDraftValues(t *testing.T) {
	ctx := context.Background()
	backend := draft.NewMemoryBackend()
	def := testDefinition(t, 5, false)
	store := draft.NewStore(backend, def.Prefix, draft.CurrentSchemaVersion, logger.NewNoOpLogger())

	units := []models.Unit{
		{ID: 1, Tag: "1", Condition: models.ConditionLayak, Checklist: map[string]models.CheckResult{"tabung": models.CheckYes}},
		{ID: 2, Tag: "2", Condition: "BROKEN"},
		{ID: 3, Tag: "3", Condition: models.ConditionTidakLayak, Checklist: map[string]models.CheckResult{"segel": "maybe"}},
	}
	require.NoError(t, draft.Set(ctx, store, FieldUnits, units))
	require.NoError(t, draft.Set(ctx, store, FieldNextID, 4))
	require.NoError(t, draft.Set(ctx, store, FieldForm, models.UnitForm{
		Fields:    map[string]string{"lokasi": "Pos 9"},
		Checklist: map[string]models.CheckResult{"tabung": "maybe", "segel": models.CheckNo},
		Condition: "BROKEN",
	}))

	w := newTestWizard(t, backend, def)
	s := w.Session()
	require.Len(t, s.Units, 1)
	assert.Equal(t, 1, s.Units[0].ID)
	assert.Equal(t, 4, s.NextID)
	assert.Empty(t, s.Form.Condition)
	assert.Equal(t, map[string]models.CheckResult{"segel": models.CheckNo}, s.Form.Checklist)
	assert.Equal(t, Summary{Total: 1, Layak: 1}, w.Review())
}

// ==========================
// Storage failures
// ==========================

// flakyBackend fails Set for any key ending in one of the listed fields.
type flakyBackend struct {
	*draft.MemoryBackend
	failing map[string]bool
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{MemoryBackend: draft.NewMemoryBackend(), failing: map[string]bool{}}
}

func (f *flakyBackend) Set(ctx context.Context, key, value string) error {
	for field := range f.failing {
		if strings.HasSuffix(key, "_"+field) {
			return fmt.Errorf("disk full writing %s", key)
		}
	}
	return f.MemoryBackend.Set(ctx, key, value)
}

func TestWizard_FailedSaveLeavesSessionUnchanged(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend()
	def := testDefinition(t, 5, true)
	w := newTestWizard(t, backend, def)

	require.NoError(t, w.SetInfo(ctx, "area", "Workshop"))
	require.NoError(t, w.SetInfo(ctx, "pic", "Sari"))
	require.NoError(t, w.SetFormField(ctx, "lokasi", "Pos 1"))

	tests := []struct {
		name  string
		field string
		op    func() error
	}{
		{"add unit", FieldUnits, func() error { _, err := w.AddUnit(ctx); return err }},
		{"add unit form reset", FieldForm, func() error { _, err := w.AddUnit(ctx); return err }},
		{"set info", FieldInfo, func() error { return w.SetInfo(ctx, "area", "Gudang") }},
		{"step", FieldStep, func() error { return w.GoTo(ctx, 2) }},
		{"photo", FieldPhotos, func() error { return w.AddPhoto(ctx, sig) }},
		{"signer", FieldSignerKnown, func() error { return w.SetSigner(ctx, models.RoleKnown, "Pak Kepala", sig) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := w.Snapshot()
			backend.failing[tt.field] = true
			defer delete(backend.failing, tt.field)

			err := tt.op()
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrDraftStorageFailed)
			assert.Equal(t, before, w.Session())
		})
	}

	// a retry after the backend recovers adds exactly one unit, and it survives reload
	unit, err := w.AddUnit(ctx)
	require.NoError(t, err)
	assert.Len(t, w.Session().Units, 1)

	reloaded := newTestWizard(t, backend, def)
	require.Len(t, reloaded.Session().Units, 1)
	assert.Equal(t, unit.ID, reloaded.Session().Units[0].ID)
	assert.Equal(t, unit.ID+1, reloaded.Session().NextID)
}

func TestWizard_FailedRemoveKeepsUnit(t *testing.T) {
	ctx := context.Background()
	backend := newFlakyBackend()
	def := testDefinition(t, 5, false)
	w := newTestWizard(t, backend, def)

	require.NoError(t, w.SetFormField(ctx, "lokasi", "Pos 1"))
	unit, err := w.AddUnit(ctx)
	require.NoError(t, err)

	backend.failing[FieldUnits] = true
	assert.ErrorIs(t, w.RemoveUnit(ctx, unit.ID), errors.ErrDraftStorageFailed)
	assert.Len(t, w.Session().Units, 1)
}
