package syncer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/mirror"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

func newTestReconciler(t *testing.T, store Store, staffID uuid.UUID) *Reconciler {
	t.Helper()
	return NewReconciler(store, NewResolver(store, logger.NewNop()), staffID, logger.NewNop())
}

func TestReconcileType_SecondPassCreatesNothing(t *testing.T) {
	store, db := newTestStore(t)
	rec := newTestReconciler(t, store, uuid.Nil)
	ctx := context.Background()

	spec := EntitySpec{Type: TypeStudent, Fields: []string{"first_name", "last_name"}}
	rows := []mirror.Row{
		{SourceKey: int64(1), "first_name": "Ada", "last_name": "Lovelace"},
		{SourceKey: int64(2), "first_name": "Alan", "last_name": "Turing"},
	}

	out, err := rec.ReconcileType(ctx, spec, rows)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Created: 2}, out)

	// Unchanged source data on a later pass must be a no-op, even through a
	// fresh reconciler and cache.
	rec2 := newTestReconciler(t, store, uuid.Nil)
	out, err = rec2.ReconcileType(ctx, spec, rows)
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)
	assert.EqualValues(t, 2, countRows(t, db, "student"))
}

func TestReconcileType_ExistingRowsAreNeverUpdated(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	sid := int64(5)
	id, created, err := store.GetOrCreate(ctx, TypeStudent, &sid, map[string]any{"first_name": "Ada"})
	require.NoError(t, err)
	require.True(t, created)

	again, created, err := store.GetOrCreate(ctx, TypeStudent, &sid, map[string]any{"first_name": "Renamed"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	var student types.Student
	require.NoError(t, store.db.Where("id = ?", id).First(&student).Error)
	assert.Equal(t, "Ada", student.FirstName)
}

func TestReconcileType_BulkHappyPath(t *testing.T) {
	store, db := newTestStore(t)
	rec := newTestReconciler(t, store, uuid.Nil)

	spec := EntitySpec{Type: TypeStudent, Fields: []string{"first_name"}, Bulk: true}
	rows := []mirror.Row{
		{SourceKey: int64(1), "first_name": "Ada"},
		{SourceKey: int64(2), "first_name": "Alan"},
		{SourceKey: int64(3), "first_name": "Grace"},
	}

	out, err := rec.ReconcileType(context.Background(), spec, rows)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Created: 3}, out)
	assert.EqualValues(t, 3, countRows(t, db, "student"))
}

func TestReconcileType_BulkConflictFallsBackRowByRow(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	sectionSID, studentSID := int64(10), int64(20)
	_, _, err := store.GetOrCreate(ctx, TypeSection, &sectionSID, map[string]any{"name": "P1 Algebra"})
	require.NoError(t, err)
	_, _, err = store.GetOrCreate(ctx, TypeStudent, &studentSID, map[string]any{"first_name": "Ada"})
	require.NoError(t, err)

	rec := newTestReconciler(t, store, uuid.Nil)
	spec := EntitySpec{
		Type:     TypeEnrollment,
		FKFields: []string{"illuminate_section_id", "illuminate_student_id"},
		Bulk:     true,
	}
	// Two distinct source rows that collapse onto the same (section, student)
	// pair. The batch must roll back whole, then the per-row retry keeps the
	// first and counts the second as a row error.
	rows := []mirror.Row{
		{SourceKey: int64(101), "illuminate_section_id": sectionSID, "illuminate_student_id": studentSID},
		{SourceKey: int64(102), "illuminate_section_id": sectionSID, "illuminate_student_id": studentSID},
	}

	out, err := rec.ReconcileType(ctx, spec, rows)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Created: 1, Errors: 1}, out)
	assert.EqualValues(t, 1, countRows(t, db, "enrollment"))
}

func TestReconcileType_UnresolvedReferenceIsOmitted(t *testing.T) {
	store, _ := newTestStore(t)
	rec := newTestReconciler(t, store, uuid.Nil)
	ctx := context.Background()

	spec := EntitySpec{
		Type:     TypeTerm,
		Fields:   []string{"name"},
		FKFields: []string{"illuminate_site_id"},
	}
	rows := []mirror.Row{
		{SourceKey: int64(1), "name": "Fall", "illuminate_site_id": int64(999)},
	}

	out, err := rec.ReconcileType(ctx, spec, rows)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Created: 1}, out)

	var term types.Term
	require.NoError(t, store.db.First(&term).Error)
	assert.Equal(t, "Fall", term.Name)
	assert.Nil(t, term.SiteID)
}

func TestReconcileType_SectionNameSynthesis(t *testing.T) {
	store, _ := newTestStore(t)
	rec := newTestReconciler(t, store, uuid.Nil)
	ctx := context.Background()

	spec := EntitySpec{Type: TypeSection, Fields: []string{"name", "period", "course_name"}, Bulk: true}
	rows := []mirror.Row{
		{SourceKey: int64(1), "name": "", "period": "3", "course_name": "Algebra"},
		{SourceKey: int64(2), "name": "Homeroom", "period": "1", "course_name": "Advisory"},
		{SourceKey: int64(3), "name": "", "period": nil, "course_name": ""},
	}

	_, err := rec.ReconcileType(ctx, spec, rows)
	require.NoError(t, err)

	names := map[int64]string{}
	var sections []types.Section
	require.NoError(t, store.db.Find(&sections).Error)
	for _, s := range sections {
		require.NotNil(t, s.SourceObjectID)
		names[*s.SourceObjectID] = s.Name
	}
	assert.Equal(t, "P3 Algebra", names[1])
	assert.Equal(t, "Homeroom", names[2])
	assert.Equal(t, "", names[3])
}

func TestReconcileType_GradebookOwnerRecordedOncePerStaff(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	staffSID := int64(7)
	staffID, _, err := store.GetOrCreate(ctx, TypeStaff, &staffSID, map[string]any{"first_name": "Pat"})
	require.NoError(t, err)

	spec := EntitySpec{Type: TypeGradebook, Fields: []string{"name"}}
	rows := []mirror.Row{{SourceKey: int64(88), "name": "Algebra GB"}}

	rec := newTestReconciler(t, store, staffID)
	out, err := rec.ReconcileType(ctx, spec, rows)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Created: 1}, out)
	assert.EqualValues(t, 1, countRows(t, db, "gradebook_owner"))

	// A later pass creates nothing but still guarantees the ownership edge,
	// without duplicating it.
	rec2 := newTestReconciler(t, store, staffID)
	out, err = rec2.ReconcileType(ctx, spec, rows)
	require.NoError(t, err)
	assert.Equal(t, Outcome{}, out)
	assert.EqualValues(t, 1, countRows(t, db, "gradebook_owner"))
}

func TestReconcileType_BadFKNameAbortsRun(t *testing.T) {
	store, _ := newTestStore(t)
	rec := newTestReconciler(t, store, uuid.Nil)

	spec := EntitySpec{Type: TypeTerm, FKFields: []string{"site_id"}}
	rows := []mirror.Row{{SourceKey: int64(1), "site_id": int64(3)}}

	_, err := rec.ReconcileType(context.Background(), spec, rows)
	require.ErrorIs(t, err, ErrBadFieldName)
}
