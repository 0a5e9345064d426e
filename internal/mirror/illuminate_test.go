package mirror

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/classtrack/schoolsync-backend/internal/logger"
)

func newMirrorDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func execAll(t *testing.T, db *gorm.DB, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		require.NoError(t, db.Exec(stmt).Error)
	}
}

func TestIlluminate_MissingTablesReportNotImplemented(t *testing.T) {
	adapter := NewIlluminateAdapter(newMirrorDB(t), logger.NewNop())
	ctx := context.Background()

	_, err := adapter.StaffSourceIDs(ctx)
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = adapter.Staff(ctx, 1)
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = adapter.Sites(ctx, 1)
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = adapter.Gradebooks(ctx, 1)
	assert.ErrorIs(t, err, ErrNotImplemented)
	_, err = adapter.Scores(ctx, 1)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestIlluminate_PartialMirrorOnlyExposesPresentTables(t *testing.T) {
	db := newMirrorDB(t)
	execAll(t, db,
		`CREATE TABLE mirror_staff (source_object_id INTEGER, first_name TEXT, last_name TEXT, email TEXT)`,
		`INSERT INTO mirror_staff VALUES (100, 'Pat', 'Lee', 'pat.lee@district.example')`,
	)
	adapter := NewIlluminateAdapter(db, logger.NewNop())
	ctx := context.Background()

	ids, err := adapter.StaffSourceIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, ids)

	row, err := adapter.Staff(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Pat", row["first_name"])

	// Unknown staff id is a nil row, not an error.
	row, err = adapter.Staff(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, row)

	// Sites need the staff-site join table too, which this mirror lacks.
	_, err = adapter.Sites(ctx, 100)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestIlluminate_SitesScopedToStaff(t *testing.T) {
	db := newMirrorDB(t)
	execAll(t, db,
		`CREATE TABLE mirror_site (source_object_id INTEGER, site_name TEXT)`,
		`CREATE TABLE mirror_staff_site (staff_id INTEGER, site_id INTEGER)`,
		`INSERT INTO mirror_site VALUES (1, 'Jefferson High'), (2, 'Lincoln Middle')`,
		`INSERT INTO mirror_staff_site VALUES (100, 1), (200, 2)`,
	)
	adapter := NewIlluminateAdapter(db, logger.NewNop())

	rows, err := adapter.Sites(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jefferson High", rows[0]["site_name"])
	assert.EqualValues(t, 1, rows[0]["source_object_id"])
}

func TestIlluminate_GradebookChainScopedToOwner(t *testing.T) {
	db := newMirrorDB(t)
	execAll(t, db,
		`CREATE TABLE mirror_gradebook (source_object_id INTEGER, name TEXT, illuminate_section_id INTEGER, illuminate_user_id INTEGER)`,
		`CREATE TABLE mirror_assignment (source_object_id INTEGER, name TEXT, due_date TEXT, points_possible REAL, illuminate_gradebook_id INTEGER, illuminate_category_id INTEGER)`,
		`CREATE TABLE mirror_score (source_object_id INTEGER, is_missing INTEGER, missing_on TEXT, points REAL, score REAL, illuminate_gradebook_id INTEGER, illuminate_assignment_id INTEGER, illuminate_student_id INTEGER)`,
		`INSERT INTO mirror_gradebook VALUES (7, 'Algebra GB', 4, 100), (8, 'Other GB', 5, 200)`,
		`INSERT INTO mirror_assignment VALUES (9, 'Worksheet 1', NULL, 10, 7, NULL), (11, 'Essay', NULL, 20, 8, NULL)`,
		`INSERT INTO mirror_score VALUES (10, 1, NULL, 0, 0, 7, 9, 5), (12, 1, NULL, 0, 0, 8, 11, 5)`,
	)
	adapter := NewIlluminateAdapter(db, logger.NewNop())
	ctx := context.Background()

	gradebooks, err := adapter.Gradebooks(ctx, 100)
	require.NoError(t, err)
	require.Len(t, gradebooks, 1)
	assert.Equal(t, "Algebra GB", gradebooks[0]["name"])

	assignments, err := adapter.Assignments(ctx, 100)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, "Worksheet 1", assignments[0]["name"])

	scores, err := adapter.Scores(ctx, 100)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.EqualValues(t, 9, scores[0]["illuminate_assignment_id"])
}
