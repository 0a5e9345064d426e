package deltas

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(types.AllModels()...))
	return db
}

// fixture seeds one staff member owning one gradebook inside an active
// grading period.
type fixture struct {
	t           *testing.T
	db          *gorm.DB
	engine      *Engine
	staffID     uuid.UUID
	periodID    uuid.UUID
	gradebookID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	staff := &types.Staff{Email: "pat.lee@district.example", FirstName: "Pat"}
	require.NoError(t, db.Create(staff).Error)

	start := time.Now().UTC().Add(-7 * 24 * time.Hour)
	end := time.Now().UTC().Add(7 * 24 * time.Hour)
	period := &types.GradingPeriod{Name: "Q1", StartDate: &start, EndDate: &end}
	require.NoError(t, db.Create(period).Error)

	f := &fixture{
		t:        t,
		db:       db,
		engine:   NewEngine(db, logger.NewNop()),
		staffID:  staff.ID,
		periodID: period.ID,
	}
	f.gradebookID = f.addGradebook("Algebra GB", f.staffID)
	return f
}

func (f *fixture) addGradebook(name string, ownerID uuid.UUID) uuid.UUID {
	f.t.Helper()
	section := &types.Section{GradingPeriodID: &f.periodID, Name: name + " section"}
	require.NoError(f.t, f.db.Create(section).Error)
	gradebook := &types.Gradebook{SectionID: &section.ID, Name: name}
	require.NoError(f.t, f.db.Create(gradebook).Error)
	require.NoError(f.t, f.db.Table("gradebook_owner").Create(map[string]any{
		"gradebook_id": gradebook.ID,
		"staff_id":     ownerID,
	}).Error)
	return gradebook.ID
}

func (f *fixture) addStudent(first, last string) uuid.UUID {
	f.t.Helper()
	s := &types.Student{FirstName: first, LastName: last}
	require.NoError(f.t, f.db.Create(s).Error)
	return s.ID
}

func (f *fixture) addAssignment(name string) uuid.UUID {
	f.t.Helper()
	a := &types.Assignment{GradebookID: &f.gradebookID, Name: name, PointsPossible: 10}
	require.NoError(f.t, f.db.Create(a).Error)
	return a.ID
}

func (f *fixture) setScore(gradebookID, assignmentID, studentID uuid.UUID, missing bool) {
	f.t.Helper()
	cell := &types.ScoreCache{
		GradebookID:  &gradebookID,
		AssignmentID: &assignmentID,
		StudentID:    &studentID,
		IsMissing:    missing,
	}
	require.NoError(f.t, f.db.Create(cell).Error)
}

func (f *fixture) countDeltas(settled bool) int64 {
	f.t.Helper()
	var n int64
	require.NoError(f.t, f.db.Model(&types.Delta{}).Where("settled = ?", settled).Count(&n).Error)
	return n
}

func TestComputeMissing_OneDeltaPerStudentGradebookPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada := f.addStudent("Ada", "Lovelace")
	alan := f.addStudent("Alan", "Turing")
	grace := f.addStudent("Grace", "Hopper")
	ws1 := f.addAssignment("Worksheet 1")
	ws2 := f.addAssignment("Worksheet 2")

	f.setScore(f.gradebookID, ws1, ada, true)
	f.setScore(f.gradebookID, ws2, ada, true)
	f.setScore(f.gradebookID, ws1, alan, true)
	f.setScore(f.gradebookID, ws1, grace, false)

	res, err := f.engine.ComputeMissing(ctx, f.staffID, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2}, res)
	assert.EqualValues(t, 2, f.countDeltas(false))

	var adaDelta types.Delta
	require.NoError(t, f.db.Preload("Missing").Where("student_id = ?", ada).First(&adaDelta).Error)
	assert.Equal(t, types.DeltaKindMissing, adaDelta.Kind)
	assert.Len(t, adaDelta.Missing, 2)
}

func TestComputeMissing_RecomputeUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada := f.addStudent("Ada", "Lovelace")
	ws1 := f.addAssignment("Worksheet 1")
	ws2 := f.addAssignment("Worksheet 2")
	f.setScore(f.gradebookID, ws1, ada, true)

	res, err := f.engine.ComputeMissing(ctx, f.staffID, nil)
	require.NoError(t, err)
	require.Equal(t, Result{Created: 1}, res)

	// A second assignment goes missing; the existing delta absorbs it.
	f.setScore(f.gradebookID, ws2, ada, true)
	res, err = f.engine.ComputeMissing(ctx, f.staffID, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 1}, res)
	assert.EqualValues(t, 1, f.countDeltas(false))

	var delta types.Delta
	require.NoError(t, f.db.Preload("Missing").Where("student_id = ?", ada).First(&delta).Error)
	assert.Len(t, delta.Missing, 2)
}

func TestComputeMissing_SettlesResolvedStudents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada := f.addStudent("Ada", "Lovelace")
	alan := f.addStudent("Alan", "Turing")
	ws1 := f.addAssignment("Worksheet 1")
	f.setScore(f.gradebookID, ws1, ada, true)
	f.setScore(f.gradebookID, ws1, alan, true)

	_, err := f.engine.ComputeMissing(ctx, f.staffID, nil)
	require.NoError(t, err)

	// Ada turns the work in; her delta settles instead of disappearing.
	require.NoError(t, f.db.Model(&types.ScoreCache{}).
		Where("student_id = ?", ada).
		Update("is_missing", false).Error)

	res, err := f.engine.ComputeMissing(ctx, f.staffID, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Updated: 1, Settled: 1}, res)
	assert.EqualValues(t, 1, f.countDeltas(false))
	assert.EqualValues(t, 1, f.countDeltas(true))

	var settled types.Delta
	require.NoError(t, f.db.Where("student_id = ?", ada).First(&settled).Error)
	assert.True(t, settled.Settled)
}

func TestComputeMissing_IgnoresUnownedGradebooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := &types.Staff{Email: "other@district.example"}
	require.NoError(t, f.db.Create(other).Error)
	otherGB := f.addGradebook("Other GB", other.ID)

	ada := f.addStudent("Ada", "Lovelace")
	ws1 := f.addAssignment("Worksheet 1")
	f.setScore(otherGB, ws1, ada, true)

	res, err := f.engine.ComputeMissing(ctx, f.staffID, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.EqualValues(t, 0, f.countDeltas(false))
}

func TestComputeMissing_ExplicitPeriodScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ada := f.addStudent("Ada", "Lovelace")
	ws1 := f.addAssignment("Worksheet 1")
	f.setScore(f.gradebookID, ws1, ada, true)

	// Scoping to an unrelated period finds no gradebooks.
	unrelated := uuid.New()
	res, err := f.engine.ComputeMissing(ctx, f.staffID, &unrelated)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	res, err = f.engine.ComputeMissing(ctx, f.staffID, &f.periodID)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 1}, res)
}

func TestMissingForGradebook_EmptyIsEmptySlice(t *testing.T) {
	f := newFixture(t)

	entries, err := f.engine.MissingForGradebook(context.Background(), f.gradebookID)
	require.NoError(t, err)
	require.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestMissingForGradebook_JoinsNames(t *testing.T) {
	f := newFixture(t)

	ada := f.addStudent("Ada", "Lovelace")
	ws1 := f.addAssignment("Worksheet 1")
	f.setScore(f.gradebookID, ws1, ada, true)

	entries, err := f.engine.MissingForGradebook(context.Background(), f.gradebookID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Worksheet 1", entries[0].AssignmentName)
	assert.Equal(t, "Ada", entries[0].StudentFirstName)
	assert.Equal(t, "Lovelace", entries[0].StudentLastName)
	assert.Equal(t, "Algebra GB", entries[0].GradebookName)
	assert.Equal(t, ada, entries[0].StudentID)
}

func TestAllMissingForUser_GroupsByStudent(t *testing.T) {
	f := newFixture(t)

	ada := f.addStudent("Ada", "Lovelace")
	alan := f.addStudent("Alan", "Turing")
	ws1 := f.addAssignment("Worksheet 1")
	ws2 := f.addAssignment("Worksheet 2")
	f.setScore(f.gradebookID, ws1, ada, true)
	f.setScore(f.gradebookID, ws2, ada, true)
	f.setScore(f.gradebookID, ws1, alan, true)

	grouped, err := f.engine.AllMissingForUser(context.Background(), f.staffID, nil)
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Len(t, grouped[ada.String()], 2)
	assert.Len(t, grouped[alan.String()], 1)
}
