package mirror

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/classtrack/schoolsync-backend/internal/logger"
)

// Mirror table names. The tables themselves are loaded by tooling outside
// this system; a given deployment may only carry a subset.
const (
	tableStaff         = "mirror_staff"
	tableSite          = "mirror_site"
	tableStaffSite     = "mirror_staff_site"
	tableTerm          = "mirror_term"
	tableGradingPeriod = "mirror_grading_period"
	tableSection       = "mirror_section"
	tableSectionStaff  = "mirror_section_staff"
	tableStudent       = "mirror_student"
	tableEnrollment    = "mirror_enrollment"
	tableGradebook     = "mirror_gradebook"
	tableCategory      = "mirror_category"
	tableAssignment    = "mirror_assignment"
	tableScore         = "mirror_score"
)

// IlluminateAdapter reads an Illuminate-style SIS mirror over GORM. Entity
// types whose mirror table is absent report ErrNotImplemented so the sync
// orchestrator can skip them.
type IlluminateAdapter struct {
	db  *gorm.DB
	log *logger.Logger

	mu     sync.Mutex
	tables map[string]bool
}

func NewIlluminateAdapter(db *gorm.DB, baseLog *logger.Logger) *IlluminateAdapter {
	return &IlluminateAdapter{
		db:     db,
		log:    baseLog.With("adapter", "IlluminateAdapter"),
		tables: map[string]bool{},
	}
}

func (a *IlluminateAdapter) hasTable(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	exists, ok := a.tables[name]
	if !ok {
		exists = a.db.Migrator().HasTable(name)
		a.tables[name] = exists
	}
	return exists
}

func (a *IlluminateAdapter) find(ctx context.Context, query *gorm.DB) ([]Row, error) {
	var raw []map[string]any
	if err := query.WithContext(ctx).Find(&raw).Error; err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(raw))
	for _, m := range raw {
		rows = append(rows, Row(m))
	}
	return rows, nil
}

func (a *IlluminateAdapter) StaffSourceIDs(ctx context.Context) ([]int64, error) {
	if !a.hasTable(tableStaff) {
		return nil, ErrNotImplemented
	}
	var ids []int64
	err := a.db.WithContext(ctx).
		Table(tableStaff).
		Order("source_object_id").
		Pluck("source_object_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list staff source ids: %w", err)
	}
	return ids, nil
}

func (a *IlluminateAdapter) Staff(ctx context.Context, staffSourceID int64) (Row, error) {
	if !a.hasTable(tableStaff) {
		return nil, ErrNotImplemented
	}
	rows, err := a.find(ctx, a.db.
		Table(tableStaff).
		Select("source_object_id, first_name, last_name, email").
		Where("source_object_id = ?", staffSourceID).
		Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (a *IlluminateAdapter) Sites(ctx context.Context, staffSourceID int64) ([]Row, error) {
	if !a.hasTable(tableSite) || !a.hasTable(tableStaffSite) {
		return nil, ErrNotImplemented
	}
	return a.find(ctx, a.db.
		Table(tableSite+" AS s").
		Select("s.source_object_id, s.site_name").
		Joins("JOIN "+tableStaffSite+" AS ss ON ss.site_id = s.source_object_id").
		Where("ss.staff_id = ?", staffSourceID).
		Order("s.source_object_id"))
}

func (a *IlluminateAdapter) Terms(ctx context.Context, staffSourceID int64) ([]Row, error) {
	if !a.hasTable(tableTerm) || !a.hasTable(tableStaffSite) {
		return nil, ErrNotImplemented
	}
	return a.find(ctx, a.db.
		Table(tableTerm+" AS t").
		Select("t.source_object_id, t.name, t.start_date, t.end_date, t.illuminate_site_id").
		Joins("JOIN "+tableStaffSite+" AS ss ON ss.site_id = t.illuminate_site_id").
		Where("ss.staff_id = ?", staffSourceID).
		Order("t.source_object_id"))
}

func (a *IlluminateAdapter) GradingPeriods(ctx context.Context, staffSourceID int64) ([]Row, error) {
	if !a.hasTable(tableGradingPeriod) || !a.hasTable(tableTerm) || !a.hasTable(tableStaffSite) {
		return nil, ErrNotImplemented
	}
	return a.find(ctx, a.db.
		Table(tableGradingPeriod+" AS gp").
		Select("gp.source_object_id, gp.name, gp.start_date, gp.end_date, gp.illuminate_term_id").
		Joins("JOIN "+tableTerm+" AS t ON t.source_object_id = gp.illuminate_term_id").
		Joins("JOIN "+tableStaffSite+" AS ss ON ss.site_id = t.illuminate_site_id").
		Where("ss.staff_id = ?", staffSourceID).
		Order("gp.source_object_id"))
}

func (a *IlluminateAdapter) Sections(ctx context.Context, staffSourceID int64) ([]Row, error) {
	if !a.hasTable(tableSection) || !a.hasTable(tableSectionStaff) {
		return nil, ErrNotImplemented
	}
	return a.find(ctx, a.db.
		Table(tableSection+" AS sec").
		Select("sec.source_object_id, sec.name, sec.period, sec.course_name, sec.illuminate_site_id, sec.illuminate_term_id, sec.illuminate_grading_period_id").
		Joins("JOIN "+tableSectionStaff+" AS st ON st.section_id = sec.source_object_id").
		Where("st.staff_id = ?", staffSourceID).
		Order("sec.source_object_id"))
}

func (a *IlluminateAdapter) Students(ctx context.Context, staffSourceID int64) ([]Row, error) {
	if !a.hasTable(tableStudent) || !a.hasTable(tableEnrollment) || !a.hasTable(tableSectionStaff) {
		return nil, ErrNotImplemented
	}
	return a.find(ctx, a.db.
		Table(tableStudent+" AS stu").
		Select("DISTINCT stu.source_object_id, stu.first_name, stu.last_name, stu.student_number").
		Joins("JOIN "+tableEnrollment+" AS e ON e.illuminate_student_id = stu.source_object_id").
		Joins("JOIN "+tableSectionStaff+" AS st ON st.section_id = e.illuminate_section_id").
		Where("st.staff_id = ?", staffSourceID).
		Order("stu.source_object_id"))
}

func (a *IlluminateAdapter) Enrollments(ctx context.Context, staffSourceID int64) ([]Row, error) {
	if !a.hasTable(tableEnrollment) || !a.hasTable(tableSectionStaff) {
		return nil, ErrNotImplemented
	}
	return a.find(ctx, a.db.
		Table(tableEnrollment+" AS e").
		Select("e.source_object_id, e.illuminate_section_id, e.illuminate_student_id").
		Joins("JOIN "+tableSectionStaff+" AS st ON st.section_id = e.illuminate_section_id").
		Where("st.staff_id = ?", staffSourceID).
		Order("e.source_object_id"))
}

func (a *IlluminateAdapter) Gradebooks(ctx context.Context, staffSourceID int64) ([]Row, error) {
	if !a.hasTable(tableGradebook) {
		return nil, ErrNotImplemented
	}
	return a.find(ctx, a.db.
		Table(tableGradebook).
		Select("source_object_id, name, illuminate_section_id, illuminate_user_id").
		Where("illuminate_user_id = ?", staffSourceID).
		Order("source_object_id"))
}

func (a *IlluminateAdapter) Categories(ctx context.Context, staffSourceID int64) ([]Row, error) {
	if !a.hasTable(tableCategory) || !a.hasTable(tableGradebook) {
		return nil, ErrNotImplemented
	}
	return a.find(ctx, a.db.
		Table(tableCategory+" AS c").
		Select("c.source_object_id, c.name, c.weight, c.illuminate_gradebook_id").
		Joins("JOIN "+tableGradebook+" AS g ON g.source_object_id = c.illuminate_gradebook_id").
		Where("g.illuminate_user_id = ?", staffSourceID).
		Order("c.source_object_id"))
}

func (a *IlluminateAdapter) Assignments(ctx context.Context, staffSourceID int64) ([]Row, error) {
	if !a.hasTable(tableAssignment) || !a.hasTable(tableGradebook) {
		return nil, ErrNotImplemented
	}
	return a.find(ctx, a.db.
		Table(tableAssignment+" AS asg").
		Select("asg.source_object_id, asg.name, asg.due_date, asg.points_possible, asg.illuminate_gradebook_id, asg.illuminate_category_id").
		Joins("JOIN "+tableGradebook+" AS g ON g.source_object_id = asg.illuminate_gradebook_id").
		Where("g.illuminate_user_id = ?", staffSourceID).
		Order("asg.source_object_id"))
}

func (a *IlluminateAdapter) Scores(ctx context.Context, staffSourceID int64) ([]Row, error) {
	if !a.hasTable(tableScore) || !a.hasTable(tableGradebook) {
		return nil, ErrNotImplemented
	}
	return a.find(ctx, a.db.
		Table(tableScore+" AS sc").
		Select("sc.source_object_id, sc.is_missing, sc.missing_on, sc.points, sc.score, sc.illuminate_gradebook_id, sc.illuminate_assignment_id, sc.illuminate_student_id").
		Joins("JOIN "+tableGradebook+" AS g ON g.source_object_id = sc.illuminate_gradebook_id").
		Where("g.illuminate_user_id = ?", staffSourceID).
		Order("sc.source_object_id"))
}
