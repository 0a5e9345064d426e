package types

// AllModels lists every pull-schema model for migration, in FK dependency
// order.
func AllModels() []any {
	return []any{
		&Staff{},
		&Site{},
		&Term{},
		&GradingPeriod{},
		&Section{},
		&Student{},
		&Enrollment{},
		&Gradebook{},
		&Category{},
		&Assignment{},
		&ScoreCache{},
		&Delta{},
		&MissingAssignmentRecord{},
		&ActionRecord{},
		&SyncRun{},
	}
}
