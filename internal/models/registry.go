package models

// All returns every model that needs migration, parents first.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&CaseRecord{},
		&Assignment{},
	}
}
