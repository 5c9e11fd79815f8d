package models

// All lists every persisted model in dependency order, for AutoMigrate in
// sqlite-backed development and tests.
func All() []any {
	return []any{
		&Member{},
		&Room{},
		&Product{},
		&NamedProduct{},
		&Sale{},
	}
}
