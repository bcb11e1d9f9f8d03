package models

// AutoMigrateAll lists every table the service owns, in dependency order.
func AutoMigrateAll() []interface{} {
	return []interface{}{
		&Song{},
		&AnonymousDevice{},
		&VotingSession{},
		&Match{},
		&Vote{},
	}
}
