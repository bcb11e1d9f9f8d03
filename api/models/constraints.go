package models

import "gorm.io/gorm"

// EnsureSessionConstraints adds what AutoMigrate cannot express: at most one
// ACTIVE session per owner, and on postgres a check that a session never has
// both a user and an anonymous owner.
func EnsureSessionConstraints(db *gorm.DB) error {
	for _, stmt := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_voting_sessions_one_active_user ON voting_sessions (user_id) WHERE status = 'ACTIVE' AND user_id IS NOT NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_voting_sessions_one_active_anon ON voting_sessions (anon_id) WHERE status = 'ACTIVE' AND anon_id IS NOT NULL",
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	if db.Dialector.Name() != "postgres" {
		return nil
	}
	var count int64
	if err := db.Raw(
		"SELECT COUNT(1) FROM pg_constraint WHERE conname = ?",
		"voting_sessions_single_owner",
	).Scan(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return db.Exec(
			"ALTER TABLE voting_sessions ADD CONSTRAINT voting_sessions_single_owner CHECK (user_id IS NULL OR anon_id IS NULL)",
		).Error
	}
	return nil
}
