package store

import "context"

const schema = `
-- Packages known to the registry, with the download count used to rank them
CREATE TABLE IF NOT EXISTS packages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE COLLATE NOCASE,
	description TEXT NOT NULL DEFAULT '',
	homepage TEXT NOT NULL DEFAULT '',
	repository TEXT NOT NULL DEFAULT '',
	downloads INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_packages_downloads ON packages(downloads DESC);

-- Users and teams allowed to publish a package
CREATE TABLE IF NOT EXISTS package_owners (
	package_id INTEGER NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
	owner_kind TEXT NOT NULL,
	owner_id INTEGER NOT NULL,
	PRIMARY KEY (package_id, owner_kind, owner_id)
);

CREATE INDEX IF NOT EXISTS idx_package_owners_owner ON package_owners(owner_kind, owner_id);

-- Published versions; the newest non-yanked one is shown in notifications
CREATE TABLE IF NOT EXISTS versions (
	package_id INTEGER NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
	num TEXT NOT NULL,
	yanked INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (package_id, num)
);

-- Persistent job queue; times are unix milliseconds
CREATE TABLE IF NOT EXISTS background_jobs (
	id TEXT PRIMARY KEY,
	job_type TEXT NOT NULL,
	data TEXT NOT NULL,
	priority INTEGER NOT NULL DEFAULT 0,
	retries INTEGER NOT NULL DEFAULT 0,
	last_error TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	created_at INTEGER NOT NULL,
	run_after INTEGER NOT NULL,
	locked_until INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_background_jobs_ready ON background_jobs(status, run_after);
`

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return &StoreError{Type: ErrTypeSchema, Key: s.path, Message: "apply schema", Err: err}
	}
	return nil
}
