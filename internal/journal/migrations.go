package journal

import "fmt"

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT UNIQUE NOT NULL,
			target_pid INTEGER NOT NULL,
			launch_dir TEXT NOT NULL,
			command_json TEXT NOT NULL DEFAULT '[]',
			terminated INTEGER NOT NULL DEFAULT 0,
			killed INTEGER NOT NULL DEFAULT 0,
			new_pid INTEGER NOT NULL DEFAULT 0,
			state TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_attempts_started_at ON attempts(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_launch_dir ON attempts(launch_dir)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
