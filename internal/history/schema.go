package history

import "database/sql"

const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS runs (
  run_id     TEXT PRIMARY KEY,
  started_at TEXT NOT NULL,
  root       TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS changes (
  id        INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id    TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
  ts_utc    TEXT NOT NULL,
  file      TEXT NOT NULL,
  ordinal   INTEGER NOT NULL,
  line      INTEGER NOT NULL,
  kind      TEXT NOT NULL,
  old_value TEXT NOT NULL,
  new_value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_changes_run ON changes(run_id, ts_utc);
CREATE INDEX IF NOT EXISTS idx_changes_file ON changes(file, ordinal);
`

func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
