package sqlite

// schema creates all tables, indexes, and views. Statements are
// idempotent so opening an existing database is safe.
const schema = `
CREATE TABLE IF NOT EXISTS measures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,

	fingerprint TEXT NOT NULL UNIQUE,
	measure_fingerprint TEXT NOT NULL,
	content_hash TEXT NOT NULL,

	measure_id TEXT,
	measure_letter TEXT,
	year INTEGER NOT NULL,
	jurisdiction TEXT NOT NULL DEFAULT 'STATEWIDE',
	title TEXT,
	description TEXT,
	ballot_question TEXT,

	yes_votes INTEGER,
	no_votes INTEGER,
	total_votes INTEGER,
	percent_yes REAL,
	percent_no REAL,
	passed INTEGER,
	pass_fail TEXT,

	measure_type TEXT,
	topic_primary TEXT,
	topic_secondary TEXT,

	data_source TEXT NOT NULL,
	source_url TEXT,
	document_url TEXT,

	has_summary INTEGER NOT NULL DEFAULT 0,
	summary_title TEXT,
	summary_text TEXT,

	election_type TEXT,
	election_date TIMESTAMP,
	decade INTEGER,
	century INTEGER,

	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	last_seen_at TIMESTAMP NOT NULL,
	update_count INTEGER NOT NULL DEFAULT 0,

	is_duplicate INTEGER NOT NULL DEFAULT 0,
	duplicate_type TEXT NOT NULL DEFAULT '',
	master_id INTEGER,
	merged_from TEXT,

	FOREIGN KEY(master_id) REFERENCES measures(id)
);

CREATE INDEX IF NOT EXISTS idx_measures_measure_fingerprint ON measures(measure_fingerprint);
CREATE INDEX IF NOT EXISTS idx_measures_content_hash ON measures(content_hash);
CREATE INDEX IF NOT EXISTS idx_measures_year ON measures(year);
CREATE INDEX IF NOT EXISTS idx_measures_jurisdiction ON measures(jurisdiction);
CREATE INDEX IF NOT EXISTS idx_measures_source ON measures(data_source);
CREATE INDEX IF NOT EXISTS idx_measures_is_duplicate ON measures(is_duplicate);
CREATE INDEX IF NOT EXISTS idx_measures_master_id ON measures(master_id);

CREATE TABLE IF NOT EXISTS measure_updates (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	measure_id INTEGER NOT NULL,
	field_name TEXT NOT NULL,
	old_value TEXT,
	new_value TEXT,
	update_source TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(measure_id) REFERENCES measures(id)
);

CREATE INDEX IF NOT EXISTS idx_measure_updates_measure ON measure_updates(measure_id);

CREATE TABLE IF NOT EXISTS ingest_runs (
	run_id TEXT PRIMARY KEY,
	run_type TEXT NOT NULL,
	started_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at TIMESTAMP,
	measures_checked INTEGER NOT NULL DEFAULT 0,
	new_measures INTEGER NOT NULL DEFAULT 0,
	updated_measures INTEGER NOT NULL DEFAULT 0,
	duplicates_found INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT
);

CREATE VIEW IF NOT EXISTS active_measures AS
SELECT * FROM measures
WHERE is_duplicate = 0;
`
