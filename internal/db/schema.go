package db

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	title       TEXT NOT NULL DEFAULT 'Untitled',
	content     TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	modified_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS note_hierarchy (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id  INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	child_id   INTEGER NOT NULL UNIQUE REFERENCES notes(id) ON DELETE CASCADE,
	edge_kind  TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	CHECK (parent_id <> child_id)
);
CREATE INDEX IF NOT EXISTS idx_note_hierarchy_parent ON note_hierarchy(parent_id);

CREATE TABLE IF NOT EXISTS note_modifications (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id          INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	previous_content TEXT NOT NULL,
	modified_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_note_modifications_note ON note_modifications(note_id, modified_at);

CREATE TABLE IF NOT EXISTS note_links (
	source_id INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	target_id INTEGER NOT NULL,
	PRIMARY KEY (source_id, target_id)
);
CREATE INDEX IF NOT EXISTS idx_note_links_target ON note_links(target_id);

CREATE TABLE IF NOT EXISTS tags (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tag_hierarchy (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id  INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	child_id   INTEGER NOT NULL UNIQUE REFERENCES tags(id) ON DELETE CASCADE,
	edge_kind  TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	CHECK (parent_id <> child_id)
);
CREATE INDEX IF NOT EXISTS idx_tag_hierarchy_parent ON tag_hierarchy(parent_id);

CREATE TABLE IF NOT EXISTS note_tags (
	note_id    INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	tag_id     INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	created_at TEXT NOT NULL,
	PRIMARY KEY (note_id, tag_id)
);
CREATE INDEX IF NOT EXISTS idx_note_tags_tag ON note_tags(tag_id);

CREATE TABLE IF NOT EXISTS attributes (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS note_attributes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id      INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	attribute_id INTEGER NOT NULL REFERENCES attributes(id) ON DELETE CASCADE,
	value        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_note_attributes_note ON note_attributes(note_id);

CREATE TABLE IF NOT EXISTS note_types (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS note_type_mappings (
	note_id INTEGER NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
	type_id INTEGER NOT NULL REFERENCES note_types(id) ON DELETE CASCADE,
	PRIMARY KEY (note_id, type_id)
);
CREATE INDEX IF NOT EXISTS idx_note_type_mappings_type ON note_type_mappings(type_id);

CREATE TABLE IF NOT EXISTS tasks (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id           INTEGER NOT NULL UNIQUE REFERENCES notes(id) ON DELETE CASCADE,
	status            TEXT NOT NULL CHECK (status IN ('todo','done','wait','hold','idea','kill','proj','event')),
	effort_estimate   REAL CHECK (effort_estimate IS NULL OR effort_estimate >= 0),
	actual_effort     REAL CHECK (actual_effort IS NULL OR actual_effort >= 0),
	deadline          TEXT,
	priority          INTEGER CHECK (priority IS NULL OR priority BETWEEN 1 AND 5),
	all_day           INTEGER NOT NULL DEFAULT 0,
	goal_relationship INTEGER CHECK (goal_relationship IS NULL OR goal_relationship BETWEEN 1 AND 5),
	created_at        TEXT NOT NULL,
	modified_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS task_hierarchy (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	parent_id  INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	child_id   INTEGER NOT NULL UNIQUE REFERENCES tasks(id) ON DELETE CASCADE,
	edge_kind  TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	CHECK (parent_id <> child_id)
);
CREATE INDEX IF NOT EXISTS idx_task_hierarchy_parent ON task_hierarchy(parent_id);

CREATE TABLE IF NOT EXISTS task_schedules (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id    INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	start_at   TEXT NOT NULL,
	end_at     TEXT NOT NULL,
	CHECK (end_at >= start_at)
);
CREATE INDEX IF NOT EXISTS idx_task_schedules_task ON task_schedules(task_id);

CREATE TABLE IF NOT EXISTS task_clocks (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id   INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	clock_in  TEXT NOT NULL,
	clock_out TEXT,
	CHECK (clock_out IS NULL OR clock_out > clock_in)
);
CREATE INDEX IF NOT EXISTS idx_task_clocks_task ON task_clocks(task_id);

CREATE TABLE IF NOT EXISTS assets (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	note_id     INTEGER REFERENCES notes(id) ON DELETE SET NULL,
	location    TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_assets_note ON assets(note_id);

CREATE TABLE IF NOT EXISTS search_documents (
	entity_kind TEXT NOT NULL,
	entity_id   INTEGER NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (entity_kind, entity_id)
);
`
