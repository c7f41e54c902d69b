package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id                 TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	title              TEXT NOT NULL,
	description        TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL CHECK(category IN ('homework', 'revision', 'projects', 'other')),
	priority           TEXT NOT NULL DEFAULT 'medium' CHECK(priority IN ('low', 'medium', 'high')),
	progress           INTEGER NOT NULL DEFAULT 0 CHECK(progress BETWEEN 0 AND 100),
	completed          INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL,
	due_date           DATETIME,
	estimated_time     REAL,
	notes              TEXT NOT NULL DEFAULT '',
	recurring_type     TEXT NOT NULL DEFAULT 'none',
	recurring_end_date DATETIME
);

CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_tasks_due_date ON tasks(due_date);

CREATE TABLE IF NOT EXISTS tags (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	color      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	UNIQUE(user_id, name)
);

CREATE TABLE IF NOT EXISTS task_tags (
	task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	tag_id     TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (task_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_task_tags_tag_id ON task_tags(tag_id);

CREATE TABLE IF NOT EXISTS subtasks (
	id          TEXT PRIMARY KEY,
	task_id     TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	user_id     TEXT NOT NULL,
	title       TEXT NOT NULL,
	completed   INTEGER NOT NULL DEFAULT 0 CHECK(completed IN (0, 1)),
	order_index INTEGER NOT NULL,
	created_at  DATETIME NOT NULL,
	UNIQUE(task_id, order_index)
);

CREATE TABLE IF NOT EXISTS task_time_sessions (
	id               TEXT PRIMARY KEY,
	task_id          TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	user_id          TEXT NOT NULL,
	start_time       DATETIME NOT NULL,
	end_time         DATETIME,
	duration_seconds INTEGER,
	notes            TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_task_id ON task_time_sessions(task_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS notes (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	content    TEXT NOT NULL DEFAULT '',
	task_id    TEXT REFERENCES tasks(id) ON DELETE SET NULL,
	folder     TEXT NOT NULL DEFAULT '',
	tags       TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_user_folder ON notes(user_id, folder);

CREATE TABLE IF NOT EXISTS task_completion_history (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	task_id        TEXT NOT NULL,
	task_title     TEXT NOT NULL,
	estimated_time REAL,
	actual_time    INTEGER NOT NULL DEFAULT 0,
	completed_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_completion_history_title
	ON task_completion_history(user_id, task_title, completed_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
	{
		version: 3,
		sql: `
CREATE TABLE IF NOT EXISTS weekly_summaries (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	week_start TEXT NOT NULL,
	week_end   TEXT NOT NULL,
	summary    TEXT NOT NULL,
	insights   TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	UNIQUE(user_id, week_start, week_end)
);

CREATE TABLE IF NOT EXISTS ai_analysis (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	task_id       TEXT NOT NULL,
	analysis_type TEXT NOT NULL,
	input_data    TEXT NOT NULL DEFAULT '{}',
	result        TEXT NOT NULL DEFAULT '{}',
	model         TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ai_analysis_task ON ai_analysis(task_id, created_at);

INSERT INTO schema_version (version) VALUES (3);
`,
	},
}
