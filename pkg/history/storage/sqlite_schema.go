package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the decision history schema.
const Schema = `
-- Decision records table
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    game_id TEXT NOT NULL,

    -- Game context
    scenario INTEGER NOT NULL,
    person_index INTEGER NOT NULL,

    -- Arrival
    attributes TEXT NOT NULL,

    -- Decision
    accepted BOOLEAN NOT NULL,
    forced BOOLEAN NOT NULL,
    score REAL NOT NULL,
    threshold REAL NOT NULL,
    weights TEXT,

    -- Occupancy after the decision
    admitted INTEGER NOT NULL,
    rejected INTEGER NOT NULL,

    -- Timestamps
    decided_at TIMESTAMP NOT NULL,
    recorded_at TIMESTAMP NOT NULL
);

-- Schema version table
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_decisions_game_id ON decisions(game_id);
CREATE INDEX IF NOT EXISTS idx_decisions_scenario ON decisions(scenario);
CREATE INDEX IF NOT EXISTS idx_decisions_decided_at ON decisions(decided_at);
CREATE INDEX IF NOT EXISTS idx_decisions_accepted ON decisions(accepted);
CREATE INDEX IF NOT EXISTS idx_decisions_score ON decisions(score);
CREATE INDEX IF NOT EXISTS idx_decisions_game_person ON decisions(game_id, person_index);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`
