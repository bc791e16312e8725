// ABOUTME: Database schema definitions and migrations
// ABOUTME: Tenant-scoped SQLite tables with JSON columns for denormalized associations
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
	id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	name TEXT NOT NULL,
	email TEXT,
	role TEXT,
	active INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS companies (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	name TEXT NOT NULL,
	domain TEXT,
	industry TEXT,
	state TEXT,
	notes TEXT,
	associations TEXT NOT NULL DEFAULT '{}',
	legacy_owners TEXT NOT NULL DEFAULT '{}',
	pipeline_value TEXT,
	closed_value TEXT,
	division_totals TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_companies_tenant ON companies(tenant_id, name);

CREATE TABLE IF NOT EXISTS company_locations (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	company_id TEXT NOT NULL,
	name TEXT NOT NULL,
	city TEXT,
	state TEXT,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_company_locations_company ON company_locations(tenant_id, company_id);

CREATE TABLE IF NOT EXISTS company_divisions (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	company_id TEXT NOT NULL,
	name TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_company_divisions_company ON company_divisions(tenant_id, company_id);

CREATE TABLE IF NOT EXISTS contacts (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	first_name TEXT,
	last_name TEXT,
	full_name TEXT,
	email TEXT,
	phone TEXT,
	job_title TEXT,
	company_id TEXT,
	associations TEXT NOT NULL DEFAULT '{}',
	legacy_owners TEXT NOT NULL DEFAULT '{}',
	state TEXT,
	tags TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	last_contacted_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_tenant ON contacts(tenant_id, email);

CREATE TABLE IF NOT EXISTS deals (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	name TEXT NOT NULL,
	stage TEXT NOT NULL,
	estimated_revenue REAL,
	stage_data TEXT,
	associations TEXT NOT NULL DEFAULT '{}',
	legacy_owners TEXT NOT NULL DEFAULT '{}',
	probability REAL,
	close_date DATETIME,
	division_id TEXT,
	activity_count_7d INTEGER,
	email_count_7d INTEGER,
	last_activity_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_deals_tenant_stage ON deals(tenant_id, stage);

CREATE TABLE IF NOT EXISTS pipeline_stages (
	id TEXT NOT NULL,
	tenant_id TEXT NOT NULL,
	name TEXT NOT NULL,
	probability REAL NOT NULL DEFAULT 0,
	sort_order INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (tenant_id, id)
);

CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	title TEXT NOT NULL,
	type TEXT,
	classification TEXT,
	status TEXT NOT NULL CHECK(status IN ('todo', 'in_progress', 'done', 'cancelled')),
	source TEXT NOT NULL DEFAULT 'crm',
	assignee_id TEXT,
	start_at DATETIME,
	end_at DATETIME,
	due_at DATETIME,
	completed_at DATETIME,
	associations TEXT NOT NULL DEFAULT '{}',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_tenant ON tasks(tenant_id, classification);

CREATE TABLE IF NOT EXISTS activities (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	type TEXT NOT NULL CHECK(type IN ('email', 'call', 'meeting', 'note', 'calendar_event')),
	title TEXT NOT NULL,
	description TEXT,
	timestamp DATETIME NOT NULL,
	end_at DATETIME,
	associations TEXT NOT NULL DEFAULT '{}',
	external_id TEXT,
	source TEXT,
	created_by TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activities_tenant_type ON activities(tenant_id, type, timestamp DESC);
CREATE UNIQUE INDEX IF NOT EXISTS idx_activities_external ON activities(tenant_id, source, external_id) WHERE external_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS email_templates (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	name TEXT NOT NULL,
	subject TEXT NOT NULL,
	body TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	UNIQUE(tenant_id, name)
);

CREATE TABLE IF NOT EXISTS sync_state (
	tenant_id TEXT NOT NULL,
	service TEXT NOT NULL,
	last_sync_time DATETIME,
	last_sync_token TEXT,
	status TEXT CHECK(status IN ('idle', 'syncing', 'error')),
	error_message TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (tenant_id, service)
);
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
