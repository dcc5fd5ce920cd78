package sqlstore

// schema returns the CREATE statements for the dialect. The two differ only
// in the timestamp type and the boolean default.
func schema(d Dialect) []string {
	ts, falseValue := "TIMESTAMPTZ", "FALSE"
	if d == SQLite {
		ts, falseValue = "TIMESTAMP", "0"
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			google_id VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL DEFAULT '',
			refresh_token TEXT NOT NULL DEFAULT '',
			token_expiry ` + ts + ` NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS users_email_idx ON users (email)`,
		`CREATE TABLE IF NOT EXISTS labels (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL,
			color VARCHAR(64) NOT NULL,
			filter TEXT NOT NULL DEFAULT '',
			prompt_filter TEXT NOT NULL DEFAULT '',
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS labels_user_id_idx ON labels (user_id)`,
		`CREATE TABLE IF NOT EXISTS emails (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL DEFAULT '',
			message_id VARCHAR(255) UNIQUE NOT NULL,
			subject TEXT NOT NULL,
			from_email TEXT NOT NULL,
			from_name TEXT NOT NULL DEFAULT '',
			to_email TEXT NOT NULL,
			text_body TEXT NOT NULL DEFAULT '',
			html_body TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			ai_summary TEXT NOT NULL DEFAULT '',
			status VARCHAR(32) NOT NULL DEFAULT 'pending',
			archived BOOLEAN NOT NULL DEFAULT ` + falseValue + `,
			received_at ` + ts + ` NOT NULL,
			created_at ` + ts + ` NOT NULL,
			updated_at ` + ts + ` NOT NULL,
			to_list TEXT NOT NULL DEFAULT '[]',
			cc_list TEXT NOT NULL DEFAULT '[]',
			bcc_list TEXT NOT NULL DEFAULT '[]',
			original_recipient TEXT NOT NULL DEFAULT '',
			tag TEXT NOT NULL DEFAULT '',
			stripped_text_reply TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS emails_user_id_idx ON emails (user_id)`,
		`CREATE INDEX IF NOT EXISTS emails_status_idx ON emails (status)`,
		`CREATE TABLE IF NOT EXISTS email_labels (
			email_id VARCHAR(255) NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
			label_id VARCHAR(255) NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
			created_at ` + ts + ` NOT NULL,
			PRIMARY KEY (email_id, label_id)
		)`,
		`CREATE INDEX IF NOT EXISTS email_labels_label_id_idx ON email_labels (label_id)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id VARCHAR(255) PRIMARY KEY,
			email_id VARCHAR(255) NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			content_type TEXT NOT NULL,
			content_length BIGINT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			content_id TEXT NOT NULL DEFAULT '',
			created_at ` + ts + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS attachments_email_id_idx ON attachments (email_id)`,
	}
}

// headerColumns were added to emails after the first release. Databases
// created before that get them in upgrade.
var headerColumns = []string{
	`to_list TEXT NOT NULL DEFAULT '[]'`,
	`cc_list TEXT NOT NULL DEFAULT '[]'`,
	`bcc_list TEXT NOT NULL DEFAULT '[]'`,
	`original_recipient TEXT NOT NULL DEFAULT ''`,
	`tag TEXT NOT NULL DEFAULT ''`,
	`stripped_text_reply TEXT NOT NULL DEFAULT ''`,
}
