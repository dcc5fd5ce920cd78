package sqlstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailtriage/internal/model"
	"mailtriage/internal/repository/repotest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRepositories(t *testing.T) {
	s := setupTestStore(t)
	repotest.Run(t, repotest.Repos{
		Users:       NewUserRepository(s),
		Labels:      NewLabelRepository(s),
		Emails:      NewEmailRepository(s),
		Assignments: NewAssignmentRepository(s),
	})
}

func TestMigrateIsRepeatable(t *testing.T) {
	s := setupTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

const legacyEmailsTable = `CREATE TABLE emails (
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
	archived BOOLEAN NOT NULL DEFAULT 0,
	received_at TIMESTAMP NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

func TestMigrateAddsHeaderColumns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	_, err := s.DB().ExecContext(ctx, `DROP TABLE emails`)
	require.NoError(t, err)
	_, err = s.DB().ExecContext(ctx, legacyEmailsTable)
	require.NoError(t, err)
	_, err = s.DB().ExecContext(ctx, `INSERT INTO emails (id, message_id, subject, from_email, to_email, received_at, created_at, updated_at)
		VALUES ('old-1', 'm-old', 'old', 'a@b.com', 'me@domain.com', '2024-01-01 00:00:00', '2024-01-01 00:00:00', '2024-01-01 00:00:00')`)
	require.NoError(t, err)

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx))

	repo := NewEmailRepository(s)
	old, err := repo.FindByID(ctx, "old-1")
	require.NoError(t, err)
	assert.Empty(t, old.To)
	assert.Equal(t, "", old.Tag)

	e := repotest.NewTestEmail("u1", "m-new", "new", time.Now())
	e.Tag = "vip"
	e.Cc = []model.Recipient{{Email: "cc@domain.com", Name: "Cc"}}
	require.NoError(t, repo.Create(ctx, e))
	got, err := repo.FindByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "vip", got.Tag)
	assert.Equal(t, e.Cc, got.Cc)
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	lite := &Store{dialect: SQLite}
	q := `SELECT id FROM emails WHERE user_id = ? AND status IN (?, ?)`

	assert.Equal(t, `SELECT id FROM emails WHERE user_id = $1 AND status IN ($2, $3)`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
	assert.Equal(t, "?, ?, ?", placeholders(3))
}

func TestAddSpansBatches(t *testing.T) {
	s := setupTestStore(t)
	repo := NewAssignmentRepository(s)
	ctx := context.Background()

	ids := make([]string, batchSize+25)
	for i := range ids {
		ids[i] = fmt.Sprintf("email-%04d", i)
	}
	require.NoError(t, repo.Add(ctx, "label-1", ids))

	got, err := repo.EmailIDsForLabel(ctx, "label-1")
	require.NoError(t, err)
	assert.Len(t, got, len(ids))

	require.NoError(t, repo.Remove(ctx, "label-1", ids[:batchSize+1]))
	got, err = repo.EmailIDsForLabel(ctx, "label-1")
	require.NoError(t, err)
	assert.Len(t, got, 24)
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("mysql"), "")
	assert.Error(t, err)
}
