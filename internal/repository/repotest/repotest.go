// Package repotest holds behaviour checks shared by every repository
// implementation.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailtriage/internal/model"
	"mailtriage/internal/repository"
)

type Repos struct {
	Users       repository.UserRepository
	Labels      repository.LabelRepository
	Emails      repository.EmailRepository
	Assignments repository.AssignmentRepository
}

// NewTestEmail returns an email owned by userID received at the given time.
func NewTestEmail(userID, messageID, subject string, receivedAt time.Time) *model.Email {
	e := model.NewEmail(userID, messageID, "sender@acme.com", "Sender", "me@domain.com", subject, receivedAt)
	e.TextBody = "body of " + subject
	return e
}

func Run(t *testing.T, repos Repos) {
	t.Run("users", func(t *testing.T) { testUsers(t, repos.Users) })
	t.Run("labels", func(t *testing.T) { testLabels(t, repos.Labels) })
	t.Run("emails", func(t *testing.T) { testEmails(t, repos.Emails) })
	t.Run("assignments", func(t *testing.T) { testAssignments(t, repos) })
}

func testUsers(t *testing.T, users repository.UserRepository) {
	ctx := context.Background()
	u := model.NewUser("google-1", "me@domain.com", "Me", "")
	require.NoError(t, users.Create(ctx, u))

	got, err := users.FindByGoogleID(ctx, "google-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = users.FindByEmail(ctx, "me@domain.com")
	require.NoError(t, err)
	assert.Equal(t, "Me", got.Name)

	got.Name = "Renamed"
	require.NoError(t, users.Update(ctx, got))
	got, err = users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	_, err = users.FindByEmail(ctx, "nobody@domain.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testLabels(t *testing.T, labels repository.LabelRepository) {
	ctx := context.Background()
	first := model.NewLabel("u1", "Finance", "#00ff00", `contains(Subject, "invoice")`, "")
	second := model.NewLabel("u1", "Acme", "#0000ff", `FromFull.Email ~= "@acme\\.com$"`, "")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	other := model.NewLabel("u2", "Other", "#ffffff", "", "")

	for _, l := range []*model.Label{second, first, other} {
		require.NoError(t, labels.Create(ctx, l))
	}

	list, err := labels.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID, "ordered by creation")
	assert.Equal(t, `FromFull.Email ~= "@acme\\.com$"`, list[1].Rule)

	first.Rule = `contains(Subject, "receipt")`
	require.NoError(t, labels.Update(ctx, first))
	got, err := labels.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, `contains(Subject, "receipt")`, got.Rule)

	require.NoError(t, labels.Delete(ctx, first.ID))
	_, err = labels.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, labels.Update(ctx, first), repository.ErrNotFound)
}

func testEmails(t *testing.T, emails repository.EmailRepository) {
	ctx := context.Background()
	base := time.Date(2024, 7, 15, 9, 30, 0, 0, time.UTC)
	older := NewTestEmail("u1", "m-1", "older", base)
	older.To = []model.Recipient{{Email: "me@domain.com", Name: "Me"}, {Email: "team@domain.com"}}
	older.Cc = []model.Recipient{{Email: "cc@domain.com"}}
	older.Tag = "vip"
	older.OriginalRecipient = "me+in@domain.com"
	older.StrippedTextReply = "thanks"
	newer := NewTestEmail("u1", "m-2", "newer", base.Add(time.Hour))

	require.NoError(t, emails.Create(ctx, older))
	require.NoError(t, emails.Create(ctx, newer))

	dup := NewTestEmail("u1", "m-1", "again", base)
	assert.ErrorIs(t, emails.Create(ctx, dup), repository.ErrDuplicate)

	list, err := emails.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Subject)
	assert.True(t, list[1].ReceivedAt.Equal(base))

	got, err := emails.FindByMessageID(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, older.ID, got.ID)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, older.To, got.To)
	assert.Equal(t, older.Cc, got.Cc)
	assert.Empty(t, got.Bcc)
	assert.Equal(t, "vip", got.Tag)
	assert.Equal(t, "me+in@domain.com", got.OriginalRecipient)
	assert.Equal(t, "thanks", got.StrippedTextReply)

	got.Status = model.StatusReviewed
	got.Archived = true
	require.NoError(t, emails.Update(ctx, got))
	got, err = emails.FindByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReviewed, got.Status)
	assert.True(t, got.Archived)

	att := model.NewAttachment(older.ID, "a.pdf", "application/pdf", 3, "QUJD", "")
	require.NoError(t, emails.CreateAttachments(ctx, []model.Attachment{att}))
	atts, err := emails.FindAttachments(ctx, older.ID)
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, int64(3), atts[0].ContentLength)

	require.NoError(t, emails.Delete(ctx, newer.ID))
	_, err = emails.FindByID(ctx, newer.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testAssignments(t *testing.T, repos Repos) {
	ctx := context.Background()
	a := repos.Assignments

	label := model.NewLabel("u9", "L", "#000", "", "")
	require.NoError(t, repos.Labels.Create(ctx, label))
	other := model.NewLabel("u9", "M", "#111", "", "")
	require.NoError(t, repos.Labels.Create(ctx, other))
	var ids []string
	for i, subject := range []string{"a", "b", "c"} {
		e := NewTestEmail("u9", "assign-"+subject, subject, time.Now().Add(time.Duration(i)*time.Minute))
		require.NoError(t, repos.Emails.Create(ctx, e))
		ids = append(ids, e.ID)
	}

	require.NoError(t, a.Add(ctx, label.ID, ids[:2]))
	require.NoError(t, a.Add(ctx, label.ID, ids[:2]), "adding twice is harmless")
	got, err := a.EmailIDsForLabel(ctx, label.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, ids[:2], got)

	require.NoError(t, a.Remove(ctx, label.ID, []string{ids[0], "missing"}))
	got, err = a.EmailIDsForLabel(ctx, label.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[1]}, got)

	require.NoError(t, a.ReplaceForEmail(ctx, ids[2], []string{label.ID, other.ID}))
	labels, err := a.LabelIDsForEmail(ctx, ids[2])
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{label.ID, other.ID}, labels)

	require.NoError(t, a.ReplaceForEmail(ctx, ids[2], []string{other.ID}))
	labels, err = a.LabelIDsForEmail(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, labels)

	require.NoError(t, a.DeleteByLabel(ctx, label.ID))
	got, err = a.EmailIDsForLabel(ctx, label.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, a.DeleteByEmail(ctx, ids[2]))
	labels, err = a.LabelIDsForEmail(ctx, ids[2])
	require.NoError(t, err)
	assert.Empty(t, labels)
}
