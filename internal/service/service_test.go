package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailtriage/internal/ai"
	"mailtriage/internal/config"
	"mailtriage/internal/labelsync"
	"mailtriage/internal/logger"
	"mailtriage/internal/model"
	"mailtriage/internal/record"
	"mailtriage/internal/repository/memory"
	"mailtriage/internal/rules"
	"mailtriage/internal/service"
)

type recordedEvent struct {
	userID    string
	eventType string
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) BroadcastToUser(userID string, eventType string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{userID: userID, eventType: eventType})
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []string{}
	for _, e := range r.events {
		out = append(out, e.eventType)
	}
	return out
}

// flakyAssignments fails Add while failAdd is set.
type flakyAssignments struct {
	*memory.InMemoryAssignmentRepository
	mu      sync.Mutex
	failAdd bool
}

func (r *flakyAssignments) setFailAdd(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAdd = fail
}

func (r *flakyAssignments) Add(ctx context.Context, labelID string, emailIDs []string) error {
	r.mu.Lock()
	fail := r.failAdd
	r.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return r.InMemoryAssignmentRepository.Add(ctx, labelID, emailIDs)
}

type fixture struct {
	users       *memory.InMemoryUserRepository
	labelRepo   *memory.InMemoryLabelRepository
	emailRepo   *memory.InMemoryEmailRepository
	assignments *flakyAssignments
	ai          *ai.MockAIClient
	events      *eventRecorder
	labels      service.LabelService
	emails      service.EmailService
	user        *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:       memory.NewInMemoryUserRepository(),
		labelRepo:   memory.NewInMemoryLabelRepository(),
		emailRepo:   memory.NewInMemoryEmailRepository(),
		assignments: &flakyAssignments{InMemoryAssignmentRepository: memory.NewInMemoryAssignmentRepository()},
		ai:          ai.NewMockAIClient(),
		events:      &eventRecorder{},
	}
	log := logger.NewNop()
	engine := rules.NewEngine()
	syncer := labelsync.New(engine, labelsync.WithWorkers(4), labelsync.WithLogger(log))

	f.labels = service.NewLabelService(f.labelRepo, f.emailRepo, f.assignments, engine, syncer, f.events, log)
	f.emails = service.NewEmailService(f.emailRepo, f.labelRepo, f.users, f.assignments, syncer, f.ai, f.events, nil, log)

	f.user = model.NewUser("google-1", "alice@example.com", "Alice", "")
	require.NoError(t, f.users.Create(context.Background(), f.user))
	return f
}

func inbound(messageID, from, subject, body string) record.InboundMessage {
	return record.InboundMessage{
		MessageID: messageID,
		Date:      "Fri, 1 Aug 2014 16:45:32 -04:00",
		Subject:   subject,
		FromFull:  record.Address{Email: from, Name: "Sender"},
		ToFull:    []record.Address{{Email: "alice@example.com"}},
		TextBody:  body,
	}
}

func (f *fixture) ingest(t *testing.T, messageID, from, subject string) *model.Email {
	t.Helper()
	res, err := f.emails.IngestInbound(context.Background(), inbound(messageID, from, subject, "body of "+subject))
	require.NoError(t, err)
	require.False(t, res.Duplicate)
	return res.Email
}

func (f *fixture) createLabel(t *testing.T, name, rule string) *service.LabelResult {
	t.Helper()
	res, err := f.labels.CreateLabel(context.Background(), f.user.ID, service.LabelInput{Name: name, Color: "#ff0000", Rule: rule})
	require.NoError(t, err)
	return res
}

func (f *fixture) assigned(t *testing.T, labelID string) []string {
	t.Helper()
	ids, err := f.assignments.EmailIDsForLabel(context.Background(), labelID)
	require.NoError(t, err)
	return ids
}

func TestIngestAssignsMatchingLabels(t *testing.T) {
	f := newFixture(t)
	acme := f.createLabel(t, "Acme", `FromFull.Email ~= "@acme\\.com$"`)
	invoices := f.createLabel(t, "Invoices", `contains(Subject, "invoice")`)
	f.createLabel(t, "Manual", "")

	email := f.ingest(t, "m-1", "billing@acme.com", "Invoice 2291")

	assert.Equal(t, f.user.ID, email.UserID)
	assert.Equal(t, model.StatusPending, email.Status)
	assert.Equal(t, []string{acme.Label.ID, invoices.Label.ID}, email.LabelIDs)
	assert.Equal(t, "body of Invoice 2291", email.Summary)
	assert.Equal(t, "Invoice 2291", email.AISummary)
	assert.Equal(t, 2014, email.ReceivedAt.Year())

	stored, err := f.emails.GetEmail(context.Background(), f.user.ID, email.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{acme.Label.ID, invoices.Label.ID}, stored.LabelIDs)
	assert.Contains(t, f.events.types(), service.EventEmailCreated)
}

func TestIngestDuplicate(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "m-1", "a@b.com", "Hello")

	res, err := f.emails.IngestInbound(context.Background(), inbound("m-1", "a@b.com", "Hello", ""))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Nil(t, res.Email)

	emails, err := f.emails.ListEmails(context.Background(), f.user.ID, service.EmailFilter{})
	require.NoError(t, err)
	assert.Len(t, emails, 1)
}

type seenDeduper struct{ released []string }

func (d *seenDeduper) Claim(context.Context, string) (bool, error) { return false, nil }
func (d *seenDeduper) Release(_ context.Context, key string) error {
	d.released = append(d.released, key)
	return nil
}

func TestIngestDedupeShortCircuits(t *testing.T) {
	f := newFixture(t)
	engine := rules.NewEngine()
	emails := service.NewEmailService(f.emailRepo, f.labelRepo, f.users, f.assignments, labelsync.New(engine), f.ai, nil, &seenDeduper{}, logger.NewNop())

	res, err := emails.IngestInbound(context.Background(), inbound("m-9", "a@b.com", "Hello", ""))
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	_, err = f.emailRepo.FindByMessageID(context.Background(), "m-9")
	assert.Error(t, err)
}

func TestIngestValidation(t *testing.T) {
	f := newFixture(t)
	msg := inbound("", "a@b.com", "", "")
	msg.ToFull = nil

	_, err := f.emails.IngestInbound(context.Background(), msg)
	require.ErrorIs(t, err, service.ErrValidation)

	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "missing MessageID, Subject, ToFull[0].Email", verr.Details)
}

func TestIngestFallsBackWhenSummaryFails(t *testing.T) {
	f := newFixture(t)
	f.ai.SummarizeEmailFunc = func(ctx context.Context, subject, body string) (string, error) {
		return "", errors.New("quota exceeded")
	}

	email := f.ingest(t, "m-1", "a@b.com", "Weekly report")
	assert.Equal(t, "body of Weekly report", email.AISummary)
}

func TestIngestUnknownRecipientIsUnowned(t *testing.T) {
	f := newFixture(t)
	msg := inbound("m-1", "a@b.com", "Hello", "")
	msg.ToFull = []record.Address{{Email: "nobody@example.com"}}

	res, err := f.emails.IngestInbound(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, "", res.Email.UserID)
	assert.Empty(t, res.Email.LabelIDs)
	assert.NotContains(t, f.events.types(), service.EventEmailCreated)
}

func TestCreateLabelAppliesToExistingEmails(t *testing.T) {
	f := newFixture(t)
	e1 := f.ingest(t, "m-1", "ceo@acme.com", "Quarterly plan")
	e2 := f.ingest(t, "m-2", "sales@acme.com", "Offer")
	f.ingest(t, "m-3", "friend@mail.com", "Dinner")

	res := f.createLabel(t, "Acme", `endsWith(FromFull.Email, "@acme.com")`)
	assert.Equal(t, 2, res.Added)
	assert.ElementsMatch(t, []string{e1.ID, e2.ID}, f.assigned(t, res.Label.ID))
}

func TestCreateLabelRejectsInvalidRule(t *testing.T) {
	f := newFixture(t)
	_, err := f.labels.CreateLabel(context.Background(), f.user.ID, service.LabelInput{Name: "Bad", Color: "#000", Rule: `contains(Subject, "x"`})

	var verr *service.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "invalid rule", verr.Message)
	assert.Contains(t, verr.Details, "unbalanced parentheses")

	labels, err := f.labels.ListLabels(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, labels)
}

func TestCreateLabelRequiresNameAndColor(t *testing.T) {
	f := newFixture(t)
	_, err := f.labels.CreateLabel(context.Background(), f.user.ID, service.LabelInput{Name: "  ", Color: "#000"})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestUpdateLabelReconciles(t *testing.T) {
	f := newFixture(t)
	sale := f.ingest(t, "m-1", "shop@store.com", "Big sale today")
	f.ingest(t, "m-2", "friend@mail.com", "Lunch?")
	promo := f.ingest(t, "m-3", "shop@store.com", "New promo codes")

	res := f.createLabel(t, "Deals", `contains(Subject, "sale")`)
	require.Equal(t, []string{sale.ID}, f.assigned(t, res.Label.ID))

	updated, err := f.labels.UpdateLabel(context.Background(), f.user.ID, res.Label.ID, service.LabelInput{
		Name: "Deals", Color: "#00ff00", Rule: `contains(Subject, "promo")`,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Added)
	assert.Equal(t, 1, updated.Removed)
	assert.Equal(t, "#00ff00", updated.Label.Color)
	assert.Equal(t, []string{promo.ID}, f.assigned(t, res.Label.ID))
	assert.Contains(t, f.events.types(), service.EventLabelReconciled)

	// Renaming without touching the rule leaves assignments alone.
	renamed, err := f.labels.UpdateLabel(context.Background(), f.user.ID, res.Label.ID, service.LabelInput{
		Name: "Offers", Color: "#00ff00", Rule: `contains(Subject, "promo")`,
	})
	require.NoError(t, err)
	assert.Zero(t, renamed.Added)
	assert.Zero(t, renamed.Removed)
	assert.Equal(t, []string{promo.ID}, f.assigned(t, res.Label.ID))
}

func TestUpdateLabelClearedRuleKeepsAssignments(t *testing.T) {
	f := newFixture(t)
	e := f.ingest(t, "m-1", "shop@store.com", "Big sale")
	res := f.createLabel(t, "Deals", `contains(Subject, "sale")`)

	updated, err := f.labels.UpdateLabel(context.Background(), f.user.ID, res.Label.ID, service.LabelInput{Name: "Deals", Color: "#000", Rule: "   "})
	require.NoError(t, err)
	assert.Equal(t, "", updated.Label.Rule)
	assert.Zero(t, updated.Removed)
	assert.Equal(t, []string{e.ID}, f.assigned(t, res.Label.ID))
}

func TestUpdateLabelKeepsManualAssignmentsOfMatchingEmails(t *testing.T) {
	f := newFixture(t)
	e := f.ingest(t, "m-1", "shop@store.com", "Big sale")
	res := f.createLabel(t, "Manual", "")
	_, err := f.emails.UpdateEmail(context.Background(), f.user.ID, e.ID, service.EmailUpdate{LabelIDs: &[]string{res.Label.ID}})
	require.NoError(t, err)

	updated, err := f.labels.UpdateLabel(context.Background(), f.user.ID, res.Label.ID, service.LabelInput{Name: "Manual", Color: "#000", Rule: `contains(Subject, "sale")`})
	require.NoError(t, err)
	assert.Zero(t, updated.Added)
	assert.Zero(t, updated.Removed)
}

func TestIngestAndReconcileAgreeOnHeaderFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	filters := map[string]string{
		"VIP":     `Tag == "vip"`,
		"Copied":  `Email of first(CcFull) == "cc@example.com"`,
		"Team":    `len(ToFull) == 2`,
		"Alias":   `OriginalRecipient == "alice+in@example.com"`,
		"Replies": `contains(StrippedTextReply, "thanks")`,
		"Old":     `Date < "2015-01-01"`,
	}
	labels := map[string]*service.LabelResult{}
	for name, rule := range filters {
		labels[name] = f.createLabel(t, name, rule)
	}
	odd := f.createLabel(t, "RawDate", `Date == "sometime last week"`)

	msg := inbound("m-1", "boss@acme.com", "Quarterly numbers", "see attached")
	msg.Tag = "vip"
	msg.ToFull = append(msg.ToFull, record.Address{Email: "team@example.com"})
	msg.CcFull = []record.Address{{Email: "cc@example.com", Name: "Cc"}}
	msg.OriginalRecipient = "alice+in@example.com"
	msg.StrippedTextReply = "thanks, looks good"
	res, err := f.emails.IngestInbound(ctx, msg)
	require.NoError(t, err)
	email := res.Email

	unparsed := inbound("m-2", "boss@acme.com", "Undated", "no date")
	unparsed.Date = "sometime last week"
	_, err = f.emails.IngestInbound(ctx, unparsed)
	require.NoError(t, err)
	assert.Empty(t, f.assigned(t, odd.Label.ID))

	for name, rule := range filters {
		id := labels[name].Label.ID
		require.Equal(t, []string{email.ID}, f.assigned(t, id), name)

		// Widening a rule never takes the label away from an email it matched.
		widened, err := f.labels.UpdateLabel(ctx, f.user.ID, id, service.LabelInput{
			Name: name, Color: "#ff0000", Rule: rule + ` or contains(Subject, "zzz")`,
		})
		require.NoError(t, err, name)
		assert.Zero(t, widened.Added, name)
		assert.Zero(t, widened.Removed, name)
		assert.Equal(t, []string{email.ID}, f.assigned(t, id), name)
	}

	widened, err := f.labels.UpdateLabel(ctx, f.user.ID, odd.Label.ID, service.LabelInput{
		Name: "RawDate", Color: "#ff0000", Rule: `Date == "sometime last week" or contains(Subject, "zzz")`,
	})
	require.NoError(t, err)
	assert.Zero(t, widened.Added)
	assert.Zero(t, widened.Removed)
}

func TestUpdateLabelRetryCompletesFailedDiff(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.ingest(t, "m-1", "shop@store.com", "Big sale today")
	promo := f.ingest(t, "m-2", "shop@store.com", "New promo codes")
	res := f.createLabel(t, "Deals", `contains(Subject, "sale")`)
	require.Equal(t, []string{sale.ID}, f.assigned(t, res.Label.ID))

	input := service.LabelInput{Name: "Deals", Color: "#00ff00", Rule: `contains(Subject, "promo")`}
	f.assignments.setFailAdd(true)
	_, err := f.labels.UpdateLabel(ctx, f.user.ID, res.Label.ID, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	stored, err := f.labelRepo.FindByID(ctx, res.Label.ID)
	require.NoError(t, err)
	assert.Equal(t, `contains(Subject, "sale")`, stored.Rule)

	f.assignments.setFailAdd(false)
	updated, err := f.labels.UpdateLabel(ctx, f.user.ID, res.Label.ID, input)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Added)
	assert.Equal(t, []string{promo.ID}, f.assigned(t, res.Label.ID))

	stored, err = f.labelRepo.FindByID(ctx, res.Label.ID)
	require.NoError(t, err)
	assert.Equal(t, `contains(Subject, "promo")`, stored.Rule)
}

func TestUpdateLabelCancelledKeepsOldRule(t *testing.T) {
	f := newFixture(t)
	f.ingest(t, "m-1", "shop@store.com", "Big sale today")
	promo := f.ingest(t, "m-2", "shop@store.com", "New promo codes")
	res := f.createLabel(t, "Deals", `contains(Subject, "sale")`)

	input := service.LabelInput{Name: "Deals", Color: "#00ff00", Rule: `contains(Subject, "promo")`}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.labels.UpdateLabel(ctx, f.user.ID, res.Label.ID, input)
	require.ErrorIs(t, err, context.Canceled)

	stored, err := f.labelRepo.FindByID(context.Background(), res.Label.ID)
	require.NoError(t, err)
	assert.Equal(t, `contains(Subject, "sale")`, stored.Rule)

	_, err = f.labels.UpdateLabel(context.Background(), f.user.ID, res.Label.ID, input)
	require.NoError(t, err)
	assert.Equal(t, []string{promo.ID}, f.assigned(t, res.Label.ID))
}

func TestCreateLabelFailedAssignmentLeavesNoLabel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.ingest(t, "m-1", "shop@store.com", "Big sale today")

	f.assignments.setFailAdd(true)
	_, err := f.labels.CreateLabel(ctx, f.user.ID, service.LabelInput{Name: "Deals", Color: "#000", Rule: `contains(Subject, "sale")`})
	require.Error(t, err)

	list, err := f.labels.ListLabels(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	f.assignments.setFailAdd(false)
	res := f.createLabel(t, "Deals", `contains(Subject, "sale")`)
	assert.Equal(t, []string{e.ID}, f.assigned(t, res.Label.ID))
}

func TestLabelsAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	res := f.createLabel(t, "Mine", "")

	_, err := f.labels.UpdateLabel(context.Background(), "someone-else", res.Label.ID, service.LabelInput{Name: "x", Color: "y"})
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.ErrorIs(t, f.labels.DeleteLabel(context.Background(), "someone-else", res.Label.ID), service.ErrNotFound)
	assert.ErrorIs(t, f.labels.DeleteLabel(context.Background(), f.user.ID, "missing"), service.ErrNotFound)
}

func TestDeleteLabelRemovesAssignments(t *testing.T) {
	f := newFixture(t)
	e := f.ingest(t, "m-1", "shop@store.com", "Big sale")
	res := f.createLabel(t, "Deals", `contains(Subject, "sale")`)

	require.NoError(t, f.labels.DeleteLabel(context.Background(), f.user.ID, res.Label.ID))

	ids, err := f.assignments.LabelIDsForEmail(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	_, err = f.labelRepo.FindByID(context.Background(), res.Label.ID)
	assert.Error(t, err)
}

func TestValidateRule(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.labels.ValidateRule(""))
	assert.NoError(t, f.labels.ValidateRule(`Tag in ("billing", "invoices")`))
	assert.ErrorIs(t, f.labels.ValidateRule(`nope(Subject)`), service.ErrValidation)
}

func TestUpdateEmail(t *testing.T) {
	f := newFixture(t)
	e := f.ingest(t, "m-1", "a@b.com", "Hello")
	label := f.createLabel(t, "Later", "")

	status := model.StatusInProgress
	archived := true
	updated, err := f.emails.UpdateEmail(context.Background(), f.user.ID, e.ID, service.EmailUpdate{
		Status:   &status,
		Archived: &archived,
		LabelIDs: &[]string{label.Label.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, updated.Status)
	assert.True(t, updated.Archived)
	assert.Equal(t, []string{label.Label.ID}, updated.LabelIDs)

	bad := model.EmailStatus("done")
	_, err = f.emails.UpdateEmail(context.Background(), f.user.ID, e.ID, service.EmailUpdate{Status: &bad})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.emails.UpdateEmail(context.Background(), f.user.ID, e.ID, service.EmailUpdate{LabelIDs: &[]string{"foreign"}})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = f.emails.UpdateEmail(context.Background(), "intruder", e.ID, service.EmailUpdate{Status: &status})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestListEmailsFilters(t *testing.T) {
	f := newFixture(t)
	sale := f.ingest(t, "m-1", "shop@store.com", "Big sale")
	other := f.ingest(t, "m-2", "a@b.com", "Hello")
	label := f.createLabel(t, "Deals", `contains(Subject, "sale")`)

	done := model.StatusCompleted
	_, err := f.emails.UpdateEmail(context.Background(), f.user.ID, other.ID, service.EmailUpdate{Status: &done})
	require.NoError(t, err)

	all, err := f.emails.ListEmails(context.Background(), f.user.ID, service.EmailFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byLabel, err := f.emails.ListEmails(context.Background(), f.user.ID, service.EmailFilter{LabelID: label.Label.ID})
	require.NoError(t, err)
	require.Len(t, byLabel, 1)
	assert.Equal(t, sale.ID, byLabel[0].ID)
	assert.Equal(t, []string{label.Label.ID}, byLabel[0].LabelIDs)

	completed, err := f.emails.ListEmails(context.Background(), f.user.ID, service.EmailFilter{Status: model.StatusCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, other.ID, completed[0].ID)

	notArchived := false
	visible, err := f.emails.ListEmails(context.Background(), f.user.ID, service.EmailFilter{Archived: &notArchived})
	require.NoError(t, err)
	assert.Len(t, visible, 2)
}

func TestGetOrCreateUserSeedsDefaultLabels(t *testing.T) {
	f := newFixture(t)
	defaults := []config.DefaultLabel{
		{Name: "Invoices", Color: "#f59e0b", Rule: `contains(Subject, "invoice")`},
		{Name: "Broken", Color: "#000", Rule: `contains(`},
		{Name: "Follow up", Color: "#10b981"},
	}
	auth := service.NewAuthService(f.users, f.labels, defaults, logger.NewNop())

	user, err := auth.GetOrCreateUser(context.Background(), service.Profile{GoogleID: "google-2", Email: "bob@example.com", Name: "Bob", AccessToken: "t1"})
	require.NoError(t, err)

	labels, err := f.labels.ListLabels(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, labels, 2)
	assert.Equal(t, "Invoices", labels[0].Name)
	assert.Equal(t, "Follow up", labels[1].Name)

	again, err := auth.GetOrCreateUser(context.Background(), service.Profile{GoogleID: "google-2", Email: "bob@example.com", AccessToken: "t2"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "t2", again.AccessToken)

	labels, err = f.labels.ListLabels(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, labels, 2)

	_, err = auth.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}
