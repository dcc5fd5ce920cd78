package labelsync

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailtriage/internal/logger"
	"mailtriage/internal/record"
	"mailtriage/internal/rules"
)

func entry(id, from, subject string) Entry {
	return Entry{ID: id, Record: record.EmailRecord{
		MessageID: id,
		Subject:   subject,
		FromFull:  record.Address{Email: from},
		ToFull:    []record.Address{{Email: "me@domain.com"}},
	}}
}

func newSync(opts ...Option) *Synchronizer {
	return New(rules.NewEngine(), opts...)
}

func TestApplyNewLabel(t *testing.T) {
	corpus := []Entry{
		entry("1", "alice@example.com", "hello"),
		entry("2", "bob@acme.com", "quarterly numbers"),
		entry("3", "carol@acme.com.evil.io", "phish"),
	}

	got, err := newSync().ApplyNewLabel(context.Background(), `FromFull.Email ~= "@acme\\.com$"`, corpus)
	require.NoError(t, err)
	assert.Equal(t, NewIDSet("2"), got)
}

func TestApplyNewLabelBlankRule(t *testing.T) {
	got, err := newSync().ApplyNewLabel(context.Background(), "  ", []Entry{entry("1", "a@b.com", "x")})
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestApplyNewLabelRejectsBadRule(t *testing.T) {
	_, err := newSync().ApplyNewLabel(context.Background(), `contains(Subject, "x"`, []Entry{entry("1", "a@b.com", "x")})
	var ce *rules.CompileError
	assert.ErrorAs(t, err, &ce)
}

func TestReconcileRuleChange(t *testing.T) {
	corpus := []Entry{
		entry("A", "shop@store.com", "Big sale today"),
		entry("B", "shop@store.com", "sale and promo"),
		entry("C", "shop@store.com", "New PROMO codes"),
		entry("D", "friend@mail.com", "lunch?"),
	}
	current := NewIDSet("A", "B")

	diff, err := newSync().ReconcileRuleChange(context.Background(),
		`contains(Subject, "sale")`, `contains(Subject, "promo")`, corpus, current)
	require.NoError(t, err)
	assert.Equal(t, NewIDSet("C"), diff.ToAdd)
	assert.Equal(t, NewIDSet("A"), diff.ToRemove)
}

func TestReconcileIsIdempotent(t *testing.T) {
	s := newSync()
	corpus := []Entry{
		entry("A", "shop@store.com", "Big sale today"),
		entry("B", "shop@store.com", "sale and promo"),
		entry("C", "shop@store.com", "New PROMO codes"),
	}
	rule := `contains(Subject, "promo")`

	diff, err := s.ReconcileRuleChange(context.Background(), `contains(Subject, "sale")`, rule, corpus, NewIDSet("A", "B"))
	require.NoError(t, err)
	after := diff.Apply(NewIDSet("A", "B"))
	assert.Equal(t, NewIDSet("B", "C"), after)

	again, err := s.ReconcileRuleChange(context.Background(), rule, rule, corpus, after)
	require.NoError(t, err)
	assert.True(t, again.Empty())
}

func TestReconcileClearedRuleKeepsAssignments(t *testing.T) {
	corpus := []Entry{entry("A", "a@b.com", "sale")}
	diff, err := newSync().ReconcileRuleChange(context.Background(), `contains(Subject, "sale")`, "", corpus, NewIDSet("A", "Z"))
	require.NoError(t, err)
	assert.True(t, diff.Empty())
	assert.NotNil(t, diff.ToAdd)
	assert.NotNil(t, diff.ToRemove)
}

func TestReconcileLeavesAssignmentsOutsideCorpus(t *testing.T) {
	corpus := []Entry{entry("A", "a@b.com", "nothing here")}
	diff, err := newSync().ReconcileRuleChange(context.Background(), "", `contains(Subject, "sale")`, corpus, NewIDSet("A", "manual-only"))
	require.NoError(t, err)
	assert.Equal(t, NewIDSet("A"), diff.ToRemove)
	assert.False(t, diff.ToRemove.Has("manual-only"))
}

func TestReconcileCancelled(t *testing.T) {
	corpus := make([]Entry, 500)
	for i := range corpus {
		corpus[i] = entry(fmt.Sprintf("e%d", i), "a@b.com", "sale")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	diff, err := newSync(WithWorkers(2)).ReconcileRuleChange(ctx, "", `contains(Subject, "sale")`, corpus, IDSet{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, diff.ToAdd)
	assert.Nil(t, diff.ToRemove)
}

func TestParallelMatchesSequential(t *testing.T) {
	corpus := make([]Entry, 200)
	for i := range corpus {
		subject := "weekly digest"
		if i%3 == 0 {
			subject = "URGENT action needed"
		}
		corpus[i] = entry(fmt.Sprintf("e%03d", i), "a@b.com", subject)
	}
	rule := `contains(Subject, "urgent")`

	one, err := newSync(WithWorkers(1)).ApplyNewLabel(context.Background(), rule, corpus)
	require.NoError(t, err)
	many, err := newSync(WithWorkers(16)).ApplyNewLabel(context.Background(), rule, corpus)
	require.NoError(t, err)
	assert.Equal(t, one, many)
	assert.Equal(t, 67, many.Len())
}

func TestFaultsCountAsNoMatch(t *testing.T) {
	var buf bytes.Buffer
	s := newSync(WithLogger(logger.NewWithWriter(&buf)))
	corpus := []Entry{
		{ID: "ok", Record: rules.MapRecord{"Subject": "abc", "Tag": "b"}},
		{ID: "bad", Record: rules.MapRecord{"Subject": "abc", "Tag": "("}},
	}

	got, err := s.ApplyNewLabel(context.Background(), `Subject ~= Tag`, corpus)
	require.NoError(t, err)
	assert.Equal(t, NewIDSet("ok"), got)
	assert.Contains(t, buf.String(), "rule evaluation failed")
}

func TestMatchLabelsForEmail(t *testing.T) {
	var buf bytes.Buffer
	s := newSync(WithLogger(logger.NewWithWriter(&buf)))
	rec := entry("1", "billing@acme.com", "Invoice overdue").Record

	labels := []LabelRule{
		{ID: "finance", Rule: `contains(Subject, "invoice")`},
		{ID: "manual", Rule: ""},
		{ID: "broken", Rule: `contains(Subject, "invoice"`},
		{ID: "acme", Rule: `FromFull.Email ~= "@acme\\.com$"`},
		{ID: "other", Rule: `FromFull.Email == "x@y.com"`},
	}

	assert.Equal(t, []string{"finance", "acme"}, s.MatchLabelsForEmail(rec, labels))
	assert.Contains(t, buf.String(), "label rule does not compile")
	assert.Contains(t, buf.String(), "broken")
}

func TestMatchLabelsForEmailNoLabels(t *testing.T) {
	got := newSync().MatchLabelsForEmail(rules.MapRecord{}, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDiffApply(t *testing.T) {
	current := NewIDSet("a", "b")
	d := Diff{ToAdd: NewIDSet("c"), ToRemove: NewIDSet("a")}
	assert.Equal(t, []string{"b", "c"}, d.Apply(current).Sorted())
	assert.Equal(t, []string{"a", "b"}, current.Sorted(), "input untouched")
}
