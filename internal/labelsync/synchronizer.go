// Package labelsync keeps label assignments consistent with label rules. It
// decides which emails a new label applies to, how assignments change when a
// rule is edited and which labels a newly received email gets. It computes
// sets only; persisting them is left to the caller.
package labelsync

import (
	"context"
	"errors"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"mailtriage/internal/logger"
	"mailtriage/internal/metrics"
	"mailtriage/internal/rules"
)

// Entry pairs a stored email id with its evaluation record.
type Entry struct {
	ID     string
	Record rules.Record
}

// LabelRule is the part of a label the synchronizer needs.
type LabelRule struct {
	ID   string
	Rule string
}

type Synchronizer struct {
	engine  *rules.Engine
	log     *logger.Logger
	workers int
}

type Option func(*Synchronizer)

// WithWorkers bounds how many emails are evaluated at once. Values below one
// mean GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Synchronizer) {
		s.log = log
	}
}

func New(engine *rules.Engine, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		engine:  engine,
		log:     logger.NewNop(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplyNewLabel returns the ids of every email in corpus that rule matches.
// A blank rule matches nothing. A rule that does not compile is returned as
// a *rules.CompileError so the caller can reject it.
func (s *Synchronizer) ApplyNewLabel(ctx context.Context, rule string, corpus []Entry) (IDSet, error) {
	start := time.Now()
	defer func() { metrics.RecordSyncDuration("apply", time.Since(start)) }()

	p, err := s.engine.Compile(rule)
	if errors.Is(err, rules.ErrEmptyRule) {
		return IDSet{}, nil
	}
	if err != nil {
		metrics.IncrementCompileError("sync")
		return nil, err
	}

	matched, err := s.matching(ctx, p, corpus)
	if err != nil {
		return nil, err
	}
	metrics.AddRuleMatches("apply", matched.Len())
	return matched, nil
}

// ReconcileRuleChange computes the assignment correction after a label's
// rule changed from oldRule to newRule. current holds the emails the label is
// assigned to now.
//
// A blank newRule yields an empty diff: clearing a rule stops automatic
// matching but keeps what it matched before. Otherwise emails that match and
// are not assigned go to ToAdd, and assigned emails in corpus that no longer
// match go to ToRemove. Assigned emails outside corpus are left alone.
//
// If ctx is cancelled the error is returned and no diff is produced.
func (s *Synchronizer) ReconcileRuleChange(ctx context.Context, oldRule, newRule string, corpus []Entry, current IDSet) (Diff, error) {
	start := time.Now()
	defer func() { metrics.RecordSyncDuration("reconcile", time.Since(start)) }()

	p, err := s.engine.Compile(newRule)
	if errors.Is(err, rules.ErrEmptyRule) {
		s.log.Infow("rule cleared, keeping existing assignments", "old_rule", oldRule, "assigned", current.Len())
		return emptyDiff(), nil
	}
	if err != nil {
		metrics.IncrementCompileError("sync")
		return Diff{}, err
	}

	matched, err := s.matching(ctx, p, corpus)
	if err != nil {
		return Diff{}, err
	}
	metrics.AddRuleMatches("reconcile", matched.Len())

	diff := emptyDiff()
	for _, e := range corpus {
		switch {
		case matched.Has(e.ID) && !current.Has(e.ID):
			diff.ToAdd.Add(e.ID)
		case !matched.Has(e.ID) && current.Has(e.ID):
			diff.ToRemove.Add(e.ID)
		}
	}
	return diff, nil
}

// MatchLabelsForEmail returns the ids of the labels whose rule matches rec,
// in the order given. Labels without a rule are skipped. A label whose rule
// fails to compile or evaluate is logged and treated as not matching.
func (s *Synchronizer) MatchLabelsForEmail(rec rules.Record, labels []LabelRule) []string {
	matched := []string{}
	for _, label := range labels {
		p, err := s.engine.Compile(label.Rule)
		if errors.Is(err, rules.ErrEmptyRule) {
			continue
		}
		if err != nil {
			metrics.IncrementCompileError("ingest")
			s.log.Errorw("label rule does not compile", "label_id", label.ID, "rule", label.Rule, "error", err)
			continue
		}
		ok, err := p.Evaluate(rec)
		if err != nil {
			s.fault(label.ID, err)
			continue
		}
		if ok {
			matched = append(matched, label.ID)
		}
	}
	metrics.AddRuleMatches("ingest", len(matched))
	return matched
}

// matching evaluates p over corpus on a bounded worker pool.
func (s *Synchronizer) matching(ctx context.Context, p *rules.Predicate, corpus []Entry) (IDSet, error) {
	results := make([]bool, len(corpus))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range corpus {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := p.Evaluate(corpus[i].Record)
			if err != nil {
				s.fault(corpus[i].ID, err)
				return nil
			}
			results[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matched := IDSet{}
	for i, ok := range results {
		if ok {
			matched.Add(corpus[i].ID)
		}
	}
	return matched, nil
}

func (s *Synchronizer) fault(id string, err error) {
	metrics.IncrementEvaluationFault()
	var fault *rules.EvaluationFault
	if errors.As(err, &fault) {
		s.log.Warnw("rule evaluation failed, treating as no match", "id", id, "rule", fault.Rule, "cause", fault.Cause)
		return
	}
	s.log.Warnw("rule evaluation failed, treating as no match", "id", id, "error", err)
}
