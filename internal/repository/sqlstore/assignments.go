package sqlstore

import (
	"context"
	"time"
)

// batchSize bounds the number of ids bound into one statement.
const batchSize = 500

type AssignmentRepository struct {
	*Store
}

func NewAssignmentRepository(s *Store) *AssignmentRepository {
	return &AssignmentRepository{Store: s}
}

func chunks(ids []string, fn func([]string) error) error {
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		if err := fn(ids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// Add inserts one edge per email. Existing edges are left as they are. Each
// batch commits on its own so a failure part way leaves earlier batches in
// place; repeating the call finishes the job.
func (r *AssignmentRepository) Add(ctx context.Context, labelID string, emailIDs []string) error {
	now := utc(time.Now())
	return chunks(emailIDs, func(batch []string) error {
		query := `INSERT INTO email_labels (email_id, label_id, created_at) VALUES `
		args := make([]any, 0, len(batch)*3)
		for i, id := range batch {
			if i > 0 {
				query += ", "
			}
			query += "(?, ?, ?)"
			args = append(args, id, labelID, now)
		}
		query += ` ON CONFLICT (email_id, label_id) DO NOTHING`
		_, err := r.exec(ctx, query, args...)
		return err
	})
}

func (r *AssignmentRepository) Remove(ctx context.Context, labelID string, emailIDs []string) error {
	return chunks(emailIDs, func(batch []string) error {
		args := make([]any, 0, len(batch)+1)
		args = append(args, labelID)
		for _, id := range batch {
			args = append(args, id)
		}
		_, err := r.exec(ctx,
			`DELETE FROM email_labels WHERE label_id = ? AND email_id IN (`+placeholders(len(batch))+`)`, args...)
		return err
	})
}

func (r *AssignmentRepository) EmailIDsForLabel(ctx context.Context, labelID string) ([]string, error) {
	rows, err := r.query(ctx, `SELECT email_id FROM email_labels WHERE label_id = ? ORDER BY email_id`, labelID)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

func (r *AssignmentRepository) LabelIDsForEmail(ctx context.Context, emailID string) ([]string, error) {
	rows, err := r.query(ctx, `SELECT label_id FROM email_labels WHERE email_id = ? ORDER BY label_id`, emailID)
	if err != nil {
		return nil, err
	}
	return scanStrings(rows)
}

// ReplaceForEmail sets the labels of one email in a single transaction.
func (r *AssignmentRepository) ReplaceForEmail(ctx context.Context, emailID string, labelIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.rebind(`DELETE FROM email_labels WHERE email_id = ?`), emailID); err != nil {
		return err
	}
	now := utc(time.Now())
	for _, labelID := range labelIDs {
		if _, err := tx.ExecContext(ctx, r.rebind(`
			INSERT INTO email_labels (email_id, label_id, created_at) VALUES (?, ?, ?)
			ON CONFLICT (email_id, label_id) DO NOTHING`), emailID, labelID, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *AssignmentRepository) DeleteByLabel(ctx context.Context, labelID string) error {
	_, err := r.exec(ctx, `DELETE FROM email_labels WHERE label_id = ?`, labelID)
	return err
}

func (r *AssignmentRepository) DeleteByEmail(ctx context.Context, emailID string) error {
	_, err := r.exec(ctx, `DELETE FROM email_labels WHERE email_id = ?`, emailID)
	return err
}
