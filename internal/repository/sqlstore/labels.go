package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"mailtriage/internal/model"
	"mailtriage/internal/repository"
)

type LabelRepository struct {
	*Store
}

func NewLabelRepository(s *Store) *LabelRepository {
	return &LabelRepository{Store: s}
}

const labelColumns = `id, user_id, name, color, filter, prompt_filter, created_at, updated_at`

func scanLabel(sc interface{ Scan(...any) error }) (*model.Label, error) {
	label := &model.Label{}
	err := sc.Scan(
		&label.ID, &label.UserID, &label.Name, &label.Color,
		&label.Rule, &label.PromptFilter, &label.CreatedAt, &label.UpdatedAt)
	return label, err
}

func (r *LabelRepository) Create(ctx context.Context, label *model.Label) error {
	query := `INSERT INTO labels (` + labelColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.exec(ctx, query,
		label.ID, label.UserID, label.Name, label.Color, label.Rule, label.PromptFilter,
		utc(label.CreatedAt), utc(label.UpdatedAt))
	return err
}

func (r *LabelRepository) FindByID(ctx context.Context, id string) (*model.Label, error) {
	label, err := scanLabel(r.queryRow(ctx, `SELECT `+labelColumns+` FROM labels WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return label, nil
}

func (r *LabelRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Label, error) {
	rows, err := r.query(ctx, `SELECT `+labelColumns+` FROM labels WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := []*model.Label{}
	for rows.Next() {
		label, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, label)
	}
	return labels, rows.Err()
}

func (r *LabelRepository) Update(ctx context.Context, label *model.Label) error {
	query := `UPDATE labels SET name = ?, color = ?, filter = ?, prompt_filter = ?, updated_at = ? WHERE id = ?`
	res, err := r.exec(ctx, query,
		label.Name, label.Color, label.Rule, label.PromptFilter, utc(label.UpdatedAt), label.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *LabelRepository) Delete(ctx context.Context, id string) error {
	_, err := r.exec(ctx, `DELETE FROM labels WHERE id = ?`, id)
	return err
}
