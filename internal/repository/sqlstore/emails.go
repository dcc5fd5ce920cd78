package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mailtriage/internal/model"
	"mailtriage/internal/repository"
)

type EmailRepository struct {
	*Store
}

func NewEmailRepository(s *Store) *EmailRepository {
	return &EmailRepository{Store: s}
}

const emailColumns = `id, user_id, message_id, subject, from_email, from_name, to_email, text_body, html_body,
	summary, ai_summary, status, archived, received_at, created_at, updated_at,
	to_list, cc_list, bcc_list, original_recipient, tag, stripped_text_reply`

func scanEmail(sc interface{ Scan(...any) error }) (*model.Email, error) {
	email := &model.Email{LabelIDs: []string{}}
	var to, cc, bcc string
	err := sc.Scan(
		&email.ID, &email.UserID, &email.MessageID, &email.Subject,
		&email.FromEmail, &email.FromName, &email.ToEmail,
		&email.TextBody, &email.HTMLBody, &email.Summary, &email.AISummary,
		&email.Status, &email.Archived, &email.ReceivedAt, &email.CreatedAt, &email.UpdatedAt,
		&to, &cc, &bcc, &email.OriginalRecipient, &email.Tag, &email.StrippedTextReply)
	if err != nil {
		return nil, err
	}
	for _, f := range []struct {
		raw  string
		dest *[]model.Recipient
	}{{to, &email.To}, {cc, &email.Cc}, {bcc, &email.Bcc}} {
		if *f.dest, err = decodeRecipients(f.raw); err != nil {
			return nil, fmt.Errorf("failed to decode recipients of %s: %w", email.ID, err)
		}
	}
	return email, nil
}

// Recipient lists are stored as JSON arrays.
func encodeRecipients(list []model.Recipient) (string, error) {
	if list == nil {
		list = []model.Recipient{}
	}
	b, err := json.Marshal(list)
	return string(b), err
}

func decodeRecipients(raw string) ([]model.Recipient, error) {
	out := []model.Recipient{}
	if raw == "" {
		return out, nil
	}
	err := json.Unmarshal([]byte(raw), &out)
	return out, err
}

// Create inserts the email or returns repository.ErrDuplicate when the
// message id is already stored.
func (r *EmailRepository) Create(ctx context.Context, email *model.Email) error {
	var lists [3]string
	for i, list := range [][]model.Recipient{email.To, email.Cc, email.Bcc} {
		encoded, err := encodeRecipients(list)
		if err != nil {
			return fmt.Errorf("failed to encode recipients: %w", err)
		}
		lists[i] = encoded
	}

	query := `
		INSERT INTO emails (` + emailColumns + `)
		VALUES (` + placeholders(22) + `)
		ON CONFLICT (message_id) DO NOTHING`
	res, err := r.exec(ctx, query,
		email.ID, email.UserID, email.MessageID, email.Subject,
		email.FromEmail, email.FromName, email.ToEmail,
		email.TextBody, email.HTMLBody, email.Summary, email.AISummary,
		string(email.Status), email.Archived,
		utc(email.ReceivedAt), utc(email.CreatedAt), utc(email.UpdatedAt),
		lists[0], lists[1], lists[2], email.OriginalRecipient, email.Tag, email.StrippedTextReply)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrDuplicate
	}
	return nil
}

func (r *EmailRepository) findOne(ctx context.Context, where string, arg any) (*model.Email, error) {
	email, err := scanEmail(r.queryRow(ctx, `SELECT `+emailColumns+` FROM emails WHERE `+where+` = ?`, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return email, nil
}

func (r *EmailRepository) FindByID(ctx context.Context, id string) (*model.Email, error) {
	return r.findOne(ctx, "id", id)
}

func (r *EmailRepository) FindByMessageID(ctx context.Context, messageID string) (*model.Email, error) {
	return r.findOne(ctx, "message_id", messageID)
}

func (r *EmailRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Email, error) {
	rows, err := r.query(ctx, `SELECT `+emailColumns+` FROM emails WHERE user_id = ? ORDER BY received_at DESC, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	emails := []*model.Email{}
	for rows.Next() {
		email, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (r *EmailRepository) Update(ctx context.Context, email *model.Email) error {
	query := `
		UPDATE emails SET subject = ?, summary = ?, ai_summary = ?, status = ?, archived = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.exec(ctx, query,
		email.Subject, email.Summary, email.AISummary, string(email.Status), email.Archived,
		utc(time.Now()), email.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *EmailRepository) Delete(ctx context.Context, id string) error {
	_, err := r.exec(ctx, `DELETE FROM emails WHERE id = ?`, id)
	return err
}

func (r *EmailRepository) CreateAttachments(ctx context.Context, attachments []model.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.rebind(`
		INSERT INTO attachments (id, email_id, name, content_type, content_length, content, content_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range attachments {
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.EmailID, a.Name, a.ContentType, a.ContentLength, a.Content, a.ContentID, utc(a.CreatedAt)); err != nil {
			return fmt.Errorf("failed to insert attachment %s: %w", a.Name, err)
		}
	}
	return tx.Commit()
}

func (r *EmailRepository) FindAttachments(ctx context.Context, emailID string) ([]model.Attachment, error) {
	rows, err := r.query(ctx, `
		SELECT id, email_id, name, content_type, content_length, content, content_id, created_at
		FROM attachments WHERE email_id = ? ORDER BY created_at, id`, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Attachment{}
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.EmailID, &a.Name, &a.ContentType, &a.ContentLength,
			&a.Content, &a.ContentID, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
