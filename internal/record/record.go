// Package record builds the canonical view of an email that label rules are
// evaluated against. Field names follow the Postmark inbound payload
// (FromFull.Email, ToFull, TextBody...) so rules written against the webhook
// keep working for stored mail and raw .eml files.
package record

import (
	"time"

	"mailtriage/internal/model"
)

// DateLayout is ISO-8601 in UTC with milliseconds. Dates in this layout sort
// correctly under plain string comparison.
const DateLayout = "2006-01-02T15:04:05.000Z"

type Address struct {
	Email string `json:"Email"`
	Name  string `json:"Name"`
}

type AttachmentInfo struct {
	Name          string `json:"Name"`
	ContentType   string `json:"ContentType"`
	ContentLength int64  `json:"ContentLength"`
}

// EmailRecord is immutable once built. String fields are never absent; a
// missing value is "". Sequences are never nil.
type EmailRecord struct {
	MessageID         string
	Date              string
	Subject           string
	FromFull          Address
	ToFull            []Address
	CcFull            []Address
	BccFull           []Address
	OriginalRecipient string
	TextBody          string
	HtmlBody          string
	StrippedTextReply string
	Tag               string
	Attachments       []AttachmentInfo
}

// Fields exposes the record as the nested map rules read paths from.
func (r EmailRecord) Fields() map[string]any {
	attachments := make([]any, len(r.Attachments))
	for i, a := range r.Attachments {
		attachments[i] = map[string]any{
			"Name":          a.Name,
			"ContentType":   a.ContentType,
			"ContentLength": float64(a.ContentLength),
		}
	}
	return map[string]any{
		"MessageID":         r.MessageID,
		"Date":              r.Date,
		"Subject":           r.Subject,
		"FromFull":          addressMap(r.FromFull),
		"ToFull":            addressList(r.ToFull),
		"CcFull":            addressList(r.CcFull),
		"BccFull":           addressList(r.BccFull),
		"OriginalRecipient": r.OriginalRecipient,
		"TextBody":          r.TextBody,
		"HtmlBody":          r.HtmlBody,
		"StrippedTextReply": r.StrippedTextReply,
		"Tag":               r.Tag,
		"Attachments":       attachments,
	}
}

func addressMap(a Address) map[string]any {
	return map[string]any{"Email": a.Email, "Name": a.Name}
}

func addressList(list []Address) []any {
	out := make([]any, len(list))
	for i, a := range list {
		out[i] = addressMap(a)
	}
	return out
}

// FormatDate renders t in DateLayout. The zero time renders as "".
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// FromEmail adapts a stored email. Emails stored before the full recipient
// lists were kept fall back to ToEmail as the only recipient.
func FromEmail(e model.Email) EmailRecord {
	to := fromRecipients(e.To)
	if len(to) == 0 && e.ToEmail != "" {
		to = append(to, Address{Email: e.ToEmail})
	}
	original := e.OriginalRecipient
	if original == "" {
		original = e.ToEmail
	}

	attachments := make([]AttachmentInfo, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		attachments = append(attachments, AttachmentInfo{
			Name:          a.Name,
			ContentType:   a.ContentType,
			ContentLength: a.ContentLength,
		})
	}

	return EmailRecord{
		MessageID:         e.MessageID,
		Date:              FormatDate(e.ReceivedAt),
		Subject:           e.Subject,
		FromFull:          Address{Email: e.FromEmail, Name: e.FromName},
		ToFull:            to,
		CcFull:            fromRecipients(e.Cc),
		BccFull:           fromRecipients(e.Bcc),
		OriginalRecipient: original,
		TextBody:          e.TextBody,
		HtmlBody:          e.HTMLBody,
		StrippedTextReply: e.StrippedTextReply,
		Tag:               e.Tag,
		Attachments:       attachments,
	}
}

func fromRecipients(list []model.Recipient) []Address {
	out := make([]Address, 0, len(list))
	for _, r := range list {
		out = append(out, Address{Email: r.Email, Name: r.Name})
	}
	return out
}

// ToRecipients converts header addresses for storage.
func ToRecipients(list []Address) []model.Recipient {
	out := make([]model.Recipient, 0, len(list))
	for _, a := range list {
		out = append(out, model.Recipient{Email: a.Email, Name: a.Name})
	}
	return out
}
