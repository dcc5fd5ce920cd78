package record

import (
	"net/mail"
	"strings"
	"time"
)

// InboundMessage is the Postmark inbound webhook payload.
type InboundMessage struct {
	MessageID         string              `json:"MessageID"`
	Date              string              `json:"Date"`
	Subject           string              `json:"Subject"`
	FromFull          Address             `json:"FromFull"`
	ToFull            []Address           `json:"ToFull"`
	CcFull            []Address           `json:"CcFull"`
	BccFull           []Address           `json:"BccFull"`
	OriginalRecipient string              `json:"OriginalRecipient"`
	TextBody          string              `json:"TextBody"`
	HtmlBody          string              `json:"HtmlBody"`
	StrippedTextReply string              `json:"StrippedTextReply"`
	Tag               string              `json:"Tag"`
	Headers           []Header            `json:"Headers"`
	Attachments       []InboundAttachment `json:"Attachments"`
}

type Header struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type InboundAttachment struct {
	Name          string `json:"Name"`
	Content       string `json:"Content"`
	ContentType   string `json:"ContentType"`
	ContentLength int64  `json:"ContentLength"`
	ContentID     string `json:"ContentID"`
}

// Recipient is the first To address, which decides the owning mailbox.
func (m InboundMessage) Recipient() string {
	if len(m.ToFull) == 0 {
		return ""
	}
	return m.ToFull[0].Email
}

// Validate lists the required fields that are missing.
func (m InboundMessage) Validate() []string {
	var missing []string
	if m.MessageID == "" {
		missing = append(missing, "MessageID")
	}
	if m.Subject == "" {
		missing = append(missing, "Subject")
	}
	if m.FromFull.Email == "" {
		missing = append(missing, "FromFull.Email")
	}
	if m.Recipient() == "" {
		missing = append(missing, "ToFull[0].Email")
	}
	return missing
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"Mon, 2 Jan 2006 15:04:05 -07:00",
	"Mon, 2 Jan 2006 15:04:05 -07:00 (MST)",
	"2 Jan 2006 15:04:05 -07:00",
}

// ParseDate understands RFC 5322 dates plus the colon-offset variant
// Postmark sends.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := mail.ParseDate(s); err == nil {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FromInbound adapts a webhook payload. A Date that cannot be parsed is kept
// as sent rather than dropped.
func FromInbound(m InboundMessage) EmailRecord {
	date := m.Date
	if t, ok := ParseDate(m.Date); ok {
		date = FormatDate(t)
	}

	attachments := make([]AttachmentInfo, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, AttachmentInfo{
			Name:          a.Name,
			ContentType:   a.ContentType,
			ContentLength: a.ContentLength,
		})
	}

	return EmailRecord{
		MessageID:         m.MessageID,
		Date:              date,
		Subject:           m.Subject,
		FromFull:          m.FromFull,
		ToFull:            cloneAddresses(m.ToFull),
		CcFull:            cloneAddresses(m.CcFull),
		BccFull:           cloneAddresses(m.BccFull),
		OriginalRecipient: m.OriginalRecipient,
		TextBody:          m.TextBody,
		HtmlBody:          m.HtmlBody,
		StrippedTextReply: m.StrippedTextReply,
		Tag:               m.Tag,
		Attachments:       attachments,
	}
}

func cloneAddresses(list []Address) []Address {
	out := make([]Address, len(list))
	copy(out, list)
	return out
}

// Inbound turns a record back into a webhook-shaped message so mail read
// from other sources goes through the same ingest path. Attachment bodies
// are not carried.
func (r EmailRecord) Inbound() InboundMessage {
	attachments := make([]InboundAttachment, 0, len(r.Attachments))
	for _, a := range r.Attachments {
		attachments = append(attachments, InboundAttachment{
			Name:          a.Name,
			ContentType:   a.ContentType,
			ContentLength: a.ContentLength,
		})
	}
	return InboundMessage{
		MessageID:         r.MessageID,
		Date:              r.Date,
		Subject:           r.Subject,
		FromFull:          r.FromFull,
		ToFull:            cloneAddresses(r.ToFull),
		CcFull:            cloneAddresses(r.CcFull),
		BccFull:           cloneAddresses(r.BccFull),
		OriginalRecipient: r.OriginalRecipient,
		TextBody:          r.TextBody,
		HtmlBody:          r.HtmlBody,
		StrippedTextReply: r.StrippedTextReply,
		Tag:               r.Tag,
		Attachments:       attachments,
	}
}
