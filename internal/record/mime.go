package record

import (
	"fmt"
	"io"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// FromMIME parses a raw RFC 5322 message, such as an .eml file. Unlike the
// other adapters it reads bytes and can fail.
func FromMIME(r io.Reader) (EmailRecord, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return EmailRecord{}, fmt.Errorf("failed to create mail reader: %w", err)
	}
	defer mr.Close()

	h := mr.Header
	rec := EmailRecord{
		ToFull:      []Address{},
		CcFull:      []Address{},
		BccFull:     []Address{},
		Attachments: []AttachmentInfo{},
	}

	if id, err := h.MessageID(); err == nil {
		rec.MessageID = id
	}
	if subject, err := h.Subject(); err == nil {
		rec.Subject = subject
	} else {
		rec.Subject = h.Get("Subject")
	}
	if date, err := h.Date(); err == nil {
		rec.Date = FormatDate(date)
	}
	if from := addressHeader(h, "From"); len(from) > 0 {
		rec.FromFull = from[0]
	}
	rec.ToFull = addressHeader(h, "To")
	rec.CcFull = addressHeader(h, "Cc")
	rec.BccFull = addressHeader(h, "Bcc")
	if orig := addressHeader(h, "Delivered-To"); len(orig) > 0 {
		rec.OriginalRecipient = orig[0].Email
	} else if len(rec.ToFull) > 0 {
		rec.OriginalRecipient = rec.ToFull[0].Email
	}
	rec.Tag = h.Get("X-PM-Tag")

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return EmailRecord{}, fmt.Errorf("failed to read part: %w", err)
		}

		switch ph := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := ph.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return EmailRecord{}, fmt.Errorf("failed to read body: %w", err)
			}
			switch {
			case strings.HasPrefix(contentType, "text/plain") && rec.TextBody == "":
				rec.TextBody = string(body)
			case strings.HasPrefix(contentType, "text/html") && rec.HtmlBody == "":
				rec.HtmlBody = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := ph.Filename()
			contentType, _, _ := ph.ContentType()
			n, err := io.Copy(io.Discard, part.Body)
			if err != nil {
				return EmailRecord{}, fmt.Errorf("failed to read attachment: %w", err)
			}
			rec.Attachments = append(rec.Attachments, AttachmentInfo{
				Name:          filename,
				ContentType:   contentType,
				ContentLength: n,
			})
		}
	}

	return rec, nil
}

func addressHeader(h mail.Header, key string) []Address {
	out := []Address{}
	list, err := h.AddressList(key)
	if err != nil {
		return out
	}
	for _, a := range list {
		out = append(out, Address{Email: a.Address, Name: a.Name})
	}
	return out
}
