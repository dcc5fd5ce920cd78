// Package gmail imports recent inbox mail through the Gmail API for users
// whose provider cannot push to the inbound webhook.
package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mailtriage/internal/logger"
	"mailtriage/internal/model"
	"mailtriage/internal/record"
	"mailtriage/internal/service"
)

const (
	DefaultQuery = "in:inbox"
	me           = "me"
)

type Importer struct {
	emails   service.EmailService
	logger   *logger.Logger
	limit    int64
	query    string
	endpoint string
	base     http.RoundTripper
}

type Option func(*Importer)

// WithEndpoint points the client at another API root, e.g. a test server.
func WithEndpoint(url string) Option {
	return func(i *Importer) {
		i.endpoint = url
	}
}

// WithQuery replaces the Gmail search query used to pick messages.
func WithQuery(q string) Option {
	return func(i *Importer) {
		i.query = q
	}
}

func NewImporter(emails service.EmailService, limit int, logger *logger.Logger, opts ...Option) *Importer {
	if limit <= 0 {
		limit = 10
	}
	i := &Importer{
		emails: emails,
		logger: logger,
		limit:  int64(limit),
		query:  DefaultQuery,
		base:   http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

type oauth2Transport struct {
	token string
	base  http.RoundTripper
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

func (i *Importer) client(ctx context.Context, accessToken string) (*gmail.Service, error) {
	httpClient := &http.Client{
		Transport: &oauth2Transport{token: accessToken, base: i.base},
		Timeout:   30 * time.Second,
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if i.endpoint != "" {
		opts = append(opts, option.WithEndpoint(i.endpoint))
	}
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return svc, nil
}

// Import fetches up to the configured number of messages and ingests each
// one for user. A message that cannot be fetched or parsed is counted as
// failed and skipped.
func (i *Importer) Import(ctx context.Context, user *model.User) (*service.ImportResult, error) {
	if user.AccessToken == "" || (!user.TokenExpiry.IsZero() && user.TokenExpiry.Before(time.Now())) {
		return nil, &service.ValidationError{Message: "mailbox access expired", Details: "sign in again"}
	}

	svc, err := i.client(ctx, user.AccessToken)
	if err != nil {
		return nil, err
	}

	list, err := svc.Users.Messages.List(me).Q(i.query).MaxResults(i.limit).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	result := &service.ImportResult{}
	for _, ref := range list.Messages {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Fetched++

		msg, err := i.fetch(ctx, svc, ref.Id)
		if err != nil {
			i.logger.Error("Failed to fetch message:", ref.Id, err)
			result.Failed++
			continue
		}

		ingested, err := i.emails.ImportMessage(ctx, user, msg)
		switch {
		case err != nil:
			i.logger.Error("Failed to import message:", ref.Id, err)
			result.Failed++
		case ingested.Duplicate:
			result.Duplicates++
		default:
			result.Stored++
		}
	}

	i.logger.Infow("Imported Gmail messages", "user", user.ID, "fetched", result.Fetched, "stored", result.Stored)
	return result, nil
}

func (i *Importer) fetch(ctx context.Context, svc *gmail.Service, id string) (record.InboundMessage, error) {
	message, err := svc.Users.Messages.Get(me, id).Format("raw").Context(ctx).Do()
	if err != nil {
		return record.InboundMessage{}, fmt.Errorf("failed to get message: %w", err)
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(message.Raw, "="))
	if err != nil {
		return record.InboundMessage{}, fmt.Errorf("failed to decode message: %w", err)
	}

	rec, err := record.FromMIME(bytes.NewReader(raw))
	if err != nil {
		return record.InboundMessage{}, err
	}

	msg := rec.Inbound()
	if msg.MessageID == "" {
		msg.MessageID = "gmail-" + message.Id
	}
	if msg.Date == "" && message.InternalDate > 0 {
		msg.Date = record.FormatDate(time.UnixMilli(message.InternalDate))
	}
	return msg, nil
}
